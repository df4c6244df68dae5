package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/streetscan-api/internal/config"
	"github.com/Brownie44l1/streetscan-api/internal/labels"
	"github.com/Brownie44l1/streetscan-api/internal/metrics"
	"github.com/Brownie44l1/streetscan-api/internal/model"
	"github.com/Brownie44l1/streetscan-api/internal/preprocess"
)

const (
	indexMessage    = "Street facility classifier API is running!"
	reuploadMessage = "이미지를 다시 업로드해주세요!"
	outcomeOK       = "OK"
	outcomeReupload = "REUPLOAD"
)

// Handler serves the classification API. It holds no per-request state.
type Handler struct {
	predictor      model.Predictor
	preprocessor   *preprocess.Preprocessor
	labels         *labels.Registry
	threshold      float32
	maxUploadBytes int64
	log            *zap.Logger
}

func NewHandler(predictor model.Predictor, registry *labels.Registry, cfg *config.Config, log *zap.Logger) *Handler {
	return &Handler{
		predictor:      predictor,
		preprocessor:   preprocess.New(cfg.Model.ImageSize, cfg.Model.MaxPixels),
		labels:         registry,
		threshold:      float32(cfg.Model.ConfidenceThreshold),
		maxUploadBytes: cfg.Server.MaxUploadBytes,
		log:            log,
	}
}

func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, IndexResponse{
		Message: indexMessage,
		Endpoints: map[string]string{
			"predict": "/predict (POST)",
			"result":  "/result/<int:class_id> (GET)",
			"health":  "/health (GET)",
			"ready":   "/ready (GET)",
			"metrics": "/metrics (GET)",
		},
	})
}

// Health handles GET /health. The process is healthy even without a model;
// the component map says whether predictions can succeed.
func (h *Handler) Health(c *gin.Context) {
	modelStatus := "ok"
	if !h.predictor.Ready() {
		modelStatus = "unavailable"
	}
	c.JSON(http.StatusOK, HealthStatus{
		Status:     "healthy",
		Components: map[string]string{"model": modelStatus},
	})
}

func (h *Handler) Ready(c *gin.Context) {
	if !h.predictor.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "model unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Predict handles POST /predict
func (h *Handler) Predict(c *gin.Context) {
	up, err := formFile(c, "file", h.maxUploadBytes)
	if err != nil {
		h.fail(c, err)
		return
	}

	if !h.predictor.Ready() {
		h.fail(c, model.ErrModelUnavailable)
		return
	}

	pred, err := h.classify(c.Request.Context(), up.data)
	if err != nil {
		h.log.Error("Prediction failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("filename", up.filename),
			zap.Error(err),
		)
		h.fail(c, err)
		return
	}

	h.log.Debug("Prediction",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("filename", up.filename),
		zap.Int("size", len(up.data)),
		zap.Int("class_id", pred.ClassID),
		zap.Float32("confidence", pred.Confidence),
	)

	if pred.Confidence < h.threshold {
		metrics.ObservePrediction(outcomeReupload)
		c.JSON(http.StatusOK, ReuploadResponse{Reupload: true, Message: reuploadMessage})
		return
	}

	metrics.ObservePrediction(outcomeOK)
	metrics.ObserveClass(strconv.Itoa(pred.ClassID))
	c.JSON(http.StatusOK, pred)
}

func (h *Handler) Result(c *gin.Context) {
	classID, ok := parseClassID(c.Param("class_id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorBody{Error: "Not Found"})
		return
	}

	label, err := h.labels.Lookup(classID)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResultResponse{ClassID: classID, Label: label})
}

// classify runs the preprocess, inference and argmax steps for one image.
func (h *Handler) classify(ctx context.Context, data []byte) (model.Prediction, error) {
	tensor, err := h.preprocessor.Process(data)
	if err != nil {
		return model.Prediction{}, err
	}

	start := time.Now()
	probs, err := h.predictor.Infer(ctx, tensor)
	if err != nil {
		return model.Prediction{}, err
	}
	metrics.ObserveInference(time.Since(start))

	return model.Top(probs, h.labels.Len())
}

func (h *Handler) fail(c *gin.Context, err error) {
	errResp := HandleError(c, err)
	metrics.ObservePrediction(errResp.Code)
}
