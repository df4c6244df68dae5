package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Brownie44l1/streetscan-api/internal/labels"
	"github.com/Brownie44l1/streetscan-api/internal/model"
)

var (
	ErrMissingFile = errors.New("missing file")
	ErrEmptyFilename = errors.New("empty filename")
	ErrUploadTooLarge = errors.New("upload too large")
)

// Error codes used in logs and the predictions_total metric.
const (
	CodeMissingFile      = "MISSING_FILE"
	CodeEmptyFilename    = "EMPTY_FILENAME"
	CodeUploadTooLarge   = "UPLOAD_TOO_LARGE"
	CodeModelUnavailable = "MODEL_UNAVAILABLE"
	CodeUnknownClass     = "UNKNOWN_CLASS"
	CodePredictionError  = "PREDICTION_ERROR"
)

type ErrorResponse struct {
	StatusCode int
	Code       string
	Message    string
}

// MapError maps pipeline errors to HTTP error responses. Anything unrecognised
// is a prediction failure and carries the underlying message.
func MapError(err error) ErrorResponse {
	switch {
	case errors.Is(err, ErrMissingFile):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       CodeMissingFile,
			Message:    "파일이 없습니다.",
		}
	case errors.Is(err, ErrEmptyFilename):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       CodeEmptyFilename,
			Message:    "파일을 선택해주세요.",
		}
	case errors.Is(err, ErrUploadTooLarge):
		return ErrorResponse{
			StatusCode: http.StatusRequestEntityTooLarge,
			Code:       CodeUploadTooLarge,
			Message:    "파일이 너무 큽니다.",
		}
	case errors.Is(err, model.ErrModelUnavailable):
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       CodeModelUnavailable,
			Message:    "AI 모델을 찾을 수 없습니다. 서버를 확인해주세요.",
		}
	case errors.Is(err, labels.ErrUnknownClass):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       CodeUnknownClass,
			Message:    "해당 class_id에 대한 정보가 없습니다.",
		}
	default:
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       CodePredictionError,
			Message:    "예측 중 오류 발생: " + err.Error(),
		}
	}
}

// HandleError sends the JSON error for err and records its code for the request logger.
func HandleError(c *gin.Context, err error) ErrorResponse {
	errResp := MapError(err)
	respondError(c, errResp.StatusCode, errResp.Code, errResp.Message)
	return errResp
}
