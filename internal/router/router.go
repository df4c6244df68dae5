package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Brownie44l1/streetscan-api/internal/config"
	"github.com/Brownie44l1/streetscan-api/internal/handlers"
	"github.com/Brownie44l1/streetscan-api/internal/labels"
	"github.com/Brownie44l1/streetscan-api/internal/middleware"
	"github.com/Brownie44l1/streetscan-api/internal/model"
)

// Setup creates and configures the Gin router
func Setup(cfg *config.Config, predictor model.Predictor, registry *labels.Registry, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	h := handlers.NewHandler(predictor, registry, cfg, logger)

	router.GET("/", h.Index)
	router.POST("/predict", h.Predict)
	router.GET("/result/:class_id", h.Result)

	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
