package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Brownie44l1/streetscan-api/internal/config"
	"github.com/Brownie44l1/streetscan-api/internal/labels"
	"github.com/Brownie44l1/streetscan-api/internal/logger"
	"github.com/Brownie44l1/streetscan-api/internal/model"
	"github.com/Brownie44l1/streetscan-api/internal/router"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		port       int
		modelPath  string
	)

	cmd := &cobra.Command{
		Use:   "streetscan-api",
		Short: "HTTP API classifying street facility photos",
		Long: `streetscan-api serves an image classification model over HTTP.

Upload a photo to POST /predict and receive the class id and confidence, or a
request to upload a clearer image when the model is unsure.`,
		Example: `  # Serve with defaults (model/model.onnx on port 8080)
  streetscan-api

  # Custom config file and port
  streetscan-api --config config.yaml --port 5000

  # Try it
  curl -F "file=@hydrant.jpg" http://localhost:8080/predict`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("model") {
				cfg.Model.Path = modelPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().IntVarP(&port, "port", "p", config.Default().Server.Port, "Port to listen on")
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Path to the ONNX model")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(cfg.Server.Mode)

	registry := labels.Default()
	contract := model.Contract{
		ImageSize:  cfg.Model.ImageSize,
		Channels:   cfg.Model.Channels,
		NumClasses: registry.Len(),
	}

	log.Info("Loading model", zap.String("path", cfg.Model.Path))
	predictor, err := model.Load(&cfg.Model, contract, log)
	if err != nil {
		log.Error("Failed to load model", zap.Error(err))
		return fmt.Errorf("failed to load model: %w", err)
	}
	defer predictor.Close()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(cfg, predictor, registry, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server",
			zap.String("address", srv.Addr),
			zap.Bool("model_ready", predictor.Ready()),
			zap.Float64("confidence_threshold", cfg.Model.ConfidenceThreshold),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	log.Info("Server exited")
	return nil
}
