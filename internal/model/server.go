package model

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/Brownie44l1/streetscan-api/internal/config"
)

// Server runs an ONNX classification model. Input and output tensors are
// allocated per call, so Infer may be used from many goroutines.
type Server struct {
	session     *ort.DynamicAdvancedSession
	contract    Contract
	Metadata    Metadata
	inputShape  ort.Shape
	outputShape ort.Shape
}

// Load opens the model described by cfg. A missing artifact is not an error:
// the returned predictor reports ErrModelUnavailable for every call instead.
func Load(cfg *config.ModelConfig, contract Contract, log *zap.Logger) (Predictor, error) {
	if _, err := os.Stat(cfg.Path); errors.Is(err, fs.ErrNotExist) {
		log.Warn("Model file not found, predictions are disabled", zap.String("path", cfg.Path))
		return Unavailable{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat model: %w", err)
	}

	srv, err := NewServer(cfg, contract, log)
	if err != nil {
		return nil, err
	}
	return srv, nil
}

// NewServer initializes the ONNX runtime and opens a session on cfg.Path.
func NewServer(cfg *config.ModelConfig, contract Contract, log *zap.Logger) (*Server, error) {
	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	srv, err := newSession(cfg, contract, log)
	if err != nil {
		_ = ort.DestroyEnvironment()
		return nil, err
	}
	return srv, nil
}

func newSession(cfg *config.ModelConfig, contract Contract, log *zap.Logger) (*Server, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model inputs and outputs: %w", err)
	}
	if err := checkModelIO(inputs, outputs, contract); err != nil {
		return nil, err
	}

	var metadata Metadata
	if cfg.MetadataPath != "" {
		m, ignored, err := ReadMetadata(cfg.MetadataPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Debug("No model metadata sidecar", zap.String("path", cfg.MetadataPath))
		case err != nil:
			return nil, err
		default:
			if len(ignored) > 0 {
				log.Warn("Ignoring unsupported model metadata fields", zap.Strings("fields", ignored))
			}
			if err := m.Check(contract); err != nil {
				return nil, err
			}
			metadata = *m
		}
	}

	var options *ort.SessionOptions
	if cfg.IntraOpThreads > 0 {
		options, err = ort.NewSessionOptions()
		if err != nil {
			return nil, fmt.Errorf("failed to create session options: %w", err)
		}
		defer options.Destroy()
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.Path,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	log.Info("Model loaded",
		zap.String("path", cfg.Path),
		zap.String("input", inputs[0].Name),
		zap.Int64s("input_shape", contract.InputShape()),
		zap.String("output", outputs[0].Name),
		zap.Int("classes", contract.NumClasses),
		zap.Strings("class_names", metadata.Classes),
	)

	return &Server{
		session:     session,
		contract:    contract,
		Metadata:    metadata,
		inputShape:  ort.NewShape(contract.InputShape()...),
		outputShape: ort.NewShape(contract.OutputShape()...),
	}, nil
}

func checkModelIO(inputs, outputs []ort.InputOutputInfo, contract Contract) error {
	if len(inputs) != 1 || len(outputs) != 1 {
		return fmt.Errorf("%w: model has %d inputs and %d outputs, expected one of each",
			ErrShapeMismatch, len(inputs), len(outputs))
	}
	for _, info := range []ort.InputOutputInfo{inputs[0], outputs[0]} {
		if info.DataType != ort.TensorElementDataTypeFloat {
			return fmt.Errorf("%w: %s is %v, expected float32", ErrShapeMismatch, info.Name, info.DataType)
		}
	}
	if err := contract.CheckInput(inputs[0].Dimensions); err != nil {
		return err
	}
	return contract.CheckOutput(outputs[0].Dimensions)
}

func (s *Server) Ready() bool { return true }

// Infer runs the model on t and returns a copy of the output scores.
func (s *Server) Infer(ctx context.Context, t Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !slices.Equal(t.Shape, []int64(s.inputShape)) {
		return nil, fmt.Errorf("%w: tensor %v, expected %v", ErrShapeMismatch, t.Shape, s.inputShape)
	}

	inputTensor, err := ort.NewTensor(s.inputShape, t.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](s.outputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := s.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return slices.Clone(outputTensor.GetData()), nil
}

func (s *Server) Close() {
	if s.session != nil {
		s.session.Destroy()
	}
	ort.DestroyEnvironment()
}
