package model

import (
	"context"
	"fmt"
	"math"
)

// probabilityTolerance absorbs float32 rounding in softmax outputs.
const probabilityTolerance = 1e-4

// Predictor runs a single forward pass over a preprocessed image.
type Predictor interface {
	Ready() bool
	Infer(ctx context.Context, t Tensor) ([]float32, error)
	Close()
}

// Unavailable is the predictor used when no model artifact was found at startup.
type Unavailable struct{}

func (Unavailable) Ready() bool { return false }

func (Unavailable) Infer(context.Context, Tensor) ([]float32, error) {
	return nil, ErrModelUnavailable
}

func (Unavailable) Close() {}

// Top picks the most probable class. Ties go to the lowest index.
func Top(probs []float32, numClasses int) (Prediction, error) {
	if len(probs) != numClasses {
		return Prediction{}, fmt.Errorf("%w: got %d scores, expected %d", ErrInvalidOutput, len(probs), numClasses)
	}

	maxIdx := 0
	for i, p := range probs {
		if math.IsNaN(float64(p)) || p < -probabilityTolerance || p > 1+probabilityTolerance {
			return Prediction{}, fmt.Errorf("%w: score %v at index %d is not a probability", ErrInvalidOutput, p, i)
		}
		if p > probs[maxIdx] {
			maxIdx = i
		}
	}

	confidence := probs[maxIdx]
	confidence = max(0, min(1, confidence))

	return Prediction{ClassID: maxIdx, Confidence: confidence}, nil
}
