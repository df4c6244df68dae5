package model

import "errors"

var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrInvalidOutput = errors.New("invalid model output")
)

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

type Prediction struct {
	ClassID    int     `json:"class_id"`
	Confidence float32 `json:"confidence"`
}

type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// Contract is what the service expects of the loaded model: NHWC input of
// [1, ImageSize, ImageSize, Channels] and a [1, NumClasses] probability output.
type Contract struct {
	ImageSize  int
	Channels   int
	NumClasses int
}

func (c Contract) InputShape() []int64 {
	return []int64{1, int64(c.ImageSize), int64(c.ImageSize), int64(c.Channels)}
}

func (c Contract) OutputShape() []int64 {
	return []int64{1, int64(c.NumClasses)}
}
