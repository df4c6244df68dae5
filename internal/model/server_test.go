package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	_ Predictor = (*Server)(nil)
	_ Predictor = Unavailable{}
)

func tensorInfo(name string, dims ...int64) ort.InputOutputInfo {
	return ort.InputOutputInfo{
		Name:       name,
		Dimensions: ort.NewShape(dims...),
		DataType:   ort.TensorElementDataTypeFloat,
	}
}

func TestCheckModelIO(t *testing.T) {
	doubleOutput := tensorInfo("probs", 1, 8)
	doubleOutput.DataType = ort.TensorElementDataTypeDouble

	tests := []struct {
		name    string
		inputs  []ort.InputOutputInfo
		outputs []ort.InputOutputInfo
		wantErr string
	}{
		{
			name:    "exact shapes",
			inputs:  []ort.InputOutputInfo{tensorInfo("input_1", 1, 224, 224, 3)},
			outputs: []ort.InputOutputInfo{tensorInfo("dense", 1, 8)},
		},
		{
			name:    "dynamic batch",
			inputs:  []ort.InputOutputInfo{tensorInfo("input_1", -1, 224, 224, 3)},
			outputs: []ort.InputOutputInfo{tensorInfo("dense", -1, 8)},
		},
		{
			name:    "no outputs",
			inputs:  []ort.InputOutputInfo{tensorInfo("input_1", 1, 224, 224, 3)},
			wantErr: "1 inputs and 0 outputs",
		},
		{
			name: "two inputs",
			inputs: []ort.InputOutputInfo{
				tensorInfo("image", 1, 224, 224, 3),
				tensorInfo("mask", 1, 224, 224, 1),
			},
			outputs: []ort.InputOutputInfo{tensorInfo("dense", 1, 8)},
			wantErr: "2 inputs and 1 outputs",
		},
		{
			name:    "channels first input",
			inputs:  []ort.InputOutputInfo{tensorInfo("input_1", 1, 3, 224, 224)},
			outputs: []ort.InputOutputInfo{tensorInfo("dense", 1, 8)},
			wantErr: "model input",
		},
		{
			name:    "other input size",
			inputs:  []ort.InputOutputInfo{tensorInfo("input_1", 1, 160, 160, 3)},
			outputs: []ort.InputOutputInfo{tensorInfo("dense", 1, 8)},
			wantErr: "model input",
		},
		{
			name:    "wrong class count",
			inputs:  []ort.InputOutputInfo{tensorInfo("input_1", 1, 224, 224, 3)},
			outputs: []ort.InputOutputInfo{tensorInfo("dense", 1, 10)},
			wantErr: "model output",
		},
		{
			name:    "double precision output",
			inputs:  []ort.InputOutputInfo{tensorInfo("input_1", 1, 224, 224, 3)},
			outputs: []ort.InputOutputInfo{doubleOutput},
			wantErr: "expected float32",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkModelIO(tt.inputs, tt.outputs, testContract)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrShapeMismatch)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
