package onnx

import (
	"testing"

	"github.com/nvr-ai/go-objdetect/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

func TestRegistered(t *testing.T) {
	assert.Contains(t, inference.Registered(), inference.EngineONNX)
}

func TestNewEngineEmptyModel(t *testing.T) {
	_, err := NewEngine(inference.ModelSource{}, inference.DefaultOptions().Providers, zap.NewNop())
	assert.ErrorIs(t, err, inference.ErrResource)
}

func TestShapes(t *testing.T) {
	assert.Equal(t, ort.NewShape(1, 3, 416, 416), toShape(tensor.Shape{1, 3, 416, 416}))

	s, err := fromShape(ort.NewShape(1, 2535, 85))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2535, 85}, s)

	_, err = fromShape(ort.NewShape(-1, 85))
	assert.Error(t, err)
}

func TestIONames(t *testing.T) {
	in := []ort.InputOutputInfo{{Name: "images"}}
	out := []ort.InputOutputInfo{{Name: "output0"}, {Name: "output1"}}

	input, outputs, err := ioNames(in, out)
	require.NoError(t, err)
	assert.Equal(t, "images", input)
	assert.Equal(t, []string{"output0", "output1"}, outputs)

	tests := []struct {
		name    string
		inputs  []ort.InputOutputInfo
		outputs []ort.InputOutputInfo
	}{
		{"no inputs", nil, out},
		{"two inputs", []ort.InputOutputInfo{{Name: "a"}, {Name: "b"}}, out},
		{"no outputs", in, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ioNames(tt.inputs, tt.outputs)
			assert.ErrorIs(t, err, inference.ErrResource)
		})
	}
}

func TestToValueRejectsBadTensors(t *testing.T) {
	_, err := toValue(nil)
	assert.Error(t, err)

	_, err = toValue(tensor.New(tensor.WithShape(2), tensor.WithBacking([]float64{1, 2})))
	assert.Error(t, err)
}

func TestClosedEngine(t *testing.T) {
	e := &Engine{outputNames: []string{"out"}}
	require.NoError(t, e.Close())
	_, err := e.Forward(t.Context(), tensor.New(tensor.WithShape(1), tensor.WithBacking([]float32{1})))
	assert.Error(t, err)
	assert.Equal(t, []string{"out"}, e.OutputNames())
}
