package onnx

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

func toShape(s tensor.Shape) ort.Shape {
	out := make(ort.Shape, len(s))
	for i, d := range s {
		out[i] = int64(d)
	}
	return out
}

func fromShape(s ort.Shape) (tensor.Shape, error) {
	out := make(tensor.Shape, len(s))
	for i, d := range s {
		if d < 0 {
			return nil, errors.Errorf("dimension %d is dynamic (%d)", i, d)
		}
		out[i] = int(d)
	}
	return out, nil
}

// toValue copies t into a new ort tensor. The caller destroys it.
func toValue(t *tensor.Dense) (*ort.Tensor[float32], error) {
	if t == nil {
		return nil, errors.New("nil tensor")
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("tensor dtype %v, want float32", t.Dtype())
	}
	buf := make([]float32, len(data))
	copy(buf, data)

	value, err := ort.NewTensor(toShape(t.Shape()), buf)
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	return value, nil
}

// fromValue copies a float32 ort value into a tensor.
func fromValue(v ort.Value) (*tensor.Dense, error) {
	t, ok := v.(*ort.Tensor[float32])
	if !ok {
		return nil, errors.Errorf("output is %T, want float32 tensor", v)
	}
	shape, err := fromShape(t.GetShape())
	if err != nil {
		return nil, err
	}
	src := t.GetData()
	if shape.TotalSize() != len(src) {
		return nil, errors.Errorf("output shape %v does not match %d values", shape, len(src))
	}
	data := make([]float32, len(src))
	copy(data, src)
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)), nil
}
