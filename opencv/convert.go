package opencv

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

// TensorToMat copies a float32 tensor into an n-dimensional CV_32F Mat.
//
// Arguments:
//   - t: The tensor; its shape becomes the Mat sizes.
//
// Returns:
//   - gocv.Mat: The Mat; the caller closes it.
//   - error: If t is nil or not float32.
func TensorToMat(t *tensor.Dense) (gocv.Mat, error) {
	if t == nil {
		return gocv.Mat{}, errors.New("nil tensor")
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return gocv.Mat{}, errors.Errorf("tensor dtype %v, want float32", t.Dtype())
	}

	mat := gocv.NewMatWithSizes([]int(t.Shape()), gocv.MatTypeCV32F)
	dst, err := mat.DataPtrFloat32()
	if err != nil {
		mat.Close()
		return gocv.Mat{}, errors.Wrap(err, "access mat data")
	}
	if len(dst) != len(data) {
		mat.Close()
		return gocv.Mat{}, errors.Errorf("mat holds %d values, tensor %d", len(dst), len(data))
	}
	copy(dst, data)
	return mat, nil
}

// MatToTensor copies a CV_32F Mat into a tensor with the Mat's sizes.
//
// Arguments:
//   - m: The Mat; it is not retained.
//
// Returns:
//   - *tensor.Dense: The tensor.
//   - error: If m is empty or not CV_32F.
func MatToTensor(m gocv.Mat) (*tensor.Dense, error) {
	if m.Empty() {
		return nil, errors.New("empty mat")
	}
	if m.Type() != gocv.MatTypeCV32F {
		return nil, errors.Errorf("mat type %v, want CV_32F", m.Type())
	}

	src, err := m.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "access mat data")
	}
	data := make([]float32, len(src))
	copy(data, src)

	return tensor.New(tensor.WithShape(m.Size()...), tensor.WithBacking(data)), nil
}
