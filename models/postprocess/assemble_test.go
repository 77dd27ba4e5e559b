package postprocess

import (
	"image"
	"testing"

	"github.com/nvr-ai/go-objdetect/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestAssemble(t *testing.T) {
	candidates := []Candidate{
		candidate(0, 0, 10, 10, 3, 0.6),
		candidate(20, 20, 10, 10, 1, 0.9),
		candidate(40, 40, 10, 10, 2, 0.7),
	}

	boxes := Assemble(candidates, []int{1, 2, 0})
	require.Len(t, boxes, 3)

	expected := []common.BoundingBox{
		{ROI: image.Rect(20, 20, 30, 30), ClassID: 1, Confidence: 0.9, BoxID: 0},
		{ROI: image.Rect(40, 40, 50, 50), ClassID: 2, Confidence: 0.7, BoxID: 1},
		{ROI: image.Rect(0, 0, 10, 10), ClassID: 3, Confidence: 0.6, BoxID: 2},
	}
	assert.Equal(t, expected, boxes)
}

func TestAssemble_Empty(t *testing.T) {
	boxes := Assemble(nil, nil)
	assert.NotNil(t, boxes)
	assert.Empty(t, boxes)
}

func TestAssemble_PanicsOnBadIndex(t *testing.T) {
	candidates := []Candidate{candidate(0, 0, 10, 10, 0, 0.9)}
	assert.Panics(t, func() { Assemble(candidates, []int{1}) })
	assert.Panics(t, func() { Assemble(candidates, []int{-1}) })
}

func TestProcess_DuplicatePair(t *testing.T) {
	// Two 0.9/0.8 detections of the same object, one per class.
	out := output(t,
		row(0.5, 0.5, 0.2, 0.2, 0.9, 0.0),
		row(0.505, 0.5, 0.2, 0.2, 0.0, 0.8),
	)

	boxes, count, err := Process([]*tensor.Dense{out}, 100, 100, 2, 0.5, 0.4, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, boxes, 1)
	assert.Equal(t, 0, boxes[0].BoxID)
	assert.Equal(t, 0, boxes[0].ClassID)
	assert.Equal(t, float32(0.9), boxes[0].Confidence)

	boxes, _, err = Process([]*tensor.Dense{out}, 100, 100, 2, 0.5, 0.4, &GreedySuppressor{ClassAware: true})
	require.NoError(t, err)
	assert.Len(t, boxes, 2)
}

func TestProcess_InvariantsAndIdempotence(t *testing.T) {
	out := output(t,
		row(0.10, 0.10, 0.10, 0.10, 0.9, 0.1, 0.0),
		row(0.11, 0.10, 0.10, 0.10, 0.8, 0.1, 0.0),
		row(0.50, 0.50, 0.30, 0.30, 0.1, 0.7, 0.2),
		row(0.52, 0.52, 0.30, 0.30, 0.1, 0.1, 0.65),
		row(0.90, 0.90, 0.05, 0.05, 0.2, 0.2, 0.2),
		row(0.80, 0.20, 0.10, 0.20, 0.0, 0.0, 0.55),
	)
	outputs := []*tensor.Dense{out}

	first, _, err := Process(outputs, 640, 480, 3, 0.5, 0.4, nil)
	require.NoError(t, err)
	second, _, err := Process(outputs, 640, 480, 3, 0.5, 0.4, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for i, a := range first {
		assert.Equal(t, i, a.BoxID)
		assert.Greater(t, a.Confidence, float32(0.5))
		for _, b := range first[i+1:] {
			assert.LessOrEqual(t, a.IoU(&b), float32(0.4))
		}
	}
}

func TestProcess_NothingAboveThreshold(t *testing.T) {
	out := output(t, row(0.5, 0.5, 0.2, 0.2, 0.1, 0.2))

	boxes, count, err := Process([]*tensor.Dense{out}, 100, 100, 2, 0.5, 0.4, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NotNil(t, boxes)
	assert.Empty(t, boxes)
}

func TestProcess_ZeroRows(t *testing.T) {
	out := tensor.New(tensor.WithShape(0, 85), tensor.WithBacking([]float32{}))

	boxes, count, err := Process([]*tensor.Dense{out}, 100, 100, 80, 0.5, 0.4, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NotNil(t, boxes)
	assert.Empty(t, boxes)
}

func TestProcess_DecodeError(t *testing.T) {
	out := output(t, row(0.5, 0.5, 0.2, 0.2, 0.9))

	boxes, _, err := Process([]*tensor.Dense{out}, 100, 100, 80, 0.5, 0.4, nil)
	assert.Error(t, err)
	assert.Nil(t, boxes)
}
