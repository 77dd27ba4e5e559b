package postprocess

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const (
	// GeometryChannels is the number of leading box channels (cx, cy, w, h).
	GeometryChannels = 4
	// ScoreOffset is the first class-score channel. Channel 4 holds the
	// objectness score, which the decoder does not read.
	ScoreOffset = GeometryChannels + 1
)

// ErrMalformedTensor is returned when an output tensor does not have the
// shape the decoder expects.
var ErrMalformedTensor = errors.New("malformed output tensor")

// Rows is a bounds-checked row view over one raw output tensor.
//
// The last axis holds the channels of a prediction; every leading axis (batch,
// grid cell, anchor) is flattened into rows.
type Rows struct {
	data []float32
	rows int
	cols int
}

// NewRows validates t and returns a row view over its backing data.
//
// Arguments:
//   - t: A float32 tensor with at least one axis.
//
// Returns:
//   - Rows: The row view.
//   - error: ErrMalformedTensor if t is nil, not float32, or has no axes.
func NewRows(t *tensor.Dense) (Rows, error) {
	if t == nil {
		return Rows{}, errors.Wrap(ErrMalformedTensor, "nil tensor")
	}
	if t.Dtype() != tensor.Float32 {
		return Rows{}, errors.Wrapf(ErrMalformedTensor, "dtype %v, want float32", t.Dtype())
	}

	shape := t.Shape()
	if len(shape) == 0 {
		return Rows{}, errors.Wrap(ErrMalformedTensor, "scalar tensor")
	}

	cols := shape[len(shape)-1]
	rows := 1
	for _, d := range shape[:len(shape)-1] {
		rows *= d
	}
	// Data panics on a zero-size tensor.
	if rows*cols == 0 {
		return Rows{cols: cols}, nil
	}

	data, ok := t.Data().([]float32)
	if !ok {
		return Rows{}, errors.Wrapf(ErrMalformedTensor, "backing %T, want []float32", t.Data())
	}
	if rows*cols != len(data) {
		return Rows{}, errors.Wrapf(ErrMalformedTensor, "shape %v does not match %d values", shape, len(data))
	}

	return Rows{data: data, rows: rows, cols: cols}, nil
}

// Len returns the number of prediction rows.
func (r Rows) Len() int { return r.rows }

// Cols returns the number of channels per row.
func (r Rows) Cols() int { return r.cols }

// Row returns the channels of row i. The slice aliases the tensor and must not
// be modified.
func (r Rows) Row(i int) []float32 {
	return r.data[i*r.cols : (i+1)*r.cols : (i+1)*r.cols]
}

// Decode converts raw output tensors into candidates.
//
// For each row, the class with the highest score is selected and the row is
// kept only when that score is strictly greater than confThreshold. Geometry
// channels are fractions of the image size; they are scaled to pixels and
// truncated toward zero before the top-left corner is derived by integer
// halving.
//
// Arguments:
//   - outputs: One tensor per output layer, each (rows x (5 + classes)).
//   - imageWidth, imageHeight: The size of the source image in pixels.
//   - confThreshold: Minimum class score, exclusive.
//   - numClasses: Size of the class-name table; 0 disables the channel check.
//
// Returns:
//   - []Candidate: The candidates in row order, never nil.
//   - error: ErrMalformedTensor if a tensor has fewer than 5 channels or fewer
//     class channels than numClasses.
func Decode(
	outputs []*tensor.Dense,
	imageWidth, imageHeight int,
	confThreshold float32,
	numClasses int,
) ([]Candidate, error) {
	if imageWidth <= 0 || imageHeight <= 0 {
		return nil, errors.Errorf("invalid image size %dx%d", imageWidth, imageHeight)
	}

	fw := float32(imageWidth)
	fh := float32(imageHeight)
	candidates := make([]Candidate, 0)

	for i, output := range outputs {
		rows, err := NewRows(output)
		if err != nil {
			return nil, errors.Wrapf(err, "output %d", i)
		}
		if rows.Cols() < ScoreOffset {
			return nil, errors.Wrapf(ErrMalformedTensor,
				"output %d has %d channels, need at least %d", i, rows.Cols(), ScoreOffset)
		}
		if numClasses > 0 && rows.Cols()-ScoreOffset < numClasses {
			return nil, errors.Wrapf(ErrMalformedTensor,
				"output %d has %d class channels for %d classes", i, rows.Cols()-ScoreOffset, numClasses)
		}

		for j := 0; j < rows.Len(); j++ {
			row := rows.Row(j)
			classID, confidence, ok := argmax(row[ScoreOffset:])
			if !ok || !(confidence > confThreshold) {
				continue
			}
			if !finite(row[:GeometryChannels]) {
				continue
			}

			candidates = append(candidates, Candidate{
				CenterX:    int(row[0] * fw),
				CenterY:    int(row[1] * fh),
				Width:      max(0, int(row[2]*fw)),
				Height:     max(0, int(row[3]*fh)),
				ClassID:    classID,
				Confidence: confidence,
			})
		}
	}

	return candidates, nil
}

// argmax returns the index and value of the first maximum in scores.
func argmax(scores []float32) (int, float32, bool) {
	if len(scores) == 0 {
		return 0, 0, false
	}
	best := 0
	for k := 1; k < len(scores); k++ {
		if scores[k] > scores[best] {
			best = k
		}
	}
	return best, scores[best], true
}

func finite(values []float32) bool {
	for _, v := range values {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}
