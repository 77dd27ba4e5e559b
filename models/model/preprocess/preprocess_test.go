package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// uniformImage returns a w x h image filled with c.
func uniformImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// at returns blob[0, c, y, x].
func at(t *testing.T, blob *tensor.Dense, c, y, x int) float32 {
	t.Helper()
	v, err := blob.At(0, c, y, x)
	require.NoError(t, err)
	return v.(float32)
}

func TestDefaultBlobOptions(t *testing.T) {
	opts := DefaultBlobOptions()
	assert.Equal(t, image.Pt(416, 416), opts.Size)
	assert.InDelta(t, 1.0/255.0, opts.ScaleFactor, 1e-12)
	assert.Equal(t, [3]float64{}, opts.Mean)
	assert.False(t, opts.SwapRB)
	assert.False(t, opts.Crop)
	assert.NoError(t, opts.Validate())
}

func TestBlob_MakeTensor_Shape(t *testing.T) {
	pre, err := NewBlob(BlobOptions{Size: image.Pt(32, 16), ScaleFactor: 1.0 / 255.0})
	require.NoError(t, err)

	blob, err := pre.MakeTensor(uniformImage(64, 48, color.NRGBA{R: 255, A: 255}))
	require.NoError(t, err, "MakeTensor should succeed with a valid image")

	assert.Equal(t, tensor.Shape{1, 3, 16, 32}, blob.Shape())
	assert.Equal(t, tensor.Float32, blob.Dtype())
	assert.Len(t, blob.Data().([]float32), 3*16*32)
}

func TestBlob_MakeTensor_Values(t *testing.T) {
	tests := []struct {
		name     string
		options  BlobOptions
		expected [3]float32
	}{
		{
			name:     "scaled to unit range in BGR order",
			options:  BlobOptions{Size: image.Pt(4, 4), ScaleFactor: 1.0 / 255.0},
			expected: [3]float32{30.0 / 255.0, 20.0 / 255.0, 10.0 / 255.0},
		},
		{
			name:     "swap to RGB order",
			options:  BlobOptions{Size: image.Pt(4, 4), ScaleFactor: 1, SwapRB: true},
			expected: [3]float32{10, 20, 30},
		},
		{
			name:     "mean subtracted before scaling",
			options:  BlobOptions{Size: image.Pt(4, 4), ScaleFactor: 0.5, Mean: [3]float64{10, 10, 10}},
			expected: [3]float32{10, 5, 0},
		},
	}

	img := uniformImage(4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pre, err := NewBlob(tt.options)
			require.NoError(t, err)

			blob, err := pre.MakeTensor(img)
			require.NoError(t, err)

			for c := 0; c < 3; c++ {
				assert.InDelta(t, tt.expected[c], at(t, blob, c, 0, 0), 1e-6, "channel %d", c)
				assert.InDelta(t, tt.expected[c], at(t, blob, c, 3, 3), 1e-6, "channel %d", c)
			}
		})
	}
}

func TestBlob_MakeTensor_Stretch(t *testing.T) {
	pre, err := NewBlob(BlobOptions{Size: image.Pt(16, 16), ScaleFactor: 1})
	require.NoError(t, err)

	blob, err := pre.MakeTensor(uniformImage(40, 10, color.NRGBA{R: 100, G: 150, B: 200, A: 255}))
	require.NoError(t, err)

	for _, v := range [][2]int{{0, 0}, {8, 8}, {15, 15}} {
		assert.InDelta(t, 200, at(t, blob, 0, v[0], v[1]), 1)
		assert.InDelta(t, 150, at(t, blob, 1, v[0], v[1]), 1)
		assert.InDelta(t, 100, at(t, blob, 2, v[0], v[1]), 1)
	}
}

func TestBlob_MakeTensor_CenterCrop(t *testing.T) {
	// 8x4 image whose red channel encodes the column.
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), A: 255})
		}
	}

	pre, err := NewBlob(BlobOptions{Size: image.Pt(4, 4), ScaleFactor: 1, Crop: true})
	require.NoError(t, err)

	blob, err := pre.MakeTensor(img)
	require.NoError(t, err)

	// The center four columns (2..5) survive.
	for x := 0; x < 4; x++ {
		assert.InDelta(t, float32((x+2)*30), at(t, blob, 2, 1, x), 1, "column %d", x)
	}
}

func TestBlob_MakeTensor_SubImage(t *testing.T) {
	base := uniformImage(10, 10, color.NRGBA{G: 255, A: 255})
	sub := base.SubImage(image.Rect(3, 3, 7, 7))

	pre, err := NewBlob(BlobOptions{Size: image.Pt(4, 4), ScaleFactor: 1.0 / 255.0})
	require.NoError(t, err)

	blob, err := pre.MakeTensor(sub)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, at(t, blob, 1, 0, 0), 1e-6)
	assert.InDelta(t, 0.0, at(t, blob, 0, 0, 0), 1e-6)
}

func TestBlob_MakeTensor_DoesNotMutateInput(t *testing.T) {
	img := uniformImage(8, 8, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	before := append([]uint8(nil), img.Pix...)

	pre, err := NewBlob(DefaultBlobOptions())
	require.NoError(t, err)
	_, err = pre.MakeTensor(img)
	require.NoError(t, err)

	assert.Equal(t, before, img.Pix)
}

func TestBlob_MakeTensor_InvalidImage(t *testing.T) {
	pre, err := NewBlob(DefaultBlobOptions())
	require.NoError(t, err)

	for name, img := range map[string]image.Image{
		"nil":   nil,
		"empty": image.NewNRGBA(image.Rect(0, 0, 0, 0)),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := pre.MakeTensor(img)
			assert.True(t, errors.Is(err, ErrInvalidImage), "got %v", err)
		})
	}
}

func TestNewBlob_InvalidSize(t *testing.T) {
	_, err := NewBlob(BlobOptions{Size: image.Pt(0, 416), ScaleFactor: 1})
	assert.Error(t, err)

	_, err = NewBlob(BlobOptions{Size: image.Pt(416, -1), ScaleFactor: 1})
	assert.Error(t, err)
}
