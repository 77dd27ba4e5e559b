// Package preprocess - Conversion of images into network input tensors.
package preprocess

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrInvalidImage is returned for nil or empty input images.
var ErrInvalidImage = errors.New("invalid image")

// Preprocessor converts an image into the 4-D blob a network consumes.
type Preprocessor interface {
	// MakeTensor returns a float32 tensor of shape (1, 3, H, W).
	MakeTensor(img image.Image) (*tensor.Dense, error)
}

// BlobOptions mirrors the parameters of OpenCV's blobFromImage.
type BlobOptions struct {
	// Size is the spatial size of the blob (width, height).
	Size image.Point `json:"size" yaml:"size"`
	// ScaleFactor multiplies every value after mean subtraction.
	ScaleFactor float64 `json:"scale_factor" yaml:"scale_factor"`
	// Mean is subtracted per channel, in output channel order.
	Mean [3]float64 `json:"mean" yaml:"mean"`
	// SwapRB emits RGB instead of the default BGR order.
	SwapRB bool `json:"swap_rb" yaml:"swap_rb"`
	// Crop resizes with the aspect ratio preserved and crops the center;
	// otherwise the image is stretched to Size.
	Crop bool `json:"crop" yaml:"crop"`
}

// DefaultBlobOptions returns the options used by darknet YOLOv3 models: a
// 416x416 blob scaled to [0, 1] with no mean, swap or crop.
func DefaultBlobOptions() BlobOptions {
	return BlobOptions{
		Size:        image.Pt(416, 416),
		ScaleFactor: 1.0 / 255.0,
	}
}

// Validate reports whether the options can produce a blob.
func (o BlobOptions) Validate() error {
	if o.Size.X <= 0 || o.Size.Y <= 0 {
		return errors.Errorf("invalid blob size %dx%d", o.Size.X, o.Size.Y)
	}
	return nil
}

// Blob is the pure-Go Preprocessor.
//
// Channels are emitted in BGR order, as OpenCV reads images, so channel 0 is
// blue unless SwapRB is set. Alpha is ignored.
type Blob struct {
	Options BlobOptions
}

// NewBlob returns a Blob preprocessor for options.
//
// Arguments:
//   - options: The blob parameters.
//
// Returns:
//   - *Blob: The preprocessor.
//   - error: If the options are invalid.
//
// @example
// pre, err := NewBlob(DefaultBlobOptions())
//
//	if err != nil {
//	    return err
//	}
//
// blob, err := pre.MakeTensor(img)
func NewBlob(options BlobOptions) (*Blob, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return &Blob{Options: options}, nil
}

// MakeTensor resizes img and packs it into an NCHW float32 tensor.
//
// Arguments:
//   - img: The source image; it is not modified.
//
// Returns:
//   - *tensor.Dense: The (1, 3, H, W) blob.
//   - error: ErrInvalidImage for a nil or empty image.
func (b *Blob) MakeTensor(img image.Image) (*tensor.Dense, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrInvalidImage
	}
	if err := b.Options.Validate(); err != nil {
		return nil, err
	}

	resized := b.resize(img)
	width, height := b.Options.Size.X, b.Options.Size.Y
	plane := width * height
	data := make([]float32, 3*plane)

	// Source channel feeding each output channel.
	src := [3]int{2, 1, 0}
	if b.Options.SwapRB {
		src = [3]int{0, 1, 2}
	}
	scale := b.Options.ScaleFactor
	mean := b.Options.Mean

	for y := 0; y < height; y++ {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+width*4]
		for x := 0; x < width; x++ {
			px := row[x*4 : x*4+3]
			offset := y*width + x
			for c := 0; c < 3; c++ {
				data[c*plane+offset] = float32((float64(px[src[c]]) - mean[c]) * scale)
			}
		}
	}

	return tensor.New(tensor.WithShape(1, 3, height, width), tensor.WithBacking(data)), nil
}

// resize returns img at the blob size as a zero-origin NRGBA image.
func (b *Blob) resize(img image.Image) *image.NRGBA {
	width, height := b.Options.Size.X, b.Options.Size.Y
	bounds := img.Bounds()

	switch {
	case b.Options.Crop:
		return imaging.Fill(img, width, height, imaging.Center, imaging.Linear)
	case bounds.Dx() == width && bounds.Dy() == height:
		return imaging.Clone(img)
	default:
		return imaging.Clone(resize.Resize(uint(width), uint(height), img, resize.Bilinear))
	}
}
