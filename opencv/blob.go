package opencv

import (
	"image"

	"github.com/nvr-ai/go-objdetect/models/model/preprocess"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

// BlobPreprocessor builds blobs with OpenCV's blobFromImage.
//
// Images are converted to BGR Mats first, so with SwapRB unset the network
// sees BGR input as it would from an image read by OpenCV.
type BlobPreprocessor struct {
	Options preprocess.BlobOptions
}

// NewBlobPreprocessor returns a preprocessor for options.
func NewBlobPreprocessor(options preprocess.BlobOptions) (*BlobPreprocessor, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return &BlobPreprocessor{Options: options}, nil
}

// MakeTensor converts img into a (1, 3, H, W) blob.
func (p *BlobPreprocessor) MakeTensor(img image.Image) (*tensor.Dense, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, preprocess.ErrInvalidImage
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, errors.Wrap(preprocess.ErrInvalidImage, err.Error())
	}
	defer mat.Close()

	return p.MakeTensorFromMat(mat)
}

// MakeTensorFromMat converts a BGR Mat into a (1, 3, H, W) blob.
func (p *BlobPreprocessor) MakeTensorFromMat(mat gocv.Mat) (*tensor.Dense, error) {
	if mat.Empty() {
		return nil, preprocess.ErrInvalidImage
	}
	o := p.Options
	mean := gocv.NewScalar(o.Mean[0], o.Mean[1], o.Mean[2], 0)

	blob := gocv.BlobFromImage(mat, o.ScaleFactor, o.Size, mean, o.SwapRB, o.Crop)
	defer blob.Close()

	return MatToTensor(blob)
}
