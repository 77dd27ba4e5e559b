package opencv

import (
	"image"
	"image/color"

	"github.com/nvr-ai/go-objdetect/common"
	"github.com/nvr-ai/go-objdetect/models"
	"github.com/nvr-ai/go-objdetect/render"
	"gocv.io/x/gocv"
)

var (
	boxColor   = color.RGBA{G: 255}
	labelColor = color.RGBA{}
	labelBG    = color.RGBA{R: 255, G: 255, B: 255}
)

const (
	labelFont     = gocv.FontItalic
	measureScale  = 0.5
	labelScale    = 0.75
	textThickness = 1
)

// Annotate draws boxes over a clone of mat with the OpenCV drawing functions.
// Label placement matches render.Image; the glyphs differ.
//
// Arguments:
//   - mat: A BGR image; it is not modified.
//   - boxes: The detections to draw.
//   - names: The class-name table.
//
// Returns:
//   - gocv.Mat: The annotated clone; the caller closes it.
//   - error: models.ErrUnknownClass for a box whose class has no name.
func Annotate(mat gocv.Mat, boxes []common.BoundingBox, names models.ClassNames) (gocv.Mat, error) {
	out := mat.Clone()
	bounds := image.Rect(0, 0, out.Cols(), out.Rows())

	for _, box := range boxes {
		label, err := render.Label(box, names)
		if err != nil {
			out.Close()
			return gocv.Mat{}, err
		}

		gocv.Rectangle(&out, box.ROI, boxColor, render.BoxThickness)

		size, baseline := gocv.GetTextSizeWithBaseline(label, labelFont, measureScale, textThickness)
		dot, bg := render.LabelBox(box.ROI, size, baseline, bounds)
		if !bg.Empty() {
			gocv.Rectangle(&out, bg, labelBG, -1)
		}
		gocv.PutText(&out, label, dot, labelFont, labelScale, labelColor, textThickness)
	}

	return out, nil
}
