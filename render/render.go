// Package render - Drawing of detections over images.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-objdetect/common"
	"github.com/nvr-ai/go-objdetect/models"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Colors and stroke used for every box.
var (
	BoxColor        = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	LabelBackground = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	LabelColor      = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// BoxThickness is the outline width in pixels.
const BoxThickness = 2

// Label returns the text drawn for a box, e.g. "person:0.90".
//
// Arguments:
//   - box: The detection.
//   - names: The class-name table.
//
// Returns:
//   - string: The label.
//   - error: models.ErrUnknownClass if the class id has no name.
func Label(box common.BoundingBox, names models.ClassNames) (string, error) {
	name, err := names.Name(box.ClassID)
	if err != nil {
		return "", errors.Wrapf(err, "box %d", box.BoxID)
	}
	return fmt.Sprintf("%s:%.2f", name, box.Confidence), nil
}

// LabelBox places a label above the top-left corner of roi.
//
// The text baseline is moved down to fit the text height when the box touches
// the top edge. The background spans 1.5 times the text extent above the
// baseline and the baseline offset below it, clipped to bounds.
//
// Arguments:
//   - roi: The detection rectangle.
//   - text: Width and height of the rendered text above the baseline.
//   - baseline: Descent of the text below the baseline.
//   - bounds: The image bounds.
//
// Returns:
//   - image.Point: The left end of the text baseline.
//   - image.Rectangle: The clipped background rectangle.
func LabelBox(roi image.Rectangle, text image.Point, baseline int, bounds image.Rectangle) (image.Point, image.Rectangle) {
	left := roi.Min.X
	top := max(roi.Min.Y, text.Y)

	bg := image.Rect(
		left,
		top-int(math32.Round(1.5*float32(text.Y))),
		left+int(math32.Round(1.5*float32(text.X))),
		top+baseline,
	)
	return image.Pt(left, top), bg.Intersect(bounds)
}

// Image draws boxes over a copy of img.
//
// Each box gets a green outline and a "<name>:<confidence>" label in black on
// a white background. Box coordinates are relative to the top-left corner of
// img. The input image is never modified.
//
// Arguments:
//   - img: The source image.
//   - boxes: The detections to draw.
//   - names: The class-name table.
//
// Returns:
//   - *image.NRGBA: The annotated copy.
//   - error: models.ErrUnknownClass for a box whose class has no name.
//
// @example
// annotated, err := render.Image(img, boxes, models.COCONames())
//
//	if err != nil {
//	    return err
//	}
//
// err = imaging.Save(annotated, "out.png")
func Image(img image.Image, boxes []common.BoundingBox, names models.ClassNames) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	out := imaging.Clone(img)
	bounds := out.Bounds()
	face := basicfont.Face7x13
	metrics := face.Metrics()

	for _, box := range boxes {
		label, err := Label(box, names)
		if err != nil {
			return nil, err
		}

		outline(out, box.ROI, BoxThickness, BoxColor)

		text := image.Pt(font.MeasureString(face, label).Ceil(), metrics.Ascent.Ceil())
		dot, bg := LabelBox(box.ROI, text, metrics.Descent.Ceil(), bounds)
		draw.Draw(out, bg, image.NewUniform(LabelBackground), image.Point{}, draw.Src)

		d := &font.Drawer{
			Dst:  out,
			Src:  image.NewUniform(LabelColor),
			Face: face,
			Dot:  fixed.P(dot.X, dot.Y),
		}
		d.DrawString(label)
	}

	return out, nil
}

// outline draws a rectangle border of the given thickness inside r.
func outline(dst draw.Image, r image.Rectangle, thickness int, c color.Color) {
	r = r.Canon()
	src := image.NewUniform(c)
	strips := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, s := range strips {
		draw.Draw(dst, s.Intersect(r).Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}
