package opencv

import (
	"context"
	"image"

	"github.com/nvr-ai/go-objdetect/common"
	"github.com/nvr-ai/go-objdetect/models"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Window shows annotated detections in a HighGUI window.
type Window struct {
	// Name is the window title.
	Name string
	// Delay is passed to WaitKey in milliseconds; 0 waits for a key press.
	Delay int
}

// Show annotates img and displays it until a key is pressed or Delay elapses.
// The window is destroyed before Show returns.
func (w Window) Show(ctx context.Context, img image.Image, boxes []common.BoundingBox, names models.ClassNames) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return errors.Wrap(err, "convert image")
	}
	defer mat.Close()

	annotated, err := Annotate(mat, boxes, names)
	if err != nil {
		return err
	}
	defer annotated.Close()

	name := w.Name
	if name == "" {
		name = "detections"
	}
	window := gocv.NewWindow(name)
	defer window.Close()

	window.IMShow(annotated)
	window.WaitKey(w.Delay)
	return nil
}
