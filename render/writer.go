package render

import (
	"context"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-objdetect/common"
	"github.com/nvr-ai/go-objdetect/models"
	"github.com/pkg/errors"
)

// PNGWriter writes the annotated image to Path instead of opening a window.
// It is the headless visualizer.
type PNGWriter struct {
	Path string
}

// Show renders boxes over img and writes the result as PNG.
func (w PNGWriter) Show(ctx context.Context, img image.Image, boxes []common.BoundingBox, names models.ClassNames) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.Path == "" {
		return errors.New("png writer needs a path")
	}

	out, err := Image(img, boxes, names)
	if err != nil {
		return err
	}

	f, err := os.Create(w.Path)
	if err != nil {
		return errors.Wrapf(err, "create %s", w.Path)
	}
	if err := imaging.Encode(f, out, imaging.PNG); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", w.Path)
	}
	return errors.Wrapf(f.Close(), "close %s", w.Path)
}
