package main

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-objdetect/common"
	"github.com/nvr-ai/go-objdetect/detector"
	"github.com/nvr-ai/go-objdetect/inference"
	"github.com/nvr-ai/go-objdetect/models"
	"github.com/nvr-ai/go-objdetect/opencv"
	"github.com/nvr-ai/go-objdetect/render"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DetectAction runs one detection and prints one line per box.
func DetectAction(c *cli.Context) error {
	logger, err := newLogger(c.Bool(flagDebug))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	config, err := configFromFlags(c)
	if err != nil {
		return err
	}

	img, err := imaging.Open(c.String(flagImage))
	if err != nil {
		return errors.Wrapf(err, "open image %s", c.String(flagImage))
	}

	opts := []detector.Option{detector.WithLogger(logger), detector.WithProfiling()}
	if v := visualizers(c); len(v) > 0 {
		opts = append(opts, detector.WithVisualizer(v))
	}
	if c.Bool(flagOpenCV) {
		pre, err := opencv.NewBlobPreprocessor(config.Blob)
		if err != nil {
			return err
		}
		opts = append(opts, detector.WithPreprocessor(pre), detector.WithSuppressor(opencv.NMSBoxes{}))
	}

	d, err := detector.Open(config, opts...)
	if err != nil {
		return err
	}
	defer d.Close()

	logger.Debug("model loaded",
		zap.String("engine", string(config.Engine)),
		zap.Strings("outputs", d.OutputNames()),
		zap.Int("classes", d.Classes().Len()))

	ctx := c.Context
	if timeout := c.Duration(flagTimeout); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	boxes, err := d.Detect(ctx, img)
	if err != nil {
		return err
	}

	printBoxes(c.App.Writer, boxes, d.Classes())

	if metrics, ok := d.Metrics(); ok {
		logger.Debug("inference", zap.Duration("forward", metrics.AverageTime()))
	}
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// configFromFlags starts from the config file, if any, and applies the flags
// that were set on the command line.
func configFromFlags(c *cli.Context) (detector.Config, error) {
	config := detector.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		var err error
		if config, err = detector.LoadConfig(path); err != nil {
			return detector.Config{}, err
		}
	}

	if c.IsSet(flagEngine) {
		config.Engine = inference.EngineType(c.String(flagEngine))
	}
	if c.IsSet(flagTopology) {
		config.Topology = c.String(flagTopology)
	}
	if c.IsSet(flagWeights) {
		config.Weights = c.String(flagWeights)
	}
	if c.IsSet(flagClasses) {
		config.Classes = c.String(flagClasses)
	}
	if c.IsSet(flagConf) {
		config.ConfThreshold = float32(c.Float64(flagConf))
	}
	if c.IsSet(flagNMS) {
		config.NMSThreshold = float32(c.Float64(flagNMS))
	}
	if c.IsSet(flagClassAware) {
		config.ClassAware = c.Bool(flagClassAware)
	}

	if config.Topology == "" {
		return detector.Config{}, errors.New("a model topology is required (--topology or config file)")
	}
	return config, config.Validate()
}

// multiVisualizer shows detections through every visualizer in turn.
type multiVisualizer []detector.Visualizer

func (m multiVisualizer) Show(ctx context.Context, img image.Image, boxes []common.BoundingBox, names models.ClassNames) error {
	var err error
	for _, v := range m {
		err = multierr.Append(err, v.Show(ctx, img, boxes, names))
	}
	return err
}

func visualizers(c *cli.Context) multiVisualizer {
	var v multiVisualizer
	if out := c.String(flagOut); out != "" {
		v = append(v, render.PNGWriter{Path: out})
	}
	if c.Bool(flagShow) {
		v = append(v, opencv.Window{Name: c.String(flagImage)})
	}
	return v
}

func printBoxes(w io.Writer, boxes []common.BoundingBox, names models.ClassNames) {
	for _, b := range boxes {
		name, err := names.Name(b.ClassID)
		if err != nil {
			name = fmt.Sprintf("class%d", b.ClassID)
		}
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%d\t%d\t%d\t%d\n",
			b.BoxID, name, b.Confidence, b.X(), b.Y(), b.Width(), b.Height())
	}
}
