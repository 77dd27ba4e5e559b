// Package detector - Object detection over a long-lived inference engine.
package detector

import (
	"context"
	"image"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-objdetect/common"
	"github.com/nvr-ai/go-objdetect/inference"
	"github.com/nvr-ai/go-objdetect/models"
	"github.com/nvr-ai/go-objdetect/models/model/preprocess"
	"github.com/nvr-ai/go-objdetect/models/postprocess"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrClosed is returned by Detect after Close.
var ErrClosed = errors.New("detector is closed")

// Visualizer displays detections. Failures never affect the detections
// returned by Detect.
type Visualizer interface {
	Show(ctx context.Context, img image.Image, boxes []common.BoundingBox, names models.ClassNames) error
}

// Detector turns images into labeled, non-overlapping boxes.
//
// It owns its engine and is safe for concurrent use.
type Detector struct {
	mu     sync.RWMutex
	closed bool

	engine       inference.Engine
	profiled     *inference.ProfiledEngine
	classes      models.ClassNames
	config       Config
	preprocessor preprocess.Preprocessor
	suppressor   postprocess.Suppressor
	visualizer   Visualizer
	logger       *zap.Logger
	profile      bool
}

// New builds a detector around an engine. The detector takes ownership of
// engine and closes it in Close.
//
// Arguments:
//   - engine: The inference engine.
//   - classes: The class-name table; its length bounds the class channels.
//   - config: Thresholds and blob options; Topology, Weights and Classes are
//     not read.
//   - opts: Optional overrides.
//
// Returns:
//   - *Detector: The detector.
//   - error: If the config is invalid.
func New(engine inference.Engine, classes models.ClassNames, config Config, opts ...Option) (*Detector, error) {
	if engine == nil {
		return nil, errors.New("nil engine")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		engine:     engine,
		classes:    classes,
		config:     config,
		suppressor: postprocess.NewSuppressor(postprocess.NMSConfig{IoUThreshold: config.NMSThreshold, ClassAware: config.ClassAware}),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.preprocessor == nil {
		blob, err := preprocess.NewBlob(config.Blob)
		if err != nil {
			return nil, err
		}
		d.preprocessor = blob
	}
	if d.profile {
		d.profiled = inference.NewProfiledEngine(engine)
		d.engine = d.profiled
	}

	return d, nil
}

// Open loads the class names and model files named by config and builds the
// engine they describe.
//
// Returns:
//   - *Detector: The detector.
//   - error: inference.ErrResource for unreadable model files, or a config
//     or construction error.
//
// @example
// d, err := detector.Open(config, detector.WithLogger(logger))
//
//	if err != nil {
//	    return err
//	}
//
// defer d.Close()
// boxes, err := d.Detect(ctx, img)
func Open(config Config, opts ...Option) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	classes := models.ClassNames{}
	if config.Classes != "" {
		var err error
		if classes, err = models.LoadClassNames(config.Classes); err != nil {
			return nil, err
		}
	}

	engine, err := inference.NewEngineBuilder().
		WithType(config.Engine).
		WithFiles(config.Topology, config.Weights).
		WithOptions(config.Inference).
		Build()
	if err != nil {
		return nil, err
	}

	d, err := New(engine, classes, config, opts...)
	if err != nil {
		return nil, multierr.Append(err, engine.Close())
	}
	return d, nil
}

// Detect runs one detection call on img.
//
// Box coordinates are in pixels relative to the top-left corner of img.
//
// Arguments:
//   - ctx: Bounds the engine call.
//   - img: The source image; it is not modified.
//
// Returns:
//   - []common.BoundingBox: Boxes in descending confidence order with BoxIDs
//     0..N-1; empty, not nil, when nothing is found.
//   - error: ErrClosed, preprocess.ErrInvalidImage, an engine error or
//     postprocess.ErrMalformedTensor.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]common.BoundingBox, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}

	if img == nil || img.Bounds().Empty() {
		return nil, preprocess.ErrInvalidImage
	}

	callID := uuid.New()
	start := time.Now()

	blob, err := d.preprocessor.MakeTensor(img)
	if err != nil {
		return nil, errors.Wrap(err, "preprocess")
	}

	outputs, err := d.engine.Forward(ctx, blob)
	if err != nil {
		return nil, errors.Wrap(err, "forward")
	}

	bounds := img.Bounds()
	boxes, candidates, err := postprocess.Process(
		outputs,
		bounds.Dx(), bounds.Dy(), d.classes.Len(),
		d.config.ConfThreshold, d.config.NMSThreshold,
		d.suppressor,
	)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("detection",
		zap.String("call_id", callID.String()),
		zap.Int("candidates", candidates),
		zap.Int("kept", len(boxes)),
		zap.Duration("elapsed", time.Since(start)))

	if d.visualizer != nil {
		if err := d.visualizer.Show(ctx, img, boxes, d.classes); err != nil {
			d.logger.Warn("visualization failed",
				zap.String("call_id", callID.String()),
				zap.Error(err))
		}
	}

	return boxes, nil
}

// Classes returns the class-name table.
func (d *Detector) Classes() models.ClassNames { return d.classes }

// OutputNames returns the engine output layer names.
func (d *Detector) OutputNames() []string { return d.engine.OutputNames() }

// Metrics returns engine latency statistics when WithProfiling was set.
func (d *Detector) Metrics() (inference.Metrics, bool) {
	if d.profiled == nil {
		return inference.Metrics{}, false
	}
	return d.profiled.Metrics(), true
}

// Close releases the engine and any visualizer that implements io.Closer.
// Later calls return nil.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	err := d.engine.Close()
	if c, ok := d.visualizer.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}
