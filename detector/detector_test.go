package detector

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nvr-ai/go-objdetect/common"
	"github.com/nvr-ai/go-objdetect/inference"
	"github.com/nvr-ai/go-objdetect/models"
	"github.com/nvr-ai/go-objdetect/models/model/preprocess"
	"github.com/nvr-ai/go-objdetect/models/postprocess"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorgonia.org/tensor"
)

const fakeEngineType inference.EngineType = "fake"

var (
	openedMu sync.Mutex
	opened   []*fakeEngine
)

func init() {
	inference.Register(fakeEngineType, func(src inference.ModelSource, _ inference.Options) (inference.Engine, error) {
		e := &fakeEngine{outputs: sceneOutputs()}
		openedMu.Lock()
		opened = append(opened, e)
		openedMu.Unlock()
		return e, nil
	})
}

type fakeEngine struct {
	mu       sync.Mutex
	outputs  []*tensor.Dense
	err      error
	closeErr error
	shapes   []tensor.Shape
	closed   int
}

func (e *fakeEngine) Forward(ctx context.Context, blob *tensor.Dense) ([]*tensor.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shapes = append(e.shapes, blob.Shape().Clone())
	if e.err != nil {
		return nil, e.err
	}
	return e.outputs, nil
}

func (e *fakeEngine) OutputNames() []string { return []string{"yolo_82"} }

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed++
	return e.closeErr
}

// sceneOutputs holds, for a 100x200 image, a person at (40,60)-(60,140), a
// car with the same geometry and lower score, a second person at
// (0,0)-(25,50) and one row below every threshold.
func sceneOutputs() []*tensor.Dense {
	data := []float32{
		0.5, 0.5, 0.2, 0.4, 0, 0.9, 0.1,
		0.5, 0.5, 0.2, 0.4, 0, 0.1, 0.8,
		0.125, 0.125, 0.25, 0.25, 0, 0.7, 0.1,
		0.3, 0.3, 0.1, 0.1, 0, 0.1, 0.1,
	}
	return []*tensor.Dense{tensor.New(tensor.WithShape(4, 7), tensor.WithBacking(data))}
}

var sceneClasses = models.ClassNames{"person", "car"}

func sceneImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 100, 200))
}

type recordingVisualizer struct {
	calls  int
	boxes  []common.BoundingBox
	names  models.ClassNames
	err    error
	closed bool
}

func (v *recordingVisualizer) Show(_ context.Context, _ image.Image, boxes []common.BoundingBox, names models.ClassNames) error {
	v.calls++
	v.boxes = boxes
	v.names = names
	return v.err
}

type closingVisualizer struct {
	recordingVisualizer
	closeErr error
}

func (v *closingVisualizer) Close() error {
	v.closed = true
	return v.closeErr
}

func testConfig() Config {
	config := DefaultConfig()
	config.Engine = fakeEngineType
	return config
}

func newDetector(t *testing.T, engine inference.Engine, config Config, opts ...Option) *Detector {
	t.Helper()
	d, err := New(engine, sceneClasses, config, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDetect(t *testing.T) {
	engine := &fakeEngine{outputs: sceneOutputs()}
	d := newDetector(t, engine, testConfig())

	boxes, err := d.Detect(context.Background(), sceneImage())
	require.NoError(t, err)

	assert.Equal(t, []common.BoundingBox{
		{ROI: image.Rect(40, 60, 60, 140), ClassID: 0, Confidence: 0.9, BoxID: 0},
		{ROI: image.Rect(0, 0, 25, 50), ClassID: 0, Confidence: 0.7, BoxID: 1},
	}, boxes)
	assert.Equal(t, []tensor.Shape{{1, 3, 416, 416}}, engine.shapes)
}

func TestDetectClassAware(t *testing.T) {
	config := testConfig()
	config.ClassAware = true
	d := newDetector(t, &fakeEngine{outputs: sceneOutputs()}, config)

	boxes, err := d.Detect(context.Background(), sceneImage())
	require.NoError(t, err)
	require.Len(t, boxes, 3)
	assert.Equal(t, 1, boxes[1].ClassID)
	for i, b := range boxes {
		assert.Equal(t, i, b.BoxID)
	}
}

func TestDetectNothingFound(t *testing.T) {
	config := testConfig()
	config.ConfThreshold = 0.95
	d := newDetector(t, &fakeEngine{outputs: sceneOutputs()}, config)

	boxes, err := d.Detect(context.Background(), sceneImage())
	require.NoError(t, err)
	assert.NotNil(t, boxes)
	assert.Empty(t, boxes)
}

func TestDetectIdempotent(t *testing.T) {
	d := newDetector(t, &fakeEngine{outputs: sceneOutputs()}, testConfig())

	first, err := d.Detect(context.Background(), sceneImage())
	require.NoError(t, err)
	second, err := d.Detect(context.Background(), sceneImage())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDetectLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := newDetector(t, &fakeEngine{outputs: sceneOutputs()}, testConfig(), WithLogger(zap.New(core)))

	_, err := d.Detect(context.Background(), sceneImage())
	require.NoError(t, err)

	entries := logs.FilterMessage("detection").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 3, fields["candidates"])
	assert.EqualValues(t, 2, fields["kept"])
	assert.NotEmpty(t, fields["call_id"])
	assert.Contains(t, fields, "elapsed")
}

func TestDetectVisualizer(t *testing.T) {
	v := &recordingVisualizer{}
	d := newDetector(t, &fakeEngine{outputs: sceneOutputs()}, testConfig(), WithVisualizer(v))

	boxes, err := d.Detect(context.Background(), sceneImage())
	require.NoError(t, err)
	assert.Equal(t, 1, v.calls)
	assert.Equal(t, boxes, v.boxes)
	assert.Equal(t, sceneClasses, v.names)
}

func TestDetectVisualizerFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	v := &recordingVisualizer{err: errors.New("no display")}
	d := newDetector(t, &fakeEngine{outputs: sceneOutputs()}, testConfig(),
		WithVisualizer(v), WithLogger(zap.New(core)))

	boxes, err := d.Detect(context.Background(), sceneImage())
	require.NoError(t, err)
	assert.Len(t, boxes, 2)
	assert.Equal(t, 1, logs.FilterMessage("visualization failed").Len())
}

func TestDetectOptions(t *testing.T) {
	pre := &countingPreprocessor{}
	sup := &postprocess.GreedySuppressor{ClassAware: true}
	d := newDetector(t, &fakeEngine{outputs: sceneOutputs()}, testConfig(),
		WithPreprocessor(pre), WithSuppressor(sup))

	boxes, err := d.Detect(context.Background(), sceneImage())
	require.NoError(t, err)
	assert.Equal(t, 1, pre.calls)
	assert.Len(t, boxes, 3)
}

type countingPreprocessor struct{ calls int }

func (p *countingPreprocessor) MakeTensor(image.Image) (*tensor.Dense, error) {
	p.calls++
	return tensor.New(tensor.WithShape(1, 3, 2, 2), tensor.WithBacking(make([]float32, 12))), nil
}

func TestDetectErrors(t *testing.T) {
	t.Run("engine", func(t *testing.T) {
		boom := errors.New("boom")
		d := newDetector(t, &fakeEngine{err: boom}, testConfig())
		_, err := d.Detect(context.Background(), sceneImage())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("invalid image", func(t *testing.T) {
		d := newDetector(t, &fakeEngine{outputs: sceneOutputs()}, testConfig())
		_, err := d.Detect(context.Background(), nil)
		assert.ErrorIs(t, err, preprocess.ErrInvalidImage)
		_, err = d.Detect(context.Background(), image.NewRGBA(image.Rectangle{}))
		assert.ErrorIs(t, err, preprocess.ErrInvalidImage)
	})

	t.Run("malformed output", func(t *testing.T) {
		bad := []*tensor.Dense{tensor.New(tensor.WithShape(1, 3), tensor.WithBacking([]float32{1, 2, 3}))}
		d := newDetector(t, &fakeEngine{outputs: bad}, testConfig())
		_, err := d.Detect(context.Background(), sceneImage())
		assert.ErrorIs(t, err, postprocess.ErrMalformedTensor)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d := newDetector(t, &fakeEngine{outputs: sceneOutputs()}, testConfig())
		_, err := d.Detect(ctx, sceneImage())
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("closed", func(t *testing.T) {
		d := newDetector(t, &fakeEngine{outputs: sceneOutputs()}, testConfig())
		require.NoError(t, d.Close())
		_, err := d.Detect(context.Background(), sceneImage())
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil, sceneClasses, testConfig())
	assert.Error(t, err)

	config := testConfig()
	config.NMSThreshold = 2
	_, err = New(&fakeEngine{}, sceneClasses, config)
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	engine := &fakeEngine{}
	v := &closingVisualizer{}
	d, err := New(engine, sceneClasses, testConfig(), WithVisualizer(v))
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, 1, engine.closed)
	assert.True(t, v.closed)
}

func TestCloseCombinesErrors(t *testing.T) {
	engine := &fakeEngine{closeErr: errors.New("engine")}
	v := &closingVisualizer{closeErr: errors.New("window")}
	d, err := New(engine, sceneClasses, testConfig(), WithVisualizer(v))
	require.NoError(t, err)

	err = d.Close()
	assert.Len(t, multierr.Errors(err), 2)
}

func TestProfiling(t *testing.T) {
	d := newDetector(t, &fakeEngine{outputs: sceneOutputs()}, testConfig(), WithProfiling())

	_, err := d.Detect(context.Background(), sceneImage())
	require.NoError(t, err)

	metrics, ok := d.Metrics()
	require.True(t, ok)
	assert.EqualValues(t, 1, metrics.InferenceCount)
	assert.Equal(t, []string{"yolo_82"}, d.OutputNames())

	plain := newDetector(t, &fakeEngine{}, testConfig())
	_, ok = plain.Metrics()
	assert.False(t, ok)
}

func writeModelFiles(t *testing.T) (topology, weights, classes string) {
	t.Helper()
	dir := t.TempDir()
	topology = filepath.Join(dir, "model.cfg")
	weights = filepath.Join(dir, "model.weights")
	classes = filepath.Join(dir, "classes.names")
	require.NoError(t, os.WriteFile(topology, []byte("[net]\n"), 0o600))
	require.NoError(t, os.WriteFile(weights, []byte{0, 1, 2, 3}, 0o600))
	require.NoError(t, os.WriteFile(classes, []byte("person\ncar\n"), 0o600))
	return topology, weights, classes
}

func TestOpen(t *testing.T) {
	topology, weights, classes := writeModelFiles(t)
	config := testConfig()
	config.Topology, config.Weights, config.Classes = topology, weights, classes

	d, err := Open(config)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, sceneClasses, d.Classes())
	boxes, err := d.Detect(context.Background(), sceneImage())
	require.NoError(t, err)
	assert.Len(t, boxes, 2)
}

func TestOpenErrors(t *testing.T) {
	config := testConfig()
	config.Topology = filepath.Join(t.TempDir(), "missing.cfg")
	_, err := Open(config)
	assert.ErrorIs(t, err, inference.ErrResource)

	config = testConfig()
	config.Engine = "tflite"
	_, err = Open(config)
	assert.ErrorIs(t, err, inference.ErrUnknownEngine)
}

func TestDetectObjects(t *testing.T) {
	topology, weights, classes := writeModelFiles(t)
	v := &recordingVisualizer{}

	openedMu.Lock()
	before := len(opened)
	openedMu.Unlock()

	boxes, err := DetectObjects(context.Background(), sceneImage(), DetectArgs{
		ConfThreshold: 0.5,
		NMSThreshold:  0.5,
		ClassesPath:   classes,
		Topology:      topology,
		Weights:       weights,
		Engine:        fakeEngineType,
		Visualize:     true,
		Visualizer:    v,
	})
	require.NoError(t, err)
	assert.Len(t, boxes, 2)
	assert.Equal(t, 1, v.calls)

	openedMu.Lock()
	defer openedMu.Unlock()
	require.Len(t, opened, before+1)
	assert.Equal(t, 1, opened[before].closed)
}

func TestDetectObjectsWithoutVisualizer(t *testing.T) {
	topology, weights, _ := writeModelFiles(t)
	core, logs := observer.New(zapcore.WarnLevel)

	boxes, err := DetectObjects(context.Background(), sceneImage(), DetectArgs{
		ConfThreshold: 0.5,
		NMSThreshold:  0.5,
		ClassesPath:   filepath.Join(t.TempDir(), "none.names"),
		Topology:      topology,
		Weights:       weights,
		Engine:        fakeEngineType,
		Visualize:     true,
		Logger:        zap.New(core),
	})
	require.NoError(t, err)
	assert.Len(t, boxes, 2)
	assert.Equal(t, 1, logs.Len())
}
