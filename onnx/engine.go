package onnx

import (
	"context"
	"sync"

	"github.com/nvr-ai/go-objdetect/inference"
	"github.com/nvr-ai/go-objdetect/inference/providers"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

func init() {
	inference.Register(inference.EngineONNX, func(src inference.ModelSource, opts inference.Options) (inference.Engine, error) {
		return NewEngine(src, opts.Providers, zap.NewNop())
	})
}

// Engine runs a single-input .onnx model with ONNX Runtime.
//
// ONNX Runtime sessions allow concurrent Run calls, so Forward holds a read
// lock and Close the write lock.
type Engine struct {
	mu          sync.RWMutex
	session     *ort.DynamicAdvancedSession
	inputName   string
	outputNames []string
}

var _ inference.Engine = (*Engine)(nil)

// NewEngine creates a session from the model bytes in src.Topology.
//
// Arguments:
//   - src: Topology holds the .onnx file; Weights is ignored.
//   - config: Session and execution provider settings.
//   - logger: Receives execution provider warnings.
//
// Returns:
//   - *Engine: The engine.
//   - error: inference.ErrResource if the model cannot be loaded.
func NewEngine(src inference.ModelSource, config providers.Config, logger *zap.Logger) (*Engine, error) {
	if len(src.Topology) == 0 {
		return nil, errors.Wrap(inference.ErrResource, "onnx model is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := InitializeEnvironment(config.SharedLibraryPath); err != nil {
		return nil, errors.Wrap(inference.ErrResource, err.Error())
	}

	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(src.Topology)
	if err != nil {
		return nil, errors.Wrapf(inference.ErrResource, "read model metadata: %v", err)
	}
	inputName, outputNames, err := ioNames(inputs, outputs)
	if err != nil {
		return nil, err
	}

	options, err := providers.SessionOptions(config, logger)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(src.Topology, []string{inputName}, outputNames, options)
	if err != nil {
		return nil, errors.Wrapf(inference.ErrResource, "create session: %v", err)
	}

	logger.Debug("onnx session created",
		zap.String("input", inputName),
		zap.Strings("outputs", outputNames))

	return &Engine{session: session, inputName: inputName, outputNames: outputNames}, nil
}

func ioNames(inputs, outputs []ort.InputOutputInfo) (string, []string, error) {
	if len(inputs) != 1 {
		return "", nil, errors.Wrapf(inference.ErrResource, "model has %d inputs, want 1", len(inputs))
	}
	if len(outputs) == 0 {
		return "", nil, errors.Wrap(inference.ErrResource, "model has no outputs")
	}
	names := make([]string, len(outputs))
	for i, o := range outputs {
		names[i] = o.Name
	}
	return inputs[0].Name, names, nil
}

// Forward runs the model on blob.
//
// Arguments:
//   - ctx: Checked before and after the session run.
//   - blob: A float32 blob matching the model input.
//
// Returns:
//   - []*tensor.Dense: One tensor per model output, in OutputNames order.
//   - error: If the engine is closed, ctx is done, or the run fails.
func (e *Engine) Forward(ctx context.Context, blob *tensor.Dense) ([]*tensor.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.session == nil {
		return nil, errors.New("onnx engine is closed")
	}

	input, err := toValue(blob)
	if err != nil {
		return nil, err
	}
	defer input.Destroy()

	// nil outputs are allocated by the runtime
	outputs := make([]ort.Value, len(e.outputNames))
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	if err := e.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, errors.Wrap(err, "run session")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([]*tensor.Dense, len(outputs))
	for i, o := range outputs {
		t, err := fromValue(o)
		if err != nil {
			return nil, errors.Wrapf(err, "output %s", e.outputNames[i])
		}
		result[i] = t
	}
	return result, nil
}

// InputName returns the name of the model input.
func (e *Engine) InputName() string { return e.inputName }

// OutputNames returns the model output names.
func (e *Engine) OutputNames() []string {
	return append([]string(nil), e.outputNames...)
}

// Close destroys the session. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}
