// Package inference - Inference engine interface and implementations
package inference

import (
	"sort"
	"sync"

	"github.com/nvr-ai/go-objdetect/inference/providers"
	"github.com/pkg/errors"
)

// EngineType is the type of the engine
type EngineType string

const (
	// EngineDarknet runs darknet .cfg/.weights models with the OpenCV DNN module
	EngineDarknet EngineType = "darknet"
	// EngineONNX is the ONNX engine that uses the onnxruntime library
	EngineONNX EngineType = "onnx"
)

// Engines is a list of all supported engines
var Engines = []EngineType{EngineDarknet, EngineONNX}

// Valid reports whether t is one of Engines.
func (t EngineType) Valid() bool {
	for _, e := range Engines {
		if e == t {
			return true
		}
	}
	return false
}

// ErrUnknownEngine is returned when no constructor is registered for a type.
var ErrUnknownEngine = errors.New("unknown engine")

// Options carries backend selection for every engine type. Each engine reads
// the fields that apply to it.
type Options struct {
	// Backend is the OpenCV DNN backend (default, opencv, cuda, openvino, vulkan).
	Backend string `json:"backend" yaml:"backend"`
	// Target is the OpenCV DNN target device (cpu, fp16, cuda, cudafp16, vulkan).
	Target string `json:"target" yaml:"target"`
	// Providers configures ONNX Runtime sessions.
	Providers providers.Config `json:"providers" yaml:"providers"`
}

// DefaultOptions returns the OpenCV backend on the CPU target, matching the
// preference darknet detectors are usually run with, and the default ONNX
// Runtime configuration.
func DefaultOptions() Options {
	return Options{
		Backend:   "opencv",
		Target:    "cpu",
		Providers: providers.DefaultConfig(),
	}
}

// Constructor builds an engine of one type from model bytes.
type Constructor func(src ModelSource, opts Options) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[EngineType]Constructor)
)

// Register makes an engine constructor available by type. It is meant to be
// called from the init function of the package implementing the engine and
// panics if ctor is nil or the type is registered twice.
func Register(kind EngineType, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if ctor == nil {
		panic("inference: Register constructor is nil")
	}
	if _, dup := registry[kind]; dup {
		panic("inference: Register called twice for engine " + string(kind))
	}
	registry[kind] = ctor
}

// Registered returns the sorted list of registered engine types.
func Registered() []EngineType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]EngineType, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// NewEngine constructs an engine of the given type.
//
// Arguments:
//   - kind: The engine type; its package must be imported for its side effect.
//   - src: The model bytes.
//   - opts: Backend options.
//
// Returns:
//   - Engine: The engine.
//   - error: ErrUnknownEngine if kind is not registered, or a construction
//     error wrapping ErrResource.
func NewEngine(kind EngineType, src ModelSource, opts Options) (Engine, error) {
	registryMu.RLock()
	ctor, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEngine, "%q (registered: %v)", kind, Registered())
	}

	engine, err := ctor(src, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "construct %s engine", kind)
	}
	return engine, nil
}
