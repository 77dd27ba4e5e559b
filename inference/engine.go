// Package inference - Inference engine interface, registry and model loading.
package inference

import (
	"context"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Engine runs a pretrained network on a preprocessed blob.
//
// Engines are long-lived: construct once, call Forward many times, then Close.
// Implementations must be safe for concurrent use.
type Engine interface {
	// Forward runs the network and returns one float32 tensor per output
	// layer, in the order reported by OutputNames.
	Forward(ctx context.Context, blob *tensor.Dense) ([]*tensor.Dense, error)
	// OutputNames returns the names of the output layers.
	OutputNames() []string
	// Close releases the native resources held by the engine.
	Close() error
}

// EngineBuilder builds an Engine with a fluent API.
type EngineBuilder struct {
	kind    EngineType
	source  *ModelSource
	options Options
	err     error
}

// NewEngineBuilder creates a new engine builder.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{}
}

// WithType sets the engine type.
//
// Arguments:
//   - kind: A registered engine type.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithType(kind EngineType) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.kind = kind
	return b
}

// WithSource sets the model bytes.
func (b *EngineBuilder) WithSource(src ModelSource) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.source = &src
	return b
}

// WithFiles loads the model from disk.
//
// Arguments:
//   - topologyPath: The network description (.cfg or .onnx).
//   - weightsPath: The trained weights; may be empty for single-file formats.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithFiles(topologyPath, weightsPath string) *EngineBuilder {
	if b.HasError() {
		return b
	}
	src, err := LoadModelSource(topologyPath, weightsPath)
	if err != nil {
		b.err = err
		return b
	}
	b.source = &src
	return b
}

// WithOptions sets the engine options.
func (b *EngineBuilder) WithOptions(opts Options) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.options = opts
	return b
}

// HasError checks if the engine builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *EngineBuilder) HasError() bool {
	return b.err != nil
}

// Build builds the engine.
//
// Returns:
//   - Engine: The engine.
//   - error: The first error recorded by the builder, or a construction error.
func (b *EngineBuilder) Build() (Engine, error) {
	if b.HasError() {
		return nil, b.err
	}
	if b.kind == "" {
		return nil, errors.New("engine type not configured")
	}
	if b.source == nil {
		return nil, errors.New("model source not configured")
	}
	return NewEngine(b.kind, *b.source, b.options)
}

// MustBuild builds the engine and panics if there is an error.
//
// Returns:
//   - Engine: The engine.
func (b *EngineBuilder) MustBuild() Engine {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}
