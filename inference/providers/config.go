// Package providers - ONNX Runtime session and execution provider configuration.
package providers

import (
	"runtime"
	"sort"

	"github.com/pkg/errors"
)

// GraphOptimizationLevel controls the level of graph optimization.
type GraphOptimizationLevel string

const (
	// GraphOptimizationDisabled disables all graph optimizations.
	GraphOptimizationDisabled GraphOptimizationLevel = "disabled"
	// GraphOptimizationBasic applies semantics-preserving rewrites only.
	GraphOptimizationBasic GraphOptimizationLevel = "basic"
	// GraphOptimizationExtended adds node fusions.
	GraphOptimizationExtended GraphOptimizationLevel = "extended"
	// GraphOptimizationAll enables every optimization including layout changes.
	GraphOptimizationAll GraphOptimizationLevel = "all"
)

// ExecutionMode controls sequential vs parallel execution of graph nodes.
type ExecutionMode string

const (
	// ExecutionModeSequential runs nodes one at a time.
	ExecutionModeSequential ExecutionMode = "sequential"
	// ExecutionModeParallel runs independent nodes concurrently.
	ExecutionModeParallel ExecutionMode = "parallel"
)

// Config contains the ONNX Runtime settings used to create sessions.
type Config struct {
	// SharedLibraryPath is the onnxruntime shared library. Empty selects
	// GetSharedLibPath.
	SharedLibraryPath string `json:"shared_library_path" yaml:"shared_library_path"`

	// GraphOptimizationLevel controls the level of graph optimization
	GraphOptimizationLevel GraphOptimizationLevel `json:"graph_optimization_level" yaml:"graph_optimization_level"`

	// ExecutionMode controls sequential vs parallel execution
	ExecutionMode ExecutionMode `json:"execution_mode" yaml:"execution_mode"`

	// IntraOpNumThreads sets threads for parallelizing ops; 0 uses the runtime default.
	IntraOpNumThreads int `json:"intra_op_num_threads" yaml:"intra_op_num_threads"`

	// InterOpNumThreads sets threads for parallelizing independent ops; 0 uses the runtime default.
	InterOpNumThreads int `json:"inter_op_num_threads" yaml:"inter_op_num_threads"`

	// ExecutionProviders configures available execution providers
	ExecutionProviders []ExecutionProviderConfig `json:"execution_providers" yaml:"execution_providers"`
}

// DefaultConfig returns a configuration with sensible defaults for object
// detection workloads: extended graph optimization, half the CPUs for
// intra-op work and the CPU provider only.
//
// Returns:
//   - Config: The default configuration.
//
// @example
// config := DefaultConfig()
// config.ExecutionProviders = append(config.ExecutionProviders, ExecutionProviderConfig{
//
//	Provider: CUDAExecutionProvider, Priority: 10, Enabled: true,
//
// })
func DefaultConfig() Config {
	return Config{
		GraphOptimizationLevel: GraphOptimizationExtended,
		ExecutionMode:          ExecutionModeSequential,
		IntraOpNumThreads:      max(1, runtime.NumCPU()/2),
		InterOpNumThreads:      1,
		ExecutionProviders: []ExecutionProviderConfig{
			{Provider: CPUExecutionProvider, Options: map[string]string{}, Priority: 1, Enabled: true},
		},
	}
}

// Validate checks the configuration for unsupported values.
//
// Returns:
//   - error: The first invalid setting, or nil.
func (c Config) Validate() error {
	switch c.GraphOptimizationLevel {
	case "", GraphOptimizationDisabled, GraphOptimizationBasic, GraphOptimizationExtended, GraphOptimizationAll:
	default:
		return errors.Errorf("unsupported graph optimization level: %q", c.GraphOptimizationLevel)
	}
	switch c.ExecutionMode {
	case "", ExecutionModeSequential, ExecutionModeParallel:
	default:
		return errors.Errorf("unsupported execution mode: %q", c.ExecutionMode)
	}
	if c.IntraOpNumThreads < 0 || c.InterOpNumThreads < 0 {
		return errors.Errorf("thread counts must not be negative, got intra=%d inter=%d",
			c.IntraOpNumThreads, c.InterOpNumThreads)
	}
	for _, p := range c.ExecutionProviders {
		if _, err := ParseProvider(string(p.Provider)); err != nil {
			return err
		}
	}
	return nil
}

// EnabledProviders returns the enabled execution providers, highest priority
// first. Providers with equal priority keep their configured order.
func (c Config) EnabledProviders() []ExecutionProviderConfig {
	enabled := make([]ExecutionProviderConfig, 0, len(c.ExecutionProviders))
	for _, p := range c.ExecutionProviders {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority > enabled[j].Priority
	})
	return enabled
}
