package providers

import "github.com/pkg/errors"

// Provider represents different ONNX Runtime execution providers
type Provider string

const (
	// CPUExecutionProvider uses CPU for inference
	CPUExecutionProvider Provider = "cpu"

	// CUDAExecutionProvider uses NVIDIA CUDA for GPU acceleration
	CUDAExecutionProvider Provider = "cuda"

	// TensorRTExecutionProvider uses NVIDIA TensorRT for optimized inference
	TensorRTExecutionProvider Provider = "tensorrt"

	// CoreMLExecutionProvider uses Apple CoreML for macOS/iOS acceleration
	CoreMLExecutionProvider Provider = "coreml"

	// OpenVINOExecutionProvider uses Intel OpenVINO for inference optimization
	OpenVINOExecutionProvider Provider = "openvino"
)

// Providers lists every supported execution provider.
var Providers = []Provider{
	CPUExecutionProvider,
	CUDAExecutionProvider,
	TensorRTExecutionProvider,
	CoreMLExecutionProvider,
	OpenVINOExecutionProvider,
}

// ParseProvider converts a provider name into a Provider.
//
// Arguments:
//   - name: The provider name, e.g. "cuda".
//
// Returns:
//   - Provider: The provider.
//   - error: If the name is not one of Providers.
func ParseProvider(name string) (Provider, error) {
	for _, p := range Providers {
		if string(p) == name {
			return p, nil
		}
	}
	return "", errors.Errorf("unsupported execution provider: %q", name)
}

// ExecutionProviderConfig contains configuration for specific execution providers
type ExecutionProviderConfig struct {
	// Provider specifies which execution provider to use
	Provider Provider `json:"provider" yaml:"provider"`

	// Options contains provider-specific configuration options, passed to
	// ONNX Runtime as-is. For CoreML the "flags" key holds the CoreML flags.
	Options map[string]string `json:"options" yaml:"options"`

	// Priority determines the order in which providers are tried (higher = first)
	Priority int `json:"priority" yaml:"priority"`

	// Enabled toggles whether this provider should be used
	Enabled bool `json:"enabled" yaml:"enabled"`
}
