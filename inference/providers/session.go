package providers

import (
	"strconv"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

var graphOptimizationLevels = map[GraphOptimizationLevel]ort.GraphOptimizationLevel{
	GraphOptimizationDisabled: ort.GraphOptimizationLevelDisableAll,
	GraphOptimizationBasic:    ort.GraphOptimizationLevelEnableBasic,
	GraphOptimizationExtended: ort.GraphOptimizationLevelEnableExtended,
	GraphOptimizationAll:      ort.GraphOptimizationLevelEnableAll,
}

// SessionOptions builds ONNX Runtime session options from config.
//
// Execution providers are appended highest priority first. A provider that is
// not available in the loaded runtime is skipped with a warning; the CPU
// provider is always present.
//
// Arguments:
//   - config: The configuration to apply.
//   - logger: Receives provider warnings.
//
// Returns:
//   - *ort.SessionOptions: Configured session options; the caller destroys them.
//   - error: Configuration error if any.
//
// @example
// options, err := SessionOptions(DefaultConfig(), zap.NewNop())
//
//	if err != nil {
//	    return err
//	}
//
// defer options.Destroy()
func SessionOptions(config Config, logger *zap.Logger) (*ort.SessionOptions, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "create session options")
	}

	if err := applySettings(options, config); err != nil {
		options.Destroy()
		return nil, err
	}

	for _, provider := range config.EnabledProviders() {
		if err := appendProvider(options, provider); err != nil {
			logger.Warn("execution provider unavailable",
				zap.String("provider", string(provider.Provider)),
				zap.Error(err))
		}
	}

	return options, nil
}

func applySettings(options *ort.SessionOptions, config Config) error {
	if level, ok := graphOptimizationLevels[config.GraphOptimizationLevel]; ok {
		if err := options.SetGraphOptimizationLevel(level); err != nil {
			return errors.Wrap(err, "set graph optimization level")
		}
	}
	if config.ExecutionMode != "" {
		var mode ort.ExecutionMode = ort.ExecutionModeSequential
		if config.ExecutionMode == ExecutionModeParallel {
			mode = ort.ExecutionModeParallel
		}
		if err := options.SetExecutionMode(mode); err != nil {
			return errors.Wrap(err, "set execution mode")
		}
	}
	if err := options.SetIntraOpNumThreads(config.IntraOpNumThreads); err != nil {
		return errors.Wrap(err, "set intra-op threads")
	}
	if err := options.SetInterOpNumThreads(config.InterOpNumThreads); err != nil {
		return errors.Wrap(err, "set inter-op threads")
	}
	return nil
}

func appendProvider(options *ort.SessionOptions, provider ExecutionProviderConfig) error {
	switch provider.Provider {
	case CPUExecutionProvider:
		// CPU provider is always available, no explicit configuration needed
		return nil

	case CUDAExecutionProvider:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return err
		}
		defer cuda.Destroy()
		if len(provider.Options) > 0 {
			if err := cuda.Update(provider.Options); err != nil {
				return err
			}
		}
		return options.AppendExecutionProviderCUDA(cuda)

	case TensorRTExecutionProvider:
		trt, err := ort.NewTensorRTProviderOptions()
		if err != nil {
			return err
		}
		defer trt.Destroy()
		if len(provider.Options) > 0 {
			if err := trt.Update(provider.Options); err != nil {
				return err
			}
		}
		return options.AppendExecutionProviderTensorRT(trt)

	case CoreMLExecutionProvider:
		var flags uint64
		if s, ok := provider.Options["flags"]; ok {
			v, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return errors.Wrapf(err, "coreml flags %q", s)
			}
			flags = v
		}
		return options.AppendExecutionProviderCoreML(uint32(flags))

	case OpenVINOExecutionProvider:
		return options.AppendExecutionProviderOpenVINO(provider.Options)

	default:
		return errors.Errorf("unsupported execution provider: %s", provider.Provider)
	}
}
