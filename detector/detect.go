package detector

import (
	"context"
	"image"

	"github.com/nvr-ai/go-objdetect/common"
	"github.com/nvr-ai/go-objdetect/inference"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DetectArgs are the inputs of a single self-contained detection call.
type DetectArgs struct {
	ConfThreshold float32
	NMSThreshold  float32
	// ClassesPath is a newline-delimited class-name file.
	ClassesPath string
	// Topology and Weights are model file paths.
	Topology string
	Weights  string
	// Engine defaults to darknet.
	Engine inference.EngineType
	// Visualize shows the result through Visualizer. It is skipped with a
	// warning when Visualizer is nil.
	Visualize  bool
	Visualizer Visualizer
	Logger     *zap.Logger
}

// DetectObjects loads the model, detects objects in img and releases the
// model again. Long-running callers should Open a Detector once instead.
//
// Returns:
//   - []common.BoundingBox: The detections.
//   - error: A load, detection or release error.
func DetectObjects(ctx context.Context, img image.Image, args DetectArgs) (boxes []common.BoundingBox, err error) {
	config := DefaultConfig()
	config.ConfThreshold = args.ConfThreshold
	config.NMSThreshold = args.NMSThreshold
	config.Classes = args.ClassesPath
	config.Topology = args.Topology
	config.Weights = args.Weights
	if args.Engine != "" {
		config.Engine = args.Engine
	}

	logger := args.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []Option{WithLogger(logger)}
	if args.Visualize {
		if args.Visualizer != nil {
			opts = append(opts, WithVisualizer(args.Visualizer))
		} else {
			logger.Warn("visualization requested without a visualizer")
		}
	}

	d, err := Open(config, opts...)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, d.Close()) }()

	return d.Detect(ctx, img)
}
