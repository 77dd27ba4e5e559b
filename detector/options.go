package detector

import (
	"github.com/nvr-ai/go-objdetect/models/model/preprocess"
	"github.com/nvr-ai/go-objdetect/models/postprocess"
	"go.uber.org/zap"
)

// Option customizes a Detector.
type Option func(*Detector)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithVisualizer shows every detection result through v.
func WithVisualizer(v Visualizer) Option {
	return func(d *Detector) { d.visualizer = v }
}

// WithPreprocessor replaces the pure-Go blob builder.
func WithPreprocessor(p preprocess.Preprocessor) Option {
	return func(d *Detector) {
		if p != nil {
			d.preprocessor = p
		}
	}
}

// WithSuppressor replaces the greedy suppressor built from the config.
func WithSuppressor(s postprocess.Suppressor) Option {
	return func(d *Detector) {
		if s != nil {
			d.suppressor = s
		}
	}
}

// WithProfiling records Forward latency; see Detector.Metrics.
func WithProfiling() Option {
	return func(d *Detector) { d.profile = true }
}
