package detector

import (
	"os"

	"github.com/nvr-ai/go-objdetect/inference"
	"github.com/nvr-ai/go-objdetect/models/model/preprocess"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes a detector: which engine and files to load, how images
// are turned into blobs and how raw outputs are filtered.
type Config struct {
	// Engine selects a registered inference engine.
	Engine inference.EngineType `json:"engine" yaml:"engine"`

	// Topology is the network description (.cfg or .onnx).
	Topology string `json:"topology" yaml:"topology"`

	// Weights holds the trained parameters; empty for .onnx models.
	Weights string `json:"weights" yaml:"weights"`

	// Classes is a newline-delimited class-name file. Empty or missing
	// leaves every class unnamed.
	Classes string `json:"classes" yaml:"classes"`

	// Blob controls preprocessing.
	Blob preprocess.BlobOptions `json:"blob" yaml:"blob"`

	// ConfThreshold drops candidates whose best class score is not above it.
	ConfThreshold float32 `json:"conf_threshold" yaml:"conf_threshold"`

	// NMSThreshold is the IoU above which a lower-confidence box is suppressed.
	NMSThreshold float32 `json:"nms_threshold" yaml:"nms_threshold"`

	// ClassAware limits suppression to boxes of the same class.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`

	// Inference holds engine backend options.
	Inference inference.Options `json:"inference" yaml:"inference"`
}

// DefaultConfig returns the settings darknet YOLOv3 models are usually run
// with: a 416x416 blob scaled to [0, 1], confidence 0.2, IoU 0.4 and joint
// suppression across classes.
//
// Returns:
//   - Config: The default configuration.
//
// @example
// config := DefaultConfig()
// config.Topology = "yolov3.cfg"
// config.Weights = "yolov3.weights"
// d, err := Open(config)
func DefaultConfig() Config {
	return Config{
		Engine:        inference.EngineDarknet,
		Blob:          preprocess.DefaultBlobOptions(),
		ConfThreshold: 0.2,
		NMSThreshold:  0.4,
		Inference:     inference.DefaultOptions(),
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	if err := config.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return config, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !c.Engine.Valid() && !registered(c.Engine) {
		return errors.Wrapf(inference.ErrUnknownEngine, "%q", c.Engine)
	}
	if !inUnitInterval(c.ConfThreshold) {
		return errors.Errorf("confidence threshold %v outside [0, 1]", c.ConfThreshold)
	}
	if !inUnitInterval(c.NMSThreshold) {
		return errors.Errorf("nms threshold %v outside [0, 1]", c.NMSThreshold)
	}
	if err := c.Blob.Validate(); err != nil {
		return err
	}
	if c.Engine == inference.EngineONNX {
		return c.Inference.Providers.Validate()
	}
	return nil
}

func registered(kind inference.EngineType) bool {
	for _, t := range inference.Registered() {
		if t == kind {
			return true
		}
	}
	return false
}

// rejects NaN as well
func inUnitInterval(v float32) bool {
	return v >= 0 && v <= 1
}
