package inference

import (
	"os"

	"github.com/pkg/errors"
)

// ErrResource is returned when a model resource cannot be read or loaded.
var ErrResource = errors.New("model resource unavailable")

// ModelSource holds the opaque bytes of a pretrained network.
type ModelSource struct {
	// Topology is the network description (darknet .cfg or an .onnx file).
	Topology []byte
	// Weights are the trained parameters; empty for single-file formats.
	Weights []byte
}

// LoadModelSource reads a model from disk.
//
// Arguments:
//   - topologyPath: Path to the network description; required.
//   - weightsPath: Path to the weights; empty for single-file formats.
//
// Returns:
//   - ModelSource: The file contents.
//   - error: ErrResource if a file is missing, unreadable or empty.
func LoadModelSource(topologyPath, weightsPath string) (ModelSource, error) {
	if topologyPath == "" {
		return ModelSource{}, errors.Wrap(ErrResource, "topology path is empty")
	}

	topology, err := readResource(topologyPath)
	if err != nil {
		return ModelSource{}, err
	}

	src := ModelSource{Topology: topology}
	if weightsPath != "" {
		if src.Weights, err = readResource(weightsPath); err != nil {
			return ModelSource{}, err
		}
	}
	return src, nil
}

func readResource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrResource, "read %s: %v", path, err)
	}
	if len(data) == 0 {
		return nil, errors.Wrapf(ErrResource, "%s is empty", path)
	}
	return data, nil
}
