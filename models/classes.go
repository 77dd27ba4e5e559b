// Package models - Class-name tables that map model class indices to labels.
package models

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrUnknownClass is returned when a class index has no entry in the table.
var ErrUnknownClass = errors.New("unknown class")

// ClassNames is an ordered class-name table. The position of a name is the
// class index emitted by the model.
type ClassNames []string

// Len returns the number of classes in the table.
func (c ClassNames) Len() int { return len(c) }

// Name returns the label for a class index.
//
// Arguments:
//   - id: The class index reported by the decoder.
//
// Returns:
//   - string: The class label.
//   - error: ErrUnknownClass if id is outside the table.
func (c ClassNames) Name(id int) (string, error) {
	if id < 0 || id >= len(c) {
		return "", errors.Wrapf(ErrUnknownClass, "index %d out of range for %d classes", id, len(c))
	}
	return c[id], nil
}

// Index returns the first class index carrying name.
func (c ClassNames) Index(name string) (int, error) {
	for i, n := range c {
		if n == name {
			return i, nil
		}
	}
	return -1, errors.Wrapf(ErrUnknownClass, "name %q not found", name)
}

// LoadClassNames reads a newline-delimited class-name file.
//
// Each line becomes one class name with trailing whitespace (including a
// carriage return) removed. A missing file is not an error: it yields an empty
// table, which makes every class index unknown at render time.
//
// Arguments:
//   - path: Path to the class-name file, e.g. "coco.names".
//
// Returns:
//   - ClassNames: The table in file order.
//   - error: An error if the file exists but cannot be read.
func LoadClassNames(path string) (ClassNames, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ClassNames{}, nil
		}
		return nil, errors.Wrapf(err, "open class names %s", path)
	}
	defer f.Close()

	names, err := ReadClassNames(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read class names %s", path)
	}
	return names, nil
}

// ReadClassNames reads one class name per line from r.
func ReadClassNames(r io.Reader) (ClassNames, error) {
	names := ClassNames{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		names = append(names, strings.TrimRight(scanner.Text(), " \t\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// LoadClassNamesYAML reads a YAML document with a top-level "classes" list.
//
//	classes:
//	  - person
//	  - bicycle
//
// Unlike LoadClassNames, a missing file is an error.
func LoadClassNamesYAML(path string) (ClassNames, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read class names %s", path)
	}

	var doc struct {
		Classes []string `yaml:"classes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse class names %s", path)
	}
	if len(doc.Classes) == 0 {
		return nil, errors.Errorf("no classes listed in %s", path)
	}
	return ClassNames(doc.Classes), nil
}

// COCONames returns a copy of the 80 COCO class names in darknet order.
func COCONames() ClassNames {
	names := make(ClassNames, len(cocoNames))
	copy(names, cocoNames)
	return names
}

var cocoNames = []string{
	"person", "bicycle", "car", "motorbike", "aeroplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "sofa", "pottedplant", "bed", "diningtable", "toilet", "tvmonitor", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}
