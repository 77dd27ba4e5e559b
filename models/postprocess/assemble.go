package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-objdetect/common"
	"gorgonia.org/tensor"
)

// Assemble packages the kept candidates into bounding boxes.
//
// Boxes are emitted in the order of kept and BoxID is the position of the box
// in the returned slice. An index outside candidates is a programming error
// and panics.
//
// Arguments:
//   - candidates: The decoded candidates.
//   - kept: Indices returned by a Suppressor.
//
// Returns:
//   - []common.BoundingBox: The final detections, never nil.
func Assemble(candidates []Candidate, kept []int) []common.BoundingBox {
	boxes := make([]common.BoundingBox, 0, len(kept))
	for _, idx := range kept {
		if idx < 0 || idx >= len(candidates) {
			panic(fmt.Sprintf("postprocess: kept index %d out of range for %d candidates", idx, len(candidates)))
		}
		c := candidates[idx]
		boxes = append(boxes, common.BoundingBox{
			ROI:        c.Rect(),
			ClassID:    c.ClassID,
			Confidence: c.Confidence,
			BoxID:      len(boxes),
		})
	}
	return boxes
}

// Process runs Decode, the suppressor and Assemble in sequence.
//
// Arguments:
//   - outputs: Raw output tensors from the inference engine.
//   - imageWidth, imageHeight: The size of the source image in pixels.
//   - numClasses: Size of the class-name table; 0 disables the channel check.
//   - confThreshold, nmsThreshold: The decoding and suppression thresholds.
//   - suppressor: The suppressor to use; nil selects joint greedy NMS.
//
// Returns:
//   - []common.BoundingBox: The final detections.
//   - int: The number of candidates before suppression.
//   - error: A decoding error.
func Process(
	outputs []*tensor.Dense,
	imageWidth, imageHeight, numClasses int,
	confThreshold, nmsThreshold float32,
	suppressor Suppressor,
) ([]common.BoundingBox, int, error) {
	candidates, err := Decode(outputs, imageWidth, imageHeight, confThreshold, numClasses)
	if err != nil {
		return nil, 0, err
	}
	if suppressor == nil {
		suppressor = &GreedySuppressor{}
	}
	kept := suppressor.Suppress(candidates, confThreshold, nmsThreshold)
	return Assemble(candidates, kept), len(candidates), nil
}
