package opencv

import (
	"image"

	"github.com/nvr-ai/go-objdetect/models/postprocess"
	"gocv.io/x/gocv"
)

// NMSBoxes suppresses candidates with OpenCV's NMSBoxes. Suppression is
// always joint across classes.
type NMSBoxes struct{}

var _ postprocess.Suppressor = NMSBoxes{}

// Suppress returns the kept indices in descending confidence order.
func (NMSBoxes) Suppress(candidates []postprocess.Candidate, confThreshold, nmsThreshold float32) []int {
	if len(candidates) == 0 {
		return []int{}
	}

	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.Rect()
		scores[i] = c.Confidence
	}

	kept := gocv.NMSBoxes(boxes, scores, confThreshold, nmsThreshold)
	if kept == nil {
		kept = []int{}
	}
	return kept
}
