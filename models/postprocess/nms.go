package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-objdetect/images"
)

// Suppressor removes duplicate detections of the same object.
type Suppressor interface {
	// Suppress returns the indices of the candidates that survive, ordered by
	// descending confidence.
	Suppress(candidates []Candidate, confThreshold, nmsThreshold float32) []int
}

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap above which the weaker box is suppressed.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// ClassAware restricts suppression to boxes of the same class. The default
	// suppresses across all classes jointly.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
}

// GreedySuppressor performs standard greedy Non-Maximum Suppression.
type GreedySuppressor struct {
	ClassAware bool
}

// NewSuppressor returns the greedy suppressor described by config.
func NewSuppressor(config NMSConfig) *GreedySuppressor {
	return &GreedySuppressor{ClassAware: config.ClassAware}
}

// Suppress runs greedy NMS over candidates.
//
// Candidates at or below confThreshold are ignored. The remaining indices are
// visited in order of descending confidence (ties keep input order); an index
// is kept when its IoU with every previously kept index is at most
// nmsThreshold.
//
// Arguments:
//   - candidates: The decoded candidates.
//   - confThreshold: Minimum confidence, exclusive.
//   - nmsThreshold: IoU above which the lower-confidence box is removed.
//
// Returns:
//   - []int: Indices into candidates of the kept boxes, never nil.
func (s *GreedySuppressor) Suppress(candidates []Candidate, confThreshold, nmsThreshold float32) []int {
	order := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if c.Confidence > confThreshold {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return candidates[order[a]].Confidence > candidates[order[b]].Confidence
	})

	kept := make([]int, 0, len(order))
	boxes := make([]images.Rect, 0, len(order))

	for _, idx := range order {
		box := candidates[idx].Box()
		suppressed := false
		for k, keptIdx := range kept {
			if s.ClassAware && candidates[keptIdx].ClassID != candidates[idx].ClassID {
				continue
			}
			if images.CalculateIoU(boxes[k], box) > nmsThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, idx)
			boxes = append(boxes, box)
		}
	}

	return kept
}
