// Package common - Detection records shared across the decoding pipeline.
package common

import (
	"fmt"
	"image"

	"github.com/nvr-ai/go-objdetect/images"
)

// BoundingBox is a final detection produced by one detection call.
//
// ROI is in image pixel coordinates: ROI.Min is the top-left corner and
// ROI.Dx()/ROI.Dy() are the width and height. BoxID is the zero-based position
// of the box in the list it was returned in; it is not stable across calls.
type BoundingBox struct {
	ROI        image.Rectangle `json:"roi" yaml:"roi"`
	ClassID    int             `json:"class_id" yaml:"class_id"`
	Confidence float32         `json:"confidence" yaml:"confidence"`
	BoxID      int             `json:"box_id" yaml:"box_id"`
}

// X returns the left edge of the box.
func (b *BoundingBox) X() int { return b.ROI.Min.X }

// Y returns the top edge of the box.
func (b *BoundingBox) Y() int { return b.ROI.Min.Y }

// Width returns the width of the box in pixels.
func (b *BoundingBox) Width() int { return b.ROI.Dx() }

// Height returns the height of the box in pixels.
func (b *BoundingBox) Height() int { return b.ROI.Dy() }

// Rect returns the box as an images.Rect.
func (b *BoundingBox) Rect() images.Rect {
	return images.FromRectangle(b.ROI)
}

// IoU calculates the Intersection over Union between two bounding boxes.
//
// Arguments:
//   - other: The other bounding box to calculate IoU with.
//
// Returns:
//   - The IoU value between 0 and 1.
//
// @example
// box1 := BoundingBox{ROI: image.Rect(0, 0, 100, 100)}
// box2 := BoundingBox{ROI: image.Rect(50, 50, 150, 150)}
// iou := box1.IoU(&box2) // Returns ~0.143 (2500/17500)
func (b *BoundingBox) IoU(other *BoundingBox) float32 {
	return images.CalculateIoU(b.Rect(), other.Rect())
}

func (b *BoundingBox) String() string {
	return fmt.Sprintf("Box %d class %d (confidence %f): x=%d y=%d w=%d h=%d",
		b.BoxID, b.ClassID, b.Confidence, b.X(), b.Y(), b.Width(), b.Height())
}
