// Package images - Rectangle primitives shared by the decoder, suppressor and renderer.
package images

import "image"

// Rect is a lightweight integer bounding box in image pixel coordinates.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 int
}

// FromXYWH builds a Rect from a top-left corner and a size.
//
// Arguments:
//   - x, y: The top-left corner.
//   - w, h: The width and height in pixels.
//
// Returns:
//   - Rect: The rectangle spanning [x, x+w) x [y, y+h).
func FromXYWH(x, y, w, h int) Rect {
	return Rect{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

// FromRectangle converts an image.Rectangle without canonicalizing it.
func FromRectangle(r image.Rectangle) Rect {
	return Rect{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Rectangle converts r to an image.Rectangle.
//
// The corners are copied as-is; image.Rect would swap inverted corners, which
// would hide a zero-size box behind a non-empty one.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rectangle{Min: image.Pt(r.X1, r.Y1), Max: image.Pt(r.X2, r.Y2)}
}

// Width returns the horizontal extent of r.
func (r Rect) Width() int { return r.X2 - r.X1 }

// Height returns the vertical extent of r.
func (r Rect) Height() int { return r.Y2 - r.Y1 }

// Area returns the pixel area of r, or 0 for degenerate rectangles.
func (r Rect) Area() int {
	w, h := r.Width(), r.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// CalculateIoU returns the Intersection over Union of two rectangles.
//
//	IoU = Area of Intersection / Area of Union
//
// A value of 1.0 means the rectangles are identical and 0.0 means they do not
// overlap. Degenerate rectangles have no area and therefore never overlap.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
//
// Example Usage:
// ```go
//
//	rect1 := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	rect2 := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//
//	iouScore := CalculateIoU(rect1, rect2) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	// No overlap, or touching edges only.
	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	// Union(A, B) = Area(A) + Area(B) - Intersection(A, B)
	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return float32(interArea) / float32(unionArea)
}
