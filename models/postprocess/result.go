// Package postprocess - Decoding, suppression and assembly of raw detector outputs.
package postprocess

import (
	"image"

	"github.com/nvr-ai/go-objdetect/images"
)

// Candidate is a decoded prediction that passed the confidence threshold.
//
// Geometry is in image pixels. Candidates only live between Decode and
// Assemble.
type Candidate struct {
	// CenterX, CenterY is the box center.
	CenterX, CenterY int
	// Width, Height is the box size; never negative.
	Width, Height int
	// ClassID is the index of the highest class score.
	ClassID int
	// Confidence is the highest class score.
	Confidence float32
}

// Left returns the x coordinate of the top-left corner.
func (c Candidate) Left() int { return c.CenterX - c.Width/2 }

// Top returns the y coordinate of the top-left corner.
func (c Candidate) Top() int { return c.CenterY - c.Height/2 }

// Box returns the candidate rectangle as an images.Rect.
func (c Candidate) Box() images.Rect {
	return images.FromXYWH(c.Left(), c.Top(), c.Width, c.Height)
}

// Rect returns the candidate rectangle as an image.Rectangle.
func (c Candidate) Rect() image.Rectangle {
	return c.Box().Rectangle()
}
