// Package analyzer finds the visually busy regions of a page illustration.
// The director turns them into a camera target for pages without an
// explicit motion effect.
package analyzer

import "image"

// Block represents a detected region of interest in source pixel coordinates.
type Block struct {
	Rect  image.Rectangle
	Score float64 // relative edge energy, 0.0-1.0
}

// Detector is the interface for image analysis strategies
type Detector interface {
	Detect(img image.Image) ([]Block, error)
}
