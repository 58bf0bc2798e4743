// Package director plans Ken Burns camera moves for pages that do not
// specify one, aiming the camera at the most detailed part of the picture.
package director

import (
	"image"
	"math"

	"github.com/ivlev/storyvideo/internal/analyzer"
	"github.com/ivlev/storyvideo/internal/motion"
)

// Director generates camera paths from detected blocks
type Director struct {
	ViewportWidth  int
	ViewportHeight int
	Detector       analyzer.Detector
	Padding        float64 // fraction added around the focus block
	MaxZoom        float64 // upper bound for the tight end of the move
}

// NewDirector creates a new Director with default settings
func NewDirector(viewportWidth, viewportHeight int) *Director {
	return &Director{
		ViewportWidth:  viewportWidth,
		ViewportHeight: viewportHeight,
		Detector:       analyzer.NewEnergyDetector(),
		Padding:        0.15,
		MaxZoom:        1.6,
	}
}

// AutoEffect returns a move from the full picture towards its busiest
// region, or reversed when zoomOut is set. It returns nil when the picture
// has no detail to aim at.
func (d *Director) AutoEffect(img image.Image, zoomOut bool) (*motion.Effect, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, nil
	}
	blocks, err := d.Detector.Detect(img)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	focus := d.focusViewport(blocks[0].Rect, img.Bounds())
	if zoomOut {
		return &motion.Effect{Start: focus, End: motion.FullFrame, Easing: motion.EaseInOut}, nil
	}
	return &motion.Effect{Start: motion.FullFrame, End: focus, Easing: motion.EaseInOut}, nil
}

// focusViewport pads the block, limits the zoom and normalizes the result.
func (d *Director) focusViewport(block, src image.Rectangle) motion.Viewport {
	sw, sh := float64(src.Dx()), float64(src.Dy())

	cx := float64(block.Min.X-src.Min.X) + float64(block.Dx())/2
	cy := float64(block.Min.Y-src.Min.Y) + float64(block.Dy())/2
	w := float64(block.Dx()) * (1 + 2*d.Padding)
	h := float64(block.Dy()) * (1 + 2*d.Padding)

	zoom := d.calculateZoom(w, h, sw, sh)
	// Same aspect as the source so the cover crop does not fight the move.
	w, h = sw/zoom, sh/zoom

	x := math.Min(math.Max(cx-w/2, 0), sw-w)
	y := math.Min(math.Max(cy-h/2, 0), sh-h)
	return motion.Viewport{X: x / sw, Y: y / sh, W: w / sw, H: h / sh}
}

// calculateZoom determines the zoom level that fits the focus region
func (d *Director) calculateZoom(w, h, sw, sh float64) float64 {
	if w <= 0 || h <= 0 {
		return 1.0
	}
	zoom := math.Min(sw/w, sh/h)

	maxZoom := d.MaxZoom
	if maxZoom < 1 {
		maxZoom = 1
	}
	if zoom < 1.0 {
		zoom = 1.0
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	return zoom
}
