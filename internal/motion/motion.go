// Package motion implements the Ken Burns camera model: a pure mapping from a
// position inside a page's visible window to the source crop that is drawn
// over the whole output frame.
package motion

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// Viewport is a rectangle in normalized source space, (0,0)-(1,1) being the
// whole image.
type Viewport struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// FullFrame covers the entire source image.
var FullFrame = Viewport{X: 0, Y: 0, W: 1, H: 1}

// Effect moves the camera from Start to End over a page's visible window.
type Effect struct {
	Start  Viewport
	End    Viewport
	Easing Easing
}

// At returns the normalized viewport for an already eased factor t.
func (e *Effect) At(t float64) Viewport {
	return Viewport{
		X: lerp(e.Start.X, e.End.X, t),
		Y: lerp(e.Start.Y, e.End.Y, t),
		W: lerp(e.Start.W, e.End.W, t),
		H: lerp(e.Start.H, e.End.H, t),
	}
}

// Rect returns the source crop, in source pixel coordinates relative to the
// image origin, to draw at the given position in [0,1]. The crop always has
// the output aspect ratio (cover) and stays inside the source. A nil effect
// selects the whole source.
func Rect(position float64, outW, outH, srcW, srcH int, e *Effect) image.Rectangle {
	if srcW <= 0 || srcH <= 0 {
		return image.Rectangle{}
	}
	if e == nil || outW <= 0 || outH <= 0 {
		return image.Rect(0, 0, srcW, srcH)
	}

	v := e.At(e.Easing.Apply(position)).normalized()

	sw, sh := float64(srcW), float64(srcH)
	cx := (v.X + v.W/2) * sw
	cy := (v.Y + v.H/2) * sh
	w := v.W * sw
	h := v.H * sh

	// Cover: extend the short side until the crop matches the output aspect.
	aspect := float64(outW) / float64(outH)
	if w/h < aspect {
		w = h * aspect
	} else {
		h = w / aspect
	}
	if w > sw {
		w = sw
		h = w / aspect
	}
	if h > sh {
		h = sh
		w = h * aspect
	}

	x0 := clampRange(cx-w/2, 0, sw-w)
	y0 := clampRange(cy-h/2, 0, sh-h)

	r := image.Rect(
		int(math.Round(x0)), int(math.Round(y0)),
		int(math.Round(x0+w)), int(math.Round(y0+h)),
	)
	if r.Dx() < 1 {
		r.Max.X = r.Min.X + 1
	}
	if r.Dy() < 1 {
		r.Max.Y = r.Min.Y + 1
	}
	return r.Intersect(image.Rect(0, 0, srcW, srcH))
}

// normalized clamps the viewport into the unit square with a minimal size.
func (v Viewport) normalized() Viewport {
	const minSide = 0.01
	v.W = clampRange(v.W, minSide, 1)
	v.H = clampRange(v.H, minSide, 1)
	v.X = clampRange(v.X, 0, 1-v.W)
	v.Y = clampRange(v.Y, 0, 1-v.H)
	return v
}

// Valid reports whether the viewport has a positive size inside the unit square.
func (v Viewport) Valid() bool {
	return v.W > 0 && v.H > 0 && v.X >= 0 && v.Y >= 0 && v.X+v.W <= 1+1e-9 && v.Y+v.H <= 1+1e-9
}

func clampRange(x, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// zoomInset is how much of each side the zoom presets crop at their tight end.
const zoomInset = 0.15

// Preset returns a named effect: the zooms center, top-left, top-right,
// bottom-left, bottom-right and out-center, the pans pan-left, pan-right,
// pan-up and pan-down, or static. "none" and "" mean no motion.
func Preset(name string) (*Effect, error) {
	side := 1 - 2*zoomInset

	zoomTo := func(v Viewport) *Effect {
		return &Effect{Start: FullFrame, End: v, Easing: EaseInOut}
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, nil
	case "static":
		return &Effect{Start: FullFrame, End: FullFrame, Easing: Linear}, nil
	case "center", "zoom-in":
		return zoomTo(Viewport{X: zoomInset, Y: zoomInset, W: side, H: side}), nil
	case "out-center", "zoom-out":
		return &Effect{
			Start:  Viewport{X: zoomInset, Y: zoomInset, W: side, H: side},
			End:    FullFrame,
			Easing: EaseInOut,
		}, nil
	case "top-left":
		return zoomTo(Viewport{X: 0, Y: 0, W: side, H: side}), nil
	case "top-right":
		return zoomTo(Viewport{X: 1 - side, Y: 0, W: side, H: side}), nil
	case "bottom-left":
		return zoomTo(Viewport{X: 0, Y: 1 - side, W: side, H: side}), nil
	case "bottom-right":
		return zoomTo(Viewport{X: 1 - side, Y: 1 - side, W: side, H: side}), nil
	case "pan-left":
		return &Effect{
			Start:  Viewport{X: 1 - side, Y: zoomInset, W: side, H: side},
			End:    Viewport{X: 0, Y: zoomInset, W: side, H: side},
			Easing: Linear,
		}, nil
	case "pan-right":
		return &Effect{
			Start:  Viewport{X: 0, Y: zoomInset, W: side, H: side},
			End:    Viewport{X: 1 - side, Y: zoomInset, W: side, H: side},
			Easing: Linear,
		}, nil
	case "pan-up":
		return &Effect{
			Start:  Viewport{X: zoomInset, Y: 1 - side, W: side, H: side},
			End:    Viewport{X: zoomInset, Y: 0, W: side, H: side},
			Easing: Linear,
		}, nil
	case "pan-down":
		return &Effect{
			Start:  Viewport{X: zoomInset, Y: 0, W: side, H: side},
			End:    Viewport{X: zoomInset, Y: 1 - side, W: side, H: side},
			Easing: Linear,
		}, nil
	default:
		return nil, fmt.Errorf("unknown motion preset: %s", name)
	}
}

// PresetNames lists the names accepted by Preset, excluding aliases.
func PresetNames() []string {
	return []string{
		"static", "center", "out-center",
		"top-left", "top-right", "bottom-left", "bottom-right",
		"pan-left", "pan-right", "pan-up", "pan-down",
	}
}
