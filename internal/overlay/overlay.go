// Package overlay draws page captions over composited frames.
//
// Layout (line breaking and line metrics) happens once in New; Draw only
// places glyphs, so a caption can be faded frame by frame cheaply.
package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

type VerticalAlign int

const (
	AlignBottom VerticalAlign = iota
	AlignCenter
	AlignTop
)

type HorizontalAlign int

const (
	AlignMiddle HorizontalAlign = iota
	AlignLeft
	AlignRight
)

// Options describe the caption region. Width and Height are the frame size.
type Options struct {
	Width, Height int
	Face          font.Face
	Margin        int     // distance to the frame edges
	Padding       int     // backdrop padding around the text
	LineSpacing   float64 // multiple of the face height, 0 means 1.2
	TextColor     color.NRGBA
	Backdrop      color.NRGBA // zero alpha disables the backdrop
	Shadow        bool
	HAlign        HorizontalAlign
}

// DefaultOptions is white text on a translucent black band.
func DefaultOptions(width, height int, face font.Face) Options {
	margin := height / 20
	return Options{
		Width:       width,
		Height:      height,
		Face:        face,
		Margin:      margin,
		Padding:     margin / 2,
		LineSpacing: 1.2,
		TextColor:   color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		Backdrop:    color.NRGBA{A: 150},
		Shadow:      true,
	}
}

type line struct {
	text  string
	width int
}

// TextOverlay is a laid out caption.
type TextOverlay struct {
	opts       Options
	lines      []line
	lineHeight int
	ascent     int
	blockW     int
	valign     VerticalAlign
}

// New lays out text for the frame described by opts.
func New(text string, opts Options) *TextOverlay {
	if opts.Face == nil {
		opts.Face = fallbackFace
	}
	if opts.LineSpacing <= 0 {
		opts.LineSpacing = 1.2
	}

	m := opts.Face.Metrics()
	o := &TextOverlay{
		opts:       opts,
		lineHeight: int(float64(m.Height.Ceil()) * opts.LineSpacing),
		ascent:     m.Ascent.Ceil(),
	}
	if o.lineHeight < 1 {
		o.lineHeight = 1
	}

	maxW := opts.Width - 2*opts.Margin - 2*opts.Padding
	if maxW < 1 {
		maxW = 1
	}
	for _, paragraph := range strings.Split(strings.TrimSpace(text), "\n") {
		o.wrap(strings.Fields(paragraph), maxW)
	}
	for _, l := range o.lines {
		if l.width > o.blockW {
			o.blockW = l.width
		}
	}
	return o
}

func (o *TextOverlay) measure(s string) int {
	return font.MeasureString(o.opts.Face, s).Ceil()
}

// wrap breaks words greedily into lines no wider than maxW. A word that does
// not fit on its own is split between runes.
func (o *TextOverlay) wrap(words []string, maxW int) {
	cur := ""
	flush := func() {
		if cur != "" {
			o.lines = append(o.lines, line{text: cur, width: o.measure(cur)})
			cur = ""
		}
	}

	for _, w := range words {
		candidate := w
		if cur != "" {
			candidate = cur + " " + w
		}
		if o.measure(candidate) <= maxW {
			cur = candidate
			continue
		}
		flush()
		for o.measure(w) > maxW && utf8.RuneCountInString(w) > 1 {
			head := o.fit(w, maxW)
			o.lines = append(o.lines, line{text: head, width: o.measure(head)})
			w = w[len(head):]
		}
		cur = w
	}
	flush()
}

// fit returns the longest rune prefix of w that fits, at least one rune.
func (o *TextOverlay) fit(w string, maxW int) string {
	end := 0
	for i, r := range w {
		next := i + utf8.RuneLen(r)
		if end > 0 && o.measure(w[:next]) > maxW {
			break
		}
		end = next
	}
	return w[:end]
}

// SetVerticalAlign moves the caption without recomputing the layout.
func (o *TextOverlay) SetVerticalAlign(a VerticalAlign) {
	o.valign = a
}

// Lines returns the wrapped lines.
func (o *TextOverlay) Lines() []string {
	out := make([]string, len(o.lines))
	for i, l := range o.lines {
		out[i] = l.text
	}
	return out
}

// Empty reports whether there is nothing to draw.
func (o *TextOverlay) Empty() bool {
	return len(o.lines) == 0
}

// Bounds is the backdrop rectangle for the current alignment.
func (o *TextOverlay) Bounds() image.Rectangle {
	if o.Empty() {
		return image.Rectangle{}
	}
	pad := o.opts.Padding
	w := o.blockW + 2*pad
	h := len(o.lines)*o.lineHeight + 2*pad

	var y int
	switch o.valign {
	case AlignTop:
		y = o.opts.Margin
	case AlignCenter:
		y = (o.opts.Height - h) / 2
	default:
		y = o.opts.Height - o.opts.Margin - h
	}

	var x int
	switch o.opts.HAlign {
	case AlignLeft:
		x = o.opts.Margin
	case AlignRight:
		x = o.opts.Width - o.opts.Margin - w
	default:
		x = (o.opts.Width - w) / 2
	}
	return image.Rect(x, y, x+w, y+h)
}

// Draw renders the caption onto dst with the given opacity in [0,1].
func (o *TextOverlay) Draw(dst draw.Image, alpha float64) {
	if o.Empty() || alpha <= 0 {
		return
	}
	if alpha > 1 {
		alpha = 1
	}

	box := o.Bounds()
	if o.opts.Backdrop.A > 0 {
		mask := image.NewUniform(color.Alpha{A: uint8(alpha * 255)})
		draw.DrawMask(dst, box, image.NewUniform(o.opts.Backdrop), image.Point{}, mask, image.Point{}, draw.Over)
	}

	text := o.opts.TextColor
	text.A = uint8(float64(text.A) * alpha)
	shadow := color.NRGBA{A: uint8(180 * alpha)}

	pad := o.opts.Padding
	for i, l := range o.lines {
		var x int
		switch o.opts.HAlign {
		case AlignLeft:
			x = box.Min.X + pad
		case AlignRight:
			x = box.Max.X - pad - l.width
		default:
			x = box.Min.X + (box.Dx()-l.width)/2
		}
		y := box.Min.Y + pad + i*o.lineHeight + o.ascent

		if o.opts.Shadow {
			d := &font.Drawer{Dst: dst, Src: image.NewUniform(shadow), Face: o.opts.Face, Dot: fixed.P(x+2, y+2)}
			d.DrawString(l.text)
		}
		d := &font.Drawer{Dst: dst, Src: image.NewUniform(text), Face: o.opts.Face, Dot: fixed.P(x, y)}
		d.DrawString(l.text)
	}
}
