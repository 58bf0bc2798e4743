package compositor

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"

	"github.com/ivlev/storyvideo/internal/motion"
	"github.com/ivlev/storyvideo/internal/overlay"
)

// ParseScaler maps a scaler name to an x/image/draw implementation.
func ParseScaler(name string) (draw.Scaler, error) {
	switch strings.ToLower(name) {
	case "", "approx-bilinear":
		return draw.ApproxBiLinear, nil
	case "nearest":
		return draw.NearestNeighbor, nil
	case "bilinear":
		return draw.BiLinear, nil
	case "catmull-rom":
		return draw.CatmullRom, nil
	default:
		return nil, fmt.Errorf("unknown scaler: %s", name)
	}
}

func (c *Compositor) drawFrame(cTime int64) {
	bounds := c.surface.Bounds()
	draw.Draw(c.surface, bounds, image.Black, image.Point{}, draw.Src)

	i := c.state.index()
	c.drawPage(i, cTime, 1, c.current)

	if i+1 < c.tl.Len() && cTime >= c.tl.TransitionStart(i) {
		c.drawPage(i+1, cTime, c.tl.Alpha(i, cTime), c.next)
	}

	if i >= 0 {
		c.cache.EvictBefore(i)
	}
}

// drawPage draws page i over the surface at alpha. Index -1 is the black
// lead-in.
func (c *Compositor) drawPage(i int, cTime int64, alpha float64, po *pageOverlay) {
	if alpha <= 0 {
		return
	}
	bounds := c.surface.Bounds()
	if i < 0 || i >= len(c.pages) {
		c.fillBlack(alpha)
		return
	}

	page := c.pages[i]
	img, ok := c.cache.Get(i, page.ImageRef)
	if ok {
		sb := img.Bounds()
		sr := motion.Rect(c.tl.Position(i, cTime), bounds.Dx(), bounds.Dy(), sb.Dx(), sb.Dy(), page.Effect).Add(sb.Min)
		if alpha >= 1 {
			c.scaler.Scale(c.surface, bounds, img, sr, draw.Src, nil)
		} else {
			c.scaler.Scale(c.scratch, bounds, img, sr, draw.Src, nil)
			draw.DrawMask(c.surface, bounds, c.scratch, image.Point{}, alphaMask(alpha), image.Point{}, draw.Over)
		}
	} else {
		c.fillBlack(alpha)
	}

	if po != nil && po.ov != nil {
		if ok {
			po.ov.SetVerticalAlign(overlay.AlignBottom)
		} else {
			po.ov.SetVerticalAlign(overlay.AlignCenter)
		}
		po.ov.Draw(c.surface, alpha)
	}
}

func (c *Compositor) fillBlack(alpha float64) {
	if alpha >= 1 {
		draw.Draw(c.surface, c.surface.Bounds(), image.Black, image.Point{}, draw.Src)
		return
	}
	draw.DrawMask(c.surface, c.surface.Bounds(), image.Black, image.Point{}, alphaMask(alpha), image.Point{}, draw.Over)
}

func alphaMask(alpha float64) *image.Uniform {
	return image.NewUniform(color.Alpha16{A: uint16(alpha * 0xffff)})
}
