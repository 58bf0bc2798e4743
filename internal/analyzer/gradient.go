package analyzer

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// analysisWidth bounds the work per page; detail smaller than a few source
// pixels does not matter for camera framing.
const analysisWidth = 320

// gradientMap is a Sobel magnitude image of a downscaled grayscale copy.
type gradientMap struct {
	w, h  int
	mag   []float64
	scale float64 // source pixels per analysis pixel
	src   image.Rectangle
}

func (g *gradientMap) at(x, y int) float64 {
	return g.mag[y*g.w+x]
}

// toSource maps an analysis-space rectangle back to source pixels.
func (g *gradientMap) toSource(r image.Rectangle) image.Rectangle {
	out := image.Rect(
		g.src.Min.X+int(float64(r.Min.X)*g.scale),
		g.src.Min.Y+int(float64(r.Min.Y)*g.scale),
		g.src.Min.X+int(math.Ceil(float64(r.Max.X)*g.scale)),
		g.src.Min.Y+int(math.Ceil(float64(r.Max.Y)*g.scale)),
	)
	return out.Intersect(g.src)
}

// toGrayscale converts an image to grayscale, downscaled to analysisWidth.
func toGrayscale(img image.Image) (*image.Gray, float64) {
	b := img.Bounds()
	scale := 1.0
	w, h := b.Dx(), b.Dy()
	if w > analysisWidth {
		scale = float64(w) / analysisWidth
		w = analysisWidth
		h = int(math.Max(1, math.Round(float64(h)/scale)))
	}
	gray := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, b, draw.Src, nil)
	return gray, scale
}

// sobel computes gradient magnitudes; the one pixel border stays zero.
func sobel(img image.Image) *gradientMap {
	gray, scale := toGrayscale(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	g := &gradientMap{w: w, h: h, mag: make([]float64, w*h), scale: scale, src: img.Bounds()}

	px := func(x, y int) float64 { return float64(gray.Pix[y*gray.Stride+x]) }
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			sumX := -px(x-1, y-1) + px(x+1, y-1) - 2*px(x-1, y) + 2*px(x+1, y) - px(x-1, y+1) + px(x+1, y+1)
			sumY := -px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1) + px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)
			g.mag[y*w+x] = math.Sqrt(sumX*sumX + sumY*sumY)
		}
	}
	return g
}
