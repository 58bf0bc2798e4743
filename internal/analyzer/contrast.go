package analyzer

import (
	"image"
	"sort"
)

// ContrastDetector implements edge-based region detection using Sobel operator
type ContrastDetector struct {
	MinBlockArea  int     // Minimum area in analysis pixels²
	EdgeThreshold float64 // Gradient magnitude threshold
	DilateRadius  int
}

// NewContrastDetector creates a new contrast-based detector with default settings
func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  100,  // ~10x10 analysis pixels
		EdgeThreshold: 30.0, // Moderate sensitivity
		DilateRadius:  2,
	}
}

// Detect finds connected edge regions, largest energy first.
func (d *ContrastDetector) Detect(img image.Image) ([]Block, error) {
	if img.Bounds().Empty() {
		return nil, nil
	}
	g := sobel(img)

	edges := make([]bool, g.w*g.h)
	for i, m := range g.mag {
		edges[i] = m > d.EdgeThreshold
	}
	// Dilation connects nearby glyphs and strokes into regions.
	for i := 0; i < 2; i++ {
		edges = dilate(edges, g.w, g.h, d.DilateRadius)
	}

	type region struct {
		rect   image.Rectangle
		energy float64
	}
	var regions []region
	best := 0.0
	for _, rect := range findContours(edges, g.w, g.h) {
		if rect.Dx()*rect.Dy() < d.MinBlockArea {
			continue
		}
		e := 0.0
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				e += g.at(x, y)
			}
		}
		if e > best {
			best = e
		}
		regions = append(regions, region{rect, e})
	}

	sort.SliceStable(regions, func(i, j int) bool { return regions[i].energy > regions[j].energy })

	blocks := make([]Block, 0, len(regions))
	for _, r := range regions {
		score := 0.0
		if best > 0 {
			score = r.energy / best
		}
		blocks = append(blocks, Block{Rect: g.toSource(r.rect), Score: score})
	}
	return blocks, nil
}

// dilate performs morphological dilation with a square kernel
func dilate(src []bool, w, h, radius int) []bool {
	if radius <= 0 {
		return src
	}
	out := make([]bool, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !src[y*w+x] {
				continue
			}
			for ky := max(0, y-radius); ky <= min(h-1, y+radius); ky++ {
				for kx := max(0, x-radius); kx <= min(w-1, x+radius); kx++ {
					out[ky*w+kx] = true
				}
			}
		}
	}
	return out
}

// findContours finds bounding rectangles of connected set regions
func findContours(set []bool, w, h int) []image.Rectangle {
	visited := make([]bool, len(set))
	var contours []image.Rectangle

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if set[y*w+x] && !visited[y*w+x] {
				contours = append(contours, floodFill(set, visited, w, h, x, y))
			}
		}
	}
	return contours
}

// floodFill performs flood fill and returns bounding rectangle
func floodFill(set, visited []bool, w, h, startX, startY int) image.Rectangle {
	minX, minY := startX, startY
	maxX, maxY := startX, startY

	stack := []image.Point{{X: startX, Y: startY}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, y := p.X, p.Y
		if x < 0 || x >= w || y < 0 || y >= h {
			continue
		}
		i := y*w + x
		if visited[i] || !set[i] {
			continue
		}
		visited[i] = true

		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)

		stack = append(stack,
			image.Point{X: x + 1, Y: y},
			image.Point{X: x - 1, Y: y},
			image.Point{X: x, Y: y + 1},
			image.Point{X: x, Y: y - 1},
		)
	}

	return image.Rect(minX, minY, maxX+1, maxY+1)
}
