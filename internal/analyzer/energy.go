package analyzer

import (
	"image"
	"sort"
)

// EnergyDetector splits the page into a grid and ranks the cells by mean
// gradient magnitude.
type EnergyDetector struct {
	Columns, Rows int
	MinScore      float64 // cells below this fraction of the best are dropped
}

func NewEnergyDetector() *EnergyDetector {
	return &EnergyDetector{Columns: 4, Rows: 3, MinScore: 0.5}
}

// Detect returns cells ordered by descending score. A flat image yields no
// blocks.
func (d *EnergyDetector) Detect(img image.Image) ([]Block, error) {
	if img.Bounds().Empty() {
		return nil, nil
	}
	g := sobel(img)

	cols, rows := d.Columns, d.Rows
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	type cell struct {
		rect   image.Rectangle
		energy float64
	}
	cells := make([]cell, 0, cols*rows)
	best := 0.0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			rect := image.Rect(c*g.w/cols, r*g.h/rows, (c+1)*g.w/cols, (r+1)*g.h/rows)
			if rect.Empty() {
				continue
			}
			sum := 0.0
			for y := rect.Min.Y; y < rect.Max.Y; y++ {
				for x := rect.Min.X; x < rect.Max.X; x++ {
					sum += g.at(x, y)
				}
			}
			e := sum / float64(rect.Dx()*rect.Dy())
			if e > best {
				best = e
			}
			cells = append(cells, cell{rect, e})
		}
	}
	if best == 0 {
		return nil, nil
	}

	sort.SliceStable(cells, func(i, j int) bool { return cells[i].energy > cells[j].energy })

	var blocks []Block
	for _, c := range cells {
		score := c.energy / best
		if score < d.MinScore {
			break
		}
		blocks = append(blocks, Block{Rect: g.toSource(c.rect), Score: score})
	}
	return blocks, nil
}
