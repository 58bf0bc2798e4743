package analyzer

import (
	"image"
	"image/color"
	"testing"
)

func squareImage(w, h int, square image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := square.Min.Y; y < square.Max.Y; y++ {
		for x := square.Min.X; x < square.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func TestContrastDetector(t *testing.T) {
	// A white rectangle (simulating an illustrated figure) on black.
	img := squareImage(200, 200, image.Rect(50, 50, 150, 150))

	blocks, err := NewContrastDetector().Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(blocks) == 0 {
		t.Fatal("Expected at least one block, got none")
	}

	block := blocks[0]
	if block.Rect.Dx() < 80 || block.Rect.Dy() < 80 {
		t.Errorf("Block too small: %v", block.Rect)
	}
	if !block.Rect.Overlaps(image.Rect(50, 50, 150, 150)) {
		t.Errorf("Block %v misses the rectangle", block.Rect)
	}
	if block.Score != 1 {
		t.Errorf("strongest block should score 1, got %f", block.Score)
	}
}

func TestEnergyDetector(t *testing.T) {
	img := squareImage(640, 480, image.Rect(20, 20, 140, 140))

	blocks, err := NewEnergyDetector().Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(blocks) == 0 {
		t.Fatal("expected blocks")
	}
	if want := image.Rect(0, 0, 160, 160); blocks[0].Rect != want {
		t.Errorf("expected top cell %v, got %v", want, blocks[0].Rect)
	}
	for i := 1; i < len(blocks); i++ {
		if blocks[i].Score > blocks[i-1].Score {
			t.Errorf("blocks not ordered by score: %v", blocks)
		}
	}
}

func TestFlatImageHasNoBlocks(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for _, d := range []Detector{NewEnergyDetector(), NewContrastDetector()} {
		blocks, err := d.Detect(img)
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(blocks) != 0 {
			t.Errorf("%T: expected no blocks, got %v", d, blocks)
		}
	}
}

func TestDetectorRegistry(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
	}{
		{"contrast", false},
		{"energy", false},
		{"", false}, // default
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			detector, err := NewDetector(tt.variant)

			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				if detector == nil {
					t.Error("Expected detector, got nil")
				}
			}
		})
	}
}
