package overlay

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFace is Go Regular at size points (72 DPI, so points are pixels).
func DefaultFace(size float64) (font.Face, error) {
	return parseFace(goregular.TTF, size)
}

// LoadFace reads a TTF/OTF file. An empty path selects DefaultFace.
func LoadFace(path string, size float64) (font.Face, error) {
	if path == "" {
		return DefaultFace(size)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	return parseFace(data, size)
}

func parseFace(data []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// fallbackFace is used when no face was configured.
var fallbackFace font.Face = basicfont.Face7x13
