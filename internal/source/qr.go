package source

import (
	"image"

	"github.com/skip2/go-qrcode"
)

// QRProvider draws QR codes for credit pages ("qr:https://...").
type QRProvider struct {
	Size int // edge in pixels, default 512
}

func (p *QRProvider) Generate(text string) (image.Image, error) {
	size := p.Size
	if size <= 0 {
		size = 512
	}
	code, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return code.Image(size), nil
}
