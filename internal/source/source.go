// Package source resolves page image references to decoded images.
//
// A reference is one of
//
//	pages/01.png      an image file (png, jpeg)
//	book.pdf#3        page 3 (1-based) of a PDF, rendered with MuPDF
//	qr:https://...    a QR code generated for the text after the prefix
package source

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Provider returns the image behind a reference. A nil image with a nil
// error means there is no image for it; callers draw a plain frame instead.
type Provider interface {
	Image(ref string) (image.Image, error)
}

type Kind int

const (
	KindNone Kind = iota
	KindFile
	KindPDF
	KindQR
)

// Ref is a parsed image reference.
type Ref struct {
	Kind Kind
	Path string // file or PDF path
	Page int    // PDF page, 0-based
	Text string // QR payload
}

const qrPrefix = "qr:"

// ParseRef classifies a reference string.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Ref{Kind: KindNone}, nil
	case strings.HasPrefix(s, qrPrefix):
		text := strings.TrimPrefix(s, qrPrefix)
		if text == "" {
			return Ref{}, fmt.Errorf("empty qr reference")
		}
		return Ref{Kind: KindQR, Text: text}, nil
	}

	path, frag, hasFrag := strings.Cut(s, "#")
	if !strings.EqualFold(pathExt(path), ".pdf") {
		return Ref{Kind: KindFile, Path: s}, nil
	}
	r := Ref{Kind: KindPDF, Path: path}
	if hasFrag {
		n, err := strconv.Atoi(frag)
		if err != nil || n < 1 {
			return Ref{}, fmt.Errorf("invalid pdf page %q in %s", frag, s)
		}
		r.Page = n - 1
	}
	return r, nil
}

func pathExt(p string) string {
	i := strings.LastIndexByte(p, '.')
	if i < 0 || strings.ContainsAny(p[i:], `/\`) {
		return ""
	}
	return p[i:]
}

// Resolver dispatches references to the provider for their kind.
type Resolver struct {
	Files *FileProvider
	PDF   *PDFProvider
	QR    *QRProvider
}

// NewResolver builds a resolver with every provider enabled. dpi is used for
// PDF pages, qrSize is the QR image edge in pixels.
func NewResolver(dpi, qrSize int) *Resolver {
	return &Resolver{
		Files: &FileProvider{},
		PDF:   NewPDFProvider(dpi),
		QR:    &QRProvider{Size: qrSize},
	}
}

func (r *Resolver) Image(ref string) (image.Image, error) {
	parsed, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	switch parsed.Kind {
	case KindFile:
		return r.Files.Load(parsed.Path)
	case KindPDF:
		return r.PDF.Page(parsed.Path, parsed.Page)
	case KindQR:
		return r.QR.Generate(parsed.Text)
	default:
		return nil, nil
	}
}

// Close releases open PDF documents.
func (r *Resolver) Close() error {
	if r.PDF == nil {
		return nil
	}
	return r.PDF.Close()
}
