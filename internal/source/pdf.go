package source

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// PDFProvider renders PDF pages. Documents stay open until Close.
type PDFProvider struct {
	DPI int

	mu   sync.Mutex
	docs map[string]*fitz.Document
}

func NewPDFProvider(dpi int) *PDFProvider {
	if dpi <= 0 {
		dpi = 150
	}
	return &PDFProvider{DPI: dpi, docs: make(map[string]*fitz.Document)}
}

// Page renders the 0-based page of the document at path. A missing document
// yields no image.
func (p *PDFProvider) Page(path string, page int) (image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, ok := p.docs[path]
	if !ok {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		var err error
		doc, err = fitz.New(path)
		if err != nil {
			return nil, err
		}
		p.docs[path] = doc
	}

	if page < 0 || page >= doc.NumPage() {
		return nil, fmt.Errorf("%s has %d pages, page %d requested", path, doc.NumPage(), page+1)
	}
	return doc.ImageDPI(page, float64(p.DPI))
}

// PageCount opens the document if needed and returns its page count.
func (p *PDFProvider) PageCount(path string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, ok := p.docs[path]
	if !ok {
		var err error
		doc, err = fitz.New(path)
		if err != nil {
			return 0, err
		}
		p.docs[path] = doc
	}
	return doc.NumPage(), nil
}

func (p *PDFProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for path, doc := range p.docs {
		if err := doc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
		delete(p.docs, path)
	}
	return errors.Join(errs...)
}
