package system

import (
	"image"
	"sync"
)

// ImagePool reuses *image.RGBA frame surfaces between renders so batch mode
// does not allocate a fresh frame buffer per story.
type ImagePool struct {
	pools map[image.Rectangle]*sync.Pool
	mu    sync.RWMutex
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Rectangle]*sync.Pool)}
}

var globalPool = NewImagePool()

// GetImage returns a cleared surface of the given bounds from the shared pool.
func GetImage(rect image.Rectangle) *image.RGBA {
	return globalPool.Get(rect)
}

// PutImage hands a surface back to the shared pool.
func PutImage(img *image.RGBA) {
	globalPool.Put(img)
}

func (p *ImagePool) pool(rect image.Rectangle) *sync.Pool {
	p.mu.RLock()
	pool, exists := p.pools[rect]
	p.mu.RUnlock()
	if exists {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if pool, exists = p.pools[rect]; !exists {
		pool = &sync.Pool{
			New: func() any {
				return image.NewRGBA(rect)
			},
		}
		p.pools[rect] = pool
	}
	return pool
}

// Get returns a surface with all pixels zeroed.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	img := p.pool(rect).Get().(*image.RGBA)
	clear(img.Pix)
	return img
}

func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Empty() {
		return
	}
	p.pool(img.Rect).Put(img)
}
