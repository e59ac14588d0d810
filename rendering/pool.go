package rendering

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool recycles frame buffers by size. Images handed out by Get must
// come back through Put once the consumer is done with them.
type ImagePool struct {
	mu     sync.Mutex
	pools  map[image.Point]*sync.Pool
	leased atomic.Int64
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Point]*sync.Pool)}
}

func (p *ImagePool) pool(size image.Point) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sp, ok := p.pools[size]
	if !ok {
		sp = &sync.Pool{New: func() any { return image.NewRGBA(image.Rectangle{Max: size}) }}
		p.pools[size] = sp
	}
	return sp
}

// Get returns a w x h image. Its contents are undefined.
func (p *ImagePool) Get(w, h int) *image.RGBA {
	p.leased.Add(1)
	return p.pool(image.Pt(w, h)).Get().(*image.RGBA)
}

// Put returns img to the pool. A nil image is ignored.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.leased.Add(-1)
	p.pool(img.Rect.Size()).Put(img)
}

// Leased is the number of images out of the pool.
func (p *ImagePool) Leased() int { return int(p.leased.Load()) }
