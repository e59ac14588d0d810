package ebitencanvas

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/colorm"

	"github.com/phanxgames/montage/graphics"
	"github.com/phanxgames/montage/media"
)

type filterContext struct {
	c   *Canvas
	img *ebiten.Image
	m   media.Matrix
}

func (f *filterContext) Blur(sigma media.Size) {
	f.img = f.c.blur(f.img, blurRadius(sigma, f.m))
}

// DropShadow tints the layer's alpha with col, offsets and blurs it, then
// draws the layer on top unless shadowOnly is set.
func (f *filterContext) DropShadow(offset media.Point, sigma media.Size, col media.Color, shadowOnly bool) {
	b := f.img.Bounds()
	shadow := f.c.pool.Acquire(b.Dx(), b.Dy())

	var cm colorm.ColorM
	cm.Scale(0, 0, 0, min(max(col.A, 0), 1))
	cm.Translate(col.R, col.G, col.B, 0)
	op := &colorm.DrawImageOptions{}
	op.GeoM.Translate(f.m[0]*offset.X+f.m[2]*offset.Y, f.m[1]*offset.X+f.m[3]*offset.Y)
	colorm.DrawImage(shadow, f.img, cm, op)

	shadow = f.c.blur(shadow, blurRadius(sigma, f.m))
	if !shadowOnly {
		shadow.DrawImage(f.img, nil)
	}
	f.c.pool.Release(f.img)
	f.img = shadow
}

// blurRadius converts a local sigma to a device blur radius covering three
// deviations.
func blurRadius(sigma media.Size, m media.Matrix) float64 {
	sx := sigma.Width * math.Hypot(m[0], m[1])
	sy := sigma.Height * math.Hypot(m[2], m[3])
	return 3 * max(sx, sy)
}

func kawasePasses(radius float64) int {
	if radius < 1 {
		return 0
	}
	return max(int(math.Ceil(math.Log2(radius))), 1)
}

// blur runs a Kawase downscale/upscale blur over src, which must have
// power-of-two dimensions. src is consumed and the blurred image returned.
func (c *Canvas) blur(src *ebiten.Image, radius float64) *ebiten.Image {
	passes := kawasePasses(radius)
	if passes == 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	chain := make([]*ebiten.Image, 0, passes)
	defer func() {
		for _, img := range chain {
			c.pool.Release(img)
		}
	}()

	op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
	scaleInto := func(dst, from *ebiten.Image) {
		op.GeoM.Reset()
		fb, db := from.Bounds(), dst.Bounds()
		op.GeoM.Scale(float64(db.Dx())/float64(fb.Dx()), float64(db.Dy())/float64(fb.Dy()))
		dst.DrawImage(from, op)
	}

	current := src
	for i := 0; i < passes; i++ {
		w, h = max(w/2, 1), max(h/2, 1)
		next := c.pool.Acquire(w, h)
		chain = append(chain, next)
		scaleInto(next, current)
		current = next
	}
	for i := passes - 2; i >= 0; i-- {
		chain[i].Clear()
		scaleInto(chain[i], current)
		current = chain[i]
	}
	out := c.pool.Acquire(b.Dx(), b.Dy())
	scaleInto(out, current)
	c.pool.Release(src)
	return out
}

var _ graphics.FilterContext = (*filterContext)(nil)
