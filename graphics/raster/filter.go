package raster

import (
	"image"
	"math"
	"sync"

	"github.com/phanxgames/montage/graphics"
	"github.com/phanxgames/montage/media"
)

// filterContext runs filter effects over a layer. Effects may replace img.
type filterContext struct {
	c   *Canvas
	img *image.RGBA
	m   media.Matrix
}

func (f *filterContext) Blur(sigma media.Size) {
	sx, sy := deviceSigma(sigma, f.m)
	gaussianBlur(f.img, sx, sy)
}

func (f *filterContext) DropShadow(offset media.Point, sigma media.Size, col media.Color, shadowOnly bool) {
	shadow := f.c.acquire()
	ox := int(math.Round(f.m[0]*offset.X + f.m[2]*offset.Y))
	oy := int(math.Round(f.m[1]*offset.X + f.m[3]*offset.Y))
	p := col.RGBA()
	src := f.img
	r := src.Rect.Intersect(shadow.Rect.Sub(image.Pt(ox, oy)))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			a := src.Pix[src.PixOffset(x, y)+3]
			if a == 0 {
				continue
			}
			i := shadow.PixOffset(x+ox, y+oy)
			shadow.Pix[i+0] = mulDiv255(p.R, a)
			shadow.Pix[i+1] = mulDiv255(p.G, a)
			shadow.Pix[i+2] = mulDiv255(p.B, a)
			shadow.Pix[i+3] = mulDiv255(p.A, a)
		}
	}
	sx, sy := deviceSigma(sigma, f.m)
	gaussianBlur(shadow, sx, sy)
	if !shadowOnly {
		composite(src, state{target: shadow, clip: shadow.Rect, opacity: 1})
	}
	f.c.release(src)
	f.img = shadow
}

// deviceSigma scales a local blur radius by the transform's axis lengths.
func deviceSigma(sigma media.Size, m media.Matrix) (float64, float64) {
	return sigma.Width * math.Hypot(m[0], m[1]), sigma.Height * math.Hypot(m[2], m[3])
}

// gaussianKernel returns a normalized kernel covering three deviations.
func gaussianKernel(sigma float64) []float32 {
	if sigma <= 0 {
		return []float32{1}
	}
	half := int(math.Ceil(sigma * 3))
	k := make([]float32, half*2+1)
	twoSigmaSq := 2 * sigma * sigma
	var sum float64
	for i := range k {
		x := float64(i - half)
		v := math.Exp(-x * x / twoSigmaSq)
		k[i] = float32(v)
		sum += v
	}
	inv := float32(1 / sum)
	for i := range k {
		k[i] *= inv
	}
	return k
}

var floatPool = sync.Pool{New: func() any { return new([]float32) }}

// gaussianBlur blurs img in place with a separable kernel. Pixels outside
// the image are transparent.
func gaussianBlur(img *image.RGBA, sx, sy float64) {
	if sx <= 0 && sy <= 0 {
		return
	}
	kx, ky := gaussianKernel(sx), gaussianKernel(sy)
	r := opaqueBounds(img)
	if r.Empty() {
		return
	}
	hx, hy := len(kx)/2, len(ky)/2
	r = image.Rect(r.Min.X-hx, r.Min.Y-hy, r.Max.X+hx, r.Max.Y+hy).Intersect(img.Rect)
	w, h := r.Dx(), r.Dy()

	buf := floatPool.Get().(*[]float32)
	defer floatPool.Put(buf)
	if cap(*buf) < w*h*4 {
		*buf = make([]float32, w*h*4)
	}
	tmp := (*buf)[:w*h*4]

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [4]float32
			for k, wt := range kx {
				px := r.Min.X + x + k - hx
				if px < r.Min.X || px >= r.Max.X {
					continue
				}
				i := img.PixOffset(px, r.Min.Y+y)
				acc[0] += float32(img.Pix[i+0]) * wt
				acc[1] += float32(img.Pix[i+1]) * wt
				acc[2] += float32(img.Pix[i+2]) * wt
				acc[3] += float32(img.Pix[i+3]) * wt
			}
			copy(tmp[(y*w+x)*4:], acc[:])
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [4]float32
			for k, wt := range ky {
				ty := y + k - hy
				if ty < 0 || ty >= h {
					continue
				}
				t := tmp[(ty*w+x)*4:]
				acc[0] += t[0] * wt
				acc[1] += t[1] * wt
				acc[2] += t[2] * wt
				acc[3] += t[3] * wt
			}
			i := img.PixOffset(r.Min.X+x, r.Min.Y+y)
			a := clampByte(acc[3])
			img.Pix[i+0] = min(clampByte(acc[0]), a)
			img.Pix[i+1] = min(clampByte(acc[1]), a)
			img.Pix[i+2] = min(clampByte(acc[2]), a)
			img.Pix[i+3] = a
		}
	}
}

// opaqueBounds is the smallest rectangle holding every non-transparent
// pixel of img.
func opaqueBounds(img *image.RGBA) image.Rectangle {
	b := img.Rect
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X, b.Min.Y
	found := false
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x, i = x+1, i+4 {
			if img.Pix[i+3] == 0 {
				continue
			}
			found = true
			minX, maxX = min(minX, x), max(maxX, x+1)
			minY, maxY = min(minY, y), max(maxY, y+1)
		}
	}
	if !found {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX, maxY)
}

func clampByte(v float32) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v + 0.5)
	}
}

var _ graphics.FilterContext = (*filterContext)(nil)
