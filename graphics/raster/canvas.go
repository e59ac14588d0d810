// Package raster implements graphics.Canvas in software over an
// *image.RGBA. Shapes are scan-converted with x/image/vector, bitmaps and
// text are resampled with x/image/draw, and filter effects and opacity
// masks run on offscreen layers that are composited back on Pop.
package raster

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/graphics"
	"github.com/phanxgames/montage/media"
)

// kappa places cubic control points to approximate a quarter circle.
const kappa = 0.5522847498307936

type state struct {
	target  *image.RGBA
	m       media.Matrix
	clip    image.Rectangle
	blend   media.BlendMode
	opacity float64
	fg      graphics.Brush
}

type layerKind uint8

const (
	layerFilter layerKind = iota
	layerMask
)

// layer is an offscreen target opened by PushFilterEffect or
// PushOpacityMask.
type layer struct {
	kind   layerKind
	effect graphics.FilterEffect
	mask   graphics.Brush
	bounds media.Rect
	m      media.Matrix
}

type frame struct {
	saved state
	layer *layer
}

// Canvas is a software canvas. It is not safe for concurrent use.
type Canvas struct {
	base  *image.RGBA
	cur   state
	stack []frame
	free  []*image.RGBA
}

// New returns a transparent canvas of w x h pixels.
func New(w, h int) *Canvas {
	return NewFromImage(image.NewRGBA(image.Rect(0, 0, w, h)))
}

// NewFromImage draws into img. img must be anchored at the origin.
func NewFromImage(img *image.RGBA) *Canvas {
	c := &Canvas{base: img}
	c.reset()
	return c
}

func (c *Canvas) reset() {
	c.cur = state{target: c.base, m: media.Identity, clip: c.base.Bounds(), opacity: 1}
}

// Image returns the pixels drawn so far. The image is premultiplied.
func (c *Canvas) Image() *image.RGBA { return c.base }

func (c *Canvas) Size() image.Point { return c.base.Rect.Size() }

func (c *Canvas) Transform() media.Matrix { return c.cur.m }

// Level is the current depth of the state stack.
func (c *Canvas) Level() int { return len(c.stack) }

func (c *Canvas) Clear(col media.Color) {
	for i, f := range c.stack {
		if f.layer == nil {
			continue
		}
		if i+1 < len(c.stack) {
			c.release(c.stack[i+1].saved.target)
		} else {
			c.release(c.cur.target)
		}
	}
	c.stack = c.stack[:0]
	c.reset()
	p := col.RGBA()
	pix := c.base.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = p.R, p.G, p.B, p.A
	}
}

func (c *Canvas) save(l *layer) graphics.PushedState {
	level := len(c.stack)
	c.stack = append(c.stack, frame{saved: c.cur, layer: l})
	return graphics.NewPushedState(c, level)
}

func (c *Canvas) PushTransform(m media.Matrix) graphics.PushedState {
	s := c.save(nil)
	c.cur.m = m.Then(c.cur.m)
	return s
}

// PushClip clips to the device bounding box of r.
func (c *Canvas) PushClip(r media.Rect) graphics.PushedState {
	s := c.save(nil)
	c.cur.clip = c.cur.clip.Intersect(deviceRect(r, c.cur.m))
	return s
}

func (c *Canvas) PushBlendMode(b media.BlendMode) graphics.PushedState {
	s := c.save(nil)
	c.cur.blend = b
	return s
}

func (c *Canvas) PushOpacity(o float64) graphics.PushedState {
	s := c.save(nil)
	c.cur.opacity *= min(max(o, 0), 1)
	return s
}

func (c *Canvas) PushForeground(b graphics.Brush) graphics.PushedState {
	s := c.save(nil)
	c.cur.fg = b
	return s
}

func (c *Canvas) PushOpacityMask(mask graphics.Brush, bounds media.Rect) graphics.PushedState {
	if mask == nil || core.IsNil(mask) {
		return c.save(nil)
	}
	s := c.save(&layer{kind: layerMask, mask: mask, bounds: bounds, m: c.cur.m})
	c.beginLayer(c.cur.clip)
	return s
}

func (c *Canvas) PushFilterEffect(fe graphics.FilterEffect, bounds media.Rect) graphics.PushedState {
	if fe == nil || core.IsNil(fe) || !fe.IsEnabled() {
		return c.save(nil)
	}
	s := c.save(&layer{kind: layerFilter, effect: fe, bounds: bounds, m: c.cur.m})
	c.beginLayer(c.base.Bounds())
	return s
}

func (c *Canvas) beginLayer(clip image.Rectangle) {
	c.cur.target = c.acquire()
	c.cur.clip = clip
	c.cur.blend = media.BlendNormal
	c.cur.opacity = 1
}

// PopTo unwinds the stack to level, compositing any layers it closes.
func (c *Canvas) PopTo(level int) {
	for len(c.stack) > level {
		f := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]
		if f.layer != nil {
			c.endLayer(f)
		}
		c.cur = f.saved
	}
}

func (c *Canvas) endLayer(f frame) {
	img := c.cur.target
	switch f.layer.kind {
	case layerFilter:
		ctx := &filterContext{c: c, img: img, m: f.layer.m}
		f.layer.effect.ApplyTo(ctx)
		img = ctx.img
	case layerMask:
		applyMask(img, f.layer)
	}
	composite(img, f.saved)
	c.release(img)
}

func (c *Canvas) acquire() *image.RGBA {
	if n := len(c.free); n > 0 {
		img := c.free[n-1]
		c.free = c.free[:n-1]
		clear(img.Pix)
		return img
	}
	return image.NewRGBA(c.base.Bounds())
}

func (c *Canvas) release(img *image.RGBA) {
	if img != nil && img != c.base {
		c.free = append(c.free, img)
	}
}

// --- drawing ---

func (c *Canvas) DrawDrawable(d graphics.Drawable) { d.Render(c) }

func (c *Canvas) DrawRectangle(r media.Rect, fill graphics.Brush) {
	if r.IsEmpty() || r.IsInvalid() {
		return
	}
	cov := c.rasterize(r, func(z *vector.Rasterizer, p func(x, y float64) (float32, float32)) {
		z.MoveTo(p(r.Left(), r.Top()))
		z.LineTo(p(r.Right(), r.Top()))
		z.LineTo(p(r.Right(), r.Bottom()))
		z.LineTo(p(r.Left(), r.Bottom()))
		z.ClosePath()
	})
	c.fillCoverage(cov, fill, r)
}

func (c *Canvas) DrawEllipse(r media.Rect, fill graphics.Brush) {
	if r.IsEmpty() || r.IsInvalid() {
		return
	}
	cx, cy := r.Center().X, r.Center().Y
	rx, ry := r.Width/2, r.Height/2
	kx, ky := rx*kappa, ry*kappa
	cov := c.rasterize(r, func(z *vector.Rasterizer, p func(x, y float64) (float32, float32)) {
		cubic := func(x1, y1, x2, y2, x3, y3 float64) {
			ax, ay := p(x1, y1)
			bx, by := p(x2, y2)
			dx, dy := p(x3, y3)
			z.CubeTo(ax, ay, bx, by, dx, dy)
		}
		z.MoveTo(p(cx+rx, cy))
		cubic(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
		cubic(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
		cubic(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
		cubic(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
		z.ClosePath()
	})
	c.fillCoverage(cov, fill, r)
}

func (c *Canvas) DrawBitmap(img image.Image, dst media.Rect) {
	b := img.Bounds()
	if b.Empty() || dst.IsEmpty() || dst.IsInvalid() {
		return
	}
	bbox := c.bbox(dst)
	if bbox.Empty() {
		return
	}
	m := media.Translation(-float64(b.Min.X), -float64(b.Min.Y)).
		Then(media.Scale(dst.Width/float64(b.Dx()), dst.Height/float64(b.Dy()))).
		Then(media.Translation(dst.X, dst.Y)).
		Then(c.cur.m)
	tmp := image.NewRGBA(bbox)
	xdraw.BiLinear.Transform(tmp, aff3(m), img, b, xdraw.Src, nil)
	composite(tmp, c.cur)
}

// DrawText draws text in the fixed-width face scaled to fontSize, with
// origin at the top-left of the first line.
func (c *Canvas) DrawText(text string, fontSize float64, origin media.Point, fill graphics.Brush) {
	size := graphics.MeasureText(text, fontSize)
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	local := media.Rect{X: origin.X, Y: origin.Y, Width: size.Width, Height: size.Height}
	bbox := c.bbox(local)
	if bbox.Empty() {
		return
	}
	glyphs := textMask(text)
	scale := fontSize / float64(basicfont.Face7x13.Height)
	m := media.Scale(scale, scale).Then(media.Translation(origin.X, origin.Y)).Then(c.cur.m)
	cov := image.NewAlpha(bbox)
	xdraw.BiLinear.Transform(cov, aff3(m), glyphs, glyphs.Bounds(), xdraw.Src, nil)
	c.fillCoverage(cov, fill, local)
}

// textMask renders text at the face's native size.
func textMask(text string) *image.Alpha {
	face := basicfont.Face7x13
	sz := graphics.MeasureText(text, float64(face.Height))
	mask := image.NewAlpha(image.Rect(0, 0, int(sz.Width), int(sz.Height)))
	d := font.Drawer{Dst: mask, Src: image.Opaque, Face: face}
	line := 0
	start := 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != '\n' {
			continue
		}
		d.Dot = fixed.P(0, line*face.Height+face.Ascent)
		d.DrawString(text[start:i])
		line++
		start = i + 1
	}
	return mask
}

// bbox is the device rectangle r covers, clipped.
func (c *Canvas) bbox(r media.Rect) image.Rectangle {
	return deviceRect(r, c.cur.m).Intersect(c.cur.clip).Intersect(c.cur.target.Bounds())
}

func (c *Canvas) rasterize(r media.Rect, path func(z *vector.Rasterizer, p func(x, y float64) (float32, float32))) *image.Alpha {
	bbox := c.bbox(r)
	if bbox.Empty() {
		return nil
	}
	m := c.cur.m
	ox, oy := float64(bbox.Min.X), float64(bbox.Min.Y)
	z := vector.NewRasterizer(bbox.Dx(), bbox.Dy())
	path(z, func(x, y float64) (float32, float32) {
		dx, dy := m.TransformPoint(x, y)
		return float32(dx - ox), float32(dy - oy)
	})
	cov := image.NewAlpha(bbox)
	z.Draw(cov, bbox, image.Opaque, image.Point{})
	return cov
}

// fillCoverage paints fill (or the foreground) through cov and composites
// the result. local is the shape's rectangle for brush mapping.
func (c *Canvas) fillCoverage(cov *image.Alpha, fill graphics.Brush, local media.Rect) {
	if cov == nil {
		return
	}
	brush := fill
	if brush == nil || core.IsNil(brush) {
		brush = c.cur.fg
	}
	solid, isSolid := media.White, true
	if brush != nil && !core.IsNil(brush) {
		solid, isSolid = brush.Solid()
	}
	inv, invertible := c.cur.m.Invert()
	if !isSolid && !invertible {
		return
	}
	sp := solid.RGBA()
	r := cov.Rect
	src := image.NewRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			a := cov.Pix[cov.PixOffset(x, y)]
			if a == 0 {
				continue
			}
			p := sp
			if !isSolid {
				lx, ly := inv.TransformPoint(float64(x)+0.5, float64(y)+0.5)
				p = brush.ColorAt(media.Point{X: lx, Y: ly}, local).RGBA()
			}
			i := src.PixOffset(x, y)
			src.Pix[i+0] = mulDiv255(p.R, a)
			src.Pix[i+1] = mulDiv255(p.G, a)
			src.Pix[i+2] = mulDiv255(p.B, a)
			src.Pix[i+3] = mulDiv255(p.A, a)
		}
	}
	composite(src, c.cur)
}

// composite blends src onto st.target with st's blend mode, opacity and
// clip.
func composite(src *image.RGBA, st state) {
	r := src.Rect.Intersect(st.clip).Intersect(st.target.Rect)
	if r.Empty() || st.opacity <= 0 {
		return
	}
	fn := blendFor(st.blend)
	skipClear := st.blend != media.BlendMask && st.blend != media.BlendNone
	op := byte(min(st.opacity, 1)*255 + 0.5)
	dst := st.target
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := src.PixOffset(r.Min.X, y)
		di := dst.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x, si, di = x+1, si+4, di+4 {
			sr, sg, sb, sa := src.Pix[si], src.Pix[si+1], src.Pix[si+2], src.Pix[si+3]
			if op != 255 {
				sr, sg, sb, sa = mulDiv255(sr, op), mulDiv255(sg, op), mulDiv255(sb, op), mulDiv255(sa, op)
			}
			if sa == 0 && skipClear {
				continue
			}
			d := dst.Pix[di : di+4 : di+4]
			d[0], d[1], d[2], d[3] = fn(sr, sg, sb, sa, d[0], d[1], d[2], d[3])
		}
	}
}

// applyMask multiplies img by the alpha of the mask brush.
func applyMask(img *image.RGBA, l *layer) {
	inv, ok := l.m.Invert()
	if !ok {
		clear(img.Pix)
		return
	}
	solid, isSolid := l.mask.Solid()
	r := img.Rect
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i := img.PixOffset(x, y)
			if img.Pix[i+3] == 0 {
				continue
			}
			a := solid.A
			if !isSolid {
				lx, ly := inv.TransformPoint(float64(x)+0.5, float64(y)+0.5)
				a = l.mask.ColorAt(media.Point{X: lx, Y: ly}, l.bounds).A
			}
			f := byte(min(max(a, 0), 1)*255 + 0.5)
			img.Pix[i+0] = mulDiv255(img.Pix[i+0], f)
			img.Pix[i+1] = mulDiv255(img.Pix[i+1], f)
			img.Pix[i+2] = mulDiv255(img.Pix[i+2], f)
			img.Pix[i+3] = mulDiv255(img.Pix[i+3], f)
		}
	}
}

// deviceRect returns the pixel rectangle covering r under m.
func deviceRect(r media.Rect, m media.Matrix) image.Rectangle {
	if r.IsInvalid() {
		return image.Rectangle{}
	}
	d := r.TransformToAABB(m)
	return image.Rect(
		int(math.Floor(d.Left())), int(math.Floor(d.Top())),
		int(math.Ceil(d.Right())), int(math.Ceil(d.Bottom())),
	)
}

// aff3 converts a media.Matrix to the row-major form x/image/draw uses.
func aff3(m media.Matrix) f64.Aff3 {
	return f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
}

var _ graphics.Canvas = (*Canvas)(nil)
