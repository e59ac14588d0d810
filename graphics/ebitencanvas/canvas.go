// Package ebitencanvas implements graphics.Canvas on Ebitengine images so
// drawable trees can be previewed on the GPU.
package ebitencanvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/graphics"
	"github.com/phanxgames/montage/media"
)

const (
	ellipseSegments = 64
	gradientSteps   = 8
)

var textFace = text.NewGoXFace(basicfont.Face7x13)

var whiteImage *ebiten.Image

// whiteSubImage is the untextured fill source. The 1px border keeps linear
// sampling from reading outside the white area.
func whiteSubImage() *ebiten.Image {
	if whiteImage == nil {
		whiteImage = ebiten.NewImage(3, 3)
		whiteImage.Fill(color.White)
	}
	return whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
}

type state struct {
	target  *ebiten.Image
	m       media.Matrix
	clip    image.Rectangle
	blend   media.BlendMode
	opacity float64
	fg      graphics.Brush
}

func (s state) dst() *ebiten.Image { return s.target.SubImage(s.clip).(*ebiten.Image) }

type layerKind uint8

const (
	layerFilter layerKind = iota
	layerMask
)

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

// Canvas draws into an *ebiten.Image. Filter effects and opacity masks are
// rendered into pooled offscreen layers.
type Canvas struct {
	screen   *ebiten.Image
	size     image.Point
	cur      state
	stack    []frame
	pool     texturePool
	textures []*ebiten.Image
	verts    []ebiten.Vertex
	inds     []uint16
}

func New(screen *ebiten.Image) *Canvas {
	c := &Canvas{}
	c.SetTarget(screen)
	return c
}

// SetTarget switches to a new screen image and resets all state.
func (c *Canvas) SetTarget(screen *ebiten.Image) {
	c.unwind()
	c.screen = screen
	c.size = screen.Bounds().Size()
	c.reset()
}

func (c *Canvas) reset() {
	c.cur = state{target: c.screen, m: media.Identity, clip: c.screen.Bounds(), opacity: 1}
}

func (c *Canvas) Size() image.Point       { return c.size }
func (c *Canvas) Transform() media.Matrix { return c.cur.m }
func (c *Canvas) Level() int              { return len(c.stack) }

// Clear drops all pushed state, recycles the textures uploaded since the
// last Clear and fills the screen with col.
func (c *Canvas) Clear(col media.Color) {
	c.unwind()
	c.reset()
	for _, t := range c.textures {
		c.pool.Release(t)
	}
	c.textures = c.textures[:0]
	c.screen.Fill(col.RGBA())
}

// Dispose releases every offscreen image the canvas holds.
func (c *Canvas) Dispose() {
	c.Clear(media.Transparent)
	c.pool.Drain()
}

// unwind discards the stack without compositing open layers.
func (c *Canvas) unwind() {
	for i, f := range c.stack {
		if f.layer == nil {
			continue
		}
		if i+1 < len(c.stack) {
			c.pool.Release(c.stack[i+1].saved.target)
		} else {
			c.pool.Release(c.cur.target)
		}
	}
	c.stack = c.stack[:0]
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
	c.beginLayer(c.cur.clip.Intersect(deviceRect(bounds, c.cur.m)))
	return s
}

func (c *Canvas) PushFilterEffect(fe graphics.FilterEffect, bounds media.Rect) graphics.PushedState {
	if fe == nil || core.IsNil(fe) || !fe.IsEnabled() {
		return c.save(nil)
	}
	s := c.save(&layer{kind: layerFilter, effect: fe, bounds: bounds, m: c.cur.m})
	c.beginLayer(image.Rectangle{Max: c.size})
	return s
}

func (c *Canvas) beginLayer(clip image.Rectangle) {
	c.cur.target = c.pool.Acquire(c.size.X, c.size.Y)
	c.cur.clip = clip
	c.cur.blend = media.BlendNormal
	c.cur.opacity = 1
}

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
		st := state{target: img, m: f.layer.m, clip: img.Bounds(), blend: media.BlendMask, opacity: 1}
		c.fillRect(st, f.layer.bounds, f.layer.mask)
	}
	op := &ebiten.DrawImageOptions{Blend: ebitenBlend(f.saved.blend)}
	op.ColorScale.ScaleAlpha(float32(f.saved.opacity))
	f.saved.dst().DrawImage(img.SubImage(image.Rectangle{Max: c.size}).(*ebiten.Image), op)
	c.pool.Release(img)
}

// --- drawing ---

func (c *Canvas) DrawDrawable(d graphics.Drawable) { d.Render(c) }

func (c *Canvas) DrawRectangle(r media.Rect, fill graphics.Brush) {
	if r.IsEmpty() || r.IsInvalid() {
		return
	}
	c.fillRect(c.cur, r, c.brush(fill))
}

func (c *Canvas) DrawEllipse(r media.Rect, fill graphics.Brush) {
	if r.IsEmpty() || r.IsInvalid() {
		return
	}
	brush := c.brush(fill)
	c.verts, c.inds = c.verts[:0], c.inds[:0]
	center := r.Center()
	c.verts = append(c.verts, vertex(c.cur, center, paint(brush, center, r)))
	for i := 0; i < ellipseSegments; i++ {
		a := 2 * math.Pi * float64(i) / ellipseSegments
		p := media.Point{X: center.X + r.Width/2*math.Cos(a), Y: center.Y + r.Height/2*math.Sin(a)}
		c.verts = append(c.verts, vertex(c.cur, p, paint(brush, p, r)))
		c.inds = append(c.inds, 0, uint16(i+1), uint16((i+1)%ellipseSegments+1))
	}
	c.drawTriangles(c.cur)
}

// fillRect fills r, subdividing it so per-vertex colors follow a gradient.
func (c *Canvas) fillRect(st state, r media.Rect, brush graphics.Brush) {
	steps := 1
	if _, ok := solidOf(brush); !ok {
		steps = gradientSteps
	}
	c.verts, c.inds = c.verts[:0], c.inds[:0]
	for j := 0; j <= steps; j++ {
		for i := 0; i <= steps; i++ {
			p := media.Point{
				X: r.X + r.Width*float64(i)/float64(steps),
				Y: r.Y + r.Height*float64(j)/float64(steps),
			}
			c.verts = append(c.verts, vertex(st, p, paint(brush, p, r)))
		}
	}
	c.inds = gridIndices(c.inds, steps)
	c.drawTriangles(st)
}

func (c *Canvas) drawTriangles(st state) {
	op := &ebiten.DrawTrianglesOptions{
		Blend:          ebitenBlend(st.blend),
		ColorScaleMode: ebiten.ColorScaleModePremultipliedAlpha,
		AntiAlias:      true,
	}
	for i := range c.verts {
		v := &c.verts[i]
		o := float32(st.opacity)
		v.ColorR, v.ColorG, v.ColorB, v.ColorA = v.ColorR*o, v.ColorG*o, v.ColorB*o, v.ColorA*o
	}
	st.dst().DrawTriangles(c.verts, c.inds, whiteSubImage(), op)
}

func (c *Canvas) DrawBitmap(img image.Image, dst media.Rect) {
	b := img.Bounds()
	if b.Empty() || dst.IsEmpty() || dst.IsInvalid() {
		return
	}
	tex := c.texture(img)
	m := media.Scale(dst.Width/float64(b.Dx()), dst.Height/float64(b.Dy())).
		Then(media.Translation(dst.X, dst.Y)).
		Then(c.cur.m)
	op := &ebiten.DrawImageOptions{GeoM: geoM(m), Blend: ebitenBlend(c.cur.blend), Filter: ebiten.FilterLinear}
	op.ColorScale.ScaleAlpha(float32(c.cur.opacity))
	c.cur.dst().DrawImage(tex, op)
}

// texture uploads img for this frame. The result is anchored at the origin.
func (c *Canvas) texture(img image.Image) *ebiten.Image {
	if e, ok := img.(*ebiten.Image); ok {
		return e.SubImage(e.Bounds()).(*ebiten.Image)
	}
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) || rgba.Stride != 4*b.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	}
	tex := c.pool.Acquire(b.Dx(), b.Dy())
	c.textures = append(c.textures, tex)
	sub := tex.SubImage(image.Rect(0, 0, b.Dx(), b.Dy())).(*ebiten.Image)
	sub.WritePixels(rgba.Pix)
	return sub
}

func (c *Canvas) DrawText(s string, fontSize float64, origin media.Point, fill graphics.Brush) {
	size := graphics.MeasureText(s, fontSize)
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	local := media.Rect{X: origin.X, Y: origin.Y, Width: size.Width, Height: size.Height}
	col := paint(c.brush(fill), local.Center(), local)
	scale := fontSize / float64(basicfont.Face7x13.Height)

	op := &text.DrawOptions{}
	op.LineSpacing = float64(basicfont.Face7x13.Height)
	op.GeoM = geoM(media.Scale(scale, scale).Then(media.Translation(origin.X, origin.Y)).Then(c.cur.m))
	op.ColorScale.ScaleWithColor(col.RGBA())
	op.ColorScale.ScaleAlpha(float32(c.cur.opacity))
	op.Blend = ebitenBlend(c.cur.blend)
	op.Filter = ebiten.FilterLinear
	text.Draw(c.cur.dst(), s, textFace, op)
}

// brush resolves a nil fill to the foreground, then to white.
func (c *Canvas) brush(fill graphics.Brush) graphics.Brush {
	if fill != nil && !core.IsNil(fill) {
		return fill
	}
	if c.cur.fg != nil && !core.IsNil(c.cur.fg) {
		return c.cur.fg
	}
	return nil
}

func solidOf(b graphics.Brush) (media.Color, bool) {
	if b == nil {
		return media.White, true
	}
	return b.Solid()
}

func paint(b graphics.Brush, p media.Point, bounds media.Rect) media.Color {
	if c, ok := solidOf(b); ok {
		return c
	}
	return b.ColorAt(p, bounds)
}

// vertex places local point p under st's transform with a premultiplied
// color.
func vertex(st state, p media.Point, col media.Color) ebiten.Vertex {
	x, y := st.m.TransformPoint(p.X, p.Y)
	a := min(max(col.A, 0), 1)
	return ebiten.Vertex{
		DstX:   float32(x),
		DstY:   float32(y),
		SrcX:   1.5,
		SrcY:   1.5,
		ColorR: float32(min(max(col.R, 0), 1) * a),
		ColorG: float32(min(max(col.G, 0), 1) * a),
		ColorB: float32(min(max(col.B, 0), 1) * a),
		ColorA: float32(a),
	}
}

// gridIndices triangulates a (steps+1) x (steps+1) vertex grid.
func gridIndices(inds []uint16, steps int) []uint16 {
	row := steps + 1
	for j := 0; j < steps; j++ {
		for i := 0; i < steps; i++ {
			tl := uint16(j*row + i)
			tr, bl, br := tl+1, tl+uint16(row), tl+uint16(row)+1
			inds = append(inds, tl, tr, bl, tr, br, bl)
		}
	}
	return inds
}

func geoM(m media.Matrix) ebiten.GeoM {
	var g ebiten.GeoM
	g.SetElement(0, 0, m[0])
	g.SetElement(0, 1, m[2])
	g.SetElement(0, 2, m[4])
	g.SetElement(1, 0, m[1])
	g.SetElement(1, 1, m[3])
	g.SetElement(1, 2, m[5])
	return g
}

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

var _ graphics.Canvas = (*Canvas)(nil)
