package graphics

import (
	"math"

	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
	"github.com/phanxgames/montage/styling"
)

// Drawable is a visual node. Measure must run before Render for the
// current frame; Render on a hidden node is a no-op that keeps the
// previous Bounds.
type Drawable interface {
	core.Hierarchical
	media.Invalidatable
	animation.Applier
	styling.StylingApplier
	IsVisible() bool
	IsDirty() bool
	ZIndex() int
	// Bounds is the area covered in the parent's coordinates by the last
	// Measure or Render.
	Bounds() media.Rect
	Measure(available media.Size)
	Render(c Canvas)
	base() *DrawableBase
}

// drawableContent is implemented by every concrete drawable.
type drawableContent interface {
	// OnMeasure returns the local content rectangle for available.
	OnMeasure(available media.Size) media.Rect
	// OnDraw paints the content in local coordinates.
	OnDraw(c Canvas)
}

// container is implemented by drawables that lay out other drawables.
// Containers are not aligned: their children align themselves.
type container interface {
	drawableChildren() []Drawable
}

// DrawableBase holds the properties and the measure/render pipeline shared
// by every drawable. Concrete types embed it and implement OnMeasure and
// OnDraw.
type DrawableBase struct {
	Renderable
	bounds media.Rect
}

// DrawableType is the registered type of DrawableBase.
var DrawableType = core.DefineType("Drawable", RenderableType)

var (
	TransformProperty = core.Configure[Transform, core.Object](DrawableType, "Transform").
				SerializeName("transform").
				Register()
	TransformOriginProperty = core.Configure[media.RelativePoint, core.Object](DrawableType, "TransformOrigin").
				DefaultValue(media.Center).
				SerializeName("transformOrigin").
				Animatable().
				Register()
	AlignmentXProperty = core.Configure[media.AlignmentX, core.Object](DrawableType, "AlignmentX").
				SerializeName("alignmentX").
				Register()
	AlignmentYProperty = core.Configure[media.AlignmentY, core.Object](DrawableType, "AlignmentY").
				SerializeName("alignmentY").
				Register()
	ForegroundProperty = core.Configure[Brush, core.Object](DrawableType, "Foreground").
				SerializeName("foreground").
				Register()
	OpacityMaskProperty = core.Configure[Brush, core.Object](DrawableType, "OpacityMask").
				SerializeName("opacityMask").
				Register()
	FilterEffectProperty = core.Configure[FilterEffect, core.Object](DrawableType, "FilterEffect").
				SerializeName("filterEffect").
				Register()
	BlendModeProperty = core.Configure[media.BlendMode, core.Object](DrawableType, "BlendMode").
				SerializeName("blendMode").
				Register()
	OpacityProperty = core.Configure[float64, core.Object](DrawableType, "Opacity").
			DefaultValue(1).
			SerializeName("opacity").
			Validator(core.Range[float64]{Min: 0, Max: 1}).
			Animatable().
			Register()
	ZIndexProperty = core.Configure[int, core.Object](DrawableType, "ZIndex").
			SerializeName("zIndex").
			Register()
)

func init() {
	media.AffectsRender(DrawableType,
		TransformProperty, TransformOriginProperty, AlignmentXProperty, AlignmentYProperty,
		ForegroundProperty, OpacityMaskProperty, FilterEffectProperty, BlendModeProperty,
		OpacityProperty, ZIndexProperty)
}

// Init initializes the embedded object with empty bounds.
func (d *DrawableBase) Init(self core.Object, t *core.Type) {
	d.Renderable.Init(self, t)
	d.bounds = media.Rect{}
}

func (d *DrawableBase) base() *DrawableBase { return d }

func (d *DrawableBase) Bounds() media.Rect { return d.bounds }

func (d *DrawableBase) Transform() Transform                 { return core.GetValue(d.Self(), TransformProperty) }
func (d *DrawableBase) TransformOrigin() media.RelativePoint { return core.GetValue(d.Self(), TransformOriginProperty) }
func (d *DrawableBase) AlignmentX() media.AlignmentX         { return core.GetValue(d.Self(), AlignmentXProperty) }
func (d *DrawableBase) AlignmentY() media.AlignmentY         { return core.GetValue(d.Self(), AlignmentYProperty) }
func (d *DrawableBase) Foreground() Brush                    { return core.GetValue(d.Self(), ForegroundProperty) }
func (d *DrawableBase) OpacityMask() Brush                   { return core.GetValue(d.Self(), OpacityMaskProperty) }
func (d *DrawableBase) FilterEffect() FilterEffect           { return core.GetValue(d.Self(), FilterEffectProperty) }
func (d *DrawableBase) BlendMode() media.BlendMode           { return core.GetValue(d.Self(), BlendModeProperty) }
func (d *DrawableBase) Opacity() float64                     { return core.GetValue(d.Self(), OpacityProperty) }
func (d *DrawableBase) ZIndex() int                          { return core.GetValue(d.Self(), ZIndexProperty) }

func (d *DrawableBase) SetTransform(t Transform)                 { core.Set(d.Self(), TransformProperty, t) }
func (d *DrawableBase) SetTransformOrigin(p media.RelativePoint) { core.Set(d.Self(), TransformOriginProperty, p) }
func (d *DrawableBase) SetAlignmentX(a media.AlignmentX)         { core.Set(d.Self(), AlignmentXProperty, a) }
func (d *DrawableBase) SetAlignmentY(a media.AlignmentY)         { core.Set(d.Self(), AlignmentYProperty, a) }
func (d *DrawableBase) SetForeground(b Brush)                    { core.Set(d.Self(), ForegroundProperty, b) }
func (d *DrawableBase) SetOpacityMask(b Brush)                   { core.Set(d.Self(), OpacityMaskProperty, b) }
func (d *DrawableBase) SetFilterEffect(fe FilterEffect)          { core.Set(d.Self(), FilterEffectProperty, fe) }
func (d *DrawableBase) SetBlendMode(b media.BlendMode)           { core.Set(d.Self(), BlendModeProperty, b) }
func (d *DrawableBase) SetOpacity(v float64)                     { core.Set(d.Self(), OpacityProperty, v) }
func (d *DrawableBase) SetZIndex(z int)                          { core.Set(d.Self(), ZIndexProperty, z) }

func (d *DrawableBase) content() drawableContent {
	c, ok := d.Self().(drawableContent)
	if !ok {
		panic(core.NewError("graphics.Drawable", core.KindTypeMismatch, "%s does not implement OnMeasure/OnDraw", d.ObjectType()))
	}
	return c
}

// LayoutMatrix maps the local content rectangle into the parent's space:
// the transform applied around TransformOrigin, then the alignment offset
// within available.
func (d *DrawableBase) LayoutMatrix(available media.Size, content media.Rect) media.Matrix {
	m := media.Identity
	if t := d.Transform(); t != nil && !core.IsNil(t) && t.IsEnabled() {
		o := d.TransformOrigin().Resolve(content.Size()).Add(content.Position())
		m = media.Translation(-o.X, -o.Y).Then(t.Value()).Then(media.Translation(o.X, o.Y))
	}
	if _, ok := d.Self().(container); ok {
		return m
	}
	if isFinite(available) {
		v := media.AlignOffset(d.AlignmentX(), d.AlignmentY(), content.Size(), available)
		m = m.Then(media.Translation(v.X, v.Y))
	}
	return m
}

func isFinite(s media.Size) bool {
	return !math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0) && !math.IsNaN(s.Width) && !math.IsNaN(s.Height)
}

// layout measures the content and returns it with the effect-expanded
// rectangle and the layout matrix.
func (d *DrawableBase) layout(available media.Size) (content, effect media.Rect, m media.Matrix) {
	content = d.content().OnMeasure(available)
	effect = content
	if fe := d.FilterEffect(); activeEffect(fe) && !content.IsInvalid() {
		effect = fe.TransformBounds(content)
	}
	m = d.LayoutMatrix(available, content)
	return content, effect, m
}

func boundsOf(effect media.Rect, m media.Matrix) media.Rect {
	if effect.IsInvalid() {
		return media.InvalidRect
	}
	return effect.TransformToAABB(m)
}

// Measure computes and caches Bounds. Hidden nodes keep their previous
// Bounds.
func (d *DrawableBase) Measure(available media.Size) {
	if !d.IsVisible() {
		return
	}
	_, effect, m := d.layout(available)
	d.bounds = boundsOf(effect, m)
}

// Render draws the node into c and clears its dirty flag. Hidden nodes are
// skipped and stay dirty.
func (d *DrawableBase) Render(c Canvas) {
	if !d.IsVisible() {
		return
	}
	sz := c.Size()
	available := media.Size{Width: float64(sz.X), Height: float64(sz.Y)}
	content, effect, m := d.layout(available)

	defer c.PushBlendMode(d.BlendMode()).Pop()
	defer c.PushTransform(m).Pop()
	if fe := d.FilterEffect(); activeEffect(fe) {
		defer c.PushFilterEffect(fe, effect).Pop()
	}
	if o := d.Opacity(); o < 1 {
		defer c.PushOpacity(o).Pop()
	}
	if mask := d.OpacityMask(); mask != nil && !core.IsNil(mask) {
		defer c.PushOpacityMask(mask, content).Pop()
	}
	if fg := d.Foreground(); fg != nil && !core.IsNil(fg) {
		defer c.PushForeground(fg).Pop()
	}
	d.content().OnDraw(c)

	d.bounds = boundsOf(effect, m)
	d.markRendered()
}

// Prepare applies styling and animations for the clock's time, in that
// order, so animated values win over styled ones.
func Prepare(d Drawable, clock animation.Clock) {
	d.ApplyStyling(clock)
	d.ApplyAnimations(clock)
}

// RenderAt prepares d for the clock's time, measures it against the canvas
// and renders it.
func RenderAt(d Drawable, c Canvas, clock animation.Clock) {
	Prepare(d, clock)
	sz := c.Size()
	d.Measure(media.Size{Width: float64(sz.X), Height: float64(sz.Y)})
	d.Render(c)
}

// WalkDrawables calls fn for d and every drawable below it, parents first.
func WalkDrawables(d Drawable, fn func(Drawable)) {
	fn(d)
	if ct, ok := d.(container); ok {
		for _, c := range ct.drawableChildren() {
			WalkDrawables(c, fn)
		}
	}
}
