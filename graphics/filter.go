package graphics

import (
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// FilterContext is implemented by canvases to run filter operations on the
// offscreen layer of a PushFilterEffect scope. Lengths are in local units;
// the canvas scales them by the layer transform.
type FilterContext interface {
	Blur(sigma media.Size)
	DropShadow(offset media.Point, sigma media.Size, c media.Color, shadowOnly bool)
}

// FilterEffect post-processes the pixels of a drawable.
type FilterEffect interface {
	core.Hierarchical
	media.Invalidatable
	IsEnabled() bool
	// TransformBounds returns the area the effect may touch when applied
	// to content covering r.
	TransformBounds(r media.Rect) media.Rect
	ApplyTo(ctx FilterContext)
}

// FilterEffectBase carries the IsEnabled switch shared by all effects.
type FilterEffectBase struct {
	Resource
}

var FilterEffectType = core.DefineType("FilterEffect", ResourceType)

var FilterIsEnabledProperty = core.Configure[bool, core.Object](FilterEffectType, "IsEnabled").
	DefaultValue(true).
	SerializeName("isEnabled").
	Register()

func (f *FilterEffectBase) IsEnabled() bool     { return core.GetValue(f.Self(), FilterIsEnabledProperty) }
func (f *FilterEffectBase) SetIsEnabled(v bool) { core.Set(f.Self(), FilterIsEnabledProperty, v) }

func activeEffect(fe FilterEffect) bool {
	return fe != nil && !core.IsNil(fe) && fe.IsEnabled()
}

// nonNegative clamps both components of a size to zero or more.
var nonNegative = core.ValidatorFunc[media.Size](func(s media.Size) (media.Size, error) {
	return media.Size{Width: max(s.Width, 0), Height: max(s.Height, 0)}, nil
})

// blurExtent is how far a gaussian of sigma visibly spreads.
func blurExtent(sigma media.Size) (float64, float64) {
	return sigma.Width * 3, sigma.Height * 3
}

// --- Blur ---

type Blur struct {
	FilterEffectBase
}

var BlurType = core.DefineType("Blur", FilterEffectType)

var BlurSigmaProperty = core.Configure[media.Size, core.Object](BlurType, "Sigma").
	SerializeName("sigma").
	Validator(nonNegative).
	Animatable().
	Register()

func NewBlur(sigma media.Size) *Blur {
	b := &Blur{}
	b.Init(b, BlurType)
	b.SetSigma(sigma)
	return b
}

func (b *Blur) Sigma() media.Size     { return core.GetValue(b, BlurSigmaProperty) }
func (b *Blur) SetSigma(s media.Size) { core.Set(b, BlurSigmaProperty, s) }

func (b *Blur) TransformBounds(r media.Rect) media.Rect {
	return r.Inflate(blurExtent(b.Sigma()))
}

func (b *Blur) ApplyTo(ctx FilterContext) {
	if s := b.Sigma(); s.Width > 0 || s.Height > 0 {
		ctx.Blur(s)
	}
}

// --- DropShadow ---

type DropShadow struct {
	FilterEffectBase
}

var DropShadowType = core.DefineType("DropShadow", FilterEffectType)

var (
	ShadowPositionProperty = core.Configure[media.Point, core.Object](DropShadowType, "Position").
				DefaultValue(media.Point{X: 10, Y: 10}).
				SerializeName("position").
				Animatable().
				Register()
	ShadowSigmaProperty = core.Configure[media.Size, core.Object](DropShadowType, "Sigma").
				DefaultValue(media.Size{Width: 10, Height: 10}).
				SerializeName("sigma").
				Validator(nonNegative).
				Animatable().
				Register()
	ShadowColorProperty = core.Configure[media.Color, core.Object](DropShadowType, "Color").
				DefaultValue(media.Black).
				SerializeName("color").
				Animatable().
				Register()
	ShadowOnlyProperty = core.Configure[bool, core.Object](DropShadowType, "ShadowOnly").
				SerializeName("shadowOnly").
				Register()
)

func NewDropShadow() *DropShadow {
	d := &DropShadow{}
	d.Init(d, DropShadowType)
	return d
}

func (d *DropShadow) Position() media.Point { return core.GetValue(d, ShadowPositionProperty) }
func (d *DropShadow) Sigma() media.Size     { return core.GetValue(d, ShadowSigmaProperty) }
func (d *DropShadow) Color() media.Color    { return core.GetValue(d, ShadowColorProperty) }
func (d *DropShadow) ShadowOnly() bool      { return core.GetValue(d, ShadowOnlyProperty) }

func (d *DropShadow) SetPosition(p media.Point) { core.Set(d, ShadowPositionProperty, p) }
func (d *DropShadow) SetSigma(s media.Size)     { core.Set(d, ShadowSigmaProperty, s) }
func (d *DropShadow) SetColor(c media.Color)    { core.Set(d, ShadowColorProperty, c) }
func (d *DropShadow) SetShadowOnly(v bool)      { core.Set(d, ShadowOnlyProperty, v) }

func (d *DropShadow) TransformBounds(r media.Rect) media.Rect {
	p := d.Position()
	shadow := r.Translate(media.Vector{X: p.X, Y: p.Y}).Inflate(blurExtent(d.Sigma()))
	if d.ShadowOnly() {
		return shadow
	}
	return r.Union(shadow)
}

func (d *DropShadow) ApplyTo(ctx FilterContext) {
	ctx.DropShadow(d.Position(), d.Sigma(), d.Color(), d.ShadowOnly())
}

// --- FilterEffectGroup ---

// FilterEffectGroup applies its enabled children in order.
type FilterEffectGroup struct {
	FilterEffectBase
	children core.ElementList[FilterEffect]
}

var FilterEffectGroupType = core.DefineType("FilterEffectGroup", FilterEffectType)

func NewFilterEffectGroup(children ...FilterEffect) *FilterEffectGroup {
	g := &FilterEffectGroup{}
	g.Init(g, FilterEffectGroupType)
	g.children.Init(&g.Element)
	forwardList(&g.children, func() { g.raise(nil) })
	g.children.Add(children...)
	return g
}

func (g *FilterEffectGroup) Children() *core.ElementList[FilterEffect] { return &g.children }

// TransformBounds folds the children: each sees the bounds produced by the
// previous one.
func (g *FilterEffectGroup) TransformBounds(r media.Rect) media.Rect {
	for _, c := range g.children.Items() {
		if activeEffect(c) {
			r = c.TransformBounds(r)
		}
	}
	return r
}

func (g *FilterEffectGroup) ApplyTo(ctx FilterContext) {
	for _, c := range g.children.Items() {
		if activeEffect(c) {
			c.ApplyTo(ctx)
		}
	}
}

func (g *FilterEffectGroup) WriteJSON(m map[string]any) {
	g.FilterEffectBase.WriteJSON(m)
	writeList(m, "children", g.children.Items())
}

func (g *FilterEffectGroup) ReadJSON(m map[string]any) {
	g.FilterEffectBase.ReadJSON(m)
	readList(m, "children", &g.children)
}

func init() {
	media.AffectsRender(FilterEffectType, FilterIsEnabledProperty)
	media.AffectsRender(BlurType, BlurSigmaProperty)
	media.AffectsRender(DropShadowType, ShadowPositionProperty, ShadowSigmaProperty, ShadowColorProperty, ShadowOnlyProperty)

	BlurType.SetFactory(func() core.Object { return NewBlur(media.Size{}) })
	DropShadowType.SetFactory(func() core.Object { return NewDropShadow() })
	FilterEffectGroupType.SetFactory(func() core.Object { return NewFilterEffectGroup() })
}

var (
	_ FilterEffect = (*Blur)(nil)
	_ FilterEffect = (*DropShadow)(nil)
	_ FilterEffect = (*FilterEffectGroup)(nil)
)
