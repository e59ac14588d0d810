package scene

import (
	"time"

	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/graphics"
	"github.com/phanxgames/montage/media"
	"github.com/phanxgames/montage/nodetree"
)

// Layer places content on the timeline. It is active from Start for Length;
// inside that range its animations see time zero at Start. Content comes
// from a drawable, a node tree, or both.
type Layer struct {
	core.Element
	media.Invalidator
}

var LayerType = core.DefineType("Layer", core.ElementType)

var (
	StartProperty = core.Configure[time.Duration, core.Object](LayerType, "Start").
			SerializeName("start").
			Validator(core.Min(time.Duration(0))).
			Register()
	LengthProperty = core.Configure[time.Duration, core.Object](LayerType, "Length").
			DefaultValue(5 * time.Second).
			SerializeName("length").
			Validator(core.Min(time.Duration(0))).
			Register()
	ZIndexProperty = core.Configure[int, core.Object](LayerType, "ZIndex").
			SerializeName("zIndex").
			Register()
	IsEnabledProperty = core.Configure[bool, core.Object](LayerType, "IsEnabled").
				DefaultValue(true).
				SerializeName("isEnabled").
				Register()
	DrawableProperty = core.Configure[graphics.Drawable, core.Object](LayerType, "Drawable").
				SerializeName("drawable").
				Register()
	NodeTreeProperty = core.Configure[*nodetree.Space, core.Object](LayerType, "NodeTree").
				SerializeName("nodeTree").
				Register()
)

func NewLayer(start, length time.Duration) *Layer {
	l := &Layer{}
	l.Init(l, LayerType)
	l.SetStart(start)
	l.SetLength(length)
	return l
}

func (l *Layer) Start() time.Duration        { return core.GetValue(l, StartProperty) }
func (l *Layer) Length() time.Duration       { return core.GetValue(l, LengthProperty) }
func (l *Layer) ZIndex() int                 { return core.GetValue(l, ZIndexProperty) }
func (l *Layer) IsEnabled() bool             { return core.GetValue(l, IsEnabledProperty) }
func (l *Layer) Drawable() graphics.Drawable { return core.GetValue(l, DrawableProperty) }
func (l *Layer) NodeTree() *nodetree.Space   { return core.GetValue(l, NodeTreeProperty) }

func (l *Layer) SetStart(v time.Duration)        { core.Set(l, StartProperty, v) }
func (l *Layer) SetLength(v time.Duration)       { core.Set(l, LengthProperty, v) }
func (l *Layer) SetZIndex(v int)                 { core.Set(l, ZIndexProperty, v) }
func (l *Layer) SetIsEnabled(v bool)             { core.Set(l, IsEnabledProperty, v) }
func (l *Layer) SetDrawable(d graphics.Drawable) { core.Set(l, DrawableProperty, d) }
func (l *Layer) SetNodeTree(s *nodetree.Space)   { core.Set(l, NodeTreeProperty, s) }

// End is the first time after the layer.
func (l *Layer) End() time.Duration { return l.Start() + l.Length() }

// IsActive reports whether the layer shows content at t.
func (l *Layer) IsActive(t time.Duration) bool {
	return l.IsEnabled() && t >= l.Start() && t < l.End()
}

// Evaluate prepares the layer's content for the clock's time and returns
// the drawables to render, the layer's own drawable first.
func (l *Layer) Evaluate(clock animation.Clock) []graphics.Drawable {
	lc := animation.OffsetClock{Parent: clock, Begin: l.Start()}
	var out []graphics.Drawable
	if d := l.Drawable(); d != nil && !core.IsNil(d) {
		graphics.Prepare(d, lc)
		out = append(out, d)
	}
	if tree := l.NodeTree(); tree != nil {
		ctx := nodetree.NewEvaluationContext(lc)
		tree.Evaluate(ctx)
		for _, d := range ctx.Drawables() {
			graphics.Prepare(d, lc)
			out = append(out, d)
		}
	}
	return out
}

func init() {
	media.AffectsRender(LayerType, StartProperty, LengthProperty, ZIndexProperty, IsEnabledProperty, DrawableProperty, NodeTreeProperty)
	LayerType.SetFactory(func() core.Object { return NewLayer(0, 5*time.Second) })
}

var _ media.InvalidationSource = (*Layer)(nil)
