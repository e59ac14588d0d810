// Package graphics is the drawable tree: visual nodes that measure their
// bounds, apply animations and styles for a point in time, and draw into a
// Canvas. Every property that affects rendering marks its node dirty, and
// dirtiness bubbles to the enclosing renderable ancestors until a render
// pass completes.
package graphics

import (
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
	"github.com/phanxgames/montage/styling"
)

// Renderable is the base of drawables. It tracks the dirty flag and
// forwards invalidation to the nearest renderable ancestor.
type Renderable struct {
	styling.Styleable
	media.Invalidator
	dirty bool
}

// RenderableType is the registered type of Renderable.
var RenderableType = core.DefineType("Renderable", styling.StyleableType)

// IsVisibleProperty hides a node. Hidden nodes do not measure or render.
var IsVisibleProperty = core.Configure[bool, core.Object](RenderableType, "IsVisible").
	DefaultValue(true).
	SerializeName("isVisible").
	Animatable().
	Register()

func init() {
	media.AffectsRender(RenderableType, IsVisibleProperty)
}

type renderableNode interface {
	renderable() *Renderable
}

func (r *Renderable) renderable() *Renderable { return r }

// Init initializes the embedded object. The node starts dirty.
func (r *Renderable) Init(self core.Object, t *core.Type) {
	r.Styleable.Init(self, t)
	r.dirty = true
	r.Animations().Invalidated().Subscribe(func(*media.InvalidatedEvent) { r.Invalidate() })
	r.Styles().Invalidated().Subscribe(func(*media.InvalidatedEvent) { r.Invalidate() })
}

func (r *Renderable) IsVisible() bool     { return core.GetValue(r.Self(), IsVisibleProperty) }
func (r *Renderable) SetIsVisible(v bool) { core.Set(r.Self(), IsVisibleProperty, v) }

// IsDirty reports whether the node changed since its last render.
func (r *Renderable) IsDirty() bool { return r.dirty }

// Invalidate marks the node dirty and notifies listeners and ancestors.
func (r *Renderable) Invalidate() {
	r.RaiseInvalidated(&media.InvalidatedEvent{Sender: r.Self()})
}

// RaiseInvalidated marks the node dirty, raises Invalidated, and repeats
// on the nearest renderable ancestor.
func (r *Renderable) RaiseInvalidated(e *media.InvalidatedEvent) {
	r.dirty = true
	r.Invalidator.RaiseInvalidated(e)
	if p := r.renderableAncestor(); p != nil {
		p.(renderableNode).renderable().RaiseInvalidated(e)
	}
}

// NotifiesAncestor reports whether owner is the renderable ancestor that
// RaiseInvalidated already reaches.
func (r *Renderable) NotifiesAncestor(owner core.Object) bool {
	p := r.renderableAncestor()
	return p != nil && core.Object(p) == owner
}

func (r *Renderable) renderableAncestor() core.Hierarchical {
	self, ok := r.Self().(core.Hierarchical)
	if !ok {
		return nil
	}
	return core.FindAncestor(self, func(h core.Hierarchical) bool {
		_, ok := h.(renderableNode)
		return ok
	})
}

// markRendered clears the dirty flag after a completed render pass.
func (r *Renderable) markRendered() { r.dirty = false }
