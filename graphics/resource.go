package graphics

import (
	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// Resource is the base of value objects held by drawables: brushes,
// transforms and filter effects. A change to any of its render properties,
// animations or children raises Invalidated, which the owning drawable
// forwards.
type Resource struct {
	animation.Animatable
	media.Invalidator
}

// ResourceType is the registered type of Resource.
var ResourceType = core.DefineType("Resource", animation.AnimatableType)

func (r *Resource) Init(self core.Object, t *core.Type) {
	r.Animatable.Init(self, t)
	r.Animations().Invalidated().Subscribe(func(*media.InvalidatedEvent) { r.raise(nil) })
}

func (r *Resource) raise(p core.Prop) {
	r.RaiseInvalidated(&media.InvalidatedEvent{Sender: r.Self(), Property: p})
}

type invalidatableElement interface {
	core.Hierarchical
	media.Invalidatable
}

// forwardList raises on every change of l and every invalidation of its
// items.
func forwardList[T invalidatableElement](l *core.ElementList[T], raise func()) {
	links := make(map[*core.CoreObject]func())
	l.Changed().Subscribe(func(e *core.ListChangedEvent[T]) {
		switch e.Action {
		case core.ListAdd:
			for _, it := range e.Items {
				links[it.Core()] = it.Invalidated().Subscribe(func(*media.InvalidatedEvent) { raise() })
			}
		case core.ListRemove, core.ListReset:
			for _, it := range e.Items {
				if cancel, ok := links[it.Core()]; ok {
					cancel()
					delete(links, it.Core())
				}
			}
		}
		raise()
	})
}

// writeList and readList carry child lists in documents.
func writeList[T core.Object](m map[string]any, key string, items []T) {
	if len(items) == 0 {
		return
	}
	m[key] = core.MarshalList(items)
}

func readList[T core.Hierarchical](m map[string]any, key string, l *core.ElementList[T]) {
	raw, ok := m[key]
	if !ok {
		return
	}
	l.Clear()
	l.Add(core.UnmarshalList[T](raw)...)
}
