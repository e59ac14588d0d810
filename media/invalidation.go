package media

import (
	"github.com/phanxgames/montage/core"
)

// InvalidatedEvent reports that a value's visual output changed.
type InvalidatedEvent struct {
	Sender   core.Object
	Property core.Prop // nil when the change was not a property write
}

// Invalidatable is implemented by values whose changes must reach the
// renderer: brushes, transforms, filter effects and drawables.
type Invalidatable interface {
	Invalidated() *core.Event[*InvalidatedEvent]
}

// InvalidationSource is implemented by types embedding Invalidator.
// RaiseInvalidated may be shadowed by the outer type to mark itself dirty
// before raising.
type InvalidationSource interface {
	core.Object
	Invalidatable
	RaiseInvalidated(e *InvalidatedEvent)
	invalidator() *Invalidator
}

// AncestorNotifier is implemented by values that already deliver their
// invalidations to owner through the element tree. rewire makes no
// forwarding link for them.
type AncestorNotifier interface {
	NotifiesAncestor(owner core.Object) bool
}

// Invalidator is embedded next to a core object to provide the Invalidated
// event and the links that forward nested invalidations.
type Invalidator struct {
	invalidated core.Event[*InvalidatedEvent]
	links       map[int32]func()
}

func (i *Invalidator) invalidator() *Invalidator { return i }

// Invalidated is raised whenever the value's rendering output changes.
func (i *Invalidator) Invalidated() *core.Event[*InvalidatedEvent] { return &i.invalidated }

func (i *Invalidator) RaiseInvalidated(e *InvalidatedEvent) { i.invalidated.Raise(e) }

// rewire moves the forwarding link for property id from old to new.
func (i *Invalidator) rewire(owner InvalidationSource, p core.Prop, newValue any) {
	if cancel, ok := i.links[p.ID()]; ok {
		cancel()
		delete(i.links, p.ID())
	}
	nv, ok := newValue.(Invalidatable)
	if !ok || core.IsNil(newValue) {
		return
	}
	if an, ok := newValue.(AncestorNotifier); ok && an.NotifiesAncestor(owner) {
		return
	}
	if i.links == nil {
		i.links = make(map[int32]func())
	}
	i.links[p.ID()] = nv.Invalidated().Subscribe(func(*InvalidatedEvent) {
		owner.RaiseInvalidated(&InvalidatedEvent{Sender: owner, Property: p})
	})
}

// AffectsRender declares that writes to props on instances of t change the
// rendered output. Each write invalidates the sender; when the old or new
// value is itself Invalidatable, the forwarding link moves from the old
// value to the new one so nested changes keep bubbling up. Called once per
// type, typically from init.
func AffectsRender(t *core.Type, props ...core.Prop) {
	for _, p := range props {
		p := p
		if !t.IsAssignableTo(p.OwnerType()) {
			panic(core.NewError("media.AffectsRender", core.KindOwnerMismatch, "%s is not visible on %s", p.Name(), t))
		}
		p.Changed().Subscribe(func(e *core.PropertyChangedEvent) {
			if !e.Sender.Core().ObjectType().IsAssignableTo(t) {
				return
			}
			src, ok := e.Sender.(InvalidationSource)
			if !ok {
				return
			}
			src.invalidator().rewire(src, p, e.NewValue)
			src.RaiseInvalidated(&InvalidatedEvent{Sender: src, Property: p})
		})
	}
}
