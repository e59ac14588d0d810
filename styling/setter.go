// Package styling assigns property values to objects from reusable,
// optionally animated declarations.
package styling

import (
	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// AnySetter is the untyped view of a setter.
type AnySetter interface {
	media.Invalidatable
	Property() core.Prop
	BoxedValue() any
	// Animation returns the bound animation or nil.
	Animation() animation.Animation
	// Apply writes the setter's value, or its animated value at the clock's
	// time, into target.
	Apply(target core.Object, clock animation.Clock)
}

// Setter assigns one typed property.
type Setter[T any] struct {
	property  *core.Property[T]
	value     T
	animation *animation.KeyFrameAnimation[T]
	cancel    func()

	invalidated core.Event[*media.InvalidatedEvent]
}

func NewSetter[T any](p *core.Property[T], v T) *Setter[T] {
	return &Setter[T]{property: p, value: v}
}

func (s *Setter[T]) Property() core.Prop { return s.property }
func (s *Setter[T]) Value() T            { return s.value }
func (s *Setter[T]) BoxedValue() any     { return s.value }

func (s *Setter[T]) Invalidated() *core.Event[*media.InvalidatedEvent] { return &s.invalidated }

func (s *Setter[T]) raise() {
	s.invalidated.Raise(&media.InvalidatedEvent{Property: s.property})
}

// SetValue replaces the value. Setting an equal value does nothing.
func (s *Setter[T]) SetValue(v T) {
	if s.property.Equal(s.value, v) {
		return
	}
	s.value = v
	s.raise()
}

func (s *Setter[T]) Animation() animation.Animation {
	if s.animation == nil {
		return nil
	}
	return s.animation
}

// TypedAnimation returns the bound animation or nil.
func (s *Setter[T]) TypedAnimation() *animation.KeyFrameAnimation[T] { return s.animation }

// SetAnimation binds a, which must animate the setter's property. Nil
// removes the binding.
func (s *Setter[T]) SetAnimation(a *animation.KeyFrameAnimation[T]) {
	if a != nil && a.TypedProperty() != s.property {
		panic(core.NewError("styling.SetAnimation", core.KindTypeMismatch, "animation of %s bound to setter of %s", a.TypedProperty(), s.property))
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.animation = a
	if a != nil {
		s.cancel = a.Invalidated().Subscribe(func(*media.InvalidatedEvent) { s.raise() })
	}
	s.raise()
}

// Apply assigns the value unchanged when no animation frames are bound.
func (s *Setter[T]) Apply(target core.Object, clock animation.Clock) {
	v := s.value
	if a := s.animation; a != nil && a.Len() > 0 {
		v = a.Interpolate(animation.EvalTime(a, clock))
	}
	core.Set(target, s.property, v)
}

// boxedSetter is what documents decode into; its value type is only known
// through the property.
type boxedSetter struct {
	property  core.Prop
	value     any
	animation animation.Animation

	invalidated core.Event[*media.InvalidatedEvent]
}

// NewBoxedSetter creates a setter from untyped parts. a may be nil.
func NewBoxedSetter(p core.Prop, v any, a animation.Animation) AnySetter {
	s := &boxedSetter{property: p, value: v, animation: a}
	if a != nil {
		a.Invalidated().Subscribe(func(*media.InvalidatedEvent) {
			s.invalidated.Raise(&media.InvalidatedEvent{Property: p})
		})
	}
	return s
}

func (s *boxedSetter) Property() core.Prop                               { return s.property }
func (s *boxedSetter) BoxedValue() any                                   { return s.value }
func (s *boxedSetter) Animation() animation.Animation                    { return s.animation }
func (s *boxedSetter) Invalidated() *core.Event[*media.InvalidatedEvent] { return &s.invalidated }

func (s *boxedSetter) Apply(target core.Object, clock animation.Clock) {
	v := s.value
	if a := s.animation; a != nil {
		if av, ok := a.ValueAt(animation.EvalTime(a, clock)); ok {
			v = av
		}
	}
	if err := s.property.SetBoxed(target, v); err != nil {
		core.Logger().Warn().Err(err).Str("property", s.property.Name()).Msg("style value rejected")
	}
}
