package styling

import (
	"slices"

	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// Style is an ordered set of setters for instances of TargetType. Setters
// for properties the concrete target does not have are skipped, so a style
// for a base type may carry setters of derived types.
type Style struct {
	targetType *core.Type
	basedOn    *Style
	setters    []AnySetter
	cancels    []func()

	invalidated core.Event[*media.InvalidatedEvent]
}

func NewStyle(target *core.Type, setters ...AnySetter) *Style {
	s := &Style{targetType: target}
	for _, st := range setters {
		s.Add(st)
	}
	return s
}

func (s *Style) TargetType() *core.Type { return s.targetType }
func (s *Style) BasedOn() *Style        { return s.basedOn }
func (s *Style) Setters() []AnySetter   { return s.setters }

func (s *Style) Invalidated() *core.Event[*media.InvalidatedEvent] { return &s.invalidated }

func (s *Style) raise(p core.Prop) {
	s.invalidated.Raise(&media.InvalidatedEvent{Property: p})
}

// SetBasedOn makes s apply after base. Cycles panic.
func (s *Style) SetBasedOn(base *Style) {
	for b := base; b != nil; b = b.basedOn {
		if b == s {
			panic(core.NewError("styling.SetBasedOn", core.KindAlreadyAttached, "style for %s is based on itself", s.targetType))
		}
	}
	s.basedOn = base
	s.raise(nil)
}

func (s *Style) Add(setter AnySetter) {
	p := setter.Property()
	s.setters = append(s.setters, setter)
	s.cancels = append(s.cancels, setter.Invalidated().Subscribe(func(*media.InvalidatedEvent) {
		s.raise(p)
	}))
	s.raise(p)
}

func (s *Style) Remove(setter AnySetter) bool {
	i := slices.Index(s.setters, setter)
	if i < 0 {
		return false
	}
	s.cancels[i]()
	s.setters = slices.Delete(s.setters, i, i+1)
	s.cancels = slices.Delete(s.cancels, i, i+1)
	s.raise(setter.Property())
	return true
}

// Applies reports whether target is an instance of the target type.
func (s *Style) Applies(target core.Object) bool {
	return target.Core().ObjectType().IsAssignableTo(s.targetType)
}

// Apply runs the BasedOn chain, then the style's own setters in order. It
// reports false without doing anything if target is not an instance of
// the target type.
func (s *Style) Apply(target core.Object, clock animation.Clock) bool {
	if !s.Applies(target) {
		return false
	}
	if s.basedOn != nil {
		s.basedOn.Apply(target, clock)
	}
	t := target.Core().ObjectType()
	for _, st := range s.setters {
		if !t.IsAssignableTo(st.Property().OwnerType()) {
			continue
		}
		st.Apply(target, clock)
	}
	return true
}

// Styles is an ordered style list. Later styles win.
type Styles struct {
	items   []*Style
	cancels []func()

	invalidated core.Event[*media.InvalidatedEvent]
}

func (l *Styles) Len() int        { return len(l.items) }
func (l *Styles) At(i int) *Style { return l.items[i] }
func (l *Styles) Items() []*Style { return l.items }

func (l *Styles) Invalidated() *core.Event[*media.InvalidatedEvent] { return &l.invalidated }

func (l *Styles) Add(styles ...*Style) {
	for _, s := range styles {
		l.Insert(len(l.items), s)
	}
}

func (l *Styles) Insert(i int, s *Style) {
	l.items = slices.Insert(l.items, i, s)
	l.cancels = slices.Insert(l.cancels, i, s.Invalidated().Subscribe(l.invalidated.Raise))
	l.invalidated.Raise(&media.InvalidatedEvent{})
}

func (l *Styles) Remove(s *Style) bool {
	i := slices.Index(l.items, s)
	if i < 0 {
		return false
	}
	l.cancels[i]()
	l.items = slices.Delete(l.items, i, i+1)
	l.cancels = slices.Delete(l.cancels, i, i+1)
	l.invalidated.Raise(&media.InvalidatedEvent{})
	return true
}

func (l *Styles) Clear() {
	for _, c := range l.cancels {
		c()
	}
	l.items, l.cancels = nil, nil
	l.invalidated.Raise(&media.InvalidatedEvent{})
}

// Apply applies every matching style to target in list order, so the
// last write to a property wins.
func (l *Styles) Apply(target core.Object, clock animation.Clock) {
	for _, s := range l.items {
		s.Apply(target, clock)
	}
}
