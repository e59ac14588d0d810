package animation

import (
	"slices"
	"time"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// Composition decides how several animations of the same property combine.
type Composition uint8

const (
	// CompositeAdditive starts from the first animation's value and adds
	// each later animation's offset from its own first key frame. Types
	// without arithmetic fall back to replacement.
	CompositeAdditive Composition = iota
	// CompositeReplace lets the last animation with frames win.
	CompositeReplace
)

func (c Composition) String() string {
	if c == CompositeReplace {
		return "replace"
	}
	return "additive"
}

// Animations is the ordered animation list of one object.
type Animations struct {
	owner       core.Object
	items       []Animation
	cancels     []func()
	composition Composition

	invalidated core.Event[*media.InvalidatedEvent]
}

// Init binds the list to the object the animations target.
func (l *Animations) Init(owner core.Object) { l.owner = owner }

func (l *Animations) Len() int                 { return len(l.items) }
func (l *Animations) At(i int) Animation       { return l.items[i] }
func (l *Animations) Items() []Animation       { return l.items }
func (l *Animations) Composition() Composition { return l.composition }

func (l *Animations) SetComposition(c Composition) {
	if l.composition == c {
		return
	}
	l.composition = c
	l.raise(nil)
}

// Invalidated is raised when the list or any of its animations changes.
func (l *Animations) Invalidated() *core.Event[*media.InvalidatedEvent] { return &l.invalidated }

func (l *Animations) raise(p core.Prop) {
	l.invalidated.Raise(&media.InvalidatedEvent{Sender: l.owner, Property: p})
}

// Add appends a. The property must be animatable and visible on the
// owner's type.
func (l *Animations) Add(a Animation) error {
	const op = "animation.Animations.Add"
	p := a.Property()
	if p.Flags()&core.FlagAnimatable == 0 {
		return core.NewError(op, core.KindInvalidPropertyValue, "%s.%s is not animatable", p.OwnerType(), p.Name())
	}
	if l.owner != nil && !l.owner.Core().ObjectType().IsAssignableTo(p.OwnerType()) {
		return core.NewError(op, core.KindOwnerMismatch, "%s is not a %s", l.owner.Core().ObjectType(), p.OwnerType())
	}
	l.items = append(l.items, a)
	l.cancels = append(l.cancels, a.Invalidated().Subscribe(func(*media.InvalidatedEvent) {
		l.raise(p)
	}))
	l.raise(p)
	return nil
}

func (l *Animations) Remove(a Animation) bool {
	i := slices.Index(l.items, a)
	if i < 0 {
		return false
	}
	p := a.Property()
	l.cancels[i]()
	l.items = slices.Delete(l.items, i, i+1)
	l.cancels = slices.Delete(l.cancels, i, i+1)
	l.raise(p)
	return true
}

func (l *Animations) Clear() {
	if len(l.items) == 0 {
		return
	}
	for _, c := range l.cancels {
		c()
	}
	l.items, l.cancels = nil, nil
	l.raise(nil)
}

// Find returns the first animation of p.
func (l *Animations) Find(p core.Prop) (Animation, bool) {
	for _, a := range l.items {
		if a.Property() == p {
			return a, true
		}
	}
	return nil, false
}

// Duration is the latest end time of any animation in the list.
func (l *Animations) Duration() (d time.Duration) {
	for _, a := range l.items {
		d = max(d, a.Duration())
	}
	return d
}

// Apply evaluates every animation at the clock's time and writes the
// results into the owner, combining animations of the same property by
// the list's composition.
func (l *Animations) Apply(clock Clock) {
	if l.owner == nil || len(l.items) == 0 {
		return
	}
	var order []core.Prop
	groups := make(map[core.Prop][]Animation)
	for _, a := range l.items {
		p := a.Property()
		if _, ok := groups[p]; !ok {
			order = append(order, p)
		}
		groups[p] = append(groups[p], a)
	}
	for _, p := range order {
		v, ok := l.evaluate(groups[p], clock)
		if !ok {
			continue
		}
		if err := p.SetBoxed(l.owner, v); err != nil {
			core.Logger().Warn().Err(err).Str("property", p.Name()).Msg("animated value rejected")
		}
	}
}

func (l *Animations) evaluate(group []Animation, clock Clock) (any, bool) {
	var (
		base any
		ok   bool
	)
	for _, a := range group {
		t := EvalTime(a, clock)
		if !ok || l.composition == CompositeReplace {
			if v, has := a.ValueAt(t); has {
				base, ok = v, true
			}
			continue
		}
		base = a.compose(base, t)
	}
	return base, ok
}

// EvalTime is the time at which a is evaluated for clock: the playhead for
// global animations, the playhead minus the begin time otherwise.
func EvalTime(a Animation, clock Clock) time.Duration {
	if a.UseGlobalClock() {
		return clock.CurrentTime()
	}
	return clock.CurrentTime() - clock.BeginTime()
}

// ToJSON writes the list as an array of animation documents.
func (l *Animations) ToJSON() []any {
	out := make([]any, 0, len(l.items))
	for _, a := range l.items {
		out = append(out, a.ToJSON())
	}
	return out
}

// ReadJSON replaces the list with the animations in raw. Entries naming
// unknown or non-animatable properties are skipped.
func (l *Animations) ReadJSON(raw any) {
	arr, _ := raw.([]any)
	l.Clear()
	t := l.owner.Core().ObjectType()
	for i, e := range arr {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		a, err := UnmarshalAnimation(t, m)
		if err == nil {
			err = l.Add(a)
		}
		if err != nil {
			core.Logger().Debug().Err(err).Int("index", i).Str("type", t.Name()).Msg("animation skipped")
		}
	}
}
