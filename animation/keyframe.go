package animation

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// KeyFrame is one value on an animation timeline. Easing shapes the segment
// that ends at this frame.
type KeyFrame[T any] struct {
	KeyTime time.Duration
	Value   T
	Easing  Easing
}

// Animation is the untyped view of a KeyFrameAnimation, used by lists,
// styles and documents.
type Animation interface {
	media.Invalidatable
	Property() core.Prop
	Len() int
	// Duration is the key time of the last frame.
	Duration() time.Duration
	// UseGlobalClock reports whether key times are measured from the start
	// of the timeline rather than the owner's begin time.
	UseGlobalClock() bool
	SetUseGlobalClock(v bool)
	// ValueAt returns the interpolated value at local time t. It reports
	// false when the animation has no frames.
	ValueAt(t time.Duration) (any, bool)
	// ApplyTo writes the value at the clock's time into o.
	ApplyTo(o core.Object, clock Clock)
	ToJSON() map[string]any

	// compose adds this animation's offset from its first frame to base.
	compose(base any, t time.Duration) any
	readJSON(m map[string]any)
}

// KeyFrameAnimation interpolates one property between ordered key frames.
type KeyFrameAnimation[T any] struct {
	property *core.Property[T]
	animator Animator[T]
	frames   []KeyFrame[T]
	local    bool

	invalidated core.Event[*media.InvalidatedEvent]
}

// NewKeyFrameAnimation creates an animation of p using the registered
// animator for T. Frames are sorted by key time.
func NewKeyFrameAnimation[T any](p *core.Property[T], frames ...KeyFrame[T]) *KeyFrameAnimation[T] {
	a := &KeyFrameAnimation[T]{property: p, animator: AnimatorFor[T]()}
	a.frames = slices.Clone(frames)
	slices.SortStableFunc(a.frames, byKeyTime[T])
	return a
}

func (a *KeyFrameAnimation[T]) Property() core.Prop { return a.property }

// TypedProperty returns the animated property.
func (a *KeyFrameAnimation[T]) TypedProperty() *core.Property[T] { return a.property }

func (a *KeyFrameAnimation[T]) Invalidated() *core.Event[*media.InvalidatedEvent] {
	return &a.invalidated
}

func (a *KeyFrameAnimation[T]) changed() {
	a.invalidated.Raise(&media.InvalidatedEvent{Property: a.property})
}

func (a *KeyFrameAnimation[T]) Len() int { return len(a.frames) }

// KeyFrames returns the frames in key time order. The slice must not be
// modified.
func (a *KeyFrameAnimation[T]) KeyFrames() []KeyFrame[T] { return a.frames }

func (a *KeyFrameAnimation[T]) Duration() time.Duration {
	if len(a.frames) == 0 {
		return 0
	}
	return a.frames[len(a.frames)-1].KeyTime
}

func (a *KeyFrameAnimation[T]) UseGlobalClock() bool { return !a.local }

func (a *KeyFrameAnimation[T]) SetUseGlobalClock(v bool) {
	if a.local == !v {
		return
	}
	a.local = !v
	a.changed()
}

// SetAnimator replaces the animator, for types whose registered animator
// is not wanted.
func (a *KeyFrameAnimation[T]) SetAnimator(an Animator[T]) {
	a.animator = an
	a.changed()
}

// Add inserts f after any frames with the same key time.
func (a *KeyFrameAnimation[T]) Add(f KeyFrame[T]) {
	i, _ := slices.BinarySearchFunc(a.frames, f.KeyTime, func(x KeyFrame[T], t time.Duration) int {
		if x.KeyTime <= t {
			return -1
		}
		return 1
	})
	a.frames = slices.Insert(a.frames, i, f)
	a.changed()
}

// Set replaces the frame at index i and restores key time order.
func (a *KeyFrameAnimation[T]) Set(i int, f KeyFrame[T]) {
	a.frames[i] = f
	slices.SortStableFunc(a.frames, byKeyTime[T])
	a.changed()
}

func (a *KeyFrameAnimation[T]) RemoveAt(i int) {
	a.frames = slices.Delete(a.frames, i, i+1)
	a.changed()
}

func (a *KeyFrameAnimation[T]) Clear() {
	if len(a.frames) == 0 {
		return
	}
	a.frames = nil
	a.changed()
}

// Interpolate returns the value at local time t. Before the first frame
// and after the last the end values hold. The easing of the later frame of
// a segment shapes it; a segment of zero length is complete. With no
// frames the property default for its owner type is returned.
func (a *KeyFrameAnimation[T]) Interpolate(t time.Duration) T {
	n := len(a.frames)
	switch {
	case n == 0:
		return a.property.Default(a.property.OwnerType())
	case n == 1, t < a.frames[0].KeyTime:
		return a.frames[0].Value
	case t >= a.frames[n-1].KeyTime:
		return a.frames[n-1].Value
	}

	i, _ := slices.BinarySearchFunc(a.frames, t, func(x KeyFrame[T], t time.Duration) int {
		if x.KeyTime <= t {
			return -1
		}
		return 1
	})
	prev, next := a.frames[i-1], a.frames[i]

	progress := 1.0
	if seg := next.KeyTime - prev.KeyTime; seg > 0 {
		progress = clampUnit(float64(t-prev.KeyTime) / float64(seg))
	}
	return a.animator.Lerp(prev.Value, next.Value, easeOrLinear(next.Easing, progress))
}

func (a *KeyFrameAnimation[T]) ValueAt(t time.Duration) (any, bool) {
	if len(a.frames) == 0 {
		return nil, false
	}
	return a.Interpolate(t), true
}

// ApplyTo sets the property on o to the value at the clock's time. An
// animation without frames leaves the current value alone.
func (a *KeyFrameAnimation[T]) ApplyTo(o core.Object, clock Clock) {
	if len(a.frames) == 0 {
		return
	}
	core.Set(o, a.property, a.Interpolate(EvalTime(a, clock)))
}

func (a *KeyFrameAnimation[T]) compose(base any, t time.Duration) any {
	if len(a.frames) == 0 {
		return base
	}
	v := a.Interpolate(t)
	b, ok := base.(T)
	if !ok || a.animator.Add == nil || a.animator.Sub == nil {
		return v
	}
	return a.animator.Add(b, a.animator.Sub(v, a.frames[0].Value))
}

// ToJSON writes {"property", "keyframes": [{"time", "value", "easing"}]}.
// Times are Go duration strings.
func (a *KeyFrameAnimation[T]) ToJSON() map[string]any {
	frames := make([]any, 0, len(a.frames))
	for _, f := range a.frames {
		v, err := a.property.EncodeValue(f.Value)
		if err != nil {
			core.Logger().Warn().Err(err).Str("property", a.property.String()).Msg("key frame not written")
			continue
		}
		frames = append(frames, map[string]any{
			"time":   f.KeyTime.String(),
			"value":  v,
			"easing": EasingName(f.Easing),
		})
	}
	m := map[string]any{
		"property":  a.property.Name(),
		"keyframes": frames,
	}
	if a.local {
		m["global"] = false
	}
	return m
}

func (a *KeyFrameAnimation[T]) readJSON(m map[string]any) {
	if g, ok := m["global"].(bool); ok {
		a.local = !g
	}
	arr, _ := m["keyframes"].([]any)
	frames := make([]KeyFrame[T], 0, len(arr))
	for i, e := range arr {
		f, err := a.readFrame(e)
		if err != nil {
			core.Logger().Debug().Err(err).Int("index", i).Str("property", a.property.String()).Msg("key frame skipped")
			continue
		}
		frames = append(frames, f)
	}
	slices.SortStableFunc(frames, byKeyTime[T])
	a.frames = frames
	a.changed()
}

func (a *KeyFrameAnimation[T]) readFrame(raw any) (KeyFrame[T], error) {
	var f KeyFrame[T]
	m, ok := raw.(map[string]any)
	if !ok {
		return f, fmt.Errorf("key frame is %T", raw)
	}
	t, err := parseKeyTime(m["time"])
	if err != nil {
		return f, err
	}
	v, err := a.property.DecodeValue(m["value"])
	if err != nil {
		return f, err
	}
	tv, ok := v.(T)
	if !ok {
		return f, fmt.Errorf("value is %T, want %s", v, reflect.TypeFor[T]())
	}
	name, _ := m["easing"].(string)
	e, err := ParseEasing(name)
	if err != nil {
		return f, err
	}
	return KeyFrame[T]{KeyTime: t, Value: tv, Easing: e}, nil
}

// parseKeyTime accepts a duration string or a number of seconds.
func parseKeyTime(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case string:
		return time.ParseDuration(v)
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("bad key time %v", raw)
}

func byKeyTime[T any](x, y KeyFrame[T]) int { return cmp.Compare(x.KeyTime, y.KeyTime) }

func registerFactory[T any]() {
	animators.factories[reflect.TypeFor[T]()] = func(p core.Prop) (Animation, bool) {
		tp, ok := p.(*core.Property[T])
		if !ok {
			return nil, false
		}
		return NewKeyFrameAnimation(tp), true
	}
}

// NewAnimation creates an empty animation for p. The value type of p must
// have a registered animator and p must be animatable.
func NewAnimation(p core.Prop) (Animation, error) {
	const op = "animation.NewAnimation"
	if p.Flags()&core.FlagAnimatable == 0 {
		return nil, core.NewError(op, core.KindInvalidPropertyValue, "%s.%s is not animatable", p.OwnerType(), p.Name())
	}
	animators.RLock()
	fn, ok := animators.factories[p.ValueType()]
	animators.RUnlock()
	if ok {
		if a, ok := fn(p); ok {
			return a, nil
		}
	}
	return nil, core.NewError(op, core.KindTypeMismatch, "no animator for %s", p.ValueType())
}

// UnmarshalAnimation reads an animation document targeting a property
// visible on t.
func UnmarshalAnimation(t *core.Type, m map[string]any) (Animation, error) {
	const op = "animation.UnmarshalAnimation"
	name, _ := m["property"].(string)
	p, ok := core.FindRegistered(t, name)
	if !ok {
		return nil, core.NewError(op, core.KindDeserializationSkipped, "%s has no property %q", t, name)
	}
	a, err := NewAnimation(p)
	if err != nil {
		return nil, err
	}
	a.readJSON(m)
	return a, nil
}
