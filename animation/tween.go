package animation

import (
	"time"

	"github.com/tanema/gween"
)

// Tween moves a value from Begin to End over a fixed duration, advanced by
// frame deltas rather than a timeline. Previews use it for transitions
// such as scrubbing the playhead.
type Tween[T any] struct {
	Begin, End T

	duration time.Duration
	easing   TweenEasing
	tween    *gween.Tween
	animator Animator[T]
	value    T
	done     bool
}

// NewTween creates a tween with the registered animator for T. A nil
// easing function means linear.
func NewTween[T any](begin, end T, d time.Duration, e TweenEasing) *Tween[T] {
	if e.Func == nil {
		e = Linear
	}
	tw := &Tween[T]{
		Begin:    begin,
		End:      end,
		duration: d,
		easing:   e,
		animator: AnimatorFor[T](),
	}
	tw.Reset()
	return tw
}

// Update advances the tween by dt and returns the current value and
// whether the tween has finished.
func (tw *Tween[T]) Update(dt time.Duration) (T, bool) {
	if tw.done {
		return tw.value, true
	}
	if tw.duration <= 0 {
		tw.value, tw.done = tw.End, true
		return tw.value, true
	}
	p, finished := tw.tween.Update(float32(dt.Seconds()))
	if finished {
		tw.value, tw.done = tw.End, true
		return tw.value, true
	}
	tw.value = tw.animator.Lerp(tw.Begin, tw.End, float64(p))
	return tw.value, false
}

func (tw *Tween[T]) Value() T   { return tw.value }
func (tw *Tween[T]) Done() bool { return tw.done }

// Reset rewinds the tween to Begin.
func (tw *Tween[T]) Reset() {
	tw.tween = gween.New(0, 1, float32(tw.duration.Seconds()), tw.easing.Func)
	tw.value = tw.Begin
	tw.done = false
}

// Retarget starts a new transition from the current value to end, keeping
// the duration and easing.
func (tw *Tween[T]) Retarget(end T) {
	tw.Begin, tw.End = tw.value, end
	tw.Reset()
}
