package animation

import (
	"math"
	"reflect"
	"sync"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// Animator knows how to blend values of one type. Add and Sub are nil for
// types without arithmetic; such values never compose additively.
type Animator[T any] struct {
	Lerp func(a, b T, t float64) T
	Add  func(a, b T) T
	Sub  func(a, b T) T
}

// Discrete returns an animator that holds a until progress reaches 1.
func Discrete[T any]() Animator[T] {
	return Animator[T]{Lerp: func(a, b T, t float64) T {
		if t >= 1 {
			return b
		}
		return a
	}}
}

var animators = struct {
	sync.RWMutex
	m         map[reflect.Type]any
	factories map[reflect.Type]func(core.Prop) (Animation, bool)
}{
	m:         make(map[reflect.Type]any),
	factories: make(map[reflect.Type]func(core.Prop) (Animation, bool)),
}

// RegisterAnimator installs the animator for T. It also makes properties of
// type T animatable from documents.
func RegisterAnimator[T any](a Animator[T]) {
	animators.Lock()
	defer animators.Unlock()
	animators.m[reflect.TypeFor[T]()] = a
	registerFactory[T]()
}

// AnimatorFor returns the registered animator for T, or Discrete.
func AnimatorFor[T any]() Animator[T] {
	animators.RLock()
	a, ok := animators.m[reflect.TypeFor[T]()]
	animators.RUnlock()
	if ok {
		return a.(Animator[T])
	}
	return Discrete[T]()
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

type number interface {
	~float32 | ~float64 | ~int | ~int32 | ~int64 | ~uint8
}

func numeric[T number](round bool) Animator[T] {
	return Animator[T]{
		Lerp: func(a, b T, t float64) T {
			v := lerp(float64(a), float64(b), t)
			if round {
				v = math.Round(v)
			}
			return T(v)
		},
		Add: func(a, b T) T { return a + b },
		Sub: func(a, b T) T { return a - b },
	}
}

func init() {
	RegisterAnimator(numeric[float64](false))
	RegisterAnimator(numeric[float32](false))
	RegisterAnimator(numeric[int](true))
	RegisterAnimator(numeric[int32](true))
	RegisterAnimator(numeric[int64](true))
	RegisterAnimator(numeric[uint8](true))
	RegisterAnimator(Discrete[bool]())
	RegisterAnimator(Discrete[string]())
	RegisterAnimator(Animator[media.Point]{
		Lerp: func(a, b media.Point, t float64) media.Point {
			return media.Point{X: lerp(a.X, b.X, t), Y: lerp(a.Y, b.Y, t)}
		},
		Add: media.Point.Add,
		Sub: media.Point.Sub,
	})
	RegisterAnimator(Animator[media.Vector]{
		Lerp: func(a, b media.Vector, t float64) media.Vector {
			return media.Vector{X: lerp(a.X, b.X, t), Y: lerp(a.Y, b.Y, t)}
		},
		Add: media.Vector.Add,
		Sub: media.Vector.Sub,
	})
	RegisterAnimator(Animator[media.Size]{
		Lerp: func(a, b media.Size, t float64) media.Size {
			return media.Size{Width: lerp(a.Width, b.Width, t), Height: lerp(a.Height, b.Height, t)}
		},
		Add: media.Size.Add,
		Sub: media.Size.Sub,
	})
	RegisterAnimator(Animator[media.Rect]{
		Lerp: func(a, b media.Rect, t float64) media.Rect {
			return media.Rect{
				X: lerp(a.X, b.X, t), Y: lerp(a.Y, b.Y, t),
				Width: lerp(a.Width, b.Width, t), Height: lerp(a.Height, b.Height, t),
			}
		},
		Add: func(a, b media.Rect) media.Rect {
			return media.Rect{X: a.X + b.X, Y: a.Y + b.Y, Width: a.Width + b.Width, Height: a.Height + b.Height}
		},
		Sub: func(a, b media.Rect) media.Rect {
			return media.Rect{X: a.X - b.X, Y: a.Y - b.Y, Width: a.Width - b.Width, Height: a.Height - b.Height}
		},
	})
	RegisterAnimator(Animator[media.Color]{
		Lerp: media.Color.Lerp,
		Add:  media.Color.Add,
		Sub:  media.Color.Sub,
	})
	RegisterAnimator(Animator[media.Matrix]{
		Lerp: media.Matrix.Lerp,
		Add:  media.Matrix.Add,
		Sub:  media.Matrix.Sub,
	})
	RegisterAnimator(Animator[media.RelativePoint]{
		Lerp: func(a, b media.RelativePoint, t float64) media.RelativePoint {
			if a.Unit != b.Unit {
				return Discrete[media.RelativePoint]().Lerp(a, b, t)
			}
			return media.RelativePoint{
				Point: media.Point{X: lerp(a.Point.X, b.Point.X, t), Y: lerp(a.Point.Y, b.Point.Y, t)},
				Unit:  a.Unit,
			}
		},
	})
}
