package animation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tanema/gween/ease"
)

// Easing shapes interpolation progress. Ease maps [0, 1] to (usually) [0, 1].
type Easing interface {
	Ease(t float64) float64
}

// EasingFunc adapts a plain function. It has no document name and is
// written as linear.
type EasingFunc func(t float64) float64

func (f EasingFunc) Ease(t float64) float64 { return f(t) }

// TweenEasing wraps a gween easing under a document name.
type TweenEasing struct {
	Name string
	Func ease.TweenFunc
}

func (e TweenEasing) Ease(t float64) float64 {
	return float64(e.Func(float32(t), 0, 1, 1))
}

func (e TweenEasing) String() string { return e.Name }

var (
	Linear       = TweenEasing{"linear", ease.Linear}
	InQuad       = TweenEasing{"in-quad", ease.InQuad}
	OutQuad      = TweenEasing{"out-quad", ease.OutQuad}
	InOutQuad    = TweenEasing{"in-out-quad", ease.InOutQuad}
	InCubic      = TweenEasing{"in-cubic", ease.InCubic}
	OutCubic     = TweenEasing{"out-cubic", ease.OutCubic}
	InOutCubic   = TweenEasing{"in-out-cubic", ease.InOutCubic}
	InQuart      = TweenEasing{"in-quart", ease.InQuart}
	OutQuart     = TweenEasing{"out-quart", ease.OutQuart}
	InOutQuart   = TweenEasing{"in-out-quart", ease.InOutQuart}
	InQuint      = TweenEasing{"in-quint", ease.InQuint}
	OutQuint     = TweenEasing{"out-quint", ease.OutQuint}
	InOutQuint   = TweenEasing{"in-out-quint", ease.InOutQuint}
	InSine       = TweenEasing{"in-sine", ease.InSine}
	OutSine      = TweenEasing{"out-sine", ease.OutSine}
	InOutSine    = TweenEasing{"in-out-sine", ease.InOutSine}
	InExpo       = TweenEasing{"in-expo", ease.InExpo}
	OutExpo      = TweenEasing{"out-expo", ease.OutExpo}
	InOutExpo    = TweenEasing{"in-out-expo", ease.InOutExpo}
	InCirc       = TweenEasing{"in-circ", ease.InCirc}
	OutCirc      = TweenEasing{"out-circ", ease.OutCirc}
	InOutCirc    = TweenEasing{"in-out-circ", ease.InOutCirc}
	InBack       = TweenEasing{"in-back", ease.InBack}
	OutBack      = TweenEasing{"out-back", ease.OutBack}
	InOutBack    = TweenEasing{"in-out-back", ease.InOutBack}
	InBounce     = TweenEasing{"in-bounce", ease.InBounce}
	OutBounce    = TweenEasing{"out-bounce", ease.OutBounce}
	InOutBounce  = TweenEasing{"in-out-bounce", ease.InOutBounce}
	InElastic    = TweenEasing{"in-elastic", ease.InElastic}
	OutElastic   = TweenEasing{"out-elastic", ease.OutElastic}
	InOutElastic = TweenEasing{"in-out-elastic", ease.InOutElastic}
)

var namedEasings = map[string]Easing{}

func init() {
	for _, e := range []TweenEasing{
		Linear, InQuad, OutQuad, InOutQuad, InCubic, OutCubic, InOutCubic,
		InQuart, OutQuart, InOutQuart, InQuint, OutQuint, InOutQuint,
		InSine, OutSine, InOutSine, InExpo, OutExpo, InOutExpo,
		InCirc, OutCirc, InOutCirc, InBack, OutBack, InOutBack,
		InBounce, OutBounce, InOutBounce, InElastic, OutElastic, InOutElastic,
	} {
		namedEasings[e.Name] = e
	}
}

// EasingNames lists the registered easing names, sorted.
func EasingNames() []string {
	names := make([]string, 0, len(namedEasings))
	for n := range namedEasings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SplineEasing is a CSS-style cubic-bezier curve through (0,0), (X1,Y1),
// (X2,Y2), (1,1).
type SplineEasing struct {
	X1, Y1, X2, Y2 float64
}

// Ease solves x(u) = t for u with Newton-Raphson, falling back to
// bisection, and returns y(u).
func (s SplineEasing) Ease(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}

	u := t
	for range 8 {
		x := sampleCurve(s.X1, s.X2, u) - t
		if math.Abs(x) < 1e-7 {
			return sampleCurve(s.Y1, s.Y2, clampUnit(u))
		}
		dx := sampleCurveDerivative(s.X1, s.X2, u)
		if math.Abs(dx) < 1e-7 {
			break
		}
		u -= x / dx
	}

	lo, hi := 0.0, 1.0
	u = clampUnit(u)
	for range 20 {
		x := sampleCurve(s.X1, s.X2, u) - t
		if math.Abs(x) < 1e-7 {
			break
		}
		if x > 0 {
			hi = u
		} else {
			lo = u
		}
		u = (lo + hi) * 0.5
	}
	return sampleCurve(s.Y1, s.Y2, u)
}

func (s SplineEasing) String() string {
	return fmt.Sprintf("cubic-bezier(%g,%g,%g,%g)", s.X1, s.Y1, s.X2, s.Y2)
}

func sampleCurve(a, b, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*t*a + 3*inv*t*t*b + t*t*t
}

func sampleCurveDerivative(a, b, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*a + 6*inv*t*(b-a) + 3*t*t*(1-b)
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// EasingName returns the document name of e. Unnamed easings are written
// as "linear".
func EasingName(e Easing) string {
	switch v := e.(type) {
	case nil:
		return Linear.Name
	case TweenEasing:
		return v.Name
	case SplineEasing:
		return v.String()
	}
	return Linear.Name
}

// ParseEasing resolves a name written by EasingName.
func ParseEasing(name string) (Easing, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Linear, nil
	}
	if e, ok := namedEasings[name]; ok {
		return e, nil
	}
	if strings.HasPrefix(name, "cubic-bezier(") {
		var s SplineEasing
		if _, err := fmt.Sscanf(name, "cubic-bezier(%g,%g,%g,%g)", &s.X1, &s.Y1, &s.X2, &s.Y2); err != nil {
			return nil, fmt.Errorf("animation: bad spline %q: %w", name, err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("animation: unknown easing %q", name)
}

func easeOrLinear(e Easing, t float64) float64 {
	if e == nil {
		return t
	}
	return e.Ease(t)
}
