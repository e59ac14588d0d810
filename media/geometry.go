package media

import (
	"fmt"
	"math"
)

// Point is a location in pixels. The origin is the top-left corner with Y
// increasing downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y} }
func (p Point) Sub(o Point) Point { return Point{p.X - o.X, p.Y - o.Y} }

// Vector is a 2D displacement or per-axis amount (blur sigma, scale).
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vector) Add(o Vector) Vector { return Vector{v.X + o.X, v.Y + o.Y} }
func (v Vector) Sub(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y} }

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Infinite is used as an unconstrained available size.
var Infinite = Size{math.Inf(1), math.Inf(1)}

func (s Size) Add(o Size) Size { return Size{s.Width + o.Width, s.Height + o.Height} }
func (s Size) Sub(o Size) Size { return Size{s.Width - o.Width, s.Height - o.Height} }

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// InvalidRect marks bounds that have not been measured.
var InvalidRect = Rect{math.NaN(), math.NaN(), math.NaN(), math.NaN()}

func RectFromSize(s Size) Rect { return Rect{Width: s.Width, Height: s.Height} }

func (r Rect) Left() float64   { return r.X }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

func (r Rect) Position() Point { return Point{r.X, r.Y} }
func (r Rect) Size() Size      { return Size{r.Width, r.Height} }
func (r Rect) Center() Point   { return Point{r.X + r.Width/2, r.Y + r.Height/2} }

// IsInvalid reports whether any component is NaN.
func (r Rect) IsInvalid() bool {
	return math.IsNaN(r.X) || math.IsNaN(r.Y) || math.IsNaN(r.Width) || math.IsNaN(r.Height)
}

// IsEmpty reports whether the rectangle covers no area.
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether (x, y) lies inside r. Edges are inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Union returns the smallest rectangle containing both. Invalid or empty
// operands are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.IsInvalid() || r.IsEmpty() {
		return o
	}
	if o.IsInvalid() || o.IsEmpty() {
		return r
	}
	x0 := math.Min(r.X, o.X)
	y0 := math.Min(r.Y, o.Y)
	x1 := math.Max(r.Right(), o.Right())
	y1 := math.Max(r.Bottom(), o.Bottom())
	return Rect{x0, y0, x1 - x0, y1 - y0}
}

// Intersect returns the overlap, or an empty rectangle.
func (r Rect) Intersect(o Rect) Rect {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.Right(), o.Right())
	y1 := math.Min(r.Bottom(), o.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{x0, y0, x1 - x0, y1 - y0}
}

// Inflate grows the rectangle by dx/dy on each side.
func (r Rect) Inflate(dx, dy float64) Rect {
	return Rect{r.X - dx, r.Y - dy, r.Width + 2*dx, r.Height + 2*dy}
}

func (r Rect) Translate(v Vector) Rect {
	return Rect{r.X + v.X, r.Y + v.Y, r.Width, r.Height}
}

// TransformToAABB transforms the four corners by m and returns their
// bounding box.
func (r Rect) TransformToAABB(m Matrix) Rect {
	xs := [4]float64{}
	ys := [4]float64{}
	xs[0], ys[0] = m.TransformPoint(r.X, r.Y)
	xs[1], ys[1] = m.TransformPoint(r.Right(), r.Y)
	xs[2], ys[2] = m.TransformPoint(r.X, r.Bottom())
	xs[3], ys[3] = m.TransformPoint(r.Right(), r.Bottom())
	x0, y0 := xs[0], ys[0]
	x1, y1 := xs[0], ys[0]
	for i := 1; i < 4; i++ {
		x0 = math.Min(x0, xs[i])
		y0 = math.Min(y0, ys[i])
		x1 = math.Max(x1, xs[i])
		y1 = math.Max(y1, ys[i])
	}
	return Rect{x0, y0, x1 - x0, y1 - y0}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", r.X, r.Y, r.Width, r.Height)
}

// RelativeUnit tells whether a RelativePoint is in pixels or a fraction of
// the bounds it is resolved against.
type RelativeUnit uint8

const (
	UnitAbsolute RelativeUnit = iota
	UnitRelative
)

// RelativePoint is a point that may be expressed as a fraction of a
// rectangle (0.5, 0.5 is the center).
type RelativePoint struct {
	Point Point        `json:"point"`
	Unit  RelativeUnit `json:"unit"`
}

// Center is the relative center of any rectangle.
var Center = RelativePoint{Point: Point{0.5, 0.5}, Unit: UnitRelative}

// TopLeft is the absolute origin.
var TopLeft = RelativePoint{}

// Resolve converts p to an absolute point within bounds.
func (p RelativePoint) Resolve(bounds Size) Point {
	if p.Unit == UnitRelative {
		return Point{p.Point.X * bounds.Width, p.Point.Y * bounds.Height}
	}
	return p.Point
}

// AlignmentX positions content horizontally within the frame.
type AlignmentX uint8

const (
	AlignLeft AlignmentX = iota
	AlignCenterX
	AlignRight
)

// AlignmentY positions content vertically within the frame.
type AlignmentY uint8

const (
	AlignTop AlignmentY = iota
	AlignCenterY
	AlignBottom
)

// AlignOffset returns the offset that places content of size inner within a
// frame of size outer.
func AlignOffset(ax AlignmentX, ay AlignmentY, inner, outer Size) Vector {
	var v Vector
	switch ax {
	case AlignCenterX:
		v.X = (outer.Width - inner.Width) / 2
	case AlignRight:
		v.X = outer.Width - inner.Width
	}
	switch ay {
	case AlignCenterY:
		v.Y = (outer.Height - inner.Height) / 2
	case AlignBottom:
		v.Y = outer.Height - inner.Height
	}
	return v
}
