package media

import "math"

// Matrix is a 2D affine transform stored as [a, b, c, d, tx, ty]:
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
type Matrix [6]float64

// Identity is the identity transform.
var Identity = Matrix{1, 0, 0, 1, 0, 0}

func Translation(x, y float64) Matrix { return Matrix{1, 0, 0, 1, x, y} }

func Scale(sx, sy float64) Matrix { return Matrix{sx, 0, 0, sy, 0, 0} }

// Rotation returns a rotation by radians around the origin.
func Rotation(radians float64) Matrix {
	sin, cos := math.Sincos(radians)
	return Matrix{cos, sin, -sin, cos, 0, 0}
}

// Skew returns a skew by the given angles in radians.
func Skew(ax, ay float64) Matrix {
	return Matrix{1, math.Tan(ay), math.Tan(ax), 1, 0, 0}
}

// Multiply returns m * o: o is applied first, then m.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[2]*o[1],
		m[1]*o[0] + m[3]*o[1],
		m[0]*o[2] + m[2]*o[3],
		m[1]*o[2] + m[3]*o[3],
		m[0]*o[4] + m[2]*o[5] + m[4],
		m[1]*o[4] + m[3]*o[5] + m[5],
	}
}

// Then returns the transform that applies m and then o.
func (m Matrix) Then(o Matrix) Matrix { return o.Multiply(m) }

// Invert returns the inverse. A singular matrix yields Identity and false.
func (m Matrix) Invert() (Matrix, bool) {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return Identity, false
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return Matrix{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}, true
}

// TransformPoint applies m to (x, y).
func (m Matrix) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func (m Matrix) IsIdentity() bool { return m == Identity }

// Add and Sub are component-wise; they exist for additive animation.
func (m Matrix) Add(o Matrix) Matrix {
	var r Matrix
	for i := range m {
		r[i] = m[i] + o[i]
	}
	return r
}

func (m Matrix) Sub(o Matrix) Matrix {
	var r Matrix
	for i := range m {
		r[i] = m[i] - o[i]
	}
	return r
}

// Lerp interpolates component-wise.
func (m Matrix) Lerp(o Matrix, t float64) Matrix {
	var r Matrix
	for i := range m {
		r[i] = m[i] + (o[i]-m[i])*t
	}
	return r
}
