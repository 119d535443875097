package geometry

import (
	"errors"
)

// ErrSingular is returned when a required matrix inverse does not exist.
var ErrSingular = errors.New("singular transform")

// epsProjective is the tolerance used by the structural predicates
// (IsIdentity, IsAffine). Comparisons of float32 matrix elements.
const epsProjective = 1e-6

// ProjectiveTransform represents a planar projective transform (homography)
// as a 3x3 homogeneous matrix with the bottom-right element fixed at 1,
// leaving 8 free parameters. Transforms are always stored and returned in
// this normalized form.
type ProjectiveTransform struct {
	M [3][3]float32
}

// ProjectiveIdentity returns the identity transform.
func ProjectiveIdentity() ProjectiveTransform {
	return ProjectiveTransform{M: [3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// NewProjective builds a transform from a row-major 3x3 matrix, rescaling so
// the bottom-right element is 1. A zero bottom-right element cannot be
// normalized and is reported as ErrSingular.
func NewProjective(m [3][3]float32) (ProjectiveTransform, error) {
	if m[2][2] == 0 {
		return ProjectiveTransform{}, ErrSingular
	}
	s := 1 / m[2][2]
	var t ProjectiveTransform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t.M[i][j] = m[i][j] * s
		}
	}
	return t, nil
}

// FromAffine lifts a 2x3 affine transform into projective form.
func FromAffine(a AffineTransform) ProjectiveTransform {
	return ProjectiveTransform{M: [3][3]float32{
		{a.A, a.B, a.TX},
		{a.C, a.D, a.TY},
		{0, 0, 1},
	}}
}

// ToAffine extracts the affine part of the transform.
// Reports false when the transform has a perspective component.
func (t ProjectiveTransform) ToAffine() (AffineTransform, bool) {
	if !t.IsAffine() {
		return AffineTransform{}, false
	}
	return AffineTransform{
		A: t.M[0][0], B: t.M[0][1], TX: t.M[0][2],
		C: t.M[1][0], D: t.M[1][1], TY: t.M[1][2],
	}, true
}

// Mul returns the matrix product t * other, renormalized so the bottom-right
// element stays 1. Applying the product is equivalent to applying other
// first, then t.
func (t ProjectiveTransform) Mul(other ProjectiveTransform) ProjectiveTransform {
	var m [3][3]float32
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float32
			for k := 0; k < 3; k++ {
				sum += t.M[i][k] * other.M[k][j]
			}
			m[i][j] = sum
		}
	}
	if w := m[2][2]; w != 0 {
		s := 1 / w
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				m[i][j] *= s
			}
		}
	}
	return ProjectiveTransform{M: m}
}

// Det returns the determinant of the 3x3 matrix.
func (t ProjectiveTransform) Det() float32 {
	m := &t.M
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Invert returns the inverse transform using the closed-form cofactor
// formula. Fails with ErrSingular when the determinant is zero.
func (t ProjectiveTransform) Invert() (ProjectiveTransform, error) {
	det := t.Det()
	if det == 0 {
		return ProjectiveTransform{}, ErrSingular
	}
	m := &t.M
	s := 1 / det
	inv := [3][3]float32{
		{
			(m[1][1]*m[2][2] - m[1][2]*m[2][1]) * s,
			(m[0][2]*m[2][1] - m[0][1]*m[2][2]) * s,
			(m[0][1]*m[1][2] - m[0][2]*m[1][1]) * s,
		},
		{
			(m[1][2]*m[2][0] - m[1][0]*m[2][2]) * s,
			(m[0][0]*m[2][2] - m[0][2]*m[2][0]) * s,
			(m[0][2]*m[1][0] - m[0][0]*m[1][2]) * s,
		},
		{
			(m[1][0]*m[2][1] - m[1][1]*m[2][0]) * s,
			(m[0][1]*m[2][0] - m[0][0]*m[2][1]) * s,
			(m[0][0]*m[1][1] - m[0][1]*m[1][0]) * s,
		},
	}
	if w := inv[2][2]; w != 0 {
		rs := 1 / w
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				inv[i][j] *= rs
			}
		}
	}
	return ProjectiveTransform{M: inv}, nil
}

// ApplyHomogeneous transforms a homogeneous point. No perspective divide is
// performed, so points at infinity pass through untouched.
func (t ProjectiveTransform) ApplyHomogeneous(h HomogeneousPoint) HomogeneousPoint {
	return HomogeneousPoint{
		X: t.M[0][0]*h.X + t.M[0][1]*h.Y + t.M[0][2]*h.W,
		Y: t.M[1][0]*h.X + t.M[1][1]*h.Y + t.M[1][2]*h.W,
		W: t.M[2][0]*h.X + t.M[2][1]*h.Y + t.M[2][2]*h.W,
	}
}

// Apply transforms an affine point and performs the perspective divide.
// Reports false when the point maps onto the line at infinity (w == 0).
func (t ProjectiveTransform) Apply(p Point2D) (Point2D, bool) {
	return t.ApplyHomogeneous(Homogeneous(p)).ToPoint()
}

// TransformPoints transforms a slice of affine points. Points that map onto
// the line at infinity are left zero and reported via the second return
// value (false if any occurred).
func (t ProjectiveTransform) TransformPoints(points []Point2D) ([]Point2D, bool) {
	out := make([]Point2D, len(points))
	ok := true
	for i, p := range points {
		q, valid := t.Apply(p)
		if !valid {
			ok = false
			continue
		}
		out[i] = q
	}
	return out, ok
}

// TransformHomogeneous transforms a slice of homogeneous points.
func (t ProjectiveTransform) TransformHomogeneous(points []HomogeneousPoint) []HomogeneousPoint {
	out := make([]HomogeneousPoint, len(points))
	for i, h := range points {
		out[i] = t.ApplyHomogeneous(h)
	}
	return out
}

// IsIdentity reports whether the transform is the identity within tolerance.
func (t ProjectiveTransform) IsIdentity() bool {
	id := ProjectiveIdentity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if absf(t.M[i][j]-id.M[i][j]) > epsProjective {
				return false
			}
		}
	}
	return true
}

// IsAffine reports whether the transform has no perspective component, i.e.
// its bottom row is (0, 0, 1).
func (t ProjectiveTransform) IsAffine() bool {
	return absf(t.M[2][0]) <= epsProjective && absf(t.M[2][1]) <= epsProjective
}

// IsInvertible reports whether the determinant is strictly positive.
// Orientation-reversing transforms (negative determinant) are deliberately
// rejected: a homography that mirrors the plane cannot arise from two
// photographs of the same scene.
func (t ProjectiveTransform) IsInvertible() bool {
	return t.Det() > 0
}
