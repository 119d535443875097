package geometry

// HomogeneousPoint represents a 2D point in homogeneous coordinates (x, y, w).
// Two homogeneous points describe the same location when their
// perspective-divided forms (x/w, y/w) match, so differently-scaled triples
// compare equal. Points with w == 0 lie at infinity and have no affine form;
// the explicit conversions below keep that edge case visible at call sites.
type HomogeneousPoint struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	W float32 `json:"w"`
}

// Homogeneous lifts an affine point into homogeneous coordinates with w = 1.
func Homogeneous(p Point2D) HomogeneousPoint {
	return HomogeneousPoint{X: p.X, Y: p.Y, W: 1}
}

// Normalize returns the scaled representation with w = 1.
// Reports false for points at infinity (w == 0), which have no such form.
func (h HomogeneousPoint) Normalize() (HomogeneousPoint, bool) {
	if h.W == 0 {
		return HomogeneousPoint{}, false
	}
	return HomogeneousPoint{X: h.X / h.W, Y: h.Y / h.W, W: 1}, true
}

// ToPoint performs the perspective divide, returning the affine point.
// Reports false when w == 0.
func (h HomogeneousPoint) ToPoint() (Point2D, bool) {
	if h.W == 0 {
		return Point2D{}, false
	}
	return Point2D{X: h.X / h.W, Y: h.Y / h.W}, true
}

// Eq reports whether two homogeneous points describe the same projective
// location within eps. The comparison is scale-invariant: (2,4,2) equals
// (1,2,1). Points at infinity compare by direction.
func (h HomogeneousPoint) Eq(other HomogeneousPoint, eps float32) bool {
	return absf(h.X*other.W-other.X*h.W) <= eps &&
		absf(h.Y*other.W-other.Y*h.W) <= eps &&
		absf(h.X*other.Y-other.X*h.Y) <= eps
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
