package geometry

import "testing"

func TestHomogeneousLift(t *testing.T) {
	h := Homogeneous(Point2D{X: 3, Y: -1})
	if h.W != 1 {
		t.Fatalf("W = %v, want 1", h.W)
	}
	p, ok := h.ToPoint()
	if !ok {
		t.Fatal("ToPoint failed on finite point")
	}
	nearPoint(t, p, Point2D{X: 3, Y: -1}, 0, "lift round trip")
}

func TestNormalizeScaledPoint(t *testing.T) {
	h := HomogeneousPoint{X: 6, Y: -2, W: 2}
	n, ok := h.Normalize()
	if !ok {
		t.Fatal("Normalize failed")
	}
	near(t, n.X, 3, 1e-6, "X")
	near(t, n.Y, -1, 1e-6, "Y")
	near(t, n.W, 1, 1e-6, "W")
}

func TestPointAtInfinity(t *testing.T) {
	h := HomogeneousPoint{X: 1, Y: 2, W: 0}
	if _, ok := h.Normalize(); ok {
		t.Error("Normalize should fail at w == 0")
	}
	if _, ok := h.ToPoint(); ok {
		t.Error("ToPoint should fail at w == 0")
	}
}

func TestEqScaleInvariant(t *testing.T) {
	a := HomogeneousPoint{X: 2, Y: 4, W: 1}
	b := HomogeneousPoint{X: 6, Y: 12, W: 3}
	if !a.Eq(b, 1e-5) {
		t.Error("scaled copies should compare equal")
	}
	c := HomogeneousPoint{X: 6, Y: 13, W: 3}
	if a.Eq(c, 1e-5) {
		t.Error("distinct points should not compare equal")
	}
	// Two points at infinity with the same direction.
	d := HomogeneousPoint{X: 1, Y: 0, W: 0}
	e := HomogeneousPoint{X: 5, Y: 0, W: 0}
	if !d.Eq(e, 1e-5) {
		t.Error("parallel directions at infinity should compare equal")
	}
}

func TestSignedArea(t *testing.T) {
	a := Point2D{X: 0, Y: 0}
	b := Point2D{X: 4, Y: 0}
	c := Point2D{X: 0, Y: 3}
	if got := SignedArea(a, b, c); got != 12 {
		t.Errorf("SignedArea = %v, want 12", got)
	}
	if got := SignedArea(a, c, b); got != -12 {
		t.Errorf("reversed SignedArea = %v, want -12", got)
	}
	if got := SignedArea(a, b, Point2D{X: 2, Y: 0}); got != 0 {
		t.Errorf("collinear SignedArea = %v, want 0", got)
	}
}
