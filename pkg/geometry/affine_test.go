package geometry

import (
	"math"
	"testing"
)

func TestAffineRotationApply(t *testing.T) {
	r := Rotation(math.Pi / 2)
	got := r.Apply(Point2D{X: 1, Y: 0})
	nearPoint(t, got, Point2D{X: 0, Y: 1}, 1e-6, "quarter turn")
}

func TestAffineComposeOrder(t *testing.T) {
	// t.Compose(u) applies u first.
	tr := Translation(10, 0).Compose(Scale(2, 2))
	got := tr.Apply(Point2D{X: 3, Y: 4})
	nearPoint(t, got, Point2D{X: 16, Y: 8}, 1e-6, "scale then translate")
}

func TestAffineInverseRoundTrip(t *testing.T) {
	tr := Translation(4, -9).Compose(Rotation(0.7)).Compose(Scale(1.5, 0.8))
	inv, ok := tr.Inverse()
	if !ok {
		t.Fatal("Inverse failed on a regular transform")
	}
	p := Point2D{X: 33, Y: -12}
	nearPoint(t, inv.Apply(tr.Apply(p)), p, 1e-3, "round trip")
}

func TestAffineInverseSingular(t *testing.T) {
	if _, ok := Scale(0, 1).Inverse(); ok {
		t.Error("zero-determinant transform should have no inverse")
	}
}
