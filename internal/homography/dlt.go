// Package homography estimates projective transforms from point
// correspondences using the normalized direct linear transform (DLT).
//
// The fit solves the homogeneous system built from the cross-product
// constraint x2 × (H·x1) = 0 via singular value decomposition, after
// conditioning both point sets with Hartley normalization (zero centroid,
// mean distance sqrt(2)).
package homography

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"pano-align/pkg/geometry"
)

// MinCorrespondences is the smallest number of point pairs that constrains
// all 8 degrees of freedom of a homography.
const MinCorrespondences = 4

// Fit estimates the transform mapping src[i] to dst[i] from perspective-
// divided (affine) correspondences. Each pair contributes the two
// independent rows of the DLT constraint. Requires at least 4 pairs of
// equal count.
func Fit(src, dst []geometry.Point2D) (geometry.ProjectiveTransform, error) {
	if err := validateCounts(len(src), len(dst)); err != nil {
		return geometry.ProjectiveTransform{}, err
	}

	normSrc, t1, err := normalize(src)
	if err != nil {
		return geometry.ProjectiveTransform{}, fmt.Errorf("source normalization: %w", err)
	}
	normDst, t2, err := normalize(dst)
	if err != nil {
		return geometry.ProjectiveTransform{}, fmt.Errorf("target normalization: %w", err)
	}

	a := mat.NewDense(2*len(src), 9, nil)
	for i := range normSrc {
		setConstraintRows(a, 2*i, false,
			float64(normSrc[i].X), float64(normSrc[i].Y), 1,
			float64(normDst[i].X), float64(normDst[i].Y), 1)
	}

	return solve(a, t1, t2)
}

// FitHomogeneous estimates the transform from homogeneous correspondences.
// Each pair contributes all three cross-product rows; only two are linearly
// independent, but the redundant row is kept for numerical conditioning.
// Points at infinity (w == 0) cannot be normalized and are rejected.
func FitHomogeneous(src, dst []geometry.HomogeneousPoint) (geometry.ProjectiveTransform, error) {
	if err := validateCounts(len(src), len(dst)); err != nil {
		return geometry.ProjectiveTransform{}, err
	}

	affSrc, err := divide(src)
	if err != nil {
		return geometry.ProjectiveTransform{}, err
	}
	affDst, err := divide(dst)
	if err != nil {
		return geometry.ProjectiveTransform{}, err
	}

	normSrc, t1, err := normalize(affSrc)
	if err != nil {
		return geometry.ProjectiveTransform{}, fmt.Errorf("source normalization: %w", err)
	}
	normDst, t2, err := normalize(affDst)
	if err != nil {
		return geometry.ProjectiveTransform{}, fmt.Errorf("target normalization: %w", err)
	}

	a := mat.NewDense(3*len(src), 9, nil)
	for i := range normSrc {
		setConstraintRows(a, 3*i, true,
			float64(normSrc[i].X), float64(normSrc[i].Y), 1,
			float64(normDst[i].X), float64(normDst[i].Y), 1)
	}

	return solve(a, t1, t2)
}

func validateCounts(n1, n2 int) error {
	if n1 != n2 {
		return fmt.Errorf("correspondence count mismatch: %d vs %d", n1, n2)
	}
	if n1 < MinCorrespondences {
		return fmt.Errorf("need at least %d correspondences, got %d", MinCorrespondences, n1)
	}
	return nil
}

func divide(pts []geometry.HomogeneousPoint) ([]geometry.Point2D, error) {
	out := make([]geometry.Point2D, len(pts))
	for i, h := range pts {
		p, ok := h.ToPoint()
		if !ok {
			return nil, fmt.Errorf("correspondence %d is a point at infinity", i)
		}
		out[i] = p
	}
	return out, nil
}

// setConstraintRows writes the DLT rows of one correspondence starting at
// matrix row r. The first two rows are always emitted; the third only for
// the homogeneous variant.
func setConstraintRows(a *mat.Dense, r int, threeRows bool, x1, y1, w1, x2, y2, w2 float64) {
	a.SetRow(r, []float64{
		0, 0, 0,
		-w2 * x1, -w2 * y1, -w2 * w1,
		y2 * x1, y2 * y1, y2 * w1,
	})
	a.SetRow(r+1, []float64{
		w2 * x1, w2 * y1, w2 * w1,
		0, 0, 0,
		-x2 * x1, -x2 * y1, -x2 * w1,
	})
	if threeRows {
		a.SetRow(r+2, []float64{
			-y2 * x1, -y2 * y1, -y2 * w1,
			x2 * x1, x2 * y1, x2 * w1,
			0, 0, 0,
		})
	}
}

// similarity is a Hartley normalization transform: uniform scale s about the
// origin after translating the centroid (cx, cy) to it.
type similarity struct {
	s, cx, cy float64
}

// normalize translates a point set to zero centroid and scales it so
// the mean distance from the origin is sqrt(2). A degenerate set (all
// points coincident) yields a non-invertible transform and fails with
// geometry.ErrSingular.
func normalize(pts []geometry.Point2D) ([]geometry.Point2D, similarity, error) {
	c := geometry.Centroid(pts)

	var meanDist float64
	for _, p := range pts {
		dx := float64(p.X - c.X)
		dy := float64(p.Y - c.Y)
		meanDist += math.Sqrt(dx*dx + dy*dy)
	}
	meanDist /= float64(len(pts))
	if meanDist == 0 {
		return nil, similarity{}, fmt.Errorf("%w: coincident point set", geometry.ErrSingular)
	}

	s := math.Sqrt2 / meanDist
	out := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		out[i] = geometry.Point2D{
			X: float32(float64(p.X-c.X) * s),
			Y: float32(float64(p.Y-c.Y) * s),
		}
	}
	return out, similarity{s: s, cx: float64(c.X), cy: float64(c.Y)}, nil
}

// matrix returns the 3x3 form of the normalization transform.
func (t similarity) matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		t.s, 0, -t.s * t.cx,
		0, t.s, -t.s * t.cy,
		0, 0, 1,
	})
}

// inverse returns the closed-form inverse of the normalization transform.
func (t similarity) inverse() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1 / t.s, 0, t.cx,
		0, 1 / t.s, t.cy,
		0, 0, 1,
	})
}

// solve extracts the homography from the constraint matrix: the right
// singular vector of the smallest singular value, reshaped 3x3,
// denormalized as T2^-1 * Hn * T1 and rescaled so the bottom-right element
// is 1.
func solve(a *mat.Dense, t1, t2 similarity) (geometry.ProjectiveTransform, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFullV); !ok {
		return geometry.ProjectiveTransform{}, fmt.Errorf("SVD failed to converge")
	}

	var v mat.Dense
	svd.VTo(&v)
	_, cols := v.Dims()
	h := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h.Set(i, j, v.At(3*i+j, cols-1))
		}
	}

	var left, denorm mat.Dense
	left.Mul(t2.inverse(), h)
	denorm.Mul(&left, t1.matrix())

	scale := denorm.At(2, 2)
	if scale == 0 {
		return geometry.ProjectiveTransform{}, fmt.Errorf("%w: homography has zero scale", geometry.ErrSingular)
	}

	var out geometry.ProjectiveTransform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.M[i][j] = float32(denorm.At(i, j) / scale)
		}
	}
	return out, nil
}
