// Package ransac provides a robust projective-transform estimator that
// repeatedly fits minimal samples and keeps the model with the largest
// consensus set, rejecting outlier correspondences.
package ransac

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"pano-align/internal/homography"
	"pano-align/pkg/geometry"
)

// ErrInsufficientConsensus reports that no trial produced a model supported
// by at least SampleSize inliers. This is an expected outcome on bad data,
// not a fatal failure: callers typically react by detecting more features
// or loosening the threshold.
var ErrInsufficientConsensus = errors.New("insufficient consensus")

// SampleSize is the minimal sample that fully constrains a homography.
const SampleSize = 4

// collinearEps bounds the signed triangle area below which three sample
// points count as collinear.
const collinearEps = 1e-3

// maxDegenerateRedraws caps consecutive degenerate redraws so fully
// collinear inputs cannot stall the loop. Redraws do not consume trials.
const maxDegenerateRedraws = 100

// Params configures the estimation loop.
type Params struct {
	Threshold  float32 `json:"threshold"`  // inlier bound on the squared symmetric transfer error
	Confidence float64 `json:"confidence"` // target probability of drawing one outlier-free sample
	MaxIters   int     `json:"maxIters"`   // hard iteration cap
	Seed       int64   `json:"seed"`       // RNG seed; a fixed seed fixes the draw sequence
}

// DefaultParams returns estimation parameters suited to pixel-scale noise.
func DefaultParams() Params {
	return Params{
		Threshold:  9.0,
		Confidence: 0.99,
		MaxIters:   2000,
		Seed:       1,
	}
}

// FitFunc fits a transform mapping src[i] to dst[i].
type FitFunc func(src, dst []geometry.Point2D) (geometry.ProjectiveTransform, error)

// DegenerateFunc reports whether a minimal sample cannot constrain a model.
type DegenerateFunc func(src, dst []geometry.Point2D) bool

// DistanceFunc scores one correspondence against a candidate transform and
// its inverse. Smaller is better.
type DistanceFunc func(t, inv geometry.ProjectiveTransform, src, dst geometry.Point2D) float32

// Estimator drives the sample/fit/score loop. The fitting, degeneracy and
// distance operations are injected at construction, keeping the driver
// generic over the model and free of shared mutable state.
type Estimator struct {
	fit        FitFunc
	degenerate DegenerateFunc
	distance   DistanceFunc
	params     Params
}

// NewEstimator returns an estimator wired to the homography DLT fit, the
// collinearity degeneracy test and the symmetric transfer error.
func NewEstimator(params Params) *Estimator {
	return NewEstimatorFuncs(params, homography.Fit, SampleCollinear, SymmetricTransferError)
}

// NewEstimatorFuncs returns an estimator with caller-supplied operations.
func NewEstimatorFuncs(params Params, fit FitFunc, degenerate DegenerateFunc, distance DistanceFunc) *Estimator {
	return &Estimator{fit: fit, degenerate: degenerate, distance: distance, params: params}
}

// Result holds the accepted model and its consensus set.
type Result struct {
	Transform geometry.ProjectiveTransform
	Inliers   []int // indices into the input correspondence arrays
	Trials    int   // model evaluations consumed
}

// Estimate runs the consensus loop over index-aligned correspondences.
//
// Each trial draws four distinct correspondences, rejects degenerate draws
// without consuming the trial, fits a candidate and counts the
// correspondences whose squared symmetric transfer error is below the
// threshold. The iteration bound adapts downward as better consensus sets
// are found: ln(1-p) / ln(1-w^4) trials suffice to reach confidence p when
// a fraction w of the data is inliers. The first trial to reach the best
// inlier count wins ties, which keeps results reproducible for a fixed
// seed. The final transform is refit on every inlier of the best sample.
func (e *Estimator) Estimate(src, dst []geometry.Point2D) (*Result, error) {
	if len(src) != len(dst) {
		return nil, fmt.Errorf("correspondence count mismatch: %d vs %d", len(src), len(dst))
	}
	n := len(src)
	if n < SampleSize {
		return nil, ErrInsufficientConsensus
	}

	rng := rand.New(rand.NewSource(e.params.Seed))

	var (
		bestInliers   []int
		bestTransform geometry.ProjectiveTransform
		haveBest      bool
		trials        int
	)
	required := e.params.MaxIters

	sampleSrc := make([]geometry.Point2D, SampleSize)
	sampleDst := make([]geometry.Point2D, SampleSize)

	for trials < required && trials < e.params.MaxIters {
		if !e.draw(rng, n, sampleSrc, sampleDst, src, dst) {
			break
		}
		trials++

		candidate, err := e.fit(sampleSrc, sampleDst)
		if err != nil {
			continue
		}
		inverse, err := candidate.Invert()
		if err != nil {
			continue
		}

		var inliers []int
		threshold := e.params.Threshold
		for i := 0; i < n; i++ {
			if e.distance(candidate, inverse, src[i], dst[i]) < threshold {
				inliers = append(inliers, i)
			}
		}

		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
			bestTransform = candidate
			haveBest = true
			required = e.requiredTrials(len(inliers), n)
		}
	}

	if !haveBest || len(bestInliers) < SampleSize {
		return nil, ErrInsufficientConsensus
	}

	// Refit over the full consensus set. Should the refit itself fail, the
	// minimal-sample transform already in hand is kept.
	inlierSrc := make([]geometry.Point2D, len(bestInliers))
	inlierDst := make([]geometry.Point2D, len(bestInliers))
	for i, idx := range bestInliers {
		inlierSrc[i] = src[idx]
		inlierDst[i] = dst[idx]
	}
	if refit, err := e.fit(inlierSrc, inlierDst); err == nil {
		bestTransform = refit
	}

	return &Result{Transform: bestTransform, Inliers: bestInliers, Trials: trials}, nil
}

// draw fills the sample buffers with a random size-4 subset, redrawing on
// degenerate geometry. Reports false when no usable sample emerges within
// the redraw cap.
func (e *Estimator) draw(rng *rand.Rand, n int, sampleSrc, sampleDst, src, dst []geometry.Point2D) bool {
	for attempt := 0; attempt < maxDegenerateRedraws; attempt++ {
		indices := rng.Perm(n)[:SampleSize]
		for i, idx := range indices {
			sampleSrc[i] = src[idx]
			sampleDst[i] = dst[idx]
		}
		if !e.degenerate(sampleSrc, sampleDst) {
			return true
		}
	}
	return false
}

// requiredTrials returns the adaptive iteration bound for the current best
// inlier fraction, capped at MaxIters.
func (e *Estimator) requiredTrials(inliers, total int) int {
	w := float64(inliers) / float64(total)
	wPow := math.Pow(w, SampleSize)
	if wPow >= 1 {
		return 0
	}
	if wPow <= 0 {
		return e.params.MaxIters
	}
	needed := math.Log(1-e.params.Confidence) / math.Log(1-wPow)
	if math.IsNaN(needed) || needed > float64(e.params.MaxIters) {
		return e.params.MaxIters
	}
	return int(math.Ceil(needed))
}

// SampleCollinear reports whether any three of the four sample points are
// collinear in either point set, which leaves the homography
// underconstrained.
func SampleCollinear(src, dst []geometry.Point2D) bool {
	return anyThreeCollinear(src) || anyThreeCollinear(dst)
}

func anyThreeCollinear(pts []geometry.Point2D) bool {
	for i := 0; i < len(pts)-2; i++ {
		for j := i + 1; j < len(pts)-1; j++ {
			for k := j + 1; k < len(pts); k++ {
				if area := geometry.SignedArea(pts[i], pts[j], pts[k]); area < collinearEps && area > -collinearEps {
					return true
				}
			}
		}
	}
	return false
}

// SymmetricTransferError scores a correspondence by projecting src forward
// through the transform and dst backward through its inverse, summing the
// squared residuals of both directions. Correspondences that project onto
// the line at infinity score +Inf and can never be inliers.
func SymmetricTransferError(t, inv geometry.ProjectiveTransform, src, dst geometry.Point2D) float32 {
	forward, okF := t.Apply(src)
	backward, okB := inv.Apply(dst)
	if !okF || !okB {
		return float32(math.Inf(1))
	}
	return forward.DistanceSq(dst) + backward.DistanceSq(src)
}
