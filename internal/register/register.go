// Package register runs the full image registration pipeline: corner
// detection on both images, correlation matching between the point sets,
// and robust homography estimation over the matched correspondences.
package register

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"pano-align/internal/features"
	"pano-align/internal/match"
	"pano-align/internal/ransac"
	"pano-align/internal/raster"
	"pano-align/pkg/geometry"
)

// Options configures the registration pipeline.
type Options struct {
	Harris  features.Params `json:"harris"`
	Window  int             `json:"window"`  // correlation window size (odd)
	MaxDist int             `json:"maxDist"` // max match candidate distance in pixels, 0 = unrestricted
	Ransac  ransac.Params   `json:"ransac"`
}

// DefaultOptions returns pipeline defaults suited to overlapping
// photographs of the same scene.
func DefaultOptions() Options {
	return Options{
		Harris:  features.DefaultParams(),
		Window:  9,
		MaxDist: 0,
		Ransac:  ransac.DefaultParams(),
	}
}

// Result holds everything the pipeline produced: the transform mapping the
// source image's plane onto the reference image's plane, the intermediate
// point sets, and the consensus diagnostics.
type Result struct {
	Transform geometry.ProjectiveTransform

	RefPoints []geometry.PointInt // corners detected in the reference image
	SrcPoints []geometry.PointInt // corners detected in the source image

	MatchedRef []geometry.PointInt // index-aligned matched pairs
	MatchedSrc []geometry.PointInt
	Scores     *match.ScoreMatrix

	Inliers      []int   // indices into the matched pair arrays
	Trials       int     // RANSAC model evaluations
	MeanResidual float32 // mean symmetric transfer distance over inliers, in pixels
}

// Register aligns src onto ref and returns the estimated transform.
//
// ransac.ErrInsufficientConsensus propagates unchanged when no consistent
// set of at least four correspondences exists; callers can react by
// detecting more features or loosening thresholds rather than failing hard.
func Register(ref, src image.Image, opts Options, logger *logrus.Logger) (*Result, error) {
	if ref == nil || src == nil {
		return nil, fmt.Errorf("nil input image")
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	refGray, err := raster.Gray(ref)
	if err != nil {
		return nil, fmt.Errorf("reference image: %w", err)
	}
	srcGray, err := raster.Gray(src)
	if err != nil {
		return nil, fmt.Errorf("source image: %w", err)
	}

	detector := features.NewDetector(opts.Harris)
	refPoints, err := detector.Detect(refGray)
	if err != nil {
		return nil, fmt.Errorf("reference corner detection: %w", err)
	}
	srcPoints, err := detector.Detect(srcGray)
	if err != nil {
		return nil, fmt.Errorf("source corner detection: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"ref": len(refPoints),
		"src": len(srcPoints),
	}).Info("detected corners")

	matcher, err := match.NewMatcher(opts.Window, opts.MaxDist)
	if err != nil {
		return nil, err
	}
	matched, err := matcher.Match(refGray, srcGray, refPoints, srcPoints)
	if err != nil {
		return nil, fmt.Errorf("correlation matching: %w", err)
	}
	logger.WithField("pairs", len(matched.A)).Info("matched point pairs")

	refPts := toFloat(matched.A)
	srcPts := toFloat(matched.B)

	estimator := ransac.NewEstimator(opts.Ransac)
	consensus, err := estimator.Estimate(srcPts, refPts)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Transform:  consensus.Transform,
		RefPoints:  refPoints,
		SrcPoints:  srcPoints,
		MatchedRef: matched.A,
		MatchedSrc: matched.B,
		Scores:     matched.Scores,
		Inliers:    consensus.Inliers,
		Trials:     consensus.Trials,
	}
	result.MeanResidual = meanResidual(consensus, srcPts, refPts)

	logger.WithFields(logrus.Fields{
		"inliers":  len(consensus.Inliers),
		"trials":   consensus.Trials,
		"residual": result.MeanResidual,
	}).Info("estimated transform")

	if !consensus.Transform.IsInvertible() {
		logger.Warn("transform is orientation-reversing or singular; registration is suspect")
	}

	return result, nil
}

// meanResidual averages the symmetric transfer distance of the inlier set.
func meanResidual(consensus *ransac.Result, srcPts, refPts []geometry.Point2D) float32 {
	if len(consensus.Inliers) == 0 {
		return 0
	}
	inverse, err := consensus.Transform.Invert()
	if err != nil {
		return float32(math.Inf(1))
	}

	var total float64
	for _, idx := range consensus.Inliers {
		errSq := ransac.SymmetricTransferError(consensus.Transform, inverse, srcPts[idx], refPts[idx])
		total += math.Sqrt(float64(errSq))
	}
	return float32(total / float64(len(consensus.Inliers)))
}

func toFloat(pts []geometry.PointInt) []geometry.Point2D {
	out := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		out[i] = p.ToFloat()
	}
	return out
}
