// Command stitch registers two overlapping images and composites them into
// a single mosaic.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"math"
	"os"

	"github.com/sirupsen/logrus"

	"pano-align/internal/compose"
	"pano-align/internal/features"
	"pano-align/internal/ransac"
	"pano-align/internal/raster"
	"pano-align/internal/register"
	"pano-align/internal/version"
	"pano-align/pkg/geometry"

	_ "golang.org/x/image/tiff"
)

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	refPath := flag.String("a", "", "Path to reference image")
	srcPath := flag.String("b", "", "Path to image to register onto the reference")
	outPrefix := flag.String("o", "stitch", "Output file prefix")
	window := flag.Int("window", 9, "Correlation window size (odd)")
	maxDist := flag.Int("maxdist", 0, "Maximum match distance in pixels (0 = unrestricted)")
	threshold := flag.Float64("t", 9.0, "RANSAC inlier threshold (squared symmetric transfer error)")
	seed := flag.Int64("seed", 1, "RANSAC random seed")
	iters := flag.Int("iters", 2000, "RANSAC iteration cap")
	doOverlay := flag.Bool("overlay", false, "Also write a 50/50 overlay of the registered pair")
	doMatches := flag.Bool("matches", false, "Also write a side-by-side image of inlier matches")
	verbose := flag.Bool("v", false, "Verbose progress output")
	flag.Parse()

	if *showVersion {
		fmt.Printf("stitch %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	if *refPath == "" || *srcPath == "" {
		fmt.Println("Usage: stitch -a <reference> -b <source> [-o <prefix>] [-overlay] [-matches]")
		os.Exit(1)
	}

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	ref, err := raster.Load(*refPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load reference: %v\n", err)
		os.Exit(1)
	}
	src, err := raster.Load(*srcPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load source: %v\n", err)
		os.Exit(1)
	}

	opts := register.DefaultOptions()
	opts.Window = *window
	opts.MaxDist = *maxDist
	opts.Ransac.Threshold = float32(*threshold)
	opts.Ransac.Seed = *seed
	opts.Ransac.MaxIters = *iters

	fmt.Printf("=== Registering %s onto %s ===\n", *srcPath, *refPath)
	result, err := register.Register(ref, src, opts, logger)
	if errors.Is(err, ransac.ErrInsufficientConsensus) {
		fmt.Println("No consensus: the images do not appear to overlap with the current settings.")
		fmt.Println("Try a lower -t threshold, a larger -window, or images with more texture.")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Registration failed: %v\n", err)
		os.Exit(1)
	}

	printResult(result)

	if err := writeOutputs(ref, src, result, *outPrefix, *doOverlay, *doMatches); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write outputs: %v\n", err)
		os.Exit(1)
	}
}

func printResult(result *register.Result) {
	t := result.Transform
	angle := math.Atan2(float64(t.M[1][0]), float64(t.M[0][0])) * 180 / math.Pi
	scale := math.Hypot(float64(t.M[0][0]), float64(t.M[1][0]))

	fmt.Printf("\n=== Result ===\n")
	fmt.Printf("Corners: ref=%d src=%d, matched pairs: %d\n",
		len(result.RefPoints), len(result.SrcPoints), len(result.MatchedRef))
	fmt.Printf("Inliers: %d of %d (%d trials)\n",
		len(result.Inliers), len(result.MatchedRef), result.Trials)
	fmt.Printf("Mean residual: %.2f px\n", result.MeanResidual)
	fmt.Printf("Rotation: %.4f°  Scale: %.6f\n", angle, scale)
	fmt.Printf("Translation: (%.1f, %.1f)\n", t.M[0][2], t.M[1][2])
	fmt.Printf("Perspective: (%.6g, %.6g)\n", t.M[2][0], t.M[2][1])
	for i := 0; i < 3; i++ {
		fmt.Printf("  [%9.4f %9.4f %9.4f]\n", t.M[i][0], t.M[i][1], t.M[i][2])
	}
}

func writeOutputs(ref, src image.Image, result *register.Result, prefix string, doOverlay, doMatches bool) error {
	refW := ref.Bounds().Dx()
	refH := ref.Bounds().Dy()
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()

	// Canvas bounds: the reference frame extended to cover the projected
	// source corners.
	corners, _ := result.Transform.TransformPoints([]geometry.Point2D{
		{X: 0, Y: 0},
		{X: float32(srcW), Y: 0},
		{X: float32(srcW), Y: float32(srcH)},
		{X: 0, Y: float32(srcH)},
	})
	bounds := geometry.BoundingBox(corners).Union(geometry.Rect{
		Width: float32(refW), Height: float32(refH),
	})

	offsetX := int(math.Floor(float64(bounds.X)))
	offsetY := int(math.Floor(float64(bounds.Y)))
	canvasW := int(math.Ceil(float64(bounds.Width)))
	canvasH := int(math.Ceil(float64(bounds.Height)))

	// Shift the transform so the whole mosaic lands on the canvas.
	shift := geometry.FromAffine(geometry.Translation(float32(-offsetX), float32(-offsetY)))
	shifted := shift.Mul(result.Transform)

	warped, err := compose.Warp(src, shifted, canvasW, canvasH)
	if err != nil {
		return fmt.Errorf("warp source: %w", err)
	}

	mosaic := compose.NewMosaic(canvasW, canvasH)
	mosaic.AddLayer(warped, compose.BlendNormal, 0, 0, 1.0)
	mosaic.AddLayer(ref, compose.BlendNormal, -offsetX, -offsetY, 1.0)

	out := prefix + "-mosaic.png"
	if err := raster.SavePNG(out, mosaic.Render()); err != nil {
		return err
	}
	fmt.Printf("\nWrote %s (%dx%d)\n", out, canvasW, canvasH)

	if doOverlay {
		aligned, err := compose.Warp(src, result.Transform, refW, refH)
		if err != nil {
			return fmt.Errorf("warp for overlay: %w", err)
		}
		overlay, err := compose.Overlay(ref, aligned, 0.5)
		if err != nil {
			return fmt.Errorf("overlay: %w", err)
		}
		out := prefix + "-overlay.png"
		if err := raster.SavePNG(out, overlay); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", out)
	}

	if doMatches {
		opts := features.DefaultRenderOptions()
		opts.InlierOnly = true
		matches := features.RenderMatches(ref, src, result.MatchedRef, result.MatchedSrc, result.Inliers, opts)
		out := prefix + "-matches.png"
		if err := raster.SavePNG(out, matches); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", out)
	}

	return nil
}
