// Command featuretest visualizes the corner detector and the correlation
// matcher: it dumps detected corners over the input image and, when a second
// image is given, the raw matched pairs between the two.
package main

import (
	"flag"
	"fmt"
	"os"

	"pano-align/internal/features"
	"pano-align/internal/match"
	"pano-align/internal/raster"
	"pano-align/internal/version"

	_ "golang.org/x/image/tiff"
)

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	imgPath := flag.String("i", "", "Path to input image")
	pairPath := flag.String("j", "", "Optional second image to match against")
	outPrefix := flag.String("o", "features", "Output file prefix")
	k := flag.Float64("k", 0.04, "Harris sensitivity")
	threshold := flag.Float64("t", 1000, "Harris response threshold")
	sigma := flag.Float64("sigma", 1.4, "Gaussian smoothing sigma (0 = off)")
	radius := flag.Int("r", 3, "Non-maximum suppression radius")
	window := flag.Int("window", 9, "Correlation window size (odd)")
	maxDist := flag.Int("maxdist", 0, "Maximum match distance in pixels (0 = unrestricted)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("featuretest %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	if *imgPath == "" {
		fmt.Println("Usage: featuretest -i <image> [-j <image>] [-o <prefix>]")
		os.Exit(1)
	}

	img, err := raster.Load(*imgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}

	params := features.Params{
		K:         float32(*k),
		Threshold: float32(*threshold),
		Sigma:     float32(*sigma),
		Radius:    *radius,
	}
	detector := features.NewDetector(params)

	points, err := detector.Detect(img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Corner detection failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d corners (k=%.3f t=%.0f sigma=%.2f r=%d)\n",
		*imgPath, len(points), *k, *threshold, *sigma, *radius)

	opts := features.DefaultRenderOptions()
	overlay := features.RenderOverlay(img, points, opts)
	out := *outPrefix + "-corners.png"
	if err := raster.SavePNG(out, overlay); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", out, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", out)

	if *pairPath == "" {
		return
	}

	pair, err := raster.Load(*pairPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load second image: %v\n", err)
		os.Exit(1)
	}
	pairPoints, err := detector.Detect(pair)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Corner detection failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d corners\n", *pairPath, len(pairPoints))

	grayA, err := raster.Gray(img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to convert image: %v\n", err)
		os.Exit(1)
	}
	grayB, err := raster.Gray(pair)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to convert image: %v\n", err)
		os.Exit(1)
	}

	matcher, err := match.NewMatcher(*window, *maxDist)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	matched, err := matcher.Match(grayA, grayB, points, pairPoints)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Matching failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Matched pairs: %d\n", len(matched.A))

	opts.CycleColors = true
	lines := features.RenderMatches(img, pair, matched.A, matched.B, nil, opts)
	out = *outPrefix + "-matches.png"
	if err := raster.SavePNG(out, lines); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", out, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", out)
}
