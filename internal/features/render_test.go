package features

import (
	"image"
	"testing"

	"pano-align/pkg/geometry"
)

func TestRenderOverlayMarksCorners(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 20))
	opts := DefaultRenderOptions()
	out := RenderOverlay(img, []geometry.PointInt{{X: 10, Y: 10}}, opts)

	if out.RGBAAt(10, 10) != opts.PointColor {
		t.Error("cross center not drawn")
	}
	if out.RGBAAt(10+opts.CrossSize, 10) != opts.PointColor {
		t.Error("cross arm not drawn")
	}
	if out.RGBAAt(10+opts.CrossSize+1, 10) == opts.PointColor {
		t.Error("cross arm too long")
	}
}

func TestRenderMatchesCanvasAndLines(t *testing.T) {
	a := image.NewGray(image.Rect(0, 0, 16, 12))
	b := image.NewGray(image.Rect(0, 0, 10, 20))
	ptsA := []geometry.PointInt{{X: 2, Y: 2}, {X: 8, Y: 4}}
	ptsB := []geometry.PointInt{{X: 3, Y: 3}, {X: 5, Y: 5}}

	opts := DefaultRenderOptions()
	out := RenderMatches(a, b, ptsA, ptsB, nil, opts)

	bounds := out.Bounds()
	if bounds.Dx() != 26 || bounds.Dy() != 20 {
		t.Fatalf("canvas %dx%d, want 26x20", bounds.Dx(), bounds.Dy())
	}
	// Line endpoints are drawn; the second image is offset by the first's width.
	if out.RGBAAt(2, 2) == (image.NewRGBA(bounds).RGBAAt(2, 2)) {
		t.Error("first endpoint not drawn")
	}
	if got := out.RGBAAt(16+3, 3); got != opts.MatchColor && got != opts.PointColor {
		t.Error("offset endpoint not drawn")
	}
}

func TestRenderMatchesInlierOnly(t *testing.T) {
	a := image.NewGray(image.Rect(0, 0, 30, 30))
	b := image.NewGray(image.Rect(0, 0, 30, 30))
	ptsA := []geometry.PointInt{{X: 5, Y: 5}, {X: 20, Y: 20}}
	ptsB := []geometry.PointInt{{X: 5, Y: 5}, {X: 20, Y: 20}}

	opts := DefaultRenderOptions()
	opts.InlierOnly = true
	opts.CrossSize = 0
	out := RenderMatches(a, b, ptsA, ptsB, []int{1}, opts)

	var zero = out.RGBAAt(0, 29)
	if out.RGBAAt(20, 20) == zero {
		t.Error("inlier pair not drawn")
	}
	if out.RGBAAt(5, 5) != zero {
		t.Error("outlier pair should be skipped")
	}
}
