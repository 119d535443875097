package features

import (
	"image"
	"image/color"
	"testing"

	"pano-align/pkg/geometry"
)

// quadrant returns a 32x32 grayscale image whose bottom-right quadrant is
// white, leaving a single right-angle corner at (16, 16).
func quadrant() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 16; y < 32; y++ {
		for x := 16; x < 32; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func TestGradientStencils(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 3))
	for i, v := range []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9} {
		img.Pix[i] = v
	}
	dx, dy := gradients(img)
	if got := dx.At(1, 1); got != 6 {
		t.Errorf("dx center = %v, want 6", got)
	}
	if got := dy.At(1, 1); got != 18 {
		t.Errorf("dy center = %v, want 18", got)
	}
	// Borders stay zero.
	for _, p := range []geometry.PointInt{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 2}, {X: 1, Y: 0}} {
		if dx.At(p.X, p.Y) != 0 || dy.At(p.X, p.Y) != 0 {
			t.Errorf("border (%d,%d) not zero", p.X, p.Y)
		}
	}
}

func TestGradientClamping(t *testing.T) {
	// A hard vertical edge saturates dx at 255; the mirrored edge clamps
	// the negative response to 0.
	img := image.NewGray(image.Rect(0, 0, 5, 5))
	for y := 0; y < 5; y++ {
		for x := 3; x < 5; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	dx, _ := gradients(img)
	if got := dx.At(2, 2); got != 255 {
		t.Errorf("rising edge dx = %v, want 255 (clamped from 765)", got)
	}

	mirror := image.NewGray(image.Rect(0, 0, 5, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 2; x++ {
			mirror.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	dxm, _ := gradients(mirror)
	if got := dxm.At(2, 2); got != 0 {
		t.Errorf("falling edge dx = %v, want 0 (clamped from -765)", got)
	}
}

func TestDetectUniformImage(t *testing.T) {
	d := NewDetector(Params{K: 0.04, Threshold: 0, Sigma: 0, Radius: 1})
	points, err := d.Detect(image.NewGray(image.Rect(0, 0, 32, 32)))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("uniform image produced %d corners, want 0", len(points))
	}
}

func TestDetectRightAngleCorner(t *testing.T) {
	d := NewDetector(Params{K: 0.04, Threshold: 100, Sigma: 0, Radius: 1})
	points, err := d.Detect(quadrant())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	// The unsmoothed stencil response peaks at 255*255 - 0.04*510^2 on the
	// two pixels straddling the corner; the tie survives suppression, in
	// raster order.
	want := []geometry.PointInt{{X: 15, Y: 16}, {X: 16, Y: 16}}
	if len(points) != len(want) {
		t.Fatalf("got %d corners %v, want %v", len(points), points, want)
	}
	for i := range want {
		if points[i] != want[i] {
			t.Errorf("corner %d: got %v, want %v", i, points[i], want[i])
		}
	}
}

func TestDetectEdgesRejected(t *testing.T) {
	// A pure vertical edge has a strong dx but no dy; the Harris measure
	// goes negative there, so nothing fires away from the corner.
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 16; x < 32; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	d := NewDetector(Params{K: 0.04, Threshold: 0, Sigma: 0, Radius: 1})
	points, err := d.Detect(img)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("edge produced %d corners, want 0: %v", len(points), points)
	}
}

func TestDetectDeterministic(t *testing.T) {
	d := NewDetector(DefaultParams())
	img := quadrant()
	first, err := d.Detect(img)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	second, err := d.Detect(img)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("point %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}
