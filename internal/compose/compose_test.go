package compose

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"pano-align/pkg/geometry"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	return img
}

func TestWarpIdentity(t *testing.T) {
	src := gradient(8, 8)
	out, err := Warp(src, geometry.ProjectiveIdentity(), 8, 8)
	if err != nil {
		t.Fatalf("Warp: %v", err)
	}
	rgba, ok := out.(*image.RGBA)
	if !ok {
		t.Fatalf("affine path should return *image.RGBA, got %T", out)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if rgba.RGBAAt(x, y) != src.RGBAAt(x, y) {
				t.Fatalf("(%d,%d): got %v, want %v", x, y, rgba.RGBAAt(x, y), src.RGBAAt(x, y))
			}
		}
	}
}

func TestWarpTranslation(t *testing.T) {
	src := gradient(8, 8)
	tr := geometry.FromAffine(geometry.Translation(3, 2))
	out, err := Warp(src, tr, 12, 12)
	if err != nil {
		t.Fatalf("Warp: %v", err)
	}
	rgba := out.(*image.RGBA)

	// Integer translation preserves pixels exactly.
	if got, want := rgba.RGBAAt(3, 2), src.RGBAAt(0, 0); got != want {
		t.Errorf("shifted origin: got %v, want %v", got, want)
	}
	if got, want := rgba.RGBAAt(10, 9), src.RGBAAt(7, 7); got != want {
		t.Errorf("shifted corner: got %v, want %v", got, want)
	}
	// The uncovered region stays transparent.
	if got := rgba.RGBAAt(0, 0); got.A != 0 {
		t.Errorf("uncovered pixel not transparent: %v", got)
	}
	if got := rgba.RGBAAt(11, 11); got.A != 0 {
		t.Errorf("pixel beyond the source not transparent: %v", got)
	}
}

func TestWarpHalfPixelInterpolates(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.SetRGBA(0, 0, color.RGBA{R: 0, A: 255})
	src.SetRGBA(1, 0, color.RGBA{R: 200, A: 255})

	tr := geometry.FromAffine(geometry.Translation(-0.5, 0))
	out, err := Warp(src, tr, 4, 4)
	if err != nil {
		t.Fatalf("Warp: %v", err)
	}
	got := out.(*image.RGBA).RGBAAt(0, 0)
	if got.R != 100 {
		t.Errorf("interpolated R = %d, want 100", got.R)
	}
}

func TestWarpSingular(t *testing.T) {
	src := gradient(4, 4)
	tr := geometry.FromAffine(geometry.Scale(0, 1))
	_, err := Warp(src, tr, 4, 4)
	if !errors.Is(err, geometry.ErrSingular) {
		t.Fatalf("got %v, want ErrSingular", err)
	}
}

func TestBlendChannel(t *testing.T) {
	cases := []struct {
		name     string
		dst, src uint8
		mode     BlendMode
		want     uint8
	}{
		{"normal replaces", 40, 200, BlendNormal, 200},
		{"multiply darkens", 128, 128, BlendMultiply, 64},
		{"screen lightens", 128, 128, BlendScreen, 192},
		{"difference", 200, 60, BlendDifference, 140},
		{"difference symmetric", 60, 200, BlendDifference, 140},
		{"overlay dark doubles", 64, 128, BlendOverlay, 64},
		{"overlay light screens", 192, 128, BlendOverlay, 192},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := blendChannel(c.dst, c.src, c.mode, 1.0)
			if got != c.want {
				t.Errorf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestBlendChannelOpacity(t *testing.T) {
	// 50% opacity mixes halfway between destination and blended value.
	got := blendChannel(0, 200, BlendNormal, 0.5)
	if got != 100 {
		t.Errorf("got %d, want 100", got)
	}
	if got := blendChannel(80, 200, BlendNormal, 0); got != 80 {
		t.Errorf("zero opacity should keep destination, got %d", got)
	}
}

func TestMosaicLayering(t *testing.T) {
	m := NewMosaic(10, 10)

	base := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := range base.Pix {
		base.Pix[i] = 255
	}
	patch := image.NewRGBA(image.Rect(0, 0, 2, 2))
	patch.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	patch.SetRGBA(1, 0, color.RGBA{A: 0}) // transparent, must not cover
	patch.SetRGBA(0, 1, color.RGBA{R: 50, A: 255})
	patch.SetRGBA(1, 1, color.RGBA{R: 60, A: 255})

	m.AddLayer(base, BlendNormal, 0, 0, 1.0)
	m.AddLayer(patch, BlendNormal, 4, 4, 1.0)
	out := m.Render()

	if got := out.RGBAAt(4, 4); got != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("patch pixel: %v", got)
	}
	if got := out.RGBAAt(5, 4); got.R != 255 {
		t.Errorf("transparent patch pixel should not cover the base, got %v", got)
	}
	if got := out.RGBAAt(0, 0); got.R != 255 {
		t.Errorf("base pixel: %v", got)
	}
}

func TestMosaicOffsetClipping(t *testing.T) {
	m := NewMosaic(4, 4)
	patch := gradient(4, 4)
	m.AddLayer(patch, BlendNormal, -2, -2, 1.0)
	out := m.Render()

	if got, want := out.RGBAAt(0, 0), patch.RGBAAt(2, 2); got != want {
		t.Errorf("clipped layer: got %v, want %v", got, want)
	}
	// Canvas beyond the layer keeps the background.
	if got := out.RGBAAt(3, 3); got != (color.RGBA{A: 255}) {
		t.Errorf("background pixel: %v", got)
	}
}

func TestBlendModeString(t *testing.T) {
	if BlendMultiply.String() != "Multiply" || BlendMode(99).String() != "Unknown" {
		t.Error("String() mismatch")
	}
}
