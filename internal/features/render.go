package features

import (
	"image"
	"image/color"
	"image/draw"

	"pano-align/pkg/colorutil"
	"pano-align/pkg/geometry"
)

// RenderOptions configures how detection results are rendered.
type RenderOptions struct {
	CrossSize   int        // Half-length of the corner cross arms in pixels
	PointColor  color.RGBA // Color for detected corners
	MatchColor  color.RGBA // Color for match lines
	CycleColors bool       // Cycle the palette so adjacent match lines stay distinguishable
	InlierOnly  bool       // Draw only match lines flagged as inliers
}

// DefaultRenderOptions returns default rendering options.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		CrossSize:  4,
		PointColor: colorutil.Red,
		MatchColor: colorutil.Green,
	}
}

// RenderOverlay returns a copy of the image with the detected corners drawn
// as crosses.
func RenderOverlay(img image.Image, points []geometry.PointInt, opts RenderOptions) *image.RGBA {
	canvas := toRGBA(img)
	for _, p := range points {
		drawCross(canvas, p.X, p.Y, opts.CrossSize, opts.PointColor)
	}
	return canvas
}

// RenderMatches draws the two images side by side with lines connecting each
// matched point pair. When inliers is non-nil and opts.InlierOnly is set,
// only pairs whose index appears in inliers are connected.
func RenderMatches(a, b image.Image, ptsA, ptsB []geometry.PointInt, inliers []int, opts RenderOptions) *image.RGBA {
	ba := a.Bounds()
	bb := b.Bounds()
	w := ba.Dx() + bb.Dx()
	h := max(ba.Dy(), bb.Dy())

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, image.Rect(0, 0, ba.Dx(), ba.Dy()), a, ba.Min, draw.Src)
	draw.Draw(canvas, image.Rect(ba.Dx(), 0, w, bb.Dy()), b, bb.Min, draw.Src)

	offset := ba.Dx()
	keep := func(int) bool { return true }
	if opts.InlierOnly {
		set := make(map[int]bool, len(inliers))
		for _, i := range inliers {
			set[i] = true
		}
		keep = func(i int) bool { return set[i] }
	}

	for i := range ptsA {
		if i >= len(ptsB) || !keep(i) {
			continue
		}
		lineColor := opts.MatchColor
		if opts.CycleColors {
			lineColor = colorutil.Palette[i%len(colorutil.Palette)]
		}
		drawCross(canvas, ptsA[i].X, ptsA[i].Y, opts.CrossSize, opts.PointColor)
		drawCross(canvas, ptsB[i].X+offset, ptsB[i].Y, opts.CrossSize, opts.PointColor)
		drawLine(canvas, ptsA[i].X, ptsA[i].Y, ptsB[i].X+offset, ptsB[i].Y, lineColor)
	}
	return canvas
}

func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)
	return canvas
}

// drawCross draws a small + marker centered on (cx, cy).
func drawCross(img *image.RGBA, cx, cy, size int, c color.RGBA) {
	bounds := img.Bounds()
	for d := -size; d <= size; d++ {
		setIn(img, bounds, cx+d, cy, c)
		setIn(img, bounds, cx, cy+d, c)
	}
}

// drawLine draws a line using Bresenham's algorithm.
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	bounds := img.Bounds()
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy
	for {
		setIn(img, bounds, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func setIn(img *image.RGBA, bounds image.Rectangle, x, y int, c color.RGBA) {
	if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
		img.Set(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
