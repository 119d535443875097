// Package features detects corner feature points in single-channel images
// and renders detection results for visual inspection.
package features

import (
	"image"

	"pano-align/internal/raster"
	"pano-align/pkg/geometry"
)

// Params configures the Harris corner detector.
type Params struct {
	K         float32 `json:"k"`         // corner response weight
	Threshold float32 `json:"threshold"` // minimum corner response
	Sigma     float32 `json:"sigma"`     // Gaussian smoothing of the gradient planes (0 disables)
	Radius    int     `json:"radius"`    // non-maximum suppression radius
}

// DefaultParams returns detector parameters tuned for photographic scans.
func DefaultParams() Params {
	return Params{
		K:         0.04,
		Threshold: 1000,
		Sigma:     1.4,
		Radius:    3,
	}
}

// Detector finds corner feature points using the Harris response of a fixed
// 3x3 gradient stencil. Detection is deterministic: the same image and
// parameters always produce the same point list, in raster scan order.
type Detector struct {
	params Params
}

// NewDetector creates a detector with the given parameters.
func NewDetector(params Params) *Detector {
	return &Detector{params: params}
}

// Detect returns the detected corners in raster scan order (row-major).
// Multi-channel input is reduced to luma first; unrecognized channel
// layouts fail with raster.ErrUnsupportedFormat. The gradient buffers are
// transient and released when the call returns.
func (d *Detector) Detect(img image.Image) ([]geometry.PointInt, error) {
	gray, err := raster.Gray(img)
	if err != nil {
		return nil, err
	}

	dx, dy := gradients(gray)
	dxy := verticalStencil(dx)

	if d.params.Sigma > 0 {
		raster.GaussianBlur(dx, d.params.Sigma)
		raster.GaussianBlur(dy, d.params.Sigma)
		raster.GaussianBlur(dxy, d.params.Sigma)
	}

	resp := d.response(dx, dy, dxy)
	return d.suppress(resp), nil
}

// gradients computes the horizontal and vertical gradient planes of a
// grayscale image using 3x3 Prewitt-style stencils:
//
//	dx = -(NW+W+SW) + (NE+E+SE)
//	dy = -(NW+N+NE) + (SW+S+SE)
//
// Each sample is clamped to [0, 255]; border pixels are zero.
func gradients(gray *image.Gray) (dx, dy *raster.Plane) {
	w := gray.Rect.Dx()
	h := gray.Rect.Dy()
	dx = raster.NewPlane(w, h)
	dy = raster.NewPlane(w, h)

	pix := gray.Pix
	stride := gray.Stride
	for y := 1; y < h-1; y++ {
		above := (y - 1) * stride
		row := y * stride
		below := (y + 1) * stride
		for x := 1; x < w-1; x++ {
			nw := float32(pix[above+x-1])
			n := float32(pix[above+x])
			ne := float32(pix[above+x+1])
			west := float32(pix[row+x-1])
			east := float32(pix[row+x+1])
			sw := float32(pix[below+x-1])
			s := float32(pix[below+x])
			se := float32(pix[below+x+1])

			dx.Set(x, y, raster.Clamp255(-(nw+west+sw)+(ne+east+se)))
			dy.Set(x, y, raster.Clamp255(-(nw+n+ne)+(sw+s+se)))
		}
	}
	return dx, dy
}

// verticalStencil applies the dy stencil to an existing plane, producing the
// cross-gradient term. Same clamping and border rule as gradients.
func verticalStencil(p *raster.Plane) *raster.Plane {
	out := raster.NewPlane(p.Width, p.Height)
	for y := 1; y < p.Height-1; y++ {
		for x := 1; x < p.Width-1; x++ {
			top := p.At(x-1, y-1) + p.At(x, y-1) + p.At(x+1, y-1)
			bottom := p.At(x-1, y+1) + p.At(x, y+1) + p.At(x+1, y+1)
			out.Set(x, y, raster.Clamp255(bottom-top))
		}
	}
	return out
}

// response computes the per-pixel Harris corner measure
//
//	M = A*B - C^2 - k*(A+B)^2
//
// with A, B, C taken from the dx, dy and cross-gradient planes. Responses
// not strictly above the threshold are zeroed.
func (d *Detector) response(dx, dy, dxy *raster.Plane) *raster.Plane {
	out := raster.NewPlane(dx.Width, dx.Height)
	k := d.params.K
	threshold := d.params.Threshold
	for i, a := range dx.Pix {
		b := dy.Pix[i]
		c := dxy.Pix[i]
		m := a*b - c*c - k*(a+b)*(a+b)
		if m > threshold {
			out.Pix[i] = m
		}
	}
	return out
}

// suppress performs non-maximum suppression: a pixel survives only if no
// pixel in its (2r+1)x(2r+1) neighborhood has a strictly greater response.
// Equal responses do not suppress each other. Pixels closer than r to the
// image edge are never candidates.
func (d *Detector) suppress(resp *raster.Plane) []geometry.PointInt {
	r := d.params.Radius
	var points []geometry.PointInt
	for y := r; y < resp.Height-r; y++ {
		for x := r; x < resp.Width-r; x++ {
			v := resp.At(x, y)
			if v <= 0 {
				continue
			}
			if localMax(resp, x, y, r, v) {
				points = append(points, geometry.PointInt{X: x, Y: y})
			}
		}
	}
	return points
}

func localMax(resp *raster.Plane, cx, cy, r int, v float32) bool {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if resp.At(x, y) > v {
				return false
			}
		}
	}
	return true
}
