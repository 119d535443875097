package raster

import (
	"math"
)

// GaussianBlur smooths a plane in place with a separable Gaussian kernel of
// the given standard deviation. The kernel radius is ceil(3*sigma), which
// captures 99.7% of the distribution's mass. Samples beyond the plane edges
// are taken from the nearest edge pixel. Sigma <= 0 is a no-op.
func GaussianBlur(p *Plane, sigma float32) {
	if sigma <= 0 {
		return
	}

	kernel := gaussianKernel(sigma)
	r := len(kernel) / 2
	tmp := NewPlane(p.Width, p.Height)

	// Horizontal pass into tmp.
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			var sum float32
			for k := -r; k <= r; k++ {
				sum += kernel[k+r] * p.At(clampIndex(x+k, p.Width), y)
			}
			tmp.Set(x, y, sum)
		}
	}

	// Vertical pass back into p.
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			var sum float32
			for k := -r; k <= r; k++ {
				sum += kernel[k+r] * tmp.At(x, clampIndex(y+k, p.Height))
			}
			p.Set(x, y, sum)
		}
	}
}

// gaussianKernel builds a normalized 1D kernel of radius ceil(3*sigma).
func gaussianKernel(sigma float32) []float32 {
	r := int(math.Ceil(float64(sigma) * 3))
	if r < 1 {
		r = 1
	}
	kernel := make([]float32, 2*r+1)
	var total float32
	twoSigmaSq := 2 * float64(sigma) * float64(sigma)
	for i := -r; i <= r; i++ {
		v := float32(math.Exp(-float64(i*i) / twoSigmaSq))
		kernel[i+r] = v
		total += v
	}
	for i := range kernel {
		kernel[i] /= total
	}
	return kernel
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
