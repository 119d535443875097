package raster

// Plane is a width x height buffer of float32 samples with an explicit row
// stride, used for the transient gradient and response buffers of the
// detector. The stride may exceed the width.
type Plane struct {
	Width  int
	Height int
	Stride int
	Pix    []float32
}

// NewPlane allocates a zeroed plane with stride == width.
func NewPlane(width, height int) *Plane {
	return &Plane{
		Width:  width,
		Height: height,
		Stride: width,
		Pix:    make([]float32, width*height),
	}
}

// At returns the sample at (x, y).
func (p *Plane) At(x, y int) float32 {
	return p.Pix[y*p.Stride+x]
}

// Set stores a sample at (x, y).
func (p *Plane) Set(x, y int, v float32) {
	p.Pix[y*p.Stride+x] = v
}

// Clone returns a deep copy of the plane.
func (p *Plane) Clone() *Plane {
	out := &Plane{Width: p.Width, Height: p.Height, Stride: p.Stride}
	out.Pix = make([]float32, len(p.Pix))
	copy(out.Pix, p.Pix)
	return out
}

// Clamp255 limits a value to the byte range [0, 255].
func Clamp255(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
