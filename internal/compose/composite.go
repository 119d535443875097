package compose

import (
	"image"
	"image/color"
	"image/draw"
)

// BlendMode specifies how a layer is merged into the mosaic.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDifference
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "Normal"
	case BlendMultiply:
		return "Multiply"
	case BlendScreen:
		return "Screen"
	case BlendOverlay:
		return "Overlay"
	case BlendDifference:
		return "Difference"
	default:
		return "Unknown"
	}
}

// Mosaic accumulates registered layers onto a single canvas.
type Mosaic struct {
	Width     int
	Height    int
	BackColor color.Color
	layers    []mosaicLayer
}

type mosaicLayer struct {
	img     image.Image
	mode    BlendMode
	offsetX int
	offsetY int
	opacity float64
}

// NewMosaic creates an empty mosaic canvas of the given size.
func NewMosaic(width, height int) *Mosaic {
	return &Mosaic{
		Width:     width,
		Height:    height,
		BackColor: color.RGBA{A: 255},
	}
}

// AddLayer schedules an image for compositing at the given canvas offset.
// Opacity is in [0, 1]; fully transparent source pixels are skipped so
// warped layers only cover the region they actually map to.
func (m *Mosaic) AddLayer(img image.Image, mode BlendMode, offsetX, offsetY int, opacity float64) {
	m.layers = append(m.layers, mosaicLayer{img: img, mode: mode, offsetX: offsetX, offsetY: offsetY, opacity: opacity})
}

// Render produces the composited mosaic.
func (m *Mosaic) Render() *image.RGBA {
	result := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	draw.Draw(result, result.Bounds(), &image.Uniform{C: m.BackColor}, image.Point{}, draw.Src)

	for _, layer := range m.layers {
		m.renderLayer(result, layer)
	}
	return result
}

func (m *Mosaic) renderLayer(dst *image.RGBA, layer mosaicLayer) {
	if layer.img == nil {
		return
	}
	srcBounds := layer.img.Bounds()

	for y := srcBounds.Min.Y; y < srcBounds.Max.Y; y++ {
		dstY := y - srcBounds.Min.Y + layer.offsetY
		if dstY < 0 || dstY >= m.Height {
			continue
		}
		for x := srcBounds.Min.X; x < srcBounds.Max.X; x++ {
			dstX := x - srcBounds.Min.X + layer.offsetX
			if dstX < 0 || dstX >= m.Width {
				continue
			}

			sr, sg, sb, sa := layer.img.At(x, y).RGBA()
			if sa == 0 {
				continue
			}
			dr, dg, db, _ := dst.At(dstX, dstY).RGBA()

			blended := color.RGBA{
				R: blendChannel(uint8(dr>>8), uint8(sr>>8), layer.mode, layer.opacity),
				G: blendChannel(uint8(dg>>8), uint8(sg>>8), layer.mode, layer.opacity),
				B: blendChannel(uint8(db>>8), uint8(sb>>8), layer.mode, layer.opacity),
				A: 255,
			}
			dst.SetRGBA(dstX, dstY, blended)
		}
	}
}

// blendChannel merges one 8-bit channel according to the blend mode, then
// mixes the result with the destination by opacity.
func blendChannel(dst, src uint8, mode BlendMode, opacity float64) uint8 {
	d := float64(dst) / 255
	s := float64(src) / 255

	var v float64
	switch mode {
	case BlendMultiply:
		v = d * s
	case BlendScreen:
		v = 1 - (1-d)*(1-s)
	case BlendOverlay:
		if d < 0.5 {
			v = 2 * d * s
		} else {
			v = 1 - 2*(1-d)*(1-s)
		}
	case BlendDifference:
		v = s - d
		if v < 0 {
			v = -v
		}
	default:
		v = s
	}

	v = d + (v-d)*opacity
	return uint8(v*255 + 0.5)
}
