// Package raster provides the pixel-level collaborators of the registration
// pipeline: channel reduction to luma, float planes for intermediate
// buffers, Gaussian smoothing, and image file helpers. The numeric core
// consumes single-channel rasters only; everything multi-channel passes
// through here first.
package raster

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
)

// ErrUnsupportedFormat is returned when an image's channel layout is not
// recognized. Only 1, 3 and 4 channel layouts are supported.
var ErrUnsupportedFormat = errors.New("unsupported channel layout")

// Gray reduces an image to a single 8-bit luma channel.
//
// Grayscale input is returned as-is (the caller retains ownership and the
// pipeline never mutates it). 3-channel (YCbCr) and 4-byte-per-pixel (RGBA,
// NRGBA, CMYK) layouts are converted with Rec. 601 luma weights. Anything
// else fails with ErrUnsupportedFormat before any processing.
func Gray(img image.Image) (*image.Gray, error) {
	switch src := img.(type) {
	case *image.Gray:
		return src, nil
	case *image.RGBA:
		return grayFromInterleaved(src.Pix, src.Stride, 4, src.Rect, false), nil
	case *image.NRGBA:
		return grayFromInterleaved(src.Pix, src.Stride, 4, src.Rect, false), nil
	case *image.CMYK:
		return grayFromInterleaved(src.Pix, src.Stride, 4, src.Rect, true), nil
	case *image.YCbCr:
		return grayFromLumaPlane(src), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedFormat, img)
	}
}

// grayFromInterleaved converts interleaved byte pixels to luma, parallelized
// by horizontal stripes.
func grayFromInterleaved(pix []byte, stride, bpp int, rect image.Rectangle, cmyk bool) *image.Gray {
	w, h := rect.Dx(), rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))

	numWorkers := runtime.NumCPU()
	rowsPerWorker := (h + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for worker := 0; worker < numWorkers; worker++ {
		startY := worker * rowsPerWorker
		endY := min(startY+rowsPerWorker, h)
		if startY >= h {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			for y := yStart; y < yEnd; y++ {
				srcRow := y * stride
				dstRow := y * dst.Stride
				for x := 0; x < w; x++ {
					o := srcRow + x*bpp
					r, g, b := pix[o], pix[o+1], pix[o+2]
					if cmyk {
						k := uint32(255 - pix[o+3])
						r = uint8(uint32(255-r) * k / 255)
						g = uint8(uint32(255-g) * k / 255)
						b = uint8(uint32(255-b) * k / 255)
					}
					dst.Pix[dstRow+x] = luma(r, g, b)
				}
			}
		}(startY, endY)
	}
	wg.Wait()

	return dst
}

// grayFromLumaPlane copies the Y plane of a YCbCr image, honoring its stride.
func grayFromLumaPlane(src *image.YCbCr) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Y[y*src.YStride:y*src.YStride+w])
	}
	return dst
}

// luma applies the Rec. 601 weights used by the standard library's
// color.GrayModel.
func luma(r, g, b uint8) uint8 {
	return uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
}
