package compose

import (
	"fmt"
	"image"
	"image/draw"

	"gocv.io/x/gocv"

	"pano-align/pkg/geometry"
)

// Warp reprojects an image through a projective transform onto a canvas of
// the given size. Transforms without a perspective component take a pure-Go
// bilinear path; general homographies go through OpenCV.
func Warp(img image.Image, t geometry.ProjectiveTransform, width, height int) (image.Image, error) {
	if affine, ok := t.ToAffine(); ok {
		return warpAffine(img, affine, width, height)
	}
	return warpPerspective(img, t, width, height)
}

// warpPerspective applies a general homography via gocv.
func warpPerspective(img image.Image, t geometry.ProjectiveTransform, width, height int) (image.Image, error) {
	src, err := imageToMat(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer src.Close()

	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.SetDoubleAt(i, j, float64(t.M[i][j]))
		}
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpPerspective(src, &dst, m, image.Point{X: width, Y: height})

	return matToImage(dst)
}

// warpAffine reprojects with inverse mapping and bilinear sampling. Pixels
// that map outside the source stay transparent.
func warpAffine(img image.Image, t geometry.AffineTransform, width, height int) (image.Image, error) {
	inv, ok := t.Inverse()
	if !ok {
		return nil, fmt.Errorf("warp: %w", geometry.ErrSingular)
	}

	src := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(src, src.Bounds(), img, img.Bounds().Min, draw.Src)

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	srcW := src.Rect.Dx()
	srcH := src.Rect.Dy()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := inv.Apply(geometry.Point2D{X: float32(x), Y: float32(y)})
			if p.X < 0 || p.Y < 0 || p.X > float32(srcW-1) || p.Y > float32(srcH-1) {
				continue
			}
			writeBilinear(out, src, x, y, p)
		}
	}
	return out, nil
}

// writeBilinear samples src at the fractional position p and stores the
// result at (x, y) in out.
func writeBilinear(out, src *image.RGBA, x, y int, p geometry.Point2D) {
	x0 := int(p.X)
	y0 := int(p.Y)
	x1 := min(x0+1, src.Rect.Dx()-1)
	y1 := min(y0+1, src.Rect.Dy()-1)
	fx := p.X - float32(x0)
	fy := p.Y - float32(y0)

	o := out.PixOffset(x, y)
	for c := 0; c < 4; c++ {
		tl := float32(src.Pix[src.PixOffset(x0, y0)+c])
		tr := float32(src.Pix[src.PixOffset(x1, y0)+c])
		bl := float32(src.Pix[src.PixOffset(x0, y1)+c])
		br := float32(src.Pix[src.PixOffset(x1, y1)+c])
		top := tl + (tr-tl)*fx
		bottom := bl + (br-bl)*fx
		out.Pix[o+c] = uint8(top + (bottom-top)*fy + 0.5)
	}
}

// Overlay blends two equally sized images with the given opacity applied to
// the first. Used for visually checking registration quality.
func Overlay(a, b image.Image, opacity float64) (image.Image, error) {
	matA, err := imageToMat(a)
	if err != nil {
		return nil, fmt.Errorf("convert first image: %w", err)
	}
	defer matA.Close()

	matB, err := imageToMat(b)
	if err != nil {
		return nil, fmt.Errorf("convert second image: %w", err)
	}
	defer matB.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.AddWeighted(matA, opacity, matB, 1.0-opacity, 0, &dst)

	return matToImage(dst)
}
