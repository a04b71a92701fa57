// Package raster provides the pixel plumbing that sits underneath the
// quantizer: decode/resize/grayscale for the demonstration CLI and the
// Sobel-based dither-dampening map quant8's remapper and histogram
// edge-weighting consume. None of this is quantization logic; it is the
// collaborator layer spec.md §1 calls "out of scope" for the core
// pipeline. Only what quant8 actually exercises is kept here — no general
// image-processing toolkit.
package raster

import "image"

// RGBAImage is image.RGBA plus the width/height accessors the rest of this
// package and cmd/quantize read images through.
type RGBAImage struct {
	*image.RGBA
}

// NewRGBAImage creates a new RGBAImage with the specified dimensions.
func NewRGBAImage(width, height int) *RGBAImage {
	return &RGBAImage{
		RGBA: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// RGBAImageFromImage converts a decoded image.Image (as returned by
// LoadImage) to RGBAImage.
func RGBAImageFromImage(img image.Image) *RGBAImage {
	bounds := img.Bounds()
	rgba := NewRGBAImage(bounds.Dx(), bounds.Dy())

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x-bounds.Min.X, y-bounds.Min.Y, img.At(x, y))
		}
	}
	return rgba
}

// Width returns the image width.
func (img *RGBAImage) Width() int { return img.Bounds().Dx() }

// Height returns the image height.
func (img *RGBAImage) Height() int { return img.Bounds().Dy() }

// GrayImage is image.Gray plus the same accessors, used for the luminance
// pass BuildDitherMap's Sobel gradient runs over.
type GrayImage struct {
	*image.Gray
}

// NewGrayImage creates a new GrayImage with the specified dimensions.
func NewGrayImage(width, height int) *GrayImage {
	return &GrayImage{
		Gray: image.NewGray(image.Rect(0, 0, width, height)),
	}
}

// Width returns the image width.
func (img *GrayImage) Width() int { return img.Bounds().Dx() }

// Height returns the image height.
func (img *GrayImage) Height() int { return img.Bounds().Dy() }
