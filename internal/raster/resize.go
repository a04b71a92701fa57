package raster

import (
	"image"

	"golang.org/x/image/draw"
)

// Interpolation selects the resampling kernel cmd/quantize's -max-dimension
// downscale path uses before handing pixels to the quantizer: quantizing a
// huge source image wastes histogram/k-means work on detail that will be
// thrown away by a small palette anyway, so shrinking first is the usual
// move.
type Interpolation int

const (
	// InterpolationArea uses Catmull-Rom, the best default for shrinking a
	// photo before quantization.
	InterpolationArea Interpolation = iota
	// InterpolationLinear uses bilinear interpolation.
	InterpolationLinear
	// InterpolationNearest uses nearest-neighbor interpolation; preserves
	// hard edges in pixel art instead of blurring them.
	InterpolationNearest
)

func scalerFor(interp Interpolation) draw.Scaler {
	switch interp {
	case InterpolationLinear:
		return draw.BiLinear
	case InterpolationNearest:
		return draw.NearestNeighbor
	default:
		return draw.CatmullRom
	}
}

// Resize resizes an RGBA image to the specified dimensions using the
// given interpolation method.
func Resize(img *RGBAImage, width, height int, interp Interpolation) *RGBAImage {
	dst := NewRGBAImage(width, height)
	scalerFor(interp).Scale(dst.RGBA, image.Rect(0, 0, width, height), img.RGBA, img.Bounds(), draw.Over, nil)
	return dst
}

// ResizeToWidth resizes an image to the specified width while maintaining
// aspect ratio.
func ResizeToWidth(img *RGBAImage, width int, interp Interpolation) *RGBAImage {
	aspectRatio := float64(img.Width()) / float64(img.Height())
	height := int(float64(width) / aspectRatio)
	return Resize(img, width, height, interp)
}

// ResizeToHeight resizes an image to the specified height while maintaining
// aspect ratio.
func ResizeToHeight(img *RGBAImage, height int, interp Interpolation) *RGBAImage {
	aspectRatio := float64(img.Width()) / float64(img.Height())
	width := int(float64(height) * aspectRatio)
	return Resize(img, width, height, interp)
}
