package raster

import (
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoding for LoadImage
	_ "image/jpeg" // register JPEG decoding for LoadImage
	"image/png"
	"os"

	_ "golang.org/x/image/tiff" // register TIFF decoding for LoadImage
)

// LoadImage loads an image from path, decoding the formats registered by
// the imports above: PNG, JPEG, GIF, or TIFF.
func LoadImage(path string) (*RGBAImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return RGBAImageFromImage(img), nil
}

// SavePNG saves img as a PNG to path; cmd/quantize's output format for its
// quantized, indexed result.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return png.Encode(f, img)
}
