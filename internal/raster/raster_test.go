package raster

import (
	"image/color"
	"testing"
)

func solidRGBA(width, height int, c color.RGBA) *RGBAImage {
	img := NewRGBAImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestRGBAImageDimensions(t *testing.T) {
	img := NewRGBAImage(7, 3)
	if img.Width() != 7 || img.Height() != 3 {
		t.Fatalf("got %dx%d, want 7x3", img.Width(), img.Height())
	}
}

func TestGrayImageDimensions(t *testing.T) {
	img := NewGrayImage(5, 9)
	if img.Width() != 5 || img.Height() != 9 {
		t.Fatalf("got %dx%d, want 5x9", img.Width(), img.Height())
	}
}

func TestToGrayscaleWhiteIsMax(t *testing.T) {
	img := solidRGBA(2, 2, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	gray := ToGrayscale(img)
	if got := gray.GrayAt(0, 0).Y; got != 255 {
		t.Fatalf("white pixel luminance = %d, want 255", got)
	}
}

func TestToGrayscaleBlackIsZero(t *testing.T) {
	img := solidRGBA(2, 2, color.RGBA{A: 255})
	gray := ToGrayscale(img)
	if got := gray.GrayAt(0, 0).Y; got != 0 {
		t.Fatalf("black pixel luminance = %d, want 0", got)
	}
}

func TestBuildDitherMapFlatImageIsFullyDiffused(t *testing.T) {
	img := solidRGBA(8, 8, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	dm := BuildDitherMap(img)
	for y := 0; y < dm.Height; y++ {
		for x := 0; x < dm.Width; x++ {
			if v := dm.At(x, y); v != 1 {
				t.Fatalf("flat image damping at (%d,%d) = %v, want 1", x, y, v)
			}
		}
	}
}

// TestBuildDitherMapEdgeIsDampedMoreThanFlat checks the property spec.md §9
// relies on: a high-contrast pixel gets a lower damping factor than a
// smooth one.
func TestBuildDitherMapEdgeIsDampedMoreThanFlat(t *testing.T) {
	img := NewRGBAImage(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if x < 4 {
				img.SetRGBA(x, y, color.RGBA{A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	dm := BuildDitherMap(img)

	edge := dm.At(4, 4)   // right at the vertical seam
	smooth := dm.At(7, 4) // deep in the flat white region
	if edge >= smooth {
		t.Fatalf("edge damping %v should be less than smooth-region damping %v", edge, smooth)
	}
}

func TestBuildAlwaysDitherMapIsAllOnes(t *testing.T) {
	dm := BuildAlwaysDitherMap(3, 3)
	for _, v := range dm.Values {
		if v != 1 {
			t.Fatalf("BuildAlwaysDitherMap value = %v, want 1", v)
		}
	}
}

func TestResizePreservesDimensions(t *testing.T) {
	img := solidRGBA(10, 20, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	out := Resize(img, 5, 8, InterpolationArea)
	if out.Width() != 5 || out.Height() != 8 {
		t.Fatalf("got %dx%d, want 5x8", out.Width(), out.Height())
	}
}

func TestResizeToWidthKeepsAspectRatio(t *testing.T) {
	img := solidRGBA(100, 50, color.RGBA{A: 255})
	out := ResizeToWidth(img, 20, InterpolationLinear)
	if out.Width() != 20 || out.Height() != 10 {
		t.Fatalf("got %dx%d, want 20x10", out.Width(), out.Height())
	}
}

func TestResizeToHeightKeepsAspectRatio(t *testing.T) {
	img := solidRGBA(100, 50, color.RGBA{A: 255})
	out := ResizeToHeight(img, 10, InterpolationNearest)
	if out.Width() != 20 || out.Height() != 10 {
		t.Fatalf("got %dx%d, want 20x10", out.Width(), out.Height())
	}
}
