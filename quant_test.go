package quant8

import (
	"image/color"
	"testing"
)

func TestQuantizeSolidImageSingleColor(t *testing.T) {
	img := solidImage(t, 10, 10, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	attrs := NewAttributes()
	result, err := Quantize(attrs, img)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	pal := result.Palette()
	if len(pal) != 1 {
		t.Fatalf("got %d colors, want 1", len(pal))
	}
}

func TestQuantizeImportanceMapDropsUnimportantColor(t *testing.T) {
	pixels := []color.RGBA{
		{R: 255, A: 255},
		{B: 255, A: 255},
	}
	src, err := NewBorrowedRowSource(pixels, 2, 1, 0)
	if err != nil {
		t.Fatalf("NewBorrowedRowSource: %v", err)
	}
	img, err := NewImage(2, 1, 0, src)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	if err := img.SetImportanceMap([]uint8{255, 0}); err != nil {
		t.Fatalf("SetImportanceMap: %v", err)
	}

	attrs := NewAttributes()
	result, err := Quantize(attrs, img)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	pal := result.Palette()
	if len(pal) != 1 {
		t.Fatalf("got %d colors, want 1", len(pal))
	}
	if pal[0].R != 255 || pal[0].G != 0 || pal[0].B != 0 {
		t.Fatalf("got color %v, want pure red", pal[0])
	}
}

func TestQuantizeNearSolidImageHitsFullQuality(t *testing.T) {
	pixels := make([]color.RGBA, 100)
	for i := range pixels {
		pixels[i] = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	pixels[0] = color.RGBA{R: 250, G: 255, B: 255, A: 255}
	src, err := NewBorrowedRowSource(pixels, 10, 10, 0)
	if err != nil {
		t.Fatalf("NewBorrowedRowSource: %v", err)
	}
	img, err := NewImage(10, 10, 0, src)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}

	attrs := NewAttributes()
	if err := attrs.SetQuality(70, 99); err != nil {
		t.Fatalf("SetQuality: %v", err)
	}
	if err := attrs.SetSpeed(5); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}

	result, err := Quantize(attrs, img)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if len(result.Palette()) != 2 {
		t.Fatalf("got %d colors, want 2", len(result.Palette()))
	}
	if result.QualityPercent == nil || *result.QualityPercent != 100 {
		t.Fatalf("got quality_percent %v, want 100", result.QualityPercent)
	}
}

func TestQuantizeGradientRespectsMaxColorsAndQuality(t *testing.T) {
	pixels := make([]color.RGBA, 256)
	for i := range pixels {
		pixels[i] = color.RGBA{R: uint8(i), G: uint8(i), B: uint8(i), A: 255}
	}
	src, err := NewBorrowedRowSource(pixels, 256, 1, 0)
	if err != nil {
		t.Fatalf("NewBorrowedRowSource: %v", err)
	}
	img, err := NewImage(256, 1, 0, src)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}

	attrs := NewAttributes()
	if err := attrs.SetMaxColors(16); err != nil {
		t.Fatalf("SetMaxColors: %v", err)
	}
	if err := attrs.SetSpeed(3); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}

	result, err := Quantize(attrs, img)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if len(result.Palette()) != 16 {
		t.Fatalf("got %d colors, want 16", len(result.Palette()))
	}
	if result.RemapErrorEstimate == nil || *result.RemapErrorEstimate > qualityToMSE(80) {
		t.Fatalf("mse estimate %v above quality(80) threshold %v", result.RemapErrorEstimate, qualityToMSE(80))
	}
}

func TestQuantizeCallbackSourceCallCountWithinBounds(t *testing.T) {
	const width, height = 123, 5
	fill := func(dst []color.RGBA, y int) error {
		for x := range dst {
			dst[x] = color.RGBA{R: uint8(x), G: uint8(x), B: uint8(x), A: uint8(x)}
		}
		return nil
	}
	src, err := NewCallbackRowSource(fill, width, height)
	if err != nil {
		t.Fatalf("NewCallbackRowSource: %v", err)
	}
	img, err := NewImage(width, height, 0, src)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}

	attrs := NewAttributes() // speed 4 -> DitherMapNormal -> two passes per row
	result, err := Quantize(attrs, img)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	calls := src.CallCount()
	if calls <= height || calls >= 50 {
		t.Fatalf("got %d row callback invocations, want >%d and <50", calls, height)
	}
	if len(result.Palette()) != width {
		t.Fatalf("got %d colors, want %d (one distinct color per column)", len(result.Palette()), width)
	}
}

func TestQuantizeThenRemapReusesSameImage(t *testing.T) {
	img := solidImage(t, 4, 4, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	attrs := NewAttributes()

	result, err := Quantize(attrs, img)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if !img.Available() {
		t.Fatalf("image released after Quantize; spec.md requires it stay remappable")
	}

	indices := make([]byte, 16)
	if _, err := Remap(attrs, result, img, indices); err != nil {
		t.Fatalf("Remap on the same Image used for Quantize: %v", err)
	}
}

func TestQuantizeUnionsFixedColorAcrossImages(t *testing.T) {
	imgA := solidImage(t, 2, 2, color.RGBA{R: 255, A: 255})
	imgB := solidImage(t, 2, 2, color.RGBA{G: 255, A: 255})
	imgA.SetFixedColors([]color.RGBA{{B: 255, A: 255}})

	attrs := NewAttributes()
	if err := attrs.SetMaxColors(8); err != nil {
		t.Fatalf("SetMaxColors: %v", err)
	}
	result, err := Quantize(attrs, imgA, imgB)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if len(result.Palette()) != 3 {
		t.Fatalf("got %d colors, want 3 (red, green, fixed blue)", len(result.Palette()))
	}
	foundFixedBlue := false
	for _, c := range result.Palette() {
		if c.R == 0 && c.G == 0 && c.B == 255 {
			foundFixedBlue = true
		}
	}
	if !foundFixedBlue {
		t.Fatalf("fixed blue entry missing from palette %v", result.Palette())
	}
}
