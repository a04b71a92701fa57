// Command quantize reduces a PNG/JPEG/GIF/TIFF image to an 8-bit palette
// and writes the result back out as an indexed PNG.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/colorforge/quant8"
	"github.com/colorforge/quant8/internal/raster"
)

func main() {
	input := flag.String("input", "", "path to the source image (PNG, JPEG, GIF, or TIFF)")
	output := flag.String("output", "out.png", "path to write the indexed PNG to")
	maxColors := flag.Int("colors", 256, "maximum palette size (2-256)")
	quality := flag.Int("quality", 80, "target quality (0-100)")
	speed := flag.Int("speed", 4, "speed/quality trade-off (1 slowest/best .. 10 fastest)")
	dither := flag.Float64("dither", 1.0, "Floyd-Steinberg dither strength (0-1)")
	maxDimension := flag.Int("max-dimension", 0, "downscale so the longer side is at most this many pixels (0 disables)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "quantize: -input is required")
		os.Exit(2)
	}

	if err := run(*input, *output, *maxColors, *quality, *speed, float32(*dither), *maxDimension); err != nil {
		fmt.Fprintf(os.Stderr, "quantize: %v\n", err)
		os.Exit(1)
	}
}

func run(input, output string, maxColors, quality int, speed int, dither float32, maxDimension int) error {
	src, err := raster.LoadImage(input)
	if err != nil {
		return err
	}
	if maxDimension > 0 && (src.Width() > maxDimension || src.Height() > maxDimension) {
		if src.Width() >= src.Height() {
			src = raster.ResizeToWidth(src, maxDimension, raster.InterpolationArea)
		} else {
			src = raster.ResizeToHeight(src, maxDimension, raster.InterpolationArea)
		}
	}
	width, height := src.Width(), src.Height()
	pixels := make([]color.RGBA, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pixels[y*width+x] = src.RGBAAt(x, y)
		}
	}

	attrs := quant8.NewAttributes()
	if err := attrs.SetMaxColors(maxColors); err != nil {
		return err
	}
	if err := attrs.SetQuality(0, quality); err != nil {
		return err
	}
	if err := attrs.SetSpeed(speed); err != nil {
		return err
	}
	attrs.SetLogCallback(quant8.ZerologSink(quant8.Logger()))
	attrs.SetProgressCallback(func(pct float32) quant8.ProgressAction {
		fmt.Fprintf(os.Stderr, "\rquantizing... %3.0f%%", pct)
		return quant8.Continue
	})

	source, err := quant8.NewBorrowedRowSource(pixels, width, height, 0)
	if err != nil {
		return err
	}
	img, err := quant8.NewImage(width, height, 0, source)
	if err != nil {
		return err
	}

	result, err := quant8.Quantize(attrs, img)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr)

	if err := result.SetDitherLevel(dither); err != nil {
		return err
	}

	// The same Image that fed the histogram is remapped directly: Quantize
	// never releases it, per spec.md's "free to be remapped" lifecycle.
	indices := make([]byte, width*height)
	remapped, err := quant8.Remap(attrs, result, img, indices)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "palette size %d, remap error %.6f\n", len(remapped.Palette), remapped.ErrorEstimate)

	pal := make(color.Palette, len(remapped.Palette))
	for i, c := range remapped.Palette {
		pal[i] = c
	}
	out := image.NewPaletted(image.Rect(0, 0, width, height), pal)
	copy(out.Pix, indices)

	return raster.SavePNG(out, output)
}
