package quant8

import "image/color"

// highWaterBytes is the width*height*sizeof(fpix) threshold above which the
// pipeline must avoid materializing a full float image. Since quant8 always
// walks an Image row-by-row (histogram accumulation, remap) rather than
// building one giant []fpix up front, this constant exists only to document
// compliance and to let callers ask WouldStream.
const highWaterBytes = 64 * 1024 * 1024
const fpixSize = 16 // 4 float32 channels

// Image bundles a row source with the gamma, importance map, and fixed
// colors that parameterize how it is histogrammed and remapped.
type Image struct {
	width, height int
	lut           *GammaLUT
	source        RowSource
	importance    []uint8 // optional, row-major, len == width*height
	fixed         []color.RGBA
}

// NewImage constructs an Image over source. gamma == 0 means "use sRGB".
func NewImage(width, height int, gamma float64, source RowSource) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, newError(ValueOutOfRange, "invalid image dimensions %dx%d", width, height)
	}
	if source == nil {
		return nil, newError(InvalidPointer, "row source is nil")
	}
	return &Image{
		width:  width,
		height: height,
		lut:    NewGammaLUT(gamma),
		source: source,
	}, nil
}

// Width and Height report the pixel dimensions.
func (img *Image) Width() int  { return img.width }
func (img *Image) Height() int { return img.height }

// WouldStream reports whether this image's size crosses the high-water
// threshold past which the library must avoid materializing a full float
// buffer. quant8 never materializes one regardless; this is exposed so a
// caller can decide whether to lower quality/speed first.
func (img *Image) WouldStream() bool {
	return int64(img.width)*int64(img.height)*fpixSize > highWaterBytes
}

// SetImportanceMap attaches a per-pixel weight map (0..255, row-major,
// width*height entries). 0 means "ignore this pixel", 255 means "full
// weight".
func (img *Image) SetImportanceMap(m []uint8) error {
	if m != nil && len(m) != img.width*img.height {
		return newError(ValueOutOfRange, "importance map length %d != %d", len(m), img.width*img.height)
	}
	img.importance = m
	return nil
}

// SetFixedColors registers colors that must appear verbatim in the output
// palette. Image doesn't know maxColors, so no limit is checked here;
// Quantize keeps at most maxColors-1 fixed colors across all images and
// ignores the rest.
func (img *Image) SetFixedColors(colors []color.RGBA) {
	img.fixed = append([]color.RGBA(nil), colors...)
}

// importanceAt returns the weight (0..1) for pixel (x,y), defaulting to 1
// when no importance map is set.
func (img *Image) importanceAt(x, y int) float32 {
	if img.importance == nil {
		return 1
	}
	return float32(img.importance[y*img.width+x]) / 255
}

// row reads one row of raw RGBA pixels into dst (len(dst) must be >= width).
func (img *Image) row(dst []color.RGBA, y int) error {
	return img.source.row(dst, y)
}

// release marks the underlying row source as consumed, so later row reads
// fail with BitmapNotAvailable. The quantizer itself never calls this: a
// histogrammed Image must remain readable for a later Remap. It exists for
// callers who know no further pass is coming (e.g. they want a
// callback-backed source's resources dropped promptly).
func (img *Image) release() { img.source.release() }

// Available reports whether the backing row source can still be read.
func (img *Image) Available() bool { return img.source.available() }
