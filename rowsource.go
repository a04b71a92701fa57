package quant8

import (
	"image/color"
	"sync/atomic"
)

// RowSource is the pixel-row collaborator contract: one of a borrowed
// contiguous buffer, an owned copy, or a pull callback. Dispatch happens
// once per row batch, not per pixel, so the hot loops never pay for virtual
// calls on every sample.
type RowSource interface {
	// row fills dst (length == width) with pixel y. Returns BitmapNotAvailable
	// if the source has already been released.
	row(dst []color.RGBA, y int) error
	// release marks the source as consumed; subsequent row calls fail.
	release()
	available() bool
}

// BorrowedRowSource reads directly from a caller-owned RGBA buffer without
// copying it. stride is in pixels; 0 means "tightly packed" (stride==width).
type BorrowedRowSource struct {
	pixels  []color.RGBA
	width   int
	height  int
	stride  int
	avail   bool
}

// NewBorrowedRowSource wraps pixels without copying. pixels must contain at
// least height*stride entries (or height*width if stride is 0).
func NewBorrowedRowSource(pixels []color.RGBA, width, height, stride int) (*BorrowedRowSource, error) {
	if width <= 0 || height <= 0 {
		return nil, newError(ValueOutOfRange, "width and height must be positive, got %dx%d", width, height)
	}
	if stride == 0 {
		stride = width
	}
	if stride < width {
		return nil, newError(ValueOutOfRange, "stride %d smaller than width %d", stride, width)
	}
	if len(pixels) < stride*(height-1)+width {
		return nil, newError(InvalidPointer, "pixel buffer too small for %dx%d at stride %d", width, height, stride)
	}
	return &BorrowedRowSource{pixels: pixels, width: width, height: height, stride: stride, avail: true}, nil
}

func (b *BorrowedRowSource) row(dst []color.RGBA, y int) error {
	if !b.avail {
		return newError(BitmapNotAvailable, "borrowed rows already released")
	}
	if y < 0 || y >= b.height {
		return newError(ValueOutOfRange, "row %d out of range [0,%d)", y, b.height)
	}
	start := y * b.stride
	copy(dst, b.pixels[start:start+b.width])
	return nil
}

func (b *BorrowedRowSource) release()       { b.avail = false }
func (b *BorrowedRowSource) available() bool { return b.avail }

// OwnedRowSource holds a private copy of the pixel buffer. Used when the
// caller cannot guarantee the lifetime of the original buffer.
type OwnedRowSource struct {
	pixels []color.RGBA
	width  int
	height int
	avail  bool
}

// NewOwnedRowSource copies pixels (tightly packed, width*height) into a
// library-owned buffer.
func NewOwnedRowSource(pixels []color.RGBA, width, height int) (*OwnedRowSource, error) {
	if width <= 0 || height <= 0 {
		return nil, newError(ValueOutOfRange, "width and height must be positive, got %dx%d", width, height)
	}
	if len(pixels) < width*height {
		return nil, newError(InvalidPointer, "pixel buffer too small for %dx%d", width, height)
	}
	owned := make([]color.RGBA, width*height)
	copy(owned, pixels[:width*height])
	return &OwnedRowSource{pixels: owned, width: width, height: height, avail: true}, nil
}

func (o *OwnedRowSource) row(dst []color.RGBA, y int) error {
	if !o.avail {
		return newError(BitmapNotAvailable, "owned buffer already released")
	}
	if y < 0 || y >= o.height {
		return newError(ValueOutOfRange, "row %d out of range [0,%d)", y, o.height)
	}
	start := y * o.width
	copy(dst, o.pixels[start:start+o.width])
	return nil
}

func (o *OwnedRowSource) release()       { o.avail = false; o.pixels = nil }
func (o *OwnedRowSource) available() bool { return o.avail }

// FillRowFunc is the pull-callback row source. It is invoked at most once
// per row per pass; callers that need to support multiple passes (e.g.
// histogram build then remap) must return the same pixels both times.
type FillRowFunc func(dst []color.RGBA, y int) error

// CallbackRowSource adapts a FillRowFunc to RowSource and counts the total
// number of fill calls across all rows and passes (see CallCount).
type CallbackRowSource struct {
	fill   FillRowFunc
	width  int
	height int
	avail  bool
	calls  int64
}

// NewCallbackRowSource wraps fill as a RowSource of the given dimensions.
func NewCallbackRowSource(fill FillRowFunc, width, height int) (*CallbackRowSource, error) {
	if width <= 0 || height <= 0 {
		return nil, newError(ValueOutOfRange, "width and height must be positive, got %dx%d", width, height)
	}
	if fill == nil {
		return nil, newError(InvalidPointer, "fill callback is nil")
	}
	return &CallbackRowSource{fill: fill, width: width, height: height, avail: true}, nil
}

func (c *CallbackRowSource) row(dst []color.RGBA, y int) error {
	if !c.avail {
		return newError(BitmapNotAvailable, "callback source already released")
	}
	if y < 0 || y >= c.height {
		return newError(ValueOutOfRange, "row %d out of range [0,%d)", y, c.height)
	}
	atomic.AddInt64(&c.calls, 1)
	return c.fill(dst, y)
}

func (c *CallbackRowSource) release()       { c.avail = false }
func (c *CallbackRowSource) available() bool { return c.avail }

// CallCount returns the number of times the fill callback has been invoked,
// for diagnostics (tests assert this falls within an expected window). Safe
// to call while row() is being invoked concurrently from other goroutines.
func (c *CallbackRowSource) CallCount() int { return int(atomic.LoadInt64(&c.calls)) }
