package raster

import "math"

// DitherMap is a per-pixel scalar in [0,1] that attenuates Floyd-Steinberg
// error diffusion. 0 means "suppress diffusion here" (high local contrast),
// 1 means "diffuse fully" (smooth region). Built from a Sobel gradient
// magnitude, left continuous instead of binarized into an edge mask.
type DitherMap struct {
	Width, Height int
	Values        []float32
}

// At returns the damping factor for pixel (x, y), clamped to the map bounds.
func (m *DitherMap) At(x, y int) float32 {
	if x < 0 {
		x = 0
	} else if x >= m.Width {
		x = m.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= m.Height {
		y = m.Height - 1
	}
	return m.Values[y*m.Width+x]
}

// sobelMagnitude computes the 3x3 Sobel gradient magnitude of gray,
// replicating border pixels rather than padding with zero so edge rows/
// columns don't read as spuriously high-contrast.
func sobelMagnitude(gray *GrayImage) []float32 {
	width, height := gray.Width(), gray.Height()
	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		} else if x >= width {
			x = width - 1
		}
		if y < 0 {
			y = 0
		} else if y >= height {
			y = height - 1
		}
		return float64(gray.GrayAt(x, y).Y)
	}

	out := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			out[y*width+x] = float32(math.Sqrt(gx*gx + gy*gy))
		}
	}
	return out
}

// BuildDitherMap derives a contrast map from an image's Sobel gradient
// magnitude, normalized to [0,1] and inverted so that high-gradient
// (high-contrast) pixels get a low value and smooth regions get a high one
// — the property spec.md §9 requires of the dither map.
func BuildDitherMap(img *RGBAImage) *DitherMap {
	gray := ToGrayscale(img)
	mag := sobelMagnitude(gray)
	width, height := gray.Width(), gray.Height()

	// Sobel magnitude on an 8-bit source saturates around 4*255; normalize
	// against the observed maximum so a mostly-flat image doesn't get
	// needlessly damped.
	var maxVal float32
	for _, v := range mag {
		if v > maxVal {
			maxVal = v
		}
	}
	values := make([]float32, width*height)
	if maxVal == 0 {
		for i := range values {
			values[i] = 1
		}
		return &DitherMap{Width: width, Height: height, Values: values}
	}
	inv := 1 / maxVal
	for i, v := range mag {
		values[i] = 1 - v*inv
	}
	return &DitherMap{Width: width, Height: height, Values: values}
}

// BuildAlwaysDitherMap returns a map of all 1s, used when the caller wants
// diffusion applied uniformly even through high-contrast regions
// (DitherMapMode Always at low speed settings).
func BuildAlwaysDitherMap(width, height int) *DitherMap {
	values := make([]float32, width*height)
	for i := range values {
		values[i] = 1
	}
	return &DitherMap{Width: width, Height: height, Values: values}
}
