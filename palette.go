package quant8

import (
	"image/color"
	"sort"
)

// PalEntry is one working palette slot during seeding/refinement: a
// perceptual color, a popularity weight used for tie-breaking and output
// ordering, and whether it is pinned by the caller (bypasses k-means
// updates).
type PalEntry struct {
	Color      fpix
	Popularity float32
	Fixed      bool
}

// Palette is the mutable working set of up to 256 PalEntry values that
// median-cut seeds and k-means refines.
type Palette struct {
	Entries []PalEntry
	lut     *GammaLUT
}

// NewPalette wraps entries (already seeded) with the LUT needed to convert
// back to sRGB at output time.
func NewPalette(entries []PalEntry, lut *GammaLUT) *Palette {
	return &Palette{Entries: entries, lut: lut}
}

func (p *Palette) Len() int { return len(p.Entries) }

// RGBA converts the final palette to 8-bit sRGB, ordered by decreasing
// popularity. If lastIndexTransparent is set and a fully transparent entry
// exists, it is moved to the last slot.
func (p *Palette) RGBA(lastIndexTransparent bool) []color.RGBA {
	order := make([]int, len(p.Entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return p.Entries[order[i]].Popularity > p.Entries[order[j]].Popularity
	})

	if lastIndexTransparent {
		transparentPos := -1
		for pos, idx := range order {
			if p.Entries[idx].Color.A == 0 {
				transparentPos = pos
				break
			}
		}
		if transparentPos >= 0 && transparentPos != len(order)-1 {
			t := order[transparentPos]
			order = append(order[:transparentPos], order[transparentPos+1:]...)
			order = append(order, t)
		}
	}

	out := make([]color.RGBA, len(order))
	for i, idx := range order {
		out[i] = toRGBA(p.lut, p.Entries[idx].Color)
	}
	return out
}

// QuantizationResult is the immutable (except DitherLevel) output of
// Quantize, reusable across many Remap calls against different images.
type QuantizationResult struct {
	palette             *Palette
	DitherLevel         float32
	OutputGamma         float64
	RemapErrorEstimate  *float32
	QualityPercent      *uint8
	lastIndexTransparent bool
}

// Palette returns the 8-bit sRGB output palette in its public order.
func (r *QuantizationResult) Palette() []color.RGBA {
	return r.palette.RGBA(r.lastIndexTransparent)
}

// SetDitherLevel updates the diffusion strength used by future Remap calls.
// Requires exclusive access: do not call concurrently with an in-flight
// Remap sharing this result.
func (r *QuantizationResult) SetDitherLevel(level float32) error {
	if level < 0 || level > 1 {
		return newError(ValueOutOfRange, "dither_level %f out of range [0,1]", level)
	}
	r.DitherLevel = level
	return nil
}
