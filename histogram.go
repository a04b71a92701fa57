package quant8

import (
	"image/color"
	"math/rand"
	"sort"

	"github.com/colorforge/quant8/internal/raster"
)

// HistItem is one distinct posterized color plus its accumulated weight.
// Kept compact at 28 bytes: 16 for the fpix color, 4 each for weight,
// adjusted_weight, tie_breaker.
type HistItem struct {
	Color          fpix
	Weight         float32
	AdjustedWeight float32
	TieBreaker     float32
}

// Histogram accumulates distinct posterized colors across one or more
// Images before median-cut seeding runs over it.
type Histogram struct {
	entries       []HistItem
	posterizeBits int
	totalWeight   float64
	images        []*Image
	useEdgeWeight bool
	finalized     bool
}

// NewHistogram returns an empty Histogram. useEdgeWeight enables the
// speed-dependent 3x3 contrast estimator that scales a pixel's contribution;
// the exact kernel is left open to the implementation, so quant8 reuses
// internal/raster's Sobel-based contrast map rather than inventing a second
// one.
func NewHistogram(useEdgeWeight bool) *Histogram {
	return &Histogram{useEdgeWeight: useEdgeWeight}
}

// AddImage registers img to be scanned at Finalize time. Multiple images
// (same or differing dimensions) may be added before finalization; they
// share one histogram.
func (h *Histogram) AddImage(img *Image) error {
	if h.finalized {
		return newError(Unsupported, "histogram already finalized")
	}
	if img == nil {
		return newError(InvalidPointer, "nil image")
	}
	h.images = append(h.images, img)
	return nil
}

// Entries returns the finalized, sorted histogram. Finalize must be called
// first.
func (h *Histogram) Entries() []HistItem { return h.entries }

// PosterizeBits reports the posterization level the histogram settled on.
func (h *Histogram) PosterizeBits() int { return h.posterizeBits }

// TotalWeight returns the sum of all accumulated weights, conserved across
// posterization retries.
func (h *Histogram) TotalWeight() float64 { return h.totalWeight }

type histKey uint32

// Finalize scans every registered image, posterizing and bucketing pixels,
// bumping posterizeBits and rescanning if the distinct-color estimate
// exceeds attrs' speed-derived capacity. The scanned images' row sources
// are left readable, so the same Image can be remapped afterward.
func (h *Histogram) Finalize(attrs *Attributes) error {
	if h.finalized {
		return nil
	}
	if len(h.images) == 0 {
		return newError(ValueOutOfRange, "histogram has no images")
	}
	maxEntries := attrs.maxHistogramEntries()
	var buckets map[histKey]*HistItem
	var total float64
	for {
		var err error
		buckets, total, err = h.scan()
		if err != nil {
			return err
		}
		if len(buckets) <= maxEntries || h.posterizeBits >= 4 {
			break
		}
		h.posterizeBits++
	}
	if len(buckets) > maxEntries {
		return newError(OutOfMemory, "histogram has %d distinct colors after max posterization, limit %d", len(buckets), maxEntries)
	}

	entries := make([]HistItem, 0, len(buckets))
	for _, item := range buckets {
		entries = append(entries, *item)
	}

	// Deterministic tie-breaker from a fixed seed, independent of map
	// iteration order, so results are stable across runs.
	rng := rand.New(rand.NewSource(0x5151_1973))
	for i := range entries {
		entries[i].TieBreaker = rng.Float32()
		entries[i].AdjustedWeight = entries[i].Weight
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Weight != entries[j].Weight {
			return entries[i].Weight > entries[j].Weight
		}
		return entries[i].TieBreaker > entries[j].TieBreaker
	})

	h.entries = entries
	h.totalWeight = total
	// Scanned images are NOT released here: spec.md's lifecycle explicitly
	// allows the same Image that fed the histogram to be remapped
	// afterward (§2's "Remap(Image)", §3's "then is free to be remapped").
	// release() stays available for callers that want to drop a
	// callback/owned source's resources once they know no further pass is
	// coming.
	h.finalized = true
	return nil
}

func (h *Histogram) scan() (map[histKey]*HistItem, float64, error) {
	shift := uint(h.posterizeBits)
	var merged map[histKey]*HistItem
	var total float64

	for _, img := range h.images {
		if !img.Available() {
			return nil, 0, newError(BitmapNotAvailable, "image pixels already released")
		}
		width, height := img.Width(), img.Height()

		var ditherMap *raster.DitherMap
		if h.useEdgeWeight {
			raw := raster.NewRGBAImage(width, height)
			var rowErr error
			forEachRowRange(height, func(lo, hi int) {
				row := make([]color.RGBA, width)
				for y := lo; y < hi; y++ {
					if err := img.row(row, y); err != nil {
						rowErr = err
						return
					}
					for x := 0; x < width; x++ {
						raw.SetRGBA(x, y, row[x])
					}
				}
			})
			if rowErr != nil {
				return nil, 0, rowErr
			}
			ditherMap = raster.BuildDitherMap(raw)
		}

		partials := make([]map[histKey]*HistItem, rowWorkers(height))
		subtotals := make([]float64, len(partials))
		var rowErr error
		forEachRowRangeIndexed(height, func(worker, lo, hi int) {
			local := make(map[histKey]*HistItem)
			var localTotal float64
			row := make([]color.RGBA, width)
			for y := lo; y < hi; y++ {
				if err := img.row(row, y); err != nil {
					rowErr = err
					return
				}
				for x := 0; x < width; x++ {
					c := row[x]
					pc := color.RGBA{
						R: posterizeChannel(c.R, shift),
						G: posterizeChannel(c.G, shift),
						B: posterizeChannel(c.B, shift),
						A: posterizeChannel(c.A, shift),
					}
					key := histKey(uint32(pc.R)<<24 | uint32(pc.G)<<16 | uint32(pc.B)<<8 | uint32(pc.A))
					weight := img.importanceAt(x, y)
					if ditherMap != nil {
						// High-contrast pixels get a modest weight boost so
						// median-cut/k-means are less likely to blur them away.
						weight *= 1 + (1-ditherMap.At(x, y))*0.5
					}
					localTotal += float64(weight)
					if item, ok := local[key]; ok {
						item.Weight += weight
					} else {
						local[key] = &HistItem{Color: fromRGBA(img.lut, pc), Weight: weight}
					}
				}
			}
			partials[worker] = local
			subtotals[worker] = localTotal
		})
		if rowErr != nil {
			return nil, 0, rowErr
		}

		if merged == nil {
			merged = make(map[histKey]*HistItem)
		}
		for i, local := range partials {
			total += subtotals[i]
			for key, item := range local {
				if existing, ok := merged[key]; ok {
					existing.Weight += item.Weight
				} else {
					merged[key] = item
				}
			}
		}
	}
	if merged == nil {
		merged = make(map[histKey]*HistItem)
	}
	return merged, total, nil
}

func posterizeChannel(v uint8, shift uint) uint8 {
	if shift == 0 {
		return v
	}
	return (v >> shift) << shift
}
