package quant8

import (
	"image/color"
	"sort"
	"sync/atomic"

	"github.com/colorforge/quant8/internal/raster"
)

// RemapResult is the per-image output of Remap: a compacted, usage-ordered
// palette (entries the image never used are dropped) and the mean squared
// error between source pixels and their remapped colors.
type RemapResult struct {
	Palette       []color.RGBA
	ErrorEstimate float32
}

// Remap writes one palette index per pixel of img into indices (row-major,
// length width*height) using result's working palette, then compacts the
// palette down to only the entries actually used and rewrites indices to
// match. attrs supplies the progress callback and the dither map mode.
func Remap(attrs *Attributes, result *QuantizationResult, img *Image, indices []byte) (*RemapResult, error) {
	width, height := img.Width(), img.Height()
	if len(indices) != width*height {
		return nil, newError(BufferTooSmall, "index buffer length %d != %d", len(indices), width*height)
	}
	if !img.Available() {
		return nil, newError(BitmapNotAvailable, "image pixels already released")
	}

	palette := result.palette
	index := BuildNearestIndex(palette.Entries)
	reqID := newCorrelationID()
	attrs.logEvent(reqID, "remap", "starting")

	var ditherMap *raster.DitherMap
	mode := attrs.ditherMapMode()
	if result.DitherLevel > 0 {
		switch mode {
		case DitherMapNormal:
			raw := materializeRGBA(img)
			ditherMap = raster.BuildDitherMap(raw)
		case DitherMapAlways:
			ditherMap = raster.BuildAlwaysDitherMap(width, height)
		}
	}

	var errSum float64
	var totalWeight float64

	if result.DitherLevel <= 0 {
		// No diffusion dependency between rows, so rows fan out across a
		// fixed worker pool; each worker accumulates its own error/weight
		// subtotal and writes only into its own row range of indices.
		workers := rowWorkers(height)
		subErr := make([]float64, workers)
		subWeight := make([]float64, workers)
		var rowErr error
		var rowsDone int32
		forEachRowRangeIndexed(height, func(worker, lo, hi int) {
			row := make([]color.RGBA, width)
			for y := lo; y < hi; y++ {
				if err := img.row(row, y); err != nil {
					rowErr = err
					return
				}
				for x := 0; x < width; x++ {
					c := fromRGBA(img.lut, row[x])
					idx, d := index.Nearest(c, -1)
					indices[y*width+x] = byte(idx)
					w := float64(img.importanceAt(x, y))
					subErr[worker] += w * float64(d)
					subWeight[worker] += w
				}
				n := atomic.AddInt32(&rowsDone, 1)
				if attrs.callbacks.reportProgress(float32(n)/float32(height)*100) == Break {
					rowErr = newError(Aborted, "remap aborted at row %d", y)
					return
				}
			}
		})
		if rowErr != nil {
			return nil, rowErr
		}
		for i := range subErr {
			errSum += subErr[i]
			totalWeight += subWeight[i]
		}
	} else {
		row := make([]color.RGBA, width)
		rowErr := make([]fpix, width)
		nextErr := make([]fpix, width)
		for y := 0; y < height; y++ {
			if err := img.row(row, y); err != nil {
				return nil, err
			}
			leftToRight := y%2 == 0
			for i := 0; i < width; i++ {
				x := i
				if !leftToRight {
					x = width - 1 - i
				}
				src := fromRGBA(img.lut, row[x])
				c := src
				c.R += rowErr[x].R
				c.G += rowErr[x].G
				c.B += rowErr[x].B
				c.A += rowErr[x].A

				idx, _ := index.Nearest(c, -1)
				indices[y*width+x] = byte(idx)

				pc := palette.Entries[idx].Color
				w := float64(img.importanceAt(x, y))
				errSum += w * float64(d2(src, pc))
				totalWeight += w

				residual := fpix{
					R: clampResidual(c.R - pc.R),
					G: clampResidual(c.G - pc.G),
					B: clampResidual(c.B - pc.B),
					A: clampResidual(c.A - pc.A),
				}

				damp := result.DitherLevel
				if ditherMap != nil {
					damp *= ditherMap.At(x, y)
				}

				dir := 1
				if !leftToRight {
					dir = -1
				}
				if fx := x + dir; fx >= 0 && fx < width {
					addScaled(&rowErr[fx], residual, damp*7.0/16)
				}
				if y+1 < height {
					if fx := x + dir; fx >= 0 && fx < width {
						addScaled(&nextErr[fx], residual, damp*1.0/16)
					}
					addScaled(&nextErr[x], residual, damp*5.0/16)
					if bx := x - dir; bx >= 0 && bx < width {
						addScaled(&nextErr[bx], residual, damp*3.0/16)
					}
				}
			}
			if attrs.callbacks.reportProgress(float32(y+1) / float32(height) * 100) == Break {
				return nil, newError(Aborted, "remap aborted at row %d", y)
			}
			rowErr, nextErr = nextErr, rowErr
			for i := range nextErr {
				nextErr[i] = fpix{}
			}
		}
	}

	var estimate float32
	if totalWeight > 0 {
		estimate = float32(errSum / totalWeight)
	}

	compacted := compactPalette(palette, indices, attrs.LastIndexTransparent)
	attrs.logEvent(reqID, "remap", "done")
	return &RemapResult{Palette: compacted, ErrorEstimate: estimate}, nil
}

func clampResidual(v float32) float32 {
	const bound = 1.0
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}

func addScaled(dst *fpix, residual fpix, scale float32) {
	dst.R += residual.R * scale
	dst.G += residual.G * scale
	dst.B += residual.B * scale
	dst.A += residual.A * scale
}

func materializeRGBA(img *Image) *raster.RGBAImage {
	width, height := img.Width(), img.Height()
	raw := raster.NewRGBAImage(width, height)
	row := make([]color.RGBA, width)
	for y := 0; y < height; y++ {
		img.row(row, y)
		for x := 0; x < width; x++ {
			raw.SetRGBA(x, y, row[x])
		}
	}
	return raw
}

// compactPalette drops palette entries indices never references, reorders
// the remainder by descending usage count, optionally moves a fully
// transparent entry to the last slot, and rewrites indices in place to
// match the new, smaller palette.
func compactPalette(palette *Palette, indices []byte, lastIndexTransparent bool) []color.RGBA {
	usage := make([]int, len(palette.Entries))
	for _, b := range indices {
		usage[b]++
	}

	used := make([]int, 0, len(palette.Entries))
	for i, n := range usage {
		if n > 0 {
			used = append(used, i)
		}
	}
	sort.SliceStable(used, func(i, j int) bool { return usage[used[i]] > usage[used[j]] })

	if lastIndexTransparent {
		pos := -1
		for p, idx := range used {
			if palette.Entries[idx].Color.A == 0 {
				pos = p
				break
			}
		}
		if pos >= 0 && pos != len(used)-1 {
			t := used[pos]
			used = append(used[:pos], used[pos+1:]...)
			used = append(used, t)
		}
	}

	remap := make([]byte, len(palette.Entries))
	out := make([]color.RGBA, len(used))
	for newIdx, oldIdx := range used {
		remap[oldIdx] = byte(newIdx)
		out[newIdx] = toRGBA(palette.lut, palette.Entries[oldIdx].Color)
	}
	for i, b := range indices {
		indices[i] = remap[b]
	}
	return out
}
