package quant8

import "sort"

// kmeansIteration runs one weighted assignment/update pass: every histogram
// entry is assigned to its nearest (by d2) non-skipped palette entry via
// index, accumulated into that entry's running centroid, then centroids are
// recomputed. Clustering itself is driven by AdjustedWeight (so the
// feedback loop's re-weighting actually shifts centroids); the returned mse
// is computed from the true Weight, since that is what quality reporting
// and the QualityTooLow threshold are measured against.
//
// Palette entries with zero accumulated weight are replaced with the
// single worst-fit remaining histogram entry (largest residual), one per
// dead slot, so no palette entry is ever silently abandoned.
func kmeansIteration(hist []HistItem, palette []PalEntry, index *NearestIndex) (movement, mse float32) {
	type clusterAccum struct {
		sum        fpix
		adjWeight  float64
		trueWeight float64
		errorSum   float64
	}
	accum := make([]clusterAccum, len(palette))
	assign := make([]int, len(hist))
	resid := make([]float32, len(hist))

	var totalTrueWeight float64
	for i, h := range hist {
		pidx, d := index.Nearest(h.Color, -1)
		assign[i] = pidx
		resid[i] = d

		aw := float64(h.AdjustedWeight)
		tw := float64(h.Weight)
		a := &accum[pidx]
		a.sum.R += float32(aw) * h.Color.R
		a.sum.G += float32(aw) * h.Color.G
		a.sum.B += float32(aw) * h.Color.B
		a.sum.A += float32(aw) * h.Color.A
		a.adjWeight += aw
		a.trueWeight += tw
		a.errorSum += tw * float64(d)
		totalTrueWeight += tw
	}

	var totalMovement, totalAdjWeight float64
	var deadIndices []int
	for pidx := range palette {
		if palette[pidx].Fixed {
			continue
		}
		a := accum[pidx]
		if a.adjWeight <= 0 {
			deadIndices = append(deadIndices, pidx)
			continue
		}
		newColor := fpix{
			R: a.sum.R / float32(a.adjWeight),
			G: a.sum.G / float32(a.adjWeight),
			B: a.sum.B / float32(a.adjWeight),
			A: a.sum.A / float32(a.adjWeight),
		}
		shift := d2(palette[pidx].Color, newColor)
		totalMovement += a.adjWeight * float64(shift)
		totalAdjWeight += a.adjWeight
		palette[pidx].Color = newColor
		palette[pidx].Popularity = float32(a.trueWeight)
	}

	if len(deadIndices) > 0 {
		replaceDeadEntries(hist, assign, resid, palette, deadIndices)
	}

	var mseSum float64
	for i := range accum {
		mseSum += accum[i].errorSum
	}
	if totalTrueWeight > 0 {
		mse = float32(mseSum / totalTrueWeight)
	}
	if totalAdjWeight > 0 {
		movement = float32(totalMovement / totalAdjWeight)
	}
	return movement, mse
}

// replaceDeadEntries gives each zero-weight palette slot the histogram
// entry with the largest unused residual, largest first.
func replaceDeadEntries(hist []HistItem, assign []int, resid []float32, palette []PalEntry, deadIndices []int) {
	order := make([]int, len(hist))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return resid[order[i]] > resid[order[j]] })

	used := make([]bool, len(hist))
	oi := 0
	for _, pidx := range deadIndices {
		for oi < len(order) && used[order[oi]] {
			oi++
		}
		if oi >= len(order) {
			return
		}
		h := hist[order[oi]]
		palette[pidx] = PalEntry{Color: h.Color, Popularity: h.Weight}
		used[order[oi]] = true
		oi++
	}
}

// runKMeans repeats kmeansIteration up to maxIterations times, rebuilding
// the nearest-color index each round since palette colors move, and
// stopping early once weighted centroid movement drops below
// iterationLimit. onIteration, if non-nil, is called after each round with
// the round's 1-based number and running mse; returning false aborts and
// runKMeans returns immediately.
//
// A budget of 0 (high speed settings, see Attributes.kmeansIterations) skips
// refinement entirely, but the caller still needs a real mse reading against
// the as-seeded palette rather than a stale zero value, so that case measures
// without mutating palette.
func runKMeans(hist []HistItem, palette []PalEntry, maxIterations int, iterationLimit float32, onIteration func(round int, mse float32) bool) float32 {
	if maxIterations <= 0 {
		return measurePaletteMSE(hist, palette)
	}
	var mse float32
	for round := 1; round <= maxIterations; round++ {
		index := BuildNearestIndex(palette)
		movement, roundMSE := kmeansIteration(hist, palette, index)
		mse = roundMSE
		if onIteration != nil && !onIteration(round, mse) {
			return mse
		}
		if movement < iterationLimit {
			break
		}
	}
	return mse
}

// measurePaletteMSE computes the weighted mean squared error of palette
// against hist without updating any palette entry.
func measurePaletteMSE(hist []HistItem, palette []PalEntry) float32 {
	index := BuildNearestIndex(palette)
	var errSum, totalWeight float64
	for _, h := range hist {
		_, d := index.Nearest(h.Color, -1)
		w := float64(h.Weight)
		errSum += w * float64(d)
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return float32(errSum / totalWeight)
}

// reweightByResidual mutates every histogram entry's AdjustedWeight by a
// factor that grows with its residual against the current palette, so the
// next k-means pass concentrates more on poorly represented colors.
func reweightByResidual(hist []HistItem, palette []PalEntry) {
	index := BuildNearestIndex(palette)
	resid := make([]float32, len(hist))
	var totalResid, totalWeight float64
	for i, h := range hist {
		_, d := index.Nearest(h.Color, -1)
		resid[i] = d
		totalResid += float64(d) * float64(h.Weight)
		totalWeight += float64(h.Weight)
	}
	var meanResid float32
	if totalWeight > 0 {
		meanResid = float32(totalResid / totalWeight)
	}
	for i := range hist {
		factor := float32(1)
		if meanResid > 0 {
			factor = 1 + resid[i]/meanResid
		}
		hist[i].AdjustedWeight = hist[i].Weight * factor
	}
}

// reseedWorstEntries replaces the worst-performing non-fixed palette
// entries (highest weight-averaged residual) with fresh median-cut seeds
// drawn from the highest-residual quarter of the histogram.
func reseedWorstEntries(hist []HistItem, palette []PalEntry) {
	nonFixed := 0
	for _, p := range palette {
		if !p.Fixed {
			nonFixed++
		}
	}
	k := nonFixed / 8
	if k < 1 {
		k = 1
	}
	if k > nonFixed {
		k = nonFixed
	}

	index := BuildNearestIndex(palette)
	resid := make([]float32, len(hist))
	palResid := make([]float64, len(palette))
	palWeight := make([]float64, len(palette))
	for i, h := range hist {
		pidx, d := index.Nearest(h.Color, -1)
		resid[i] = d
		palResid[pidx] += float64(d) * float64(h.Weight)
		palWeight[pidx] += float64(h.Weight)
	}

	type scored struct {
		idx int
		avg float64
	}
	candidates := make([]scored, 0, nonFixed)
	for i, p := range palette {
		if p.Fixed {
			continue
		}
		avg := 0.0
		if palWeight[i] > 0 {
			avg = palResid[i] / palWeight[i]
		}
		candidates = append(candidates, scored{i, avg})
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a].avg > candidates[b].avg })
	if k > len(candidates) {
		k = len(candidates)
	}
	worst := candidates[:k]

	order := make([]int, len(hist))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return resid[order[a]] > resid[order[b]] })
	subsetSize := len(hist) / 4
	if subsetSize < k {
		subsetSize = k
	}
	if subsetSize > len(hist) {
		subsetSize = len(hist)
	}
	subset := make([]HistItem, subsetSize)
	for i := 0; i < subsetSize; i++ {
		subset[i] = hist[order[i]]
	}

	newColors := seedMedianCut(subset, k)
	for i, w := range worst {
		if i >= len(newColors) {
			break
		}
		palette[w.idx].Color = newColors[i].Color
		palette[w.idx].Popularity = newColors[i].Popularity
	}
}

// feedbackLoop wraps runKMeans: it repeats k-means to convergence, checks
// mse against target/max, and when neither is met re-weights histogram
// entries and re-seeds the worst palette entries before the next trial.
// Stops when mse <= target, when trials are exhausted, or when
// mse improvement between consecutive trials falls below 1%.
func feedbackLoop(hist []HistItem, palette []PalEntry, attrs *Attributes, onTrial func(trial, trials int, mse float32) ProgressAction) (float32, error) {
	histSize := len(hist)
	trials := attrs.feedbackLoopTrials(histSize)
	// No prior mse measurement exists yet at this point in Quantize, so
	// paletteErrorKnown is false: a minimum-quality floor (QualityMin > 0)
	// still forces at least one real refinement/measurement pass.
	iterations := attrs.kmeansIterations(histSize, false)
	iterationLimit := attrs.kmeansIterationLimit(histSize)
	target := attrs.targetMSE()
	maxAllowed := attrs.maxMSE(histSize)

	var mse, lastMSE float32
	lastMSE = -1
	for trial := 1; trial <= trials; trial++ {
		mse = runKMeans(hist, palette, iterations, iterationLimit, nil)

		if onTrial != nil {
			if onTrial(trial, trials, mse) == Break {
				return mse, newError(Aborted, "aborted during feedback loop trial %d of %d", trial, trials)
			}
		}

		if mse <= target {
			break
		}
		if lastMSE >= 0 {
			improvement := (lastMSE - mse) / lastMSE
			if improvement < 0.01 {
				break
			}
		}
		if trial == trials {
			break
		}
		lastMSE = mse
		reweightByResidual(hist, palette)
		reseedWorstEntries(hist, palette)
	}

	if mse > maxAllowed {
		return mse, newError(QualityTooLow, "mse %f exceeds max_mse %f after %d trials", mse, maxAllowed, trials)
	}
	return mse, nil
}
