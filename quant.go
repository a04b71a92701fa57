package quant8

import "image/color"

// Quantize runs the full pipeline over one or more images sharing a single
// histogram: histogram construction, median-cut seeding, and the k-means
// feedback loop, producing a reusable QuantizationResult.
func Quantize(attrs *Attributes, images ...*Image) (*QuantizationResult, error) {
	if attrs == nil {
		return nil, newError(InvalidPointer, "nil attributes")
	}
	if len(images) == 0 {
		return nil, newError(ValueOutOfRange, "no images supplied")
	}

	reqID := newCorrelationID()
	attrs.logEvent(reqID, "quantize", "starting")

	if attrs.callbacks.reportProgress(0) == Break {
		return nil, newError(Aborted, "aborted before histogram construction")
	}

	useEdgeWeight := attrs.ditherMapMode() != DitherMapOff
	hist := NewHistogram(useEdgeWeight)
	for _, img := range images {
		if err := hist.AddImage(img); err != nil {
			return nil, err
		}
	}
	if err := hist.Finalize(attrs); err != nil {
		return nil, err
	}
	attrs.logEvent(reqID, "histogram", "finalized")

	if attrs.callbacks.reportProgress(20) == Break {
		return nil, newError(Aborted, "aborted after histogram construction")
	}

	// Pixels the caller marked as fully unimportant contribute zero weight
	// and carry no statistical information; excluding them keeps box/
	// cluster sizing (and the size-based heuristics keyed on entry count)
	// from being skewed by colors that should never surface in the palette.
	entries := make([]HistItem, 0, len(hist.Entries()))
	for _, e := range hist.Entries() {
		if e.Weight > 0 {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return nil, newError(ValueOutOfRange, "no histogram entries carry positive weight")
	}

	fixed := collectFixedColors(images, attrs.MaxColors)
	lut := images[0].lut

	palette := make([]PalEntry, 0, attrs.MaxColors)
	for _, c := range fixed {
		palette = append(palette, PalEntry{Color: fromRGBA(lut, c), Fixed: true})
	}

	numBoxes := attrs.MaxColors - len(fixed)
	if numBoxes < 1 {
		numBoxes = 1
	}
	seeded := seedMedianCut(append([]HistItem(nil), entries...), numBoxes)
	palette = append(palette, seeded...)
	if len(palette) == 0 {
		return nil, newError(ValueOutOfRange, "no palette entries produced")
	}

	attrs.logEvent(reqID, "median-cut", "seeded")
	if attrs.callbacks.reportProgress(30) == Break {
		return nil, newError(Aborted, "aborted after median-cut seeding")
	}

	mse, err := feedbackLoop(entries, palette, attrs, func(trial, trials int, _ float32) ProgressAction {
		pct := 30 + 60*float32(trial)/float32(trials)
		return attrs.callbacks.reportProgress(pct)
	})
	if err != nil {
		return nil, err
	}
	attrs.logEvent(reqID, "feedback-loop", "converged")

	if attrs.callbacks.reportProgress(100) == Break {
		return nil, newError(Aborted, "aborted after feedback loop")
	}

	quality := uint8(mseToQuality(mse))
	estimate := mse
	result := &QuantizationResult{
		palette:              NewPalette(palette, lut),
		DitherLevel:          attrs.DitherLevel,
		OutputGamma:          lut.gamma,
		RemapErrorEstimate:   &estimate,
		QualityPercent:       &quality,
		lastIndexTransparent: attrs.LastIndexTransparent,
	}
	attrs.logEvent(reqID, "quantize", "done")
	return result, nil
}

// collectFixedColors unions every image's fixed colors, deduplicated and
// capped at maxColors-1 (the rest of the palette must come from
// median-cut/k-means).
func collectFixedColors(images []*Image, maxColors int) []color.RGBA {
	seen := make(map[color.RGBA]bool)
	var out []color.RGBA
	limit := maxColors - 1
	for _, img := range images {
		for _, c := range img.fixed {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}
