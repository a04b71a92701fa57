package quant8

import "testing"

func TestKMeansIterationConverges(t *testing.T) {
	entries := makeEntries([]fpix{
		{R: 0, A: 1}, {R: 0.02, A: 1}, {R: 0.98, A: 1}, {R: 1, A: 1},
	}, []float32{10, 10, 10, 10})
	palette := []PalEntry{
		{Color: fpix{R: 0.1, A: 1}},
		{Color: fpix{R: 0.9, A: 1}},
	}
	var mse float32
	for i := 0; i < 10; i++ {
		index := BuildNearestIndex(palette)
		_, mse = kmeansIteration(entries, palette, index)
	}
	if palette[0].Color.R > 0.2 {
		t.Fatalf("low cluster centroid drifted to %v, want near 0.01", palette[0].Color.R)
	}
	if palette[1].Color.R < 0.8 {
		t.Fatalf("high cluster centroid drifted to %v, want near 0.99", palette[1].Color.R)
	}
	if mse > 0.01 {
		t.Fatalf("mse %v too high for a converged two-cluster fit", mse)
	}
}

func TestKMeansFixedEntryNeverMoves(t *testing.T) {
	entries := makeEntries([]fpix{{R: 0, A: 1}, {R: 1, A: 1}}, []float32{10, 10})
	fixedColor := fpix{R: 0.5, G: 0.5, A: 1}
	palette := []PalEntry{
		{Color: fixedColor, Fixed: true},
		{Color: fpix{R: 0.3, A: 1}},
	}
	index := BuildNearestIndex(palette)
	kmeansIteration(entries, palette, index)
	if palette[0].Color != fixedColor {
		t.Fatalf("fixed entry moved from %v to %v", fixedColor, palette[0].Color)
	}
}

func TestKMeansReplacesDeadEntryWithWorstFit(t *testing.T) {
	entries := makeEntries([]fpix{
		{R: 0, A: 1}, {R: 0.01, A: 1}, {R: 0.02, A: 1}, {R: 0.9, A: 1},
	}, []float32{5, 5, 5, 20})
	// Both palette entries start identical, so every query resolves the tie
	// the same way and one entry is guaranteed to end the round with zero
	// assigned weight.
	palette := []PalEntry{
		{Color: fpix{R: 0.005, A: 1}},
		{Color: fpix{R: 0.005, A: 1}},
	}
	index := BuildNearestIndex(palette)
	kmeansIteration(entries, palette, index)

	foundOutlierCluster := false
	for _, p := range palette {
		if p.Color.R > 0.5 {
			foundOutlierCluster = true
		}
	}
	if !foundOutlierCluster {
		t.Fatalf("expected one palette entry to pick up the outlier, got %v", palette)
	}
}

func TestFeedbackLoopConvergesOnSeparatedClusters(t *testing.T) {
	var colors []fpix
	var weights []float32
	for i := 0; i < 50; i++ {
		colors = append(colors, fpix{R: 0.05, G: float32(i) / 500, A: 1})
		weights = append(weights, 1)
	}
	for i := 0; i < 50; i++ {
		colors = append(colors, fpix{R: 0.95, G: float32(i) / 500, A: 1})
		weights = append(weights, 1)
	}
	entries := makeEntries(colors, weights)
	palette := seedMedianCut(append([]HistItem(nil), entries...), 2)

	attrs := NewAttributes()
	attrs.SetQuality(0, 80)
	attrs.SetSpeed(3)

	mse, err := feedbackLoop(entries, palette, attrs, nil)
	if err != nil {
		t.Fatalf("feedbackLoop: %v", err)
	}
	if mse > attrs.targetMSE()*2 {
		t.Fatalf("mse %v far above target %v for a trivially separable set", mse, attrs.targetMSE())
	}
}
