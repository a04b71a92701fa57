package quant8

import "testing"

func makeEntries(colors []fpix, weights []float32) []HistItem {
	entries := make([]HistItem, len(colors))
	for i := range colors {
		entries[i] = HistItem{Color: colors[i], Weight: weights[i], AdjustedWeight: weights[i]}
	}
	return entries
}

func TestSeedMedianCutSingleColorSingleBox(t *testing.T) {
	entries := makeEntries([]fpix{{R: 0.5, G: 0.5, B: 0.5, A: 1}}, []float32{10})
	palette := seedMedianCut(entries, 16)
	if len(palette) != 1 {
		t.Fatalf("got %d boxes, want 1", len(palette))
	}
	if d2(palette[0].Color, entries[0].Color) > 1e-9 {
		t.Fatalf("box mean %v != only color %v", palette[0].Color, entries[0].Color)
	}
}

func TestSeedMedianCutRespectsRequestedCount(t *testing.T) {
	var colors []fpix
	var weights []float32
	for i := 0; i < 64; i++ {
		v := float32(i) / 63
		colors = append(colors, fpix{R: v, G: 1 - v, B: 0.5, A: 1})
		weights = append(weights, 1)
	}
	entries := makeEntries(colors, weights)
	palette := seedMedianCut(entries, 8)
	if len(palette) != 8 {
		t.Fatalf("got %d boxes, want 8", len(palette))
	}
}

func TestSeedMedianCutNeverExceedsDistinctColors(t *testing.T) {
	entries := makeEntries([]fpix{
		{R: 0, A: 1}, {R: 1, A: 1}, {G: 1, A: 1},
	}, []float32{5, 5, 5})
	palette := seedMedianCut(entries, 256)
	if len(palette) != 3 {
		t.Fatalf("got %d boxes, want 3 (one per distinct color)", len(palette))
	}
}

func TestSeedMedianCutPreservesTotalWeight(t *testing.T) {
	var colors []fpix
	var weights []float32
	total := float32(0)
	for i := 0; i < 40; i++ {
		v := float32(i) / 39
		colors = append(colors, fpix{R: v, G: v, B: v, A: 1})
		w := float32(i%5 + 1)
		weights = append(weights, w)
		total += w
	}
	entries := makeEntries(colors, weights)
	palette := seedMedianCut(entries, 6)
	var sum float32
	for _, p := range palette {
		sum += p.Popularity
	}
	if diff := sum - total; diff > 1e-3 || diff < -1e-3 {
		t.Fatalf("sum of box weights %v != total weight %v", sum, total)
	}
}
