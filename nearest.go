package quant8

import (
	"math"
	"math/rand"
)

// vpNode is one node of a vantage-point tree: a chosen palette index plus a
// distance threshold that separates entries closer than it (inner) from
// entries farther (outer). threshold is a plain (non-squared) distance so
// triangle-inequality pruning during search stays valid.
type vpNode struct {
	index     int // index into NearestIndex.colors / the palette this tree was built from
	threshold float32
	inner     *vpNode
	outer     *vpNode
}

// NearestIndex answers exact nearest-neighbor queries against a fixed set
// of palette colors using a vantage-point tree. Build is O(k log k); query
// is O(log k) average, O(k) worst case.
type NearestIndex struct {
	colors []fpix
	root   *vpNode
}

// BuildNearestIndex constructs a NearestIndex over entries' colors. The
// returned index's point indices correspond to entries' positions.
func BuildNearestIndex(entries []PalEntry) *NearestIndex {
	colors := make([]fpix, len(entries))
	idx := make([]int, len(entries))
	for i, e := range entries {
		colors[i] = e.Color
		idx[i] = i
	}
	n := &NearestIndex{colors: colors}
	rng := rand.New(rand.NewSource(0x5151_1973))
	n.root = buildVPNode(colors, idx, rng)
	return n
}

func buildVPNode(colors []fpix, idx []int, rng *rand.Rand) *vpNode {
	if len(idx) == 0 {
		return nil
	}
	if len(idx) == 1 {
		return &vpNode{index: idx[0]}
	}

	pivotPos := rng.Intn(len(idx))
	idx[0], idx[pivotPos] = idx[pivotPos], idx[0]
	vp := idx[0]
	rest := idx[1:]

	dists := make([]float32, len(rest))
	for i, p := range rest {
		dists[i] = float32(math.Sqrt(float64(d2(colors[vp], colors[p]))))
	}

	median := selectMedian(rest, dists)

	var innerIdx, outerIdx []int
	for i, p := range rest {
		if dists[i] <= median {
			innerIdx = append(innerIdx, p)
		} else {
			outerIdx = append(outerIdx, p)
		}
	}
	// Degenerate case: every remaining point tied at the median distance
	// would otherwise all land on one side forever.
	if len(innerIdx) == 0 || len(outerIdx) == 0 {
		half := len(rest) / 2
		innerIdx = append([]int(nil), rest[:half]...)
		outerIdx = append([]int(nil), rest[half:]...)
	}

	return &vpNode{
		index:     vp,
		threshold: median,
		inner:     buildVPNode(colors, innerIdx, rng),
		outer:     buildVPNode(colors, outerIdx, rng),
	}
}

// selectMedian returns the median of dists, reordering both idx and dists
// in the process (a partial quickselect; exactness doesn't matter for tree
// balance, only a reasonably even split).
func selectMedian(idx []int, dists []float32) float32 {
	n := len(dists)
	k := n / 2
	lo, hi := 0, n-1
	for lo < hi {
		pivot := dists[hi]
		store := lo
		for i := lo; i < hi; i++ {
			if dists[i] < pivot {
				dists[i], dists[store] = dists[store], dists[i]
				idx[i], idx[store] = idx[store], idx[i]
				store++
			}
		}
		dists[store], dists[hi] = dists[hi], dists[store]
		idx[store], idx[hi] = idx[hi], idx[store]
		if store == k {
			break
		} else if store < k {
			lo = store + 1
		} else {
			hi = store - 1
		}
	}
	return dists[k]
}

// Nearest returns the index (into the entries slice BuildNearestIndex was
// called with) and squared distance of the closest color to target. If
// skip >= 0, that index is excluded from consideration.
func (n *NearestIndex) Nearest(target fpix, skip int) (int, float32) {
	bestIdx := -1
	bestSq := float32(math.MaxFloat32)
	bestDist := float32(math.MaxFloat32) // sqrt(bestSq), kept alongside for pruning
	var visit func(node *vpNode)
	visit = func(node *vpNode) {
		if node == nil {
			return
		}
		sq := d2(target, n.colors[node.index])
		if node.index != skip && sq < bestSq {
			bestSq = sq
			bestDist = float32(math.Sqrt(float64(sq)))
			bestIdx = node.index
		}
		if node.inner == nil && node.outer == nil {
			return
		}
		if sq <= node.threshold*node.threshold {
			visit(node.inner)
			if bestIdx == -1 || float32(math.Sqrt(float64(sq)))+bestDist >= node.threshold {
				visit(node.outer)
			}
		} else {
			visit(node.outer)
			if bestIdx == -1 || float32(math.Sqrt(float64(sq)))-bestDist <= node.threshold {
				visit(node.inner)
			}
		}
	}
	visit(n.root)
	return bestIdx, bestSq
}
