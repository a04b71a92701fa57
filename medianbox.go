package quant8

import (
	"container/heap"
	"sort"
)

// medianBox is a contiguous range [lo,hi) over a (locally reordered) slice
// of HistItems, plus cached statistics so splitting doesn't need to rescan
// the whole range every time a box is considered.
type medianBox struct {
	lo, hi   int
	weight   float64
	sum      fpix // weight-scaled sum of colors
	sumSq    fpix // weight-scaled sum of squared colors, per channel
	variance fpix
	dominant int // 0=R,1=G,2=B,3=A: channel with largest weighted variance
	priority float64
}

func channelOf(c fpix, ch int) float32 {
	switch ch {
	case 0:
		return c.R
	case 1:
		return c.G
	case 2:
		return c.B
	default:
		return c.A
	}
}

func setChannel(c *fpix, ch int, v float32) {
	switch ch {
	case 0:
		c.R = v
	case 1:
		c.G = v
	case 2:
		c.B = v
	default:
		c.A = v
	}
}

func computeBoxStats(entries []HistItem, lo, hi int) *medianBox {
	b := &medianBox{lo: lo, hi: hi}
	var weight float64
	var sum, sumSq fpix
	for i := lo; i < hi; i++ {
		w := float64(entries[i].Weight)
		weight += w
		c := entries[i].Color
		sum.R += float32(w) * c.R
		sum.G += float32(w) * c.G
		sum.B += float32(w) * c.B
		sum.A += float32(w) * c.A
		sumSq.R += float32(w) * c.R * c.R
		sumSq.G += float32(w) * c.G * c.G
		sumSq.B += float32(w) * c.B * c.B
		sumSq.A += float32(w) * c.A * c.A
	}
	b.weight = weight
	b.sum = sum
	b.sumSq = sumSq
	if weight > 0 {
		meanR := sum.R / float32(weight)
		meanG := sum.G / float32(weight)
		meanB := sum.B / float32(weight)
		meanA := sum.A / float32(weight)
		b.variance = fpix{
			R: sumSq.R/float32(weight) - meanR*meanR,
			G: sumSq.G/float32(weight) - meanG*meanG,
			B: sumSq.B/float32(weight) - meanB*meanB,
			A: sumSq.A/float32(weight) - meanA*meanA,
		}
	}
	maxVar := b.variance.R
	b.dominant = 0
	if b.variance.G > maxVar {
		maxVar = b.variance.G
		b.dominant = 1
	}
	if b.variance.B > maxVar {
		maxVar = b.variance.B
		b.dominant = 2
	}
	if b.variance.A > maxVar {
		maxVar = b.variance.A
		b.dominant = 3
	}
	b.priority = float64(maxVar) * weight
	return b
}

func (b *medianBox) mean() fpix {
	if b.weight == 0 {
		return fpix{}
	}
	return fpix{
		R: b.sum.R / float32(b.weight),
		G: b.sum.G / float32(b.weight),
		B: b.sum.B / float32(b.weight),
		A: b.sum.A / float32(b.weight),
	}
}

// boxQueue is a max-heap on priority (variance*weight), ties broken by
// larger total weight then lower starting index.
type boxQueue []*medianBox

func (q boxQueue) Len() int { return len(q) }
func (q boxQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	if q[i].weight != q[j].weight {
		return q[i].weight > q[j].weight
	}
	return q[i].lo < q[j].lo
}
func (q boxQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *boxQueue) Push(x interface{}) { *q = append(*q, x.(*medianBox)) }
func (q *boxQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// splitBox partitions entries[box.lo:box.hi] along the box's dominant
// channel at the weighted median, falling back to a plain bisection when
// the weighted split would leave one side empty.
func splitBox(entries []HistItem, box *medianBox) (*medianBox, *medianBox) {
	ch := box.dominant
	sort.Slice(entries[box.lo:box.hi], func(i, j int) bool {
		return channelOf(entries[box.lo+i].Color, ch) < channelOf(entries[box.lo+j].Color, ch)
	})

	half := box.weight / 2
	var acc float64
	split := box.lo
	for i := box.lo; i < box.hi; i++ {
		acc += float64(entries[i].Weight)
		if acc >= half {
			split = i + 1
			break
		}
	}
	if split <= box.lo || split >= box.hi {
		split = (box.lo + box.hi) / 2
	}
	left := computeBoxStats(entries, box.lo, split)
	right := computeBoxStats(entries, split, box.hi)
	return left, right
}

// seedMedianCut partitions entries into at most numBoxes boxes by repeated
// weighted-variance splitting, and returns one PalEntry per box (the
// weight-weighted mean color, with popularity set to the box's total
// weight). entries is reordered in place; callers that need to preserve the
// original order should pass a copy.
func seedMedianCut(entries []HistItem, numBoxes int) []PalEntry {
	if len(entries) == 0 || numBoxes <= 0 {
		return nil
	}
	if numBoxes > len(entries) {
		numBoxes = len(entries)
	}

	q := &boxQueue{computeBoxStats(entries, 0, len(entries))}
	heap.Init(q)
	var unsplittable []*medianBox

	for q.Len() > 0 && q.Len()+len(unsplittable) < numBoxes {
		box := heap.Pop(q).(*medianBox)
		if box.hi-box.lo < 2 || box.priority <= 0 {
			unsplittable = append(unsplittable, box)
			continue
		}
		left, right := splitBox(entries, box)
		heap.Push(q, left)
		heap.Push(q, right)
	}

	all := unsplittable
	for q.Len() > 0 {
		all = append(all, heap.Pop(q).(*medianBox))
	}

	palette := make([]PalEntry, 0, len(all))
	for _, box := range all {
		palette = append(palette, PalEntry{
			Color:      box.mean(),
			Popularity: float32(box.weight),
		})
	}
	return palette
}
