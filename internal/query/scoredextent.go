// Package query implements the BM25 query executor: DAAT
// (default), TAAT, conjunctive and MaxScore-pruned execution strategies
// over segmentlist.List posting cursors, a top-k scored-extent heap,
// the impact-ordered pruned-index variant and the KLD feedback hook.
package query

import (
	"container/heap"
	"math"
	"sort"
)

// ScoredExtent is one ranked result: the matching region plus the
// document that contains it and its score.
type ScoredExtent struct {
	From, To                   uint64
	ContainerFrom, ContainerTo uint64
	Score                      float32
	Additional                 uint32
}

type scoredHeap []ScoredExtent

// Less breaks ties by descending document id, so that among equal
// scores a higher docID is considered "worse" and evicted first,
// leaving the lowest-docID member of a tied group in the surviving set.
func (h scoredHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].ContainerFrom > h[j].ContainerFrom
}
func (h scoredHeap) Len() int      { return len(h) }
func (h scoredHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x any)   { *h = append(*h, x.(ScoredExtent)) }
func (h *scoredHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// TopK is a bounded min-heap of ScoredExtent: once full, an
// incoming extent is kept only if it beats the current worst score.
type TopK struct {
	capacity int
	h        scoredHeap
}

// NewTopK creates a top-k heap that keeps at most capacity results.
func NewTopK(capacity int) *TopK {
	return &TopK{capacity: capacity}
}

// Insert offers se to the heap, discarding it if the heap is already
// full of better-scoring results.
func (t *TopK) Insert(se ScoredExtent) {
	if t.capacity <= 0 {
		return
	}
	if len(t.h) < t.capacity {
		heap.Push(&t.h, se)
		return
	}
	if len(t.h) > 0 && se.Score > t.h[0].Score {
		t.h[0] = se
		heap.Fix(&t.h, 0)
	}
}

// Full reports whether the heap already holds capacity results.
func (t *TopK) Full() bool { return len(t.h) >= t.capacity && t.capacity > 0 }

// Worst returns the lowest score currently held, or -inf if empty.
func (t *TopK) Worst() float64 {
	if len(t.h) == 0 {
		return math.Inf(-1)
	}
	return float64(t.h[0].Score)
}

// Results drains the heap, returning extents sorted by descending
// score, ties broken by ascending document id.
func (t *TopK) Results() []ScoredExtent {
	out := make([]ScoredExtent, len(t.h))
	copy(out, t.h)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ContainerFrom < out[j].ContainerFrom
	})
	return out
}
