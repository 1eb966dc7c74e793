package query

import (
	"container/heap"
	"fmt"

	"github.com/salvatore-campagna/indexcore/internal/doclen"
	"github.com/salvatore-campagna/indexcore/internal/segmentlist"
)

// Options carries the BM25 parameters and result slicing shared by
// every execution strategy.
type Options struct {
	K1, B float64
	Count int
}

// DefaultOptions returns the standard BM25 defaults (k1=1.2, b=0.75).
func DefaultOptions(count int) Options {
	return Options{K1: 1.2, B: 0.75, Count: count}
}

type cursorHeap []*cursor

func (h cursorHeap) Len() int           { return len(h) }
func (h cursorHeap) Less(i, j int) bool { return h[i].docID() < h[j].docID() }
func (h cursorHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)        { *h = append(*h, x.(*cursor)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func buildCursors(terms []TermSpec, lists map[string]*segmentlist.List, n uint64) ([]*cursor, error) {
	var cursors []*cursor
	for _, t := range terms {
		weight := InternalWeight(n, t.DF, t.Weight)
		if weight == 0 {
			continue
		}
		list, ok := lists[t.Term]
		if !ok {
			continue
		}
		c, err := newCursor(TermSpec{Term: t.Term, Weight: weight, DF: t.DF}, list)
		if err != nil {
			return nil, fmt.Errorf("query: opening cursor for %q: %w", t.Term, err)
		}
		if c.hasValue() {
			cursors = append(cursors, c)
		}
	}
	return cursors, nil
}

// ExecuteDAAT runs document-at-a-time BM25 scoring, the default
// execution strategy: a min-heap of cursors keyed on the current
// document id, summing contributions from every cursor positioned on
// that document before advancing them.
func ExecuteDAAT(terms []TermSpec, lists map[string]*segmentlist.List, n uint64, lengths *doclen.Table, opts Options) ([]ScoredExtent, error) {
	cursors, err := buildCursors(terms, lists, n)
	if err != nil {
		return nil, err
	}
	h := cursorHeap(cursors)
	heap.Init(&h)

	topk := NewTopK(opts.Count)
	avgdl := lengths.AverageLength()

	for h.Len() > 0 {
		d := h[0].docID()
		var active []*cursor
		for h.Len() > 0 && h[0].docID() == d {
			active = append(active, heap.Pop(&h).(*cursor))
		}

		rec, err := lengths.At(d)
		if err != nil {
			return nil, fmt.Errorf("query: document length for doc %d: %w", d, err)
		}

		var score float64
		for _, c := range active {
			score += Score(c.tf(), rec.Len, avgdl, c.weight, opts.K1, opts.B)
		}
		topk.Insert(ScoredExtent{ContainerFrom: uint64(d), ContainerTo: uint64(d), Score: float32(score)})

		for _, c := range active {
			if err := c.advance(); err != nil {
				return nil, fmt.Errorf("query: advancing cursor for %q: %w", c.term, err)
			}
			if c.hasValue() {
				heap.Push(&h, c)
			}
		}
	}
	return topk.Results(), nil
}
