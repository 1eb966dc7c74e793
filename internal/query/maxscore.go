package query

import (
	"container/heap"
	"fmt"

	"github.com/salvatore-campagna/indexcore/internal/common"
	"github.com/salvatore-campagna/indexcore/internal/doclen"
	"github.com/salvatore-campagna/indexcore/internal/segmentlist"
)

// msCursor decorates a cursor with its precomputed maximum possible
// contribution and its current position in the essential min-heap
// (MaxScore section).
type msCursor struct {
	*cursor
	maxContribution float64
	nonessential    bool
	heapIndex       int
}

type msHeap []*msCursor

func (h msHeap) Len() int           { return len(h) }
func (h msHeap) Less(i, j int) bool { return h[i].docID() < h[j].docID() }
func (h msHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}
func (h *msHeap) Push(x any) {
	c := x.(*msCursor)
	c.heapIndex = len(*h)
	*h = append(*h, c)
}
func (h *msHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	c.heapIndex = -1
	*h = old[:n-1]
	return c
}

// ExecuteMaxScore runs DAAT scoring with the MaxScore pruning
// heuristic: terms whose maximum possible contribution can
// no longer change the top-k outcome are demoted from the essential
// heap to a probe-only path.
func ExecuteMaxScore(terms []TermSpec, lists map[string]*segmentlist.List, n uint64, lengths *doclen.Table, opts Options) ([]ScoredExtent, error) {
	var cursors []*msCursor
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
		if !c.hasValue() {
			continue
		}
		cursors = append(cursors, &msCursor{cursor: c, maxContribution: MaxContribution(weight, opts.K1)})
	}

	// Elimination order: smallest maxContribution goes non-essential
	// first, since it is the least useful term to keep iterating.
	order := append([]*msCursor(nil), cursors...)
	for i := 0; i < len(order); i++ {
		min := i
		for j := i + 1; j < len(order); j++ {
			if order[j].maxContribution < order[min].maxContribution {
				min = j
			}
		}
		order[i], order[min] = order[min], order[i]
	}

	essential := msHeap(append([]*msCursor(nil), cursors...))
	heap.Init(&essential)

	var nonessential []*msCursor
	eliminatedSum := 0.0
	elimPtr := 0

	avgdl := lengths.AverageLength()
	topk := NewTopK(opts.Count)

	for essential.Len() > 0 {
		d := essential[0].docID()
		var active []*msCursor
		for essential.Len() > 0 && essential[0].docID() == d {
			active = append(active, heap.Pop(&essential).(*msCursor))
		}

		rec, err := lengths.At(d)
		if err != nil {
			return nil, fmt.Errorf("query: document length for doc %d: %w", d, err)
		}

		var score float64
		for _, c := range active {
			score += Score(c.tf(), rec.Len, avgdl, c.weight, opts.K1, opts.B)
		}

		if len(nonessential) > 0 {
			remainingMax := 0.0
			for _, nc := range nonessential {
				remainingMax += nc.maxContribution
			}
			worst := topk.Worst()
			if !topk.Full() || score+remainingMax > worst {
				for _, nc := range nonessential {
					v, ok, err := nc.list.FirstStartGE(uint64(d) << common.DocLevelShift)
					if err != nil {
						return nil, fmt.Errorf("query: probing %q for doc %d: %w", nc.term, d, err)
					}
					if ok && common.DocIDOf(v) == d {
						_, tf := common.UnpackDocLevel(v)
						score += Score(tf, rec.Len, avgdl, nc.weight, opts.K1, opts.B)
					}
				}
			}
		}

		topk.Insert(ScoredExtent{ContainerFrom: uint64(d), ContainerTo: uint64(d), Score: float32(score)})

		for _, c := range active {
			if err := c.advance(); err != nil {
				return nil, fmt.Errorf("query: advancing cursor for %q: %w", c.term, err)
			}
			if c.hasValue() {
				heap.Push(&essential, c)
			}
		}

		for elimPtr < len(order) {
			cand := order[elimPtr]
			if cand.nonessential {
				elimPtr++
				continue
			}
			if !topk.Full() {
				break
			}
			if topk.Worst() >= eliminatedSum+cand.maxContribution {
				cand.nonessential = true
				eliminatedSum += cand.maxContribution
				if cand.heapIndex >= 0 {
					heap.Remove(&essential, cand.heapIndex)
				}
				nonessential = append(nonessential, cand)
				elimPtr++
			} else {
				break
			}
		}
	}
	return topk.Results(), nil
}
