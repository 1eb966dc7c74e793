package query

import (
	"fmt"
	"sort"

	"github.com/salvatore-campagna/indexcore/internal/doclen"
	"github.com/salvatore-campagna/indexcore/internal/segmentlist"
)

// AccumulatorOptions configures TAAT's bounded accumulator table.
type AccumulatorOptions struct {
	// Limit is the accumulator count at which adaptive pruning starts.
	// Past it, a new accumulator still opens for a posting whose tf
	// reaches the floor, so the table can grow beyond Limit. Zero means
	// no pruning.
	Limit int
}

// accumulators implements the adaptive-pruning accumulator table: once
// Limit is reached, a new accumulator is only opened for a posting
// whose tf meets the current floor, and the floor is raised further
// while the table stays saturated.
type accumulators struct {
	limit int
	score map[uint32]float64
	floor uint32
}

func newAccumulators(limit int) *accumulators {
	return &accumulators{limit: limit, score: make(map[uint32]float64)}
}

func (a *accumulators) add(docID uint32, tf uint32, contribution float64) {
	if _, ok := a.score[docID]; ok {
		a.score[docID] += contribution
		return
	}
	if a.limit > 0 && len(a.score) >= a.limit {
		if tf < a.floor {
			return
		}
		a.floor++
	}
	a.score[docID] = contribution
}

// ExecuteTAAT runs term-at-a-time BM25 scoring: terms are
// streamed in ascending document-frequency order into a shared
// accumulator table, then the table is drained into a top-k result.
func ExecuteTAAT(terms []TermSpec, lists map[string]*segmentlist.List, n uint64, lengths *doclen.Table, opts Options, accOpts AccumulatorOptions) ([]ScoredExtent, error) {
	ordered := append([]TermSpec(nil), terms...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].DF < ordered[j].DF })

	avgdl := lengths.AverageLength()
	acc := newAccumulators(accOpts.Limit)

	for _, t := range ordered {
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
		for c.hasValue() {
			d := c.docID()
			tf := c.tf()
			rec, err := lengths.At(d)
			if err != nil {
				return nil, fmt.Errorf("query: document length for doc %d: %w", d, err)
			}
			contribution := Score(tf, rec.Len, avgdl, weight, opts.K1, opts.B)
			acc.add(d, tf, contribution)
			if err := c.advance(); err != nil {
				return nil, fmt.Errorf("query: advancing cursor for %q: %w", t.Term, err)
			}
		}
	}

	docs := make([]uint32, 0, len(acc.score))
	for d := range acc.score {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i] < docs[j] })

	topk := NewTopK(opts.Count)
	for _, d := range docs {
		topk.Insert(ScoredExtent{ContainerFrom: uint64(d), ContainerTo: uint64(d), Score: float32(acc.score[d])})
	}
	return topk.Results(), nil
}
