package query

import (
	"fmt"
	"sort"

	"github.com/salvatore-campagna/indexcore/internal/common"
	"github.com/salvatore-campagna/indexcore/internal/doclen"
	"github.com/salvatore-campagna/indexcore/internal/segmentlist"
)

// ExecuteConjunctive runs AND-semantics BM25 scoring:
// terms sorted by ascending df, the shortest list drives a pivot walk
// and every other term is probed for the same document via
// first_start_≥.
func ExecuteConjunctive(terms []TermSpec, lists map[string]*segmentlist.List, n uint64, lengths *doclen.Table, opts Options) ([]ScoredExtent, error) {
	type probeTerm struct {
		spec   TermSpec
		weight float64
		list   *segmentlist.List
	}

	var probes []probeTerm
	for _, t := range terms {
		list, ok := lists[t.Term]
		if !ok || t.DF == 0 {
			return nil, nil // a required term absent from the index matches nothing
		}
		// A term found in every document still has to match; its zero
		// weight only means it adds nothing to the score.
		weight := InternalWeight(n, t.DF, t.Weight)
		probes = append(probes, probeTerm{spec: t, weight: weight, list: list})
	}
	if len(probes) == 0 {
		return nil, nil
	}
	sort.Slice(probes, func(i, j int) bool { return probes[i].spec.DF < probes[j].spec.DF })

	pivot := probes[0]
	rest := probes[1:]

	pivotCursor, err := newCursor(TermSpec{Term: pivot.spec.Term, Weight: pivot.weight}, pivot.list)
	if err != nil {
		return nil, fmt.Errorf("query: opening pivot cursor for %q: %w", pivot.spec.Term, err)
	}

	avgdl := lengths.AverageLength()
	topk := NewTopK(opts.Count)

	for pivotCursor.hasValue() {
		d := pivotCursor.docID()
		rec, err := lengths.At(d)
		if err != nil {
			return nil, fmt.Errorf("query: document length for doc %d: %w", d, err)
		}

		score := Score(pivotCursor.tf(), rec.Len, avgdl, pivot.weight, opts.K1, opts.B)
		matched := true
		for _, p := range rest {
			v, ok, err := p.list.FirstStartGE(uint64(d) << common.DocLevelShift)
			if err != nil {
				return nil, fmt.Errorf("query: probing %q for doc %d: %w", p.spec.Term, d, err)
			}
			if !ok || common.DocIDOf(v) != d {
				matched = false
				break
			}
			_, tf := common.UnpackDocLevel(v)
			score += Score(tf, rec.Len, avgdl, p.weight, opts.K1, opts.B)
		}

		if matched {
			topk.Insert(ScoredExtent{ContainerFrom: uint64(d), ContainerTo: uint64(d), Score: float32(score)})
		}
		if err := pivotCursor.advance(); err != nil {
			return nil, fmt.Errorf("query: advancing pivot cursor: %w", err)
		}
	}
	return topk.Results(), nil
}
