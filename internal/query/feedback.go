package query

import (
	"fmt"

	"github.com/salvatore-campagna/indexcore/internal/common"
	"github.com/salvatore-campagna/indexcore/internal/doclen"
	"github.com/salvatore-campagna/indexcore/internal/langmodel"
	"github.com/salvatore-campagna/indexcore/internal/segmentlist"
)

// FeedbackOptions configures the single-pass pseudo-relevance feedback
// hook.
type FeedbackOptions struct {
	// Method selects how expansion terms are scored: "kld" ranks by
	// KL-divergence of the relevant model from the collection model,
	// "okapi" by Robertson selection value.
	Method   string
	FBDocs   int
	FBTerms  int
	FBWeight float64
}

// RunWithFeedback executes a first DAAT pass, builds a language model
// from the top FBDocs results, expands the query with the FBTerms
// best-scoring expansion terms weighted at FBWeight, and reruns DAAT
// with the expanded term set. resolve, when non-nil, supplies posting
// lists for expansion terms absent from lists; without it expansion is
// limited to terms whose lists the caller already resolved.
func RunWithFeedback(terms []TermSpec, lists map[string]*segmentlist.List, n uint64, lengths *doclen.Table, opts Options, fb FeedbackOptions, collection *langmodel.Model, docTermFreqs func(docID uint32) map[string]uint64, resolve func(term string) (*segmentlist.List, error)) ([]ScoredExtent, error) {
	first, err := ExecuteDAAT(terms, lists, n, lengths, opts)
	if err != nil {
		return nil, fmt.Errorf("query: feedback first pass: %w", err)
	}

	fbDocs := fb.FBDocs
	if fbDocs > len(first) {
		fbDocs = len(first)
	}
	var docs []map[string]uint64
	for i := 0; i < fbDocs; i++ {
		docID := uint32(first[i].ContainerFrom)
		docs = append(docs, docTermFreqs(docID))
	}

	relevant := langmodel.RelevantModel(docs)
	if len(relevant) == 0 {
		return first, nil
	}
	var expansion []langmodel.ScoredTerm
	switch fb.Method {
	case "okapi":
		expansion = langmodel.OkapiTerms(collection, relevant, fb.FBTerms)
	default:
		expansion = langmodel.KLDTerms(collection, relevant, fb.FBTerms)
	}

	expanded := append([]TermSpec(nil), terms...)
	expandedLists := make(map[string]*segmentlist.List, len(lists))
	for term, list := range lists {
		expandedLists[term] = list
	}
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		seen[t.Term] = true
	}
	for _, e := range expansion {
		if seen[e.Term] {
			continue
		}
		stats, ok := collection.Terms[e.Term]
		if !ok {
			continue
		}
		if _, have := expandedLists[e.Term]; !have && resolve != nil {
			list, err := resolve(e.Term)
			if err != nil {
				return nil, fmt.Errorf("query: resolving feedback term %q: %w", e.Term, err)
			}
			if list != nil {
				expandedLists[e.Term] = list
			}
		}
		expanded = append(expanded, TermSpec{Term: e.Term, Weight: fb.FBWeight, DF: stats.DocumentFrequency})
	}

	return ExecuteDAAT(expanded, expandedLists, n, lengths, opts)
}

// DocTermFreqsFromPostings builds the per-term frequency map for one
// document by probing each resolved list; the feedback language model
// is built on demand from the top-m retrieved documents this way.
func DocTermFreqsFromPostings(docID uint32, lists map[string]*segmentlist.List) map[string]uint64 {
	out := make(map[string]uint64)
	for term, list := range lists {
		v, ok, err := list.FirstStartGE(uint64(docID) << common.DocLevelShift)
		if err != nil || !ok || common.DocIDOf(v) != docID {
			continue
		}
		_, tf := common.UnpackDocLevel(v)
		out[term] = uint64(tf)
	}
	return out
}
