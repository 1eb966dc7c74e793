// Package langmodel implements the feedback language model used by
// BM25's single-pass relevance feedback: collection term
// statistics plus KLD-based term selection for expanding a query from a
// first-pass result set.
package langmodel

import (
	"math"
	"sort"
)

// TermStats holds whole-collection statistics for one term: how many
// times it occurs in total, and in how many documents.
type TermStats struct {
	CollectionFrequency uint64
	DocumentFrequency   uint64
}

// Model is the collection-wide language model: term -> stats, plus the
// total collection size used to normalise probabilities.
type Model struct {
	Terms          map[string]TermStats
	CollectionSize uint64 // sum of every term's collection frequency
	DocumentCount  uint64
}

// NewModel creates an empty collection model.
func NewModel() *Model {
	return &Model{Terms: make(map[string]TermStats)}
}

// AddTerm records one term's collection-wide statistics. Called once
// per distinct term while building the model from an index (e.g. by
// walking compactindex trailers/term records).
func (m *Model) AddTerm(term string, collectionFreq, docFreq uint64) {
	m.Terms[term] = TermStats{CollectionFrequency: collectionFreq, DocumentFrequency: docFreq}
	m.CollectionSize += collectionFreq
}

// probability returns P(term | collection), Laplace-smoothed so unseen
// terms don't produce a zero denominator in the KLD ratio.
func (m *Model) probability(term string) float64 {
	if m.CollectionSize == 0 {
		return 0
	}
	stats := m.Terms[term]
	return (float64(stats.CollectionFrequency) + 1) / (float64(m.CollectionSize) + float64(len(m.Terms)))
}

// RelevantModel builds a term-frequency model from a small set of
// feedback documents, each given as its term -> occurrence-count map
// (the "relevant" side of the KLD comparison).
func RelevantModel(docs []map[string]uint64) map[string]uint64 {
	freq := make(map[string]uint64)
	for _, doc := range docs {
		for term, n := range doc {
			freq[term] += n
		}
	}
	return freq
}

// ScoredTerm pairs a candidate expansion term with its KLD weight.
type ScoredTerm struct {
	Term  string
	Score float64
}

// KLDTerms ranks candidate expansion terms by KL-divergence of the
// relevant-document model from the collection model, returning the top
// n terms sorted by descending score.
func KLDTerms(m *Model, relevant map[string]uint64, n int) []ScoredTerm {
	var relevantTotal uint64
	for _, c := range relevant {
		relevantTotal += c
	}
	if relevantTotal == 0 {
		return nil
	}

	scored := make([]ScoredTerm, 0, len(relevant))
	for term, c := range relevant {
		pRelevant := float64(c) / float64(relevantTotal)
		pCollection := m.probability(term)
		if pCollection <= 0 {
			continue
		}
		// KLD contribution of this term: p_R(t) * log(p_R(t) / p_C(t)).
		score := pRelevant * math.Log(pRelevant/pCollection)
		scored = append(scored, ScoredTerm{Term: term, Score: score})
	}

	return topScored(scored, n)
}

// OkapiTerms ranks candidate expansion terms by Robertson selection
// value: occurrences in the relevant documents weighted by collection
// idf, the selection rule of the classic Okapi feedback loop.
func OkapiTerms(m *Model, relevant map[string]uint64, n int) []ScoredTerm {
	if m.DocumentCount == 0 {
		return nil
	}
	scored := make([]ScoredTerm, 0, len(relevant))
	for term, c := range relevant {
		stats, ok := m.Terms[term]
		if !ok || stats.DocumentFrequency == 0 || stats.DocumentFrequency >= m.DocumentCount {
			continue
		}
		idf := math.Log(float64(m.DocumentCount) / float64(stats.DocumentFrequency))
		scored = append(scored, ScoredTerm{Term: term, Score: float64(c) * idf})
	}
	return topScored(scored, n)
}

func topScored(scored []ScoredTerm, n int) []ScoredTerm {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Term < scored[j].Term
	})
	if n > 0 && len(scored) > n {
		scored = scored[:n]
	}
	return scored
}
