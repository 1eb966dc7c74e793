package query

import "testing"

func TestTopKBreaksTiesByAscendingDocID(t *testing.T) {
	topk := NewTopK(4)
	for _, se := range []ScoredExtent{
		{ContainerFrom: 1, Score: 5},
		{ContainerFrom: 2, Score: 9},
		{ContainerFrom: 3, Score: 5},
		{ContainerFrom: 4, Score: 5},
	} {
		topk.Insert(se)
	}
	results := topk.Results()
	want := []uint64{2, 1, 3, 4}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, doc := range want {
		if results[i].ContainerFrom != doc {
			t.Errorf("result %d = doc %d, want doc %d", i, results[i].ContainerFrom, doc)
		}
	}
}

// TestTopKTieBreakSurvivesEviction checks that when two tied-score
// entries share a capacity-bound heap and a higher-scoring entry
// arrives, eviction deterministically removes the higher-docID member
// of the tied pair rather than an arbitrary one.
func TestTopKTieBreakSurvivesEviction(t *testing.T) {
	topk := NewTopK(2)
	topk.Insert(ScoredExtent{ContainerFrom: 5, Score: 3})
	topk.Insert(ScoredExtent{ContainerFrom: 1, Score: 3})
	topk.Insert(ScoredExtent{ContainerFrom: 9, Score: 10})
	results := topk.Results()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ContainerFrom != 9 {
		t.Errorf("top result = doc %d, want doc 9", results[0].ContainerFrom)
	}
	if results[1].ContainerFrom != 1 {
		t.Errorf("second result = doc %d, want doc 1 (doc 5 is evicted as the worst of the tied pair)", results[1].ContainerFrom)
	}
}
