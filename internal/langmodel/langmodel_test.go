package langmodel

import "testing"

func TestKLDTermsRanksDivergentTermsHighest(t *testing.T) {
	m := NewModel()
	m.AddTerm("common", 10000, 900)
	m.AddTerm("rare", 50, 10)
	m.AddTerm("unseen", 5, 2)

	relevant := RelevantModel([]map[string]uint64{
		{"common": 2, "rare": 8},
		{"common": 1, "rare": 6},
	})

	scored := KLDTerms(m, relevant, 2)
	if len(scored) != 2 {
		t.Fatalf("expected 2 scored terms, got %d", len(scored))
	}
	if scored[0].Term != "rare" {
		t.Errorf("top term = %q, want %q (rarer in collection, frequent in feedback set)", scored[0].Term, "rare")
	}
	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[i-1].Score {
			t.Errorf("scores not descending at %d: %f then %f", i, scored[i-1].Score, scored[i].Score)
		}
	}
}

func TestKLDTermsEmptyRelevantSet(t *testing.T) {
	m := NewModel()
	m.AddTerm("a", 10, 5)
	if got := KLDTerms(m, map[string]uint64{}, 5); got != nil {
		t.Errorf("KLDTerms with empty relevant set = %v, want nil", got)
	}
}

func TestOkapiTermsWeightsByIdf(t *testing.T) {
	m := NewModel()
	m.AddTerm("rare", 5, 1)
	m.AddTerm("common", 500, 90)
	m.DocumentCount = 100

	relevant := map[string]uint64{"rare": 3, "common": 3}
	scored := OkapiTerms(m, relevant, 0)
	if len(scored) != 2 {
		t.Fatalf("got %d scored terms, want 2", len(scored))
	}
	if scored[0].Term != "rare" {
		t.Errorf("top term = %q, want the low-df term to win at equal counts", scored[0].Term)
	}
}

func TestOkapiTermsSkipsDegenerateDF(t *testing.T) {
	m := NewModel()
	m.AddTerm("everywhere", 1000, 10)
	m.AddTerm("unseen", 0, 0)
	m.DocumentCount = 10

	scored := OkapiTerms(m, map[string]uint64{"everywhere": 5, "unseen": 5, "unknown": 2}, 0)
	if len(scored) != 0 {
		t.Errorf("df=N, df=0 and unknown terms should all be skipped, got %v", scored)
	}
}
