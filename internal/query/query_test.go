package query

import (
	"path/filepath"
	"testing"

	"github.com/salvatore-campagna/indexcore/internal/codec"
	"github.com/salvatore-campagna/indexcore/internal/common"
	"github.com/salvatore-campagna/indexcore/internal/compactindex"
	"github.com/salvatore-campagna/indexcore/internal/doclen"
	"github.com/salvatore-campagna/indexcore/internal/langmodel"
	"github.com/salvatore-campagna/indexcore/internal/segmentlist"
)

type posting struct {
	doc uint32
	tf  uint32
}

func buildFixture(t *testing.T, termDocs map[string][]posting, docLengths []float64) (map[string]*segmentlist.List, *doclen.Table, uint64) {
	t.Helper()
	dir := t.TempDir()

	indexPath := filepath.Join(dir, "index.bin")
	w, err := compactindex.NewWriter(indexPath, codec.VByteCodec{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	var terms []string
	for term := range termDocs {
		terms = append(terms, term)
	}
	for i := 0; i < len(terms); i++ {
		for j := i + 1; j < len(terms); j++ {
			if terms[j] < terms[i] {
				terms[i], terms[j] = terms[j], terms[i]
			}
		}
	}
	for _, term := range terms {
		postings := make([]uint64, len(termDocs[term]))
		for i, p := range termDocs[term] {
			postings[i] = common.PackDocLevel(p.doc, p.tf)
		}
		if err := w.AddPostings(term, postings); err != nil {
			t.Fatalf("AddPostings(%q): %v", term, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := compactindex.Open(indexPath, compactindex.ReaderOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })

	lists := make(map[string]*segmentlist.List)
	for _, term := range terms {
		pl, err := r.GetPostings(term)
		if err != nil || pl == nil {
			t.Fatalf("GetPostings(%q): %v, %v", term, pl, err)
		}
		list, err := segmentlist.New(term, segmentlist.FromPostingList(pl))
		if err != nil {
			t.Fatalf("segmentlist.New(%q): %v", term, err)
		}
		lists[term] = list
	}

	doclenPath := filepath.Join(dir, "doclen.bin")
	dw, err := doclen.CreateWriter(doclenPath)
	if err != nil {
		t.Fatalf("CreateWriter: %v", err)
	}
	var start int64
	for _, length := range docLengths {
		if err := dw.Append(start, length); err != nil {
			t.Fatalf("Append: %v", err)
		}
		start += int64(length)
	}
	if err := dw.Close(); err != nil {
		t.Fatalf("doclen Close: %v", err)
	}
	dt, err := doclen.Open(doclenPath)
	if err != nil {
		t.Fatalf("doclen Open: %v", err)
	}
	t.Cleanup(func() { dt.Close() })

	return lists, dt, uint64(len(docLengths))
}

func TestExecuteDAATRanksExactMatchHighest(t *testing.T) {
	lists, lengths, n := buildFixture(t, map[string][]posting{
		"quick": {{0, 5}, {1, 1}, {2, 3}},
		"fox":   {{0, 4}, {2, 2}},
	}, []float64{50, 50, 50})

	terms := []TermSpec{
		{Term: "quick", Weight: 1, DF: 3},
		{Term: "fox", Weight: 1, DF: 2},
	}
	results, err := ExecuteDAAT(terms, lists, n, lengths, DefaultOptions(10))
	if err != nil {
		t.Fatalf("ExecuteDAAT: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].ContainerFrom != 0 {
		t.Errorf("top result = doc %d, want doc 0 (has both terms at high tf)", results[0].ContainerFrom)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted descending at index %d", i)
		}
	}
}

func TestExecuteTAATMatchesDAATTotals(t *testing.T) {
	lists, lengths, n := buildFixture(t, map[string][]posting{
		"alpha": {{0, 2}, {1, 6}},
		"beta":  {{1, 3}},
	}, []float64{20, 30})

	terms := []TermSpec{
		{Term: "alpha", Weight: 1, DF: 2},
		{Term: "beta", Weight: 1, DF: 1},
	}
	daat, err := ExecuteDAAT(terms, lists, n, lengths, DefaultOptions(10))
	if err != nil {
		t.Fatalf("ExecuteDAAT: %v", err)
	}
	taat, err := ExecuteTAAT(terms, lists, n, lengths, DefaultOptions(10), AccumulatorOptions{})
	if err != nil {
		t.Fatalf("ExecuteTAAT: %v", err)
	}
	sumScore := func(results []ScoredExtent) float32 {
		var total float32
		for _, r := range results {
			total += r.Score
		}
		return total
	}
	d, tt := sumScore(daat), sumScore(taat)
	if diff := d - tt; diff > 1e-4 || diff < -1e-4 {
		t.Errorf("DAAT total score %v != TAAT total score %v", d, tt)
	}
}

func TestExecuteConjunctiveRequiresAllTerms(t *testing.T) {
	lists, lengths, n := buildFixture(t, map[string][]posting{
		"alpha": {{0, 2}, {1, 6}, {2, 1}},
		"beta":  {{1, 3}, {2, 4}},
	}, []float64{20, 30, 25})

	terms := []TermSpec{
		{Term: "alpha", Weight: 1, DF: 3},
		{Term: "beta", Weight: 1, DF: 2},
	}
	results, err := ExecuteConjunctive(terms, lists, n, lengths, DefaultOptions(10))
	if err != nil {
		t.Fatalf("ExecuteConjunctive: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (docs 1 and 2 have both terms)", len(results))
	}
	for _, r := range results {
		if r.ContainerFrom == 0 {
			t.Errorf("doc 0 lacks 'beta' and should not match")
		}
	}
}

func TestExecuteMaxScoreAgreesWithDAAT(t *testing.T) {
	lists, lengths, n := buildFixture(t, map[string][]posting{
		"alpha": {{0, 2}, {1, 6}, {2, 1}, {3, 9}},
		"beta":  {{1, 3}, {2, 4}},
		"gamma": {{3, 5}},
	}, []float64{20, 30, 25, 40})

	terms := []TermSpec{
		{Term: "alpha", Weight: 1, DF: 4},
		{Term: "beta", Weight: 1, DF: 2},
		{Term: "gamma", Weight: 1, DF: 1},
	}
	daat, err := ExecuteDAAT(terms, lists, n, lengths, DefaultOptions(2))
	if err != nil {
		t.Fatalf("ExecuteDAAT: %v", err)
	}
	ms, err := ExecuteMaxScore(terms, lists, n, lengths, DefaultOptions(2))
	if err != nil {
		t.Fatalf("ExecuteMaxScore: %v", err)
	}
	if len(daat) != len(ms) {
		t.Fatalf("DAAT returned %d results, MaxScore returned %d", len(daat), len(ms))
	}
	docSet := func(results []ScoredExtent) map[uint64]float32 {
		m := make(map[uint64]float32)
		for _, r := range results {
			m[r.ContainerFrom] = r.Score
		}
		return m
	}
	dset, mset := docSet(daat), docSet(ms)
	for doc, score := range dset {
		other, ok := mset[doc]
		if !ok {
			t.Fatalf("MaxScore missing doc %d present in DAAT top-k", doc)
		}
		if diff := score - other; diff > 1e-4 || diff < -1e-4 {
			t.Errorf("doc %d: DAAT score %v != MaxScore score %v", doc, score, other)
		}
	}
}

func TestPruneIndexKeepsHighestImpactPostings(t *testing.T) {
	dir := t.TempDir()
	lists, lengths, _ := buildFixture(t, map[string][]posting{
		"alpha": {{0, 1}, {1, 50}, {2, 2}, {3, 1}},
	}, []float64{20, 20, 20, 20})
	_ = lists

	// Rebuild a standalone reader over the same postings for PruneIndex,
	// which takes a *compactindex.Reader rather than a lists map.
	srcPath := filepath.Join(dir, "src.bin")
	w, err := compactindex.NewWriter(srcPath, codec.VByteCodec{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.AddPostings("alpha", []uint64{
		common.PackDocLevel(0, 1),
		common.PackDocLevel(1, 50),
		common.PackDocLevel(2, 2),
		common.PackDocLevel(3, 1),
	}); err != nil {
		t.Fatalf("AddPostings: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	src, err := compactindex.Open(srcPath, compactindex.ReaderOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	outPath := filepath.Join(dir, "pruned.bin")
	out, err := compactindex.NewWriter(outPath, codec.VByteCodec{})
	if err != nil {
		t.Fatalf("NewWriter pruned: %v", err)
	}
	opts := PruneOptions{K1: 1.2, B: 0.75, Keep: 2, Epsilon: 0}
	if err := PruneIndex(src, []string{"alpha"}, lengths, out, opts); err != nil {
		t.Fatalf("PruneIndex: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close pruned: %v", err)
	}

	pr, err := compactindex.Open(outPath, compactindex.ReaderOptions{})
	if err != nil {
		t.Fatalf("Open pruned: %v", err)
	}
	defer pr.Close()

	pl, err := pr.GetPostings("alpha")
	if err != nil || pl == nil {
		t.Fatalf("GetPostings: %v, %v", pl, err)
	}
	got, err := pl.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("pruned list is empty")
	}
	last := got[len(got)-1]
	if last < common.DocumentCountOffset {
		t.Errorf("last posting %d does not encode the document-frequency sentinel", last)
	}
	if last-common.DocumentCountOffset != 4 {
		t.Errorf("encoded df = %d, want 4", last-common.DocumentCountOffset)
	}
}

func TestRunWithFeedbackExpandsQuery(t *testing.T) {
	lists, lengths, n := buildFixture(t, map[string][]posting{
		"alpha": {{0, 8}, {1, 1}},
		"beta":  {{0, 6}},
	}, []float64{30, 30, 25})

	collection := langmodel.NewModel()
	collection.AddTerm("alpha", 9, 2)
	collection.AddTerm("beta", 6, 1)
	collection.CollectionSize = 15
	collection.DocumentCount = 3

	terms := []TermSpec{{Term: "alpha", Weight: 1, DF: 2}}
	docTermFreqs := func(docID uint32) map[string]uint64 {
		return DocTermFreqsFromPostings(docID, lists)
	}
	fb := FeedbackOptions{Method: "kld", FBDocs: 2, FBTerms: 5, FBWeight: 0.3}
	results, err := RunWithFeedback(terms, lists, n, lengths, DefaultOptions(10), fb, collection, docTermFreqs, nil)
	if err != nil {
		t.Fatalf("RunWithFeedback: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
}

func TestRunWithFeedbackResolvesExpansionLists(t *testing.T) {
	lists, lengths, n := buildFixture(t, map[string][]posting{
		"alpha": {{0, 8}, {1, 1}},
		"beta":  {{0, 6}, {1, 4}},
	}, []float64{30, 30, 25})

	collection := langmodel.NewModel()
	collection.AddTerm("alpha", 9, 2)
	collection.AddTerm("beta", 10, 2)
	collection.CollectionSize = 19
	collection.DocumentCount = 3

	// The caller only resolved "alpha"; "beta" must arrive through the
	// resolver when feedback expands the query with it.
	alphaOnly := map[string]*segmentlist.List{"alpha": lists["alpha"]}
	resolved := false
	resolve := func(term string) (*segmentlist.List, error) {
		if term != "beta" {
			return nil, nil
		}
		resolved = true
		return lists["beta"], nil
	}
	terms := []TermSpec{{Term: "alpha", Weight: 1, DF: 2}}
	fb := FeedbackOptions{Method: "okapi", FBDocs: 2, FBTerms: 5, FBWeight: 0.3}
	results, err := RunWithFeedback(terms, alphaOnly, n, lengths, DefaultOptions(10), fb, collection,
		func(docID uint32) map[string]uint64 { return DocTermFreqsFromPostings(docID, lists) }, resolve)
	if err != nil {
		t.Fatalf("RunWithFeedback: %v", err)
	}
	if !resolved {
		t.Error("resolver was never asked for the expansion term")
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
}
