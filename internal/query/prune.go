package query

import (
	"fmt"
	"sort"

	"github.com/salvatore-campagna/indexcore/internal/codec"
	"github.com/salvatore-campagna/indexcore/internal/common"
	"github.com/salvatore-campagna/indexcore/internal/compactindex"
	"github.com/salvatore-campagna/indexcore/internal/doclen"
	"github.com/salvatore-campagna/indexcore/internal/segmentlist"
)

// PruneOptions configures impact-ordered pruning.
type PruneOptions struct {
	K1, B float64
	// Keep bounds how many postings survive per term.
	Keep int
	// Epsilon widens the kept set to anything scoring within this
	// factor of the k-th best impact.
	Epsilon float64
}

// PruneIndex builds the impact-ordered pruned variant of src: for each
// term, postings are ranked by BM25 impact against a fixed idf weight
// of 1 (the caller rescales at query time via its own weight), the top
// Keep (plus anything within Epsilon of the k-th) are retained and
// re-sorted by position, and a sentinel posting encoding the term's
// true document frequency is appended so query execution can still
// compute idf correctly.
func PruneIndex(src *compactindex.Reader, terms []string, lengths *doclen.Table, w *compactindex.Writer, opts PruneOptions) error {
	avgdl := lengths.AverageLength()
	sortedTerms := append([]string(nil), terms...)
	sort.Strings(sortedTerms)

	for _, term := range sortedTerms {
		pl, err := src.GetPostings(term)
		if err != nil {
			return fmt.Errorf("query: prune: reading %q: %w", term, err)
		}
		if pl == nil {
			continue
		}
		postings, err := pl.Decode()
		if err != nil {
			return fmt.Errorf("query: prune: decoding %q: %w", term, err)
		}
		df := uint64(len(postings))

		type impact struct {
			posting uint64
			score   float64
		}
		scored := make([]impact, len(postings))
		for i, p := range postings {
			docID, tf := common.UnpackDocLevel(p)
			rec, err := lengths.At(docID)
			if err != nil {
				return fmt.Errorf("query: prune: doc length for %d: %w", docID, err)
			}
			scored[i] = impact{posting: p, score: Score(tf, rec.Len, avgdl, 1.0, opts.K1, opts.B)}
		}
		sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

		keep := opts.Keep
		if keep <= 0 || keep > len(scored) {
			keep = len(scored)
		}
		threshold := 0.0
		if keep > 0 {
			threshold = scored[keep-1].score * (1 - opts.Epsilon)
		}
		var kept []uint64
		for _, s := range scored {
			if s.score >= threshold {
				kept = append(kept, s.posting)
			}
		}
		sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })

		if len(kept) > 0 {
			kept = append(kept, common.DocumentCountOffset+df)
		}
		if err := w.AddPostings(term, kept); err != nil {
			return fmt.Errorf("query: prune: writing %q: %w", term, err)
		}
	}
	return nil
}

// DefaultPruneCodec is the compressor used for re-encoded pruned
// segments.
func DefaultPruneCodec() codec.Codec {
	return codec.BestCodec{Candidates: codec.DefaultBestCandidates()}
}

// PrunedDocumentFrequency recovers the original collection df of a
// pruned term from its trailing metadata posting. ok is false when the
// list carries no sentinel (it was not produced by PruneIndex).
func PrunedDocumentFrequency(list *segmentlist.List) (uint64, bool, error) {
	n := list.Length()
	if n == 0 {
		return 0, false, nil
	}
	last, ok, err := list.GetNth(n - 1)
	if err != nil || !ok {
		return 0, false, err
	}
	if last < common.DocumentCountOffset {
		return 0, false, nil
	}
	return last - common.DocumentCountOffset, true, nil
}
