// Package merge implements the n-way index merger: given
// k iterators producing (term, segment_header, compressed_bytes)
// streams in sorted order, it produces one merged compact index.
package merge

import (
	"container/heap"
	"fmt"

	"github.com/salvatore-campagna/indexcore/internal/bitmap"
	"github.com/salvatore-campagna/indexcore/internal/codec"
	"github.com/salvatore-campagna/indexcore/internal/common"
	"github.com/salvatore-campagna/indexcore/internal/compactindex"
)

// Merger drives a synchronized sweep across every input iterator,
// term by term, writing the union through a compactindex.Writer. A
// merger takes ownership of its source iterators for its lifetime.
type Merger struct {
	sources []*compactindex.Iterator

	// Visible, when set, restricts the merged output to postings whose
	// document id is contained in the bitmap (optional
	// visibility/garbage-collection filter).
	Visible *bitmap.Bitmap

	// Deleted is the tombstone complement of Visible: postings whose
	// document id is in the set are dropped. When both are set, the
	// effective visible set is Visible minus Deleted.
	Deleted *bitmap.Bitmap

	// AppendMerge enables the "append-TAIT" path: when two inputs
	// expose overlapping posting ranges for the same term (because one
	// is a delta appended on top of the other, rather than a disjoint
	// shard), their segments are re-merged via an inner heap on
	// next_posting instead of a plain concatenation.
	AppendMerge bool

	visibleLessDeleted *bitmap.Bitmap
}

// New creates a merger over sources, which must already be positioned
// at the start of their block region (as returned by Reader.Iterator).
// Sources are expected in an order whose concatenation, for any term
// present in more than one, already yields correctly ordered postings
// unless AppendMerge is set.
func New(sources []*compactindex.Iterator) *Merger {
	return &Merger{sources: sources}
}

type termCursor struct {
	idx  int
	term string
}

type termHeap []termCursor

func (h termHeap) Len() int { return len(h) }
func (h termHeap) Less(i, j int) bool {
	if h[i].term != h[j].term {
		return h[i].term < h[j].term
	}
	return h[i].idx < h[j].idx
}
func (h termHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *termHeap) Push(x any)        { *h = append(*h, x.(termCursor)) }
func (h *termHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MergeTo drains every source term by term, writing the merged result
// through w. The caller closes w.
func (m *Merger) MergeTo(w *compactindex.Writer) error {
	h := &termHeap{}
	for i, src := range m.sources {
		term, ok, err := src.NextTerm()
		if err != nil {
			return fmt.Errorf("merge: priming source %d: %w", i, err)
		}
		if ok {
			heap.Push(h, termCursor{idx: i, term: term})
		}
	}

	for h.Len() > 0 {
		minTerm := (*h)[0].term
		var active []int
		for h.Len() > 0 && (*h)[0].term == minTerm {
			c := heap.Pop(h).(termCursor)
			active = append(active, c.idx)
		}

		if err := m.mergeTerm(minTerm, active, w); err != nil {
			return err
		}

		for _, idx := range active {
			term, ok, err := m.sources[idx].NextTerm()
			if err != nil {
				return fmt.Errorf("merge: advancing source %d: %w", idx, err)
			}
			if ok {
				heap.Push(h, termCursor{idx: idx, term: term})
			}
		}
	}
	return nil
}

// mergeTerm writes every segment of minTerm across the sources named
// by active, preserving source order; when inputs cover disjoint
// document ranges the output for one term is a plain concatenation of
// their segments.
func (m *Merger) mergeTerm(term string, active []int, w *compactindex.Writer) error {
	needsDecode := m.Visible != nil || m.Deleted != nil || m.AppendMerge
	if !needsDecode {
		for _, idx := range active {
			it := m.sources[idx]
			for {
				header, ok := it.NextListHeader()
				if !ok {
					break
				}
				payload, err := it.NextListCompressed()
				if err != nil {
					return fmt.Errorf("merge: reading %q segment: %w", term, err)
				}
				if err := w.AddPostingsCompressed(term, payload, int(header.PostingCount), header.FirstElement, header.LastElement); err != nil {
					return fmt.Errorf("merge: writing %q segment: %w", term, err)
				}
			}
		}
		return nil
	}

	var sequences [][]uint64
	for _, idx := range active {
		it := m.sources[idx]
		var all []uint64
		for i := 0; i < it.SegmentCount(); i++ {
			vals, err := it.NextListUncompressed()
			if err != nil {
				return fmt.Errorf("merge: decoding %q segment %d: %w", term, i, err)
			}
			all = append(all, vals...)
		}
		if len(all) > 0 {
			sequences = append(sequences, all)
		}
	}

	merged := kwayMerge(sequences)
	if visible := m.effectiveVisible(); visible != nil || m.Deleted != nil {
		merged = filterPostings(merged, visible, m.Deleted)
	}
	if len(merged) == 0 {
		return nil
	}
	if err := w.AddPostings(term, merged); err != nil {
		return fmt.Errorf("merge: flushing %q: %w", term, err)
	}
	return nil
}

// effectiveVisible folds the tombstone set into the visible set: with
// both present the survivors are Visible minus Deleted, computed once
// per merge rather than probed twice per posting.
func (m *Merger) effectiveVisible() *bitmap.Bitmap {
	if m.Visible == nil {
		return nil
	}
	if m.Deleted == nil {
		return m.Visible
	}
	if m.visibleLessDeleted == nil {
		m.visibleLessDeleted = m.Visible.Subtract(m.Deleted)
	}
	return m.visibleLessDeleted
}

func filterPostings(postings []uint64, visible, deleted *bitmap.Bitmap) []uint64 {
	out := postings[:0]
	for _, p := range postings {
		docID := common.DocIDOf(p)
		if visible != nil && !visible.Contains(docID) {
			continue
		}
		if visible == nil && deleted != nil && deleted.Contains(docID) {
			continue
		}
		out = append(out, p)
	}
	return out
}

type seqCursor struct {
	seq []uint64
	pos int
}

type seqHeap []*seqCursor

func (h seqHeap) Len() int            { return len(h) }
func (h seqHeap) Less(i, j int) bool  { return h[i].seq[h[i].pos] < h[j].seq[h[j].pos] }
func (h seqHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *seqHeap) Push(x any)         { *h = append(*h, x.(*seqCursor)) }
func (h *seqHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// kwayMerge merges sequences, each individually sorted ascending, into
// one sorted sequence, for append-mode merges where posting ranges may
// overlap between inputs. A posting present in more than one input is
// written once.
func kwayMerge(sequences [][]uint64) []uint64 {
	if len(sequences) == 1 {
		return sequences[0]
	}
	total := 0
	h := &seqHeap{}
	for _, seq := range sequences {
		if len(seq) == 0 {
			continue
		}
		total += len(seq)
		heap.Push(h, &seqCursor{seq: seq})
	}
	out := make([]uint64, 0, total)
	for h.Len() > 0 {
		c := (*h)[0]
		if v := c.seq[c.pos]; len(out) == 0 || out[len(out)-1] != v {
			out = append(out, v)
		}
		c.pos++
		if c.pos >= len(c.seq) {
			heap.Pop(h)
		} else {
			heap.Fix(h, 0)
		}
	}
	return out
}

// DefaultCodec is the compressor used for re-encoded segments produced
// by the decode-and-recombine path (visibility filtering, append
// merges): the same adaptive candidate set the writer defaults to.
func DefaultCodec() codec.Codec {
	return codec.BestCodec{Candidates: codec.DefaultBestCandidates()}
}
