// Package segmentlist implements the query-time view of one term's
// posting list: a sorted array of compressed segments with an L2
// (compressed) and L1 (decompressed) LRU cache on top. All
// other positional operators the query engine needs (DAAT cursors,
// conjunctive probing, MaxScore's probe path) compose from the small
// set of access primitives exposed here.
package segmentlist

import (
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/salvatore-campagna/indexcore/internal/codec"
	"github.com/salvatore-campagna/indexcore/internal/common"
	"github.com/salvatore-campagna/indexcore/internal/compactindex"
)

// Source supplies a segment list's raw headers and payload bytes,
// letting List stay agnostic of whether those bytes are already
// resident (as compactindex.PostingList provides them today) or would
// need a disk seek (a future direct-from-file reader).
type Source interface {
	SegmentCount() int
	Header(i int) compactindex.SegmentHeader
	Payload(i int) ([]byte, error)
}

// postingListSource adapts compactindex.PostingList to Source.
type postingListSource struct {
	pl *compactindex.PostingList
}

func (s postingListSource) SegmentCount() int { return len(s.pl.Headers) }
func (s postingListSource) Header(i int) compactindex.SegmentHeader {
	return s.pl.Headers[i]
}
func (s postingListSource) Payload(i int) ([]byte, error) {
	return s.pl.Payloads[i], nil
}

// FromPostingList wraps a reader-produced posting list as a Source.
func FromPostingList(pl *compactindex.PostingList) Source {
	return postingListSource{pl: pl}
}

// List is a cached, positionally searchable view over a term's
// segments. It is not safe for concurrent use by multiple goroutines
// without external synchronisation (caches are per-query or
// per-index, protected individually).
type List struct {
	term    string
	source  Source
	offsets []int64 // offsets[i] = total posting count before segment i

	l1 *lru.Cache[int, []uint64] // decoded segments
	l2 *lru.Cache[int, []byte]   // compressed segment bytes

	lastAccessed int

	// OnDecode, when set, is invoked once per L1 miss (each segment
	// decompression), letting callers feed a telemetry counter without
	// this package depending on one.
	OnDecode func()
}

// New builds a List over source, whose segments must already satisfy
// the monotone non-overlap invariant of (segments[i].last <
// segments[i+1].first).
func New(term string, source Source) (*List, error) {
	n := source.SegmentCount()
	offsets := make([]int64, n+1)
	for i := 0; i < n; i++ {
		offsets[i+1] = offsets[i] + int64(source.Header(i).PostingCount)
	}

	l1, err := lru.New[int, []uint64](common.DecompressedSegments)
	if err != nil {
		return nil, fmt.Errorf("segmentlist: new L1 cache: %w", err)
	}
	l2, err := lru.New[int, []byte](common.MaxSegmentsInMemory)
	if err != nil {
		return nil, fmt.Errorf("segmentlist: new L2 cache: %w", err)
	}

	return &List{
		term:         term,
		source:       source,
		offsets:      offsets,
		l1:           l1,
		l2:           l2,
		lastAccessed: -1,
	}, nil
}

// Term returns the term this list was built for.
func (l *List) Term() string { return l.term }

// Length returns the total number of postings across all segments.
func (l *List) Length() int64 { return l.offsets[len(l.offsets)-1] }

// segmentCompressed fetches segment i's compressed bytes, through L2.
func (l *List) segmentCompressed(i int) ([]byte, error) {
	if data, ok := l.l2.Get(i); ok {
		return data, nil
	}
	data, err := l.source.Payload(i)
	if err != nil {
		return nil, fmt.Errorf("segmentlist: payload for %q segment %d: %w", l.term, i, err)
	}
	l.l2.Add(i, data)
	return data, nil
}

// segmentDecoded decodes segment i, through L1 (filling L1 from L2 on
// miss) and performs sequential read-ahead into L2.
func (l *List) segmentDecoded(i int) ([]uint64, error) {
	if vals, ok := l.l1.Get(i); ok {
		l.trackAccess(i)
		return vals, nil
	}
	data, err := l.segmentCompressed(i)
	if err != nil {
		return nil, err
	}
	h := l.source.Header(i)
	vals, _, err := codec.DecompressAny(data, int(h.PostingCount), nil)
	if err != nil {
		return nil, fmt.Errorf("segmentlist: decode %q segment %d: %w", l.term, i, err)
	}
	if l.OnDecode != nil {
		l.OnDecode()
	}
	l.l1.Add(i, vals)
	l.trackAccess(i)
	return vals, nil
}

// trackAccess updates the sequential-access heuristic and prefetches
// common.ReadAheadSegments segments into L2 when access advances by one
// segment at a time.
func (l *List) trackAccess(i int) {
	if l.lastAccessed >= 0 && i == l.lastAccessed+1 {
		n := l.source.SegmentCount()
		for j := i + 1; j < i+1+common.ReadAheadSegments && j < n; j++ {
			if _, ok := l.l2.Get(j); !ok {
				if data, err := l.source.Payload(j); err == nil {
					l.l2.Add(j, data)
				}
			}
		}
	}
	l.lastAccessed = i
}

// segmentForValue returns the index of the segment whose
// [FirstElement, LastElement] range could contain value, via binary
// search on LastElement (segments are monotone and non-overlapping).
func (l *List) segmentForValue(value uint64) int {
	n := l.source.SegmentCount()
	return sort.Search(n, func(i int) bool {
		return uint64(l.source.Header(i).LastElement) >= value
	})
}

// GetNth returns the (0-based) nth posting in the whole list.
func (l *List) GetNth(n int64) (uint64, bool, error) {
	if n < 0 || n >= l.Length() {
		return 0, false, nil
	}
	i := sort.Search(len(l.offsets)-1, func(i int) bool { return l.offsets[i+1] > n })
	vals, err := l.segmentDecoded(i)
	if err != nil {
		return 0, false, err
	}
	localIdx := n - l.offsets[i]
	return vals[localIdx], true, nil
}

// FirstStartGE returns the leftmost posting whose value is >= pos
// (first_start_≥; postings are treated as degenerate
// single-point extents, so first_start and first_end coincide here).
func (l *List) FirstStartGE(pos uint64) (uint64, bool, error) {
	segIdx := l.segmentForValue(pos)
	n := l.source.SegmentCount()
	for segIdx < n {
		vals, err := l.segmentDecoded(segIdx)
		if err != nil {
			return 0, false, err
		}
		j := sort.Search(len(vals), func(j int) bool { return vals[j] >= pos })
		if j < len(vals) {
			return vals[j], true, nil
		}
		segIdx++
	}
	return 0, false, nil
}

// FirstEndGE is identical to FirstStartGE for point postings.
func (l *List) FirstEndGE(pos uint64) (uint64, bool, error) { return l.FirstStartGE(pos) }

// LastStartLE returns the rightmost posting whose value is <= pos.
func (l *List) LastStartLE(pos uint64) (uint64, bool, error) {
	n := l.source.SegmentCount()
	segIdx := l.segmentForValue(pos)
	if segIdx >= n {
		segIdx = n - 1
	}
	for segIdx >= 0 {
		vals, err := l.segmentDecoded(segIdx)
		if err != nil {
			return 0, false, err
		}
		j := sort.Search(len(vals), func(j int) bool { return vals[j] > pos })
		if j > 0 {
			return vals[j-1], true, nil
		}
		segIdx--
	}
	return 0, false, nil
}

// LastEndLE is identical to LastStartLE for point postings.
func (l *List) LastEndLE(pos uint64) (uint64, bool, error) { return l.LastStartLE(pos) }

// Count returns the number of postings in [start, end].
func (l *List) Count(start, end uint64) (int, error) {
	count := 0
	pos := start
	for {
		v, ok, err := l.FirstStartGE(pos)
		if err != nil {
			return 0, err
		}
		if !ok || v > end {
			break
		}
		count++
		pos = v + 1
	}
	return count, nil
}

// NextN returns up to n postings starting at or after from, used by
// query cursors to buffer PREVIEW-sized chunks.
func (l *List) NextN(from uint64, n int) ([]uint64, error) {
	out := make([]uint64, 0, n)
	pos := from
	for len(out) < n {
		v, ok, err := l.FirstStartGE(pos)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, v)
		pos = v + 1
	}
	return out, nil
}
