package compactindex

import (
	"fmt"
	"io"

	"github.com/salvatore-campagna/indexcore/internal/codec"
)

// Iterator streams every term record in file order exactly once,
// ignoring the descriptor table. The merger drives one Iterator per
// input index.
type Iterator struct {
	data []byte
	pos  int
	end  int

	term     string
	headers  []SegmentHeader
	payloads [][]byte
	segIdx   int
}

// Iterator opens a fresh sequential pass over the reader's block
// region.
func (r *Reader) Iterator() (*Iterator, error) {
	data, err := r.blockBytes(0, r.blocksEnd)
	if err != nil {
		return nil, err
	}
	return &Iterator{data: data, end: len(data)}, nil
}

// NextTerm advances to the next term record. ok is false once every
// term has been visited.
func (it *Iterator) NextTerm() (term string, ok bool, err error) {
	if it.pos >= it.end {
		return "", false, nil
	}
	term, headers, payloads, next, err := decodeTermRecord(it.data, it.pos)
	if err != nil {
		return "", false, err
	}
	it.pos = next
	it.term = term
	it.headers = headers
	it.payloads = payloads
	it.segIdx = 0
	return term, true, nil
}

// Term returns the term most recently returned by NextTerm.
func (it *Iterator) Term() string { return it.term }

// SegmentCount reports how many segments the current term has.
func (it *Iterator) SegmentCount() int { return len(it.headers) }

// NextListHeader returns the header of the current term's next
// not-yet-visited segment without consuming it.
func (it *Iterator) NextListHeader() (SegmentHeader, bool) {
	if it.segIdx >= len(it.headers) {
		return SegmentHeader{}, false
	}
	return it.headers[it.segIdx], true
}

// NextListCompressed returns the current segment's raw bytes and
// advances to the next segment.
func (it *Iterator) NextListCompressed() ([]byte, error) {
	if it.segIdx >= len(it.payloads) {
		return nil, io.EOF
	}
	p := it.payloads[it.segIdx]
	it.segIdx++
	return p, nil
}

// NextListUncompressed decodes the current segment and advances.
func (it *Iterator) NextListUncompressed() ([]uint64, error) {
	if it.segIdx >= len(it.payloads) {
		return nil, io.EOF
	}
	h := it.headers[it.segIdx]
	p := it.payloads[it.segIdx]
	it.segIdx++
	vals, _, err := codec.DecompressAny(p, int(h.PostingCount), nil)
	if err != nil {
		return nil, fmt.Errorf("compactindex: iterator decode %q segment: %w", it.term, err)
	}
	return vals, nil
}

// SkipNext advances past the current segment without reading it.
func (it *Iterator) SkipNext() {
	if it.segIdx < len(it.headers) {
		it.segIdx++
	}
}
