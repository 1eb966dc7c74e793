package compactindex

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/salvatore-campagna/indexcore/internal/codec"
)

// PostingList is the result of a term lookup: the raw segment headers
// and their still-compressed payloads. Most callers decode through
// segmentlist.List for lazy, cached access; Decode is provided here for
// callers (tests, small tools) that just want the flat posting array.
type PostingList struct {
	Term     string
	Headers  []SegmentHeader
	Payloads [][]byte
}

// Decode concatenates and decompresses every segment in the list, in
// order, using the generic tag dispatcher.
func (p *PostingList) Decode() ([]uint64, error) {
	var out []uint64
	for i, h := range p.Headers {
		vals, _, err := codec.DecompressAny(p.Payloads[i], int(h.PostingCount), nil)
		if err != nil {
			return nil, fmt.Errorf("compactindex: decode segment %d of %q: %w", i, p.Term, err)
		}
		out = append(out, vals...)
	}
	return out, nil
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// AllInMemory keeps the entire block region resident rather than
	// reading blocks on demand. Semantics are identical either way;
	// this is purely a cache tradeoff.
	AllInMemory bool
}

// Reader provides exact and wildcard term lookups against a compact
// index file, plus a sequential Iterator used by the merger.
type Reader struct {
	file        *os.File
	blocksEnd   uint64
	data        []byte // set when opts.AllInMemory
	descriptors []Descriptor
	trailer     Trailer
}

// Open reads the trailer and descriptor table of path and returns a
// Reader ready for lookups.
func Open(path string, opts ReaderOptions) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("compactindex: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("compactindex: stat %s: %w", path, err)
	}
	size := info.Size()
	if size < trailerSize {
		f.Close()
		return nil, ErrMalformed
	}

	var trailerBuf [trailerSize]byte
	if _, err := f.ReadAt(trailerBuf[:], size-trailerSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("compactindex: read trailer: %w", err)
	}
	trailer := Trailer{
		TermCount:       binary.LittleEndian.Uint32(trailerBuf[0:4]),
		ListCount:       binary.LittleEndian.Uint32(trailerBuf[4:8]),
		DescriptorCount: binary.LittleEndian.Uint32(trailerBuf[8:12]),
		PostingCount:    binary.LittleEndian.Uint64(trailerBuf[12:20]),
	}

	descTableSize := int64(trailer.DescriptorCount) * descriptorSize
	descTableStart := size - trailerSize - descTableSize
	if descTableStart < 0 {
		f.Close()
		return nil, ErrMalformed
	}

	descBuf := make([]byte, descTableSize)
	if descTableSize > 0 {
		if _, err := f.ReadAt(descBuf, descTableStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("compactindex: read descriptors: %w", err)
		}
	}
	descriptors := make([]Descriptor, trailer.DescriptorCount)
	for i := range descriptors {
		base := i * descriptorSize
		termField := descBuf[base : base+descriptorTermSize]
		nul := 0
		for nul < len(termField) && termField[nul] != 0 {
			nul++
		}
		descriptors[i] = Descriptor{
			FirstTerm:  string(termField[:nul]),
			BlockStart: binary.LittleEndian.Uint64(descBuf[base+descriptorTermSize : base+descriptorTermSize+8]),
			BlockEnd:   binary.LittleEndian.Uint64(descBuf[base+descriptorTermSize+8 : base+descriptorSize]),
		}
	}

	r := &Reader{
		file:        f,
		blocksEnd:   uint64(descTableStart),
		descriptors: descriptors,
		trailer:     trailer,
	}
	if opts.AllInMemory {
		data := make([]byte, descTableStart)
		if _, err := f.ReadAt(data, 0); err != nil && err != io.EOF {
			f.Close()
			return nil, fmt.Errorf("compactindex: read blocks: %w", err)
		}
		r.data = data
	}
	return r, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Trailer returns the index's summary counters.
func (r *Reader) Trailer() Trailer { return r.trailer }

func (r *Reader) blockBytes(start, end uint64) ([]byte, error) {
	if r.data != nil {
		return r.data[start:end], nil
	}
	buf := make([]byte, end-start)
	if _, err := r.file.ReadAt(buf, int64(start)); err != nil {
		return nil, fmt.Errorf("compactindex: read block [%d,%d): %w", start, end, err)
	}
	return buf, nil
}

// descriptorForTerm returns the index of the last descriptor whose
// FirstTerm is <= term (the block that may contain term), or -1 if term
// sorts before every block's first term.
func (r *Reader) descriptorForTerm(term string) int {
	i := sort.Search(len(r.descriptors), func(i int) bool {
		return r.descriptors[i].FirstTerm > term
	})
	return i - 1
}

// GetPostings looks up an exact term or a wildcard pattern
// (`prefix*` or a literal `$`-suffixed stemmed form) and returns its
// posting list, or nil if the term is absent.
func (r *Reader) GetPostings(pattern string) (*PostingList, error) {
	if strings.HasSuffix(pattern, "*") {
		return r.getPostingsPrefix(strings.TrimSuffix(pattern, "*"))
	}
	return r.getPostingsExact(pattern)
}

func (r *Reader) getPostingsExact(term string) (*PostingList, error) {
	bi := r.descriptorForTerm(term)
	if bi < 0 {
		return nil, nil
	}
	block, err := r.blockBytes(r.descriptors[bi].BlockStart, r.descriptors[bi].BlockEnd)
	if err != nil {
		return nil, err
	}
	pos := 0
	for pos < len(block) {
		recTerm, headers, payloads, next, err := decodeTermRecord(block, pos)
		if err != nil {
			return nil, err
		}
		if recTerm == term {
			return &PostingList{Term: recTerm, Headers: headers, Payloads: clonePayloads(payloads)}, nil
		}
		if recTerm > term {
			return nil, nil
		}
		pos = next
	}
	return nil, nil
}

// getPostingsPrefix unions every term in every block that can contain a
// match, starting at the block that could hold the prefix itself and
// scanning forward until a term no longer shares the prefix.
func (r *Reader) getPostingsPrefix(prefix string) (*PostingList, error) {
	bi := r.descriptorForTerm(prefix)
	if bi < 0 {
		bi = 0
	}
	result := &PostingList{Term: prefix + "*"}
	for b := bi; b < len(r.descriptors); b++ {
		block, err := r.blockBytes(r.descriptors[b].BlockStart, r.descriptors[b].BlockEnd)
		if err != nil {
			return nil, err
		}
		pos := 0
		donePastBlock := false
		for pos < len(block) {
			recTerm, headers, payloads, next, err := decodeTermRecord(block, pos)
			if err != nil {
				return nil, err
			}
			if strings.HasPrefix(recTerm, prefix) {
				result.Headers = append(result.Headers, headers...)
				result.Payloads = append(result.Payloads, clonePayloads(payloads)...)
			} else if recTerm > prefix {
				// terms are sorted, so once past the prefix range no
				// later record can match
				donePastBlock = true
				break
			}
			pos = next
		}
		if donePastBlock {
			break
		}
	}
	if len(result.Headers) == 0 {
		return nil, nil
	}
	return result, nil
}

func clonePayloads(payloads [][]byte) [][]byte {
	out := make([][]byte, len(payloads))
	for i, p := range payloads {
		cp := make([]byte, len(p))
		copy(cp, p)
		out[i] = cp
	}
	return out
}
