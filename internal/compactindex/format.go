// Package compactindex implements the on-disk compact index: a
// sequence of term blocks followed by a block-descriptor table and a
// trailer, written once by a Writer and read back by a Reader/Iterator.
// The layout is bit-exact across sessions: little-endian, fixed-width
// header fields, no version tag (a writer and a reader compiled from
// the same module always agree on layout).
package compactindex

import (
	"errors"

	"github.com/salvatore-campagna/indexcore/internal/common"
)

// ErrMalformed mirrors codec.ErrMalformed at the compact-index layer:
// a trailer that doesn't parse, a descriptor whose range falls outside
// the file, or a term record whose seg_count contradicts its payload
// length.
var ErrMalformed = errors.New("compactindex: malformed file")

// ErrTermOrder is returned by Writer.AddPostings when the caller
// attempts to write a term lexicographically smaller than the last one,
// or a segment whose posting range overlaps its predecessor's.
var ErrTermOrder = errors.New("compactindex: term out of order")

// SegmentHeader describes one compressed posting-list segment (the
// on-disk PostingListSegmentHeader).
type SegmentHeader struct {
	PostingCount int32
	ByteLength   int32
	FirstElement int64
	LastElement  int64
}

const segmentHeaderSize = 4 + 4 + 8 + 8

// descriptorTermSize is MAX_TOKEN_LENGTH+1, the fixed width of a
// descriptor's embedded term prefix.
const descriptorTermSize = common.MaxTokenLength + 1

// Descriptor points from a block's first term to its byte range in the
// file.
type Descriptor struct {
	FirstTerm  string
	BlockStart uint64
	BlockEnd   uint64
}

const descriptorSize = descriptorTermSize + 8 + 8

// Trailer is the last fixed-size record in the file.
type Trailer struct {
	TermCount       uint32
	ListCount       uint32
	DescriptorCount uint32
	PostingCount    uint64
}

const trailerSize = 4 + 4 + 4 + 8

// singleton-segment term records store seg_count as the negated byte
// length of their one segment and omit the header array entirely.
func isSingletonSentinel(segCount int32) bool { return segCount < 0 }
