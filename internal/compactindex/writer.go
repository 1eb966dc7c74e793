package compactindex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/salvatore-campagna/indexcore/internal/codec"
	"github.com/salvatore-campagna/indexcore/internal/common"
)

// Writer streams a sorted term -> postings stream to a compact index
// file on disk. Terms must arrive in non-decreasing byte
// order; Close flushes the final block, writes the descriptor table and
// the trailer, and commits the file with a rename so concurrent readers
// never observe a half-built index.
type Writer struct {
	codec codec.Codec

	file      *os.File
	tempPath  string
	finalPath string

	blockBuf       bytes.Buffer
	blockStart     uint64
	blockFirst     string
	haveBlockFirst bool

	descriptors []Descriptor

	pendingTerm     string
	pendingHeaders  []SegmentHeader
	pendingPayloads [][]byte
	havePending     bool

	lastTerm string

	termCount    uint32
	listCount    uint32
	postingCount uint64

	closed bool
}

// WriterOptions tunes how the output file is written.
type WriterOptions struct {
	// UseDirectIO requests the writer bypass the OS page cache while
	// building, so a long index build does not evict pages a concurrent
	// query needs. True O_DIRECT alignment is platform specific;
	// os.O_SYNC is used here as a portable approximation that still
	// avoids accumulating unflushed dirty pages.
	UseDirectIO bool
}

// NewWriter creates a writer that builds path via a temp file in the
// same directory, so the final rename is atomic on the same filesystem.
func NewWriter(path string, c codec.Codec) (*Writer, error) {
	return NewWriterOptions(path, c, WriterOptions{})
}

// NewWriterOptions is NewWriter with explicit WriterOptions.
func NewWriterOptions(path string, c codec.Codec, opts WriterOptions) (*Writer, error) {
	if c == nil {
		c = codec.BestCodec{Candidates: codec.DefaultBestCandidates()}
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("compactindex: create temp file: %w", err)
	}
	if opts.UseDirectIO {
		name := tmp.Name()
		tmp.Close()
		tmp, err = os.OpenFile(name, os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0o644)
		if err != nil {
			os.Remove(name)
			return nil, fmt.Errorf("compactindex: reopen temp file for direct io: %w", err)
		}
	}
	return &Writer{
		codec:     c,
		file:      tmp,
		tempPath:  tmp.Name(),
		finalPath: path,
	}, nil
}

// AddPostings compresses postings with the writer's codec and appends
// them as one or more segments under term, splitting long lists at
// common.TargetSegmentSize.
func (w *Writer) AddPostings(term string, postings []uint64) error {
	if len(postings) == 0 {
		return nil
	}
	sizes := splitSegmentSizes(len(postings))
	offset := 0
	for _, n := range sizes {
		chunk := postings[offset : offset+n]
		offset += n
		payload, _ := w.codec.Compress(chunk)
		header := SegmentHeader{
			PostingCount: int32(len(chunk)),
			ByteLength:   int32(len(payload)),
			FirstElement: int64(chunk[0]),
			LastElement:  int64(chunk[len(chunk)-1]),
		}
		if err := w.addSegment(term, header, payload); err != nil {
			return err
		}
	}
	return nil
}

// AddPostingsCompressed appends an already-compressed segment, used by
// the merger to move segments between indices without decoding them.
func (w *Writer) AddPostingsCompressed(term string, compressed []byte, count int, first, last int64) error {
	header := SegmentHeader{
		PostingCount: int32(count),
		ByteLength:   int32(len(compressed)),
		FirstElement: first,
		LastElement:  last,
	}
	return w.addSegment(term, header, compressed)
}

func (w *Writer) addSegment(term string, header SegmentHeader, payload []byte) error {
	if term < w.lastTerm {
		return ErrTermOrder
	}
	if term != w.pendingTerm {
		if err := w.flushPending(); err != nil {
			return err
		}
		w.pendingTerm = term
		w.pendingHeaders = nil
		w.pendingPayloads = nil
		w.havePending = true
	} else if len(w.pendingHeaders) > 0 {
		prev := w.pendingHeaders[len(w.pendingHeaders)-1]
		if header.FirstElement <= prev.LastElement {
			return ErrTermOrder
		}
	}
	w.pendingHeaders = append(w.pendingHeaders, header)
	w.pendingPayloads = append(w.pendingPayloads, payload)
	w.lastTerm = term
	w.listCount++
	w.postingCount += uint64(header.PostingCount)
	return nil
}

// flushPending finalises the currently-open term record into the block
// buffer, spilling the block to disk once it reaches WriteCacheSize.
func (w *Writer) flushPending() error {
	if !w.havePending {
		return nil
	}
	rec := encodeTermRecord(w.pendingTerm, w.pendingHeaders, w.pendingPayloads)
	if !w.haveBlockFirst {
		w.blockFirst = w.pendingTerm
		w.haveBlockFirst = true
	}
	w.blockBuf.Write(rec)
	w.termCount++
	w.havePending = false
	w.pendingTerm = ""
	w.pendingHeaders = nil
	w.pendingPayloads = nil

	if w.blockBuf.Len() >= common.WriteCacheSize {
		return w.flushBlock()
	}
	return nil
}

// flushBlock writes the accumulated block buffer to the file and
// records a new block descriptor.
func (w *Writer) flushBlock() error {
	if w.blockBuf.Len() == 0 {
		return nil
	}
	n, err := w.file.Write(w.blockBuf.Bytes())
	if err != nil {
		return fmt.Errorf("compactindex: write block: %w", err)
	}
	desc := Descriptor{
		FirstTerm:  w.blockFirst,
		BlockStart: w.blockStart,
		BlockEnd:   w.blockStart + uint64(n),
	}
	w.descriptors = growDescriptors(w.descriptors, desc)
	w.blockStart += uint64(n)
	w.blockBuf.Reset()
	w.haveBlockFirst = false
	return nil
}

// growDescriptors appends to the descriptor array. When the array is
// full it reallocates by hand to cap*DescriptorGrowthRate+1 and copies,
// instead of leaving the growth ratio to append.
func growDescriptors(descs []Descriptor, d Descriptor) []Descriptor {
	if len(descs) == cap(descs) {
		newCap := int(float64(cap(descs))*common.DescriptorGrowthRate) + 1
		grown := make([]Descriptor, len(descs), newCap)
		copy(grown, descs)
		descs = grown
	}
	return append(descs, d)
}

// Close flushes any buffered data, writes the descriptor table and
// trailer, and commits the file to its final path via rename.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.flushPending(); err != nil {
		w.file.Close()
		os.Remove(w.tempPath)
		return err
	}
	if err := w.flushBlock(); err != nil {
		w.file.Close()
		os.Remove(w.tempPath)
		return err
	}

	for _, d := range w.descriptors {
		if err := writeDescriptor(w.file, d); err != nil {
			w.file.Close()
			os.Remove(w.tempPath)
			return err
		}
	}

	trailer := Trailer{
		TermCount:       w.termCount,
		ListCount:       w.listCount,
		DescriptorCount: uint32(len(w.descriptors)),
		PostingCount:    w.postingCount,
	}
	if err := writeTrailer(w.file, trailer); err != nil {
		w.file.Close()
		os.Remove(w.tempPath)
		return err
	}

	if err := w.file.Sync(); err != nil {
		w.file.Close()
		os.Remove(w.tempPath)
		return fmt.Errorf("compactindex: sync: %w", err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.tempPath)
		return fmt.Errorf("compactindex: close: %w", err)
	}
	if err := os.Rename(w.tempPath, w.finalPath); err != nil {
		os.Remove(w.tempPath)
		return fmt.Errorf("compactindex: commit rename: %w", err)
	}
	return nil
}

func writeDescriptor(w *os.File, d Descriptor) error {
	var termField [descriptorTermSize]byte
	copy(termField[:], d.FirstTerm)
	if _, err := w.Write(termField[:]); err != nil {
		return err
	}
	var tail [16]byte
	binary.LittleEndian.PutUint64(tail[0:8], d.BlockStart)
	binary.LittleEndian.PutUint64(tail[8:16], d.BlockEnd)
	_, err := w.Write(tail[:])
	return err
}

func writeTrailer(w *os.File, t Trailer) error {
	var buf [trailerSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], t.TermCount)
	binary.LittleEndian.PutUint32(buf[4:8], t.ListCount)
	binary.LittleEndian.PutUint32(buf[8:12], t.DescriptorCount)
	binary.LittleEndian.PutUint64(buf[12:20], t.PostingCount)
	_, err := w.Write(buf[:])
	return err
}

// splitSegmentSizes partitions n postings into segment sizes obeying
// TargetSegmentSize/MinSegmentSize: a short list is one
// singleton segment regardless of MinSegmentSize; a long list is cut
// into TargetSegmentSize chunks, with any undersized remainder folded
// into the previous chunk rather than left as a short final segment.
func splitSegmentSizes(n int) []int {
	if n <= common.TargetSegmentSize {
		return []int{n}
	}
	var sizes []int
	remaining := n
	for remaining > common.TargetSegmentSize {
		sizes = append(sizes, common.TargetSegmentSize)
		remaining -= common.TargetSegmentSize
	}
	if remaining > 0 {
		if remaining < common.MinSegmentSize && len(sizes) > 0 {
			sizes[len(sizes)-1] += remaining
		} else {
			sizes = append(sizes, remaining)
		}
	}
	return sizes
}
