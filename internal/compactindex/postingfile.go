package compactindex

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/salvatore-campagna/indexcore/internal/codec"
)

// A posting file holds one term's segments in its own file, used when a
// term is hot enough to warrant being split out of the main index. The
// layout is trailer-at-end so the writer stays single-pass:
//
//	payloads | seg_headers | seg_count:i32
//
// A singleton list uses the same sentinel as an in-index term record
// (seg_count = -byte_length) and replaces the header array with the
// segment's first/last element and posting count:
//
//	payload | first:i64 | last:i64 | posting_count:i32 | -byte_length:i32

// WritePostingFile builds a standalone posting file for one term from
// its uncompressed postings, splitting at common.TargetSegmentSize and
// committing via rename like the index writer.
func WritePostingFile(path string, postings []uint64, c codec.Codec) error {
	if c == nil {
		c = codec.BestCodec{Candidates: codec.DefaultBestCandidates()}
	}
	if len(postings) == 0 {
		return fmt.Errorf("compactindex: posting file needs at least one posting")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("compactindex: create temp posting file: %w", err)
	}
	abort := func(err error) error {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	var headers []SegmentHeader
	sizes := splitSegmentSizes(len(postings))
	offset := 0
	for _, n := range sizes {
		chunk := postings[offset : offset+n]
		offset += n
		payload, _ := c.Compress(chunk)
		headers = append(headers, SegmentHeader{
			PostingCount: int32(len(chunk)),
			ByteLength:   int32(len(payload)),
			FirstElement: int64(chunk[0]),
			LastElement:  int64(chunk[len(chunk)-1]),
		})
		if _, err := tmp.Write(payload); err != nil {
			return abort(fmt.Errorf("compactindex: write posting file payload: %w", err))
		}
	}

	var tail []byte
	if len(headers) == 1 {
		h := headers[0]
		tail = make([]byte, 0, 8+8+4+4)
		tail = binary.LittleEndian.AppendUint64(tail, uint64(h.FirstElement))
		tail = binary.LittleEndian.AppendUint64(tail, uint64(h.LastElement))
		tail = binary.LittleEndian.AppendUint32(tail, uint32(h.PostingCount))
		tail = binary.LittleEndian.AppendUint32(tail, uint32(-h.ByteLength))
	} else {
		tail = make([]byte, 0, len(headers)*segmentHeaderSize+4)
		for _, h := range headers {
			tail = appendSegmentHeader(tail, h)
		}
		tail = binary.LittleEndian.AppendUint32(tail, uint32(len(headers)))
	}
	if _, err := tmp.Write(tail); err != nil {
		return abort(fmt.Errorf("compactindex: write posting file trailer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return abort(fmt.Errorf("compactindex: sync posting file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("compactindex: close posting file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("compactindex: commit posting file: %w", err)
	}
	return nil
}

// OpenPostingFile reads a standalone posting file back as a
// PostingList. term is caller-supplied; the file itself does not store
// it (its name is conventionally derived from the term).
func OpenPostingFile(path, term string) (*PostingList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compactindex: open posting file %s: %w", path, err)
	}
	if len(data) < 4 {
		return nil, ErrMalformed
	}
	segCount := int32(binary.LittleEndian.Uint32(data[len(data)-4:]))

	if isSingletonSentinel(segCount) {
		byteLen := int(-segCount)
		tailLen := 8 + 8 + 4 + 4
		if len(data) < tailLen || byteLen != len(data)-tailLen {
			return nil, ErrMalformed
		}
		base := byteLen
		h := SegmentHeader{
			FirstElement: int64(binary.LittleEndian.Uint64(data[base : base+8])),
			LastElement:  int64(binary.LittleEndian.Uint64(data[base+8 : base+16])),
			PostingCount: int32(binary.LittleEndian.Uint32(data[base+16 : base+20])),
			ByteLength:   int32(byteLen),
		}
		return &PostingList{Term: term, Headers: []SegmentHeader{h}, Payloads: [][]byte{data[:byteLen]}}, nil
	}

	n := int(segCount)
	headersStart := len(data) - 4 - n*segmentHeaderSize
	if n <= 0 || headersStart < 0 {
		return nil, ErrMalformed
	}
	headers := make([]SegmentHeader, n)
	var payloadTotal int
	for i := range headers {
		headers[i] = decodeSegmentHeader(data[headersStart+i*segmentHeaderSize:])
		if headers[i].ByteLength < 0 {
			return nil, ErrMalformed
		}
		payloadTotal += int(headers[i].ByteLength)
	}
	if payloadTotal != headersStart {
		return nil, ErrMalformed
	}
	payloads := make([][]byte, n)
	pos := 0
	for i, h := range headers {
		payloads[i] = data[pos : pos+int(h.ByteLength)]
		pos += int(h.ByteLength)
	}
	return &PostingList{Term: term, Headers: headers, Payloads: payloads}, nil
}
