package compactindex

import (
	"bytes"
	"encoding/binary"

	"github.com/salvatore-campagna/indexcore/internal/codec"
	"github.com/salvatore-campagna/indexcore/internal/common"
)

func appendSegmentHeader(buf []byte, h SegmentHeader) []byte {
	var tmp [segmentHeaderSize]byte
	binary.LittleEndian.PutUint32(tmp[0:4], uint32(h.PostingCount))
	binary.LittleEndian.PutUint32(tmp[4:8], uint32(h.ByteLength))
	binary.LittleEndian.PutUint64(tmp[8:16], uint64(h.FirstElement))
	binary.LittleEndian.PutUint64(tmp[16:24], uint64(h.LastElement))
	return append(buf, tmp[:]...)
}

func decodeSegmentHeader(data []byte) SegmentHeader {
	return SegmentHeader{
		PostingCount: int32(binary.LittleEndian.Uint32(data[0:4])),
		ByteLength:   int32(binary.LittleEndian.Uint32(data[4:8])),
		FirstElement: int64(binary.LittleEndian.Uint64(data[8:16])),
		LastElement:  int64(binary.LittleEndian.Uint64(data[16:24])),
	}
}

// encodeTermRecord lays out one term's record: `term NUL | seg_count:i32
// | headers | payloads`. A term with exactly one segment uses
// the singleton sentinel (seg_count = -byte_length) and skips the
// 24-byte SegmentHeader array; since the codec layer still needs a
// posting count to decode bit-oriented methods, the sentinel is
// followed by a compact vByte-coded posting count and then the
// segment's first/last element (fixed 8-byte little-endian each, same
// width as the multi-segment header) instead of the full header array
// (see decodeTermRecord).
func encodeTermRecord(term string, headers []SegmentHeader, payloads [][]byte) []byte {
	buf := make([]byte, 0, len(term)+1+4)
	buf = append(buf, term...)
	buf = append(buf, 0)

	if len(headers) == 1 {
		buf = appendInt32(buf, -headers[0].ByteLength)
		buf = codec.AppendVarint(buf, uint64(headers[0].PostingCount))
		var tmp [16]byte
		binary.LittleEndian.PutUint64(tmp[0:8], uint64(headers[0].FirstElement))
		binary.LittleEndian.PutUint64(tmp[8:16], uint64(headers[0].LastElement))
		buf = append(buf, tmp[:]...)
		buf = append(buf, payloads[0]...)
		return buf
	}

	buf = appendInt32(buf, int32(len(headers)))
	for i := 0; i < headerPadding(len(term)); i++ {
		buf = append(buf, 0)
	}
	for _, h := range headers {
		buf = appendSegmentHeader(buf, h)
	}
	for _, p := range payloads {
		buf = append(buf, p...)
	}
	return buf
}

// headerPadding returns how many zero bytes sit between a multi-segment
// record's seg_count field and its header array. Zero unless the module
// is built with common.IndexMustBeWordAligned, in which case the
// headers are pushed to the next 8-byte boundary within the record.
func headerPadding(termLen int) int {
	if !common.IndexMustBeWordAligned {
		return 0
	}
	return (8 - (termLen+1+4)%8) % 8
}

func appendInt32(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

// decodeTermRecord parses one term record starting at pos, returning
// the term, its segment headers (synthesised for the singleton case),
// the segment payloads (byte slices into data, not copied) and the
// position immediately after the record.
func decodeTermRecord(data []byte, pos int) (term string, headers []SegmentHeader, payloads [][]byte, next int, err error) {
	nul := bytes.IndexByte(data[pos:], 0)
	if nul < 0 {
		return "", nil, nil, 0, ErrMalformed
	}
	term = string(data[pos : pos+nul])
	pos += nul + 1

	if pos+4 > len(data) {
		return "", nil, nil, 0, ErrMalformed
	}
	segCount := int32(binary.LittleEndian.Uint32(data[pos:]))
	pos += 4

	if isSingletonSentinel(segCount) {
		byteLen := int(-segCount)
		count, afterCount, cerr := codec.ReadVarint(data, pos)
		if cerr != nil {
			return "", nil, nil, 0, cerr
		}
		pos = afterCount
		if pos+16 > len(data) {
			return "", nil, nil, 0, ErrMalformed
		}
		firstElement := int64(binary.LittleEndian.Uint64(data[pos : pos+8]))
		lastElement := int64(binary.LittleEndian.Uint64(data[pos+8 : pos+16]))
		pos += 16
		if byteLen < 0 || pos+byteLen > len(data) {
			return "", nil, nil, 0, ErrMalformed
		}
		payload := data[pos : pos+byteLen]
		pos += byteLen
		header := SegmentHeader{
			PostingCount: int32(count),
			ByteLength:   int32(byteLen),
			FirstElement: firstElement,
			LastElement:  lastElement,
		}
		return term, []SegmentHeader{header}, [][]byte{payload}, pos, nil
	}

	pos += headerPadding(len(term))
	n := int(segCount)
	if n < 0 || pos+n*segmentHeaderSize > len(data) {
		return "", nil, nil, 0, ErrMalformed
	}
	headers = make([]SegmentHeader, n)
	for i := range headers {
		headers[i] = decodeSegmentHeader(data[pos:])
		pos += segmentHeaderSize
	}
	payloads = make([][]byte, n)
	for i, h := range headers {
		if h.ByteLength < 0 || pos+int(h.ByteLength) > len(data) {
			return "", nil, nil, 0, ErrMalformed
		}
		payloads[i] = data[pos : pos+int(h.ByteLength)]
		pos += int(h.ByteLength)
	}
	return term, headers, payloads, pos, nil
}
