package codec

import "sort"

// PForDeltaCodec implements Patched Frame-of-Reference delta coding: a
// single bit-width b is chosen per chunk to cover the bulk of the gap
// distribution, every gap is packed into a fixed b-bit slot, and the
// handful of gaps too large for b bits ("exceptions") are patched in
// separately as (position, value) pairs. b is chosen to minimise total
// encoded size and is stored inline.
type PForDeltaCodec struct{}

func (PForDeltaCodec) Method() Method { return MethodPForDelta }

// chooseFrameWidth picks the width whose bit-packed array plus
// exception overhead is lowest among a few candidates: the width of the
// largest value and the widths of the 75th, 90th, 95th and 99th
// percentile values, rather than every possible width 0..64.
func chooseFrameWidth(values []uint64) uint {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]uint64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := len(sorted)
	bestWidth := uint(bitLen(sorted[n-1]))
	bestCost := uint64(n) * uint64(bestWidth)
	// try covering the k-th percentile for k in a small candidate set,
	// patching everything above as an exception (~6 bytes each: 4 byte
	// position + varint value, approximated as 6 bytes).
	for _, frac := range []float64{0.75, 0.9, 0.95, 0.99} {
		idx := int(float64(n-1) * frac)
		width := uint(bitLen(sorted[idx]))
		exceptions := 0
		for _, v := range values {
			if bitLen(v) > int(width) {
				exceptions++
			}
		}
		cost := uint64(n)*uint64(width) + uint64(exceptions)*48
		if cost < bestCost {
			bestCost = cost
			bestWidth = width
		}
	}
	return bestWidth
}

func bitLen(v uint64) int {
	n := 0
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

func (PForDeltaCodec) Compress(postings []uint64) ([]byte, int) {
	values := gaps(postings)
	width := chooseFrameWidth(values)
	if width > 63 {
		width = 63
	}
	mask := uint64(1)<<width - 1

	type exception struct {
		pos int
		val uint64
	}
	var exceptions []exception
	w := &bitWriter{out: []byte{byte(MethodPForDelta), byte(width)}}
	for i, v := range values {
		if v > mask {
			exceptions = append(exceptions, exception{i, v})
			w.writeBits(0, width)
		} else {
			w.writeBits(v, width)
		}
	}
	body := w.finish()

	out := make([]byte, 0, len(body)+4+8*len(exceptions))
	out = append(out, byte(MethodPForDelta), byte(width))
	var cnt [4]byte
	putUint32(cnt[:], uint32(len(exceptions)))
	out = append(out, cnt[:]...)
	for _, e := range exceptions {
		var posBuf [4]byte
		putUint32(posBuf[:], uint32(e.pos))
		out = append(out, posBuf[:]...)
		out = appendVByte(out, e.val)
	}
	out = append(out, body[2:]...) // skip the tag+width bitWriter wrote
	return out, len(out)
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (PForDeltaCodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 6 || Method(data[0]) != MethodPForDelta {
		return nil, 0, ErrMalformed
	}
	width := uint(data[1])
	numExceptions := int(getUint32(data[2:6]))
	pos := 6

	type exception struct {
		pos int
		val uint64
	}
	exceptions := make([]exception, numExceptions)
	for i := 0; i < numExceptions; i++ {
		if pos+4 > len(data) {
			return nil, 0, ErrMalformed
		}
		p := int(getUint32(data[pos : pos+4]))
		pos += 4
		v, next, err := readVByte(data, pos)
		if err != nil {
			return nil, 0, err
		}
		pos = next
		exceptions[i] = exception{p, v}
	}

	r := &bitReader{data: data[pos:], pos: 0}
	if cap(out) < expectedN && expectedN > 0 {
		out = make([]uint64, 0, expectedN)
	}
	out = out[:0]
	for i := 0; i < expectedN; i++ {
		v, err := r.readBits(width)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	for _, e := range exceptions {
		if e.pos >= len(out) {
			return nil, 0, ErrMalformed
		}
		out[e.pos] = e.val
	}
	undoGaps(out)
	return out, len(out), nil
}
