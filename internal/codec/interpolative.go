package codec

import "math/bits"

// InterpolativeCodec implements binary interpolative coding: unlike
// the other codecs it works directly on absolute,
// strictly increasing values rather than gaps, recursively encoding the
// middle element of a range using the minimum number of bits implied by
// the still-increasing neighbours, then recursing on both halves.
type InterpolativeCodec struct{}

func (InterpolativeCodec) Method() Method { return MethodInterpolative }

func bitsForRange(rangeSize uint64) uint {
	if rangeSize <= 1 {
		return 0
	}
	return uint(bits.Len64(rangeSize - 1))
}

func interpolativeEncode(w *bitWriter, values []uint64, lo, hi int, lowBound, highBound uint64) {
	if lo > hi {
		return
	}
	mid := (lo + hi) / 2
	loPos := lowBound + uint64(mid-lo)
	hiPos := highBound - uint64(hi-mid)
	rangeSize := hiPos - loPos + 1
	nbits := bitsForRange(rangeSize)
	if nbits > 0 {
		w.writeBits(values[mid]-loPos, nbits)
	}
	interpolativeEncode(w, values, lo, mid-1, lowBound, values[mid]-1)
	interpolativeEncode(w, values, mid+1, hi, values[mid]+1, highBound)
}

func interpolativeDecode(r *bitReader, values []uint64, lo, hi int, lowBound, highBound uint64) error {
	if lo > hi {
		return nil
	}
	mid := (lo + hi) / 2
	loPos := lowBound + uint64(mid-lo)
	hiPos := highBound - uint64(hi-mid)
	rangeSize := hiPos - loPos + 1
	nbits := bitsForRange(rangeSize)
	var off uint64
	if nbits > 0 {
		v, err := r.readBits(nbits)
		if err != nil {
			return err
		}
		off = v
	}
	values[mid] = loPos + off
	if err := interpolativeDecode(r, values, lo, mid-1, lowBound, values[mid]-1); err != nil {
		return err
	}
	return interpolativeDecode(r, values, mid+1, hi, values[mid]+1, highBound)
}

func (InterpolativeCodec) Compress(postings []uint64) ([]byte, int) {
	n := len(postings)
	w := &bitWriter{out: make([]byte, 1, 17)}
	w.out[0] = byte(MethodInterpolative)
	if n == 0 {
		return w.finish(), 1
	}
	first, last := postings[0], postings[n-1]
	w.writeBits(first, 64)
	w.writeBits(last, 64)
	if n > 2 {
		interpolativeEncode(w, postings, 1, n-2, first, last)
	}
	out := w.finish()
	return out, len(out)
}

func (InterpolativeCodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodInterpolative {
		return nil, 0, ErrMalformed
	}
	if cap(out) < expectedN {
		out = make([]uint64, expectedN)
	}
	out = out[:expectedN]
	if expectedN == 0 {
		return out, 0, nil
	}
	r := &bitReader{data: data, pos: 8}
	first, err := r.readBits(64)
	if err != nil {
		return nil, 0, err
	}
	out[0] = first
	if expectedN == 1 {
		return out, 1, nil
	}
	last, err := r.readBits(64)
	if err != nil {
		return nil, 0, err
	}
	out[expectedN-1] = last
	if expectedN > 2 {
		if err := interpolativeDecode(r, out, 1, expectedN-2, first, last); err != nil {
			return nil, 0, err
		}
	}
	return out, expectedN, nil
}
