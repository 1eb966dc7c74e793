package codec

import "math/bits"

// RiceCodec implements Golomb-Rice coding: quotient in unary, remainder
// in a fixed number of bits, with the bit-width chosen per chunk from
// the chunk's mean gap (a power of two, so remainder extraction is a
// shift instead of a division) and stored inline after the method tag.
type RiceCodec struct{}

func (RiceCodec) Method() Method { return MethodRice }

func riceParam(values []uint64) uint {
	if len(values) == 0 {
		return 0
	}
	var sum uint64
	for _, v := range values {
		sum += v
	}
	mean := sum / uint64(len(values))
	if mean < 1 {
		return 0
	}
	return uint(bits.Len64(mean))
}

func (RiceCodec) Compress(postings []uint64) ([]byte, int) {
	values := gaps(postings)
	k := riceParam(values)
	w := &bitWriter{out: []byte{byte(MethodRice), byte(k)}}
	mask := uint64(1)<<k - 1
	for _, v := range values {
		q := v >> k
		w.writeUnary(q)
		if k > 0 {
			w.writeBits(v&mask, k)
		}
	}
	out := w.finish()
	return out, len(out)
}

func (RiceCodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 2 || Method(data[0]) != MethodRice {
		return nil, 0, ErrMalformed
	}
	k := uint(data[1])
	r := &bitReader{data: data, pos: 16}
	if cap(out) < expectedN && expectedN > 0 {
		out = make([]uint64, 0, expectedN)
	}
	out = out[:0]
	for i := 0; i < expectedN; i++ {
		q, err := r.readUnary()
		if err != nil {
			return nil, 0, err
		}
		var rem uint64
		if k > 0 {
			rem, err = r.readBits(k)
			if err != nil {
				return nil, 0, err
			}
		}
		out = append(out, (q<<k)|rem)
	}
	undoGaps(out)
	return out, len(out), nil
}
