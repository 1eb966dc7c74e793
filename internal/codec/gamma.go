package codec

import "math/bits"

// GammaCodec implements Elias gamma coding over delta gaps. Gamma codes
// require values >= 1, so every value is biased by +1 before encoding
// and debiased by -1 after decoding; this lets the first posting be 0
// without a special case.
type GammaCodec struct{}

func (GammaCodec) Method() Method { return MethodGamma }

func gammaEncode(w *bitWriter, v uint64) {
	v++ // bias so v==0 is representable
	n := bits.Len64(v) - 1
	w.writeUnary(uint64(n))
	if n > 0 {
		w.writeBits(v&((1<<uint(n))-1), uint(n))
	}
}

func gammaDecode(r *bitReader) (uint64, error) {
	n, err := r.readUnary()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil // v+1 == 1 -> v == 0
	}
	rem, err := r.readBits(uint(n))
	if err != nil {
		return 0, err
	}
	v := (uint64(1) << uint(n)) | rem
	return v - 1, nil
}

func (GammaCodec) Compress(postings []uint64) ([]byte, int) {
	values := gaps(postings)
	w := &bitWriter{out: []byte{byte(MethodGamma)}}
	for _, v := range values {
		gammaEncode(w, v)
	}
	out := w.finish()
	return out, len(out)
}

func (GammaCodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodGamma {
		return nil, 0, ErrMalformed
	}
	r := &bitReader{data: data, pos: 8}
	if cap(out) < expectedN && expectedN > 0 {
		out = make([]uint64, 0, expectedN)
	}
	out = out[:0]
	for i := 0; i < expectedN; i++ {
		v, err := gammaDecode(r)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	undoGaps(out)
	return out, len(out), nil
}
