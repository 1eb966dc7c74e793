package codec

import "math/bits"

// DeltaCodec implements Elias delta coding over delta gaps: the
// bit-length of each (biased) value is itself gamma coded, followed by
// the value's remaining bits. Delta coding spends more bits than gamma
// on small values but scales better to large gaps.
type DeltaCodec struct{}

func (DeltaCodec) Method() Method { return MethodDelta }

func deltaEncode(w *bitWriter, v uint64) {
	v++ // bias so v==0 is representable
	n := bits.Len64(v) - 1
	gammaEncode(w, uint64(n))
	if n > 0 {
		w.writeBits(v&((1<<uint(n))-1), uint(n))
	}
}

func deltaDecode(r *bitReader) (uint64, error) {
	n, err := gammaDecode(r)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	rem, err := r.readBits(uint(n))
	if err != nil {
		return 0, err
	}
	v := (uint64(1) << uint(n)) | rem
	return v - 1, nil
}

func (DeltaCodec) Compress(postings []uint64) ([]byte, int) {
	values := gaps(postings)
	w := &bitWriter{out: []byte{byte(MethodDelta)}}
	for _, v := range values {
		deltaEncode(w, v)
	}
	out := w.finish()
	return out, len(out)
}

func (DeltaCodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodDelta {
		return nil, 0, ErrMalformed
	}
	r := &bitReader{data: data, pos: 8}
	if cap(out) < expectedN && expectedN > 0 {
		out = make([]uint64, 0, expectedN)
	}
	out = out[:0]
	for i := 0; i < expectedN; i++ {
		v, err := deltaDecode(r)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	undoGaps(out)
	return out, len(out), nil
}
