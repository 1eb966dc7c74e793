package codec

import "encoding/binary"

// NoneCodec stores postings as fixed-width, absolute, 8-byte
// little-endian values. It is reachable through ByMethod but is not
// one of the default MethodBest candidates.
type NoneCodec struct{}

func (NoneCodec) Method() Method { return MethodNone }

func (NoneCodec) Compress(postings []uint64) ([]byte, int) {
	out := make([]byte, 1+8*len(postings))
	out[0] = byte(MethodNone)
	for i, p := range postings {
		binary.LittleEndian.PutUint64(out[1+8*i:], p)
	}
	return out, len(out)
}

func (NoneCodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodNone {
		return nil, 0, ErrMalformed
	}
	body := data[1:]
	if len(body)%8 != 0 {
		return nil, 0, ErrMalformed
	}
	n := len(body) / 8
	if expectedN > 0 && expectedN != n {
		return nil, 0, ErrMalformed
	}
	if cap(out) < n {
		out = make([]uint64, n)
	}
	out = out[:n]
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint64(body[8*i:])
	}
	return out, n, nil
}
