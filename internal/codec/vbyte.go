package codec

// VByteCodec implements the classic variable-byte scheme:
// 7 payload bits per byte, high bit set means "more bytes follow" —
// matching the widely known vByte/LEB128-style encoding. The first
// posting is written absolute, subsequent ones as gaps.
type VByteCodec struct{}

func (VByteCodec) Method() Method { return MethodVByte }

// AppendVarint and ReadVarint expose the vByte primitive for other
// packages (compactindex's singleton term records, the dictionary's
// per-term posting buffers) that need a compact self-terminating integer encoding
// without pulling in a full Codec.
func AppendVarint(out []byte, v uint64) []byte { return appendVByte(out, v) }

func ReadVarint(data []byte, pos int) (uint64, int, error) { return readVByte(data, pos) }

func appendVByte(out []byte, v uint64) []byte {
	for v >= 0x80 {
		out = append(out, byte(v&0x7f)|0x80)
		v >>= 7
	}
	return append(out, byte(v))
}

func readVByte(data []byte, pos int) (uint64, int, error) {
	var v uint64
	var shift uint
	for {
		if pos >= len(data) {
			return 0, pos, ErrMalformed
		}
		b := data[pos]
		pos++
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, pos, nil
		}
		shift += 7
		if shift > 63 {
			return 0, pos, ErrMalformed
		}
	}
}

func (VByteCodec) Compress(postings []uint64) ([]byte, int) {
	values := gaps(postings)
	out := make([]byte, 1, 1+len(postings))
	out[0] = byte(MethodVByte)
	for _, v := range values {
		out = appendVByte(out, v)
	}
	return out, len(out)
}

func (VByteCodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodVByte {
		return nil, 0, ErrMalformed
	}
	if cap(out) < expectedN && expectedN > 0 {
		out = make([]uint64, 0, expectedN)
	}
	out = out[:0]
	pos := 1
	for pos < len(data) {
		v, next, err := readVByte(data, pos)
		if err != nil {
			return nil, 0, err
		}
		pos = next
		out = append(out, v)
	}
	if expectedN > 0 && len(out) != expectedN {
		return nil, 0, ErrMalformed
	}
	undoGaps(out)
	return out, len(out), nil
}
