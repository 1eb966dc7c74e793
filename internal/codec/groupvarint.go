package codec

// GroupVarIntCodec implements SIMD-friendly grouped variable-length
// integers: values are processed four at a time, each group prefixed by
// one selector byte encoding the byte-length (1-4) of each of the four
// values in 2 bits apiece, followed by the raw little-endian bytes of
// each value packed back to back. A trailing partial group of 1-3
// values is padded with zeros and still spends a full selector byte.
// Every group is followed by one escape-mask byte; a value that doesn't
// fit in 4 bytes stores its low 4 bytes under length code 3, sets its
// slot's bit in the mask, and appends its high 4 bytes after the mask.
type GroupVarIntCodec struct{}

func (GroupVarIntCodec) Method() Method { return MethodGroupVarInt }

func byteLen(v uint64) int {
	n := 1
	for v >= (1 << 8) {
		v >>= 8
		n++
	}
	if n > 4 {
		return 4
	}
	return n
}

func (GroupVarIntCodec) Compress(postings []uint64) ([]byte, int) {
	values := gaps(postings)
	out := []byte{byte(MethodGroupVarInt)}
	for i := 0; i < len(values); i += 4 {
		n := 4
		if i+n > len(values) {
			n = len(values) - i
		}
		var selector byte
		lens := make([]int, 4)
		wide := make([]bool, 4)
		for j := 0; j < 4; j++ {
			var v uint64
			if j < n {
				v = values[i+j]
			}
			l := byteLen(v)
			if v >= (1 << 32) {
				l = 4
				wide[j] = true
			}
			lens[j] = l
			selector |= byte(l-1) << uint(2*j)
		}
		out = append(out, selector)
		slotValues := make([]uint64, 4)
		for j := 0; j < 4; j++ {
			if j < n {
				slotValues[j] = values[i+j]
			}
			v := slotValues[j]
			for b := 0; b < lens[j]; b++ {
				out = append(out, byte(v>>(8*uint(b))))
			}
		}
		// encode wide flags compactly: one extra byte per group noting
		// which of the 4 slots escaped, followed by each escaped slot's
		// high 32 bits, in slot order.
		var escapeMask byte
		for j := 0; j < 4; j++ {
			if wide[j] {
				escapeMask |= 1 << uint(j)
			}
		}
		out = append(out, escapeMask)
		for j := 0; j < 4; j++ {
			if wide[j] {
				v := slotValues[j]
				out = append(out, byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
			}
		}
	}
	return out, len(out)
}

func (GroupVarIntCodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodGroupVarInt {
		return nil, 0, ErrMalformed
	}
	pos := 1
	if cap(out) < expectedN && expectedN > 0 {
		out = make([]uint64, 0, expectedN)
	}
	out = out[:0]
	for (expectedN <= 0 || len(out) < expectedN) && pos < len(data) {
		if pos >= len(data) {
			return nil, 0, ErrMalformed
		}
		selector := data[pos]
		pos++
		lens := make([]int, 4)
		for j := 0; j < 4; j++ {
			lens[j] = int((selector>>uint(2*j))&0x3) + 1
		}
		vals := make([]uint64, 4)
		for j := 0; j < 4; j++ {
			if pos+lens[j] > len(data) {
				return nil, 0, ErrMalformed
			}
			var v uint64
			for b := 0; b < lens[j]; b++ {
				v |= uint64(data[pos+b]) << (8 * uint(b))
			}
			pos += lens[j]
			vals[j] = v
		}
		if pos >= len(data) {
			return nil, 0, ErrMalformed
		}
		escapeMask := data[pos]
		pos++
		for j := 0; j < 4; j++ {
			if escapeMask&(1<<uint(j)) != 0 {
				if pos+4 > len(data) {
					return nil, 0, ErrMalformed
				}
				hi := uint64(data[pos]) | uint64(data[pos+1])<<8 | uint64(data[pos+2])<<16 | uint64(data[pos+3])<<24
				pos += 4
				vals[j] |= hi << 32
			}
		}
		for j := 0; j < 4; j++ {
			if expectedN > 0 && len(out) >= expectedN {
				break
			}
			out = append(out, vals[j])
		}
	}
	undoGaps(out)
	return out, len(out), nil
}
