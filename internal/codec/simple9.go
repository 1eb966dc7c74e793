package codec

import "encoding/binary"

// Simple9Codec packs up to 28 gap-coded values into each 32-bit word: a
// 4-bit selector picks one of nine (count, width) layouts, and the
// remaining 28 bits hold `count` fixed-width values of `width` bits
// each. A chunk whose values overflow the selector's width falls back
// to progressively wider layouts. A gap too large even for the 1x28
// layout is written as an escape word (selector 15) followed by the
// raw 64-bit value, so arbitrary monotone input still round-trips.
type Simple9Codec struct{}

func (Simple9Codec) Method() Method { return MethodSimple9 }

type simple9Layout struct {
	count int
	width uint
}

var simple9Layouts = []simple9Layout{
	{28, 1}, {14, 2}, {9, 3}, {7, 4}, {5, 5}, {4, 7}, {3, 9}, {2, 14}, {1, 28},
}

// simple9Escape marks a word whose value did not fit any layout; the
// raw 64-bit value follows in the next 8 bytes.
const simple9Escape = 15

func simple9Fits(v uint64, width uint) bool {
	if width >= 64 {
		return true
	}
	return v < (uint64(1) << width)
}

func (Simple9Codec) Compress(postings []uint64) ([]byte, int) {
	values := gaps(postings)
	out := make([]byte, 1, 5+4*len(values))
	out[0] = byte(MethodSimple9)

	i := 0
	for i < len(values) {
		// Pick the narrowest layout (most values per word) that fits
		// the next run of values.
		chosen := -1
		for li, layout := range simple9Layouts {
			n := layout.count
			if i+n > len(values) {
				n = len(values) - i
			}
			ok := true
			for j := 0; j < n; j++ {
				if !simple9Fits(values[i+j], layout.width) {
					ok = false
					break
				}
			}
			if ok {
				chosen = li
				break
			}
		}
		if chosen == -1 {
			var buf [12]byte
			binary.LittleEndian.PutUint32(buf[0:4], uint32(simple9Escape)<<28)
			binary.LittleEndian.PutUint64(buf[4:12], values[i])
			out = append(out, buf[:]...)
			i++
			continue
		}
		layout := simple9Layouts[chosen]
		n := layout.count
		if i+n > len(values) {
			n = len(values) - i
		}
		var word uint32
		word = uint32(chosen) << 28
		for j := 0; j < n; j++ {
			word |= uint32(values[i+j]) << (layout.width * uint(j))
		}
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], word)
		out = append(out, buf[:]...)
		i += n
	}
	return out, len(out)
}

func (Simple9Codec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodSimple9 {
		return nil, 0, ErrMalformed
	}
	body := data[1:]
	if len(body)%4 != 0 {
		return nil, 0, ErrMalformed
	}
	if cap(out) < expectedN && expectedN > 0 {
		out = make([]uint64, 0, expectedN)
	}
	out = out[:0]
	for off := 0; off < len(body) && (expectedN <= 0 || len(out) < expectedN); off += 4 {
		word := binary.LittleEndian.Uint32(body[off:])
		sel := word >> 28
		if sel == simple9Escape {
			if off+12 > len(body) {
				return nil, 0, ErrMalformed
			}
			out = append(out, binary.LittleEndian.Uint64(body[off+4:]))
			off += 8
			continue
		}
		if int(sel) >= len(simple9Layouts) {
			return nil, 0, ErrMalformed
		}
		layout := simple9Layouts[sel]
		mask := uint32(1)<<layout.width - 1
		if layout.width == 32 {
			mask = 0xffffffff
		}
		for j := 0; j < layout.count; j++ {
			if expectedN > 0 && len(out) >= expectedN {
				break
			}
			v := (word >> (layout.width * uint(j))) & mask
			out = append(out, uint64(v))
		}
	}
	if expectedN > 0 && len(out) != expectedN {
		return nil, 0, ErrMalformed
	}
	undoGaps(out)
	return out, len(out), nil
}
