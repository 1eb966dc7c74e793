package codec

// HuffmanDirectCodec approximates adaptive Huffman coding over gap
// values: rather than shipping an explicit table, encoder and decoder
// both maintain the same running frequency
// count and deterministically rebuild the canonical code every
// huffmanDirectRebuildPeriod symbols, so no table ever needs to cross
// the wire. A symbol seen for the first time has no code yet; it is
// signalled by a reserved escape symbol followed by the raw 64-bit
// value, the same trick adaptive coders use for a "not yet
// transmitted" node.
type HuffmanDirectCodec struct{}

func (HuffmanDirectCodec) Method() Method { return MethodHuffmanDirect }

const huffmanDirectRebuildPeriod = 64

// huffmanEscapeSym stands in for the adaptive coder's NYT node. Gap
// values are deltas between postings and in practice never reach
// ^uint64(0); nothing checks for that gap, and a list containing it
// would collide with the escape symbol.
const huffmanEscapeSym = ^uint64(0)

func (HuffmanDirectCodec) Compress(postings []uint64) ([]byte, int) {
	values := gaps(postings)
	w := &bitWriter{out: []byte{byte(MethodHuffmanDirect)}}

	freq := map[uint64]uint64{huffmanEscapeSym: 1}
	tree := buildHuffmanFromFreq(freq)
	table := tree.codeTable()

	for i, v := range values {
		if hc, ok := table[v]; ok {
			w.writeBits(hc.code, uint(hc.length))
		} else {
			esc := table[huffmanEscapeSym]
			w.writeBits(esc.code, uint(esc.length))
			w.writeBits(v, 64)
		}
		freq[v]++
		if (i+1)%huffmanDirectRebuildPeriod == 0 {
			tree = buildHuffmanFromFreq(freq)
			table = tree.codeTable()
		}
	}
	out := w.finish()
	return out, len(out)
}

func (HuffmanDirectCodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodHuffmanDirect {
		return nil, 0, ErrMalformed
	}
	r := &bitReader{data: data, pos: 8}
	if cap(out) < expectedN && expectedN > 0 {
		out = make([]uint64, 0, expectedN)
	}
	out = out[:0]

	freq := map[uint64]uint64{huffmanEscapeSym: 1}
	tree := buildHuffmanFromFreq(freq)

	for i := 0; i < expectedN; i++ {
		sym, err := tree.decodeOne(r)
		if err != nil {
			return nil, 0, err
		}
		var v uint64
		if sym == huffmanEscapeSym {
			v, err = r.readBits(64)
			if err != nil {
				return nil, 0, err
			}
		} else {
			v = sym
		}
		out = append(out, v)
		freq[v]++
		if (i+1)%huffmanDirectRebuildPeriod == 0 {
			tree = buildHuffmanFromFreq(freq)
		}
	}
	undoGaps(out)
	return out, len(out), nil
}
