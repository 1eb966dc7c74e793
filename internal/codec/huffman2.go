package codec

// Huffman2Codec is the classic two-pass static Huffman coder with an
// explicit table: a first pass tallies gap frequencies, a canonical
// code is derived and written explicitly
// at the head of the segment, and a second pass emits each gap's code.
// Unlike MethodHuffmanDirect it never needs an escape symbol, at the
// cost of shipping the table up front.
type Huffman2Codec struct{}

func (Huffman2Codec) Method() Method { return MethodHuffman2 }

func (Huffman2Codec) Compress(postings []uint64) ([]byte, int) {
	values := gaps(postings)
	tree := buildHuffman(values)
	table := tree.codeTable()

	w := &bitWriter{out: []byte{byte(MethodHuffman2)}}
	tree.encodeTable(w)
	for _, v := range values {
		hc := table[v]
		w.writeBits(hc.code, uint(hc.length))
	}
	out := w.finish()
	return out, len(out)
}

func (Huffman2Codec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodHuffman2 {
		return nil, 0, ErrMalformed
	}
	r := &bitReader{data: data, pos: 8}
	tree, err := decodeHuffmanTable(r)
	if err != nil {
		return nil, 0, err
	}
	if cap(out) < expectedN && expectedN > 0 {
		out = make([]uint64, 0, expectedN)
	}
	out = out[:0]
	for i := 0; i < expectedN; i++ {
		v, err := tree.decodeOne(r)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	undoGaps(out)
	return out, len(out), nil
}
