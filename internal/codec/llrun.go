package codec

// LLRunCodec implements run-length coding over gap magnitude classes
// followed by Huffman coding of the run lengths: gaps are bucketed by
// their bit length (as Elias gamma would bucket them), consecutive
// equal bit-length runs are collapsed to (bitLength, runLength) pairs,
// and the run lengths are
// Huffman coded against a table built from the actual run-length
// distribution in this segment. The remainder bits of each value (all
// but its leading 1) are stored verbatim, matching gamma's low part.
type LLRunCodec struct{}

func (LLRunCodec) Method() Method { return MethodLLRun }

type llrunEntry struct {
	bitLen int
	run    int
}

func llrunClasses(values []uint64) []llrunEntry {
	var entries []llrunEntry
	for i := 0; i < len(values); {
		bl := bitLen(values[i])
		j := i + 1
		for j < len(values) && bitLen(values[j]) == bl {
			j++
		}
		entries = append(entries, llrunEntry{bl, j - i})
		i = j
	}
	return entries
}

func (LLRunCodec) Compress(postings []uint64) ([]byte, int) {
	values := gaps(postings)
	entries := llrunClasses(values)

	runLengths := make([]uint64, len(entries))
	for i, e := range entries {
		runLengths[i] = uint64(e.run)
	}
	tree := buildHuffman(runLengths)
	table := tree.codeTable()

	w := &bitWriter{out: []byte{byte(MethodLLRun)}}
	// header: number of run entries, then the huffman table, then the
	// per-entry bit-length classes (gamma coded, small alphabet), then
	// huffman-coded run lengths, then raw remainder bits in value order.
	writeHeaderUint32(w, uint32(len(entries)))
	tree.encodeTable(w)
	for _, e := range entries {
		gammaEncode(w, uint64(e.bitLen)+1)
	}
	for _, rl := range runLengths {
		hc := table[rl]
		w.writeBits(hc.code, uint(hc.length))
	}
	for _, v := range values {
		bl := bitLen(v)
		if bl > 1 {
			w.writeBits(v&((1<<uint(bl-1))-1), uint(bl-1))
		}
	}
	out := w.finish()
	return out, len(out)
}

func (LLRunCodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodLLRun {
		return nil, 0, ErrMalformed
	}
	r := &bitReader{data: data, pos: 8}
	numEntries, err := readHeaderUint32(r)
	if err != nil {
		return nil, 0, err
	}
	tree, err := decodeHuffmanTable(r)
	if err != nil {
		return nil, 0, err
	}
	entries := make([]llrunEntry, numEntries)
	total := 0
	for i := range entries {
		v, err := gammaDecode(r)
		if err != nil {
			return nil, 0, err
		}
		entries[i].bitLen = int(v) - 1
	}
	for i := range entries {
		rl, err := tree.decodeOne(r)
		if err != nil {
			return nil, 0, err
		}
		entries[i].run = int(rl)
		total += entries[i].run
	}
	if cap(out) < total {
		out = make([]uint64, 0, total)
	}
	out = out[:0]
	for _, e := range entries {
		for k := 0; k < e.run; k++ {
			var v uint64 = 1
			if e.bitLen > 1 {
				rem, err := r.readBits(uint(e.bitLen - 1))
				if err != nil {
					return nil, 0, err
				}
				v = (uint64(1) << uint(e.bitLen-1)) | rem
			} else if e.bitLen == 0 {
				v = 0
			}
			out = append(out, v)
		}
	}
	undoGaps(out)
	return out, len(out), nil
}

func writeHeaderUint32(w *bitWriter, v uint32) {
	w.writeBits(uint64(v), 32)
}

func readHeaderUint32(r *bitReader) (uint32, error) {
	v, err := r.readBits(32)
	return uint32(v), err
}
