package codec

import (
	"container/heap"
	"sort"
)

// huffmanTree is a canonical Huffman code: symbols are ordered by
// (code length, symbol value) and codes are assigned in that order so
// the table can be rebuilt from (symbol, length) pairs alone, without
// shipping the codes themselves. Used by MethodHuffmanDirect,
// MethodHuffman2 and the run-length stage of MethodLLRun.
type huffmanTree struct {
	symbols []uint64
	lengths []int
	codes   []uint64 // parallel to symbols, in canonical order

	decodeRoot *huffNode
}

type huffCode struct {
	code   uint64
	length int
}

type huffNode struct {
	sym         uint64
	isLeaf      bool
	left, right *huffNode
}

type pqNode struct {
	freq        uint64
	sym         uint64
	isLeaf      bool
	left, right *pqNode
	seq         int // tie-break so heap order is deterministic
}

type nodePQ []*pqNode

func (p nodePQ) Len() int { return len(p) }
func (p nodePQ) Less(i, j int) bool {
	if p[i].freq != p[j].freq {
		return p[i].freq < p[j].freq
	}
	return p[i].seq < p[j].seq
}
func (p nodePQ) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p *nodePQ) Push(x any)        { *p = append(*p, x.(*pqNode)) }
func (p *nodePQ) Pop() any {
	old := *p
	n := len(old)
	item := old[n-1]
	*p = old[:n-1]
	return item
}

// buildHuffman constructs a canonical code for the symbols present in
// values, weighted by frequency of occurrence.
func buildHuffman(values []uint64) *huffmanTree {
	freq := make(map[uint64]uint64)
	for _, v := range values {
		freq[v]++
	}
	return buildHuffmanFromFreq(freq)
}

// buildHuffmanFromFreq builds a canonical code directly from a
// pre-tallied frequency table, letting callers maintain their own
// running counts across incremental rebuilds (MethodHuffmanDirect).
func buildHuffmanFromFreq(freq map[uint64]uint64) *huffmanTree {
	if len(freq) == 0 {
		return &huffmanTree{}
	}
	pq := &nodePQ{}
	heap.Init(pq)
	seq := 0
	syms := make([]uint64, 0, len(freq))
	for s := range freq {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	for _, s := range syms {
		heap.Push(pq, &pqNode{freq: freq[s], sym: s, isLeaf: true, seq: seq})
		seq++
	}
	if pq.Len() == 1 {
		only := heap.Pop(pq).(*pqNode)
		return canonicalize(map[uint64]int{only.sym: 1})
	}
	for pq.Len() > 1 {
		a := heap.Pop(pq).(*pqNode)
		b := heap.Pop(pq).(*pqNode)
		heap.Push(pq, &pqNode{freq: a.freq + b.freq, left: a, right: b, seq: seq})
		seq++
	}
	root := heap.Pop(pq).(*pqNode)
	lengths := make(map[uint64]int)
	var walk func(n *pqNode, depth int)
	walk = func(n *pqNode, depth int) {
		if n.isLeaf {
			if depth == 0 {
				depth = 1
			}
			lengths[n.sym] = depth
			return
		}
		walk(n.left, depth+1)
		walk(n.right, depth+1)
	}
	walk(root, 0)
	return canonicalize(lengths)
}

func canonicalize(lengths map[uint64]int) *huffmanTree {
	symbols := make([]uint64, 0, len(lengths))
	for s := range lengths {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool {
		li, lj := lengths[symbols[i]], lengths[symbols[j]]
		if li != lj {
			return li < lj
		}
		return symbols[i] < symbols[j]
	})
	codes := make([]uint64, len(symbols))
	lens := make([]int, len(symbols))
	var code uint64
	prevLen := 0
	for i, s := range symbols {
		l := lengths[s]
		if i > 0 {
			code <<= uint(l - prevLen)
		}
		codes[i] = code
		lens[i] = l
		code++
		prevLen = l
	}
	t := &huffmanTree{symbols: symbols, lengths: lens, codes: codes}
	t.buildDecodeTrie()
	return t
}

func (t *huffmanTree) buildDecodeTrie() {
	root := &huffNode{}
	for i, sym := range t.symbols {
		n := root
		l := t.lengths[i]
		c := t.codes[i]
		for b := l - 1; b >= 0; b-- {
			bit := (c >> uint(b)) & 1
			if bit == 0 {
				if n.left == nil {
					n.left = &huffNode{}
				}
				n = n.left
			} else {
				if n.right == nil {
					n.right = &huffNode{}
				}
				n = n.right
			}
		}
		n.isLeaf = true
		n.sym = sym
	}
	t.decodeRoot = root
}

func (t *huffmanTree) codeTable() map[uint64]huffCode {
	m := make(map[uint64]huffCode, len(t.symbols))
	for i, s := range t.symbols {
		m[s] = huffCode{code: t.codes[i], length: t.lengths[i]}
	}
	return m
}

// encodeTable writes the symbol count followed by (symbol, length)
// pairs in canonical order so decodeHuffmanTable can reconstruct identical codes.
func (t *huffmanTree) encodeTable(w *bitWriter) {
	w.writeBits(uint64(len(t.symbols)), 32)
	for i, s := range t.symbols {
		w.writeBits(s, 64)
		w.writeBits(uint64(t.lengths[i]), 8)
	}
}

func decodeHuffmanTable(r *bitReader) (*huffmanTree, error) {
	n, err := r.readBits(32)
	if err != nil {
		return nil, err
	}
	lengths := make(map[uint64]int, n)
	for i := uint64(0); i < n; i++ {
		sym, err := r.readBits(64)
		if err != nil {
			return nil, err
		}
		l, err := r.readBits(8)
		if err != nil {
			return nil, err
		}
		lengths[sym] = int(l)
	}
	if len(lengths) == 0 {
		return &huffmanTree{}, nil
	}
	return canonicalize(lengths), nil
}

// decodeOne walks the decode trie bit by bit until a leaf is reached.
func (t *huffmanTree) decodeOne(r *bitReader) (uint64, error) {
	if t.decodeRoot == nil {
		return 0, ErrMalformed
	}
	n := t.decodeRoot
	if n.isLeaf {
		return n.sym, nil
	}
	for {
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		if bit == 0 {
			n = n.left
		} else {
			n = n.right
		}
		if n == nil {
			return 0, ErrMalformed
		}
		if n.isLeaf {
			return n.sym, nil
		}
	}
}
