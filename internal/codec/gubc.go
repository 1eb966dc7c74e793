package codec

// GUBCCodec ("Golomb with uniform bucket chunking") splits the gap
// sequence into fixed-size buckets and Golomb-codes each bucket with
// its own locally fitted parameter b, so a posting list whose gap
// distribution drifts over its length (a common pattern for long,
// frequent terms) isn't stuck with one global b.
type GUBCCodec struct{}

func (GUBCCodec) Method() Method { return MethodGUBC }

const gubcBucketSize = 32

func gubcBuckets(values []uint64, bucketSize int) [][]uint64 {
	var buckets [][]uint64
	for i := 0; i < len(values); i += bucketSize {
		end := i + bucketSize
		if end > len(values) {
			end = len(values)
		}
		buckets = append(buckets, values[i:end])
	}
	return buckets
}

func (GUBCCodec) Compress(postings []uint64) ([]byte, int) {
	values := gaps(postings)
	buckets := gubcBuckets(values, gubcBucketSize)

	header := make([]byte, 0, 1+4+len(buckets))
	header = append(header, byte(MethodGUBC))
	header = appendVByte(header, uint64(len(buckets)))
	for _, bucket := range buckets {
		b := golombB(bucket)
		header = appendVByte(header, b)
	}

	w := &bitWriter{}
	for _, bucket := range buckets {
		b := golombB(bucket)
		for _, v := range bucket {
			golombEncode(w, v, b)
		}
	}
	body := w.finish()
	out := append(header, body...)
	return out, len(out)
}

func (GUBCCodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodGUBC {
		return nil, 0, ErrMalformed
	}
	numBuckets, pos, err := readVByte(data, 1)
	if err != nil {
		return nil, 0, err
	}
	bs := make([]uint64, numBuckets)
	for i := range bs {
		v, next, err := readVByte(data, pos)
		if err != nil {
			return nil, 0, err
		}
		bs[i] = v
		pos = next
	}
	r := &bitReader{data: data, pos: pos * 8}
	if cap(out) < expectedN && expectedN > 0 {
		out = make([]uint64, 0, expectedN)
	}
	out = out[:0]
	remaining := expectedN
	for i := 0; i < int(numBuckets) && remaining > 0; i++ {
		n := gubcBucketSize
		if n > remaining {
			n = remaining
		}
		for j := 0; j < n; j++ {
			v, err := golombDecode(r, bs[i])
			if err != nil {
				return nil, 0, err
			}
			out = append(out, v)
		}
		remaining -= n
	}
	undoGaps(out)
	return out, len(out), nil
}

// GUBCIPCodec seeds GUBC with variable-width buckets: boundaries are
// chosen greedily by local cost and, because the cumulative boundary
// offsets are strictly increasing, stored with binary interpolative
// coding rather than one length field per bucket.
type GUBCIPCodec struct{}

func (GUBCIPCodec) Method() Method { return MethodGUBCIP }

// gubcipBoundaries greedily grows each bucket while adding the next
// value keeps the bucket's Golomb cost per element within 0.05 bits of
// the last accepted bucket's, capped at gubcBucketSize*4 elements.
func gubcipBoundaries(values []uint64) []int {
	var bounds []int
	i := 0
	for i < len(values) {
		j := i + 1
		bestEnd := j
		bestCost := golombCost(values[i:j])
		maxEnd := i + gubcBucketSize*4
		if maxEnd > len(values) {
			maxEnd = len(values)
		}
		for j < maxEnd {
			j++
			cost := golombCost(values[i:j])
			if cost/float64(j-i) <= bestCost/float64(bestEnd-i)+0.05 {
				bestEnd = j
				bestCost = cost
			} else {
				break
			}
		}
		bounds = append(bounds, bestEnd)
		i = bestEnd
	}
	return bounds
}

func golombCost(bucket []uint64) float64 {
	b := golombB(bucket)
	if b == 0 {
		b = 1
	}
	k, _ := truncatedBinaryBits(b)
	var bits float64
	for _, v := range bucket {
		bits += float64(v/b+1) + float64(k)
	}
	return bits
}

func (GUBCIPCodec) Compress(postings []uint64) ([]byte, int) {
	values := gaps(postings)
	bounds := gubcipBoundaries(values)

	w := &bitWriter{out: []byte{byte(MethodGUBCIP)}}
	w.writeBits(uint64(len(bounds)), 32)
	// bounds are strictly increasing and bounded by len(values); encode
	// the sequence directly with interpolative coding's recursive
	// midpoint scheme.
	cum := make([]uint64, len(bounds))
	for i, b := range bounds {
		cum[i] = uint64(b)
	}
	if len(cum) > 0 {
		w.writeBits(cum[0], 64)
		w.writeBits(cum[len(cum)-1], 64)
		if len(cum) > 2 {
			interpolativeEncode(w, cum, 1, len(cum)-2, cum[0], cum[len(cum)-1])
		}
	}
	start := 0
	for _, end := range bounds {
		bucket := values[start:end]
		b := golombB(bucket)
		w.writeBits(b, 40)
		for _, v := range bucket {
			golombEncode(w, v, b)
		}
		start = end
	}
	out := w.finish()
	return out, len(out)
}

func (GUBCIPCodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodGUBCIP {
		return nil, 0, ErrMalformed
	}
	r := &bitReader{data: data, pos: 8}
	numBounds, err := r.readBits(32)
	if err != nil {
		return nil, 0, err
	}
	cum := make([]uint64, numBounds)
	if numBounds > 0 {
		first, err := r.readBits(64)
		if err != nil {
			return nil, 0, err
		}
		last, err := r.readBits(64)
		if err != nil {
			return nil, 0, err
		}
		cum[0] = first
		cum[numBounds-1] = last
		if numBounds > 2 {
			if err := interpolativeDecode(r, cum, 1, int(numBounds)-2, first, last); err != nil {
				return nil, 0, err
			}
		}
	}
	if cap(out) < expectedN && expectedN > 0 {
		out = make([]uint64, 0, expectedN)
	}
	out = out[:0]
	for _, end := range cum {
		b, err := r.readBits(40)
		if err != nil {
			return nil, 0, err
		}
		if b == 0 {
			b = 1
		}
		for uint64(len(out)) < end {
			v, err := golombDecode(r, b)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, v)
		}
	}
	undoGaps(out)
	return out, len(out), nil
}
