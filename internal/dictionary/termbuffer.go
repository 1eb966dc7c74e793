package dictionary

import "github.com/salvatore-campagna/indexcore/internal/codec"

const (
	initialChunkSize = 6
	chunkGrowthRate  = 1.25
)

// termBuffer accumulates one term's vByte-gap-coded postings. Two
// allocation strategies are supported:
//
//   - groupedChunks (default): geometrically-growing chunks drawn from
//     a shared Arena, appended to a chunk list as they fill.
//   - realloc: a single contiguous []byte grown by Go's own append,
//     the natural equivalent of the original's realloc() strategy.
type termBuffer struct {
	strategy AllocStrategy
	arena    *Arena

	// groupedChunks state.
	chunks    [][]byte
	cur       []byte
	curLen    int
	nextChunk int

	// realloc state.
	flat []byte

	count       int
	lastPosting uint64
}

// AllocStrategy selects how a term's posting buffer grows.
type AllocStrategy int

const (
	GroupedChunks AllocStrategy = iota
	Realloc
)

func newTermBuffer(strategy AllocStrategy, arena *Arena) *termBuffer {
	return &termBuffer{strategy: strategy, arena: arena, nextChunk: initialChunkSize}
}

// appendGap writes a gap-coded posting (the caller has already computed
// posting - lastPosting) to the buffer.
func (b *termBuffer) appendGap(gap uint64) {
	encoded := codec.AppendVarint(nil, gap)
	switch b.strategy {
	case Realloc:
		b.flat = append(b.flat, encoded...)
	default:
		for _, by := range encoded {
			b.appendByteChunked(by)
		}
	}
}

func (b *termBuffer) appendByteChunked(by byte) {
	if b.curLen == len(b.cur) {
		if b.cur != nil {
			b.chunks = append(b.chunks, b.cur[:b.curLen])
		}
		size := b.nextChunk
		b.cur = b.arena.alloc(size)
		b.curLen = 0
		b.nextChunk = int(float64(size) * chunkGrowthRate)
		if b.nextChunk <= size {
			b.nextChunk = size + 1
		}
	}
	b.cur[b.curLen] = by
	b.curLen++
}

// addPosting records posting (absolute, strictly increasing), gap
// coding it relative to the previous posting for this term.
func (b *termBuffer) addPosting(posting uint64) {
	gap := posting
	if b.count > 0 {
		gap = posting - b.lastPosting
	}
	b.appendGap(gap)
	b.lastPosting = posting
	b.count++
}

// bytes returns the full encoded byte stream, concatenating chunks (or
// returning the flat buffer directly for the realloc strategy).
func (b *termBuffer) bytes() []byte {
	if b.strategy == Realloc {
		return b.flat
	}
	total := 0
	for _, c := range b.chunks {
		total += len(c)
	}
	total += b.curLen
	out := make([]byte, 0, total)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	out = append(out, b.cur[:b.curLen]...)
	return out
}

// decode reconstructs the absolute posting sequence.
func (b *termBuffer) decode() ([]uint64, error) {
	data := b.bytes()
	out := make([]uint64, 0, b.count)
	pos := 0
	var last uint64
	for i := 0; i < b.count; i++ {
		gap, next, err := codec.ReadVarint(data, pos)
		if err != nil {
			return nil, err
		}
		pos = next
		if i == 0 {
			last = gap
		} else {
			last += gap
		}
		out = append(out, last)
	}
	return out, nil
}

// byteLen reports the encoded size in bytes. Dictionary.MemoryOccupied
// does not use it; it counts realloc buffers by capacity and grouped
// chunks through the shared Arena.
func (b *termBuffer) byteLen() int {
	if b.strategy == Realloc {
		return len(b.flat)
	}
	total := b.curLen
	for _, c := range b.chunks {
		total += len(c)
	}
	return total
}
