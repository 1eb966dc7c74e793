package codec

// BestCodec is a compressor-only meta-scheme: it runs a fixed set of
// candidate codecs over the same postings and keeps whichever produced
// the fewest bytes, writing that codec's own tag. There is
// nothing to decompress under MethodBest itself; DecompressAny never
// sees that tag on the wire because Compress always rewrites it to the
// winner's tag.
type BestCodec struct {
	Candidates []Codec
}

func (BestCodec) Method() Method { return MethodBest }

// DefaultBestCandidates covers the general-purpose codecs cheap enough
// to try on every segment; Golomb/GUBC variants are deliberately
// excluded because their per-chunk parameter search already costs as
// much as an extra compression pass.
func DefaultBestCandidates() []Codec {
	return []Codec{
		VByteCodec{},
		GammaCodec{},
		DeltaCodec{},
		RiceCodec{},
		Simple9Codec{},
		InterpolativeCodec{},
	}
}

func (b BestCodec) Compress(postings []uint64) ([]byte, int) {
	candidates := b.Candidates
	if candidates == nil {
		candidates = DefaultBestCandidates()
	}
	var bestData []byte
	bestSize := -1
	for _, c := range candidates {
		data, size := c.Compress(postings)
		if bestSize < 0 || size < bestSize {
			bestData, bestSize = data, size
		}
	}
	return bestData, bestSize
}

// Decompress is unreachable in practice: MethodBest never appears as a
// tag on disk. It is implemented for interface completeness and
// returns ErrUnsupportedMethod, so a caller that somehow persisted the
// raw tag gets a clear error rather than a panic.
func (BestCodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	return nil, 0, ErrUnsupportedMethod
}
