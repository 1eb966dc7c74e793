package codec

import (
	"math/rand"
	"testing"
)

func strictlyIncreasing(n int, maxGap uint64, seed int64) []uint64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]uint64, n)
	var cur uint64
	for i := 0; i < n; i++ {
		if i > 0 {
			cur += 1 + uint64(rng.Int63n(int64(maxGap)))
		}
		out[i] = cur
	}
	return out
}

func allCodecs() []Codec {
	return []Codec{
		NoneCodec{},
		VByteCodec{},
		GammaCodec{},
		DeltaCodec{},
		RiceCodec{},
		GolombCodec{},
		Simple9Codec{},
		InterpolativeCodec{},
		NibbleCodec{},
		PForDeltaCodec{},
		GroupVarIntCodec{},
		LLRunCodec{},
		GUBCCodec{},
		GUBCIPCodec{},
		HuffmanDirectCodec{},
		Huffman2Codec{},
		InterpolativeSICodec{},
		RiceSICodec{},
	}
}

func TestCodecsRoundTripSmall(t *testing.T) {
	inputs := [][]uint64{
		{},
		{0},
		{5},
		{0, 1, 2, 3, 4, 5},
		{10, 20, 30, 1000, 1001, 50000},
		strictlyIncreasing(500, 37, 1),
		strictlyIncreasing(1200, 3, 2),
		strictlyIncreasing(64, 1<<20, 3),
	}
	for _, c := range allCodecs() {
		for _, in := range inputs {
			data, size := c.Compress(in)
			if size != len(data) {
				t.Fatalf("%T: size %d does not match data length %d", c, size, len(data))
			}
			out, n, err := c.Decompress(data, len(in), nil)
			if err != nil {
				t.Fatalf("%T: decompress error on %d postings: %v", c, len(in), err)
			}
			if n != len(in) {
				t.Fatalf("%T: decoded count %d, want %d", c, n, len(in))
			}
			for i := range in {
				if out[i] != in[i] {
					t.Fatalf("%T: mismatch at %d: got %d want %d (input %v)", c, i, out[i], in[i], in)
				}
			}
		}
	}
}

func TestDecompressAnyDispatchesOnTag(t *testing.T) {
	in := strictlyIncreasing(300, 12, 42)
	for _, c := range allCodecs() {
		data, _ := c.Compress(in)
		out, n, err := DecompressAny(data, len(in), nil)
		if err != nil {
			t.Fatalf("%T: DecompressAny error: %v", c, err)
		}
		if n != len(in) {
			t.Fatalf("%T: DecompressAny count %d, want %d", c, n, len(in))
		}
		for i := range in {
			if out[i] != in[i] {
				t.Fatalf("%T: DecompressAny mismatch at %d", c, i)
			}
		}
	}
}

func TestBestCodecPicksSmallest(t *testing.T) {
	in := strictlyIncreasing(2000, 2, 7)
	best := BestCodec{}
	data, size := best.Compress(in)
	if size != len(data) {
		t.Fatalf("size mismatch: %d vs %d", size, len(data))
	}
	for _, c := range DefaultBestCandidates() {
		candData, candSize := c.Compress(in)
		if candSize < size {
			t.Fatalf("BestCodec chose a %d-byte encoding but %T achieved %d bytes", size, c, len(candData))
		}
	}
	out, n, err := DecompressAny(data, len(in), nil)
	if err != nil {
		t.Fatalf("decompress winner: %v", err)
	}
	if n != len(in) {
		t.Fatalf("got %d postings, want %d", n, len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d", i)
		}
	}
}

func TestMalformedTagRejected(t *testing.T) {
	_, _, err := DecompressAny([]byte{0xff, 1, 2, 3}, 1, nil)
	if err != ErrUnsupportedMethod {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
	_, _, err = DecompressAny(nil, 1, nil)
	if err != ErrMalformed {
		t.Fatalf("expected ErrMalformed for empty input, got %v", err)
	}
}

func TestMergeCompressedListsSplicesWithoutDecoding(t *testing.T) {
	a := []uint64{5, 12, 130}
	b := []uint64{200, 205, 16384}
	ca, _ := VByteCodec{}.Compress(a)
	cb, _ := VByteCodec{}.Compress(b)

	merged, size, err := MergeCompressedLists(ca, cb, a[len(a)-1])
	if err != nil {
		t.Fatalf("MergeCompressedLists: %v", err)
	}
	if size != len(merged) {
		t.Fatalf("size mismatch: %d vs %d", size, len(merged))
	}
	want := append(append([]uint64(nil), a...), b...)
	out, n, err := DecompressAny(merged, len(want), nil)
	if err != nil {
		t.Fatalf("decompress merged: %v", err)
	}
	if n != len(want) {
		t.Fatalf("got %d postings, want %d", n, len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("posting %d = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestMergeCompressedListsRejectsOverlapAndForeignTags(t *testing.T) {
	ca, _ := VByteCodec{}.Compress([]uint64{1, 2, 3})
	cb, _ := VByteCodec{}.Compress([]uint64{2, 4})
	if _, _, err := MergeCompressedLists(ca, cb, 3); err != ErrMalformed {
		t.Fatalf("overlapping lists: got %v, want ErrMalformed", err)
	}
	cg, _ := GammaCodec{}.Compress([]uint64{10, 20})
	if _, _, err := MergeCompressedLists(ca, cg, 3); err != ErrUnsupportedMethod {
		t.Fatalf("bit-oriented input: got %v, want ErrUnsupportedMethod", err)
	}
}

func TestCodecsRoundTripGapSweep(t *testing.T) {
	for avg := uint64(1); avg <= 1024; avg *= 2 {
		in := make([]uint64, 1000)
		rng := rand.New(rand.NewSource(int64(avg)))
		var cur uint64
		for i := range in {
			cur += 1 + uint64(rng.Int63n(int64(2*avg)))
			in[i] = cur
		}
		for _, c := range allCodecs() {
			data, _ := c.Compress(in)
			out, n, err := c.Decompress(data, len(in), nil)
			if err != nil {
				t.Fatalf("%T avg=%d: decompress error: %v", c, avg, err)
			}
			if n != len(in) {
				t.Fatalf("%T avg=%d: decoded count %d, want %d", c, avg, n, len(in))
			}
			for i := range in {
				if out[i] != in[i] {
					t.Fatalf("%T avg=%d: mismatch at %d", c, avg, i)
				}
			}
		}
	}
}

func TestCodecsRoundTripMetadataScaleGap(t *testing.T) {
	// A pruned list ends in a document-frequency sentinel far above any
	// real posting, so its final gap is enormous; every codec must still
	// reproduce it exactly.
	in := []uint64{32, 64, 4096, 1<<40 + 7}
	for _, c := range allCodecs() {
		data, _ := c.Compress(in)
		out, n, err := c.Decompress(data, len(in), nil)
		if err != nil {
			t.Fatalf("%T: decompress error: %v", c, err)
		}
		if n != len(in) {
			t.Fatalf("%T: decoded count %d, want %d", c, n, len(in))
		}
		for i := range in {
			if out[i] != in[i] {
				t.Fatalf("%T: mismatch at %d: got %d want %d", c, i, out[i], in[i])
			}
		}
	}
}
