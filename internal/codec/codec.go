// Package codec implements the stateless posting-list compressors and
// decompressors. Every codec operates on a monotonically
// increasing sequence of uint64 postings and is delta-gap coded
// internally where that helps; every emitted byte string begins with a
// one-byte method tag so that codec.DecompressAny can dispatch without
// being told which algorithm produced the bytes. This lets a single
// compact index mix codecs freely between segments.
//
// The binary layout is bit-exact and is exercised by the compactindex
// package, which treats a compressed segment as an opaque, self
// describing byte string.
package codec

import "errors"

// Method is the one-byte tag written at the start of every compressed
// segment.
type Method byte

const (
	MethodNone             Method = iota // raw, fixed-width 8-byte postings
	MethodVByte                          // variable-byte, 7 bits/byte
	MethodGamma                          // Elias gamma
	MethodDelta                          // Elias delta
	MethodRice                           // Golomb-Rice
	MethodGolomb                         // Golomb, explicit parameter b
	MethodSimple9                        // Simple-9
	MethodInterpolative                  // binary interpolative coding
	MethodNibble                         // 4-bit nibble codes with continuation
	MethodLLRun                          // run-length + Huffman over gap lengths
	MethodGUBC                           // Golomb-like block codec, chunked
	MethodGUBCIP                         // GUBC, interpolative-seeded
	MethodPForDelta                      // Patched frame-of-reference delta
	MethodGroupVarInt                    // SIMD-friendly grouped varint
	MethodHuffmanDirect                  // direct Huffman over gap values
	MethodHuffman2                       // two-pass Huffman (explicit table)
	MethodInterpolativeSI                // interpolative, schema-independent variant
	MethodRiceSI                         // Rice, schema-independent variant
	MethodExperimental                   // reserved; arithmetic coding stub (non-goal)
	MethodBest                           // picks the smallest of a candidate set
)

// ErrMalformed is returned when a byte string cannot be parsed as a
// valid encoding of the claimed method: an unknown tag, a truncated
// header, or a bit/byte stream that runs past its declared length. It
// is distinct from io.EOF — callers must not treat a malformed segment
// as if it merely ended early.
var ErrMalformed = errors.New("codec: malformed compressed posting list")

// ErrUnsupportedMethod is returned by decoders for methods that are
// reserved but not implemented (MethodExperimental — see Open
// Questions: arithmetic coding is a non-goal, the original's
// arith_decode is an unusable stub).
var ErrUnsupportedMethod = errors.New("codec: unsupported method")

// Codec is the pair of pure functions every compression scheme
// implements.
type Codec interface {
	// Compress encodes all of postings and returns the tagged byte string
	// plus its length.
	Compress(postings []uint64) (data []byte, size int)
	// Decompress parses a tagged byte string produced by Compress (or
	// any compatible encoder for the same method) and reconstructs the
	// original sequence. If out is non-nil and long enough it is reused,
	// otherwise a new slice is allocated.
	Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error)
	// Method reports the tag this codec writes/reads.
	Method() Method
}

// ByMethod returns the Codec implementation for a given tag, or nil if
// the tag has no associated implementation (MethodExperimental is
// reserved and unimplemented; MethodBest.Decompress always errors since
// Compress rewrites the tag to the winning candidate before returning).
func ByMethod(m Method) Codec {
	switch m {
	case MethodNone:
		return NoneCodec{}
	case MethodVByte:
		return VByteCodec{}
	case MethodGamma:
		return GammaCodec{}
	case MethodDelta:
		return DeltaCodec{}
	case MethodRice:
		return RiceCodec{}
	case MethodGolomb:
		return GolombCodec{}
	case MethodSimple9:
		return Simple9Codec{}
	case MethodInterpolative:
		return InterpolativeCodec{}
	case MethodNibble:
		return NibbleCodec{}
	case MethodPForDelta:
		return PForDeltaCodec{}
	case MethodGroupVarInt:
		return GroupVarIntCodec{}
	case MethodLLRun:
		return LLRunCodec{}
	case MethodGUBC:
		return GUBCCodec{}
	case MethodGUBCIP:
		return GUBCIPCodec{}
	case MethodHuffmanDirect:
		return HuffmanDirectCodec{}
	case MethodHuffman2:
		return Huffman2Codec{}
	case MethodInterpolativeSI:
		return InterpolativeSICodec{}
	case MethodRiceSI:
		return RiceSICodec{}
	case MethodBest:
		return BestCodec{}
	default:
		return nil
	}
}

// DecompressAny reads the one-byte method tag at data[0] and dispatches
// to the matching decompressor.
func DecompressAny(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) == 0 {
		return nil, 0, ErrMalformed
	}
	m := Method(data[0])
	c := ByMethod(m)
	if c == nil {
		return nil, 0, ErrUnsupportedMethod
	}
	return c.Decompress(data, expectedN, out)
}

// gaps rewrites postings as (first absolute value, successive
// differences). Every delta-based codec encodes the first posting
// absolute and subsequent postings as gaps, sharing this transform.
func gaps(postings []uint64) []uint64 {
	out := make([]uint64, len(postings))
	if len(postings) == 0 {
		return out
	}
	out[0] = postings[0]
	for i := 1; i < len(postings); i++ {
		out[i] = postings[i] - postings[i-1]
	}
	return out
}

// undoGaps reconstructs absolute postings from (first, gap, gap, ...).
func undoGaps(values []uint64) {
	for i := 1; i < len(values); i++ {
		values[i] += values[i-1]
	}
}
