package codec

// MergeCompressedLists concatenates two gap-coded lists without fully
// decoding either: a is kept verbatim and b's leading absolute posting
// is rewritten as a gap relative to lastOfA, so the result decodes to
// concat(A, B). Only byte-oriented gap codecs support this splice;
// both inputs must carry the vByte tag and lastOfA must be a's final
// posting, strictly below b's first.
func MergeCompressedLists(a []byte, b []byte, lastOfA uint64) ([]byte, int, error) {
	if len(a) < 1 || Method(a[0]) != MethodVByte || len(b) < 1 || Method(b[0]) != MethodVByte {
		return nil, 0, ErrUnsupportedMethod
	}
	firstOfB, afterFirst, err := readVByte(b, 1)
	if err != nil {
		return nil, 0, err
	}
	if firstOfB <= lastOfA {
		return nil, 0, ErrMalformed
	}
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = appendVByte(out, firstOfB-lastOfA)
	out = append(out, b[afterFirst:]...)
	return out, len(out), nil
}
