package codec

// InterpolativeSICodec and RiceSICodec are the schema-independent
// counterparts of MethodInterpolative and MethodRice: the same
// bit-level algorithm applies to postings built over raw word
// positions (schema-independent) and to postings built over the packed
// (docID, bucketed tf) document-level representation a segment list
// uses, so the two only need distinct method tags to let a
// compact index record which posting domain produced a given segment.
// Neither reimplements the bit layout; both delegate.
type InterpolativeSICodec struct{}

func (InterpolativeSICodec) Method() Method { return MethodInterpolativeSI }

func (InterpolativeSICodec) Compress(postings []uint64) ([]byte, int) {
	data, n := (InterpolativeCodec{}).Compress(postings)
	data[0] = byte(MethodInterpolativeSI)
	return data, n
}

func (InterpolativeSICodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodInterpolativeSI {
		return nil, 0, ErrMalformed
	}
	retagged := append([]byte{byte(MethodInterpolative)}, data[1:]...)
	return (InterpolativeCodec{}).Decompress(retagged, expectedN, out)
}

type RiceSICodec struct{}

func (RiceSICodec) Method() Method { return MethodRiceSI }

func (RiceSICodec) Compress(postings []uint64) ([]byte, int) {
	data, n := (RiceCodec{}).Compress(postings)
	data[0] = byte(MethodRiceSI)
	return data, n
}

func (RiceSICodec) Decompress(data []byte, expectedN int, out []uint64) ([]uint64, int, error) {
	if len(data) < 1 || Method(data[0]) != MethodRiceSI {
		return nil, 0, ErrMalformed
	}
	retagged := append([]byte{byte(MethodRice)}, data[1:]...)
	return (RiceCodec{}).Decompress(retagged, expectedN, out)
}
