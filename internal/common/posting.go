// Package common holds constants and posting-packing helpers shared by
// every layer of the index: codecs, the compact index, the dictionary
// and the query engine all agree on the same bit layout for a posting.
package common

// DocLevelShift is the number of low bits of a document-level posting
// reserved for a bucketed term-frequency value. 5 bits give 31 non-zero
// buckets, which is enough to saturate well before realistic tf values.
const DocLevelShift = 5

// DocLevelMask isolates the tf-bucket bits of a document-level posting.
const DocLevelMask = (1 << DocLevelShift) - 1

// DocumentCountOffset is the sentinel above which a posting is not a
// real document-level value but index metadata. An impact-pruned list
// encodes its original document frequency as DocumentCountOffset+df in
// its trailing posting.
const DocumentCountOffset = uint64(1) << 40

// MaxTokenLength bounds a term's byte length (terminator excluded).
const MaxTokenLength = 19

// IndexMustBeWordAligned, when true, makes the index writer pad each
// term record with zeros so its segment-header array starts on an
// 8-byte boundary within the record. Readers and writers must be built
// with the same value; files produced under one setting are not
// readable under the other.
const IndexMustBeWordAligned = false

// Segment sizing.
const (
	TargetSegmentSize = 16384
	MinSegmentSize    = 4000
	MaxSegmentSize    = 65536
)

// Compact index writer/reader tuning.
const (
	WriteCacheSize       = 4 << 20 // ~4MB block buffer before a flush
	DescriptorGrowthRate = 1.21    // geometric growth of the descriptor array
	MaxSegmentsInMemory  = 64      // L2 cache size; also bounds term_count/list_count ratio
	DecompressedSegments = 4       // L1 cache size
	ReadAheadSegments    = 4       // sequential-access prefetch depth
	PreviewSize          = 64      // DAAT cursor read-ahead buffer
)

// tfBucketValue maps a tf bucket (0..31) to a representative, monotone,
// saturating term-frequency value. Buckets grow roughly geometrically
// so that the common case (tf 1..8) is represented exactly while long
// tails collapse into a handful of buckets.
var tfBucketValue = buildTfBucketTable()

func buildTfBucketTable() [1 << DocLevelShift]uint32 {
	var table [1 << DocLevelShift]uint32
	// Buckets 0-8 represent tf 0-8 exactly. From bucket 9 on, the
	// represented value grows geometrically (step doubles every two
	// buckets): 9, 10, 12, 14, 18, 22, 30, ... up to 6150 at bucket 31.
	// The table does not level off near tf 20; only tf values above
	// 6150 share the top bucket.
	v := uint32(0)
	step := uint32(1)
	for i := range table {
		switch {
		case i <= 8:
			table[i] = uint32(i)
			v = uint32(i)
		default:
			v += step
			table[i] = v
			if i%2 == 0 {
				step *= 2
			}
		}
	}
	return table
}

// TfFromBucket returns the representative term frequency for a bucket.
func TfFromBucket(bucket uint64) uint32 {
	if bucket >= uint64(len(tfBucketValue)) {
		bucket = uint64(len(tfBucketValue) - 1)
	}
	return tfBucketValue[bucket]
}

// BucketFromTf maps a raw term frequency down to the nearest bucket
// whose representative value does not exceed tf (monotone, saturating).
func BucketFromTf(tf uint32) uint64 {
	best := uint64(0)
	for b := 0; b < len(tfBucketValue); b++ {
		if tfBucketValue[b] <= tf {
			best = uint64(b)
		} else {
			break
		}
	}
	return best
}

// PackDocLevel combines a document id and a raw term frequency into one
// document-level posting.
func PackDocLevel(docID uint32, tf uint32) uint64 {
	bucket := BucketFromTf(tf)
	return (uint64(docID) << DocLevelShift) | bucket
}

// UnpackDocLevel splits a document-level posting back into a document id
// and its (bucketed) term frequency.
func UnpackDocLevel(posting uint64) (docID uint32, tf uint32) {
	docID = uint32(posting >> DocLevelShift)
	tf = TfFromBucket(posting & DocLevelMask)
	return docID, tf
}

// DocIDOf returns just the document id of a document-level posting,
// without decoding the tf bucket. Used on the hot path of DAAT merging
// where only document identity, not frequency, is needed to advance.
func DocIDOf(posting uint64) uint32 {
	return uint32(posting >> DocLevelShift)
}
