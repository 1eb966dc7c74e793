// Package doclen implements the document-length table consumed by BM25
// scoring: a read-only array of {doc_start:i64,
// doc_len:f64} records, memory-mapped so a query session can load it
// once and share it across queries without copying.
package doclen

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
)

const recordSize = 8 + 8 // doc_start:i64, doc_len:f64

// ErrOutOfRange is returned by At when docID has no record.
var ErrOutOfRange = errors.New("doclen: document id out of range")

// Record is one document's extent start and length, as used by BM25's
// dl/avgdl ratio and by the final doc-id-to-extent translation.
type Record struct {
	Start int64
	Len   float64
}

// Table is a memory-mapped, read-only view of the document-length
// file. It is safe for concurrent readers.
type Table struct {
	file   *os.File
	region mmap.MMap
	count  int
	avg    float64
}

// Open memory-maps path and validates its size is a whole number of
// records.
func Open(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("doclen: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("doclen: stat %s: %w", path, err)
	}
	if info.Size()%recordSize != 0 {
		f.Close()
		return nil, fmt.Errorf("doclen: %s size %d is not a multiple of record size %d", path, info.Size(), recordSize)
	}
	region, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("doclen: mmap %s: %w", path, err)
	}
	t := &Table{
		file:   f,
		region: region,
		count:  int(info.Size() / recordSize),
	}
	t.avg = t.computeAverage()
	return t, nil
}

func (t *Table) computeAverage() float64 {
	if t.count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < t.count; i++ {
		sum += t.lenAt(i)
	}
	return sum / float64(t.count)
}

func (t *Table) lenAt(i int) float64 {
	base := i*recordSize + 8
	bits := binary.LittleEndian.Uint64(t.region[base : base+8])
	return math.Float64frombits(bits)
}

// Close unmaps the file.
func (t *Table) Close() error {
	if err := t.region.Unmap(); err != nil {
		t.file.Close()
		return fmt.Errorf("doclen: unmap: %w", err)
	}
	return t.file.Close()
}

// Count returns the number of documents in the table.
func (t *Table) Count() int { return t.count }

// AverageLength returns avgdl over the whole table, cached at Open.
func (t *Table) AverageLength() float64 { return t.avg }

// At returns docID's start offset and length.
func (t *Table) At(docID uint32) (Record, error) {
	i := int(docID)
	if i < 0 || i >= t.count {
		return Record{}, ErrOutOfRange
	}
	base := i * recordSize
	start := int64(binary.LittleEndian.Uint64(t.region[base : base+8]))
	return Record{Start: start, Len: t.lenAt(i)}, nil
}

// Writer builds a document-length table sequentially; documents must
// be appended in ascending docID order, matching how the dictionary and
// merger assign ids.
type Writer struct {
	file *os.File
}

// CreateWriter truncates/creates path for sequential writing.
func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("doclen: create %s: %w", path, err)
	}
	return &Writer{file: f}, nil
}

// Append writes one document's record.
func (w *Writer) Append(start int64, length float64) error {
	var buf [recordSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(start))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(length))
	_, err := w.file.Write(buf[:])
	return err
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
