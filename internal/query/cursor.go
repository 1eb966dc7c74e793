package query

import (
	"github.com/salvatore-campagna/indexcore/internal/common"
	"github.com/salvatore-campagna/indexcore/internal/segmentlist"
)

// TermSpec names one query term scorer: its raw term (already resolved
// to the exact or stemmed index key), its caller-assigned weight, and
// its document frequency in the collection (w_i, df_i).
type TermSpec struct {
	Term   string
	Weight float64
	DF     uint64
}

// cursor streams document-level postings for one term, buffering
// PreviewSize at a time from the underlying segmentlist.List to
// amortize the cost of repeated lookups.
type cursor struct {
	term   string
	weight float64
	list   *segmentlist.List

	buf    []uint64
	bufPos int
	from   uint64
	done   bool
}

func newCursor(spec TermSpec, list *segmentlist.List) (*cursor, error) {
	c := &cursor{term: spec.Term, weight: spec.Weight, list: list}
	if err := c.fill(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *cursor) fill() error {
	if c.bufPos < len(c.buf) {
		return nil
	}
	vals, err := c.list.NextN(c.from, common.PreviewSize)
	if err != nil {
		return err
	}
	// A pruned list ends in a metadata posting carrying the original
	// document frequency; it is not a scorable document.
	for len(vals) > 0 && vals[len(vals)-1] >= common.DocumentCountOffset {
		vals = vals[:len(vals)-1]
	}
	if len(vals) == 0 {
		c.done = true
		c.buf = nil
		c.bufPos = 0
		return nil
	}
	c.buf = vals
	c.bufPos = 0
	c.from = vals[len(vals)-1] + 1
	return nil
}

// hasValue reports whether the cursor currently points at a posting.
func (c *cursor) hasValue() bool { return !c.done && c.bufPos < len(c.buf) }

func (c *cursor) value() uint64 { return c.buf[c.bufPos] }

func (c *cursor) docID() uint32 {
	return common.DocIDOf(c.value())
}

func (c *cursor) tf() uint32 {
	_, tf := common.UnpackDocLevel(c.value())
	return tf
}

// advance moves to the next buffered posting, refilling from the
// underlying list when the buffer is exhausted.
func (c *cursor) advance() error {
	c.bufPos++
	return c.fill()
}
