// Package dictionary implements the in-memory inversion dictionary
// used during indexing: a hash-chained term table that accumulates postings
// until a memory budget is hit, then flushes a sorted sub-index
// through a compactindex.Writer.
package dictionary

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/salvatore-campagna/indexcore/internal/compactindex"
)

// ErrNonMonotonePosting is returned (wrapped, via errors.Is) by
// AddPosting when the incoming posting does not strictly exceed the
// previous one for its term. The posting is still dropped and counted
// in droppedNonMonotone before this is returned — callers that want to
// keep indexing past the violation, rather than treat it as fatal,
// should check errors.Is(err, ErrNonMonotonePosting).
var ErrNonMonotonePosting = errors.New("dictionary: posting not strictly greater than previous")

// HashtableSize is the fixed bucket count (HASHTABLE_SIZE ≈
// 2^20).
const HashtableSize = 1 << 20

type slot struct {
	term        string
	next        int32 // index of the previous slot in the same bucket chain, -1 if none
	buf         *termBuffer
	stemmedForm int32 // index of the stemmed-form slot, -1 if none or not stemmed
}

// Dictionary accumulates (term, posting) pairs from a tokenizer and
// flushes them, sorted, to a compact index.
type Dictionary struct {
	strategy AllocStrategy
	arena    *Arena
	buckets  []int32 // HashtableSize heads, index into slots, -1 if empty
	slots    []slot
	byTerm   map[string]int32 // term -> slot index, avoids a linear chain scan

	// Stemming is an optional hook: when set, AddPosting also posts the
	// stemmed form of term under stem+"$", one level of recursion only.
	Stemming func(term string) (stem string, ok bool)

	droppedNonMonotone int
}

// New creates an empty dictionary using the given allocation strategy
// for per-term posting buffers.
func New(strategy AllocStrategy) *Dictionary {
	buckets := make([]int32, HashtableSize)
	for i := range buckets {
		buckets[i] = -1
	}
	return &Dictionary{
		strategy: strategy,
		arena:    NewArena(),
		buckets:  buckets,
		byTerm:   make(map[string]int32),
	}
}

// simpleHash is a classic multiplicative string hash (djb2 variant),
// standing in for the original's simple_hash(term).
func simpleHash(term string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(term); i++ {
		h = h*33 + uint32(term[i])
	}
	return h
}

func (d *Dictionary) bucketFor(term string) uint32 {
	return simpleHash(term) % HashtableSize
}

// AddPosting inserts posting under term, which must be strictly greater
// than the previous posting added for that term; violations are
// dropped and counted rather than corrupting the buffer. If Stemming is
// set, a second AddPosting call posts under the stemmed form.
func (d *Dictionary) AddPosting(term string, posting uint64) error {
	idx, ok := d.byTerm[term]
	if !ok {
		idx = int32(len(d.slots))
		bucket := d.bucketFor(term)
		d.slots = append(d.slots, slot{
			term:        term,
			next:        d.buckets[bucket],
			buf:         newTermBuffer(d.strategy, d.arena),
			stemmedForm: -1,
		})
		d.buckets[bucket] = idx
		d.byTerm[term] = idx
	}
	s := &d.slots[idx]
	if s.buf.count > 0 && posting <= s.buf.lastPosting {
		d.droppedNonMonotone++
		return fmt.Errorf("dictionary: posting %d for %q is not strictly greater than previous %d: %w", posting, term, s.buf.lastPosting, ErrNonMonotonePosting)
	}
	s.buf.addPosting(posting)

	if d.Stemming != nil {
		if stem, ok := d.Stemming(term); ok {
			stemTerm := stem + "$"
			if s.stemmedForm < 0 {
				if err := d.addPostingNoStem(stemTerm, posting); err == nil {
					d.slots[idx].stemmedForm = d.byTerm[stemTerm]
				}
			} else {
				d.addPostingNoStem(stemTerm, posting)
			}
		}
	}
	return nil
}

// addPostingNoStem is AddPosting without the recursive stemming call,
// bounding the recursion to exactly one step.
func (d *Dictionary) addPostingNoStem(term string, posting uint64) error {
	idx, ok := d.byTerm[term]
	if !ok {
		idx = int32(len(d.slots))
		bucket := d.bucketFor(term)
		d.slots = append(d.slots, slot{
			term:        term,
			next:        d.buckets[bucket],
			buf:         newTermBuffer(d.strategy, d.arena),
			stemmedForm: -1,
		})
		d.buckets[bucket] = idx
		d.byTerm[term] = idx
	}
	s := &d.slots[idx]
	if s.buf.count > 0 && posting <= s.buf.lastPosting {
		d.droppedNonMonotone++
		return fmt.Errorf("dictionary: posting %d for %q is not strictly greater than previous %d: %w", posting, term, s.buf.lastPosting, ErrNonMonotonePosting)
	}
	s.buf.addPosting(posting)
	return nil
}

// GetPostings builds the in-memory posting array for term directly
// from its still-unflushed buffer, so the unflushed tail of the index
// stays queryable.
func (d *Dictionary) GetPostings(term string) ([]uint64, bool) {
	idx, ok := d.byTerm[term]
	if !ok {
		return nil, false
	}
	vals, err := d.slots[idx].buf.decode()
	if err != nil {
		return nil, false
	}
	return vals, true
}

// DroppedNonMonotone reports how many postings were rejected for
// violating the strictly-increasing invariant.
func (d *Dictionary) DroppedNonMonotone() int { return d.droppedNonMonotone }

// MemoryOccupied approximates the dictionary's memory counter: arena
// bytes, plus the slot array, plus the fixed hash table.
func (d *Dictionary) MemoryOccupied() int64 {
	var total int64
	total += d.arena.Bytes()
	total += int64(len(d.slots)) * 64 // rough per-slot overhead (term header, buffer struct)
	for _, s := range d.slots {
		if s.buf.strategy == Realloc {
			total += int64(cap(s.buf.flat))
		}
	}
	total += int64(len(d.buckets)) * 4
	return total
}

// sortedSlots returns slot indices ordered lexicographically by term,
// using a hybrid bucket sort on the first two bytes followed by a
// merge sort, with selection sort for small buckets.
func (d *Dictionary) sortedSlots() []int32 {
	const bucketDim = 256 * 256
	buckets := make([][]int32, bucketDim)
	for i := range d.slots {
		buckets[bucketKey(d.slots[i].term)] = append(buckets[bucketKey(d.slots[i].term)], int32(i))
	}

	out := make([]int32, 0, len(d.slots))
	for _, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		sorted := d.sortBucket(bucket)
		out = append(out, sorted...)
	}
	return out
}

func bucketKey(term string) int {
	var b0, b1 byte
	if len(term) > 0 {
		b0 = term[0]
	}
	if len(term) > 1 {
		b1 = term[1]
	}
	return int(b0)<<8 | int(b1)
}

func (d *Dictionary) sortBucket(indices []int32) []int32 {
	if len(indices) <= 11 {
		return d.selectionSort(indices)
	}
	return d.mergeSort(indices)
}

func (d *Dictionary) selectionSort(indices []int32) []int32 {
	out := append([]int32(nil), indices...)
	for i := 0; i < len(out); i++ {
		min := i
		for j := i + 1; j < len(out); j++ {
			if d.slots[out[j]].term < d.slots[out[min]].term {
				min = j
			}
		}
		out[i], out[min] = out[min], out[i]
	}
	return out
}

func (d *Dictionary) mergeSort(indices []int32) []int32 {
	if len(indices) <= 11 {
		return d.selectionSort(indices)
	}
	mid := len(indices) / 2
	left := d.mergeSort(indices[:mid])
	right := d.mergeSort(indices[mid:])
	return d.merge(left, right)
}

func (d *Dictionary) merge(left, right []int32) []int32 {
	out := make([]int32, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if d.slots[left[i]].term <= d.slots[right[j]].term {
			out = append(out, left[i])
			i++
		} else {
			out = append(out, right[j])
			j++
		}
	}
	out = append(out, left[i:]...)
	out = append(out, right[j:]...)
	return out
}

// FlushTo decodes every term's buffer and writes a sorted sub-index
// through w. The dictionary's contents are left in place; the caller
// uses a fresh Dictionary for the next partition.
func (d *Dictionary) FlushTo(w *compactindex.Writer) error {
	order := d.sortedSlots()
	for _, idx := range order {
		s := &d.slots[idx]
		vals, err := s.buf.decode()
		if err != nil {
			return fmt.Errorf("dictionary: decode %q: %w", s.term, err)
		}
		if err := w.AddPostings(s.term, vals); err != nil {
			return fmt.Errorf("dictionary: flush %q: %w", s.term, err)
		}
	}
	return nil
}

// Terms returns every distinct term currently held, for diagnostics
// and for building langmodel statistics from the in-memory tail.
func (d *Dictionary) Terms() []string {
	out := make([]string, len(d.slots))
	for i, s := range d.slots {
		out[i] = s.term
	}
	sort.Strings(out)
	return out
}

// IsStemmedForm reports whether term was produced as a stemmed
// variant (ends in "$", per convention).
func IsStemmedForm(term string) bool {
	return strings.HasSuffix(term, "$")
}
