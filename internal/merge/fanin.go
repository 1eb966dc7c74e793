package merge

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/salvatore-campagna/indexcore/internal/bitmap"
	"github.com/salvatore-campagna/indexcore/internal/compactindex"
)

// GroupSize bounds how many iterators a single Merger sweeps at once.
// Beyond this, Fanin merges in levels: groups of at most GroupSize
// inputs are merged into temporary indices first, then those
// intermediates are merged the same way, level after level until at
// most GroupSize remain for the final merge, keeping any one merge's open-file
// and decompressed-segment footprint bounded.
const GroupSize = 10

// Fanin merges an arbitrary number of readers into a single compact
// index at outPath. Readers are consumed in the given order; when
// there are more than GroupSize of them, intermediate merges are
// written under tmpDir and removed once no longer needed.
func Fanin(readers []*compactindex.Reader, outPath, tmpDir string, opts FaninOptions) error {
	iterators := make([]*compactindex.Iterator, len(readers))
	for i, r := range readers {
		it, err := r.Iterator()
		if err != nil {
			return fmt.Errorf("merge: opening iterator %d: %w", i, err)
		}
		iterators[i] = it
	}
	return faninLevel(iterators, outPath, tmpDir, opts, 0)
}

// FaninOptions carries the per-level merge configuration.
type FaninOptions struct {
	AppendMerge bool

	// Deleted drops postings for tombstoned documents during the merge;
	// only the leaf level filters, since intermediates are already
	// clean.
	Deleted *bitmap.Bitmap
}

func faninLevel(iterators []*compactindex.Iterator, outPath, tmpDir string, opts FaninOptions, depth int) error {
	deleted := opts.Deleted
	if depth > 0 {
		deleted = nil // intermediates were already filtered at the leaf level
	}
	if len(iterators) <= GroupSize {
		w, err := compactindex.NewWriter(outPath, DefaultCodec())
		if err != nil {
			return fmt.Errorf("merge: creating %s: %w", outPath, err)
		}
		mg := New(iterators)
		mg.AppendMerge = opts.AppendMerge
		mg.Deleted = deleted
		if err := mg.MergeTo(w); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	}

	var intermediates []string
	var nextIterators []*compactindex.Iterator
	defer func() {
		for _, p := range intermediates {
			os.Remove(p)
		}
	}()

	for start := 0; start < len(iterators); start += GroupSize {
		end := start + GroupSize
		if end > len(iterators) {
			end = len(iterators)
		}
		tmpPath := filepath.Join(tmpDir, fmt.Sprintf("fanin-%d-%d.tmp", depth, start/GroupSize))
		w, err := compactindex.NewWriter(tmpPath, DefaultCodec())
		if err != nil {
			return fmt.Errorf("merge: creating intermediate %s: %w", tmpPath, err)
		}
		mg := New(iterators[start:end])
		mg.AppendMerge = opts.AppendMerge
		mg.Deleted = deleted
		if err := mg.MergeTo(w); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("merge: closing intermediate %s: %w", tmpPath, err)
		}
		intermediates = append(intermediates, tmpPath)

		r, err := compactindex.Open(tmpPath, compactindex.ReaderOptions{})
		if err != nil {
			return fmt.Errorf("merge: reopening intermediate %s: %w", tmpPath, err)
		}
		defer r.Close()
		it, err := r.Iterator()
		if err != nil {
			return fmt.Errorf("merge: iterating intermediate %s: %w", tmpPath, err)
		}
		nextIterators = append(nextIterators, it)
	}

	return faninLevel(nextIterators, outPath, tmpDir, opts, depth+1)
}
