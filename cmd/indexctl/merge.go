package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salvatore-campagna/indexcore/internal/bitmap"
	"github.com/salvatore-campagna/indexcore/internal/compactindex"
	"github.com/salvatore-campagna/indexcore/internal/config"
	"github.com/salvatore-campagna/indexcore/internal/merge"
	"github.com/salvatore-campagna/indexcore/internal/registry"
)

func newMergeCmd(cfg *config.Config) *cobra.Command {
	var (
		segmentDir  string
		out         string
		appendMerge bool
		deleteDocs  string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "N-way merge every segment-*.bin in a directory into one compact index",
		RunE: func(cmd *cobra.Command, args []string) error {
			tel, err := newTelemetry(verbose)
			if err != nil {
				return err
			}
			defer tel.Sync()

			entries, err := os.ReadDir(segmentDir)
			if err != nil {
				return fmt.Errorf("reading %s: %w", segmentDir, err)
			}
			var paths []string
			for _, e := range entries {
				if e.IsDir() || filepath.Ext(e.Name()) != ".bin" || e.Name() == "doclen.bin" {
					continue
				}
				paths = append(paths, filepath.Join(segmentDir, e.Name()))
			}
			sort.Strings(paths)
			if len(paths) == 0 {
				return fmt.Errorf("no segment-*.bin files found under %s", segmentDir)
			}

			tombstones, err := parseTombstones(deleteDocs)
			if err != nil {
				return err
			}

			var readers []*compactindex.Reader
			closeAll := func() {
				for _, r := range readers {
					r.Close()
				}
			}
			for _, p := range paths {
				r, err := compactindex.Open(p, compactindex.ReaderOptions{AllInMemory: cfg.AllInMemory})
				if err != nil {
					closeAll()
					return fmt.Errorf("opening %s: %w", p, err)
				}
				readers = append(readers, r)
			}
			tel.Log.Info("merging segments", zap.Int("count", len(readers)), zap.String("out", out))

			tmpDir, err := os.MkdirTemp(filepath.Dir(out), "indexctl-merge-")
			if err != nil {
				closeAll()
				return fmt.Errorf("creating temp dir: %w", err)
			}
			defer os.RemoveAll(tmpDir)

			// The open inputs form the pre-merge snapshot. The merge runs
			// as a build against it; publishing the result swaps the
			// snapshot out and blocks until every registration drains, at
			// which point teardown closes the inputs.
			inputs := registry.NewSnapshot(1, nil, closeAll)
			reg := registry.New(inputs)
			h := reg.Acquire()

			if err := reg.SwapBuilding(out, func() (*registry.Snapshot, error) {
				defer h.Release()
				opts := merge.FaninOptions{AppendMerge: appendMerge, Deleted: tombstones}
				if err := merge.Fanin(readers, out, tmpDir, opts); err != nil {
					return nil, err
				}
				return registry.NewSnapshot(inputs.ID+1, out, nil), nil
			}); err != nil {
				reg.Swap(nil) // tear down the input snapshot before failing
				return fmt.Errorf("merging: %w", err)
			}

			for _, p := range paths {
				if info, err := os.Stat(p); err == nil {
					tel.AddBytesRead(info.Size())
				}
			}
			if info, err := os.Stat(out); err == nil {
				tel.AddBytesWritten(info.Size())
			}
			tel.Log.Info("merge complete", zap.String("out", out),
				zap.Int64("bytes_read", tel.BytesRead()), zap.Int64("bytes_written", tel.BytesWritten()))
			return nil
		},
	}

	cmd.Flags().StringVar(&segmentDir, "segments", "segment-data", "directory containing segment-*.bin inputs")
	cmd.Flags().StringVar(&out, "out", "merged.bin", "path to write the merged compact index")
	cmd.Flags().BoolVar(&appendMerge, "append", false, "merge same-term segments by decoded value instead of concatenating (append-TAIT mode)")
	cmd.Flags().StringVar(&deleteDocs, "delete-docs", "", "comma-separated docIDs to garbage-collect during the merge")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable structured logging")
	return cmd
}

// parseTombstones turns the --delete-docs CSV into a tombstone bitmap,
// or nil when the flag is unset.
func parseTombstones(csv string) (*bitmap.Bitmap, error) {
	if csv == "" {
		return nil, nil
	}
	tombstones := bitmap.New()
	for _, field := range strings.Split(csv, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		docID, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid docID %q in --delete-docs: %w", field, err)
		}
		tombstones.Add(uint32(docID))
	}
	return tombstones, nil
}
