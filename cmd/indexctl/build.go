package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salvatore-campagna/indexcore/internal/common"
	"github.com/salvatore-campagna/indexcore/internal/compactindex"
	"github.com/salvatore-campagna/indexcore/internal/config"
	"github.com/salvatore-campagna/indexcore/internal/dictionary"
	"github.com/salvatore-campagna/indexcore/internal/doclen"
	"github.com/salvatore-campagna/indexcore/internal/fetcher"
	"github.com/salvatore-campagna/indexcore/internal/merge"
	"github.com/salvatore-campagna/indexcore/internal/stem"
)

func newBuildCmd(cfg *config.Config) *cobra.Command {
	var (
		input    string
		outDir   string
		stemming bool
		realloc  bool
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fetch a batch of (term, doc, tf) postings and build one compact index segment per batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			tel, err := newTelemetry(verbose)
			if err != nil {
				return err
			}
			defer tel.Sync()

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("creating output directory %s: %w", outDir, err)
			}

			batches, err := fetcher.FetchBatches(cmd.Context(), input)
			if err != nil {
				return err
			}
			tel.Log.Info("fetched batches", zap.String("path", input), zap.Int("count", len(batches)))

			strategy := dictionary.GroupedChunks
			if realloc {
				strategy = dictionary.Realloc
			}

			docLengths := make(map[uint32]float64)
			var maxDocID uint32
			var anyDoc bool

			for i, batch := range batches {
				dict := dictionary.New(strategy)
				if stemming {
					dict.Stemming = stem.Stem
				}

				for _, p := range batch {
					posting := common.PackDocLevel(p.DocID, p.TermFrequency)
					if err := dict.AddPosting(p.Term, posting); err != nil {
						if errors.Is(err, dictionary.ErrNonMonotonePosting) {
							continue
						}
						return fmt.Errorf("batch %d: adding posting for %q: %w", i, p.Term, err)
					}
					docLengths[p.DocID] += float64(p.TermFrequency)
					if !anyDoc || p.DocID > maxDocID {
						maxDocID = p.DocID
						anyDoc = true
					}
				}
				if dict.DroppedNonMonotone() > 0 {
					tel.Log.Warn("dropped non-monotone postings", zap.Int("batch", i), zap.Int("count", dict.DroppedNonMonotone()))
				}

				segmentPath := filepath.Join(outDir, fmt.Sprintf("segment-%04d.bin", i))
				w, err := compactindex.NewWriterOptions(segmentPath, merge.DefaultCodec(), compactindex.WriterOptions{UseDirectIO: cfg.UseDirectIO})
				if err != nil {
					return fmt.Errorf("batch %d: creating %s: %w", i, segmentPath, err)
				}
				if err := dict.FlushTo(w); err != nil {
					w.Close()
					return fmt.Errorf("batch %d: flushing %s: %w", i, segmentPath, err)
				}
				if err := w.Close(); err != nil {
					return fmt.Errorf("batch %d: closing %s: %w", i, segmentPath, err)
				}
				if info, err := os.Stat(segmentPath); err == nil {
					tel.AddBytesWritten(info.Size())
				}
				tel.Log.Info("wrote segment", zap.String("path", segmentPath), zap.Int("terms", len(dict.Terms())))
			}

			if !anyDoc {
				tel.Log.Info("no documents observed, skipping doclen table")
				return nil
			}

			doclenPath := filepath.Join(outDir, "doclen.bin")
			dw, err := doclen.CreateWriter(doclenPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", doclenPath, err)
			}
			var offset int64
			for docID := uint32(0); docID <= maxDocID; docID++ {
				length := docLengths[docID]
				if err := dw.Append(offset, length); err != nil {
					dw.Close()
					return fmt.Errorf("appending doc %d: %w", docID, err)
				}
				offset += int64(length)
			}
			if err := dw.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", doclenPath, err)
			}
			tel.Log.Info("wrote document-length table", zap.String("path", doclenPath), zap.Uint32("documents", maxDocID+1))
			tel.Log.Info("build complete", zap.Int64("bytes_written", tel.BytesWritten()))
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "path or URL to the source JSON batches")
	cmd.Flags().StringVar(&outDir, "out", "segment-data", "directory to write segment files and the doclen table into")
	cmd.Flags().BoolVar(&stemming, "stem", false, "also index a Porter-stemmed form of every term")
	cmd.Flags().BoolVar(&realloc, "realloc", false, "use the realloc posting-buffer growth strategy instead of grouped chunks")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable structured logging")
	cmd.MarkFlagRequired("input")
	return cmd
}
