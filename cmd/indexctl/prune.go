package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salvatore-campagna/indexcore/internal/compactindex"
	"github.com/salvatore-campagna/indexcore/internal/config"
	"github.com/salvatore-campagna/indexcore/internal/doclen"
	"github.com/salvatore-campagna/indexcore/internal/merge"
	"github.com/salvatore-campagna/indexcore/internal/query"
)

func newPruneCmd(cfg *config.Config) *cobra.Command {
	var (
		indexPath  string
		doclenPath string
		out        string
		termsCSV   string
		keep       int
		epsilon    float64
		k1, b      float64
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Write an impact-ordered, top-K-pruned copy of a compact index",
		RunE: func(cmd *cobra.Command, args []string) error {
			tel, err := newTelemetry(verbose)
			if err != nil {
				return err
			}
			defer tel.Sync()

			src, err := compactindex.Open(indexPath, compactindex.ReaderOptions{AllInMemory: cfg.AllInMemory})
			if err != nil {
				return fmt.Errorf("opening %s: %w", indexPath, err)
			}
			defer src.Close()

			lengths, err := doclen.Open(doclenPath)
			if err != nil {
				return fmt.Errorf("opening %s: %w", doclenPath, err)
			}
			defer lengths.Close()

			terms, err := pruneTargetTerms(src, termsCSV)
			if err != nil {
				return err
			}
			tel.Log.Info("pruning", zap.Int("terms", len(terms)), zap.Int("keep", keep))

			w, err := compactindex.NewWriterOptions(out, merge.DefaultCodec(), compactindex.WriterOptions{UseDirectIO: cfg.UseDirectIO})
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			opts := query.PruneOptions{K1: k1, B: b, Keep: keep, Epsilon: epsilon}
			if err := query.PruneIndex(src, terms, lengths, w, opts); err != nil {
				w.Close()
				return fmt.Errorf("pruning: %w", err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", out, err)
			}
			tel.Log.Info("prune complete", zap.String("out", out))
			return nil
		},
	}

	cmd.Flags().StringVar(&indexPath, "index", "merged.bin", "compact index file to prune")
	cmd.Flags().StringVar(&doclenPath, "doclen", "segment-data/doclen.bin", "document-length table to score against")
	cmd.Flags().StringVar(&out, "out", "pruned.bin", "path to write the pruned compact index")
	cmd.Flags().StringVar(&termsCSV, "terms", "", "comma-separated terms to prune (default: every term in the index)")
	cmd.Flags().IntVar(&keep, "keep", 100, "postings to keep per term")
	cmd.Flags().Float64Var(&epsilon, "epsilon", 0, "keep postings scoring within this factor of the k-th best impact")
	cmd.Flags().Float64Var(&k1, "k1", cfg.BM25K1, "BM25 k1 parameter used for impact scoring")
	cmd.Flags().Float64Var(&b, "b", cfg.BM25B, "BM25 b parameter used for impact scoring")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable structured logging")
	return cmd
}

func pruneTargetTerms(src *compactindex.Reader, termsCSV string) ([]string, error) {
	if termsCSV != "" {
		var terms []string
		for _, t := range strings.Split(termsCSV, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				terms = append(terms, t)
			}
		}
		return terms, nil
	}

	it, err := src.Iterator()
	if err != nil {
		return nil, fmt.Errorf("opening iterator: %w", err)
	}
	var terms []string
	for {
		term, ok, err := it.NextTerm()
		if err != nil {
			return nil, fmt.Errorf("iterating terms: %w", err)
		}
		if !ok {
			break
		}
		terms = append(terms, term)
	}
	return terms, nil
}
