package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/salvatore-campagna/indexcore/internal/compactindex"
	"github.com/salvatore-campagna/indexcore/internal/config"
	"github.com/salvatore-campagna/indexcore/internal/doclen"
)

func newStatsCmd(cfg *config.Config) *cobra.Command {
	var (
		indexPath  string
		doclenPath string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print term/posting counts for a compact index and its doclen table",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := compactindex.Open(indexPath, compactindex.ReaderOptions{AllInMemory: cfg.AllInMemory})
			if err != nil {
				return fmt.Errorf("opening %s: %w", indexPath, err)
			}
			defer reader.Close()

			trailer := reader.Trailer()
			fmt.Printf("index:       %s\n", indexPath)
			fmt.Printf("terms:       %d\n", trailer.TermCount)
			fmt.Printf("posting lists: %d\n", trailer.ListCount)
			fmt.Printf("descriptors: %d\n", trailer.DescriptorCount)
			fmt.Printf("postings:    %d\n", trailer.PostingCount)

			if doclenPath == "" {
				return nil
			}
			lengths, err := doclen.Open(doclenPath)
			if err != nil {
				return fmt.Errorf("opening %s: %w", doclenPath, err)
			}
			defer lengths.Close()
			fmt.Printf("documents:   %d\n", lengths.Count())
			fmt.Printf("avg length:  %.2f\n", lengths.AverageLength())
			return nil
		},
	}

	cmd.Flags().StringVar(&indexPath, "index", "merged.bin", "compact index file to inspect")
	cmd.Flags().StringVar(&doclenPath, "doclen", "segment-data/doclen.bin", "document-length table to inspect (empty to skip)")
	return cmd
}
