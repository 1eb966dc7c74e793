package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salvatore-campagna/indexcore/internal/common"
	"github.com/salvatore-campagna/indexcore/internal/compactindex"
	"github.com/salvatore-campagna/indexcore/internal/config"
	"github.com/salvatore-campagna/indexcore/internal/doclen"
	"github.com/salvatore-campagna/indexcore/internal/langmodel"
	"github.com/salvatore-campagna/indexcore/internal/query"
	"github.com/salvatore-campagna/indexcore/internal/registry"
	"github.com/salvatore-campagna/indexcore/internal/segmentlist"
	"github.com/salvatore-campagna/indexcore/internal/telemetry"
)

func newQueryCmd(cfg *config.Config) *cobra.Command {
	var (
		indexPath  string
		doclenPath string
		strategy   string
		count      int
		k1, b      float64
		feedback   string
		fbterms    int
		fbdocs     int
		fbweight   float64
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "query [terms...]",
		Short: "Run a BM25 query against a compact index (DAAT, TAAT, conjunctive or maxscore)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tel, err := newTelemetry(verbose)
			if err != nil {
				return err
			}
			defer tel.Sync()

			switch feedback {
			case "off", "okapi", "kld":
			default:
				return fmt.Errorf("unknown feedback mode %q (want off, okapi or kld)", feedback)
			}

			reader, err := compactindex.Open(indexPath, compactindex.ReaderOptions{AllInMemory: cfg.AllInMemory})
			if err != nil {
				return fmt.Errorf("opening %s: %w", indexPath, err)
			}
			lengths, err := doclen.Open(doclenPath)
			if err != nil {
				reader.Close()
				return fmt.Errorf("opening %s: %w", doclenPath, err)
			}

			// The open index and doclen table form the query's snapshot:
			// the query runs under a registration against it, and teardown
			// (closing both) is deferred until every registration drains.
			reg := registry.New(registry.NewSnapshot(1, nil, func() {
				reader.Close()
				lengths.Close()
			}))

			opts := query.Options{K1: k1, B: b, Count: count}
			fb := query.FeedbackOptions{Method: feedback, FBDocs: fbdocs, FBTerms: fbterms, FBWeight: fbweight}

			out, err := registry.RunConcurrentQueries(reg, []func(*registry.Snapshot) ([]query.ScoredExtent, error){
				func(*registry.Snapshot) ([]query.ScoredExtent, error) {
					return runQuery(reader, lengths, tel, args, strategy, opts, fb, cfg)
				},
			})
			reg.Swap(nil) // drain the snapshot and close the index
			if err != nil {
				return fmt.Errorf("executing query: %w", err)
			}
			tel.IncQueriesRun()

			printResults(out[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&indexPath, "index", "merged.bin", "compact index file to query")
	cmd.Flags().StringVar(&doclenPath, "doclen", "segment-data/doclen.bin", "document-length table to query")
	cmd.Flags().StringVar(&strategy, "strategy", "daat", "execution strategy: daat, taat, conjunctive or maxscore")
	cmd.Flags().IntVar(&count, "k", 10, "number of results to return")
	cmd.Flags().Float64Var(&k1, "k1", cfg.BM25K1, "BM25 k1 parameter")
	cmd.Flags().Float64Var(&b, "b", cfg.BM25B, "BM25 b parameter")
	cmd.Flags().StringVar(&feedback, "feedback", "off", "pseudo-relevance feedback: off, okapi or kld")
	cmd.Flags().IntVar(&fbterms, "fbterms", 15, "expansion terms to add when feedback is on")
	cmd.Flags().IntVar(&fbdocs, "fbdocs", 15, "top documents to build the feedback model from")
	cmd.Flags().Float64Var(&fbweight, "fbweight", 0.3, "weight assigned to feedback expansion terms")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable structured logging")
	return cmd
}

// runQuery resolves the query terms against the snapshot's reader and
// executes the selected strategy, with an optional feedback rerun.
func runQuery(reader *compactindex.Reader, lengths *doclen.Table, tel *telemetry.Telemetry, args []string, strategy string, opts query.Options, fb query.FeedbackOptions, cfg *config.Config) ([]query.ScoredExtent, error) {
	n := uint64(lengths.Count())
	lists := make(map[string]*segmentlist.List)
	resolve := func(term string) (*segmentlist.List, error) {
		pl, err := reader.GetPostings(term)
		if err != nil || pl == nil {
			return nil, err
		}
		list, err := segmentlist.New(term, segmentlist.FromPostingList(pl))
		if err != nil {
			return nil, err
		}
		list.OnDecode = tel.IncSegmentLoads
		return list, nil
	}

	var terms []query.TermSpec
	for _, term := range args {
		term = strings.ToLower(term)
		list, err := resolve(term)
		if err != nil {
			return nil, fmt.Errorf("looking up %q: %w", term, err)
		}
		if list == nil {
			tel.Log.Info("term not found, skipping", zap.String("term", term))
			continue
		}
		lists[term] = list
		// An impact-pruned list carries its original collection df in a
		// trailing sentinel; everywhere else df is the list length.
		df := uint64(list.Length())
		if pruned, ok, err := query.PrunedDocumentFrequency(list); err == nil && ok {
			df = pruned
		}
		terms = append(terms, query.TermSpec{Term: term, Weight: 1, DF: df})
	}
	if len(terms) == 0 {
		return nil, nil
	}

	if fb.Method != "off" {
		model, err := buildCollectionModel(reader, lengths)
		if err != nil {
			return nil, fmt.Errorf("building collection model: %w", err)
		}
		return query.RunWithFeedback(terms, lists, n, lengths, opts, fb, model,
			func(docID uint32) map[string]uint64 { return query.DocTermFreqsFromPostings(docID, lists) },
			resolve)
	}

	switch strategy {
	case "daat":
		return query.ExecuteDAAT(terms, lists, n, lengths, opts)
	case "taat":
		// Bound the accumulator table by the per-query memory limit, at
		// roughly 16 bytes per open accumulator.
		accLimit := int(cfg.MaxQuerySpace / 16)
		return query.ExecuteTAAT(terms, lists, n, lengths, opts, query.AccumulatorOptions{Limit: accLimit})
	case "conjunctive":
		return query.ExecuteConjunctive(terms, lists, n, lengths, opts)
	case "maxscore":
		return query.ExecuteMaxScore(terms, lists, n, lengths, opts)
	default:
		return nil, fmt.Errorf("unknown strategy %q (want daat, taat, conjunctive or maxscore)", strategy)
	}
}

// buildCollectionModel walks every term record once and tallies
// collection frequency (summed tf) and document frequency per term,
// the statistics the feedback hook scores expansion candidates with.
func buildCollectionModel(reader *compactindex.Reader, lengths *doclen.Table) (*langmodel.Model, error) {
	it, err := reader.Iterator()
	if err != nil {
		return nil, err
	}
	model := langmodel.NewModel()
	model.DocumentCount = uint64(lengths.Count())
	for {
		term, ok, err := it.NextTerm()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		var cf, df uint64
		sentinelDF := uint64(0)
		for {
			if _, ok := it.NextListHeader(); !ok {
				break
			}
			vals, err := it.NextListUncompressed()
			if err != nil {
				return nil, err
			}
			for _, p := range vals {
				if p >= common.DocumentCountOffset {
					sentinelDF = p - common.DocumentCountOffset
					continue
				}
				_, tf := common.UnpackDocLevel(p)
				cf += uint64(tf)
				df++
			}
		}
		if sentinelDF > 0 {
			df = sentinelDF
		}
		model.AddTerm(term, cf, df)
	}
	return model, nil
}

func printResults(results []query.ScoredExtent) {
	fmt.Printf("results: %d\n", len(results))
	fmt.Println(strings.Repeat("-", 22))
	fmt.Printf("| %-8s | %-8s |\n", "DocID", "Score")
	fmt.Println(strings.Repeat("-", 22))
	for _, r := range results {
		fmt.Printf("| %-8d | %8.2f |\n", r.ContainerFrom, r.Score)
	}
	fmt.Println(strings.Repeat("-", 22))
}
