// Command indexctl is the single CLI surface for the engine: one
// cobra binary carrying a build/merge/query/prune/stats subcommand
// each, in place of several separate flag-based main()s, wired
// against internal/config and internal/telemetry instead of ad hoc
// os.LookupEnv/flag globals.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/salvatore-campagna/indexcore/internal/config"
	"github.com/salvatore-campagna/indexcore/internal/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "indexctl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Default()
	root := &cobra.Command{
		Use:           "indexctl",
		Short:         "Build, merge, query and prune compact inverted indexes",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVar(&cfg.UseDirectIO, "direct-io", false, "write index files bypassing the OS page cache")
	root.PersistentFlags().BoolVar(&cfg.AllInMemory, "mem", false, "keep whole index files resident while reading")

	root.AddCommand(newBuildCmd(&cfg))
	root.AddCommand(newMergeCmd(&cfg))
	root.AddCommand(newQueryCmd(&cfg))
	root.AddCommand(newPruneCmd(&cfg))
	root.AddCommand(newStatsCmd(&cfg))
	return root
}

// newTelemetry builds a production telemetry sink unless -v/--verbose
// is left at its default, in which case a no-op logger discards all
// log output.
func newTelemetry(verbose bool) (*telemetry.Telemetry, error) {
	if verbose {
		return telemetry.New()
	}
	return telemetry.NewNop(), nil
}
