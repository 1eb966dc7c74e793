package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/salvatore-campagna/indexcore/internal/compactindex"
	"github.com/salvatore-campagna/indexcore/internal/config"
)

func TestRootCommandWiresEverySubcommand(t *testing.T) {
	root := newRootCmd()
	want := []string{"build", "merge", "query", "prune", "stats"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil {
			t.Fatalf("Find(%q): %v", name, err)
		}
		if cmd.Name() != name {
			t.Errorf("Find(%q) returned command %q", name, cmd.Name())
		}
	}
}

func TestBuildCommandRequiresInput(t *testing.T) {
	cfg := config.Default()
	cmd := newBuildCmd(&cfg)
	if err := cmd.Flags().Set("out", t.TempDir()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cmd.ValidateRequiredFlags(); err == nil {
		t.Fatal("expected an error when --input is missing")
	}
}

const fixtureJSON = `{
  "segments": [
    [
      {"term": "quick", "doc_id": 0, "term_frequency": 3},
      {"term": "fox", "doc_id": 0, "term_frequency": 1},
      {"term": "quick", "doc_id": 1, "term_frequency": 1}
    ],
    [
      {"term": "lazy", "doc_id": 2, "term_frequency": 2},
      {"term": "fox", "doc_id": 2, "term_frequency": 4}
    ]
  ]
}`

// TestBuildMergeQueryPipeline exercises build -> merge -> query end to
// end against a small fixture, executing each subcommand on its own
// rather than through the root command.
func TestBuildMergeQueryPipeline(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "segments.json")
	if err := os.WriteFile(inputPath, []byte(fixtureJSON), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	segDir := filepath.Join(dir, "segment-data")
	build := newBuildCmd(&cfg)
	build.SetArgs([]string{"--input", inputPath, "--out", segDir})
	if err := build.Execute(); err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, err := os.Stat(filepath.Join(segDir, "segment-0000.bin")); err != nil {
		t.Fatalf("expected segment-0000.bin: %v", err)
	}
	if _, err := os.Stat(filepath.Join(segDir, "doclen.bin")); err != nil {
		t.Fatalf("expected doclen.bin: %v", err)
	}

	mergedPath := filepath.Join(dir, "merged.bin")
	merge := newMergeCmd(&cfg)
	merge.SetArgs([]string{"--segments", segDir, "--out", mergedPath})
	if err := merge.Execute(); err != nil {
		t.Fatalf("merge: %v", err)
	}

	reader, err := compactindex.Open(mergedPath, compactindex.ReaderOptions{})
	if err != nil {
		t.Fatalf("Open merged: %v", err)
	}
	trailer := reader.Trailer()
	reader.Close()
	if trailer.TermCount != 3 {
		t.Errorf("merged term count = %d, want 3 (quick, fox, lazy)", trailer.TermCount)
	}

	var out bytes.Buffer
	query := newQueryCmd(&cfg)
	query.SetOut(&out)
	query.SetArgs([]string{
		"--index", mergedPath,
		"--doclen", filepath.Join(segDir, "doclen.bin"),
		"quick", "fox",
	})
	if err := query.Execute(); err != nil {
		t.Fatalf("query: %v", err)
	}
}

func TestBuildCommandContinuesPastNonMonotonePosting(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "segments.json")
	badFixture := `{
	  "segments": [
	    [
	      {"term": "quick", "doc_id": 0, "term_frequency": 3},
	      {"term": "quick", "doc_id": 0, "term_frequency": 1},
	      {"term": "fox", "doc_id": 1, "term_frequency": 2}
	    ]
	  ]
	}`
	if err := os.WriteFile(inputPath, []byte(badFixture), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	segDir := filepath.Join(dir, "segment-data")
	build := newBuildCmd(&cfg)
	build.SetArgs([]string{"--input", inputPath, "--out", segDir})
	if err := build.Execute(); err != nil {
		t.Fatalf("build should drop the non-monotone posting and continue, got error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(segDir, "segment-0000.bin")); err != nil {
		t.Fatalf("expected segment-0000.bin despite the dropped posting: %v", err)
	}
}

func TestStatsCommandReportsCounts(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "segments.json")
	if err := os.WriteFile(inputPath, []byte(fixtureJSON), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	segDir := filepath.Join(dir, "segment-data")
	build := newBuildCmd(&cfg)
	build.SetArgs([]string{"--input", inputPath, "--out", segDir})
	if err := build.Execute(); err != nil {
		t.Fatalf("build: %v", err)
	}

	var c *cobra.Command
	c = newStatsCmd(&cfg)
	c.SetArgs([]string{"--index", filepath.Join(segDir, "segment-0000.bin"), "--doclen", ""})
	if err := c.Execute(); err != nil {
		t.Fatalf("stats: %v", err)
	}
}
