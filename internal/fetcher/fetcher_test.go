package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const sampleJSON = `{
  "segments": [
    [
      {"term": "quick", "doc_id": 0, "term_frequency": 2},
      {"term": "fox", "doc_id": 0, "term_frequency": 1}
    ],
    [
      {"term": "quick", "doc_id": 1, "term_frequency": 0}
    ]
  ]
}`

func TestFetchReadsLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "segments.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != sampleJSON {
		t.Errorf("Fetch returned unexpected content")
	}
}

func TestFetchReadsHTTPURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleJSON))
	}))
	defer srv.Close()

	data, err := Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != sampleJSON {
		t.Errorf("Fetch returned unexpected content")
	}
}

func TestFetchRejectsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for non-OK HTTP response")
	}
}

func TestFetchRespectsCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleJSON))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Fetch(ctx, srv.URL); err == nil {
		t.Fatal("expected error for an already-canceled context")
	}
}

func TestParseBatchesDecodesSegmentsAndDefaultsZeroTF(t *testing.T) {
	batches, err := ParseBatches([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("ParseBatches: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if len(batches[0]) != 2 {
		t.Fatalf("got %d postings in batch 0, want 2", len(batches[0]))
	}
	if batches[0][0].Term != "quick" || batches[0][0].DocID != 0 || batches[0][0].TermFrequency != 2 {
		t.Errorf("batches[0][0] = %+v, unexpected", batches[0][0])
	}
	if batches[1][0].TermFrequency != 1 {
		t.Errorf("zero term_frequency should default to 1, got %d", batches[1][0].TermFrequency)
	}
}

func TestParseBatchesRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseBatches([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestFetchBatchesEndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "segments.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	batches, err := FetchBatches(context.Background(), path)
	if err != nil {
		t.Fatalf("FetchBatches: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
}
