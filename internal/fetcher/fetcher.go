// Package fetcher turns a pre-tokenized JSON document (or a batch of
// them) into the (term, docID, tf) triples that internal/dictionary
// and internal/compactindex consume.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TermPosting is one (term, docID, tf) observation read from a batch,
// the atomic unit internal/dictionary.AddPosting consumes once packed
// through common.PackDocLevel.
type TermPosting struct {
	Term          string
	DocID         uint32
	TermFrequency uint32
}

// Batch is one independently indexable group of postings: a dictionary
// is built per batch, then flushed to one compact index segment.
type Batch []TermPosting

// jsonTermPosting mirrors one entry of the source JSON. Field names
// follow the wire format, not Go conventions.
type jsonTermPosting struct {
	Term          string  `json:"term"`
	DocID         uint32  `json:"doc_id"`
	TermFrequency float32 `json:"term_frequency"`
}

type jsonRoot struct {
	Segments [][]jsonTermPosting `json:"segments"`
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Fetch retrieves the raw JSON payload from either an HTTP(S) URL or a
// local file path, honoring ctx cancellation on the network path.
func Fetch(ctx context.Context, path string) ([]byte, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("fetcher: build request for %q: %w", path, err)
		}
		response, err := httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetcher: fetch %q: %w", path, err)
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetcher: fetch %q: non-ok HTTP response: %s", path, response.Status)
		}

		data, err := io.ReadAll(response.Body)
		if err != nil {
			return nil, fmt.Errorf("fetcher: read response body for %q: %w", path, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fetcher: read local file %q: %w", path, err)
	}
	return data, nil
}

// ParseBatches decodes the fetched payload into its batches, truncating
// each term_frequency to the integer the dictionary and compact index
// store; a value that truncates to 0 is stored as 1.
func ParseBatches(data []byte) ([]Batch, error) {
	var root jsonRoot
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("fetcher: parse json: %w", err)
	}

	batches := make([]Batch, len(root.Segments))
	for i, segment := range root.Segments {
		batch := make(Batch, len(segment))
		for j, p := range segment {
			tf := uint32(p.TermFrequency)
			if tf == 0 {
				tf = 1
			}
			batch[j] = TermPosting{Term: p.Term, DocID: p.DocID, TermFrequency: tf}
		}
		batches[i] = batch
	}
	return batches, nil
}

// FetchBatches is the common entry point: fetch then parse in one call,
// cancelable through ctx when path is a remote URL.
func FetchBatches(ctx context.Context, path string) ([]Batch, error) {
	data, err := Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	return ParseBatches(data)
}
