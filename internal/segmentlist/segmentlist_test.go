package segmentlist

import (
	"path/filepath"
	"testing"

	"github.com/salvatore-campagna/indexcore/internal/codec"
	"github.com/salvatore-campagna/indexcore/internal/compactindex"
)

func buildList(t *testing.T, postings []uint64) *List {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.bin")
	w, err := compactindex.NewWriter(path, codec.VByteCodec{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.AddPostings("term", postings); err != nil {
		t.Fatalf("AddPostings: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := compactindex.Open(path, compactindex.ReaderOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })

	pl, err := r.GetPostings("term")
	if err != nil || pl == nil {
		t.Fatalf("GetPostings: pl=%v err=%v", pl, err)
	}
	list, err := New("term", FromPostingList(pl))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return list
}

func TestListLengthAndGetNth(t *testing.T) {
	postings := []uint64{2, 4, 6, 8, 10, 12}
	list := buildList(t, postings)

	if got := list.Length(); got != int64(len(postings)) {
		t.Fatalf("Length() = %d, want %d", got, len(postings))
	}
	for i, want := range postings {
		got, ok, err := list.GetNth(int64(i))
		if err != nil || !ok {
			t.Fatalf("GetNth(%d): ok=%v err=%v", i, ok, err)
		}
		if got != want {
			t.Errorf("GetNth(%d) = %d, want %d", i, got, want)
		}
	}
	if _, ok, _ := list.GetNth(int64(len(postings))); ok {
		t.Errorf("GetNth(out of range) = ok, want false")
	}
}

func TestFirstStartGEAndLastStartLE(t *testing.T) {
	postings := []uint64{2, 4, 6, 8, 10}
	list := buildList(t, postings)

	tests := []struct {
		pos  uint64
		want uint64
		ok   bool
	}{
		{0, 2, true},
		{2, 2, true},
		{3, 4, true},
		{10, 10, true},
		{11, 0, false},
	}
	for _, test := range tests {
		got, ok, err := list.FirstStartGE(test.pos)
		if err != nil {
			t.Fatalf("FirstStartGE(%d): %v", test.pos, err)
		}
		if ok != test.ok || (ok && got != test.want) {
			t.Errorf("FirstStartGE(%d) = %d, %v; want %d, %v", test.pos, got, ok, test.want, test.ok)
		}
	}

	lastTests := []struct {
		pos  uint64
		want uint64
		ok   bool
	}{
		{1, 0, false},
		{2, 2, true},
		{5, 4, true},
		{100, 10, true},
	}
	for _, test := range lastTests {
		got, ok, err := list.LastStartLE(test.pos)
		if err != nil {
			t.Fatalf("LastStartLE(%d): %v", test.pos, err)
		}
		if ok != test.ok || (ok && got != test.want) {
			t.Errorf("LastStartLE(%d) = %d, %v; want %d, %v", test.pos, got, ok, test.want, test.ok)
		}
	}
}

func TestNextN(t *testing.T) {
	postings := []uint64{1, 2, 3, 4, 5, 6, 7, 8}
	list := buildList(t, postings)

	got, err := list.NextN(3, 4)
	if err != nil {
		t.Fatalf("NextN: %v", err)
	}
	want := []uint64{3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("NextN = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NextN[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestCountRange(t *testing.T) {
	postings := []uint64{1, 2, 3, 10, 11, 20}
	list := buildList(t, postings)

	n, err := list.Count(2, 11)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 4 {
		t.Fatalf("Count(2,11) = %d, want 4", n)
	}
}

func TestManySegmentsSequentialReadAhead(t *testing.T) {
	n := 40000
	postings := make([]uint64, n)
	for i := range postings {
		postings[i] = uint64(i)
	}
	list := buildList(t, postings)

	for i := 0; i < n; i += 1000 {
		got, ok, err := list.GetNth(int64(i))
		if err != nil || !ok || got != uint64(i) {
			t.Fatalf("GetNth(%d) = %d, %v, %v", i, got, ok, err)
		}
	}
}
