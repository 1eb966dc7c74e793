package compactindex

import "testing"

func TestTermRecordRoundTripSingleton(t *testing.T) {
	headers := []SegmentHeader{{PostingCount: 7, ByteLength: 5, FirstElement: 12, LastElement: 340}}
	payloads := [][]byte{{1, 2, 3, 4, 5}}

	rec := encodeTermRecord("hello", headers, payloads)
	term, gotHeaders, gotPayloads, next, err := decodeTermRecord(rec, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if term != "hello" {
		t.Errorf("term = %q, want %q", term, "hello")
	}
	if next != len(rec) {
		t.Errorf("next = %d, want %d", next, len(rec))
	}
	if len(gotHeaders) != 1 || gotHeaders[0] != headers[0] {
		t.Fatalf("headers = %+v, want %+v", gotHeaders, headers)
	}
	if string(gotPayloads[0]) != string(payloads[0]) {
		t.Errorf("payload mismatch: got %v want %v", gotPayloads[0], payloads[0])
	}
}

func TestTermRecordRoundTripMultiSegment(t *testing.T) {
	headers := []SegmentHeader{
		{PostingCount: 3, ByteLength: 2, FirstElement: 10, LastElement: 30},
		{PostingCount: 4, ByteLength: 3, FirstElement: 40, LastElement: 90},
	}
	payloads := [][]byte{{0xAA, 0xBB}, {1, 2, 3}}

	rec := encodeTermRecord("worldwide", headers, payloads)
	term, gotHeaders, gotPayloads, next, err := decodeTermRecord(rec, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if term != "worldwide" || next != len(rec) {
		t.Fatalf("term=%q next=%d len=%d", term, next, len(rec))
	}
	if len(gotHeaders) != 2 {
		t.Fatalf("expected 2 headers, got %d", len(gotHeaders))
	}
	for i, h := range headers {
		if gotHeaders[i] != h {
			t.Errorf("header %d = %+v, want %+v", i, gotHeaders[i], h)
		}
		if string(gotPayloads[i]) != string(payloads[i]) {
			t.Errorf("payload %d mismatch", i)
		}
	}
}

func TestTermRecordSequentialDecode(t *testing.T) {
	rec1 := encodeTermRecord("alpha", []SegmentHeader{{PostingCount: 1, ByteLength: 1}}, [][]byte{{9}})
	rec2 := encodeTermRecord("beta", []SegmentHeader{{PostingCount: 2, ByteLength: 2}}, [][]byte{{1, 2}})
	buf := append(append([]byte{}, rec1...), rec2...)

	term1, _, _, next1, err := decodeTermRecord(buf, 0)
	if err != nil || term1 != "alpha" {
		t.Fatalf("first record: term=%q err=%v", term1, err)
	}
	term2, _, _, next2, err := decodeTermRecord(buf, next1)
	if err != nil || term2 != "beta" {
		t.Fatalf("second record: term=%q err=%v", term2, err)
	}
	if next2 != len(buf) {
		t.Errorf("next2 = %d, want %d", next2, len(buf))
	}
}

func TestTermRecordMalformedTruncated(t *testing.T) {
	rec := encodeTermRecord("x", []SegmentHeader{{PostingCount: 1, ByteLength: 4}}, [][]byte{{1, 2, 3, 4}})
	_, _, _, _, err := decodeTermRecord(rec[:len(rec)-2], 0)
	if err == nil {
		t.Fatal("expected error on truncated record")
	}
}
