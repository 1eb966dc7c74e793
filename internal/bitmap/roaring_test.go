package bitmap

import (
	"bytes"
	"math/bits"
	"math/rand"
	"testing"
)

func populateArrayContainer(ac *ArrayContainer, values map[uint16]bool) {
	for value, included := range values {
		if included {
			ac.Add(value)
		}
	}
}

func populateBitmapContainer(bc *BitmapContainer, values map[uint16]bool) {
	for value, included := range values {
		if included {
			bc.Add(value)
		}
	}
}

func populateBitmap(b *Bitmap, values map[uint32]bool) {
	for value, included := range values {
		if included {
			b.Add(value)
		}
	}
}

func generateRandomUint16Values(max int) map[uint16]bool {
	values := make(map[uint16]bool)
	for len(values) < rand.Intn(max) {
		value := uint16(rand.Uint32() & 0xFFFF)
		values[value] = rand.Intn(2) == 0
	}
	return values
}

func generateRandomUint32Values(max int) map[uint32]bool {
	values := make(map[uint32]bool)
	for len(values) < rand.Intn(max) {
		value := rand.Uint32()
		values[value] = rand.Intn(2) == 0
	}
	return values
}

func TestArrayContainer_Add(t *testing.T) {
	ac := NewArrayContainer()
	values := generateRandomUint16Values(10_000)
	populateArrayContainer(ac, values)

	for value, included := range values {
		if included && !ac.Contains(value) {
			t.Errorf("ArrayContainer missing value [%d] after adding", value)
		}
	}
}

func TestArrayContainer_Cardinality(t *testing.T) {
	ac := NewArrayContainer()
	values := generateRandomUint16Values(10_000)

	count := 0
	for value, included := range values {
		if included {
			ac.Add(value)
			count++
		}
	}
	if ac.Cardinality() != count {
		t.Errorf("expected cardinality %d, got %d", count, ac.Cardinality())
	}
}

func TestArrayContainer_SerializeRoundTrip(t *testing.T) {
	ac := NewArrayContainer()
	for _, v := range []uint16{1, 2, 3, 100, 1000, 1001, 65535} {
		ac.Add(v)
	}
	var buf bytes.Buffer
	if err := ac.Serialize(&buf); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got := NewArrayContainer()
	if err := got.Deserialize(&buf); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got.Cardinality() != ac.Cardinality() {
		t.Fatalf("cardinality mismatch: got %d want %d", got.Cardinality(), ac.Cardinality())
	}
	for _, v := range ac.values {
		if !got.Contains(v) {
			t.Errorf("round-tripped container missing %d", v)
		}
	}
}

func TestBitmapContainer_Add(t *testing.T) {
	bc := NewBitmapContainer()
	values := generateRandomUint16Values(10_000)
	populateBitmapContainer(bc, values)

	for value, included := range values {
		if included && !bc.Contains(value) {
			t.Errorf("BitmapContainer missing value [%d] after adding", value)
		}
	}
}

func TestBitmapContainer_Cardinality(t *testing.T) {
	bc := NewBitmapContainer()
	values := generateRandomUint16Values(10_000)

	count := 0
	for value, included := range values {
		if included {
			bc.Add(value)
			count++
		}
	}
	if bc.Cardinality() != count {
		t.Errorf("expected cardinality %d, got %d", count, bc.Cardinality())
	}
}

func TestBitmap_Add(t *testing.T) {
	b := New()
	values := generateRandomUint32Values(10_000)
	populateBitmap(b, values)

	for value, included := range values {
		if included && !b.Contains(value) {
			t.Errorf("Bitmap missing value [%d] after adding", value)
		}
	}
}

func TestBitmap_Cardinality(t *testing.T) {
	b := New()
	values := generateRandomUint32Values(10_000)

	count := 0
	for value, included := range values {
		if included {
			b.Add(value)
			count++
		}
	}
	if b.Cardinality() != count {
		t.Errorf("expected cardinality %d, got %d", count, b.Cardinality())
	}
}

func TestBitmap_SerializeRoundTrip(t *testing.T) {
	original := New()
	values := generateRandomUint32Values(1000)
	populateBitmap(original, values)

	var buf bytes.Buffer
	if err := original.Serialize(&buf); err != nil {
		t.Fatalf("serialize: %v", err)
	}

	got := New()
	if err := got.Deserialize(&buf); err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if got.Cardinality() != original.Cardinality() {
		t.Errorf("cardinality mismatch after deserialization: got %d, want %d", got.Cardinality(), original.Cardinality())
	}
	for value, included := range values {
		if included && !got.Contains(value) {
			t.Errorf("deserialized bitmap missing value %d", value)
		} else if !included && got.Contains(value) {
			t.Errorf("deserialized bitmap incorrectly includes value %d", value)
		}
	}
}

func TestBitmap_DocIDsAscending(t *testing.T) {
	b := New()
	for _, v := range []uint32{5, 0x20001, 3, 0x10000, 0xFFFFFFFF, 9} {
		b.Add(v)
	}
	ids := b.DocIDs()
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("DocIDs not strictly ascending at %d: %d then %d", i, ids[i-1], ids[i])
		}
	}
	if len(ids) != b.Cardinality() {
		t.Fatalf("DocIDs length %d != cardinality %d", len(ids), b.Cardinality())
	}
}

func TestArrayContainer_Rank(t *testing.T) {
	ac := &ArrayContainer{values: []uint16{1, 5, 10, 20, 30}}

	tests := []struct {
		input  uint16
		expect int
	}{
		{0, 0}, {1, 1}, {5, 2}, {10, 3}, {15, 3}, {20, 4}, {30, 5}, {35, 5},
	}
	for _, test := range tests {
		if got := ac.Rank(test.input); got != test.expect {
			t.Errorf("ArrayContainer.Rank(%d) = %d; expected %d", test.input, got, test.expect)
		}
	}
}

func TestBitmapContainer_Rank(t *testing.T) {
	bc := NewBitmapContainer()
	bc.Add(1)
	bc.Add(16)
	bc.Add(66)

	tests := []struct {
		input  uint16
		expect int
	}{
		{0, 0}, {1, 1}, {15, 1}, {16, 2}, {65, 2}, {66, 3}, {67, 3}, {68, 3},
	}
	for _, test := range tests {
		if got := bc.Rank(test.input); got != test.expect {
			t.Errorf("BitmapContainer.Rank(%d) = %d; expected %d", test.input, got, test.expect)
		}
	}
}

func TestBitmap_Rank(t *testing.T) {
	b := New()
	b.Add(0x00010001)
	b.Add(0x00010002)
	b.Add(0x00020003)
	b.Add(0x00030004)

	tests := []struct {
		input  uint32
		expect int
	}{
		{0x00010001, 1},
		{0x00010002, 2},
		{0x00020003, 3},
		{0x00030004, 4},
		{0x00040000, 4},
	}
	for _, test := range tests {
		if got := b.Rank(test.input); got != test.expect {
			t.Errorf("Bitmap.Rank(%#x) = %d; expected %d", test.input, got, test.expect)
		}
	}
}

func TestBitmapContainer_RankRandomSelection(t *testing.T) {
	bc := NewBitmapContainer()
	for i := uint16(0); i < 65535; i++ {
		if i%2 == 0 {
			bc.Add(i)
		}
	}
	for i := 0; i < 1_000; i++ {
		targetLow := uint16(rand.Intn(65536))
		expected := expectedRank(bc.words[:], targetLow)
		if got := bc.Rank(targetLow); got != expected {
			t.Errorf("BitmapContainer.Rank(%d) = %d; expected %d", targetLow, got, expected)
		}
	}
}

func expectedRank(bitmap []uint64, value uint16) int {
	rank := 0
	for wordIndex := 0; wordIndex <= int(value/64); wordIndex++ {
		word := bitmap[wordIndex]
		if wordIndex == int(value/64) {
			mask := (uint64(1) << ((value % 64) + 1)) - 1
			word &= mask
		}
		rank += bits.OnesCount64(word)
	}
	return rank
}

func TestBitmap_UnionIntersection(t *testing.T) {
	a := New()
	b := New()
	for _, v := range []uint32{1, 2, 3, 100000} {
		a.Add(v)
	}
	for _, v := range []uint32{2, 3, 4, 100000} {
		b.Add(v)
	}
	union := a.Union(b)
	for _, v := range []uint32{1, 2, 3, 4, 100000} {
		if !union.Contains(v) {
			t.Errorf("union missing %d", v)
		}
	}
	if union.Cardinality() != 5 {
		t.Errorf("union cardinality = %d, want 5", union.Cardinality())
	}

	inter := a.Intersection(b)
	for _, v := range []uint32{2, 3, 100000} {
		if !inter.Contains(v) {
			t.Errorf("intersection missing %d", v)
		}
	}
	if inter.Contains(1) || inter.Contains(4) {
		t.Errorf("intersection contains values outside the overlap")
	}
}

func TestBitmap_RemoveAppliesTombstones(t *testing.T) {
	b := New()
	for _, v := range []uint32{1, 2, 3, 0x10005} {
		b.Add(v)
	}
	b.Remove(2)
	b.Remove(0x10005)
	b.Remove(99) // absent, must be a no-op

	if b.Contains(2) || b.Contains(0x10005) {
		t.Error("removed docIDs still present")
	}
	if !b.Contains(1) || !b.Contains(3) {
		t.Error("surviving docIDs were lost")
	}
	if b.Cardinality() != 2 {
		t.Errorf("cardinality = %d, want 2", b.Cardinality())
	}
}

func TestBitmap_RemoveDemotesDenseContainer(t *testing.T) {
	b := New()
	n := uint32(ContainerConversionThreshold + 10)
	for v := uint32(0); v < n; v++ {
		b.Add(v)
	}
	if _, ok := b.containers[0].(*BitmapContainer); !ok {
		t.Fatalf("container should be dense after %d adds", n)
	}
	for v := uint32(0); v < 20; v++ {
		b.Remove(v)
	}
	if _, ok := b.containers[0].(*ArrayContainer); !ok {
		t.Error("container should demote to an array once removals cross the threshold")
	}
	if b.Cardinality() != int(n)-20 {
		t.Errorf("cardinality = %d, want %d", b.Cardinality(), int(n)-20)
	}
	for v := uint32(20); v < n; v++ {
		if !b.Contains(v) {
			t.Fatalf("docID %d lost across the demotion", v)
		}
	}
}

func TestBitmap_SubtractComputesVisibleSet(t *testing.T) {
	all := NewRange(0, 10)
	tombstones := New()
	tombstones.Add(3)
	tombstones.Add(7)

	visible := all.Subtract(tombstones)
	if visible.Cardinality() != 8 {
		t.Fatalf("visible cardinality = %d, want 8", visible.Cardinality())
	}
	for v := uint32(0); v < 10; v++ {
		want := v != 3 && v != 7
		if visible.Contains(v) != want {
			t.Errorf("visible.Contains(%d) = %v, want %v", v, visible.Contains(v), want)
		}
	}
}

func TestBitmap_SubtractAcrossContainerShapes(t *testing.T) {
	dense := NewRange(0, ContainerConversionThreshold*2)
	sparse := New()
	for v := uint32(0); v < ContainerConversionThreshold*2; v += 2 {
		sparse.Add(v)
	}
	odd := dense.Subtract(sparse)
	if odd.Cardinality() != ContainerConversionThreshold {
		t.Fatalf("cardinality = %d, want %d", odd.Cardinality(), ContainerConversionThreshold)
	}
	for _, v := range []uint32{1, 3, ContainerConversionThreshold*2 - 1} {
		if !odd.Contains(v) {
			t.Errorf("odd docID %d missing", v)
		}
	}
	if odd.Contains(0) || odd.Contains(2) {
		t.Error("even docIDs survived the subtraction")
	}
}

func TestNewRangeMatchesIndividualAdds(t *testing.T) {
	r := NewRange(10, 70000)
	if r.Cardinality() != 70000-10 {
		t.Fatalf("cardinality = %d, want %d", r.Cardinality(), 70000-10)
	}
	for _, v := range []uint32{10, 65535, 65536, 69999} {
		if !r.Contains(v) {
			t.Errorf("range missing %d", v)
		}
	}
	for _, v := range []uint32{9, 70000, 100000} {
		if r.Contains(v) {
			t.Errorf("range incorrectly contains %d", v)
		}
	}
	ids := r.DocIDs()
	if len(ids) != r.Cardinality() {
		t.Fatalf("DocIDs length %d != cardinality %d", len(ids), r.Cardinality())
	}
	if ids[0] != 10 || ids[len(ids)-1] != 69999 {
		t.Errorf("DocIDs bounds = [%d, %d], want [10, 69999]", ids[0], ids[len(ids)-1])
	}
}
