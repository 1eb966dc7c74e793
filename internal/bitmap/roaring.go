// Package bitmap implements a Roaring-style compressed set of document
// IDs, used as the merger's garbage-collection state: a tombstone set
// of deleted documents, or its complement, the set of documents still
// visible. The high 16 bits of a docID select a container; the low 16
// bits are stored inside it, either as a sorted array (sparse
// containers) or a fixed 65536-bit map (dense containers), following
// roaringbitmap.org's layout. Beyond membership and union/intersection
// the set supports Remove and Subtract, the operations a tombstone
// lifecycle needs: deletions arrive one docID at a time, and the
// visible set is "everything minus the tombstones".
package bitmap

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"sort"

	"github.com/salvatore-campagna/indexcore/internal/codec"
)

// ContainerConversionThreshold is the cardinality above which an array
// container is promoted to a bitmap container, and at or below which a
// shrinking bitmap container is demoted back; roaringbitmap.org places
// the crossover at 4096 out of 65536 possible low-order values, the
// point past which an 8KB bitmap beats a sorted uint16 array.
const ContainerConversionThreshold = 4096

const bitmapWords = 65536 / 64

// ContainerType identifies the internal container implementation on
// the wire.
type ContainerType uint8

const (
	ArrayContainerType ContainerType = iota + 1
	BitmapContainerType
)

// Container is the interface both container implementations satisfy.
// Remove reports whether the value was present, so the enclosing
// Bitmap can keep its cardinality without re-counting.
type Container interface {
	Add(value uint16)
	Remove(value uint16) bool
	Contains(value uint16) bool
	Cardinality() int
	Union(other Container) Container
	Intersection(other Container) Container
	Subtract(other Container) Container
	Serialize(io.Writer) error
	Deserialize(io.Reader) error
}

// ArrayContainer stores a sorted array of low-order bits, compressed
// on the wire with the gap-coded vByte codec (internal/codec), and is
// the right shape for sparse containers. Its cardinality is simply the
// array length.
type ArrayContainer struct {
	values []uint16
}

func NewArrayContainer() *ArrayContainer {
	return &ArrayContainer{}
}

// find returns the insertion index for value and whether it is already
// present; every array operation shares it.
func (ac *ArrayContainer) find(value uint16) (int, bool) {
	i := sort.Search(len(ac.values), func(i int) bool { return ac.values[i] >= value })
	return i, i < len(ac.values) && ac.values[i] == value
}

func (ac *ArrayContainer) Add(value uint16) {
	i, present := ac.find(value)
	if present {
		return
	}
	ac.values = append(ac.values, 0)
	copy(ac.values[i+1:], ac.values[i:])
	ac.values[i] = value
}

// Remove deletes value from the sorted array, reporting whether it was
// present.
func (ac *ArrayContainer) Remove(value uint16) bool {
	i, present := ac.find(value)
	if !present {
		return false
	}
	ac.values = append(ac.values[:i], ac.values[i+1:]...)
	return true
}

func (ac *ArrayContainer) Contains(value uint16) bool {
	_, present := ac.find(value)
	return present
}

func (ac *ArrayContainer) Cardinality() int { return len(ac.values) }

// Serialize writes the container length followed by the vByte-coded,
// gap-delta representation of its sorted values.
func (ac *ArrayContainer) Serialize(w io.Writer) error {
	length := uint16(len(ac.values))
	if err := binary.Write(w, binary.LittleEndian, length); err != nil {
		return fmt.Errorf("bitmap: writing array container length: %w", err)
	}
	widened := make([]uint64, len(ac.values))
	for i, v := range ac.values {
		widened[i] = uint64(v)
	}
	data, _ := (codec.VByteCodec{}).Compress(widened)
	var dataLen uint32 = uint32(len(data))
	if err := binary.Write(w, binary.LittleEndian, dataLen); err != nil {
		return fmt.Errorf("bitmap: writing array container payload length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("bitmap: writing array container payload: %w", err)
	}
	return nil
}

func (ac *ArrayContainer) Deserialize(r io.Reader) error {
	var length uint16
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return fmt.Errorf("bitmap: reading array container length: %w", err)
	}
	var dataLen uint32
	if err := binary.Read(r, binary.LittleEndian, &dataLen); err != nil {
		return fmt.Errorf("bitmap: reading array container payload length: %w", err)
	}
	data := make([]byte, dataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("bitmap: reading array container payload: %w", err)
	}
	widened, n, err := (codec.VByteCodec{}).Decompress(data, int(length), nil)
	if err != nil {
		return fmt.Errorf("bitmap: decoding array container payload: %w", err)
	}
	if n != int(length) {
		return fmt.Errorf("bitmap: array container length mismatch, expected %d got %d", length, n)
	}
	ac.values = make([]uint16, n)
	for i, v := range widened {
		ac.values[i] = uint16(v)
	}
	return nil
}

// Rank returns the number of values less than or equal to value.
func (ac *ArrayContainer) Rank(value uint16) int {
	return sort.Search(len(ac.values), func(i int) bool { return ac.values[i] > value })
}

// Union merges two sorted arrays directly into a preallocated result;
// a bitmap operand handles the merge on its side.
func (ac *ArrayContainer) Union(other Container) Container {
	switch other := other.(type) {
	case *ArrayContainer:
		out := make([]uint16, 0, len(ac.values)+len(other.values))
		i, j := 0, 0
		for i < len(ac.values) && j < len(other.values) {
			a, b := ac.values[i], other.values[j]
			if a <= b {
				out = append(out, a)
				i++
				if a == b {
					j++
				}
			} else {
				out = append(out, b)
				j++
			}
		}
		out = append(out, ac.values[i:]...)
		out = append(out, other.values[j:]...)
		return &ArrayContainer{values: out}
	case *BitmapContainer:
		return other.Union(ac)
	}
	return nil
}

func (ac *ArrayContainer) Intersection(other Container) Container {
	switch other := other.(type) {
	case *ArrayContainer:
		short, long := ac.values, other.values
		if len(long) < len(short) {
			short, long = long, short
		}
		out := make([]uint16, 0, len(short))
		j := 0
		for _, v := range short {
			for j < len(long) && long[j] < v {
				j++
			}
			if j < len(long) && long[j] == v {
				out = append(out, v)
				j++
			}
		}
		return &ArrayContainer{values: out}
	case *BitmapContainer:
		return other.Intersection(ac)
	}
	return nil
}

// Subtract returns the values of ac not present in other, the
// container-level half of tombstone filtering.
func (ac *ArrayContainer) Subtract(other Container) Container {
	out := make([]uint16, 0, len(ac.values))
	switch other := other.(type) {
	case *ArrayContainer:
		j := 0
		for _, v := range ac.values {
			for j < len(other.values) && other.values[j] < v {
				j++
			}
			if j < len(other.values) && other.values[j] == v {
				continue
			}
			out = append(out, v)
		}
	case *BitmapContainer:
		for _, v := range ac.values {
			if !other.Contains(v) {
				out = append(out, v)
			}
		}
	default:
		return nil
	}
	return &ArrayContainer{values: out}
}

// ToBitmapContainer converts an ArrayContainer to a BitmapContainer,
// used once cardinality crosses ContainerConversionThreshold.
func (ac *ArrayContainer) ToBitmapContainer() *BitmapContainer {
	bc := NewBitmapContainer()
	for _, value := range ac.values {
		word, bit := value/64, value%64
		bc.words[word] |= 1 << bit
	}
	bc.cardinality = len(ac.values)
	return bc
}

// BitmapContainer is a fixed 65536-bit map, one bit per possible
// low-order value, for dense containers. The word array never grows or
// shrinks; density changes are handled by container conversion at the
// Bitmap level.
type BitmapContainer struct {
	words       [bitmapWords]uint64
	cardinality int
}

func NewBitmapContainer() *BitmapContainer {
	return &BitmapContainer{}
}

func (bc *BitmapContainer) Add(value uint16) {
	word, bit := value/64, value%64
	if bc.words[word]&(1<<bit) == 0 {
		bc.words[word] |= 1 << bit
		bc.cardinality++
	}
}

// Remove clears value's bit, reporting whether it was set.
func (bc *BitmapContainer) Remove(value uint16) bool {
	word, bit := value/64, value%64
	if bc.words[word]&(1<<bit) == 0 {
		return false
	}
	bc.words[word] &^= 1 << bit
	bc.cardinality--
	return true
}

func (bc *BitmapContainer) Contains(value uint16) bool {
	word, bit := value/64, value%64
	return bc.words[word]&(1<<bit) != 0
}

func (bc *BitmapContainer) Cardinality() int { return bc.cardinality }

func (bc *BitmapContainer) Serialize(w io.Writer) error {
	length := uint32(bitmapWords)
	if err := binary.Write(w, binary.LittleEndian, length); err != nil {
		return fmt.Errorf("bitmap: writing bitmap container length: %w", err)
	}
	for _, word := range bc.words {
		if err := binary.Write(w, binary.LittleEndian, word); err != nil {
			return fmt.Errorf("bitmap: writing bitmap container word: %w", err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(bc.cardinality)); err != nil {
		return fmt.Errorf("bitmap: writing bitmap container cardinality: %w", err)
	}
	return nil
}

func (bc *BitmapContainer) Deserialize(r io.Reader) error {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return fmt.Errorf("bitmap: reading bitmap container length: %w", err)
	}
	if length != bitmapWords {
		return fmt.Errorf("bitmap: bitmap container has %d words, want %d", length, bitmapWords)
	}
	bc.cardinality = 0
	for i := range bc.words {
		if err := binary.Read(r, binary.LittleEndian, &bc.words[i]); err != nil {
			return fmt.Errorf("bitmap: reading bitmap container word: %w", err)
		}
		bc.cardinality += bits.OnesCount64(bc.words[i])
	}
	var cardinality uint32
	if err := binary.Read(r, binary.LittleEndian, &cardinality); err != nil {
		return fmt.Errorf("bitmap: reading bitmap container cardinality: %w", err)
	}
	if uint32(bc.cardinality) != cardinality {
		return fmt.Errorf("bitmap: cardinality mismatch, header says %d, counted %d", cardinality, bc.cardinality)
	}
	return nil
}

// wordOp applies a per-word combiner against other and returns the
// result with its cardinality tallied in the same pass; Union,
// Intersection and Subtract differ only in the combiner.
func (bc *BitmapContainer) wordOp(other *BitmapContainer, combine func(a, b uint64) uint64) *BitmapContainer {
	result := NewBitmapContainer()
	for i := range bc.words {
		w := combine(bc.words[i], other.words[i])
		result.words[i] = w
		result.cardinality += bits.OnesCount64(w)
	}
	return result
}

func (bc *BitmapContainer) Union(other Container) Container {
	switch other := other.(type) {
	case *BitmapContainer:
		return bc.wordOp(other, func(a, b uint64) uint64 { return a | b })
	case *ArrayContainer:
		result := bc.wordOp(bc, func(a, _ uint64) uint64 { return a })
		for _, v := range other.values {
			result.Add(v)
		}
		return result
	}
	return nil
}

func (bc *BitmapContainer) Intersection(other Container) Container {
	switch other := other.(type) {
	case *BitmapContainer:
		return bc.wordOp(other, func(a, b uint64) uint64 { return a & b })
	case *ArrayContainer:
		out := make([]uint16, 0, len(other.values))
		for _, v := range other.values {
			if bc.Contains(v) {
				out = append(out, v)
			}
		}
		return &ArrayContainer{values: out}
	}
	return nil
}

// Subtract clears every bit present in other.
func (bc *BitmapContainer) Subtract(other Container) Container {
	switch other := other.(type) {
	case *BitmapContainer:
		return bc.wordOp(other, func(a, b uint64) uint64 { return a &^ b })
	case *ArrayContainer:
		result := bc.wordOp(bc, func(a, _ uint64) uint64 { return a })
		for _, v := range other.values {
			result.Remove(v)
		}
		return result
	}
	return nil
}

// Rank returns the number of bits set at or below value.
func (bc *BitmapContainer) Rank(value uint16) int {
	word, bit := int(value/64), uint(value%64)
	rank := 0
	for i := 0; i < word; i++ {
		rank += bits.OnesCount64(bc.words[i])
	}
	mask := (uint64(1) << (bit + 1)) - 1
	return rank + bits.OnesCount64(bc.words[word]&mask)
}

// ToArrayContainer converts back to a sorted array, used when removals
// bring cardinality back under the conversion threshold.
func (bc *BitmapContainer) ToArrayContainer() *ArrayContainer {
	out := make([]uint16, 0, bc.cardinality)
	for i, word := range bc.words {
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			out = append(out, uint16(i*64+bit))
			word &= word - 1
		}
	}
	return &ArrayContainer{values: out}
}

// Bitmap is a two-level Roaring set of document IDs: the high 16 bits
// of a docID select a container, keyed so the set can be walked,
// combined and subtracted in ascending docID order.
type Bitmap struct {
	containers  map[uint16]Container
	cardinality int
}

func New() *Bitmap {
	return &Bitmap{containers: make(map[uint16]Container)}
}

// NewRange returns the set of every docID in [lo, hi), the usual
// starting point for a visible set before tombstones are subtracted:
// full containers are built dense directly instead of being promoted
// one Add at a time.
func NewRange(lo, hi uint32) *Bitmap {
	b := New()
	for lo < hi {
		key := uint16(lo >> 16)
		chunkEnd := (uint32(key) + 1) << 16
		if key == 0xFFFF {
			chunkEnd = 0xFFFFFFFF
		}
		end := hi
		if chunkEnd != 0xFFFFFFFF && chunkEnd < hi {
			end = chunkEnd
		}
		n := int(end - lo)
		if n > ContainerConversionThreshold {
			bc := NewBitmapContainer()
			for v := lo; v < end; v++ {
				word, bit := uint16(v)/64, uint16(v)%64
				bc.words[word] |= 1 << bit
			}
			bc.cardinality = n
			b.containers[key] = bc
		} else {
			values := make([]uint16, 0, n)
			for v := lo; v < end; v++ {
				values = append(values, uint16(v))
			}
			b.containers[key] = &ArrayContainer{values: values}
		}
		b.cardinality += n
		if end == 0xFFFFFFFF {
			break
		}
		lo = end
	}
	return b
}

// Add marks docID as a member, promoting its container to a bitmap
// representation once it crosses ContainerConversionThreshold.
func (b *Bitmap) Add(docID uint32) {
	key := uint16(docID >> 16)
	low := uint16(docID & 0xFFFF)

	container, exists := b.containers[key]
	if !exists {
		container = NewArrayContainer()
		b.containers[key] = container
	}

	before := container.Cardinality()
	container.Add(low)
	if container.Cardinality() > before {
		b.cardinality++
	}

	if ac, ok := container.(*ArrayContainer); ok && ac.Cardinality() > ContainerConversionThreshold {
		b.containers[key] = ac.ToBitmapContainer()
	}
}

// Remove deletes docID from the set — a tombstone being applied —
// demoting a bitmap container back to an array once it shrinks to the
// conversion threshold, and dropping the container entirely when it
// empties.
func (b *Bitmap) Remove(docID uint32) {
	key := uint16(docID >> 16)
	low := uint16(docID & 0xFFFF)

	container, exists := b.containers[key]
	if !exists {
		return
	}
	if !container.Remove(low) {
		return
	}
	b.cardinality--

	switch c := container.(type) {
	case *BitmapContainer:
		if c.Cardinality() <= ContainerConversionThreshold {
			b.containers[key] = c.ToArrayContainer()
		}
	case *ArrayContainer:
		if c.Cardinality() == 0 {
			delete(b.containers, key)
		}
	}
}

func (b *Bitmap) Contains(docID uint32) bool {
	key := uint16(docID >> 16)
	low := uint16(docID & 0xFFFF)
	container, exists := b.containers[key]
	if !exists {
		return false
	}
	return container.Contains(low)
}

func (b *Bitmap) Union(other *Bitmap) *Bitmap {
	result := New()
	for key, container := range b.containers {
		result.containers[key] = container
		result.cardinality += container.Cardinality()
	}
	for key, container := range other.containers {
		if existing, exists := result.containers[key]; exists {
			merged := existing.Union(container)
			result.containers[key] = merged
			result.cardinality += merged.Cardinality() - existing.Cardinality()
		} else {
			result.containers[key] = container
			result.cardinality += container.Cardinality()
		}
	}
	return result
}

func (b *Bitmap) Intersection(other *Bitmap) *Bitmap {
	result := New()
	for key, container := range b.containers {
		if otherContainer, exists := other.containers[key]; exists {
			merged := container.Intersection(otherContainer)
			if merged.Cardinality() > 0 {
				result.containers[key] = merged
				result.cardinality += merged.Cardinality()
			}
		}
	}
	return result
}

// Subtract returns b minus other: the visible set left after applying
// a tombstone set. Containers with no tombstones are shared, not
// copied.
func (b *Bitmap) Subtract(other *Bitmap) *Bitmap {
	result := New()
	for key, container := range b.containers {
		tombstones, exists := other.containers[key]
		if !exists {
			result.containers[key] = container
			result.cardinality += container.Cardinality()
			continue
		}
		remaining := container.Subtract(tombstones)
		if remaining.Cardinality() > 0 {
			result.containers[key] = remaining
			result.cardinality += remaining.Cardinality()
		}
	}
	return result
}

func (b *Bitmap) Cardinality() int { return b.cardinality }

func (b *Bitmap) sortedKeys() []uint16 {
	keys := make([]uint16, 0, len(b.containers))
	for k := range b.containers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// DocIDs returns every member docID in strictly ascending order, the
// property the merger's GC filter relies on.
func (b *Bitmap) DocIDs() []uint32 {
	docIDs := make([]uint32, 0, b.cardinality)
	for _, key := range b.sortedKeys() {
		base := uint32(key) << 16
		switch c := b.containers[key].(type) {
		case *ArrayContainer:
			for _, v := range c.values {
				docIDs = append(docIDs, base|uint32(v))
			}
		case *BitmapContainer:
			for i, word := range c.words {
				for word != 0 {
					bit := bits.TrailingZeros64(word)
					docIDs = append(docIDs, base|uint32(i*64+bit))
					word &= word - 1
				}
			}
		}
	}
	return docIDs
}

// Rank counts the number of member docIDs at or below docID, scanning
// containers in ascending key order.
func (b *Bitmap) Rank(docID uint32) int {
	rank := 0
	targetKey := uint16(docID >> 16)
	targetLow := uint16(docID & 0xFFFF)
	for _, key := range b.sortedKeys() {
		if key < targetKey {
			rank += b.containers[key].Cardinality()
			continue
		}
		if key == targetKey {
			switch c := b.containers[key].(type) {
			case *ArrayContainer:
				rank += c.Rank(targetLow)
			case *BitmapContainer:
				rank += c.Rank(targetLow)
			}
		}
		break
	}
	return rank
}

// Serialize writes the bitmap in a portable, container-keyed format.
func (b *Bitmap) Serialize(w io.Writer) error {
	keys := b.sortedKeys()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(keys))); err != nil {
		return fmt.Errorf("bitmap: writing container count: %w", err)
	}
	for _, key := range keys {
		container := b.containers[key]
		if err := binary.Write(w, binary.LittleEndian, key); err != nil {
			return fmt.Errorf("bitmap: writing container key: %w", err)
		}
		var containerType ContainerType
		switch container.(type) {
		case *ArrayContainer:
			containerType = ArrayContainerType
		case *BitmapContainer:
			containerType = BitmapContainerType
		default:
			return fmt.Errorf("bitmap: unknown container type %T", container)
		}
		if err := binary.Write(w, binary.LittleEndian, containerType); err != nil {
			return fmt.Errorf("bitmap: writing container type: %w", err)
		}
		if err := container.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bitmap) Deserialize(r io.Reader) error {
	b.containers = make(map[uint16]Container)
	var numContainers uint32
	if err := binary.Read(r, binary.LittleEndian, &numContainers); err != nil {
		return fmt.Errorf("bitmap: reading container count: %w", err)
	}
	for i := uint32(0); i < numContainers; i++ {
		var key uint16
		if err := binary.Read(r, binary.LittleEndian, &key); err != nil {
			return fmt.Errorf("bitmap: reading container key: %w", err)
		}
		var containerType ContainerType
		if err := binary.Read(r, binary.LittleEndian, &containerType); err != nil {
			return fmt.Errorf("bitmap: reading container type: %w", err)
		}
		var container Container
		switch containerType {
		case ArrayContainerType:
			container = NewArrayContainer()
		case BitmapContainerType:
			container = NewBitmapContainer()
		default:
			return fmt.Errorf("bitmap: unknown container type tag %d", containerType)
		}
		if err := container.Deserialize(r); err != nil {
			return fmt.Errorf("bitmap: deserializing container: %w", err)
		}
		b.containers[key] = container
	}
	b.cardinality = 0
	for _, container := range b.containers {
		b.cardinality += container.Cardinality()
	}
	return nil
}
