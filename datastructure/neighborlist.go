package datastructure

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/janelia-flyem/voxfeat/buffer"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// NeighborList holds a variable-length list of T per tuple, e.g., the ids of the
// features touching each feature.
type NeighborList[T buffer.Element] struct {
	base
	lists [][]T
}

func NewNeighborList[T buffer.Element](name string, numTuples int) *NeighborList[T] {
	return &NeighborList[T]{base: base{name: name}, lists: make([][]T, numTuples)}
}

func (nl *NeighborList[T]) DataType() voxfeat.DataType {
	return dataTypeOf[T]()
}

func (nl *NeighborList[T]) NumTuples() int {
	return len(nl.lists)
}

func (nl *NeighborList[T]) NumComponents() int {
	return 1
}

func (nl *NeighborList[T]) ComponentShape() []int {
	return []int{1}
}

// List returns the list stored at tuple i.
func (nl *NeighborList[T]) List(i int) []T {
	return nl.lists[i]
}

// SetList replaces the list at tuple i with a copy of values.
func (nl *NeighborList[T]) SetList(i int, values []T) {
	nl.lists[i] = slices.Clone(values)
}

// AddEntry appends a value to the list at tuple i.
func (nl *NeighborList[T]) AddEntry(i int, v T) {
	nl.lists[i] = append(nl.lists[i], v)
}

func (nl *NeighborList[T]) CopyTuple(from, to int) {
	if from == to {
		return
	}
	nl.lists[to] = slices.Clone(nl.lists[from])
}

func (nl *NeighborList[T]) ResizeTuples(n int) {
	if n <= len(nl.lists) {
		clear(nl.lists[n:])
		nl.lists = nl.lists[:n]
		return
	}
	nl.lists = append(nl.lists, make([][]T, n-len(nl.lists))...)
}

func (nl *NeighborList[T]) CompactTuples(keep []bool) int {
	if len(keep) != len(nl.lists) {
		panic(fmt.Sprintf("compacting %q: mask has %d entries for %d tuples", nl.name, len(keep), len(nl.lists)))
	}
	next := 0
	for i, k := range keep {
		if k {
			nl.lists[next] = nl.lists[i]
			next++
		}
	}
	nl.ResizeTuples(next)
	return next
}

func (nl *NeighborList[T]) IsNeighborList() bool {
	return true
}

// MarshalBinary encodes the tuple count, then each list length followed by its
// little-endian elements.
func (nl *NeighborList[T]) MarshalBinary() ([]byte, error) {
	out := binary.LittleEndian.AppendUint64(nil, uint64(len(nl.lists)))
	for _, list := range nl.lists {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(list)))
		b, err := buffer.FromSlice(list).MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (nl *NeighborList[T]) UnmarshalBinary(b []byte) error {
	if len(b) < 8 {
		return fmt.Errorf("neighbor list %q: truncated header", nl.name)
	}
	n := binary.LittleEndian.Uint64(b)
	b = b[8:]
	// Every list carries at least a 4-byte length.
	if n > uint64(len(b)/4) {
		return fmt.Errorf("neighbor list %q: header claims %d lists but only %d bytes follow", nl.name, n, len(b))
	}
	elemSize := dataTypeOf[T]().Bytes()
	lists := make([][]T, 0, n)
	for i := uint64(0); i < n; i++ {
		if len(b) < 4 {
			return fmt.Errorf("neighbor list %q: truncated at list %d", nl.name, i)
		}
		length := int(binary.LittleEndian.Uint32(b))
		b = b[4:]
		if len(b) < length*elemSize {
			return fmt.Errorf("neighbor list %q: list %d needs %d bytes, have %d", nl.name, i, length*elemSize, len(b))
		}
		var v buffer.Vector[T]
		if err := v.UnmarshalBinary(b[:length*elemSize]); err != nil {
			return err
		}
		lists = append(lists, v.Data())
		b = b[length*elemSize:]
	}
	nl.lists = lists
	return nil
}
