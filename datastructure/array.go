package datastructure

import (
	"fmt"

	"github.com/janelia-flyem/voxfeat/buffer"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// Array is the type-erased view of a per-tuple array.  Engines that only move tuples
// around (reassignment donors, feature compaction) work through this interface and
// never need the element type.
type Array interface {
	Object

	// DataType returns the runtime tag of the element type.
	DataType() voxfeat.DataType

	NumTuples() int
	NumComponents() int
	ComponentShape() []int

	// CopyTuple copies every component of tuple from into tuple to.
	CopyTuple(from, to int)

	// ResizeTuples grows or shrinks to n tuples, preserving the leading tuples.
	ResizeTuples(n int)

	// CompactTuples keeps only tuples i for which keep[i] is true, preserving order,
	// and returns the new tuple count.
	CompactTuples(keep []bool) int

	// IsNeighborList is true for variable-length per-tuple lists.  Such arrays
	// cannot be meaningfully compacted when features are renumbered.
	IsNeighborList() bool

	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
}

// DataArray holds NumTuples() x NumComponents() elements of T, tuple-major.
type DataArray[T buffer.Element] struct {
	base
	compShape []int
	numComps  int
	store     *buffer.Vector[T]
}

// NewDataArray returns a zeroed array.  A nil or empty component shape means one
// component per tuple.
func NewDataArray[T buffer.Element](name string, numTuples int, compShape []int) *DataArray[T] {
	if len(compShape) == 0 {
		compShape = []int{1}
	}
	numComps := shapeProduct(compShape)
	return &DataArray[T]{
		base:      base{name: name},
		compShape: append([]int(nil), compShape...),
		numComps:  numComps,
		store:     buffer.New[T](numTuples * numComps),
	}
}

// NewDataArrayFrom returns a single-component array holding a copy of values.
func NewDataArrayFrom[T buffer.Element](name string, values []T) *DataArray[T] {
	return &DataArray[T]{
		base:      base{name: name},
		compShape: []int{1},
		numComps:  1,
		store:     buffer.FromSlice(values),
	}
}

func (a *DataArray[T]) DataType() voxfeat.DataType {
	return dataTypeOf[T]()
}

func (a *DataArray[T]) NumTuples() int {
	return a.store.Len() / a.numComps
}

func (a *DataArray[T]) NumComponents() int {
	return a.numComps
}

func (a *DataArray[T]) ComponentShape() []int {
	return append([]int(nil), a.compShape...)
}

// Store returns the underlying buffer.
func (a *DataArray[T]) Store() *buffer.Vector[T] {
	return a.store
}

// Values returns the backing slice of all elements.
func (a *DataArray[T]) Values() []T {
	return a.store.Data()
}

// Value returns component 0 of tuple i.
func (a *DataArray[T]) Value(i int) T {
	return a.store.Get(i * a.numComps)
}

// SetValue sets component 0 of tuple i.
func (a *DataArray[T]) SetValue(i int, v T) {
	a.store.Set(i*a.numComps, v)
}

// Tuple returns a slice aliasing the components of tuple i.
func (a *DataArray[T]) Tuple(i int) []T {
	start := i * a.numComps
	return a.store.Data()[start : start+a.numComps]
}

func (a *DataArray[T]) CopyTuple(from, to int) {
	if from == to {
		return
	}
	copy(a.Tuple(to), a.Tuple(from))
}

func (a *DataArray[T]) ResizeTuples(n int) {
	a.store.Resize(n * a.numComps)
}

func (a *DataArray[T]) CompactTuples(keep []bool) int {
	if len(keep) != a.NumTuples() {
		panic(fmt.Sprintf("compacting %q: mask has %d entries for %d tuples", a.name, len(keep), a.NumTuples()))
	}
	data := a.store.Data()
	next := 0
	for i, k := range keep {
		if !k {
			continue
		}
		if next != i {
			copy(data[next*a.numComps:(next+1)*a.numComps], data[i*a.numComps:(i+1)*a.numComps])
		}
		next++
	}
	a.store.Resize(next * a.numComps)
	return next
}

func (a *DataArray[T]) IsNeighborList() bool {
	return false
}

func (a *DataArray[T]) MarshalBinary() ([]byte, error) {
	return a.store.MarshalBinary()
}

func (a *DataArray[T]) UnmarshalBinary(b []byte) error {
	if err := a.store.UnmarshalBinary(b); err != nil {
		return err
	}
	if a.store.Len()%a.numComps != 0 {
		return fmt.Errorf("array %q: %d elements is not a multiple of %d components", a.name, a.store.Len(), a.numComps)
	}
	return nil
}

func (a *DataArray[T]) String() string {
	return fmt.Sprintf("%s array %q (%d tuples x %v)", a.DataType(), a.name, a.NumTuples(), a.compShape)
}
