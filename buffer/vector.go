/*
	Package buffer provides Vector, an owning, resizable, contiguous buffer of fixed-size
	elements.  Every array-like entity in voxfeat (data arrays, feature ids, per-feature
	scalars) is built on a Vector.
*/
package buffer

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"unsafe"
)

// Element is the set of types a Vector can hold.  All are fixed-size so that
// byte-order reversal and raw persistence are well defined.
type Element interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 |
		~float32 | ~float64 | ~bool
}

// ErrOutOfBounds is returned by checked accessors when an index is not in [0, Len()).
var ErrOutOfBounds = errors.New("index out of bounds")

// Vector owns a contiguous slice of T.  A Vector of length zero never holds a backing
// array.  Vectors are not safe for concurrent mutation.
type Vector[T Element] struct {
	data []T
}

// New returns a Vector of n zero-valued elements.
func New[T Element](n int) *Vector[T] {
	v := new(Vector[T])
	v.Resize(n)
	return v
}

// FromSlice returns a Vector holding a copy of s.
func FromSlice[T Element](s []T) *Vector[T] {
	v := New[T](len(s))
	copy(v.data, s)
	return v
}

// Len returns the number of elements.
func (v *Vector[T]) Len() int {
	return len(v.data)
}

// Cap returns the number of elements the Vector can hold without reallocating.
func (v *Vector[T]) Cap() int {
	return cap(v.data)
}

// Empty returns true if the Vector holds no elements.
func (v *Vector[T]) Empty() bool {
	return len(v.data) == 0
}

// ElementSize returns the size in bytes of one element.
func (v *Vector[T]) ElementSize() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Data returns the backing slice.  Mutations through it are visible to the Vector
// until the next Resize, Take or Swap.
func (v *Vector[T]) Data() []T {
	return v.data
}

// Resize grows or shrinks the Vector.  Values at indices below min(old, n) are
// preserved and any new slots are zero.  Resizing to zero releases the backing array.
func (v *Vector[T]) Resize(n int) {
	if n < 0 {
		panic(fmt.Sprintf("buffer: negative size %d", n))
	}
	if n == 0 {
		v.data = nil
		return
	}
	old := len(v.data)
	switch {
	case n == old:
	case n < old:
		clear(v.data[n:old])
		v.data = v.data[:n]
	case n <= cap(v.data):
		v.data = v.data[:n]
		clear(v.data[old:n])
	default:
		grown := make([]T, n)
		copy(grown, v.data)
		v.data = grown
	}
}

// Reserve makes sure the Vector can hold n elements without reallocation.  An empty
// Vector holds no backing array, so Reserve has no effect on it.
func (v *Vector[T]) Reserve(n int) {
	if n <= cap(v.data) || len(v.data) == 0 {
		return
	}
	v.data = slices.Grow(v.data, n-len(v.data))
}

// ShrinkToFit drops any excess capacity.
func (v *Vector[T]) ShrinkToFit() {
	if len(v.data) == cap(v.data) {
		return
	}
	v.data = slices.Clip(slices.Clone(v.data))
}

// Get returns element i without bounds checking beyond Go's own slice checks,
// which panic on a bad index.
func (v *Vector[T]) Get(i int) T {
	return v.data[i]
}

// Set stores value at index i, panicking on a bad index.
func (v *Vector[T]) Set(i int, value T) {
	v.data[i] = value
}

// At returns element i or ErrOutOfBounds if i is not a valid index.
func (v *Vector[T]) At(i int) (T, error) {
	if i < 0 || i >= len(v.data) {
		var zero T
		return zero, fmt.Errorf("%w: index %d, size %d", ErrOutOfBounds, i, len(v.data))
	}
	return v.data[i], nil
}

// SetAt stores value at index i or returns ErrOutOfBounds.
func (v *Vector[T]) SetAt(i int, value T) error {
	if i < 0 || i >= len(v.data) {
		return fmt.Errorf("%w: index %d, size %d", ErrOutOfBounds, i, len(v.data))
	}
	v.data[i] = value
	return nil
}

// Fill sets every element to value.
func (v *Vector[T]) Fill(value T) {
	for i := range v.data {
		v.data[i] = value
	}
}

// Append adds values to the end, growing the Vector.
func (v *Vector[T]) Append(values ...T) {
	v.data = append(v.data, values...)
}

// Clone returns a deep copy.
func (v *Vector[T]) Clone() *Vector[T] {
	return FromSlice(v.data)
}

// Take transfers ownership of the elements to a new Vector and leaves v empty.
func (v *Vector[T]) Take() *Vector[T] {
	moved := &Vector[T]{data: v.data}
	v.data = nil
	return moved
}

// Swap exchanges the contents of two Vectors.
func (v *Vector[T]) Swap(other *Vector[T]) {
	v.data, other.data = other.data, v.data
}

// Equal returns true if both Vectors hold the same elements.
func (v *Vector[T]) Equal(other *Vector[T]) bool {
	return slices.Equal(v.data, other.data)
}

// Sort orders the elements using cmp, which returns a negative number when a < b.
func (v *Vector[T]) Sort(cmp func(a, b T) int) {
	slices.SortFunc(v.data, cmp)
}

// All iterates over index/value pairs front to back.
func (v *Vector[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, value := range v.data {
			if !yield(i, value) {
				return
			}
		}
	}
}

// Backward iterates over index/value pairs back to front.
func (v *Vector[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := len(v.data) - 1; i >= 0; i-- {
			if !yield(i, v.data[i]) {
				return
			}
		}
	}
}

func (v *Vector[T]) String() string {
	const maxShown = 8
	if len(v.data) <= maxShown {
		return fmt.Sprintf("Vector[%d]%v", len(v.data), v.data)
	}
	return fmt.Sprintf("Vector[%d]%v...", len(v.data), v.data[:maxShown])
}
