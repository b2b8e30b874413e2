package buffer

// Iterator is a random-access position within a Vector.  Forward iterators move from
// index 0 toward Len(); reverse iterators move from Len()-1 toward -1.  Iterators are
// values: arithmetic returns a new Iterator.
type Iterator[T Element] struct {
	v       *Vector[T]
	pos     int
	reverse bool
}

// Begin returns a forward iterator at the first element.
func (v *Vector[T]) Begin() Iterator[T] {
	return Iterator[T]{v: v}
}

// End returns a forward iterator one past the last element.
func (v *Vector[T]) End() Iterator[T] {
	return Iterator[T]{v: v, pos: len(v.data)}
}

// RBegin returns a reverse iterator at the last element.
func (v *Vector[T]) RBegin() Iterator[T] {
	return Iterator[T]{v: v, pos: len(v.data) - 1, reverse: true}
}

// REnd returns a reverse iterator one before the first element.
func (v *Vector[T]) REnd() Iterator[T] {
	return Iterator[T]{v: v, pos: -1, reverse: true}
}

// Index returns the element index the iterator points at.
func (it Iterator[T]) Index() int {
	return it.pos
}

// Value returns the element at the iterator.
func (it Iterator[T]) Value() T {
	return it.v.data[it.pos]
}

// Set stores a value at the iterator.
func (it Iterator[T]) Set(value T) {
	it.v.data[it.pos] = value
}

// Add returns the iterator moved n steps in its direction of travel.
func (it Iterator[T]) Add(n int) Iterator[T] {
	if it.reverse {
		it.pos -= n
	} else {
		it.pos += n
	}
	return it
}

// Next is Add(1).
func (it Iterator[T]) Next() Iterator[T] {
	return it.Add(1)
}

// Prev is Add(-1).
func (it Iterator[T]) Prev() Iterator[T] {
	return it.Add(-1)
}

// Sub returns the number of steps from other to it, so other.Add(it.Sub(other)) == it.
// Both iterators must traverse the same Vector in the same direction.
func (it Iterator[T]) Sub(other Iterator[T]) int {
	if it.v != other.v || it.reverse != other.reverse {
		panic("buffer: subtracting iterators of different sequences")
	}
	if it.reverse {
		return other.pos - it.pos
	}
	return it.pos - other.pos
}

// Equal returns true if both iterators point at the same position.
func (it Iterator[T]) Equal(other Iterator[T]) bool {
	return it.v == other.v && it.pos == other.pos && it.reverse == other.reverse
}

// Less returns true if it comes before other in traversal order.
func (it Iterator[T]) Less(other Iterator[T]) bool {
	return it.Sub(other) < 0
}

// Find returns the first iterator in [first, last) whose value equals value, or last.
func Find[T Element](first, last Iterator[T], value T) Iterator[T] {
	for it := first; it.Less(last); it = it.Next() {
		if it.Value() == value {
			return it
		}
	}
	return last
}

// LowerBound returns the first iterator in the sorted range [first, last) whose value
// is not less than value, using binary search over iterator arithmetic.
func LowerBound[T Element](first, last Iterator[T], value T, less func(a, b T) bool) Iterator[T] {
	count := last.Sub(first)
	for count > 0 {
		step := count / 2
		mid := first.Add(step)
		if less(mid.Value(), value) {
			first = mid.Next()
			count -= step + 1
		} else {
			count = step
		}
	}
	return first
}

// Reverse reverses the elements in [first, last).
func Reverse[T Element](first, last Iterator[T]) {
	for first.Less(last) {
		last = last.Prev()
		if !first.Less(last) {
			return
		}
		a, b := first.Value(), last.Value()
		first.Set(b)
		last.Set(a)
		first = first.Next()
	}
}
