package buffer

import (
	"fmt"
	"slices"
	"unsafe"
)

var hostLittleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

// rawBytes returns the native-order bytes backing the Vector without copying.
func (v *Vector[T]) rawBytes() []byte {
	if len(v.data) == 0 {
		return nil
	}
	size := v.ElementSize()
	return unsafe.Slice((*byte)(unsafe.Pointer(&v.data[0])), len(v.data)*size)
}

// Byteswap reverses the byte order of every element in place.
func (v *Vector[T]) Byteswap() {
	size := v.ElementSize()
	if size == 1 {
		return
	}
	b := v.rawBytes()
	for i := 0; i < len(b); i += size {
		slices.Reverse(b[i : i+size])
	}
}

// MarshalBinary returns the elements as little-endian bytes.
func (v *Vector[T]) MarshalBinary() ([]byte, error) {
	out := slices.Clone(v.rawBytes())
	if !hostLittleEndian {
		swapBytes(out, v.ElementSize())
	}
	return out, nil
}

// UnmarshalBinary replaces the contents with elements decoded from little-endian bytes.
func (v *Vector[T]) UnmarshalBinary(b []byte) error {
	size := v.ElementSize()
	if len(b)%size != 0 {
		return fmt.Errorf("buffer: %d bytes is not a multiple of element size %d", len(b), size)
	}
	v.Resize(len(b) / size)
	copy(v.rawBytes(), b)
	if !hostLittleEndian {
		v.Byteswap()
	}
	return nil
}

func swapBytes(b []byte, size int) {
	if size == 1 {
		return
	}
	for i := 0; i < len(b); i += size {
		slices.Reverse(b[i : i+size])
	}
}
