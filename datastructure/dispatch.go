package datastructure

import (
	"fmt"

	"github.com/janelia-flyem/voxfeat/buffer"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// dataTypeOf returns the runtime tag for T.  Named types with an element underlying
// type are not supported as array elements.
func dataTypeOf[T buffer.Element]() voxfeat.DataType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return voxfeat.T_int8
	case uint8:
		return voxfeat.T_uint8
	case int16:
		return voxfeat.T_int16
	case uint16:
		return voxfeat.T_uint16
	case int32:
		return voxfeat.T_int32
	case uint32:
		return voxfeat.T_uint32
	case int64:
		return voxfeat.T_int64
	case uint64:
		return voxfeat.T_uint64
	case float32:
		return voxfeat.T_float32
	case float64:
		return voxfeat.T_float64
	case bool:
		return voxfeat.T_bool
	default:
		panic(fmt.Sprintf("unsupported array element type %T", zero))
	}
}

// NewArray constructs a zeroed DataArray whose element type is chosen by the runtime tag.
func NewArray(dt voxfeat.DataType, name string, numTuples int, compShape []int) (Array, error) {
	switch dt {
	case voxfeat.T_int8:
		return NewDataArray[int8](name, numTuples, compShape), nil
	case voxfeat.T_uint8:
		return NewDataArray[uint8](name, numTuples, compShape), nil
	case voxfeat.T_int16:
		return NewDataArray[int16](name, numTuples, compShape), nil
	case voxfeat.T_uint16:
		return NewDataArray[uint16](name, numTuples, compShape), nil
	case voxfeat.T_int32:
		return NewDataArray[int32](name, numTuples, compShape), nil
	case voxfeat.T_uint32:
		return NewDataArray[uint32](name, numTuples, compShape), nil
	case voxfeat.T_int64:
		return NewDataArray[int64](name, numTuples, compShape), nil
	case voxfeat.T_uint64:
		return NewDataArray[uint64](name, numTuples, compShape), nil
	case voxfeat.T_float32:
		return NewDataArray[float32](name, numTuples, compShape), nil
	case voxfeat.T_float64:
		return NewDataArray[float64](name, numTuples, compShape), nil
	case voxfeat.T_bool:
		return NewDataArray[bool](name, numTuples, compShape), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
}

// NewNeighborListOf constructs an empty NeighborList whose element type is chosen by the runtime tag.
func NewNeighborListOf(dt voxfeat.DataType, name string, numTuples int) (Array, error) {
	switch dt {
	case voxfeat.T_int8:
		return NewNeighborList[int8](name, numTuples), nil
	case voxfeat.T_uint8:
		return NewNeighborList[uint8](name, numTuples), nil
	case voxfeat.T_int16:
		return NewNeighborList[int16](name, numTuples), nil
	case voxfeat.T_uint16:
		return NewNeighborList[uint16](name, numTuples), nil
	case voxfeat.T_int32:
		return NewNeighborList[int32](name, numTuples), nil
	case voxfeat.T_uint32:
		return NewNeighborList[uint32](name, numTuples), nil
	case voxfeat.T_int64:
		return NewNeighborList[int64](name, numTuples), nil
	case voxfeat.T_uint64:
		return NewNeighborList[uint64](name, numTuples), nil
	case voxfeat.T_float32:
		return NewNeighborList[float32](name, numTuples), nil
	case voxfeat.T_float64:
		return NewNeighborList[float64](name, numTuples), nil
	case voxfeat.T_bool:
		return NewNeighborList[bool](name, numTuples), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
}

// ArrayAs returns the concrete DataArray for a type-erased array after checking its tag.
func ArrayAs[T buffer.Element](a Array) (*DataArray[T], error) {
	want := dataTypeOf[T]()
	if a.DataType() != want || a.IsNeighborList() {
		return nil, fmt.Errorf("%w: %q is %s, expected %s data array", ErrWrongType, a.Name(), a.DataType(), want)
	}
	typed, ok := a.(*DataArray[T])
	if !ok {
		return nil, fmt.Errorf("%w: %q has unexpected implementation %T", ErrWrongType, a.Name(), a)
	}
	return typed, nil
}
