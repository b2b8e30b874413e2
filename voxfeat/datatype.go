/*
	This file describes the element types that typed arrays can hold.  The DataType tag
	travels with every type-erased array so dispatch to concrete Go types happens once
	per call rather than per element.
*/

package voxfeat

import (
	"encoding/json"
	"fmt"
)

// DataType is a unique ID for each element type of an array, e.g., an int32 or a float32.
type DataType uint8

const (
	T_int8 DataType = iota
	T_uint8
	T_int16
	T_uint16
	T_int32
	T_uint32
	T_int64
	T_uint64
	T_float32
	T_float64
	T_bool
)

var typeBytes = [...]int{
	T_int8:    1,
	T_uint8:   1,
	T_int16:   2,
	T_uint16:  2,
	T_int32:   4,
	T_uint32:  4,
	T_int64:   8,
	T_uint64:  8,
	T_float32: 4,
	T_float64: 8,
	T_bool:    1,
}

var typeNames = [...]string{
	T_int8:    "int8",
	T_uint8:   "uint8",
	T_int16:   "int16",
	T_uint16:  "uint16",
	T_int32:   "int32",
	T_uint32:  "uint32",
	T_int64:   "int64",
	T_uint64:  "uint64",
	T_float32: "float32",
	T_float64: "float64",
	T_bool:    "bool",
}

// Valid returns true if the DataType is one of the known types.
func (t DataType) Valid() bool {
	return int(t) < len(typeNames)
}

// Bytes returns the # of bytes for one element of the type.
// For example, T_uint16 is 2 bytes.
func (t DataType) Bytes() int {
	if !t.Valid() {
		return 0
	}
	return typeBytes[t]
}

func (t DataType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("unknown data type %d", uint8(t))
	}
	return typeNames[t]
}

// ParseDataType returns the DataType for a name like "int32".
func ParseDataType(s string) (DataType, error) {
	for i, name := range typeNames {
		if name == s {
			return DataType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// MarshalJSON implements the json.Marshaler interface.
func (t DataType) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", t)
	}
	return []byte(fmt.Sprintf("%q", t.String())), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *DataType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	dt, err := ParseDataType(s)
	if err != nil {
		return err
	}
	*t = dt
	return nil
}
