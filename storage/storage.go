/*
	Package storage persists DataStructures in a key-value store.  Each node of the
	hierarchy is one record: a msgpack header describing the node followed, for arrays,
	by the serialized and optionally compressed tuple data.
*/
package storage

import (
	"bytes"
	"errors"
	"fmt"
)

// Store is a minimal ordered key-value store.
type Store interface {
	// Put writes a value, replacing any existing value for key.
	Put(key, value []byte) error

	// Get returns the value for key or nil if the key is not present.
	Get(key []byte) ([]byte, error)

	Delete(key []byte) error

	// Keys returns every key beginning with prefix in sorted order.
	Keys(prefix []byte) ([][]byte, error)

	Close() error
}

// ErrNotStored is returned when loading a node that has no record.
var ErrNotStored = errors.New("not stored")

// nodeKey returns the key of the record for path under a named structure.
// The root of a structure has an empty path.
func nodeKey(name string, path []string) []byte {
	var buf bytes.Buffer
	buf.WriteString(name)
	buf.WriteByte(0)
	for i, elem := range path {
		if i != 0 {
			buf.WriteByte('/')
		}
		buf.WriteString(elem)
	}
	return buf.Bytes()
}

// StructureNames lists the names of all structures saved in store.
func StructureNames(store Store) ([]string, error) {
	keys, err := store.Keys(nil)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, k := range keys {
		sep := bytes.IndexByte(k, 0)
		if sep < 0 {
			return nil, fmt.Errorf("malformed key %q in store", k)
		}
		if sep == len(k)-1 {
			names = append(names, string(k[:sep]))
		}
	}
	return names, nil
}
