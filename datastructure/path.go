package datastructure

import (
	"strings"
)

// DataPath locates an object in a DataStructure by the names of its ancestors,
// e.g., "Image/CellData/FeatureIds".
type DataPath []string

// NewDataPath parses a slash-separated path.  Empty elements are dropped.
func NewDataPath(s string) DataPath {
	var p DataPath
	for _, elem := range strings.Split(s, "/") {
		if elem != "" {
			p = append(p, elem)
		}
	}
	return p
}

// Empty returns true for the root path.
func (p DataPath) Empty() bool {
	return len(p) == 0
}

// Name returns the final path element or "" for the root.
func (p DataPath) Name() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns the path of the containing object.
func (p DataPath) Parent() DataPath {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// Child returns a new path with name appended.
func (p DataPath) Child(name string) DataPath {
	c := make(DataPath, len(p), len(p)+1)
	copy(c, p)
	return append(c, name)
}

// Equals returns true if both paths name the same object.
func (p DataPath) Equals(p2 DataPath) bool {
	if len(p) != len(p2) {
		return false
	}
	for i := range p {
		if p[i] != p2[i] {
			return false
		}
	}
	return true
}

func (p DataPath) String() string {
	return strings.Join(p, "/")
}

// MarshalText implements encoding.TextMarshaler so paths read naturally in JSON.
func (p DataPath) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *DataPath) UnmarshalText(b []byte) error {
	*p = NewDataPath(string(b))
	return nil
}
