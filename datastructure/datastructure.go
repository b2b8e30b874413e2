/*
	Package datastructure holds the hierarchical, strongly-typed container of groups,
	geometries, attribute matrices and arrays that filters read and mutate.

	A DataStructure has a single-writer contract: it uses no internal locking, and callers
	must not read it concurrently while a filter mutates it.
*/
package datastructure

import (
	"errors"
	"fmt"

	"github.com/DmitriyVTitov/size"
	"github.com/janelia-flyem/voxfeat/buffer"
)

var (
	ErrNotFound        = errors.New("object not found")
	ErrExists          = errors.New("object already exists")
	ErrNotContainer    = errors.New("object cannot hold children")
	ErrNotArray        = errors.New("object is not an array")
	ErrWrongType       = errors.New("array has unexpected element type")
	ErrUnsupportedType = errors.New("unsupported element type")
	ErrTupleMismatch   = errors.New("tuple count mismatch")
)

// DataStructure is a tree of named objects rooted at an unnamed group.
type DataStructure struct {
	root   *Group
	nextID ObjectID
}

func New() *DataStructure {
	return &DataStructure{root: NewGroup(""), nextID: 1}
}

// Root returns the top-level group.
func (ds *DataStructure) Root() *Group {
	return ds.root
}

// Insert adds obj as a child of the container at parent.  Inserting an array into
// an attribute matrix requires matching tuple counts.
func (ds *DataStructure) Insert(parent DataPath, obj Object) error {
	c, err := ds.container(parent)
	if err != nil {
		return err
	}
	if err := c.insert(obj); err != nil {
		return err
	}
	ds.assignIDs(obj)
	return nil
}

func (ds *DataStructure) assignIDs(obj Object) {
	if obj.ID() == 0 {
		obj.setID(ds.nextID)
		ds.nextID++
	} else if obj.ID() >= ds.nextID {
		ds.nextID = obj.ID() + 1
	}
	if c, ok := obj.(Container); ok {
		for _, child := range c.Children() {
			ds.assignIDs(child)
		}
	}
}

// Get returns the object at path.
func (ds *DataStructure) Get(path DataPath) (Object, error) {
	var cur Object = ds.root
	for i, name := range path {
		c, ok := cur.(Container)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotContainer, path[:i].String())
		}
		child, found := c.Child(name)
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, path[:i+1].String())
		}
		cur = child
	}
	return cur, nil
}

// Contains returns true if an object exists at path.
func (ds *DataStructure) Contains(path DataPath) bool {
	_, err := ds.Get(path)
	return err == nil
}

func (ds *DataStructure) container(path DataPath) (Container, error) {
	obj, err := ds.Get(path)
	if err != nil {
		return nil, err
	}
	c, ok := obj.(Container)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotContainer, path.String())
	}
	return c, nil
}

// GetArray returns the array at path.
func (ds *DataStructure) GetArray(path DataPath) (Array, error) {
	obj, err := ds.Get(path)
	if err != nil {
		return nil, err
	}
	a, ok := obj.(Array)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotArray, path.String())
	}
	return a, nil
}

// GetDataArray returns the typed data array at path.
func GetDataArray[T buffer.Element](ds *DataStructure, path DataPath) (*DataArray[T], error) {
	a, err := ds.GetArray(path)
	if err != nil {
		return nil, err
	}
	return ArrayAs[T](a)
}

// GetAttributeMatrix returns the attribute matrix at path.
func (ds *DataStructure) GetAttributeMatrix(path DataPath) (*AttributeMatrix, error) {
	obj, err := ds.Get(path)
	if err != nil {
		return nil, err
	}
	am, ok := obj.(*AttributeMatrix)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, not an attribute matrix", ErrWrongType, path.String(), obj)
	}
	return am, nil
}

// GetImage returns the image geometry at path.
func (ds *DataStructure) GetImage(path DataPath) (*Image, error) {
	obj, err := ds.Get(path)
	if err != nil {
		return nil, err
	}
	img, ok := obj.(*Image)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, not an image geometry", ErrWrongType, path.String(), obj)
	}
	return img, nil
}

// Children lists the children of the container at path.
func (ds *DataStructure) Children(path DataPath) ([]Object, error) {
	c, err := ds.container(path)
	if err != nil {
		return nil, err
	}
	return c.Children(), nil
}

// Remove deletes the object at path and everything beneath it.
func (ds *DataStructure) Remove(path DataPath) error {
	if path.Empty() {
		return fmt.Errorf("cannot remove the root of a DataStructure")
	}
	c, err := ds.container(path.Parent())
	if err != nil {
		return err
	}
	if !c.remove(path.Name()) {
		return fmt.Errorf("%w: %q", ErrNotFound, path.String())
	}
	return nil
}

// WalkFunc is called for each object visited by Walk.
type WalkFunc func(path DataPath, obj Object) error

// Walk visits every object depth-first in insertion order, excluding the root.
func (ds *DataStructure) Walk(fn WalkFunc) error {
	return walk(nil, ds.root, fn)
}

func walk(path DataPath, c Container, fn WalkFunc) error {
	for _, child := range c.Children() {
		childPath := path.Child(child.Name())
		if err := fn(childPath, child); err != nil {
			return err
		}
		if sub, ok := child.(Container); ok {
			if err := walk(childPath, sub, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// MemoryFootprint returns the approximate number of bytes held by the DataStructure.
func (ds *DataStructure) MemoryFootprint() int {
	return size.Of(ds)
}
