package datastructure

import (
	"fmt"

	"github.com/janelia-flyem/voxfeat/geometry"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// ObjectID is a unique id assigned to each object when inserted into a DataStructure.
type ObjectID uint64

// Object is anything that can live in a DataStructure.
type Object interface {
	Name() string
	ID() ObjectID
	setID(ObjectID)
}

// Container is an Object holding named children.
type Container interface {
	Object
	Children() []Object
	Child(name string) (Object, bool)
	insert(obj Object) error
	remove(name string) bool
}

type base struct {
	name string
	id   ObjectID
}

func (b *base) Name() string       { return b.name }
func (b *base) ID() ObjectID       { return b.id }
func (b *base) setID(id ObjectID) { b.id = id }

// Group is a plain container of named objects, kept in insertion order.
type Group struct {
	base
	order    []string
	children map[string]Object
}

func NewGroup(name string) *Group {
	return &Group{base: base{name: name}, children: make(map[string]Object)}
}

// Children returns the children in insertion order.
func (g *Group) Children() []Object {
	out := make([]Object, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.children[name])
	}
	return out
}

func (g *Group) Child(name string) (Object, bool) {
	obj, found := g.children[name]
	return obj, found
}

func (g *Group) insert(obj Object) error {
	if g.children == nil {
		g.children = make(map[string]Object)
	}
	if _, found := g.children[obj.Name()]; found {
		return fmt.Errorf("%w: %q in %q", ErrExists, obj.Name(), g.name)
	}
	g.children[obj.Name()] = obj
	g.order = append(g.order, obj.Name())
	return nil
}

func (g *Group) remove(name string) bool {
	if _, found := g.children[name]; !found {
		return false
	}
	delete(g.children, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return true
}

// AttributeMatrix is a container whose array children all share the same tuple count,
// e.g., per-voxel cell data or per-feature data.
type AttributeMatrix struct {
	Group
	tupleShape []int
}

func NewAttributeMatrix(name string, tupleShape []int) *AttributeMatrix {
	return &AttributeMatrix{
		Group:      Group{base: base{name: name}, children: make(map[string]Object)},
		tupleShape: append([]int(nil), tupleShape...),
	}
}

// TupleShape returns the shape of the tuple dimensions, slowest varying first.
func (am *AttributeMatrix) TupleShape() []int {
	return append([]int(nil), am.tupleShape...)
}

// NumTuples returns the product of the tuple shape.
func (am *AttributeMatrix) NumTuples() int {
	return shapeProduct(am.tupleShape)
}

// Arrays returns the array children in insertion order.
func (am *AttributeMatrix) Arrays() []Array {
	var arrays []Array
	for _, obj := range am.Children() {
		if a, ok := obj.(Array); ok {
			arrays = append(arrays, a)
		}
	}
	return arrays
}

// ResizeTuples changes the tuple shape and resizes every child array to match.
func (am *AttributeMatrix) ResizeTuples(tupleShape []int) {
	am.tupleShape = append([]int(nil), tupleShape...)
	n := am.NumTuples()
	for _, a := range am.Arrays() {
		a.ResizeTuples(n)
	}
}

func (am *AttributeMatrix) insert(obj Object) error {
	if a, ok := obj.(Array); ok && a.NumTuples() != am.NumTuples() {
		return fmt.Errorf("%w: array %q has %d tuples, attribute matrix %q has %d",
			ErrTupleMismatch, a.Name(), a.NumTuples(), am.name, am.NumTuples())
	}
	return am.Group.insert(obj)
}

// CellDataName is the name of the per-voxel attribute matrix created for each Image.
const CellDataName = "CellData"

// Image is a structured-grid geometry holding a per-voxel attribute matrix and any
// other children, e.g., a per-feature attribute matrix.
type Image struct {
	Group
	Geom *geometry.ImageGeom
}

// NewImage returns an Image node for the given grid with an empty CellData
// attribute matrix sized to the voxel count.
func NewImage(name string, geom *geometry.ImageGeom) *Image {
	img := &Image{
		Group: Group{base: base{name: name}, children: make(map[string]Object)},
		Geom:  geom,
	}
	dims := geom.Dims()
	cellData := NewAttributeMatrix(CellDataName, []int{int(dims[2]), int(dims[1]), int(dims[0])})
	if err := img.Group.insert(cellData); err != nil {
		panic(err) // fresh group cannot hold a duplicate
	}
	return img
}

// CellData returns the per-voxel attribute matrix.
func (img *Image) CellData() *AttributeMatrix {
	obj, _ := img.Child(CellDataName)
	am, _ := obj.(*AttributeMatrix)
	return am
}

// Dims returns the grid dimensions.
func (img *Image) Dims() voxfeat.Point3d {
	return img.Geom.Dims()
}

func shapeProduct(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
