// Package geometry describes structured voxel grids and their face connectivity.
package geometry

import (
	"errors"
	"fmt"

	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// NumFaceNeighbors is the number of face-connected neighbors of a voxel.
const NumFaceNeighbors = 6

// Face neighbor enumeration order.  Algorithms depend on this exact order since
// ties are broken by first-encountered neighbor.
const (
	NegZ = iota
	NegY
	NegX
	PosX
	PosY
	PosZ
)

var (
	ErrBadDimensions = errors.New("grid dimensions must all be at least 1")
	ErrOutOfGrid     = errors.New("coordinate outside grid")
)

// ImageGeom is an immutable structured grid of dimX x dimY x dimZ voxels with x varying fastest.
type ImageGeom struct {
	dims    voxfeat.Point3d
	spacing [3]float32
	origin  [3]float32
	offsets [NumFaceNeighbors]int64
}

// NewImageGeom returns a grid with unit spacing at the origin.
func NewImageGeom(dims voxfeat.Point3d) (*ImageGeom, error) {
	return NewImageGeomWithSpacing(dims, [3]float32{1, 1, 1}, [3]float32{})
}

// NewImageGeomWithSpacing returns a grid with the given physical voxel spacing and origin.
func NewImageGeomWithSpacing(dims voxfeat.Point3d, spacing, origin [3]float32) (*ImageGeom, error) {
	if dims[0] < 1 || dims[1] < 1 || dims[2] < 1 {
		return nil, fmt.Errorf("%w: got %s", ErrBadDimensions, dims.StringDims())
	}
	dimX, dimY := int64(dims[0]), int64(dims[1])
	g := &ImageGeom{
		dims:    dims,
		spacing: spacing,
		origin:  origin,
		offsets: [NumFaceNeighbors]int64{-dimX * dimY, -dimX, -1, 1, dimX, dimX * dimY},
	}
	return g, nil
}

// Dims returns the number of voxels along x, y and z.
func (g *ImageGeom) Dims() voxfeat.Point3d {
	return g.dims
}

func (g *ImageGeom) Spacing() [3]float32 {
	return g.spacing
}

func (g *ImageGeom) Origin() [3]float32 {
	return g.origin
}

// NumVoxels returns dimX*dimY*dimZ.
func (g *ImageGeom) NumVoxels() int64 {
	return g.dims.Prod()
}

// Bounds returns the physical min and max corners of the grid.
func (g *ImageGeom) Bounds() (min, max [3]float32) {
	for i := 0; i < 3; i++ {
		min[i] = g.origin[i]
		max[i] = g.origin[i] + float32(g.dims[i])*g.spacing[i]
	}
	return
}

// Contains returns true if the coordinate is inside the grid.
func (g *ImageGeom) Contains(x, y, z int64) bool {
	return x >= 0 && y >= 0 && z >= 0 &&
		x < int64(g.dims[0]) && y < int64(g.dims[1]) && z < int64(g.dims[2])
}

// Index returns the linear index z*dimX*dimY + y*dimX + x without checking bounds.
func (g *ImageGeom) Index(x, y, z int64) int64 {
	dimX, dimY := int64(g.dims[0]), int64(g.dims[1])
	return z*dimX*dimY + y*dimX + x
}

// LinearIndex is Index with bounds checking.
func (g *ImageGeom) LinearIndex(x, y, z int64) (int64, error) {
	if !g.Contains(x, y, z) {
		return 0, fmt.Errorf("%w: (%d,%d,%d) in %s grid", ErrOutOfGrid, x, y, z, g.dims.StringDims())
	}
	return g.Index(x, y, z), nil
}

// Coord converts a linear index back to (x, y, z).
func (g *ImageGeom) Coord(idx int64) (x, y, z int64) {
	dimX, dimY := int64(g.dims[0]), int64(g.dims[1])
	plane := dimX * dimY
	z = idx / plane
	rem := idx - z*plane
	y = rem / dimX
	x = rem - y*dimX
	return
}

// NeighborOffsets returns the linear index offsets of the six face neighbors in
// enumeration order: -Z, -Y, -X, +X, +Y, +Z.
func (g *ImageGeom) NeighborOffsets() [NumFaceNeighbors]int64 {
	return g.offsets
}

// IsNeighborValid applies the boundary rule for face neighbor n of voxel idx.
// There is no wraparound: a neighbor across a grid face is invalid.
func (g *ImageGeom) IsNeighborValid(idx int64, n int) bool {
	x, y, z := g.Coord(idx)
	return g.neighborValidAt(x, y, z, n)
}

func (g *ImageGeom) neighborValidAt(x, y, z int64, n int) bool {
	switch n {
	case NegZ:
		return z != 0
	case NegY:
		return y != 0
	case NegX:
		return x != 0
	case PosX:
		return x != int64(g.dims[0])-1
	case PosY:
		return y != int64(g.dims[1])-1
	case PosZ:
		return z != int64(g.dims[2])-1
	default:
		return false
	}
}

// Neighbors appends the linear indices of the valid face neighbors of idx to buf,
// in enumeration order, and returns the extended slice.
func (g *ImageGeom) Neighbors(idx int64, buf []int64) []int64 {
	x, y, z := g.Coord(idx)
	for n := 0; n < NumFaceNeighbors; n++ {
		if g.neighborValidAt(x, y, z, n) {
			buf = append(buf, idx+g.offsets[n])
		}
	}
	return buf
}

// OnBoundary returns true if the voxel lies on any face of the grid.
func (g *ImageGeom) OnBoundary(idx int64) bool {
	x, y, z := g.Coord(idx)
	return x == 0 || y == 0 || z == 0 ||
		x == int64(g.dims[0])-1 || y == int64(g.dims[1])-1 || z == int64(g.dims[2])-1
}

func (g *ImageGeom) String() string {
	return fmt.Sprintf("image geometry %s, spacing %v, origin %v", g.dims.StringDims(), g.spacing, g.origin)
}
