package geometry

import (
	"errors"
	"testing"

	"github.com/janelia-flyem/voxfeat/voxfeat"
)

func TestNewImageGeomRejectsBadDims(t *testing.T) {
	for _, dims := range []voxfeat.Point3d{{0, 1, 1}, {1, -3, 1}, {2, 2, 0}} {
		if _, err := NewImageGeom(dims); !errors.Is(err, ErrBadDimensions) {
			t.Errorf("expected ErrBadDimensions for %s, got %v\n", dims, err)
		}
	}
}

func TestLinearIndex(t *testing.T) {
	g, err := NewImageGeom(voxfeat.Point3d{4, 3, 2})
	if err != nil {
		t.Fatal(err)
	}
	idx, err := g.LinearIndex(1, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1*12+2*4+1 {
		t.Errorf("expected index 21, got %d\n", idx)
	}
	x, y, z := g.Coord(idx)
	if x != 1 || y != 2 || z != 1 {
		t.Errorf("Coord round trip gave (%d,%d,%d)\n", x, y, z)
	}
	if _, err := g.LinearIndex(4, 0, 0); !errors.Is(err, ErrOutOfGrid) {
		t.Errorf("expected ErrOutOfGrid, got %v\n", err)
	}
	if _, err := g.LinearIndex(0, 0, -1); !errors.Is(err, ErrOutOfGrid) {
		t.Errorf("expected ErrOutOfGrid for negative z, got %v\n", err)
	}
	if g.NumVoxels() != 24 {
		t.Errorf("expected 24 voxels, got %d\n", g.NumVoxels())
	}
}

func TestNeighborOffsets(t *testing.T) {
	g, _ := NewImageGeom(voxfeat.Point3d{5, 7, 3})
	expected := [6]int64{-35, -5, -1, 1, 5, 35}
	if g.NeighborOffsets() != expected {
		t.Errorf("expected offsets %v, got %v\n", expected, g.NeighborOffsets())
	}
}

func TestCornerVoxelNeighbors(t *testing.T) {
	g, _ := NewImageGeom(voxfeat.Point3d{4, 4, 4})
	var valid []int
	for n := 0; n < NumFaceNeighbors; n++ {
		if g.IsNeighborValid(0, n) {
			valid = append(valid, n)
		}
	}
	if len(valid) != 3 || valid[0] != PosX || valid[1] != PosY || valid[2] != PosZ {
		t.Errorf("expected only +X,+Y,+Z valid at origin, got %v\n", valid)
	}
	nbrs := g.Neighbors(0, nil)
	if len(nbrs) != 3 || nbrs[0] != 1 || nbrs[1] != 4 || nbrs[2] != 16 {
		t.Errorf("bad neighbor indices at origin: %v\n", nbrs)
	}

	last := g.NumVoxels() - 1
	nbrs = g.Neighbors(last, nbrs[:0])
	if len(nbrs) != 3 || nbrs[0] != last-16 || nbrs[1] != last-4 || nbrs[2] != last-1 {
		t.Errorf("bad neighbor indices at far corner: %v\n", nbrs)
	}
}

func TestBoundaryRulePerAxis(t *testing.T) {
	g, _ := NewImageGeom(voxfeat.Point3d{3, 3, 3})
	center := g.Index(1, 1, 1)
	if len(g.Neighbors(center, nil)) != 6 {
		t.Errorf("center voxel should have 6 neighbors")
	}
	if g.OnBoundary(center) {
		t.Errorf("center voxel is not on boundary")
	}
	cases := []struct {
		x, y, z int64
		invalid int
	}{
		{1, 1, 0, NegZ},
		{1, 1, 2, PosZ},
		{1, 0, 1, NegY},
		{1, 2, 1, PosY},
		{0, 1, 1, NegX},
		{2, 1, 1, PosX},
	}
	for _, tc := range cases {
		idx := g.Index(tc.x, tc.y, tc.z)
		for n := 0; n < NumFaceNeighbors; n++ {
			want := n != tc.invalid
			if got := g.IsNeighborValid(idx, n); got != want {
				t.Errorf("voxel (%d,%d,%d) neighbor %d: expected valid=%t\n", tc.x, tc.y, tc.z, n, want)
			}
		}
		if !g.OnBoundary(idx) {
			t.Errorf("voxel (%d,%d,%d) should be on boundary\n", tc.x, tc.y, tc.z)
		}
	}
}

func TestFlatGrid(t *testing.T) {
	g, _ := NewImageGeom(voxfeat.Point3d{3, 3, 1})
	nbrs := g.Neighbors(4, nil)
	if len(nbrs) != 4 {
		t.Errorf("center of 3x3x1 should have 4 in-plane neighbors, got %v\n", nbrs)
	}
}

func TestBounds(t *testing.T) {
	g, err := NewImageGeomWithSpacing(voxfeat.Point3d{10, 20, 5}, [3]float32{0.5, 1, 2}, [3]float32{1, 0, -1})
	if err != nil {
		t.Fatal(err)
	}
	min, max := g.Bounds()
	if min != [3]float32{1, 0, -1} || max != [3]float32{6, 20, 9} {
		t.Errorf("bad bounds %v %v\n", min, max)
	}
}
