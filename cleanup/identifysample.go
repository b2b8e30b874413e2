package cleanup

import (
	"context"
	"fmt"
	"strings"

	"github.com/janelia-flyem/voxfeat/datastructure"
	"github.com/janelia-flyem/voxfeat/geometry"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// SlicePlane selects the planes processed independently by IdentifySample.
type SlicePlane uint8

const (
	PlaneXY SlicePlane = iota
	PlaneXZ
	PlaneYZ
)

func (p SlicePlane) String() string {
	switch p {
	case PlaneXY:
		return "XY"
	case PlaneXZ:
		return "XZ"
	case PlaneYZ:
		return "YZ"
	default:
		return fmt.Sprintf("SlicePlane(%d)", uint8(p))
	}
}

func (p SlicePlane) MarshalText() ([]byte, error) {
	if p > PlaneYZ {
		return nil, fmt.Errorf("unknown slice plane %d", uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *SlicePlane) UnmarshalText(b []byte) error {
	plane, err := ParseSlicePlane(string(b))
	if err != nil {
		return err
	}
	*p = plane
	return nil
}

// ParseSlicePlane accepts "xy", "xz" or "yz" in any case.
func ParseSlicePlane(s string) (SlicePlane, error) {
	switch strings.ToUpper(s) {
	case "XY", "":
		return PlaneXY, nil
	case "XZ":
		return PlaneXZ, nil
	case "YZ":
		return PlaneYZ, nil
	}
	return PlaneXY, fmt.Errorf("unknown slice plane %q", s)
}

// IdentifySample isolates the sample within a boolean or uint8 good-voxel mask: only
// the largest face-connected region of good voxels is kept.  If FillHoles is set, bad
// regions that do not reach the edge of the grid are then marked good.  With
// SliceBySlice each plane is processed on its own using in-plane connectivity.
type IdentifySample struct {
	ImageGeomPath datastructure.DataPath `json:"image_geometry"`
	MaskArrayPath datastructure.DataPath `json:"mask"`

	FillHoles    bool       `json:"fill_holes"`
	SliceBySlice bool       `json:"slice_by_slice"`
	Plane        SlicePlane `json:"slice_plane"`
}

func (f *IdentifySample) Name() string {
	return "Isolate Largest Feature (Identify Sample)"
}

// voxelMask abstracts the two supported mask element types.
type voxelMask interface {
	get(i int64) bool
	set(i int64, v bool)
}

type boolMask []bool

func (m boolMask) get(i int64) bool    { return m[i] }
func (m boolMask) set(i int64, v bool) { m[i] = v }

type uint8Mask []uint8

func (m uint8Mask) get(i int64) bool { return m[i] != 0 }
func (m uint8Mask) set(i int64, v bool) {
	if v {
		m[i] = 1
	} else {
		m[i] = 0
	}
}

func (f *IdentifySample) validate(ds *datastructure.DataStructure) (*geometry.ImageGeom, voxelMask, error) {
	img, err := ds.GetImage(f.ImageGeomPath)
	if err != nil {
		return nil, nil, validationErr(f.Name(), ErrMissingRequiredArray, "image geometry %q: %v", f.ImageGeomPath, err)
	}
	a, err := ds.GetArray(f.MaskArrayPath)
	if err != nil {
		return nil, nil, validationErr(f.Name(), ErrMissingRequiredArray, "mask array %q: %v", f.MaskArrayPath, err)
	}
	if int64(a.NumTuples()) != img.Geom.NumVoxels() || a.NumComponents() != 1 {
		return nil, nil, validationErr(f.Name(), ErrTupleCountMismatch, "mask %q has %d x %d values, geometry %s has %d voxels",
			f.MaskArrayPath, a.NumTuples(), a.NumComponents(), img.Dims().StringDims(), img.Geom.NumVoxels())
	}
	if f.Plane > PlaneYZ {
		return nil, nil, &ValidationError{Filter: f.Name(), Err: fmt.Errorf("unknown slice plane %s", f.Plane)}
	}
	switch a.DataType() {
	case voxfeat.T_bool:
		typed, err := datastructure.ArrayAs[bool](a)
		if err != nil {
			return nil, nil, err
		}
		return img.Geom, boolMask(typed.Values()), nil
	case voxfeat.T_uint8:
		typed, err := datastructure.ArrayAs[uint8](a)
		if err != nil {
			return nil, nil, err
		}
		return img.Geom, uint8Mask(typed.Values()), nil
	default:
		return nil, nil, &ValidationError{
			Filter: f.Name(),
			Err:    fmt.Errorf("%w: mask %q is %s, must be bool or uint8", datastructure.ErrWrongType, f.MaskArrayPath, a.DataType()),
		}
	}
}

func (f *IdentifySample) Preflight(ds *datastructure.DataStructure) ([]string, error) {
	_, _, err := f.validate(ds)
	return nil, err
}

func (f *IdentifySample) Execute(ctx context.Context, ds *datastructure.DataStructure, handler voxfeat.MessageHandler) error {
	grid, mask, err := f.validate(ds)
	if err != nil {
		return err
	}
	msgr := voxfeat.Messenger{Handler: handler, Prefix: f.Name()}

	var dirs []int
	var regions [][]int64
	if f.SliceBySlice {
		dirs = planeDirections[f.Plane]
		regions = sliceRegions(grid, f.Plane)
	} else {
		dirs = allDirections
		regions = [][]int64{nil}
	}
	s := newSampleScanner(grid, mask, dirs)
	for n, region := range regions {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		removed := s.keepLargest(region)
		var filled int
		if f.FillHoles {
			filled = s.fillHoles(region)
		}
		if len(regions) > 1 {
			msgr.Send("Slice %d/%d: removed %d voxels, filled %d", n+1, len(regions), removed, filled)
		} else {
			msgr.Send("Removed %d voxels outside the sample, filled %d", removed, filled)
		}
	}
	return nil
}

var allDirections = []int{geometry.NegZ, geometry.NegY, geometry.NegX, geometry.PosX, geometry.PosY, geometry.PosZ}

var planeDirections = map[SlicePlane][]int{
	PlaneXY: {geometry.NegY, geometry.NegX, geometry.PosX, geometry.PosY},
	PlaneXZ: {geometry.NegZ, geometry.NegX, geometry.PosX, geometry.PosZ},
	PlaneYZ: {geometry.NegZ, geometry.NegY, geometry.PosY, geometry.PosZ},
}

// sliceRegions lists the voxel indices of each plane in scan order.
func sliceRegions(grid *geometry.ImageGeom, plane SlicePlane) [][]int64 {
	dims := grid.Dims()
	dimX, dimY, dimZ := int64(dims[0]), int64(dims[1]), int64(dims[2])
	var regions [][]int64
	switch plane {
	case PlaneXY:
		for z := int64(0); z < dimZ; z++ {
			region := make([]int64, 0, dimX*dimY)
			for y := int64(0); y < dimY; y++ {
				for x := int64(0); x < dimX; x++ {
					region = append(region, grid.Index(x, y, z))
				}
			}
			regions = append(regions, region)
		}
	case PlaneXZ:
		for y := int64(0); y < dimY; y++ {
			region := make([]int64, 0, dimX*dimZ)
			for z := int64(0); z < dimZ; z++ {
				for x := int64(0); x < dimX; x++ {
					region = append(region, grid.Index(x, y, z))
				}
			}
			regions = append(regions, region)
		}
	case PlaneYZ:
		for x := int64(0); x < dimX; x++ {
			region := make([]int64, 0, dimY*dimZ)
			for z := int64(0); z < dimZ; z++ {
				for y := int64(0); y < dimY; y++ {
					region = append(region, grid.Index(x, y, z))
				}
			}
			regions = append(regions, region)
		}
	}
	return regions
}

// sampleScanner finds face-connected components restricted to a set of directions.
type sampleScanner struct {
	grid    *geometry.ImageGeom
	mask    voxelMask
	dirs    []int
	offsets [geometry.NumFaceNeighbors]int64
	checked []bool
	queue   []int64
}

func newSampleScanner(grid *geometry.ImageGeom, mask voxelMask, dirs []int) *sampleScanner {
	return &sampleScanner{
		grid:    grid,
		mask:    mask,
		dirs:    dirs,
		offsets: grid.NeighborOffsets(),
		checked: make([]bool, grid.NumVoxels()),
	}
}

// forEach visits region in order, or every voxel if region is nil.
func (s *sampleScanner) forEach(region []int64, fn func(idx int64)) {
	if region == nil {
		n := s.grid.NumVoxels()
		for idx := int64(0); idx < n; idx++ {
			fn(idx)
		}
		return
	}
	for _, idx := range region {
		fn(idx)
	}
}

// flood collects the component containing seed of voxels whose mask equals want.
// touchesEdge is true if any member lies on the grid boundary along a scanned axis.
func (s *sampleScanner) flood(seed int64, want bool) (component []int64, touchesEdge bool) {
	s.checked[seed] = true
	s.queue = append(s.queue[:0], seed)
	for head := 0; head < len(s.queue); head++ {
		idx := s.queue[head]
		for _, n := range s.dirs {
			if !s.grid.IsNeighborValid(idx, n) {
				touchesEdge = true
				continue
			}
			neighbor := idx + s.offsets[n]
			if s.checked[neighbor] || s.mask.get(neighbor) != want {
				continue
			}
			s.checked[neighbor] = true
			s.queue = append(s.queue, neighbor)
		}
	}
	component = append([]int64(nil), s.queue...)
	return
}

func (s *sampleScanner) reset(region []int64) {
	s.forEach(region, func(idx int64) { s.checked[idx] = false })
}

// keepLargest clears every good voxel outside the largest good component.  The first
// component found wins a tie.  It returns the number of voxels cleared.
func (s *sampleScanner) keepLargest(region []int64) int {
	s.reset(region)
	var largest []int64
	s.forEach(region, func(idx int64) {
		if s.checked[idx] || !s.mask.get(idx) {
			return
		}
		if component, _ := s.flood(idx, true); len(component) > len(largest) {
			largest = component
		}
	})

	s.reset(region)
	for _, idx := range largest {
		s.checked[idx] = true
	}
	var removed int
	s.forEach(region, func(idx int64) {
		if s.mask.get(idx) && !s.checked[idx] {
			s.mask.set(idx, false)
			removed++
		}
	})
	return removed
}

// fillHoles marks good every bad component that does not touch the grid boundary and
// returns the number of voxels filled.
func (s *sampleScanner) fillHoles(region []int64) int {
	s.reset(region)
	var filled int
	s.forEach(region, func(idx int64) {
		if s.checked[idx] || s.mask.get(idx) {
			return
		}
		component, touchesEdge := s.flood(idx, false)
		if touchesEdge {
			return
		}
		for _, v := range component {
			s.mask.set(v, true)
		}
		filled += len(component)
	})
	return filled
}
