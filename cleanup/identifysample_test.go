package cleanup

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/janelia-flyem/voxfeat/datastructure"
	"github.com/janelia-flyem/voxfeat/geometry"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

var maskPath = datastructure.NewDataPath("Image/CellData/Mask")

func makeMaskGrid(t *testing.T, dims voxfeat.Point3d, mask datastructure.Object) *datastructure.DataStructure {
	t.Helper()
	geom, err := geometry.NewImageGeom(dims)
	if err != nil {
		t.Fatal(err)
	}
	ds := datastructure.New()
	if err := ds.Insert(nil, datastructure.NewImage("Image", geom)); err != nil {
		t.Fatal(err)
	}
	if err := ds.Insert(cellPath, mask); err != nil {
		t.Fatal(err)
	}
	return ds
}

// A ring of 8 voxels around a hole, a separate 2-voxel blob on the right.
var ringMask = []bool{
	true, true, true, false, false,
	true, false, true, false, true,
	true, true, true, false, true,
	false, false, false, false, false,
	false, false, false, false, false,
}

func TestIdentifySampleKeepsLargest(t *testing.T) {
	ds := makeMaskGrid(t, voxfeat.Point3d{5, 5, 1}, datastructure.NewDataArrayFrom("Mask", append([]bool(nil), ringMask...)))
	f := &IdentifySample{ImageGeomPath: imagePath, MaskArrayPath: maskPath, FillHoles: true}
	if err := f.Execute(context.Background(), ds, nil); err != nil {
		t.Fatal(err)
	}
	got, _ := datastructure.GetDataArray[bool](ds, maskPath)
	// In 3d every voxel of a single-plane grid lies on the boundary, so the hole stays.
	expected := append([]bool(nil), ringMask...)
	expected[9], expected[14] = false, false
	if !reflect.DeepEqual(got.Values(), expected) {
		t.Errorf("expected mask %v, got %v\n", expected, got.Values())
	}
}

func TestIdentifySampleSliceFillHoles(t *testing.T) {
	ds := makeMaskGrid(t, voxfeat.Point3d{5, 5, 1}, datastructure.NewDataArrayFrom("Mask", append([]bool(nil), ringMask...)))
	f := &IdentifySample{ImageGeomPath: imagePath, MaskArrayPath: maskPath, FillHoles: true, SliceBySlice: true, Plane: PlaneXY}
	var messages []string
	if err := f.Execute(context.Background(), ds, func(msg string) { messages = append(messages, msg) }); err != nil {
		t.Fatal(err)
	}
	got, _ := datastructure.GetDataArray[bool](ds, maskPath)
	expected := []bool{
		true, true, true, false, false,
		true, true, true, false, false,
		true, true, true, false, false,
		false, false, false, false, false,
		false, false, false, false, false,
	}
	if !reflect.DeepEqual(got.Values(), expected) {
		t.Errorf("expected mask %v, got %v\n", expected, got.Values())
	}
	if len(messages) != 1 {
		t.Errorf("expected one message for a single slice, got %v\n", messages)
	}
}

func TestIdentifySampleFillHoles3D(t *testing.T) {
	values := make([]uint8, 27)
	for i := range values {
		values[i] = 1
	}
	values[13] = 0 // center voxel
	values[0] = 0  // corner, touches the boundary
	ds := makeMaskGrid(t, voxfeat.Point3d{3, 3, 3}, datastructure.NewDataArrayFrom("Mask", values))
	f := &IdentifySample{ImageGeomPath: imagePath, MaskArrayPath: maskPath, FillHoles: true}
	if err := f.Execute(context.Background(), ds, nil); err != nil {
		t.Fatal(err)
	}
	got, _ := datastructure.GetDataArray[uint8](ds, maskPath)
	if got.Value(13) != 1 {
		t.Errorf("enclosed center voxel should have been filled\n")
	}
	if got.Value(0) != 0 {
		t.Errorf("boundary corner should not have been filled\n")
	}
}

func TestIdentifySampleSlicePlanes(t *testing.T) {
	// Two 2x2 columns along z that only connect through slice z=1.
	dims := voxfeat.Point3d{4, 2, 3}
	geom, _ := geometry.NewImageGeom(dims)
	values := make([]bool, geom.NumVoxels())
	for z := int64(0); z < 3; z++ {
		for y := int64(0); y < 2; y++ {
			values[geom.Index(0, y, z)] = true
			values[geom.Index(3, y, z)] = true
		}
	}
	values[geom.Index(1, 0, 1)] = true
	values[geom.Index(2, 0, 1)] = true

	ds := makeMaskGrid(t, dims, datastructure.NewDataArrayFrom("Mask", values))
	f := &IdentifySample{ImageGeomPath: imagePath, MaskArrayPath: maskPath, SliceBySlice: true, Plane: PlaneXY}
	if err := f.Execute(context.Background(), ds, nil); err != nil {
		t.Fatal(err)
	}
	got, _ := datastructure.GetDataArray[bool](ds, maskPath)
	// Slices z=0 and z=2 hold two equal blobs, so the first (x=0) wins.
	for _, z := range []int64{0, 2} {
		if !got.Value(int(geom.Index(0, 0, z))) || got.Value(int(geom.Index(3, 0, z))) {
			t.Errorf("slice %d: expected only the x=0 column kept\n", z)
		}
	}
	if !got.Value(int(geom.Index(3, 1, 1))) {
		t.Errorf("slice 1 is fully connected and should be kept\n")
	}
}

func TestIdentifySampleValidation(t *testing.T) {
	ds := makeMaskGrid(t, voxfeat.Point3d{2, 2, 1}, datastructure.NewDataArrayFrom("Mask", []float32{1, 0, 1, 0}))
	f := &IdentifySample{ImageGeomPath: imagePath, MaskArrayPath: maskPath}
	if _, err := f.Preflight(ds); !errors.Is(err, datastructure.ErrWrongType) {
		t.Errorf("expected ErrWrongType for float mask, got %v\n", err)
	}
	f.MaskArrayPath = cellPath.Child("Missing")
	if _, err := f.Preflight(ds); !errors.Is(err, ErrMissingRequiredArray) {
		t.Errorf("expected ErrMissingRequiredArray, got %v\n", err)
	}
	if _, err := ParseSlicePlane("xz"); err != nil {
		t.Errorf("bad plane parse: %v\n", err)
	}
	if _, err := ParseSlicePlane("ab"); err == nil {
		t.Errorf("expected error parsing bad plane\n")
	}
}
