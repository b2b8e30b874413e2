package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/janelia-flyem/voxfeat/cleanup"
	"github.com/janelia-flyem/voxfeat/datastructure"
	"github.com/janelia-flyem/voxfeat/geometry"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

const cleanupDoc = `{
	"name": "grain cleanup",
	"structure": "scan",
	"filters": [
		{"filter": "min_size", "args": {
			"min_allowed_feature_size": %THRESHOLD%,
			"image_geometry": "Image",
			"feature_ids": "Image/CellData/FeatureIds",
			"num_cells": "Image/Grains/NumCells"
		}},
		{"filter": "identify_sample", "args": {
			"image_geometry": "Image",
			"mask": "Image/CellData/Mask",
			"fill_holes": true,
			"slice_by_slice": true,
			"slice_plane": "xy"
		}}
	]
}`

func makeDoc(threshold string) []byte {
	return []byte(strings.Replace(cleanupDoc, "%THRESHOLD%", threshold, 1))
}

func makeStructure(t *testing.T) *datastructure.DataStructure {
	t.Helper()
	geom, err := geometry.NewImageGeom(voxfeat.Point3d{3, 3, 1})
	if err != nil {
		t.Fatal(err)
	}
	ds := datastructure.New()
	if err := ds.Insert(nil, datastructure.NewImage("Image", geom)); err != nil {
		t.Fatal(err)
	}
	cellPath := datastructure.NewDataPath("Image/CellData")
	if err := ds.Insert(cellPath, datastructure.NewDataArrayFrom("FeatureIds", []int32{1, 1, 2, 1, -1, 2, 1, 2, 2})); err != nil {
		t.Fatal(err)
	}
	mask := []bool{true, true, false, true, false, false, false, false, true}
	if err := ds.Insert(cellPath, datastructure.NewDataArrayFrom("Mask", mask)); err != nil {
		t.Fatal(err)
	}
	if err := ds.Insert(datastructure.NewDataPath("Image"), datastructure.NewAttributeMatrix("Grains", []int{3})); err != nil {
		t.Fatal(err)
	}
	if err := ds.Insert(datastructure.NewDataPath("Image/Grains"), datastructure.NewDataArrayFrom("NumCells", []int32{0, 4, 5})); err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestParse(t *testing.T) {
	p, err := Parse(makeDoc("3"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "grain cleanup" || p.Structure != "scan" || p.Output != "scan" {
		t.Errorf("bad pipeline header: %+v\n", p)
	}
	if len(p.Filters) != 2 {
		t.Fatalf("expected 2 filters, got %d\n", len(p.Filters))
	}
	minSize, ok := p.Filters[0].(*cleanup.RemoveMinimumSizeFeatures)
	if !ok {
		t.Fatalf("expected min size filter, got %T\n", p.Filters[0])
	}
	if minSize.MinAllowedFeatureSize != 3 || minSize.NumCellsPath.String() != "Image/Grains/NumCells" {
		t.Errorf("bad min size args: %+v\n", minSize)
	}
	sample, ok := p.Filters[1].(*cleanup.IdentifySample)
	if !ok {
		t.Fatalf("expected identify sample filter, got %T\n", p.Filters[1])
	}
	if !sample.FillHoles || !sample.SliceBySlice || sample.Plane != cleanup.PlaneXY {
		t.Errorf("bad identify sample args: %+v\n", sample)
	}

	p.SetWorkers(4)
	if minSize.Workers != 4 {
		t.Errorf("expected workers to be set, got %d\n", minSize.Workers)
	}
}

func TestParseInvalid(t *testing.T) {
	docs := map[string]string{
		"not json":       `{"filters": [`,
		"no filters":     `{"name": "empty", "filters": []}`,
		"unknown filter": `{"filters": [{"filter": "smooth", "args": {}}]}`,
		"missing arg":    `{"filters": [{"filter": "min_neighbors", "args": {"image_geometry": "Image"}}]}`,
		"extra arg": `{"filters": [{"filter": "identify_sample", "args": {
			"image_geometry": "Image", "mask": "Image/CellData/Mask", "radius": 3}}]}`,
		"bad type": `{"filters": [{"filter": "min_size", "args": {
			"min_allowed_feature_size": "big", "image_geometry": "Image",
			"feature_ids": "Image/CellData/FeatureIds", "num_cells": "Image/Grains/NumCells"}}]}`,
	}
	for name, doc := range docs {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected parse error\n", name)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.json")
	if err := os.WriteFile(path, makeDoc("1"), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Filters) != 2 {
		t.Errorf("expected 2 filters, got %d\n", len(p.Filters))
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Errorf("expected error loading missing file\n")
	}
}

func TestRun(t *testing.T) {
	p, err := Parse(makeDoc("5"))
	if err != nil {
		t.Fatal(err)
	}
	ds := makeStructure(t)
	var messages []string
	report, err := p.Run(context.Background(), ds, func(msg string) { messages = append(messages, msg) })
	if err != nil {
		t.Fatal(err)
	}
	if report.ID == "" || len(report.Steps) != 2 {
		t.Errorf("bad run report: %+v\n", report)
	}
	if len(messages) == 0 {
		t.Errorf("expected progress messages\n")
	}

	// Feature 1 is removed and its voxels, plus the bad center, grow from feature 2,
	// which is then renumbered to 1.
	ids, _ := datastructure.GetDataArray[int32](ds, datastructure.NewDataPath("Image/CellData/FeatureIds"))
	if !reflect.DeepEqual(ids.Values(), []int32{1, 1, 1, 1, 1, 1, 1, 1, 1}) {
		t.Errorf("unexpected feature ids: %v\n", ids.Values())
	}
	var sawCount bool
	for _, msg := range messages {
		if strings.Contains(msg, "Feature Count Changed: Previous: 3 New: 2") {
			sawCount = true
		}
	}
	if !sawCount {
		t.Errorf("missing feature count message in %v\n", messages)
	}

	// Reassigned voxels take their Mask value from the donor along with every other
	// cell array, so voxels 0, 1 and 3 become false.  Identify sample then keeps the
	// single remaining true voxel.
	mask, _ := datastructure.GetDataArray[bool](ds, datastructure.NewDataPath("Image/CellData/Mask"))
	expected := []bool{false, false, false, false, false, false, false, false, true}
	if !reflect.DeepEqual(mask.Values(), expected) {
		t.Errorf("expected mask %v, got %v\n", expected, mask.Values())
	}
}

func TestRunStopsOnError(t *testing.T) {
	p, err := Parse(makeDoc("6"))
	if err != nil {
		t.Fatal(err)
	}
	ds := makeStructure(t)
	report, err := p.Run(context.Background(), ds, nil)
	if !errors.Is(err, cleanup.ErrAllFeaturesRemoved) {
		t.Fatalf("expected ErrAllFeaturesRemoved, got %v\n", err)
	}
	if len(report.Steps) != 0 {
		t.Errorf("no step should have completed: %+v\n", report.Steps)
	}
	mask, _ := datastructure.GetDataArray[bool](ds, datastructure.NewDataPath("Image/CellData/Mask"))
	if mask.Value(8) != true {
		t.Errorf("later filter should not have run\n")
	}
}

func TestFilterNames(t *testing.T) {
	expected := []string{"identify_sample", "min_neighbors", "min_size"}
	if names := FilterNames(); !reflect.DeepEqual(names, expected) {
		t.Errorf("expected %v, got %v\n", expected, names)
	}
}
