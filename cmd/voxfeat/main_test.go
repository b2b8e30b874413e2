package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/janelia-flyem/voxfeat/config"
	"github.com/janelia-flyem/voxfeat/datastructure"
	"github.com/janelia-flyem/voxfeat/export"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

func writeTable(t *testing.T, path string, am *datastructure.AttributeMatrix, arrays ...datastructure.Array) {
	t.Helper()
	ds := datastructure.New()
	if err := ds.Insert(nil, am); err != nil {
		t.Fatal(err)
	}
	for _, a := range arrays {
		if err := ds.Insert(datastructure.DataPath{am.Name()}, a); err != nil {
			t.Fatal(err)
		}
	}
	if err := export.WriteFile(path, am); err != nil {
		t.Fatal(err)
	}
}

const testPipeline = `{
	"name": "test cleanup",
	"structure": "scan",
	"output": "clean",
	"filters": [
		{"filter": "min_size", "args": {
			"min_allowed_feature_size": 3,
			"image_geometry": "Image",
			"feature_ids": "Image/CellData/FeatureIds",
			"num_cells": "Image/Grains/NumCells"
		}}
	]
}`

func TestImportRunExport(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(dir, "store")
	ctx := context.Background()

	cellsFile := filepath.Join(dir, "cells.arrow")
	writeTable(t, cellsFile, datastructure.NewAttributeMatrix("CellData", []int{1, 3, 3}),
		datastructure.NewDataArrayFrom("FeatureIds", []int32{1, 1, 2, 1, -1, 2, 1, 2, 2}))
	featuresFile := filepath.Join(dir, "grains.arrow")
	writeTable(t, featuresFile, datastructure.NewAttributeMatrix("Grains", []int{3}),
		datastructure.NewDataArrayFrom("NumCells", []int32{0, 4, 2}))
	pipelineFile := filepath.Join(dir, "pipeline.json")
	if err := os.WriteFile(pipelineFile, []byte(testPipeline), 0644); err != nil {
		t.Fatal(err)
	}
	outFile := filepath.Join(dir, "out.arrow")

	commands := []voxfeat.Command{
		{"import", "scan", "3x3x1", cellsFile, "features=" + featuresFile, "spacing=0.5,0.5,1"},
		{"ls"},
		{"ls", "scan"},
		{"run", pipelineFile},
		{"export", "clean", "Image/CellData", outFile, "batch=4"},
		{"about"},
	}
	for _, cmd := range commands {
		if err := DoCommand(ctx, cfg, cmd); err != nil {
			t.Fatalf("%q: %v\n", cmd, err)
		}
	}

	f, err := os.Open(outFile)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	am, err := export.ReadTable(f)
	if err != nil {
		t.Fatal(err)
	}
	arrays := am.Arrays()
	if len(arrays) != 1 || arrays[0].Name() != "FeatureIds" {
		t.Fatalf("unexpected exported arrays: %v\n", arrays)
	}
	ids, err := datastructure.ArrayAs[int32](arrays[0])
	if err != nil {
		t.Fatal(err)
	}
	// Feature 2 is below the minimum size, so feature 1 grows over the whole grid.
	expected := []int32{1, 1, 1, 1, 1, 1, 1, 1, 1}
	if !reflect.DeepEqual(ids.Values(), expected) {
		t.Errorf("expected cleaned ids %v, got %v\n", expected, ids.Values())
	}

	if err := DoCommand(ctx, cfg, voxfeat.Command{"delete", "clean"}); err != nil {
		t.Fatal(err)
	}
	if err := DoCommand(ctx, cfg, voxfeat.Command{"delete", "clean"}); err == nil {
		t.Errorf("expected error deleting a missing structure\n")
	}
}

func TestBadCommands(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "store")
	ctx := context.Background()
	bad := []voxfeat.Command{
		{},
		{"frobnicate"},
		{"import", "scan"},
		{"import", "scan", "3x3", "cells.arrow"},
		{"run"},
		{"export", "scan"},
		{"delete"},
	}
	for _, cmd := range bad {
		if err := DoCommand(ctx, cfg, cmd); err == nil {
			t.Errorf("expected error for command %q\n", cmd)
		}
	}
}
