package pipeline

// schemaJSON describes a pipeline document.  Argument semantics beyond their types,
// e.g., whether a path exists or a threshold is non-negative, are checked by each
// filter's preflight.
const schemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["filters"],
	"additionalProperties": false,
	"properties": {
		"name": {"type": "string"},
		"structure": {"type": "string"},
		"output": {"type": "string"},
		"filters": {
			"type": "array",
			"minItems": 1,
			"items": {"$ref": "#/definitions/step"}
		}
	},
	"definitions": {
		"path": {"type": "string", "minLength": 1},
		"paths": {"type": "array", "items": {"$ref": "#/definitions/path"}},
		"step": {
			"type": "object",
			"required": ["filter", "args"],
			"additionalProperties": false,
			"properties": {
				"filter": {"enum": ["min_neighbors", "min_size", "identify_sample"]},
				"args": {"type": "object"}
			},
			"allOf": [
				{
					"if": {"properties": {"filter": {"const": "min_neighbors"}}},
					"then": {"properties": {"args": {
						"required": ["min_num_neighbors", "image_geometry", "feature_ids", "num_neighbors"],
						"additionalProperties": false,
						"properties": {
							"min_num_neighbors": {"type": "integer"},
							"apply_to_single_phase": {"type": "boolean"},
							"phase_number": {"type": "integer"},
							"image_geometry": {"$ref": "#/definitions/path"},
							"feature_ids": {"$ref": "#/definitions/path"},
							"feature_phases": {"$ref": "#/definitions/path"},
							"num_neighbors": {"$ref": "#/definitions/path"},
							"ignored_voxel_arrays": {"$ref": "#/definitions/paths"}
						}
					}}}
				},
				{
					"if": {"properties": {"filter": {"const": "min_size"}}},
					"then": {"properties": {"args": {
						"required": ["min_allowed_feature_size", "image_geometry", "feature_ids", "num_cells"],
						"additionalProperties": false,
						"properties": {
							"min_allowed_feature_size": {"type": "integer"},
							"apply_to_single_phase": {"type": "boolean"},
							"phase_number": {"type": "integer"},
							"image_geometry": {"$ref": "#/definitions/path"},
							"feature_ids": {"$ref": "#/definitions/path"},
							"feature_phases": {"$ref": "#/definitions/path"},
							"num_cells": {"$ref": "#/definitions/path"},
							"ignored_voxel_arrays": {"$ref": "#/definitions/paths"}
						}
					}}}
				},
				{
					"if": {"properties": {"filter": {"const": "identify_sample"}}},
					"then": {"properties": {"args": {
						"required": ["image_geometry", "mask"],
						"additionalProperties": false,
						"properties": {
							"image_geometry": {"$ref": "#/definitions/path"},
							"mask": {"$ref": "#/definitions/path"},
							"fill_holes": {"type": "boolean"},
							"slice_by_slice": {"type": "boolean"},
							"slice_plane": {"enum": ["XY", "XZ", "YZ", "xy", "xz", "yz"]}
						}
					}}}
				}
			]
		}
	}
}`
