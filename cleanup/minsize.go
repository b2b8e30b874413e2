package cleanup

import (
	"context"

	"github.com/janelia-flyem/voxfeat/datastructure"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// RemoveMinimumSizeFeatures removes features with fewer than MinAllowedFeatureSize
// voxels and grows the surviving features into the vacated voxels.
type RemoveMinimumSizeFeatures struct {
	MinAllowedFeatureSize int32 `json:"min_allowed_feature_size"`

	ApplyToSinglePhase bool  `json:"apply_to_single_phase"`
	PhaseNumber        int32 `json:"phase_number"`

	ImageGeomPath     datastructure.DataPath `json:"image_geometry"`
	FeatureIdsPath    datastructure.DataPath `json:"feature_ids"`
	FeaturePhasesPath datastructure.DataPath `json:"feature_phases"`
	NumCellsPath      datastructure.DataPath `json:"num_cells"`

	IgnoredVoxelArrays []datastructure.DataPath `json:"ignored_voxel_arrays"`

	Workers int `json:"-"`
}

func (f *RemoveMinimumSizeFeatures) Name() string {
	return "Remove Minimum Size Features"
}

func (f *RemoveMinimumSizeFeatures) SetWorkers(n int) {
	f.Workers = n
}

func (f *RemoveMinimumSizeFeatures) removal() *featureRemoval {
	return &featureRemoval{
		filter:         f.Name(),
		criterionName:  "minimum allowed feature size",
		threshold:      f.MinAllowedFeatureSize,
		singlePhase:    f.ApplyToSinglePhase,
		phase:          f.PhaseNumber,
		imagePath:      f.ImageGeomPath,
		featureIdsPath: f.FeatureIdsPath,
		phasesPath:     f.FeaturePhasesPath,
		criterionPath:  f.NumCellsPath,
		ignored:        f.IgnoredVoxelArrays,
		workers:        f.Workers,
	}
}

func (f *RemoveMinimumSizeFeatures) Preflight(ds *datastructure.DataStructure) ([]string, error) {
	return f.removal().preflight(ds)
}

func (f *RemoveMinimumSizeFeatures) Execute(ctx context.Context, ds *datastructure.DataStructure, handler voxfeat.MessageHandler) error {
	return f.removal().execute(ctx, ds, handler)
}
