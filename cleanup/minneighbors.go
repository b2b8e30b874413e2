package cleanup

import (
	"context"

	"github.com/janelia-flyem/voxfeat/datastructure"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// MinNeighbors removes features with fewer than MinNumNeighbors contiguous neighbors
// and grows the surviving features into the vacated voxels.
type MinNeighbors struct {
	MinNumNeighbors int32 `json:"min_num_neighbors"`

	// If ApplyToSinglePhase is set, only features of PhaseNumber are removed.
	ApplyToSinglePhase bool  `json:"apply_to_single_phase"`
	PhaseNumber        int32 `json:"phase_number"`

	ImageGeomPath     datastructure.DataPath `json:"image_geometry"`
	FeatureIdsPath    datastructure.DataPath `json:"feature_ids"`
	FeaturePhasesPath datastructure.DataPath `json:"feature_phases"`
	NumNeighborsPath  datastructure.DataPath `json:"num_neighbors"`

	// IgnoredVoxelArrays are cell arrays left untouched during reassignment.
	IgnoredVoxelArrays []datastructure.DataPath `json:"ignored_voxel_arrays"`

	Workers int `json:"-"`
}

func (f *MinNeighbors) Name() string {
	return "Minimum Number of Neighbors"
}

// SetWorkers sets the number of concurrent partitions used to scan for donors.
func (f *MinNeighbors) SetWorkers(n int) {
	f.Workers = n
}

func (f *MinNeighbors) removal() *featureRemoval {
	return &featureRemoval{
		filter:         f.Name(),
		criterionName:  "minimum number of neighbors",
		threshold:      f.MinNumNeighbors,
		singlePhase:    f.ApplyToSinglePhase,
		phase:          f.PhaseNumber,
		imagePath:      f.ImageGeomPath,
		featureIdsPath: f.FeatureIdsPath,
		phasesPath:     f.FeaturePhasesPath,
		criterionPath:  f.NumNeighborsPath,
		ignored:        f.IgnoredVoxelArrays,
		workers:        f.Workers,
	}
}

func (f *MinNeighbors) Preflight(ds *datastructure.DataStructure) ([]string, error) {
	return f.removal().preflight(ds)
}

func (f *MinNeighbors) Execute(ctx context.Context, ds *datastructure.DataStructure, handler voxfeat.MessageHandler) error {
	return f.removal().execute(ctx, ds, handler)
}
