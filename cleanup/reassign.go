package cleanup

import (
	"context"
	"fmt"

	"github.com/janelia-flyem/voxfeat/datastructure"
	"github.com/janelia-flyem/voxfeat/geometry"
	"github.com/janelia-flyem/voxfeat/labels"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// ReassignOptions tunes ReassignBadVoxels.
type ReassignOptions struct {
	// Workers > 1 parallelizes the donor scan of each pass.
	Workers int

	// Ignored names cell arrays whose tuples are not copied from donors.  Names are
	// matched within cellArrays, which must all belong to one attribute matrix.  The
	// feature id array itself is always updated.
	Ignored []string

	Messenger voxfeat.Messenger
}

// ReassignStats summarizes a ReassignBadVoxels run.
type ReassignStats struct {
	Passes     int
	Reassigned int
	Remaining  int // bad voxels with no path to any good voxel
}

type move struct {
	to, from int
}

// ReassignBadVoxels repeatedly fills bad voxels from their best face neighbor until
// no bad voxels remain or a pass makes no progress.  Each pass first chooses donors for
// every bad voxel against the ids as they were at the start of the pass, then copies
// the donor tuple of every non-ignored cell array, including the feature ids.  Because
// donors are always good voxels and targets always bad, the copy order within a pass
// cannot affect the result.
//
// Bad regions that touch no good voxel stay bad and are counted in stats.Remaining.
func ReassignBadVoxels(ctx context.Context, grid *geometry.ImageGeom, ids labels.FeatureIds, cellArrays []datastructure.Array, opts ReassignOptions) (ReassignStats, error) {
	var stats ReassignStats

	numVoxels := ids.NumVoxels()
	ignored := make(map[string]struct{}, len(opts.Ignored))
	for _, name := range opts.Ignored {
		ignored[name] = struct{}{}
	}
	var copied []datastructure.Array
	for _, a := range cellArrays {
		if a.NumTuples() != numVoxels {
			panic(fmt.Sprintf("cell array %q has %d tuples, expected %d", a.Name(), a.NumTuples(), numVoxels))
		}
		if da, ok := a.(*datastructure.DataArray[int32]); ok && da == ids.DataArray {
			continue
		}
		if _, skip := ignored[a.Name()]; skip {
			continue
		}
		copied = append(copied, a)
	}
	values := ids.Values()

	var moves []move
	for {
		if ctx.Err() != nil {
			return stats, cancelled(ctx)
		}
		donors, numBad, err := FindBestDonors(ctx, grid, ids, opts.Workers)
		if err != nil {
			return stats, err
		}
		if numBad == 0 {
			break
		}
		stats.Passes++

		moves = moves[:0]
		for i, donor := range donors {
			if donor == NoDonor || values[i] >= 0 || values[donor] < 0 {
				continue
			}
			moves = append(moves, move{to: i, from: int(donor)})
		}
		if len(moves) == 0 {
			stats.Remaining = numBad
			voxfeat.Warningf("%d bad voxels have no path to a good voxel and remain unassigned\n", numBad)
			opts.Messenger.Send("%d voxels could not be reassigned", numBad)
			break
		}

		for _, a := range copied {
			for _, mv := range moves {
				a.CopyTuple(mv.from, mv.to)
			}
		}
		for _, mv := range moves {
			values[mv.to] = values[mv.from]
		}
		stats.Reassigned += len(moves)
		opts.Messenger.Send("Pass %d: %d bad voxels, %d reassigned", stats.Passes, numBad, len(moves))
	}
	return stats, nil
}
