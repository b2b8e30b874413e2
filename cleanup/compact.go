package cleanup

import (
	"context"
	"fmt"

	"github.com/janelia-flyem/voxfeat/datastructure"
	"github.com/janelia-flyem/voxfeat/labels"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// RemoveInactiveFeatures drops every feature whose active flag is false from the
// feature attribute matrix at amPath, renumbering survivors contiguously in their
// original order, and rewrites ids to the new numbering.  Neighbor lists in the matrix
// are deleted since their contents refer to the old numbering.  It returns the new
// feature count, including slot 0.
//
// If every feature is active nothing is changed.
func RemoveInactiveFeatures(ctx context.Context, ds *datastructure.DataStructure, amPath datastructure.DataPath, active []bool, ids labels.FeatureIds, msgr voxfeat.Messenger) (int, error) {
	am, err := ds.GetAttributeMatrix(amPath)
	if err != nil {
		return 0, err
	}
	prevCount := am.NumTuples()
	if len(active) != prevCount {
		return 0, fmt.Errorf("%w: mask has %d entries, %q has %d tuples", ErrTupleCountMismatch, len(active), amPath, prevCount)
	}
	newIds, newCount := labels.CompactionMap(active)
	if newCount == prevCount {
		return prevCount, nil
	}
	if ctx.Err() != nil {
		return 0, cancelled(ctx)
	}

	for _, a := range am.Arrays() {
		if a.IsNeighborList() {
			voxfeat.Infof("Deleting neighbor list %q after feature renumbering\n", a.Name())
			if err := ds.Remove(amPath.Child(a.Name())); err != nil {
				return 0, err
			}
			continue
		}
		if n := a.CompactTuples(active); n != newCount {
			return 0, fmt.Errorf("array %q compacted to %d tuples, expected %d", a.Name(), n, newCount)
		}
	}
	am.ResizeTuples([]int{newCount})
	ids.Remap(newIds)

	msgr.Send("Feature Count Changed: Previous: %d New: %d", prevCount, newCount)
	return newCount, nil
}
