/*
	Package labels supports per-voxel feature labeling.  A FeatureIds array maps each voxel
	to an integer feature id.  Id 0 is reserved for "no feature" and negative ids mark bad
	voxels awaiting reassignment, so enumeration of real features starts at 1.
*/
package labels

import (
	"fmt"

	"github.com/janelia-flyem/voxfeat/datastructure"
)

// BadFeature is the canonical sentinel for an unassigned or removed voxel.
const BadFeature int32 = -1

// FeatureIds is a per-voxel int32 label array.
type FeatureIds struct {
	*datastructure.DataArray[int32]
}

// NewFeatureIds wraps an int32 data array, which must be single-component.
func NewFeatureIds(a *datastructure.DataArray[int32]) (FeatureIds, error) {
	if a == nil {
		return FeatureIds{}, fmt.Errorf("nil feature id array")
	}
	if a.NumComponents() != 1 {
		return FeatureIds{}, fmt.Errorf("feature id array %q must have 1 component, has %d", a.Name(), a.NumComponents())
	}
	return FeatureIds{a}, nil
}

// FromArray checks the runtime type of a type-erased array and wraps it.
func FromArray(a datastructure.Array) (FeatureIds, error) {
	typed, err := datastructure.ArrayAs[int32](a)
	if err != nil {
		return FeatureIds{}, err
	}
	return NewFeatureIds(typed)
}

// NumVoxels returns the number of labeled voxels.
func (f FeatureIds) NumVoxels() int {
	return f.NumTuples()
}

// IsBad returns true if voxel i has been invalidated.
func (f FeatureIds) IsBad(i int) bool {
	return f.Values()[i] < 0
}

// CountBad returns the number of voxels with negative ids.
func (f FeatureIds) CountBad() int {
	var n int
	for _, id := range f.Values() {
		if id < 0 {
			n++
		}
	}
	return n
}

// MaxFeatureId returns the largest id present, or -1 if every voxel is bad or there
// are no voxels.
func (f FeatureIds) MaxFeatureId() int32 {
	max := BadFeature
	for _, id := range f.Values() {
		if id > max {
			max = id
		}
	}
	return max
}

// Histogram returns the voxel count for each feature id in [0, numFeatures).
// Voxels with negative ids or ids outside the range are not counted; the second
// return value is the number of such voxels at or beyond numFeatures.
func (f FeatureIds) Histogram(numFeatures int) (counts []int32, outOfRange int) {
	counts = make([]int32, numFeatures)
	for _, id := range f.Values() {
		switch {
		case id < 0:
		case int(id) >= numFeatures:
			outOfRange++
		default:
			counts[id]++
		}
	}
	return
}

// Invalidate marks every voxel whose feature is inactive in mask as bad and returns
// the number of voxels changed.  Ids must index into mask.
func (f FeatureIds) Invalidate(active []bool) int {
	var changed int
	ids := f.Values()
	for i, id := range ids {
		if id < 0 {
			continue
		}
		if int(id) >= len(active) {
			panic(fmt.Sprintf("feature id %d at voxel %d exceeds feature count %d", id, i, len(active)))
		}
		if !active[id] {
			ids[i] = BadFeature
			changed++
		}
	}
	return changed
}

// Remap replaces each non-negative id with newIds[id].
func (f FeatureIds) Remap(newIds []int32) {
	ids := f.Values()
	for i, id := range ids {
		if id < 0 {
			continue
		}
		if int(id) >= len(newIds) {
			panic(fmt.Sprintf("feature id %d at voxel %d exceeds remap table of %d", id, i, len(newIds)))
		}
		ids[i] = newIds[id]
	}
}

// CompactionMap returns, for an active mask over feature ids, the new contiguous id of
// each surviving feature (inactive features map to BadFeature) and the new feature
// count including the reserved slot 0.
func CompactionMap(active []bool) (newIds []int32, newCount int) {
	newIds = make([]int32, len(active))
	var next int32
	for i, keep := range active {
		if keep {
			newIds[i] = next
			next++
		} else {
			newIds[i] = BadFeature
		}
	}
	return newIds, int(next)
}
