package cleanup

import "fmt"

// ComputeActiveMask decides which features survive thresholding.  Feature i is active
// if criterion[i] >= threshold.  If phases is non-nil, only features of targetPhase are
// thresholded and every feature of another phase stays active.  Slot 0 is reserved and
// always active.
//
// ErrAllFeaturesRemoved is returned if no feature beyond slot 0 survives.  Callers must
// check it before mutating anything.
func ComputeActiveMask(criterion []int32, threshold int32, phases []int32, targetPhase int32) ([]bool, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("%w: %d is negative", ErrInvalidThreshold, threshold)
	}
	if phases != nil && len(phases) != len(criterion) {
		return nil, fmt.Errorf("%w: %d phases for %d features", ErrTupleCountMismatch, len(phases), len(criterion))
	}
	active := make([]bool, len(criterion))
	if len(active) == 0 {
		return active, nil
	}
	active[0] = true

	var good bool
	for i := 1; i < len(criterion); i++ {
		switch {
		case criterion[i] >= threshold:
			active[i] = true
		case phases != nil && phases[i] != targetPhase:
			active[i] = true
		}
		if active[i] {
			good = true
		}
	}
	if !good && len(criterion) > 1 {
		return nil, fmt.Errorf("%w: no feature reaches threshold %d", ErrAllFeaturesRemoved, threshold)
	}
	return active, nil
}
