package cleanup

import (
	"context"
	"fmt"

	"github.com/janelia-flyem/voxfeat/datastructure"
	"github.com/janelia-flyem/voxfeat/geometry"
	"github.com/janelia-flyem/voxfeat/labels"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// Filter is a cleanup step that can be validated against a DataStructure without
// side effects and then executed.
type Filter interface {
	Name() string

	// Preflight validates inputs and returns warnings describing what Execute would
	// discard.  It never mutates ds.
	Preflight(ds *datastructure.DataStructure) (warnings []string, err error)

	Execute(ctx context.Context, ds *datastructure.DataStructure, handler voxfeat.MessageHandler) error
}

// featureRemoval is the threshold / invalidate / reassign / compact pipeline shared by
// the neighbor-count and size filters.
type featureRemoval struct {
	filter        string
	criterionName string

	threshold   int32
	singlePhase bool
	phase       int32

	imagePath      datastructure.DataPath
	featureIdsPath datastructure.DataPath
	phasesPath     datastructure.DataPath
	criterionPath  datastructure.DataPath
	ignored        []datastructure.DataPath

	workers int
}

type removalInputs struct {
	grid      *geometry.ImageGeom
	ids       labels.FeatureIds
	cellData  []datastructure.Array
	criterion []int32
	phases    []int32
	amPath    datastructure.DataPath
	amArrays  []datastructure.Array
}

func (r *featureRemoval) int32Array(ds *datastructure.DataStructure, path datastructure.DataPath, what string) (*datastructure.DataArray[int32], error) {
	if path.Empty() {
		return nil, validationErr(r.filter, ErrMissingRequiredArray, "no %s array given", what)
	}
	a, err := datastructure.GetDataArray[int32](ds, path)
	if err != nil {
		return nil, validationErr(r.filter, ErrMissingRequiredArray, "%s array %q: %v", what, path, err)
	}
	return a, nil
}

func (r *featureRemoval) validate(ds *datastructure.DataStructure) (*removalInputs, error) {
	if r.threshold < 0 {
		return nil, validationErr(r.filter, ErrInvalidThreshold, "%s must be non-negative, got %d", r.criterionName, r.threshold)
	}
	img, err := ds.GetImage(r.imagePath)
	if err != nil {
		return nil, validationErr(r.filter, ErrMissingRequiredArray, "image geometry %q: %v", r.imagePath, err)
	}
	idsArray, err := r.int32Array(ds, r.featureIdsPath, "feature ids")
	if err != nil {
		return nil, err
	}
	ids, err := labels.NewFeatureIds(idsArray)
	if err != nil {
		return nil, &ValidationError{Filter: r.filter, Err: err}
	}
	if int64(ids.NumVoxels()) != img.Geom.NumVoxels() {
		return nil, validationErr(r.filter, ErrTupleCountMismatch, "feature ids have %d tuples, geometry %s has %d voxels",
			ids.NumVoxels(), img.Dims().StringDims(), img.Geom.NumVoxels())
	}
	criterion, err := r.int32Array(ds, r.criterionPath, r.criterionName)
	if err != nil {
		return nil, err
	}
	in := &removalInputs{
		grid:      img.Geom,
		ids:       ids,
		criterion: criterion.Values(),
		amPath:    r.criterionPath.Parent(),
	}
	am, err := ds.GetAttributeMatrix(in.amPath)
	if err != nil {
		return nil, validationErr(r.filter, ErrMissingRequiredArray, "feature attribute matrix %q: %v", in.amPath, err)
	}
	in.amArrays = am.Arrays()
	if max := ids.MaxFeatureId(); int(max) >= len(in.criterion) {
		return nil, validationErr(r.filter, ErrTupleCountMismatch, "feature id %d exceeds the %d tuples of %q",
			max, len(in.criterion), r.criterionPath)
	}

	if r.singlePhase {
		phases, err := r.int32Array(ds, r.phasesPath, "feature phases")
		if err != nil {
			return nil, err
		}
		if phases.NumTuples() != len(in.criterion) {
			return nil, validationErr(r.filter, ErrTupleCountMismatch, "%q has %d tuples, %q has %d",
				r.phasesPath, phases.NumTuples(), r.criterionPath, len(in.criterion))
		}
		in.phases = phases.Values()
		var maxPhase int32 = -1
		for _, p := range in.phases {
			if p > maxPhase {
				maxPhase = p
			}
		}
		if r.phase < 0 || r.phase > maxPhase {
			return nil, validationErr(r.filter, ErrPhaseUnavailable, "phase %d requested, largest phase is %d", r.phase, maxPhase)
		}
	}

	cellPath := r.featureIdsPath.Parent()
	cellAM, err := ds.GetAttributeMatrix(cellPath)
	if err != nil {
		return nil, validationErr(r.filter, ErrMissingRequiredArray, "cell attribute matrix %q: %v", cellPath, err)
	}
	in.cellData = cellAM.Arrays()
	for _, p := range r.ignored {
		if !p.Parent().Equals(cellPath) {
			return nil, validationErr(r.filter, ErrNotCellArray, "ignored array %q is not in %q", p, cellPath)
		}
		if !ds.Contains(p) {
			return nil, validationErr(r.filter, ErrMissingRequiredArray, "ignored array %q", p)
		}
	}
	return in, nil
}

func (r *featureRemoval) preflight(ds *datastructure.DataStructure) ([]string, error) {
	in, err := r.validate(ds)
	if err != nil {
		return nil, err
	}
	var warnings []string
	for _, a := range in.amArrays {
		if a.IsNeighborList() {
			warnings = append(warnings, fmt.Sprintf("neighbor list %q will be deleted because features are renumbered",
				in.amPath.Child(a.Name())))
		}
	}
	return warnings, nil
}

func (r *featureRemoval) execute(ctx context.Context, ds *datastructure.DataStructure, handler voxfeat.MessageHandler) error {
	in, err := r.validate(ds)
	if err != nil {
		return err
	}
	msgr := voxfeat.Messenger{Handler: handler, Prefix: r.filter}
	timedLog := voxfeat.NewTimeLog()

	active, err := ComputeActiveMask(in.criterion, r.threshold, in.phases, r.phase)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return cancelled(ctx)
	}
	var numRemoved int
	for _, a := range active {
		if !a {
			numRemoved++
		}
	}
	if numRemoved == 0 {
		msgr.Send("No features below %s %d", r.criterionName, r.threshold)
		timedLog.Infof("%s: all %d features kept", r.filter, len(active))
		return nil
	}
	removed := in.ids.Invalidate(active)
	msgr.Send("Invalidated %d voxels of removed features", removed)

	ignored := make([]string, len(r.ignored))
	for i, p := range r.ignored {
		ignored[i] = p.Name()
	}
	stats, err := ReassignBadVoxels(ctx, in.grid, in.ids, in.cellData, ReassignOptions{
		Workers:   r.workers,
		Ignored:   ignored,
		Messenger: msgr,
	})
	if err != nil {
		return err
	}

	newCount, err := RemoveInactiveFeatures(ctx, ds, in.amPath, active, in.ids, msgr)
	if err != nil {
		return err
	}
	timedLog.Infof("%s: %d features remain after %d passes reassigning %d voxels (%d unassigned)",
		r.filter, newCount, stats.Passes, stats.Reassigned, stats.Remaining)
	return nil
}
