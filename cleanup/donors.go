package cleanup

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/voxfeat/geometry"
	"github.com/janelia-flyem/voxfeat/labels"
)

// NoDonor marks a voxel without any valid face neighbor.
const NoDonor int64 = -1

// FindBestDonors scans every bad voxel (id < 0) and picks as its donor the face neighbor
// whose feature is most common among its valid neighbors.  Ties keep the first neighbor
// to reach the maximum in -Z, -Y, -X, +X, +Y, +Z order.  donors[i] is NoDonor for good
// voxels and for bad voxels with no valid neighbor.
//
// With workers > 1 the grid is split into runs of rows scanned concurrently, each with
// private vote counters.  Every voxel's decision depends only on the current ids, so
// the result is identical to the sequential scan.
func FindBestDonors(ctx context.Context, grid *geometry.ImageGeom, ids labels.FeatureIds, workers int) (donors []int64, numBad int, err error) {
	if int64(ids.NumVoxels()) != grid.NumVoxels() {
		panic(fmt.Sprintf("feature ids hold %d voxels but grid %s has %d", ids.NumVoxels(), grid.Dims().StringDims(), grid.NumVoxels()))
	}
	numFeatures := int(ids.MaxFeatureId()) + 1
	donors = make([]int64, grid.NumVoxels())

	dims := grid.Dims()
	numRows := int(dims[1]) * int(dims[2])
	if workers <= 1 || numRows < 2 {
		numBad, err = scanRows(ctx, grid, ids.Values(), donors, make([]int32, numFeatures), 0, numRows)
		return
	}
	if workers > numRows {
		workers = numRows
	}

	badPerPart := make([]int, workers)
	g, gctx := errgroup.WithContext(ctx)
	rowsPerPart := (numRows + workers - 1) / workers
	for part := 0; part < workers; part++ {
		begRow := part * rowsPerPart
		endRow := begRow + rowsPerPart
		if endRow > numRows {
			endRow = numRows
		}
		if begRow >= endRow {
			break
		}
		g.Go(func() error {
			n, err := scanRows(gctx, grid, ids.Values(), donors, make([]int32, numFeatures), begRow, endRow)
			badPerPart[part] = n
			return err
		})
	}
	if err = g.Wait(); err != nil {
		return nil, 0, err
	}
	for _, n := range badPerPart {
		numBad += n
	}
	return
}

// scanRows computes donors for rows [begRow, endRow), where row r is the run of voxels
// with y = r % dimY and z = r / dimY.  counts is scratch indexed by feature id and must
// be all zero on entry; it is all zero again on return.
func scanRows(ctx context.Context, grid *geometry.ImageGeom, ids []int32, donors []int64, counts []int32, begRow, endRow int) (int, error) {
	dims := grid.Dims()
	dimX, dimY, dimZ := int64(dims[0]), int64(dims[1]), int64(dims[2])
	offsets := grid.NeighborOffsets()
	done := ctx.Done()

	var numBad int
	var touched [geometry.NumFaceNeighbors]int32
	for row := int64(begRow); row < int64(endRow); row++ {
		y := row % dimY
		z := row / dimY
		idx := row * dimX
		for x := int64(0); x < dimX; x, idx = x+1, idx+1 {
			if isDone(done) {
				return numBad, cancelled(ctx)
			}
			donors[idx] = NoDonor
			if ids[idx] >= 0 {
				continue
			}
			numBad++

			var most int32
			numTouched := 0
			for n := 0; n < geometry.NumFaceNeighbors; n++ {
				switch n {
				case geometry.NegZ:
					if z == 0 {
						continue
					}
				case geometry.NegY:
					if y == 0 {
						continue
					}
				case geometry.NegX:
					if x == 0 {
						continue
					}
				case geometry.PosX:
					if x == dimX-1 {
						continue
					}
				case geometry.PosY:
					if y == dimY-1 {
						continue
					}
				case geometry.PosZ:
					if z == dimZ-1 {
						continue
					}
				}
				neighbor := idx + offsets[n]
				feature := ids[neighbor]
				if feature < 0 {
					continue
				}
				counts[feature]++
				touched[numTouched] = feature
				numTouched++
				if counts[feature] > most {
					most = counts[feature]
					donors[idx] = neighbor
				}
			}
			// Zero every examined counter so no tally leaks into the next bad voxel.
			for _, feature := range touched[:numTouched] {
				counts[feature] = 0
			}
		}
	}
	return numBad, nil
}
