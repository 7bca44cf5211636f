package distributed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transfermesh/dtk/internal/spatial"
	"github.com/transfermesh/dtk/internal/substrate"
	"github.com/transfermesh/dtk/pkg/geom"
	"github.com/transfermesh/dtk/pkg/parallel"
)

const tol = 1e-9

func TestBuildTopTree_EveryRankAgrees(t *testing.T) {
	groups := substrate.NewLocalCluster(3)
	ctx := context.Background()

	boxes := []geom.BoundingBox{
		geom.NewBox(geom.NewPoint2D(0, 0), geom.NewPoint2D(1, 1)),
		geom.NewBox(geom.NewPoint2D(1, 0), geom.NewPoint2D(2, 1)),
		geom.NewBox(geom.NewPoint2D(2, 0), geom.NewPoint2D(3, 1)),
	}

	trees := make([]*TopTree, 3)
	require.NoError(t, parallel.Fence(ctx, 3, func(ctx context.Context, r int) error {
		tree, err := BuildTopTree(ctx, groups[r], boxes[r])
		if err != nil {
			return err
		}
		trees[r] = tree
		return nil
	}))

	for r, tree := range trees {
		require.Equal(t, 3, tree.Size(), "rank %d", r)
		for leaf := 0; leaf < 3; leaf++ {
			assert.InDelta(t, boxes[leaf].Min[0], tree.LeafBox(leaf).Min[0], 1e-9)
		}
	}
}

// TestLocatePoints_TwoRankTransfer is scenario S1: a point owned entirely
// by rank 1's source cell, queried from rank 0, resolves to rank 1.
func TestLocatePoints_TwoRankTransfer(t *testing.T) {
	groups := substrate.NewLocalCluster(2)
	ctx := context.Background()

	sourceBoxes := []geom.BoundingBox{
		geom.NewBox(geom.NewPoint2D(0, 0), geom.NewPoint2D(1, 1)),
		geom.NewBox(geom.NewPoint2D(1, 0), geom.NewPoint2D(2, 1)),
	}
	localIndices := []*spatial.LocalSpatialIndex{
		spatial.Build([]spatial.Primitive{{EntityID: 100, Local: 0, Box: sourceBoxes[0]}}),
		spatial.Build([]spatial.Primitive{{EntityID: 200, Local: 0, Box: sourceBoxes[1]}}),
	}

	targets := map[int][]geom.TargetPoint{
		0: {{EntityID: 1, Coord: geom.NewPoint2D(1.5, 0.5)}},
		1: nil,
	}

	results := make([][]geom.Located, 2)
	require.NoError(t, parallel.Fence(ctx, 2, func(ctx context.Context, r int) error {
		tree, err := BuildTopTree(ctx, groups[r], sourceBoxes[r])
		if err != nil {
			return err
		}
		located, err := LocatePoints(ctx, groups[r], tree, localIndices[r], targets[r], tol, geom.TieBreakRankAscending)
		if err != nil {
			return err
		}
		results[r] = located
		return nil
	}))

	require.Len(t, results[0], 1)
	assert.True(t, results[0][0].Found)
	assert.Equal(t, 1, results[0][0].SourceRank)
	assert.Equal(t, geom.EntityID(200), results[0][0].SourceEntityID)
}

// TestLocatePoints_UnlocatedPoint is scenario S2: a point outside every
// source box comes back marked unlocated, not as an error.
func TestLocatePoints_UnlocatedPoint(t *testing.T) {
	groups := substrate.NewLocalCluster(2)
	ctx := context.Background()

	sourceBoxes := []geom.BoundingBox{
		geom.NewBox(geom.NewPoint2D(0, 0), geom.NewPoint2D(1, 1)),
		geom.NewBox(geom.NewPoint2D(1, 0), geom.NewPoint2D(2, 1)),
	}
	localIndices := []*spatial.LocalSpatialIndex{
		spatial.Build([]spatial.Primitive{{EntityID: 100, Local: 0, Box: sourceBoxes[0]}}),
		spatial.Build([]spatial.Primitive{{EntityID: 200, Local: 0, Box: sourceBoxes[1]}}),
	}
	targets := map[int][]geom.TargetPoint{
		0: {{EntityID: 1, Coord: geom.NewPoint2D(50, 50)}},
		1: nil,
	}

	results := make([][]geom.Located, 2)
	require.NoError(t, parallel.Fence(ctx, 2, func(ctx context.Context, r int) error {
		tree, err := BuildTopTree(ctx, groups[r], sourceBoxes[r])
		if err != nil {
			return err
		}
		located, err := LocatePoints(ctx, groups[r], tree, localIndices[r], targets[r], tol, geom.TieBreakRankAscending)
		if err != nil {
			return err
		}
		results[r] = located
		return nil
	}))

	require.Len(t, results[0], 1)
	assert.False(t, results[0][0].Found)
}

// TestLocatePoints_SharedFaceTieBreak is scenario S3: a point exactly on
// the boundary between two ranks' cells resolves deterministically to
// the rank-ascending, local-id-ascending owner.
func TestLocatePoints_SharedFaceTieBreak(t *testing.T) {
	groups := substrate.NewLocalCluster(2)
	ctx := context.Background()

	// Both ranks own a cell touching x=1; the query point sits exactly on
	// that shared face, so both are valid candidates.
	sourceBoxes := []geom.BoundingBox{
		geom.NewBox(geom.NewPoint2D(0, 0), geom.NewPoint2D(1, 1)),
		geom.NewBox(geom.NewPoint2D(1, 0), geom.NewPoint2D(2, 1)),
	}
	localIndices := []*spatial.LocalSpatialIndex{
		spatial.Build([]spatial.Primitive{{EntityID: 100, Local: 7, Box: sourceBoxes[0]}}),
		spatial.Build([]spatial.Primitive{{EntityID: 200, Local: 3, Box: sourceBoxes[1]}}),
	}
	targets := map[int][]geom.TargetPoint{
		0: {{EntityID: 1, Coord: geom.NewPoint2D(1, 0.5)}},
		1: nil,
	}

	results := make([][]geom.Located, 2)
	require.NoError(t, parallel.Fence(ctx, 2, func(ctx context.Context, r int) error {
		tree, err := BuildTopTree(ctx, groups[r], sourceBoxes[r])
		if err != nil {
			return err
		}
		located, err := LocatePoints(ctx, groups[r], tree, localIndices[r], targets[r], tol, geom.TieBreakRankAscending)
		if err != nil {
			return err
		}
		results[r] = located
		return nil
	}))

	require.Len(t, results[0], 1)
	assert.True(t, results[0][0].Found)
	assert.Equal(t, 0, results[0][0].SourceRank)
	assert.Equal(t, 7, results[0][0].SourceLocalID)
}
