package rendezvous

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transfermesh/dtk/internal/substrate"
	"github.com/transfermesh/dtk/pkg/geom"
	"github.com/transfermesh/dtk/pkg/parallel"
)

const tol = 1e-9

func runOnCluster(t *testing.T, size int, sources map[int][]SourceCell, targets map[int][]geom.TargetPoint) [][]geom.Located {
	t.Helper()
	groups := substrate.NewLocalCluster(size)
	ctx := context.Background()
	results := make([][]geom.Located, size)
	require.NoError(t, parallel.Fence(ctx, size, func(ctx context.Context, r int) error {
		located, err := Run(ctx, groups[r], sources[r], targets[r], tol, geom.TieBreakRankAscending)
		if err != nil {
			return err
		}
		results[r] = located
		return nil
	}))
	return results
}

// TestRun_TwoRankTransfer mirrors scenario S1: a point entirely inside
// rank 1's source cell, queried from rank 0, resolves there after the
// full rendezvous round trip (RCB split, routing, local resolve, mirror
// return) rather than a direct top-tree query.
func TestRun_TwoRankTransfer(t *testing.T) {
	sources := map[int][]SourceCell{
		0: {{EntityID: 100, Local: 0, Box: geom.NewBox(geom.NewPoint2D(0, 0), geom.NewPoint2D(1, 1))}},
		1: {{EntityID: 200, Local: 0, Box: geom.NewBox(geom.NewPoint2D(1, 0), geom.NewPoint2D(2, 1))}},
	}
	targets := map[int][]geom.TargetPoint{
		0: {{EntityID: 1, Coord: geom.NewPoint2D(1.5, 0.5)}},
		1: nil,
	}

	results := runOnCluster(t, 2, sources, targets)

	require.Len(t, results[0], 1)
	assert.True(t, results[0][0].Found)
	assert.Equal(t, 1, results[0][0].SourceRank)
	assert.Equal(t, geom.EntityID(200), results[0][0].SourceEntityID)
}

// TestRun_UnlocatedPoint is scenario S2 run through the full rendezvous
// pipeline: a point far outside every source cell's box comes back
// Found=false, never as an error.
func TestRun_UnlocatedPoint(t *testing.T) {
	sources := map[int][]SourceCell{
		0: {{EntityID: 100, Local: 0, Box: geom.NewBox(geom.NewPoint2D(0, 0), geom.NewPoint2D(1, 1))}},
		1: {{EntityID: 200, Local: 0, Box: geom.NewBox(geom.NewPoint2D(1, 0), geom.NewPoint2D(2, 1))}},
	}
	targets := map[int][]geom.TargetPoint{
		0: {{EntityID: 1, Coord: geom.NewPoint2D(50, 50)}},
		1: nil,
	}

	results := runOnCluster(t, 2, sources, targets)

	require.Len(t, results[0], 1)
	assert.False(t, results[0][0].Found)
}

// TestRun_SharedFaceTieBreak is scenario S3: a point sitting exactly on
// the boundary shared by two ranks' source cells resolves to the
// rank-ascending, local-id-ascending owner even after routing through an
// auxiliary rendezvous decomposition that may duplicate both cells onto
// the owning rendezvous rank.
func TestRun_SharedFaceTieBreak(t *testing.T) {
	sources := map[int][]SourceCell{
		0: {{EntityID: 100, Local: 7, Box: geom.NewBox(geom.NewPoint2D(0, 0), geom.NewPoint2D(1, 1))}},
		1: {{EntityID: 200, Local: 3, Box: geom.NewBox(geom.NewPoint2D(1, 0), geom.NewPoint2D(2, 1))}},
	}
	targets := map[int][]geom.TargetPoint{
		0: {{EntityID: 1, Coord: geom.NewPoint2D(1, 0.5)}},
		1: nil,
	}

	results := runOnCluster(t, 2, sources, targets)

	require.Len(t, results[0], 1)
	assert.True(t, results[0][0].Found)
	assert.Equal(t, 0, results[0][0].SourceRank)
	assert.Equal(t, 7, results[0][0].SourceLocalID)
}

// TestRun_ThreeRankRoundsToCorrectOwner exercises a three-way RCB split
// and confirms every query still lands on the correct true owner even
// though none of the three ranks is necessarily its own rendezvous host.
func TestRun_ThreeRankRoundsToCorrectOwner(t *testing.T) {
	sources := map[int][]SourceCell{
		0: {{EntityID: 10, Local: 0, Box: geom.NewBox(geom.NewPoint2D(0, 0), geom.NewPoint2D(1, 1))}},
		1: {{EntityID: 20, Local: 0, Box: geom.NewBox(geom.NewPoint2D(1, 0), geom.NewPoint2D(2, 1))}},
		2: {{EntityID: 30, Local: 0, Box: geom.NewBox(geom.NewPoint2D(2, 0), geom.NewPoint2D(3, 1))}},
	}
	targets := map[int][]geom.TargetPoint{
		0: {{EntityID: 1, Coord: geom.NewPoint2D(0.5, 0.5)}},
		1: {{EntityID: 2, Coord: geom.NewPoint2D(2.5, 0.5)}},
		2: nil,
	}

	results := runOnCluster(t, 3, sources, targets)

	require.Len(t, results[0], 1)
	assert.True(t, results[0][0].Found)
	assert.Equal(t, 0, results[0][0].SourceRank)
	assert.Equal(t, geom.EntityID(10), results[0][0].SourceEntityID)

	require.Len(t, results[1], 1)
	assert.True(t, results[1][0].Found)
	assert.Equal(t, 2, results[1][0].SourceRank)
	assert.Equal(t, geom.EntityID(30), results[1][0].SourceEntityID)
}

func TestBuildPartition_SplitsBalancedByCount(t *testing.T) {
	centroids := []geom.Point{
		geom.NewPoint2D(0.5, 0.5),
		geom.NewPoint2D(1.5, 0.5),
	}
	box := geom.NewBox(geom.NewPoint2D(0, 0), geom.NewPoint2D(2, 1))

	subBoxes := buildPartition(centroids, box, 2)

	require.Len(t, subBoxes, 2)
	assert.InDelta(t, 0.0, subBoxes[0].Min[0], 1e-9)
	assert.InDelta(t, 1.0, subBoxes[0].Max[0], 1e-9)
	assert.InDelta(t, 1.0, subBoxes[1].Min[0], 1e-9)
	assert.InDelta(t, 2.0, subBoxes[1].Max[0], 1e-9)
}
