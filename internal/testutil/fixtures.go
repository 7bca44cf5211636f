// Package testutil provides small fixtures shared by the transfer
// engine's test suites: reference mesh builders and a cluster-fencing
// helper, so package tests don't each reinvent substrate.NewLocalCluster
// plus pkg/parallel.Fence boilerplate.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/transfermesh/dtk/internal/mesh"
	"github.com/transfermesh/dtk/internal/substrate"
	"github.com/transfermesh/dtk/pkg/parallel"
)

// NewLineMeshFixture builds a 1-D LineMesh over x with a single field
// set, failing the test immediately if len(values) != len(x).
func NewLineMeshFixture(t *testing.T, rank int, x []float64, fieldName string, values []float64) *mesh.LineMesh {
	t.Helper()
	require.Len(t, values, len(x), "fixture field length must match node count")
	m := mesh.NewLineMesh(rank, x)
	m.SetField(fieldName, values)
	return m
}

// NewQuadMeshFixture builds a 2-D QuadMesh over the x times y tensor
// grid with a single field set, failing the test immediately if
// len(values) != len(x)*len(y).
func NewQuadMeshFixture(t *testing.T, rank int, x, y []float64, fieldName string, values []float64) *mesh.QuadMesh {
	t.Helper()
	require.Len(t, values, len(x)*len(y), "fixture field length must match node count")
	m := mesh.NewQuadMesh(rank, x, y)
	m.SetField(fieldName, values)
	return m
}

// RunOnCluster builds a size-rank LocalCluster and runs fn for every
// rank concurrently behind a pkg/parallel.Fence, failing the test if any
// rank returns an error. It is the generalization of
// internal/rendezvous's runOnCluster test helper, reused wherever a test
// needs a full collective round trip rather than a single rank's view.
func RunOnCluster(t *testing.T, size int, fn func(ctx context.Context, g substrate.Group, rank int) error) {
	t.Helper()
	groups := substrate.NewLocalCluster(size)
	ctx := context.Background()
	require.NoError(t, parallel.Fence(ctx, size, func(ctx context.Context, r int) error {
		return fn(ctx, groups[r], r)
	}))
}
