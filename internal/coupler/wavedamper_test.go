package coupler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transfermesh/dtk/internal/coupler"
	"github.com/transfermesh/dtk/internal/substrate"
	"github.com/transfermesh/dtk/pkg/parallel"
)

// TestRun_ConvergesAcrossRanks mirrors scenario S6: two ranks each own
// half of the Wave/Damper domain, and the fixed-point relaxation loop
// converges under the shared residual tolerance the way
// cxx_main.cpp's while loop does.
func TestRun_ConvergesAcrossRanks(t *testing.T) {
	groups := substrate.NewLocalCluster(2)
	ctx := context.Background()

	opts := coupler.DefaultOptions()
	opts.Tolerance = 1e-4
	opts.MaxIterations = 50

	results := make([]coupler.Result, 2)
	require.NoError(t, parallel.Fence(ctx, 2, func(ctx context.Context, r int) error {
		res, err := coupler.Run(ctx, groups[r], opts)
		if err != nil {
			return err
		}
		results[r] = res
		return nil
	}))

	// The residual reduction is collective, so every rank agrees on both
	// the iteration count and the final residual.
	assert.Equal(t, results[0], results[1])
	assert.True(t, results[0].Converged, "expected convergence within %d iterations, got residual %g", opts.MaxIterations, results[0].Residual)
	assert.Less(t, results[0].Iterations, opts.MaxIterations)
}

// TestRun_RespectsIterationCap checks the driver reports a non-converged
// result instead of looping forever when the tolerance is unreachable
// in the allotted iterations.
func TestRun_RespectsIterationCap(t *testing.T) {
	groups := substrate.NewLocalCluster(1)
	ctx := context.Background()

	opts := coupler.DefaultOptions()
	opts.Tolerance = 0 // unreachable: forces the cap to trigger
	opts.MaxIterations = 3

	res, err := coupler.Run(ctx, groups[0], opts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Iterations)
	assert.False(t, res.Converged)
}
