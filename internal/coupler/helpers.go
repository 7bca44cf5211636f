// Package coupler adapts original_source/core/example/WaveDamper's
// fixed-point Wave/Damper coupling driver: two toy 1-D field solvers
// exchanging boundary-forcing data through a pair of internal/transfer
// operators until the reduced residual converges. It is a worked
// integration example, not part of the core transfer engine's surface.
package coupler

import (
	"fmt"

	appErrors "github.com/transfermesh/dtk/pkg/errors"
	"github.com/transfermesh/dtk/pkg/geom"
)

// linspace returns n equally spaced samples from lo to hi inclusive.
func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

func unknownTarget(entity geom.EntityID) error {
	return appErrors.New(appErrors.CodeInvariantViolation, fmt.Sprintf("wavedamper: no local node for target entity %d", entity))
}
