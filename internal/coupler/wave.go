package coupler

import (
	"math"

	"github.com/transfermesh/dtk/internal/mesh"
	"github.com/transfermesh/dtk/pkg/geom"
)

const (
	waveSourceField = "wave_source_field"
	waveTargetField = "wave_target_field"
)

// Wave is a toy 1-D wave-equation solver standing in for
// original_source's Wave model: a partitioned line of nodes carrying a
// displacement field it solves locally and exchanges with a Damper
// across the rendezvous transfer.
type Wave struct {
	m       *mesh.LineMesh
	field   []float64 // wave_source_field, read by the damper's transfer
	forcing []float64 // wave_target_field, written by the damper's transfer
}

// NewWave builds a Wave over numCells+1 equally spaced nodes between
// xMin and xMax. initialPulse seeds a nonzero displacement at the left
// edge, matching cxx_main.cpp's single rank-0 source term.
func NewWave(rank int, xMin, xMax float64, numCells int, initialPulse bool) *Wave {
	x := linspace(xMin, xMax, numCells+1)
	m := mesh.NewLineMesh(rank, x)
	field := make([]float64, len(x))
	if initialPulse && len(field) > 0 {
		field[0] = 1.0
	}
	forcing := make([]float64, len(x))
	m.SetField(waveSourceField, field)
	m.SetField(waveTargetField, forcing)
	return &Wave{m: m, field: field, forcing: forcing}
}

// Mesh exposes the adapter backing both the source and target side of
// the wave field transfer.
func (w *Wave) Mesh() *mesh.LineMesh { return w.m }

// Set implements transfer.TargetBuffer for the damper -> wave transfer:
// writes land in forcing, consumed by the next Solve.
func (w *Wave) Set(entity geom.EntityID, value geom.FieldValue) error {
	i, ok := w.m.VertexIndex(entity)
	if !ok {
		return unknownTarget(entity)
	}
	w.forcing[i] = value.Scalar()
	return nil
}

// Solve advances the wave field one relaxation step toward the damper's
// forcing field, commits the result back into the mesh's source field
// for the next transfer round, and returns the local L2 norm of the
// update — the residual cxx_main.cpp reduces with REDUCE_MAX to decide
// convergence.
func (w *Wave) Solve() float64 {
	next := make([]float64, len(w.field))
	sumSquares := 0.0
	for i := range w.field {
		next[i] = 0.5*w.field[i] + 0.5*w.forcing[i]
		delta := next[i] - w.field[i]
		sumSquares += delta * delta
	}
	w.field = next
	w.m.SetField(waveSourceField, w.field)
	return math.Sqrt(sumSquares)
}
