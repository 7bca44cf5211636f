package coupler

import (
	"github.com/transfermesh/dtk/internal/mesh"
	"github.com/transfermesh/dtk/pkg/geom"
)

const (
	damperSourceField = "damper_source_field"
	damperTargetField = "damper_target_field"
)

// Damper is a toy 1-D damping-equation solver standing in for
// original_source's Damper model.
type Damper struct {
	m       *mesh.LineMesh
	field   []float64 // damper_source_field, read by the wave's transfer
	forcing []float64 // damper_target_field, written by the wave's transfer
}

// NewDamper builds a Damper over numCells+1 equally spaced nodes between
// xMin and xMax, sharing the wave's domain partition.
func NewDamper(rank int, xMin, xMax float64, numCells int) *Damper {
	x := linspace(xMin, xMax, numCells+1)
	m := mesh.NewLineMesh(rank, x)
	field := make([]float64, len(x))
	forcing := make([]float64, len(x))
	m.SetField(damperSourceField, field)
	m.SetField(damperTargetField, forcing)
	return &Damper{m: m, field: field, forcing: forcing}
}

// Mesh exposes the adapter backing both the source and target side of
// the damper field transfer.
func (d *Damper) Mesh() *mesh.LineMesh { return d.m }

// Set implements transfer.TargetBuffer for the wave -> damper transfer.
func (d *Damper) Set(entity geom.EntityID, value geom.FieldValue) error {
	i, ok := d.m.VertexIndex(entity)
	if !ok {
		return unknownTarget(entity)
	}
	d.forcing[i] = value.Scalar()
	return nil
}

// Solve relaxes the damping field toward the wave's forcing field and
// commits the result back into the mesh's source field for the next
// transfer round. Unlike Wave.Solve, its residual never feeds the
// coupling loop's convergence check, matching cxx_main.cpp where only
// the wave solve's norm is reduced.
func (d *Damper) Solve() {
	next := make([]float64, len(d.field))
	for i := range d.field {
		next[i] = 0.5*d.field[i] + 0.5*d.forcing[i]
	}
	d.field = next
	d.m.SetField(damperSourceField, d.field)
}
