// Package mesh defines the mesh adapter interface consumed by the core
// transfer engine (spec.md §6.1) and provides small in-memory reference
// adapters used by tests and by internal/coupler's WaveDamper demo. No
// assumption is made anywhere in this package's consumers about storage
// layout — every access to mesh geometry or field data goes through the
// Mesh interface.
package mesh

import (
	"github.com/transfermesh/dtk/pkg/geom"
)

// Mesh is the adapter interface of spec.md §6.1, consumed by
// internal/transfer and internal/rendezvous. An adapter need not expose
// anything about its own storage; every access is one of these seven calls.
type Mesh interface {
	// LocalEntities returns this rank's entity ids of the given
	// topological dimension, in adapter-defined but stable order.
	LocalEntities(dim geom.Dim) []geom.EntityID

	// BoundingBox returns the bounding box of a single entity.
	BoundingBox(id geom.EntityID) (geom.BoundingBox, error)

	// BoundingBoxes is the batch form of BoundingBox, computing every
	// box for dim in one pass (SPEC_FULL.md §3.2, grounded in
	// DTK_MoabHelpers.hpp's Range-at-a-time box extraction). Adapters
	// that can batch should prefer this over repeated BoundingBox calls;
	// the ids slice and the boxes slice are parallel and the same
	// length.
	BoundingBoxes(dim geom.Dim) (ids []geom.EntityID, boxes []geom.BoundingBox, err error)

	// CellContains reports whether point lies within entity id (widened
	// by tol), and if so returns the reference coordinates at which
	// BasisEvaluate should be evaluated.
	CellContains(id geom.EntityID, point geom.Point, tol float64) (found bool, referenceCoords []float64, err error)

	// BasisEvaluate returns the interpolation weights of entity id's
	// basis functions at referenceCoords, one weight per vertex in the
	// order CellVertices returns them.
	BasisEvaluate(id geom.EntityID, referenceCoords []float64) ([]float64, error)

	// CellVertices returns the vertex entities of a cell, in the order
	// BasisEvaluate's weights correspond to. This is the topology link
	// spec.md §6.1 leaves implicit: a cell-local basis weight is
	// meaningless without knowing which vertex-local field sample it
	// multiplies.
	CellVertices(id geom.EntityID) ([]geom.Entity, error)

	// FieldValue returns the named field's sample at entity id.
	FieldValue(fieldName string, entity geom.EntityID) (geom.FieldValue, error)
}
