package mesh

import (
	"github.com/transfermesh/dtk/pkg/geom"
)

// nodeIDBase and cellIDBase partition EntityID space so a single LineMesh
// can answer LocalEntities for both dimensions without a lookup table:
// node i -> nodeIDBase+i, cell i -> cellIDBase+i.
const (
	nodeIDBase = geom.EntityID(1)
	cellIDBase = geom.EntityID(1) << 32
)

// LineMesh is a 1-D reference adapter: N nodes at strictly increasing x
// coordinates, N-1 linear (two-node) cells between consecutive nodes.
// It exists for tests and for internal/coupler's WaveDamper demo, not as
// production geometry.
type LineMesh struct {
	rank   int
	x      []float64
	fields map[string][]float64 // per-node field samples, keyed by field name
}

// NewLineMesh builds a LineMesh over the given strictly increasing node
// x-coordinates, owned by rank.
func NewLineMesh(rank int, x []float64) *LineMesh {
	return &LineMesh{rank: rank, x: append([]float64(nil), x...), fields: make(map[string][]float64)}
}

// SetField assigns a per-node field sample array; len(values) must equal
// the number of nodes.
func (m *LineMesh) SetField(name string, values []float64) {
	m.fields[name] = append([]float64(nil), values...)
}

func (m *LineMesh) numNodes() int { return len(m.x) }
func (m *LineMesh) numCells() int {
	if len(m.x) == 0 {
		return 0
	}
	return len(m.x) - 1
}

func (m *LineMesh) nodeID(i int) geom.EntityID { return nodeIDBase + geom.EntityID(i) }
func (m *LineMesh) cellID(i int) geom.EntityID { return cellIDBase + geom.EntityID(i) }

// VertexIndex exposes the local node index backing a vertex EntityID, for
// callers (internal/coupler's TargetBuffer adapters) that need to write
// Apply's output back into a plain array rather than a map.
func (m *LineMesh) VertexIndex(id geom.EntityID) (int, bool) {
	return m.nodeIndex(id)
}

func (m *LineMesh) nodeIndex(id geom.EntityID) (int, bool) {
	if id < nodeIDBase || id >= cellIDBase {
		return -1, false
	}
	i := int(id - nodeIDBase)
	if i < 0 || i >= m.numNodes() {
		return -1, false
	}
	return i, true
}

func (m *LineMesh) cellIndex(id geom.EntityID) (int, bool) {
	if id < cellIDBase {
		return -1, false
	}
	i := int(id - cellIDBase)
	if i < 0 || i >= m.numCells() {
		return -1, false
	}
	return i, true
}

// LocalEntities implements Mesh.
func (m *LineMesh) LocalEntities(dim geom.Dim) []geom.EntityID {
	switch dim {
	case geom.DimVertex:
		ids := make([]geom.EntityID, m.numNodes())
		for i := range ids {
			ids[i] = m.nodeID(i)
		}
		return ids
	case geom.DimEdge:
		ids := make([]geom.EntityID, m.numCells())
		for i := range ids {
			ids[i] = m.cellID(i)
		}
		return ids
	default:
		return nil
	}
}

// BoundingBox implements Mesh.
func (m *LineMesh) BoundingBox(id geom.EntityID) (geom.BoundingBox, error) {
	if i, ok := m.nodeIndex(id); ok {
		p := geom.NewPoint2D(m.x[i], 0)
		return geom.BoxFromPoint(p), nil
	}
	if i, ok := m.cellIndex(id); ok {
		lo, hi := m.x[i], m.x[i+1]
		return geom.NewBox(geom.NewPoint2D(lo, 0), geom.NewPoint2D(hi, 0)), nil
	}
	return geom.BoundingBox{}, unknownEntity(id)
}

// BoundingBoxes implements Mesh's batch box extraction.
func (m *LineMesh) BoundingBoxes(dim geom.Dim) ([]geom.EntityID, []geom.BoundingBox, error) {
	ids := m.LocalEntities(dim)
	boxes := make([]geom.BoundingBox, len(ids))
	for i, id := range ids {
		b, err := m.BoundingBox(id)
		if err != nil {
			return nil, nil, err
		}
		boxes[i] = b
	}
	return ids, boxes, nil
}

// CellContains implements Mesh, mapping an x-coordinate into the
// standard [-1, 1] reference interval.
func (m *LineMesh) CellContains(id geom.EntityID, point geom.Point, tol float64) (bool, []float64, error) {
	i, ok := m.cellIndex(id)
	if !ok {
		return false, nil, unknownEntity(id)
	}
	lo, hi := m.x[i], m.x[i+1]
	if point.X() < lo-tol || point.X() > hi+tol {
		return false, nil, nil
	}
	xi := 2*(point.X()-lo)/(hi-lo) - 1
	if xi < -1 {
		xi = -1
	}
	if xi > 1 {
		xi = 1
	}
	return true, []float64{xi}, nil
}

// BasisEvaluate implements Mesh's linear two-node element: N0=(1-xi)/2,
// N1=(1+xi)/2, matching CellVertices' [left, right] order.
func (m *LineMesh) BasisEvaluate(id geom.EntityID, referenceCoords []float64) ([]float64, error) {
	if _, ok := m.cellIndex(id); !ok {
		return nil, unknownEntity(id)
	}
	if len(referenceCoords) != 1 {
		return nil, badReferenceCoords(1, len(referenceCoords))
	}
	xi := referenceCoords[0]
	return []float64{(1 - xi) / 2, (1 + xi) / 2}, nil
}

// CellVertices implements Mesh.
func (m *LineMesh) CellVertices(id geom.EntityID) ([]geom.Entity, error) {
	i, ok := m.cellIndex(id)
	if !ok {
		return nil, unknownEntity(id)
	}
	left := geom.Entity{ID: m.nodeID(i), Dim: geom.DimVertex, Rank: m.rank, Local: i, Box: geom.BoxFromPoint(geom.NewPoint2D(m.x[i], 0))}
	right := geom.Entity{ID: m.nodeID(i + 1), Dim: geom.DimVertex, Rank: m.rank, Local: i + 1, Box: geom.BoxFromPoint(geom.NewPoint2D(m.x[i+1], 0))}
	return []geom.Entity{left, right}, nil
}

// FieldValue implements Mesh for a per-node field sample.
func (m *LineMesh) FieldValue(fieldName string, entity geom.EntityID) (geom.FieldValue, error) {
	values, ok := m.fields[fieldName]
	if !ok {
		return geom.FieldValue{}, unknownField(fieldName)
	}
	i, ok := m.nodeIndex(entity)
	if !ok {
		return geom.FieldValue{}, unknownEntity(entity)
	}
	return geom.NewScalar(values[i]), nil
}
