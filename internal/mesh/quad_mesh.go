package mesh

import (
	"github.com/transfermesh/dtk/pkg/geom"
)

// quadNodeIDBase and quadCellIDBase mirror LineMesh's EntityID
// partitioning for a 2-D structured grid.
const (
	quadNodeIDBase = geom.EntityID(1)
	quadCellIDBase = geom.EntityID(1) << 32
)

// QuadMesh is a 2-D reference adapter: an nx-by-ny structured grid of
// axis-aligned rectangular cells, row-major node and cell numbering. It
// exists for tests and for "quad" mesh description files.
type QuadMesh struct {
	rank   int
	nx, ny int       // node counts; cell counts are nx-1, ny-1
	x, y   []float64 // node coordinates along each axis
	fields map[string][]float64
}

// NewQuadMesh builds a QuadMesh over the tensor-product grid of x times y
// node coordinates, owned by rank.
func NewQuadMesh(rank int, x, y []float64) *QuadMesh {
	return &QuadMesh{
		rank: rank, nx: len(x), ny: len(y),
		x: append([]float64(nil), x...), y: append([]float64(nil), y...),
		fields: make(map[string][]float64),
	}
}

// SetField assigns a per-node field sample array in row-major (y-major,
// x-minor) order; len(values) must equal nx*ny.
func (m *QuadMesh) SetField(name string, values []float64) {
	m.fields[name] = append([]float64(nil), values...)
}

func (m *QuadMesh) numNodes() int { return m.nx * m.ny }
func (m *QuadMesh) numCells() int {
	if m.nx < 2 || m.ny < 2 {
		return 0
	}
	return (m.nx - 1) * (m.ny - 1)
}

func (m *QuadMesh) nodeLocal(i, j int) int  { return j*m.nx + i }
func (m *QuadMesh) cellLocal(i, j int) int  { return j*(m.nx-1) + i }
func (m *QuadMesh) nodeID(i, j int) geom.EntityID {
	return quadNodeIDBase + geom.EntityID(m.nodeLocal(i, j))
}
func (m *QuadMesh) cellID(i, j int) geom.EntityID {
	return quadCellIDBase + geom.EntityID(m.cellLocal(i, j))
}

func (m *QuadMesh) nodeIJ(id geom.EntityID) (int, int, bool) {
	if id < quadNodeIDBase || id >= quadCellIDBase {
		return 0, 0, false
	}
	local := int(id - quadNodeIDBase)
	if local < 0 || local >= m.numNodes() {
		return 0, 0, false
	}
	return local % m.nx, local / m.nx, true
}

func (m *QuadMesh) cellIJ(id geom.EntityID) (int, int, bool) {
	if id < quadCellIDBase {
		return 0, 0, false
	}
	local := int(id - quadCellIDBase)
	if local < 0 || local >= m.numCells() {
		return 0, 0, false
	}
	ncx := m.nx - 1
	return local % ncx, local / ncx, true
}

// LocalEntities implements Mesh.
func (m *QuadMesh) LocalEntities(dim geom.Dim) []geom.EntityID {
	switch dim {
	case geom.DimVertex:
		ids := make([]geom.EntityID, 0, m.numNodes())
		for j := 0; j < m.ny; j++ {
			for i := 0; i < m.nx; i++ {
				ids = append(ids, m.nodeID(i, j))
			}
		}
		return ids
	case geom.DimFace:
		ids := make([]geom.EntityID, 0, m.numCells())
		for j := 0; j < m.ny-1; j++ {
			for i := 0; i < m.nx-1; i++ {
				ids = append(ids, m.cellID(i, j))
			}
		}
		return ids
	default:
		return nil
	}
}

// BoundingBox implements Mesh.
func (m *QuadMesh) BoundingBox(id geom.EntityID) (geom.BoundingBox, error) {
	if i, j, ok := m.nodeIJ(id); ok {
		return geom.BoxFromPoint(geom.NewPoint2D(m.x[i], m.y[j])), nil
	}
	if i, j, ok := m.cellIJ(id); ok {
		return geom.NewBox(geom.NewPoint2D(m.x[i], m.y[j]), geom.NewPoint2D(m.x[i+1], m.y[j+1])), nil
	}
	return geom.BoundingBox{}, unknownEntity(id)
}

// BoundingBoxes implements Mesh's batch box extraction.
func (m *QuadMesh) BoundingBoxes(dim geom.Dim) ([]geom.EntityID, []geom.BoundingBox, error) {
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

// CellContains implements Mesh, mapping a point into the standard
// [-1, 1] x [-1, 1] reference square.
func (m *QuadMesh) CellContains(id geom.EntityID, point geom.Point, tol float64) (bool, []float64, error) {
	i, j, ok := m.cellIJ(id)
	if !ok {
		return false, nil, unknownEntity(id)
	}
	x0, x1 := m.x[i], m.x[i+1]
	y0, y1 := m.y[j], m.y[j+1]
	if point.X() < x0-tol || point.X() > x1+tol || point.Y() < y0-tol || point.Y() > y1+tol {
		return false, nil, nil
	}
	xi := clamp(2*(point.X()-x0)/(x1-x0)-1, -1, 1)
	eta := clamp(2*(point.Y()-y0)/(y1-y0)-1, -1, 1)
	return true, []float64{xi, eta}, nil
}

// BasisEvaluate implements Mesh's bilinear quad element, one weight per
// corner in the order CellVertices returns them: (x0,y0), (x1,y0),
// (x1,y1), (x0,y1).
func (m *QuadMesh) BasisEvaluate(id geom.EntityID, referenceCoords []float64) ([]float64, error) {
	if _, _, ok := m.cellIJ(id); !ok {
		return nil, unknownEntity(id)
	}
	if len(referenceCoords) != 2 {
		return nil, badReferenceCoords(2, len(referenceCoords))
	}
	xi, eta := referenceCoords[0], referenceCoords[1]
	return []float64{
		0.25 * (1 - xi) * (1 - eta),
		0.25 * (1 + xi) * (1 - eta),
		0.25 * (1 + xi) * (1 + eta),
		0.25 * (1 - xi) * (1 + eta),
	}, nil
}

// CellVertices implements Mesh.
func (m *QuadMesh) CellVertices(id geom.EntityID) ([]geom.Entity, error) {
	i, j, ok := m.cellIJ(id)
	if !ok {
		return nil, unknownEntity(id)
	}
	corners := [4][2]int{{i, j}, {i + 1, j}, {i + 1, j + 1}, {i, j + 1}}
	out := make([]geom.Entity, 4)
	for k, c := range corners {
		out[k] = geom.Entity{
			ID: m.nodeID(c[0], c[1]), Dim: geom.DimVertex, Rank: m.rank,
			Local: m.nodeLocal(c[0], c[1]),
			Box:   geom.BoxFromPoint(geom.NewPoint2D(m.x[c[0]], m.y[c[1]])),
		}
	}
	return out, nil
}

// FieldValue implements Mesh for a per-node field sample.
func (m *QuadMesh) FieldValue(fieldName string, entity geom.EntityID) (geom.FieldValue, error) {
	values, ok := m.fields[fieldName]
	if !ok {
		return geom.FieldValue{}, unknownField(fieldName)
	}
	i, j, ok := m.nodeIJ(entity)
	if !ok {
		return geom.FieldValue{}, unknownEntity(entity)
	}
	return geom.NewScalar(values[m.nodeLocal(i, j)]), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
