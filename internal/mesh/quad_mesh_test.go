package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transfermesh/dtk/pkg/geom"
)

func newTestQuadMesh() *QuadMesh {
	m := NewQuadMesh(0, []float64{0, 1, 2}, []float64{0, 1})
	// 3x2 nodes, row-major: (0,0)=1 (1,0)=2 (2,0)=3 (0,1)=4 (1,1)=5 (2,1)=6
	m.SetField("pressure", []float64{1, 2, 3, 4, 5, 6})
	return m
}

func TestQuadMesh_LocalEntities(t *testing.T) {
	m := newTestQuadMesh()
	assert.Len(t, m.LocalEntities(geom.DimVertex), 6)
	assert.Len(t, m.LocalEntities(geom.DimFace), 2)
	assert.Nil(t, m.LocalEntities(geom.DimEdge))
}

func TestQuadMesh_CellContainsAndBasisEvaluate(t *testing.T) {
	m := newTestQuadMesh()
	cellID := m.cellID(0, 0) // [0,1] x [0,1]

	found, ref, err := m.CellContains(cellID, geom.NewPoint2D(0.5, 0.5), 1e-9)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, ref, 2)
	assert.InDelta(t, 0, ref[0], 1e-9)
	assert.InDelta(t, 0, ref[1], 1e-9)

	weights, err := m.BasisEvaluate(cellID, ref)
	require.NoError(t, err)
	require.Len(t, weights, 4)
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	found, _, err = m.CellContains(cellID, geom.NewPoint2D(10, 10), 1e-9)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestQuadMesh_CellVerticesAndFieldValue(t *testing.T) {
	m := newTestQuadMesh()
	cellID := m.cellID(1, 0) // [1,2] x [0,1]

	verts, err := m.CellVertices(cellID)
	require.NoError(t, err)
	require.Len(t, verts, 4)

	values := make([]float64, 4)
	for i, v := range verts {
		fv, err := m.FieldValue("pressure", v.ID)
		require.NoError(t, err)
		values[i] = fv.Scalar()
	}
	// corners in order (1,0)=2, (2,0)=3, (2,1)=6, (1,1)=5
	assert.Equal(t, []float64{2, 3, 6, 5}, values)
}

func TestQuadMesh_BoundingBoxes(t *testing.T) {
	m := newTestQuadMesh()
	ids, boxes, err := m.BoundingBoxes(geom.DimFace)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.Len(t, boxes, 2)
}

func TestQuadMesh_UnknownEntity(t *testing.T) {
	m := newTestQuadMesh()
	_, err := m.BasisEvaluate(geom.EntityID(42), []float64{0, 0})
	assert.Error(t, err)
}
