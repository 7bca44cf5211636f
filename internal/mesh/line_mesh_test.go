package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transfermesh/dtk/pkg/geom"
)

func newTestLineMesh() *LineMesh {
	m := NewLineMesh(0, []float64{0, 1, 2, 3})
	m.SetField("temperature", []float64{10, 20, 30, 40})
	return m
}

func TestLineMesh_LocalEntities(t *testing.T) {
	m := newTestLineMesh()
	assert.Len(t, m.LocalEntities(geom.DimVertex), 4)
	assert.Len(t, m.LocalEntities(geom.DimEdge), 3)
	assert.Nil(t, m.LocalEntities(geom.DimFace))
}

func TestLineMesh_BoundingBoxes(t *testing.T) {
	m := newTestLineMesh()
	ids, boxes, err := m.BoundingBoxes(geom.DimEdge)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	require.Len(t, boxes, 3)

	box, err := m.BoundingBox(ids[0])
	require.NoError(t, err)
	assert.Equal(t, box, boxes[0])
	assert.Equal(t, 0.0, boxes[0].Min[0])
	assert.Equal(t, 1.0, boxes[0].Max[0])
}

func TestLineMesh_CellContains(t *testing.T) {
	m := newTestLineMesh()
	cellID := m.cellID(1) // segment [1, 2]

	found, ref, err := m.CellContains(cellID, geom.NewPoint2D(1.5, 0), 1e-9)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, ref, 1)
	assert.InDelta(t, 0.0, ref[0], 1e-9)

	found, _, err = m.CellContains(cellID, geom.NewPoint2D(5, 0), 1e-9)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLineMesh_BasisEvaluate(t *testing.T) {
	m := newTestLineMesh()
	cellID := m.cellID(0)

	weights, err := m.BasisEvaluate(cellID, []float64{0})
	require.NoError(t, err)
	require.Len(t, weights, 2)
	assert.InDelta(t, 0.5, weights[0], 1e-9)
	assert.InDelta(t, 0.5, weights[1], 1e-9)

	_, err = m.BasisEvaluate(cellID, []float64{0, 0})
	assert.Error(t, err)
}

func TestLineMesh_CellVerticesAndFieldValue(t *testing.T) {
	m := newTestLineMesh()
	cellID := m.cellID(1) // between node 1 (x=1) and node 2 (x=2)

	verts, err := m.CellVertices(cellID)
	require.NoError(t, err)
	require.Len(t, verts, 2)

	left, err := m.FieldValue("temperature", verts[0].ID)
	require.NoError(t, err)
	right, err := m.FieldValue("temperature", verts[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, left.Scalar())
	assert.Equal(t, 30.0, right.Scalar())

	_, err = m.FieldValue("pressure", verts[0].ID)
	assert.Error(t, err)
}

func TestLineMesh_UnknownEntity(t *testing.T) {
	m := newTestLineMesh()
	_, err := m.BoundingBox(geom.EntityID(999999))
	assert.Error(t, err)
}
