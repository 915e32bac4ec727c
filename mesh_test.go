package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoxMesh(t *testing.T) {
	m, err := NewBoxMesh([3]float64{0, 0, 0}, [3]float64{4, 5, 3}, [3]int{4, 8, 3})
	require.NoError(t, err)

	assert.Equal(t, 5*9*4, m.NumVertices())
	assert.Equal(t, 4*8*3, m.NumCells())
	assert.Equal(t, [3]float64{1, 0.625, 1}, m.Step)
	assert.Equal(t, [3]float64{4, 5, 3}, m.Vertex(m.NumVertices()-1))

	for v := range m.NumVertices() {
		i, j, k := m.GridIndex(v)
		assert.Equal(t, v, m.VertexIndex(i, j, k))
	}
}

func TestNewBoxMeshRejectsEmpty(t *testing.T) {
	_, err := NewBoxMesh([3]float64{0, 0, 0}, [3]float64{1, 1, 1}, [3]int{1, 0, 1})
	assert.Error(t, err)
	_, err = NewBoxMesh([3]float64{0, 0, 0}, [3]float64{1, -1, 1}, [3]int{1, 1, 1})
	assert.Error(t, err)
}

func TestCellVertexOrder(t *testing.T) {
	m, err := NewCubeMesh(2, 1)
	require.NoError(t, err)

	x := m.CellCoords(0)
	for i, p := range localPoints3D {
		assert.Equal(t, p, x[i], "vertex %d", i)
	}
}

func TestNearest(t *testing.T) {
	m, err := NewCubeMesh(2, 4)
	require.NoError(t, err)

	assert.Equal(t, m.VertexIndex(2, 2, 2), m.Nearest([3]float64{0.1, -0.2, 0.24}))
	assert.Equal(t, m.VertexIndex(0, 4, 3), m.Nearest([3]float64{-5, 5, 0.6}))
	assert.Equal(t, m.VertexIndex(3, 1, 0), m.Nearest([3]float64{0.3, -0.6, -0.9}))
}

func TestNearestTiesAreMirrorSymmetric(t *testing.T) {
	even, err := NewCubeMesh(2, 4)
	require.NoError(t, err)
	assert.Equal(t, even.VertexIndex(1, 2, 2), even.Nearest([3]float64{-0.25, 0, 0}))
	assert.Equal(t, even.VertexIndex(3, 2, 2), even.Nearest([3]float64{0.25, 0, 0}))
	assert.Equal(t, even.VertexIndex(0, 2, 2), even.Nearest([3]float64{-0.75, 0, 0}))
	assert.Equal(t, even.VertexIndex(4, 2, 2), even.Nearest([3]float64{0.75, 0, 0}))

	odd, err := NewCubeMesh(3, 3)
	require.NoError(t, err)
	assert.Equal(t, odd.VertexIndex(0, 1, 1), odd.Nearest([3]float64{-1, -0.4, 0.4}))
	assert.Equal(t, odd.VertexIndex(3, 1, 2), odd.Nearest([3]float64{1, -0.4, 0.4}))

	for _, x := range []float64{0.1, 0.25, 0.5, 0.6, 0.75, 0.9} {
		i, _, _ := even.GridIndex(even.Nearest([3]float64{x, 0, 0}))
		mi, _, _ := even.GridIndex(even.Nearest([3]float64{-x, 0, 0}))
		assert.Equal(t, 4-i, mi, "x=%v", x)
	}
}

func TestLocateDof(t *testing.T) {
	m, err := NewCubeMesh(2, 4)
	require.NoError(t, err)
	s := NewFunctionSpace(m)

	dof, err := s.LocateDof([3]float64{0.45, 0.05, 0}, 0.1)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{0.5, 0, 0}, s.DofCoord(dof))

	_, err = s.LocateDof([3]float64{0.25, 0, 0}, 0.1)
	assert.ErrorIs(t, err, ErrNoDof)
}

func TestInterpolate(t *testing.T) {
	m, err := NewCubeMesh(2, 3)
	require.NoError(t, err)
	s := NewFunctionSpace(m)

	u := s.Interpolate(func(x [3]float64) complex128 { return complex(x[0], x[1]*x[2]) })
	require.Len(t, u, s.Dim())
	for v, val := range u {
		x := s.DofCoord(v)
		assert.Equal(t, complex(x[0], x[1]*x[2]), val)
	}
}
