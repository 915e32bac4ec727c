package main

import (
	"fmt"
	"math"
)

// Mesh is a uniform hexahedral discretization of an axis-aligned box. Vertices
// are numbered x fastest, then y, then z.
type Mesh struct {
	Min   [3]float64
	Max   [3]float64
	Split [3]int     // cells per axis
	Step  [3]float64 // cell edge per axis

	akt [][3]float64 // vertex coordinates
	nt  [][8]int     // cell vertex indexes, reference hexahedron order
}

// NewBoxMesh splits [lo, hi] into split[a] cells along each axis a.
func NewBoxMesh(lo, hi [3]float64, split [3]int) (*Mesh, error) {
	m := &Mesh{Min: lo, Max: hi, Split: split}
	for a := range 3 {
		if split[a] < 1 {
			return nil, fmt.Errorf("mesh: %d cells along axis %d", split[a], a)
		}
		if hi[a] <= lo[a] {
			return nil, fmt.Errorf("mesh: empty extent [%v, %v] along axis %d", lo[a], hi[a], a)
		}
		m.Step[a] = (hi[a] - lo[a]) / float64(split[a])
	}

	m.fillVertices()
	m.fillCells()
	return m, nil
}

// NewCubeMesh builds the mesh of a cube of the given edge centered at the origin.
func NewCubeMesh(edge float64, cells int) (*Mesh, error) {
	h := edge / 2
	return NewBoxMesh([3]float64{-h, -h, -h}, [3]float64{h, h, h}, [3]int{cells, cells, cells})
}

func (m *Mesh) fillVertices() {
	nx, ny, nz := m.Split[0]+1, m.Split[1]+1, m.Split[2]+1
	m.akt = make([][3]float64, 0, nx*ny*nz)
	for k := range nz {
		for j := range ny {
			for i := range nx {
				m.akt = append(m.akt, [3]float64{
					m.coord(0, i),
					m.coord(1, j),
					m.coord(2, k),
				})
			}
		}
	}
}

// coord places the last vertex exactly on Max so the box is closed without
// rounding drift.
func (m *Mesh) coord(axis, i int) float64 {
	if i == m.Split[axis] {
		return m.Max[axis]
	}
	return m.Min[axis] + float64(i)*m.Step[axis]
}

func (m *Mesh) fillCells() {
	m.nt = make([][8]int, 0, m.Split[0]*m.Split[1]*m.Split[2])
	for k := range m.Split[2] {
		for j := range m.Split[1] {
			for i := range m.Split[0] {
				var cell [8]int
				for v, p := range localPoints3D {
					cell[v] = m.VertexIndex(i+int(p[0]+1)/2, j+int(p[1]+1)/2, k+int(p[2]+1)/2)
				}
				m.nt = append(m.nt, cell)
			}
		}
	}
}

// VertexIndex maps grid indexes to the global vertex number.
func (m *Mesh) VertexIndex(i, j, k int) int {
	nx, ny := m.Split[0]+1, m.Split[1]+1
	return i + nx*(j+ny*k)
}

// GridIndex is the inverse of VertexIndex.
func (m *Mesh) GridIndex(v int) (i, j, k int) {
	nx, ny := m.Split[0]+1, m.Split[1]+1
	return v % nx, (v / nx) % ny, v / (nx * ny)
}

func (m *Mesh) NumVertices() int { return len(m.akt) }

func (m *Mesh) NumCells() int { return len(m.nt) }

func (m *Mesh) Vertex(v int) [3]float64 { return m.akt[v] }

func (m *Mesh) Cell(c int) [8]int { return m.nt[c] }

func (m *Mesh) Vertices() [][3]float64 { return m.akt }

func (m *Mesh) Cells() [][8]int { return m.nt }

// CellCoords gathers the vertex coordinates of cell c.
func (m *Mesh) CellCoords(c int) [8][3]float64 {
	var x [8][3]float64
	for i, v := range m.nt[c] {
		x[i] = m.akt[v]
	}
	return x
}

// tieTolerance is how close, in cells, a point must be to a midpoint between
// vertices to count as a tie.
const tieTolerance = 1e-9

// Nearest returns the vertex closest to p, clamped to the box. Positions are
// measured from the box center and ties go to the vertex farther from it, so
// mirror-image points resolve to mirror-image vertices.
func (m *Mesh) Nearest(p [3]float64) int {
	var idx [3]int
	for a := range 3 {
		center := float64(m.Split[a]) / 2
		t := center + (p[a]-(m.Min[a]+m.Max[a])/2)/m.Step[a]
		lo := math.Floor(t)
		i := int(lo)
		switch frac := t - lo; {
		case math.Abs(frac-0.5) <= tieTolerance:
			if lo+0.5 >= center {
				i++
			}
		case frac > 0.5:
			i++
		}
		idx[a] = min(max(i, 0), m.Split[a])
	}
	return m.VertexIndex(idx[0], idx[1], idx[2])
}
