package main

import (
	"fmt"
	"time"

	"github.com/exascience/pargo/parallel"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// hexElement carries what a trilinear hexahedron needs at each quadrature point:
// the Jacobian determinant and the shape function gradients in global space.
type hexElement struct {
	djDet  [quadraturePoints]float64
	dfixyz [quadraturePoints][8][3]float64
}

func newHexElement(cube [8][3]float64) (*hexElement, error) {
	e := &hexElement{}
	for q := range quadraturePoints {
		dj := createDJ(cube, q)
		e.djDet[q] = mat.Det(dj)
		if e.djDet[q] <= 0 {
			return nil, fmt.Errorf("hexahedron %v: non-positive Jacobian %g at quadrature point %d", cube, e.djDet[q], q)
		}

		var inv mat.Dense
		if err := inv.Inverse(dj); err != nil {
			return nil, fmt.Errorf("hexahedron %v: %w", cube, err)
		}
		e.dfixyz[q] = createDFIXYZ(&inv, q)
	}
	return e, nil
}

// createDJ is the Jacobian of the reference-to-global map; row r holds the
// derivatives of (x, y, z) along reference direction r.
func createDJ(cube [8][3]float64, q int) *mat.Dense {
	dj := mat.NewDense(3, 3, nil)
	for r := range 3 {
		for c := range 3 {
			var sum float64
			for i, point := range cube {
				sum += point[c] * dfiabg[q][i][r]
			}
			dj.Set(r, c, sum)
		}
	}
	return dj
}

// createDFIXYZ solves DJ·∇φ = ∂φ/∂(α,β,γ) for every shape function.
func createDFIXYZ(inv *mat.Dense, q int) [8][3]float64 {
	var dfixyz [8][3]float64
	for i, d := range dfiabg[q] {
		for r := range 3 {
			dfixyz[i][r] = inv.At(r, 0)*d[0] + inv.At(r, 1)*d[1] + inv.At(r, 2)*d[2]
		}
	}
	return dfixyz
}

// stiffness is ∫ ∇φi·∇φj.
func (e *hexElement) stiffness() [8][8]float64 {
	var k [8][8]float64
	for q := range quadraturePoints {
		w := weights[q] * e.djDet[q]
		g := &e.dfixyz[q]
		for i := range 8 {
			for j := range 8 {
				k[i][j] += w * (g[i][0]*g[j][0] + g[i][1]*g[j][1] + g[i][2]*g[j][2])
			}
		}
	}
	return k
}

// mass is ∫ φi·φj.
func (e *hexElement) mass() [8][8]float64 {
	var m [8][8]float64
	for q := range quadraturePoints {
		w := weights[q] * e.djDet[q]
		for i := range 8 {
			for j := range 8 {
				m[i][j] += w * fiabg[q][i] * fiabg[q][j]
			}
		}
	}
	return m
}

// weightedMass is ∫ c·φi·φj with c the trilinear interpolant of the nodal
// values.
func (e *hexElement) weightedMass(c [8]complex128) [8][8]complex128 {
	var m [8][8]complex128
	for q := range quadraturePoints {
		var cq complex128
		for a := range 8 {
			cq += c[a] * complex(fiabg[q][a], 0)
		}
		if cq == 0 {
			continue
		}
		w := weights[q] * e.djDet[q]
		for i := range 8 {
			for j := range 8 {
				m[i][j] += cq * complex(w*fiabg[q][i]*fiabg[q][j], 0)
			}
		}
	}
	return m
}

// helmholtz is the element matrix of a(u,v) = ∫ ∇u·∇v − k0²·u·v − k_absorb·u·v.
func (e *hexElement) helmholtz(k0sq float64, kAbsorb [8]complex128) [8][8]complex128 {
	k := e.stiffness()
	m := e.mass()
	ka := e.weightedMass(kAbsorb)
	var a [8][8]complex128
	for i := range 8 {
		for j := range 8 {
			a[i][j] = complex(k[i][j]-k0sq*m[i][j], 0) - ka[i][j]
		}
	}
	return a
}

// FEM assembles the damped Helmholtz problem on a function space.
type FEM struct {
	space    *FunctionSpace
	elements []*hexElement
}

// NewFEM precomputes element geometry for every cell of the space's mesh.
func NewFEM(space *FunctionSpace) (*FEM, error) {
	mesh := space.Mesh()
	f := &FEM{
		space:    space,
		elements: make([]*hexElement, mesh.NumCells()),
	}

	errs := make([]error, mesh.NumCells())
	parallel.Range(0, mesh.NumCells(), 0, func(low, high int) {
		for c := low; c < high; c++ {
			f.elements[c], errs[c] = newHexElement(mesh.CellCoords(c))
		}
	})
	for c, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", c, err)
		}
	}
	return f, nil
}

// AssembleOperator builds the global matrix of the bilinear form for wavenumber
// k0 and absorbing-layer nodal field kAbsorb.
func (f *FEM) AssembleOperator(k0 float64, kAbsorb []complex128) (*CSR, error) {
	if len(kAbsorb) != f.space.Dim() {
		return nil, fmt.Errorf("assemble: absorber field of length %d for %d dofs", len(kAbsorb), f.space.Dim())
	}

	now := time.Now()
	cells := f.space.Mesh().Cells()
	a := NewCSRPattern(f.space.Dim(), cells)

	local := make([][8][8]complex128, len(cells))
	k0sq := k0 * k0
	parallel.Range(0, len(cells), 0, func(low, high int) {
		for c := low; c < high; c++ {
			var ka [8]complex128
			for i, v := range cells[c] {
				ka[i] = kAbsorb[v]
			}
			local[c] = f.elements[c].helmholtz(k0sq, ka)
		}
	})

	for c, cell := range cells {
		for i, vi := range cell {
			for j, vj := range cell {
				a.Add(vi, vj, local[c][i][j])
			}
		}
	}

	log.WithFields(log.Fields{
		"dofs":    a.Dim(),
		"nnz":     a.NNZ(),
		"elapsed": time.Since(now),
	}).Debug("assembled Helmholtz operator")
	return a, nil
}

// AssembleLoad builds the vector of L(v) = ∫ f·v for a nodal source field.
func (f *FEM) AssembleLoad(source []complex128) ([]complex128, error) {
	if len(source) != f.space.Dim() {
		return nil, fmt.Errorf("assemble: source field of length %d for %d dofs", len(source), f.space.Dim())
	}

	b := make([]complex128, len(source))
	for c, cell := range f.space.Mesh().Cells() {
		var s [8]complex128
		active := false
		for i, v := range cell {
			s[i] = source[v]
			active = active || s[i] != 0
		}
		if !active {
			continue
		}

		m := f.elements[c].mass()
		for i, vi := range cell {
			for j := range 8 {
				b[vi] += complex(m[i][j], 0) * s[j]
			}
		}
	}
	return b, nil
}
