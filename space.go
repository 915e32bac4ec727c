package main

import (
	"errors"
	"fmt"
	"math"

	"github.com/exascience/pargo/parallel"
)

// ErrNoDof is returned when no degree of freedom lies within the lookup
// tolerance of a requested point.
var ErrNoDof = errors.New("no degree of freedom within tolerance")

// FunctionSpace is the continuous trilinear Lagrange space over a Mesh. Its dofs
// coincide with the mesh vertices.
type FunctionSpace struct {
	mesh *Mesh
}

func NewFunctionSpace(mesh *Mesh) *FunctionSpace {
	return &FunctionSpace{mesh: mesh}
}

func (s *FunctionSpace) Mesh() *Mesh { return s.mesh }

func (s *FunctionSpace) Dim() int { return s.mesh.NumVertices() }

func (s *FunctionSpace) DofCoord(dof int) [3]float64 { return s.mesh.Vertex(dof) }

// Interpolate evaluates f at every dof.
func (s *FunctionSpace) Interpolate(f func(x [3]float64) complex128) []complex128 {
	u := make([]complex128, s.Dim())
	vertices := s.mesh.Vertices()
	parallel.Range(0, len(u), 0, func(low, high int) {
		for i := low; i < high; i++ {
			u[i] = f(vertices[i])
		}
	})
	return u
}

// LocateDof returns the dof nearest to p, provided it lies within tol of p along
// every axis.
func (s *FunctionSpace) LocateDof(p [3]float64, tol float64) (int, error) {
	dof := s.mesh.Nearest(p)
	x := s.mesh.Vertex(dof)
	for a := range 3 {
		if math.Abs(x[a]-p[a]) > tol {
			return -1, fmt.Errorf("%w: nearest dof %d at %v is %.4g from %v along axis %d",
				ErrNoDof, dof, x, math.Abs(x[a]-p[a]), p, a)
		}
	}
	return dof, nil
}
