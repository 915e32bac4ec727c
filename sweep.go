package main

import (
	"fmt"
	"math/cmplx"
	"time"

	log "github.com/sirupsen/logrus"
)

// SnapshotWriter receives the mesh once and then one named field per step.
type SnapshotWriter interface {
	WriteMesh(m *Mesh) error
	WriteFunction(name string, u []complex128, t float64) error
}

// Experiment holds everything a steering sweep shares across angles: the mesh,
// the function space, the absorber field and the factored operator.
type Experiment struct {
	cfg      Config
	mesh     *Mesh
	space    *FunctionSpace
	fem      *FEM
	array    PhasedArray
	absorber Absorber
	kAbsorb  []complex128
	operator *CSR
	solver   Solver
}

// Solution is the pressure field of one steering angle.
type Solution struct {
	Angle      float64
	Excitation *Excitation
	U          []complex128
	Residual   float64
	Duration   time.Duration
}

// NewExperiment meshes the domain, assembles the damped Helmholtz operator and
// prepares its solver.
func NewExperiment(cfg Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mesh, err := NewCubeMesh(cfg.DomainSize(), cfg.Domain.Cells)
	if err != nil {
		return nil, err
	}
	e := &Experiment{
		cfg:      cfg,
		mesh:     mesh,
		space:    NewFunctionSpace(mesh),
		array:    NewPhasedArray(cfg),
		absorber: NewAbsorber(cfg),
	}
	log.WithFields(log.Fields{
		"cells":    mesh.NumCells(),
		"vertices": mesh.NumVertices(),
		"h":        mesh.Step[0],
	}).Info("built box mesh")

	e.fem, err = NewFEM(e.space)
	if err != nil {
		return nil, err
	}
	e.kAbsorb = e.space.Interpolate(e.absorber.Eval)

	e.operator, err = e.fem.AssembleOperator(cfg.Wavenumber(), e.kAbsorb)
	if err != nil {
		return nil, err
	}
	e.solver, err = NewSolver(e.operator, cfg.Solver)
	if err != nil {
		return nil, fmt.Errorf("prepare %s solver: %w", cfg.Solver.Method, err)
	}
	return e, nil
}

func (e *Experiment) Mesh() *Mesh { return e.mesh }

func (e *Experiment) Space() *FunctionSpace { return e.space }

// AbsorberField is the absorbing-layer correction interpolated at the dofs.
func (e *Experiment) AbsorberField() []complex128 { return e.kAbsorb }

// Steer solves the field radiated by the array steered to angle degrees.
func (e *Experiment) Steer(angle float64) (*Solution, error) {
	now := time.Now()
	ex, err := e.array.Excite(e.space, angle)
	if err != nil {
		return nil, fmt.Errorf("steering %v deg: %w", angle, err)
	}
	log.WithFields(log.Fields{
		"angle":   angle,
		"dPhi":    ex.DPhi,
		"sources": ex.NonZero(),
	}).Debug("applied point sources")

	b, err := e.fem.AssembleLoad(ex.Field)
	if err != nil {
		return nil, fmt.Errorf("steering %v deg: %w", angle, err)
	}
	u, err := e.solver.Solve(b)
	if err != nil {
		return nil, fmt.Errorf("steering %v deg: %w", angle, err)
	}

	return &Solution{
		Angle:      angle,
		Excitation: ex,
		U:          u,
		Residual:   RelativeResidual(e.operator, u, b),
		Duration:   time.Since(now),
	}, nil
}

// Run writes the mesh once and then the solution of every steering angle, in
// sweep order, to each writer.
func (e *Experiment) Run(writers ...SnapshotWriter) ([]*Solution, error) {
	for _, w := range writers {
		if err := w.WriteMesh(e.mesh); err != nil {
			return nil, err
		}
	}

	var solutions []*Solution
	for _, angle := range e.cfg.SteeringAngles() {
		log.WithField("angle", angle).Info("solving for steering angle")
		s, err := e.Steer(angle)
		if err != nil {
			return solutions, err
		}
		for _, w := range writers {
			if err := w.WriteFunction("u", s.U, angle); err != nil {
				return solutions, fmt.Errorf("write steering %v deg: %w", angle, err)
			}
		}
		log.WithFields(log.Fields{
			"angle":    angle,
			"residual": s.Residual,
			"peak":     peak(s.U),
			"elapsed":  s.Duration,
		}).Info("solved")
		solutions = append(solutions, s)
	}
	return solutions, nil
}

func peak(u []complex128) float64 {
	m := 0.0
	for _, v := range u {
		m = max(m, cmplx.Abs(v))
	}
	return m
}
