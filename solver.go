package main

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/exp/linsolve"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/mat"
)

// ErrNotConverged is returned when the iterative method stops before reaching
// its tolerance.
var ErrNotConverged = errors.New("iterative solve did not converge")

// Solver solves A·x = b for a fixed operator A.
type Solver interface {
	Solve(b []complex128) ([]complex128, error)
}

// NewSolver prepares a solver for a according to cfg. The direct method factors
// once here; later Solve calls only substitute.
func NewSolver(a *CSR, cfg SolverConfig) (Solver, error) {
	switch cfg.Method {
	case SolverLDL:
		now := time.Now()
		perm := EnvelopeOrdering(a)
		log.WithFields(log.Fields{
			"bandwidth": a.Bandwidth(perm),
			"rcm":       perm != nil,
		}).Debug("envelope ordering")

		f, err := FactorLDL(a, perm)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"dofs":     f.Dim(),
			"envelope": f.Size(),
			"elapsed":  time.Since(now),
		}).Info("factored Helmholtz operator")
		return f, nil
	case SolverGMRES:
		return &gmresSolver{
			a:       a,
			restart: cfg.Restart,
			tol:     cfg.Tolerance,
			maxIter: cfg.MaxIterations,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown solver method %q", ErrInvalidConfig, cfg.Method)
	}
}

// realEquivalent presents a complex matrix A = Ar + i·Ai to real Krylov methods
// as the 2n system [Ar −Ai; Ai Ar]. The transpose uses Aᵀ = A, which holds for
// the symmetric Helmholtz operator.
type realEquivalent struct {
	a *CSR
}

func (m *realEquivalent) MulVecTo(dst *mat.VecDense, trans bool, x mat.Vector) {
	n := m.a.Dim()
	xc := make([]complex128, n)
	for i := range n {
		xc[i] = complex(x.AtVec(i), x.AtVec(n+i))
	}
	if trans {
		for i := range xc {
			xc[i] = complex(real(xc[i]), -imag(xc[i]))
		}
	}

	yc := make([]complex128, n)
	m.a.MulVecTo(yc, xc)
	for i, y := range yc {
		if trans {
			y = complex(real(y), -imag(y))
		}
		dst.SetVec(i, real(y))
		dst.SetVec(n+i, imag(y))
	}
}

type gmresSolver struct {
	a       *CSR
	restart int
	tol     float64
	maxIter int
}

func (s *gmresSolver) Solve(b []complex128) ([]complex128, error) {
	n := s.a.Dim()
	if len(b) != n {
		return nil, fmt.Errorf("gmres: right-hand side of length %d for dimension %d", len(b), n)
	}

	rhs := mat.NewVecDense(2*n, nil)
	for i, v := range b {
		rhs.SetVec(i, real(v))
		rhs.SetVec(n+i, imag(v))
	}

	now := time.Now()
	result, err := linsolve.Iterative(&realEquivalent{a: s.a}, rhs, &linsolve.GMRES{Restart: min(s.restart, 2*n)}, &linsolve.Settings{
		Tolerance:     s.tol,
		MaxIterations: s.maxIter,
	})
	if err != nil {
		return nil, fmt.Errorf("gmres: %w: %v", ErrNotConverged, err)
	}

	x := make([]complex128, n)
	for i := range x {
		x[i] = complex(result.X.AtVec(i), result.X.AtVec(n+i))
	}
	log.WithFields(log.Fields{
		"dofs":    n,
		"elapsed": time.Since(now),
	}).Debug("gmres solve")
	return x, nil
}

// RelativeResidual is ‖A·x − b‖ / ‖b‖, or ‖A·x‖ when b vanishes.
func RelativeResidual(a *CSR, x, b []complex128) float64 {
	r := make([]complex128, len(b))
	a.MulVecTo(r, x)
	cmplxs.Sub(r, b)
	nb := cmplxs.Norm(b, 2)
	if nb == 0 {
		return cmplxs.Norm(r, 2)
	}
	return cmplxs.Norm(r, 2) / nb
}
