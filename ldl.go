package main

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// ErrSingular is returned when factorization meets a (numerically) zero pivot.
var ErrSingular = errors.New("matrix is singular to working precision")

// pivotTolerance is relative to the largest diagonal entry of the input.
const pivotTolerance = 1e-13

// LDL is the envelope (skyline) factorization A = L·D·Lᵀ of a complex symmetric
// matrix. No conjugation is involved; Helmholtz operators with complex
// absorption are symmetric, not Hermitian. Rows are stored from their first
// non-zero column up to and including the diagonal, which holds D.
type LDL struct {
	n     int
	perm  []int // perm[new] = old
	first []int // first stored column of each row
	start []int // offset of each row in vals
	vals  []complex128
}

// FactorLDL factors a under the row/column ordering perm (nil keeps the natural
// order). Only the lower triangle of a is read.
func FactorLDL(a *CSR, perm []int) (*LDL, error) {
	n := a.Dim()
	if perm == nil {
		perm = make([]int, n)
		for i := range perm {
			perm[i] = i
		}
	}
	if len(perm) != n {
		return nil, fmt.Errorf("ldl: permutation of length %d for a %dx%d matrix", len(perm), n, n)
	}
	iperm := invertPermutation(perm, n)

	f := &LDL{
		n:     n,
		perm:  perm,
		first: make([]int, n),
		start: make([]int, n+1),
	}
	for i := range n {
		f.first[i] = i
		cols, _ := a.Row(perm[i])
		for _, c := range cols {
			f.first[i] = min(f.first[i], iperm[c])
		}
		f.start[i+1] = f.start[i] + i - f.first[i] + 1
	}
	f.vals = make([]complex128, f.start[n])

	scale := 0.0
	for i := range n {
		cols, vals := a.Row(perm[i])
		for k, c := range cols {
			if j := iperm[c]; j <= i {
				f.vals[f.start[i]+j-f.first[i]] = vals[k]
			}
		}
		scale = math.Max(scale, cmplx.Abs(f.diag(i)))
	}
	if scale == 0 {
		return nil, fmt.Errorf("ldl: %w: zero diagonal", ErrSingular)
	}

	if err := f.factor(scale * pivotTolerance); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *LDL) row(i int) []complex128 { return f.vals[f.start[i]:f.start[i+1]] }

func (f *LDL) diag(i int) complex128 { return f.vals[f.start[i+1]-1] }

// factor runs the row-oriented Crout recurrence. While row i is processed its
// off-diagonal slots hold w_j = L_ij·D_j, turned into L_ij once the row is done.
func (f *LDL) factor(tol float64) error {
	for i := range f.n {
		fi := f.first[i]
		row := f.row(i)

		for j := fi; j < i; j++ {
			fj := f.first[j]
			lo := max(fi, fj)
			w := row[lo-fi : j-fi]
			l := f.row(j)[lo-fj : j-fj]
			s := row[j-fi]
			for k, x := range w {
				s -= x * l[k]
			}
			row[j-fi] = s
		}

		d := row[i-fi]
		for j := fi; j < i; j++ {
			w := row[j-fi]
			l := w / f.diag(j)
			d -= w * l
			row[j-fi] = l
		}
		if cmplx.IsNaN(d) || cmplx.Abs(d) <= tol {
			return fmt.Errorf("ldl: %w: pivot %v at row %d", ErrSingular, d, f.perm[i])
		}
		row[i-fi] = d
	}
	return nil
}

// Size is the number of stored entries of the factor.
func (f *LDL) Size() int { return len(f.vals) }

func (f *LDL) Dim() int { return f.n }

// Solve returns x with A·x = b. The factor is read-only, so concurrent solves
// are safe.
func (f *LDL) Solve(b []complex128) ([]complex128, error) {
	if len(b) != f.n {
		return nil, fmt.Errorf("ldl: right-hand side of length %d for dimension %d", len(b), f.n)
	}
	y := make([]complex128, f.n)
	for i, old := range f.perm {
		y[i] = b[old]
	}

	for i := range f.n {
		fi := f.first[i]
		row := f.row(i)
		s := y[i]
		for k, l := range row[:i-fi] {
			s -= l * y[fi+k]
		}
		y[i] = s
	}
	for i := range f.n {
		y[i] /= f.diag(i)
	}
	for i := f.n - 1; i >= 0; i-- {
		fi := f.first[i]
		row := f.row(i)
		yi := y[i]
		for k, l := range row[:i-fi] {
			y[fi+k] -= l * yi
		}
	}

	x := make([]complex128, f.n)
	for i, old := range f.perm {
		x[old] = y[i]
	}
	return x, nil
}
