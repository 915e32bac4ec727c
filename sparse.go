package main

import (
	"fmt"
	"slices"

	"github.com/exascience/pargo/parallel"
)

// CSR is a square complex matrix in compressed sparse row form. The sparsity
// pattern is fixed at construction; values accumulate with Add.
type CSR struct {
	n      int
	rowPtr []int
	colIdx []int
	val    []complex128
}

// NewCSRPattern builds the pattern in which every pair of dofs sharing a cell is
// coupled.
func NewCSRPattern(n int, cells [][8]int) *CSR {
	adj := make([][]int, n)
	for _, cell := range cells {
		for _, i := range cell {
			adj[i] = append(adj[i], cell[:]...)
		}
	}
	return newCSR(n, adj)
}

// NewCSRFromTriplets builds a matrix from coordinate entries; duplicates add up.
func NewCSRFromTriplets(n int, rows, cols []int, vals []complex128) (*CSR, error) {
	if len(rows) != len(cols) || len(rows) != len(vals) {
		return nil, fmt.Errorf("csr: triplet lengths %d, %d, %d differ", len(rows), len(cols), len(vals))
	}
	adj := make([][]int, n)
	for k := range rows {
		if rows[k] < 0 || rows[k] >= n || cols[k] < 0 || cols[k] >= n {
			return nil, fmt.Errorf("csr: entry (%d, %d) outside %dx%d", rows[k], cols[k], n, n)
		}
		adj[rows[k]] = append(adj[rows[k]], cols[k])
	}
	a := newCSR(n, adj)
	for k := range rows {
		a.Add(rows[k], cols[k], vals[k])
	}
	return a, nil
}

func newCSR(n int, adj [][]int) *CSR {
	a := &CSR{n: n, rowPtr: make([]int, n+1)}
	for i, cols := range adj {
		slices.Sort(cols)
		adj[i] = slices.Compact(cols)
		a.rowPtr[i+1] = a.rowPtr[i] + len(adj[i])
	}
	a.colIdx = make([]int, 0, a.rowPtr[n])
	for _, cols := range adj {
		a.colIdx = append(a.colIdx, cols...)
	}
	a.val = make([]complex128, len(a.colIdx))
	return a
}

func (a *CSR) Dim() int { return a.n }

func (a *CSR) NNZ() int { return len(a.colIdx) }

// Row returns the column indexes and values of row i; the slices alias the
// matrix storage.
func (a *CSR) Row(i int) ([]int, []complex128) {
	lo, hi := a.rowPtr[i], a.rowPtr[i+1]
	return a.colIdx[lo:hi], a.val[lo:hi]
}

// Add accumulates v into entry (i, j), which must be part of the pattern.
func (a *CSR) Add(i, j int, v complex128) {
	cols, vals := a.Row(i)
	k, ok := slices.BinarySearch(cols, j)
	if !ok {
		panic(fmt.Sprintf("csr: entry (%d, %d) is not in the pattern", i, j))
	}
	vals[k] += v
}

func (a *CSR) At(i, j int) complex128 {
	cols, vals := a.Row(i)
	if k, ok := slices.BinarySearch(cols, j); ok {
		return vals[k]
	}
	return 0
}

// MulVecTo computes dst = A·x.
func (a *CSR) MulVecTo(dst, x []complex128) {
	parallel.Range(0, a.n, 0, func(low, high int) {
		for i := low; i < high; i++ {
			cols, vals := a.Row(i)
			var s complex128
			for k, j := range cols {
				s += vals[k] * x[j]
			}
			dst[i] = s
		}
	})
}

// Bandwidth is the largest |i − j| over stored entries under the ordering perm
// (perm[new] = old); nil means the natural ordering.
func (a *CSR) Bandwidth(perm []int) int {
	iperm := invertPermutation(perm, a.n)
	bw := 0
	for i := range a.n {
		cols, _ := a.Row(i)
		for _, j := range cols {
			bw = max(bw, abs(iperm[i]-iperm[j]))
		}
	}
	return bw
}

// Envelope counts the entries below the diagonal that an envelope factor of a
// stores under the ordering perm (nil means natural).
func (a *CSR) Envelope(perm []int) int {
	iperm := invertPermutation(perm, a.n)
	total := 0
	for i := range a.n {
		cols, _ := a.Row(i)
		first := iperm[i]
		for _, j := range cols {
			first = min(first, iperm[j])
		}
		total += iperm[i] - first
	}
	return total
}

// EnvelopeOrdering picks between the natural and the reverse Cuthill-McKee
// ordering, whichever gives the smaller envelope. On a structured 27-point grid
// RCM level sets are Chebyshev shells and lexicographic numbering can win. A nil
// result means natural order.
func EnvelopeOrdering(a *CSR) []int {
	perm := ReverseCuthillMcKee(a)
	if a.Envelope(perm) < a.Envelope(nil) {
		return perm
	}
	return nil
}

// ReverseCuthillMcKee orders the rows of a symmetric pattern to shrink its
// envelope. The result maps new positions to original rows.
func ReverseCuthillMcKee(a *CSR) []int {
	n := a.n
	degree := make([]int, n)
	for i := range n {
		degree[i] = a.rowPtr[i+1] - a.rowPtr[i]
	}

	perm := make([]int, 0, n)
	visited := make([]bool, n)
	for seed := range n {
		if visited[seed] {
			continue
		}
		start := pseudoPeripheral(a, seed, degree)
		visited[start] = true
		head := len(perm)
		perm = append(perm, start)
		for head < len(perm) {
			v := perm[head]
			head++
			cols, _ := a.Row(v)
			next := len(perm)
			for _, u := range cols {
				if !visited[u] {
					visited[u] = true
					perm = append(perm, u)
				}
			}
			level := perm[next:]
			slices.SortStableFunc(level, func(x, y int) int { return degree[x] - degree[y] })
		}
	}
	slices.Reverse(perm)
	return perm
}

// pseudoPeripheral walks breadth-first level structures from seed towards a
// vertex of (near) maximal eccentricity within seed's component.
func pseudoPeripheral(a *CSR, seed int, degree []int) int {
	v := seed
	ecc := -1
	for {
		last, depth := lastLevel(a, v)
		if depth <= ecc {
			return v
		}
		ecc = depth
		best := last[0]
		for _, u := range last[1:] {
			if degree[u] < degree[best] {
				best = u
			}
		}
		if best == v {
			return v
		}
		v = best
	}
}

func lastLevel(a *CSR, root int) ([]int, int) {
	dist := map[int]int{root: 0}
	level := []int{root}
	depth := 0
	for {
		var next []int
		for _, v := range level {
			cols, _ := a.Row(v)
			for _, u := range cols {
				if _, ok := dist[u]; !ok {
					dist[u] = depth + 1
					next = append(next, u)
				}
			}
		}
		if len(next) == 0 {
			return level, depth
		}
		level = next
		depth++
	}
}

func invertPermutation(perm []int, n int) []int {
	iperm := make([]int, n)
	if perm == nil {
		for i := range iperm {
			iperm[i] = i
		}
		return iperm
	}
	for newIdx, old := range perm {
		iperm[old] = newIdx
	}
	return iperm
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
