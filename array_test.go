package main

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// onNodeConfig puts the array elements exactly on mesh vertices: sixteen cells
// across six wavelengths and a pitch of two cells.
func onNodeConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Domain.Cells = 16
	cfg.Array.PitchDivisor = 4.0 / 3.0
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func TestPhaseStep(t *testing.T) {
	cfg := DefaultConfig()
	p := NewPhasedArray(cfg)

	assert.Equal(t, 0.0, p.PhaseStep(0))
	assert.InDelta(t, 2*math.Pi*cfg.Pitch()*math.Sin(math.Pi/4)/cfg.Wavelength(), p.PhaseStep(45), 1e-12)
	assert.InDelta(t, -p.PhaseStep(45), p.PhaseStep(-45), 1e-12)
}

func TestOffsetsSymmetric(t *testing.T) {
	for _, n := range []int{1, 2, 4, 5, 8} {
		cfg := DefaultConfig()
		cfg.Array.Elements = n
		p := NewPhasedArray(cfg)

		for e := range n {
			assert.InDelta(t, -p.Offset(n-1-e), p.Offset(e), 1e-15, "n=%d e=%d", n, e)
			if e > 0 {
				assert.InDelta(t, p.Pitch, p.Offset(e)-p.Offset(e-1), 1e-15)
			}
		}
	}
}

func TestDriveConvention(t *testing.T) {
	p := NewPhasedArray(DefaultConfig())
	assert.Equal(t, complex(0, 1), p.Drive(0))
	assert.InDelta(t, 1, real(p.Drive(math.Pi/2)), 1e-15)

	p.Convention = PhaseCosSin
	assert.Equal(t, complex(1, 0), p.Drive(0))
	assert.InDelta(t, 1, imag(p.Drive(math.Pi/2)), 1e-15)
}

func TestExciteOnNodes(t *testing.T) {
	cfg := onNodeConfig(t)
	mesh, err := NewCubeMesh(cfg.DomainSize(), cfg.Domain.Cells)
	require.NoError(t, err)
	space := NewFunctionSpace(mesh)
	p := NewPhasedArray(cfg)

	for _, angle := range []float64{-45, 0, 45} {
		ex, err := p.Excite(space, angle)
		require.NoError(t, err)

		assert.Equal(t, cfg.Array.Elements, ex.NonZero())
		require.Len(t, ex.Sources, cfg.Array.Elements)
		for e, s := range ex.Sources {
			assert.InDelta(t, 1, cmplx.Abs(ex.Field[s.Dof]), 1e-14)
			assert.InDelta(t, float64(e)*ex.DPhi, s.Phase, 1e-14)
			x := space.DofCoord(s.Dof)
			assert.InDelta(t, s.Offset, x[0], 1e-12)
			assert.InDelta(t, 0, x[1], 1e-12)
			assert.InDelta(t, 0, x[2], 1e-12)
		}
	}
}

func TestExciteBroadsideEqualPhase(t *testing.T) {
	cfg := onNodeConfig(t)
	mesh, err := NewCubeMesh(cfg.DomainSize(), cfg.Domain.Cells)
	require.NoError(t, err)

	ex, err := NewPhasedArray(cfg).Excite(NewFunctionSpace(mesh), 0)
	require.NoError(t, err)
	for _, s := range ex.Sources {
		assert.Equal(t, 0.0, s.Phase)
		assert.Equal(t, ex.Sources[0].Value, s.Value)
	}
}

func TestExciteSharedDofKeepsUnitDrive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Domain.Cells = 4
	mesh, err := NewCubeMesh(cfg.DomainSize(), cfg.Domain.Cells)
	require.NoError(t, err)
	p := NewPhasedArray(cfg)

	for _, angle := range []float64{0, 45} {
		ex, err := p.Excite(NewFunctionSpace(mesh), angle)
		require.NoError(t, err)
		require.Len(t, ex.Sources, 4)
		assert.Equal(t, 1, ex.NonZero())

		dof := ex.Sources[0].Dof
		assert.InDelta(t, 1, cmplx.Abs(ex.Field[dof]), 1e-14)
		assert.Equal(t, ex.Sources[3].Value, ex.Field[dof])
	}
}

func TestExciteReferenceBroadsideSymmetric(t *testing.T) {
	// Pitch λ/16 on 32 cells across 6λ puts the outer elements at ±h/2.
	cfg := DefaultConfig()
	mesh, err := NewCubeMesh(cfg.DomainSize(), cfg.Domain.Cells)
	require.NoError(t, err)

	ex, err := NewPhasedArray(cfg).Excite(NewFunctionSpace(mesh), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, ex.NonZero())

	n := mesh.Split[0]
	first, _, _ := mesh.GridIndex(ex.Sources[0].Dof)
	last, _, _ := mesh.GridIndex(ex.Sources[3].Dof)
	assert.Equal(t, n/2-1, first)
	assert.Equal(t, n/2+1, last)

	for v, val := range ex.Field {
		i, j, k := mesh.GridIndex(v)
		assert.Equal(t, val, ex.Field[mesh.VertexIndex(n-i, j, k)], "vertex %d", v)
		if val != 0 {
			assert.InDelta(t, 1, cmplx.Abs(val), 1e-15)
		}
	}
}

func TestExciteMissingDof(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Domain.Cells = 4
	cfg.Array.LocateTolerance = 1e-3
	cfg.Array.PitchDivisor = 2
	mesh, err := NewCubeMesh(cfg.DomainSize(), cfg.Domain.Cells)
	require.NoError(t, err)

	_, err = NewPhasedArray(cfg).Excite(NewFunctionSpace(mesh), 0)
	assert.ErrorIs(t, err, ErrNoDof)
}
