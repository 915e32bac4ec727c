package main

import (
	"encoding/xml"
	"math/cmplx"
	"os"
	"path/filepath"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	name  string
	t     float64
	field []complex128
}

type recordingWriter struct {
	meshes    []*Mesh
	snapshots []snapshot
}

func (w *recordingWriter) WriteMesh(m *Mesh) error {
	w.meshes = append(w.meshes, m)
	return nil
}

func (w *recordingWriter) WriteFunction(name string, u []complex128, t float64) error {
	w.snapshots = append(w.snapshots, snapshot{name: name, t: t, field: append([]complex128(nil), u...)})
	return nil
}

// referenceSpacingConfig keeps the reference pitch and cell size, λ/16 and
// 3λ/16, on a smaller box: the outer elements sit at ±h/2 and the inner ones
// share the center dof.
func referenceSpacingConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Domain.Wavelengths = 3
	cfg.Domain.Cells = 16
	cfg.Absorber.Wavelengths = 1
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func TestSteeringSweep(t *testing.T) {
	cfg := referenceSpacingConfig(t)
	e, err := NewExperiment(cfg)
	require.NoError(t, err)
	m := e.Mesh()
	require.InDelta(t, 3*cfg.Wavelength()/16, m.Step[0], 1e-12)

	rec := &recordingWriter{}
	solutions, err := e.Run(rec)
	require.NoError(t, err)

	require.Len(t, rec.meshes, 1)
	require.Len(t, rec.snapshots, 3)
	require.Len(t, solutions, 3)
	for i, want := range []float64{-45, 0, 45} {
		assert.Equal(t, "u", rec.snapshots[i].name)
		assert.Equal(t, want, rec.snapshots[i].t)
		assert.Len(t, rec.snapshots[i].field, e.Space().Dim())
		assert.Less(t, solutions[i].Residual, 1e-6)
		assert.Greater(t, peak(solutions[i].U), 0.0)
	}

	// Broadside drive and absorber are even in x, so is the field.
	u := solutions[1].U
	assert.Equal(t, 3, solutions[1].Excitation.NonZero())
	tol := 1e-6 * peak(u)
	n := m.Split[0]
	for v := range m.NumVertices() {
		i, j, k := m.GridIndex(v)
		mirror := m.VertexIndex(n-i, j, k)
		assert.LessOrEqual(t, cmplx.Abs(u[v]-u[mirror]), tol, "vertex %d", v)
	}
}

func TestSteeringMirror(t *testing.T) {
	// With one element per dof, the ±45° drives are mirror images up to a
	// global phase, so |u₋₄₅(x)| = |u₊₄₅(−x)|.
	e, err := NewExperiment(onNodeConfig(t))
	require.NoError(t, err)

	left, err := e.Steer(-45)
	require.NoError(t, err)
	right, err := e.Steer(45)
	require.NoError(t, err)

	m := e.Mesh()
	n := m.Split[0]
	tol := 1e-6 * peak(left.U)
	assert.InDelta(t, peak(left.U), peak(right.U), tol)
	for v := range m.NumVertices() {
		i, j, k := m.GridIndex(v)
		mirror := m.VertexIndex(n-i, j, k)
		assert.InDelta(t, cmplx.Abs(left.U[v]), cmplx.Abs(right.U[mirror]), tol, "vertex %d", v)
	}

	// The steered field itself is not even in x.
	at, mirror := m.VertexIndex(n/2+2, n/2+2, n/2), m.VertexIndex(n/2-2, n/2+2, n/2)
	assert.Greater(t, cmplx.Abs(left.U[at]-left.U[mirror]), tol)
}

func TestAbsorberFieldVanishesInside(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Domain.Cells = 6
	e, err := NewExperiment(cfg)
	require.NoError(t, err)

	m := e.Mesh()
	kAbsorb := e.AbsorberField()
	require.Len(t, kAbsorb, m.NumVertices())
	assert.Equal(t, complex128(0), kAbsorb[m.VertexIndex(3, 3, 3)])
	assert.NotEqual(t, complex128(0), kAbsorb[m.VertexIndex(0, 3, 3)])
}

func TestRunWritesArtifact(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Domain.Cells = 8
	cfg.Output.Dir = t.TempDir()
	cfg.Output.VTK = true

	require.NoError(t, run(cfg))

	raw, err := os.ReadFile(cfg.OutputPath())
	require.NoError(t, err)
	var doc xdmfDoc
	require.NoError(t, xml.Unmarshal(raw, &doc))
	require.Len(t, doc.Domain.Grids, 2)
	assert.Len(t, doc.Domain.Grids[1].Grids, 3)

	for _, name := range []string{"phased_array_4_u_-045.vtk", "phased_array_4_u_+000.vtk", "phased_array_4_u_+045.vtk"} {
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, name))
	}
}

func TestNewExperimentRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Domain.Cells = 0
	_, err := NewExperiment(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunLogsElapsed(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	cfg := DefaultConfig()
	cfg.Domain.Cells = 4
	cfg.Array.Elements = 1
	e, err := NewExperiment(cfg)
	require.NoError(t, err)
	_, err = e.Run()
	require.NoError(t, err)

	solved := 0
	for _, entry := range hook.AllEntries() {
		if _, ok := entry.Data["elapsed"]; ok {
			assert.NotContains(t, entry.Data, "time")
		}
		if entry.Message == "solved" {
			solved++
			assert.Contains(t, entry.Data, "elapsed")
		}
	}
	assert.Equal(t, 3, solved)
}
