package main

import (
	"bufio"
	"fmt"
	"math/cmplx"
	"os"
	"path/filepath"
)

// VTKWriter writes one legacy VTK structured-points file per snapshot. It only
// handles the uniform box meshes built by NewBoxMesh.
type VTKWriter struct {
	dir    string
	prefix string
	mesh   *Mesh
}

func NewVTKWriter(dir, prefix string) *VTKWriter {
	return &VTKWriter{dir: dir, prefix: prefix}
}

func (w *VTKWriter) WriteMesh(m *Mesh) error {
	w.mesh = m
	return os.MkdirAll(w.dir, 0o755)
}

// WriteFunction writes real, imaginary and magnitude of u to
// <dir>/<prefix>_<name>_<t>.vtk.
func (w *VTKWriter) WriteFunction(name string, u []complex128, t float64) (err error) {
	if w.mesh == nil {
		return fmt.Errorf("vtk: write the mesh before %q", name)
	}
	m := w.mesh
	if len(u) != m.NumVertices() {
		return fmt.Errorf("vtk: field %q has %d values for %d vertices", name, len(u), m.NumVertices())
	}

	file := filepath.Join(w.dir, fmt.Sprintf("%s_%s_%+04.0f.vtk", w.prefix, name, t))
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("vtk: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("vtk: %w", cerr)
		}
	}()

	b := bufio.NewWriter(f)
	fmt.Fprintf(b, "# vtk DataFile Version 2.0\n")
	fmt.Fprintf(b, "variable %s, time %16.9e\n", name, t)
	fmt.Fprintf(b, "ASCII\n")
	fmt.Fprintf(b, "DATASET STRUCTURED_POINTS\n")
	fmt.Fprintf(b, "DIMENSIONS %d %d %d\n", m.Split[0]+1, m.Split[1]+1, m.Split[2]+1)
	fmt.Fprintf(b, "ORIGIN  %16.9e %16.9e %16.9e\n", m.Min[0], m.Min[1], m.Min[2])
	fmt.Fprintf(b, "SPACING %16.9e %16.9e %16.9e\n", m.Step[0], m.Step[1], m.Step[2])
	fmt.Fprintf(b, "\n")
	fmt.Fprintf(b, "POINT_DATA %d\n", len(u))

	parts := []struct {
		label string
		value func(complex128) float64
	}{
		{"real_" + name, func(v complex128) float64 { return real(v) }},
		{"imag_" + name, func(v complex128) float64 { return imag(v) }},
		{"abs_" + name, cmplx.Abs},
	}
	for _, p := range parts {
		fmt.Fprintf(b, "SCALARS %s double\n", p.label)
		fmt.Fprintf(b, "LOOKUP_TABLE default\n")
		for _, v := range u {
			fmt.Fprintf(b, "%16.09e\n", p.value(v))
		}
	}
	if err := b.Flush(); err != nil {
		return fmt.Errorf("vtk: %w", err)
	}
	return nil
}
