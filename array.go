package main

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
)

// PhasedArray is a linear array of point sources along x, centered at the origin.
type PhasedArray struct {
	Elements   int
	Pitch      float64
	Wavelength float64
	Tolerance  float64
	Convention string
}

func NewPhasedArray(cfg Config) PhasedArray {
	return PhasedArray{
		Elements:   cfg.Array.Elements,
		Pitch:      cfg.Pitch(),
		Wavelength: cfg.Wavelength(),
		Tolerance:  cfg.Array.LocateTolerance,
		Convention: cfg.Array.PhaseConvention,
	}
}

// Source is one array element resolved onto the function space.
type Source struct {
	Element int
	Offset  float64 // position along x
	Phase   float64 // radians
	Dof     int
	Value   complex128
}

// Excitation is the nodal source field of one steering angle.
type Excitation struct {
	Angle   float64 // degrees
	DPhi    float64 // phase increment between neighbouring elements, radians
	Sources []Source
	Field   []complex128
}

// PhaseStep is the classical steering law: the phase increment between
// neighbouring elements that tilts the wavefront by angle degrees.
func (p PhasedArray) PhaseStep(angle float64) float64 {
	theta := angle * math.Pi / 180
	return 2 * math.Pi * p.Pitch * math.Sin(theta) / p.Wavelength
}

// Offset is the x position of element e; even and odd counts are both symmetric
// about zero.
func (p PhasedArray) Offset(e int) float64 {
	return (float64(e) - float64(p.Elements-1)/2) * p.Pitch
}

// Drive is the unit-magnitude complex amplitude for a given phase.
func (p PhasedArray) Drive(phase float64) complex128 {
	s, c := math.Sincos(phase)
	if p.Convention == PhaseCosSin {
		return complex(c, s)
	}
	return complex(s, c)
}

// Excite builds the excitation for one steering angle. Every element must land
// on a dof; an element that misses fails the whole excitation. Each dof carries
// a unit-magnitude drive: when elements share a dof the later element's value
// replaces the earlier one.
func (p PhasedArray) Excite(space *FunctionSpace, angle float64) (*Excitation, error) {
	ex := &Excitation{
		Angle: angle,
		DPhi:  p.PhaseStep(angle),
		Field: make([]complex128, space.Dim()),
	}

	owner := make(map[int]int, p.Elements)
	phase := 0.0
	for e := range p.Elements {
		offset := p.Offset(e)
		dof, err := space.LocateDof([3]float64{offset, 0, 0}, p.Tolerance)
		if err != nil {
			return nil, fmt.Errorf("array element %d at x=%.4g: %w", e, offset, err)
		}

		value := p.Drive(phase)
		if prev, ok := owner[dof]; ok {
			log.WithFields(log.Fields{
				"element": e,
				"shares":  prev,
				"dof":     dof,
			}).Warn("array elements resolve to the same dof, later element overrides")
		}
		owner[dof] = e
		ex.Field[dof] = value
		ex.Sources = append(ex.Sources, Source{
			Element: e,
			Offset:  offset,
			Phase:   phase,
			Dof:     dof,
			Value:   value,
		})
		phase += ex.DPhi
	}
	return ex, nil
}

// NonZero counts the dofs carrying excitation.
func (ex *Excitation) NonZero() int {
	n := 0
	for _, v := range ex.Field {
		if v != 0 {
			n++
		}
	}
	return n
}
