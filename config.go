package main

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// ErrInvalidConfig is returned when a loaded configuration cannot describe a
// runnable experiment.
var ErrInvalidConfig = errors.New("invalid configuration")

// Phase conventions for the complex excitation value of an array element.
const (
	PhaseSinCos = "sin-cos" // sin(phase) + i·cos(phase), used by the historical runs
	PhaseCosSin = "cos-sin" // cos(phase) + i·sin(phase)
)

// Linear solver methods.
const (
	SolverLDL   = "ldl"
	SolverGMRES = "gmres"
)

// ScalarComplex128 is the only scalar type the Helmholtz formulation can run with.
const ScalarComplex128 = "complex128"

type PhysicsConfig struct {
	Frequency  float64 // Hz
	SoundSpeed float64 // m/s
}

type ArrayConfig struct {
	Elements        int
	PitchDivisor    float64 // pitch = wavelength / PitchDivisor
	SteeringStart   float64 // degrees
	SteeringStop    float64 // degrees
	SteeringStep    float64 // degrees
	LocateTolerance float64 // m, per axis
	PhaseConvention string
}

type DomainConfig struct {
	Wavelengths float64 // edge of the cubic domain in wavelengths
	Cells       int     // cells per axis
	Degree      int     // Lagrange degree
}

type AbsorberConfig struct {
	Wavelengths float64 // depth in wavelengths
	Degree      int     // monomial degree of sigma
	RoundTrip   float64 // target round-trip reflection
}

type SolverConfig struct {
	Scalar        string
	Method        string
	Restart       int
	Tolerance     float64
	MaxIterations int
}

type OutputConfig struct {
	Dir string
	VTK bool
}

// Config holds every parameter of a steering sweep. It is built once and passed
// by value; nothing in the program mutates it afterwards.
type Config struct {
	Physics  PhysicsConfig
	Array    ArrayConfig
	Domain   DomainConfig
	Absorber AbsorberConfig
	Solver   SolverConfig
	Output   OutputConfig
}

// DefaultConfig returns the parameters of the reference experiment.
func DefaultConfig() Config {
	return Config{
		Physics: PhysicsConfig{
			Frequency:  800,
			SoundSpeed: 330,
		},
		Array: ArrayConfig{
			Elements:        4,
			PitchDivisor:    16,
			SteeringStart:   -45,
			SteeringStop:    45,
			SteeringStep:    45,
			LocateTolerance: 0.1,
			PhaseConvention: PhaseSinCos,
		},
		Domain: DomainConfig{
			Wavelengths: 6,
			Cells:       32,
			Degree:      1,
		},
		Absorber: AbsorberConfig{
			Wavelengths: 2,
			Degree:      2,
			RoundTrip:   1e-6,
		},
		Solver: SolverConfig{
			Scalar:        ScalarComplex128,
			Method:        SolverLDL,
			Restart:       200,
			Tolerance:     1e-8,
			MaxIterations: 20000,
		},
		Output: OutputConfig{
			Dir: "out_phased_array",
		},
	}
}

// LoadConfig reads an ini file on top of DefaultConfig. An empty path yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	file := ini.Empty()
	if path != "" {
		var err error
		file, err = ini.Load(path)
		if err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := loadCfg(file, DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadCfg(file *ini.File, d Config) Config {
	physics := file.Section("physics")
	array := file.Section("array")
	domain := file.Section("domain")
	absorber := file.Section("absorber")
	solver := file.Section("solver")
	output := file.Section("output")

	return Config{
		Physics: PhysicsConfig{
			Frequency:  physics.Key("Frequency").MustFloat64(d.Physics.Frequency),
			SoundSpeed: physics.Key("SoundSpeed").MustFloat64(d.Physics.SoundSpeed),
		},
		Array: ArrayConfig{
			Elements:        array.Key("Elements").MustInt(d.Array.Elements),
			PitchDivisor:    array.Key("PitchDivisor").MustFloat64(d.Array.PitchDivisor),
			SteeringStart:   array.Key("SteeringStart").MustFloat64(d.Array.SteeringStart),
			SteeringStop:    array.Key("SteeringStop").MustFloat64(d.Array.SteeringStop),
			SteeringStep:    array.Key("SteeringStep").MustFloat64(d.Array.SteeringStep),
			LocateTolerance: array.Key("LocateTolerance").MustFloat64(d.Array.LocateTolerance),
			PhaseConvention: choice(array.Key("PhaseConvention"), d.Array.PhaseConvention, PhaseSinCos, PhaseCosSin),
		},
		Domain: DomainConfig{
			Wavelengths: domain.Key("Wavelengths").MustFloat64(d.Domain.Wavelengths),
			Cells:       domain.Key("Cells").MustInt(d.Domain.Cells),
			Degree:      domain.Key("Degree").MustInt(d.Domain.Degree),
		},
		Absorber: AbsorberConfig{
			Wavelengths: absorber.Key("Wavelengths").MustFloat64(d.Absorber.Wavelengths),
			Degree:      absorber.Key("Degree").MustInt(d.Absorber.Degree),
			RoundTrip:   absorber.Key("RoundTrip").MustFloat64(d.Absorber.RoundTrip),
		},
		Solver: SolverConfig{
			Scalar:        solver.Key("Scalar").MustString(d.Solver.Scalar),
			Method:        choice(solver.Key("Method"), d.Solver.Method, SolverLDL, SolverGMRES),
			Restart:       solver.Key("Restart").MustInt(d.Solver.Restart),
			Tolerance:     solver.Key("Tolerance").MustFloat64(d.Solver.Tolerance),
			MaxIterations: solver.Key("MaxIterations").MustInt(d.Solver.MaxIterations),
		},
		Output: OutputConfig{
			Dir: output.Key("Dir").MustString(d.Output.Dir),
			VTK: output.Key("VTK").MustBool(d.Output.VTK),
		},
	}
}

// choice reads key as one of choices. Anything else falls back to def with a
// warning.
func choice(key *ini.Key, def string, choices ...string) string {
	v := key.In(def, choices)
	if raw := key.String(); raw != "" && raw != v {
		log.WithFields(log.Fields{
			"key":   key.Name(),
			"value": raw,
			"using": v,
		}).Warn("unknown configuration choice")
	}
	return v
}

// Validate reports the first parameter that makes the sweep meaningless.
func (c Config) Validate() error {
	switch {
	case c.Physics.Frequency <= 0:
		return fmt.Errorf("%w: frequency %v must be positive", ErrInvalidConfig, c.Physics.Frequency)
	case c.Physics.SoundSpeed <= 0:
		return fmt.Errorf("%w: sound speed %v must be positive", ErrInvalidConfig, c.Physics.SoundSpeed)
	case c.Array.Elements < 1:
		return fmt.Errorf("%w: %d array elements", ErrInvalidConfig, c.Array.Elements)
	case c.Array.PitchDivisor <= 0:
		return fmt.Errorf("%w: pitch divisor %v must be positive", ErrInvalidConfig, c.Array.PitchDivisor)
	case c.Array.SteeringStep <= 0:
		return fmt.Errorf("%w: steering step %v must be positive", ErrInvalidConfig, c.Array.SteeringStep)
	case c.Array.SteeringStop < c.Array.SteeringStart:
		return fmt.Errorf("%w: steering stop %v before start %v", ErrInvalidConfig, c.Array.SteeringStop, c.Array.SteeringStart)
	case c.Array.LocateTolerance <= 0:
		return fmt.Errorf("%w: locate tolerance %v must be positive", ErrInvalidConfig, c.Array.LocateTolerance)
	case c.Domain.Wavelengths <= 0:
		return fmt.Errorf("%w: domain of %v wavelengths", ErrInvalidConfig, c.Domain.Wavelengths)
	case c.Domain.Cells < 1:
		return fmt.Errorf("%w: %d cells per axis", ErrInvalidConfig, c.Domain.Cells)
	case c.Domain.Degree != 1:
		return fmt.Errorf("%w: only degree 1 elements are supported, got %d", ErrInvalidConfig, c.Domain.Degree)
	case c.Absorber.Wavelengths <= 0 || 2*c.Absorber.Wavelengths > c.Domain.Wavelengths:
		return fmt.Errorf("%w: absorber of %v wavelengths does not fit a %v wavelength domain",
			ErrInvalidConfig, c.Absorber.Wavelengths, c.Domain.Wavelengths)
	case c.Absorber.Degree < 0:
		return fmt.Errorf("%w: absorber degree %d", ErrInvalidConfig, c.Absorber.Degree)
	case c.Absorber.RoundTrip <= 0 || c.Absorber.RoundTrip >= 1:
		return fmt.Errorf("%w: round-trip reflection %v must be in (0, 1)", ErrInvalidConfig, c.Absorber.RoundTrip)
	case c.Solver.Method == SolverGMRES && c.Solver.Restart < 1:
		return fmt.Errorf("%w: gmres restart %d", ErrInvalidConfig, c.Solver.Restart)
	case c.Solver.Method == SolverGMRES && c.Solver.Tolerance <= 0:
		return fmt.Errorf("%w: gmres tolerance %v", ErrInvalidConfig, c.Solver.Tolerance)
	}
	return nil
}

// ComplexScalars reports whether the configured scalar type can carry the
// complex Helmholtz problem.
func (c Config) ComplexScalars() bool {
	return c.Solver.Scalar == ScalarComplex128
}

func (c Config) Wavelength() float64 { return c.Physics.SoundSpeed / c.Physics.Frequency }

func (c Config) Wavenumber() float64 { return 2 * math.Pi / c.Wavelength() }

func (c Config) Pitch() float64 { return c.Wavelength() / c.Array.PitchDivisor }

func (c Config) Aperture() float64 { return c.Pitch() * float64(c.Array.Elements-1) }

// NearField is the Fresnel distance of the array aperture.
func (c Config) NearField() float64 {
	a := c.Aperture()
	return a * a / (4 * c.Wavelength())
}

// DomainSize is the edge length of the cubic domain centered at the origin.
func (c Config) DomainSize() float64 { return c.Domain.Wavelengths * c.Wavelength() }

func (c Config) AbsorberDepth() float64 { return c.Absorber.Wavelengths * c.Wavelength() }

// SteeringAngles expands the inclusive sweep start..stop by step.
func (c Config) SteeringAngles() []float64 {
	a := c.Array
	n := int(math.Floor((a.SteeringStop-a.SteeringStart)/a.SteeringStep+1e-9)) + 1
	angles := make([]float64, n)
	for i := range angles {
		angles[i] = a.SteeringStart + float64(i)*a.SteeringStep
	}
	return angles
}

// OutputPath is the XDMF artifact of the sweep, named after the element count.
func (c Config) OutputPath() string {
	return filepath.Join(c.Output.Dir, fmt.Sprintf("phased_array_%d.xdmf", c.Array.Elements))
}
