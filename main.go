package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

var (
	// configFlag points at an ini file overriding the reference parameters.
	configFlag = flag.String("config", "", "ini file overriding the built-in parameters")

	// outFlag overrides [output] Dir.
	outFlag = flag.String("out", "", "output directory")

	verboseFlag = flag.Bool("v", false, "debug logging")
)

func main() {
	flag.Parse()
	if *verboseFlag {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := LoadConfig(*configFlag)
	if err != nil {
		log.WithError(err).Fatal("configuration")
	}
	if *outFlag != "" {
		cfg.Output.Dir = *outFlag
	}

	log.WithFields(log.Fields{
		"f0":      cfg.Physics.Frequency,
		"c0":      cfg.Physics.SoundSpeed,
		"lambda0": cfg.Wavelength(),
		"k0":      cfg.Wavenumber(),
	}).Info("frequency domain constants")
	log.WithFields(log.Fields{
		"pitch":     cfg.Pitch(),
		"elements":  cfg.Array.Elements,
		"aperture":  cfg.Aperture(),
		"nearField": cfg.NearField(),
		"phase":     cfg.Array.PhaseConvention,
	}).Info("phased array")

	if !cfg.ComplexScalars() {
		fmt.Fprintf(os.Stderr, "scalar type %q: the Helmholtz sweep only works with complex scalars\n", cfg.Solver.Scalar)
		return
	}

	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("steering sweep failed")
	}
}

func run(cfg Config) (err error) {
	e, err := NewExperiment(cfg)
	if err != nil {
		return err
	}

	out, err := CreateXDMF(cfg.OutputPath())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	writers := []SnapshotWriter{out}
	if cfg.Output.VTK {
		writers = append(writers, NewVTKWriter(cfg.Output.Dir, fmt.Sprintf("phased_array_%d", cfg.Array.Elements)))
	}

	solutions, err := e.Run(writers...)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"snapshots": len(solutions),
		"path":      cfg.OutputPath(),
	}).Info("steering sweep written")
	return nil
}
