package main

import "math"

// Absorber is an adiabatic absorbing layer lining the faces of a cube centered at
// the origin. Inside the layer the wavenumber becomes k0 + i·sigma, so the
// squared wavenumber gains 2i·sigma·k0 − sigma².
type Absorber struct {
	HalfSize float64 // half edge of the domain
	Depth    float64
	Degree   int
	Sigma0   float64
	K0       float64
}

// Sigma0 is the peak damping that makes a wave crossing the layer, reflecting and
// crossing it back lose everything but rt of its amplitude.
func Sigma0(depth float64, degree int, rt float64) float64 {
	return -float64(degree+1) * math.Log(rt) / (2 * depth)
}

func NewAbsorber(cfg Config) Absorber {
	depth := cfg.AbsorberDepth()
	return Absorber{
		HalfSize: cfg.DomainSize() / 2,
		Depth:    depth,
		Degree:   cfg.Absorber.Degree,
		Sigma0:   Sigma0(depth, cfg.Absorber.Degree, cfg.Absorber.RoundTrip),
		K0:       cfg.Wavenumber(),
	}
}

// Sigma is the damping at distance d from the center along one axis; zero
// outside the layer.
func (a Absorber) Sigma(d float64) float64 {
	inner := a.HalfSize - a.Depth
	d = math.Abs(d)
	if d < inner {
		return 0
	}
	return a.Sigma0 * math.Pow((d-inner)/a.Depth, float64(a.Degree))
}

// Eval returns the correction to k0² at x, summed over the three axes.
func (a Absorber) Eval(x [3]float64) complex128 {
	var k complex128
	for _, c := range x {
		sigma := a.Sigma(c)
		if sigma == 0 {
			continue
		}
		k += complex(-sigma*sigma, 2*sigma*a.K0)
	}
	return k
}
