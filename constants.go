package main

import "math"

// Two-point Gauss rule per axis, exact for the trilinear products assembled here.
var gaussian = [2]float64{-1 / math.Sqrt(3), 1 / math.Sqrt(3)}

var gaussianCoefficients = [2]float64{1, 1}

// Vertex order of the reference hexahedron, matching the XDMF/VTK hexahedron.
var localPoints3D = [8][3]float64{
	{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
	{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
}

const quadraturePoints = 2 * 2 * 2

// fiabg holds shape function values and dfiabg their derivatives with respect to
// (alpha, beta, gamma) at every quadrature point.
var (
	fiabg   [quadraturePoints][8]float64
	dfiabg  [quadraturePoints][8][3]float64
	weights [quadraturePoints]float64
)

func init() {
	calculateDFIABG()
}

func calculateDFIABG() {
	for k1, gamma := range gaussian {
		for k2, beta := range gaussian {
			for k3, alpha := range gaussian {
				q := k1*4 + k2*2 + k3
				weights[q] = gaussianCoefficients[k1] * gaussianCoefficients[k2] * gaussianCoefficients[k3]
				for i, point := range localPoints3D {
					fiabg[q][i] = fiabg8(alpha, beta, gamma, point[0], point[1], point[2])
					dfiabg[q][i] = dfiabg8(alpha, beta, gamma, point[0], point[1], point[2])
				}
			}
		}
	}
}

func fiabg8(alpha, beta, gamma, x, y, z float64) float64 {
	return (1.0 / 8.0) * (1 + alpha*x) * (1 + beta*y) * (1 + gamma*z)
}

func dfiabg8(alpha, beta, gamma, x, y, z float64) [3]float64 {
	return [3]float64{
		(1.0 / 8.0) * x * (1 + beta*y) * (1 + gamma*z),
		(1.0 / 8.0) * y * (1 + alpha*x) * (1 + gamma*z),
		(1.0 / 8.0) * z * (1 + alpha*x) * (1 + beta*y),
	}
}
