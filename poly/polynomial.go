// Package poly provides the fitted per-channel background model: a
// polynomial rate function with a coefficient covariance matrix.
//
// A Polynomial maps time to a background rate, r(t) = c0 + c1*t + ... +
// cd*t^d. Integral evaluates the expected background counts over a time
// window and IntegralError propagates the covariance of the fitted
// coefficients through the same integral. Polynomials are immutable;
// refits replace them wholesale.
package poly

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Polynomial is a fitted polynomial background model for one channel.
type Polynomial struct {
	coeffs []float64
	cov    *mat.SymDense
}

// New creates a polynomial with the given coefficients, ordered from the
// constant term upward, and a zero covariance matrix.
func New(coeffs ...float64) *Polynomial {
	c := make([]float64, len(coeffs))
	copy(c, coeffs)

	return &Polynomial{
		coeffs: c,
		cov:    mat.NewSymDense(len(c), nil),
	}
}

// FromFit creates a polynomial from fitted coefficients and their
// covariance matrix. The covariance must be square with dimension equal
// to the number of coefficients.
func FromFit(coeffs []float64, cov *mat.SymDense) (*Polynomial, error) {
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("polynomial requires at least one coefficient")
	}
	if cov == nil {
		return New(coeffs...), nil
	}
	if n := cov.SymmetricDim(); n != len(coeffs) {
		return nil, fmt.Errorf("covariance dimension %d does not match %d coefficients",
			n, len(coeffs))
	}

	c := make([]float64, len(coeffs))
	copy(c, coeffs)

	cv := mat.NewSymDense(len(coeffs), nil)
	cv.CopySym(cov)

	return &Polynomial{coeffs: c, cov: cv}, nil
}

// Degree returns the polynomial degree.
func (p *Polynomial) Degree() int {
	return len(p.coeffs) - 1
}

// Coefficients returns a copy of the coefficients, constant term first.
func (p *Polynomial) Coefficients() []float64 {
	out := make([]float64, len(p.coeffs))
	copy(out, p.coeffs)

	return out
}

// Covariance returns a copy of the coefficient covariance matrix.
func (p *Polynomial) Covariance() *mat.SymDense {
	out := mat.NewSymDense(len(p.coeffs), nil)
	out.CopySym(p.cov)

	return out
}

// CoefficientErrors returns the standard error of each coefficient, the
// square root of the covariance diagonal.
func (p *Polynomial) CoefficientErrors() []float64 {
	out := make([]float64, len(p.coeffs))
	for i := range p.coeffs {
		out[i] = math.Sqrt(p.cov.At(i, i))
	}

	return out
}

// Eval evaluates the rate at time t using Horner's method.
func (p *Polynomial) Eval(t float64) float64 {
	var v float64
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		v = v*t + p.coeffs[i]
	}

	return v
}

// Integral returns the expected background counts over [a, b], the
// definite integral of the rate polynomial.
func (p *Polynomial) Integral(a, b float64) float64 {
	var total float64
	for j, c := range p.coeffs {
		total += c * basisIntegral(j, a, b)
	}

	return total
}

// IntegralError returns the standard error of Integral(a, b), propagating
// the coefficient covariance through the integral: with g_j the integral
// of t^j over [a, b], the variance is g' C g.
func (p *Polynomial) IntegralError(a, b float64) float64 {
	n := len(p.coeffs)
	g := mat.NewVecDense(n, nil)
	for j := range n {
		g.SetVec(j, basisIntegral(j, a, b))
	}

	var tmp mat.VecDense
	tmp.MulVec(p.cov, g)
	variance := mat.Dot(g, &tmp)

	if variance <= 0 {
		return 0
	}

	return math.Sqrt(variance)
}

func (p *Polynomial) String() string {
	terms := make([]string, len(p.coeffs))
	for j, c := range p.coeffs {
		switch j {
		case 0:
			terms[j] = fmt.Sprintf("%g", c)
		case 1:
			terms[j] = fmt.Sprintf("%g*t", c)
		default:
			terms[j] = fmt.Sprintf("%g*t^%d", c, j)
		}
	}

	return strings.Join(terms, " + ")
}

// basisIntegral is the integral of t^j over [a, b].
func basisIntegral(j int, a, b float64) float64 {
	k := float64(j + 1)

	return (math.Pow(b, k) - math.Pow(a, k)) / k
}
