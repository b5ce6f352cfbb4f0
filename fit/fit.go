// Package fit provides the polynomial regression primitives behind the
// background fitter: a binned Poisson maximum-likelihood fit of counts
// per time bin, and an unbinned maximum-likelihood fit of raw event
// arrival times.
//
// Both fits return the polynomial model, its coefficient covariance
// matrix, and the maximized log-likelihood. The log-likelihoods drop
// data-only constant terms consistently, so values at different degrees
// are directly comparable within a mode, as required by the nested-model
// likelihood-ratio test used for automatic degree selection.
package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/asterope/bkgfit/poly"
)

// Method identifies the optimizer behind both fit modes. It is persisted
// with the fit state.
const Method = "nelder-mead"

// tinyRate floors the model rate inside likelihood evaluations; the
// Poisson likelihood is undefined for non-positive expectations.
const tinyRate = 1e-30

// evalPoly evaluates a coefficient vector at t using Horner's method.
func evalPoly(coeffs []float64, t float64) float64 {
	var v float64
	for i := len(coeffs) - 1; i >= 0; i-- {
		v = v*t + coeffs[i]
	}

	return v
}

// polyIntegral integrates a coefficient vector over [a, b].
func polyIntegral(coeffs []float64, a, b float64) float64 {
	var total float64
	for j, c := range coeffs {
		k := float64(j + 1)
		total += c * (math.Pow(b, k) - math.Pow(a, k)) / k
	}

	return total
}

// vandermonde builds the design matrix with rows (1, x, x^2, ..., x^degree).
func vandermonde(x []float64, degree int) *mat.Dense {
	m := mat.NewDense(len(x), degree+1, nil)
	for i, xi := range x {
		p := 1.0
		for j := 0; j <= degree; j++ {
			m.Set(i, j, p)
			p *= xi
		}
	}

	return m
}

// leastSquares solves the ordinary least-squares problem for y against a
// Vandermonde design in x via QR factorization. Used to seed the
// likelihood maximization.
func leastSquares(x, y []float64, degree int) ([]float64, error) {
	if len(x) < degree+1 {
		return nil, fmt.Errorf("need at least %d samples for degree %d, got %d",
			degree+1, degree, len(x))
	}

	a := vandermonde(x, degree)
	b := mat.NewDense(len(y), 1, y)
	c := mat.NewDense(degree+1, 1, nil)

	var qr mat.QR
	qr.Factorize(a)

	if err := qr.SolveTo(c, false, b); err != nil {
		return nil, fmt.Errorf("least-squares seed failed: %w", err)
	}

	coeffs := make([]float64, degree+1)
	for j := range coeffs {
		coeffs[j] = c.At(j, 0)
	}

	return coeffs, nil
}

// minimize runs a Nelder-Mead minimization of negLL from the seed.
func minimize(negLL func(x []float64) float64, seed []float64) ([]float64, float64, error) {
	problem := optimize.Problem{Func: negLL}

	result, err := optimize.Minimize(problem, seed, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, 0, fmt.Errorf("likelihood maximization failed: %w", err)
	}

	return result.X, result.F, nil
}

// covarianceAt estimates the coefficient covariance as the inverse of the
// numerical Hessian of negLL at the maximum-likelihood point. A singular
// Hessian (e.g. a channel with no counts) yields a zero covariance rather
// than an error.
func covarianceAt(negLL func(x []float64) float64, x []float64) *mat.SymDense {
	n := len(x)

	hess := mat.NewSymDense(n, nil)
	fd.Hessian(hess, negLL, x, nil)

	var inv mat.Dense
	if err := inv.Inverse(hess); err != nil {
		return mat.NewSymDense(n, nil)
	}

	cov := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			// Symmetrize; numerical inversion can leave tiny asymmetries.
			cov.SetSym(i, j, 0.5*(inv.At(i, j)+inv.At(j, i)))
		}
	}

	return cov
}

// finish packages the optimizer output into a Polynomial and the
// maximized log-likelihood.
func finish(negLL func(x []float64) float64, xmin []float64, fmin float64) (*poly.Polynomial, float64, error) {
	cov := covarianceAt(negLL, xmin)

	p, err := poly.FromFit(xmin, cov)
	if err != nil {
		return nil, 0, err
	}

	return p, -fmin, nil
}
