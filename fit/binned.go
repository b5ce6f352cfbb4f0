package fit

import (
	"fmt"
	"math"

	"github.com/asterope/bkgfit/poly"
)

// Binned fits a polynomial rate model to histogrammed counts by Poisson
// maximum likelihood.
//
// t holds the bin midpoint times, counts the observed counts per bin, and
// exposure the live time per bin. The expected counts in bin i are
// r(t_i) * exposure_i. The fit is seeded by an ordinary least-squares fit
// of the rate counts_i/exposure_i and refined by Nelder-Mead on the
// Poisson negative log-likelihood.
//
// Returns the fitted polynomial, and the maximized log-likelihood
// sum_i (n_i ln m_i - m_i), with the data-only ln(n_i!) terms dropped.
func Binned(t, counts, exposure []float64, degree int) (*poly.Polynomial, float64, error) {
	if len(t) == 0 {
		return nil, 0, fmt.Errorf("binned fit: no bins to fit")
	}
	if len(counts) != len(t) || len(exposure) != len(t) {
		return nil, 0, fmt.Errorf("binned fit: mismatched lengths (t=%d counts=%d exposure=%d)",
			len(t), len(counts), len(exposure))
	}
	if degree < 0 {
		return nil, 0, fmt.Errorf("binned fit: negative degree %d", degree)
	}

	// Seed from the rate in bins with live time.
	var st, sy []float64
	for i := range t {
		if exposure[i] > 0 {
			st = append(st, t[i])
			sy = append(sy, counts[i]/exposure[i])
		}
	}
	if len(st) < degree+1 {
		return nil, 0, fmt.Errorf("binned fit: only %d bins with exposure for degree %d",
			len(st), degree)
	}

	seed, err := leastSquares(st, sy, degree)
	if err != nil {
		return nil, 0, err
	}

	negLL := func(x []float64) float64 {
		var ll float64
		for i := range t {
			m := evalPoly(x, t[i]) * exposure[i]
			if m < tinyRate {
				m = tinyRate
			}
			if counts[i] > 0 {
				ll += counts[i] * math.Log(m)
			}
			ll -= m
		}

		return -ll
	}

	xmin, fmin, err := minimize(negLL, seed)
	if err != nil {
		return nil, 0, err
	}

	return finish(negLL, xmin, fmin)
}
