package fit

import (
	"fmt"
	"math"

	"github.com/asterope/bkgfit/poly"
)

// Unbinned fits a polynomial rate model directly to raw event arrival
// times by maximizing the extended (event) likelihood.
//
// events holds the arrival times inside the fit intervals, starts/stops
// the interval boundaries, and exposure the total live time summed over
// those intervals. The predicted number of detected events is the
// integral of the rate over the intervals scaled by the live-time
// fraction exposure/duration, and the log-likelihood is
// sum_k ln r(t_k) - N_pred.
//
// The fit is seeded with a flat rate len(events)/exposure and refined by
// Nelder-Mead. An empty event slice is valid and fits a near-zero model.
func Unbinned(events []float64, degree int, starts, stops []float64, exposure float64) (*poly.Polynomial, float64, error) {
	if len(starts) == 0 || len(starts) != len(stops) {
		return nil, 0, fmt.Errorf("unbinned fit: invalid interval bounds (starts=%d stops=%d)",
			len(starts), len(stops))
	}
	if degree < 0 {
		return nil, 0, fmt.Errorf("unbinned fit: negative degree %d", degree)
	}
	if exposure <= 0 {
		return nil, 0, fmt.Errorf("unbinned fit: non-positive exposure %g", exposure)
	}

	var duration float64
	for i := range starts {
		if stops[i] <= starts[i] {
			return nil, 0, fmt.Errorf("unbinned fit: invalid interval %g-%g", starts[i], stops[i])
		}
		duration += stops[i] - starts[i]
	}

	liveFraction := exposure / duration

	seed := make([]float64, degree+1)
	seed[0] = float64(len(events)) / exposure

	negLL := func(x []float64) float64 {
		var predicted float64
		for i := range starts {
			predicted += polyIntegral(x, starts[i], stops[i])
		}
		predicted *= liveFraction

		ll := -predicted
		for _, t := range events {
			r := evalPoly(x, t)
			if r < tinyRate {
				r = tinyRate
			}
			ll += math.Log(r)
		}

		return -ll
	}

	xmin, fmin, err := minimize(negLL, seed)
	if err != nil {
		return nil, 0, err
	}

	return finish(negLL, xmin, fmin)
}
