package series

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// maxGrade is the highest polynomial degree considered.
	maxGrade = 4

	// gradeThreshold is the fixed likelihood-ratio threshold for accepting
	// one additional polynomial degree. The value is inherited domain
	// policy and is deliberately not configurable.
	gradeThreshold = 9.0
)

// GradeResult reports an automatic polynomial degree selection.
//
// Degrees 0 through 4 are fit to the channel-summed data; each increment
// in degree is accepted only when it improves the fit significantly under
// a nested-model likelihood-ratio test. Deltas[k] is twice the
// log-likelihood improvement from degree k to k+1, and the selected grade
// is the largest k+1 whose Deltas[k] meets the threshold, or 0 when none
// does. This keeps a smoothly varying background from being overfit with
// spuriously high orders.
type GradeResult struct {
	// Grade is the selected polynomial degree.
	Grade int
	// LogLikelihoods holds the maximized log-likelihood at degrees 0..4.
	LogLikelihoods [maxGrade + 1]float64
	// Deltas holds the likelihood-ratio statistics for degrees 0->1
	// through 3->4.
	Deltas [maxGrade]float64
	// PValues holds the chi-square (1 dof) survival probability of each
	// delta, as a diagnostic; selection uses the fixed threshold only.
	PValues [maxGrade]float64
}

// SelectGrade runs the automatic degree selection. logLike must return
// the maximized log-likelihood of the channel-summed data at the given
// degree; values at different degrees must be directly comparable.
func SelectGrade(logLike func(degree int) (float64, error)) (GradeResult, error) {
	var result GradeResult

	for degree := 0; degree <= maxGrade; degree++ {
		ll, err := logLike(degree)
		if err != nil {
			return GradeResult{}, fmt.Errorf("grade selection at degree %d: %w", degree, err)
		}
		result.LogLikelihoods[degree] = ll
	}

	chi2 := distuv.ChiSquared{K: 1}

	for k := range maxGrade {
		delta := 2 * (result.LogLikelihoods[k+1] - result.LogLikelihoods[k])
		result.Deltas[k] = delta

		if delta > 0 {
			result.PValues[k] = chi2.Survival(delta)
		} else {
			result.PValues[k] = 1
		}

		// The chosen grade is the largest k+1 whose step is significant.
		if delta >= gradeThreshold {
			result.Grade = k + 1
		}
	}

	return result, nil
}
