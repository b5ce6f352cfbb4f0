package series

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// syntheticLikes builds a grade-selection callback from fixed
// log-likelihood values per degree.
func syntheticLikes(lls [maxGrade + 1]float64) func(int) (float64, error) {
	return func(degree int) (float64, error) {
		return lls[degree], nil
	}
}

func TestSelectGradeNoImprovement(t *testing.T) {
	result, err := SelectGrade(syntheticLikes([5]float64{0, 0.5, 1, 1.5, 2}))
	require.NoError(t, err)
	require.Equal(t, 0, result.Grade)
}

func TestSelectGradeSingleSignificantStep(t *testing.T) {
	// Exactly one delta crosses the threshold: degree k -> k+1 must be
	// selected as k+1.
	tests := []struct {
		k    int
		lls  [maxGrade + 1]float64
		want int
	}{
		{0, [5]float64{0, 5, 5.5, 6, 6.5}, 1},
		{1, [5]float64{0, 1, 6, 6.5, 7}, 2},
		{2, [5]float64{0, 1, 2, 7, 7.5}, 3},
		{3, [5]float64{0, 1, 2, 3, 8}, 4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("step%d", tt.k), func(t *testing.T) {
			result, err := SelectGrade(syntheticLikes(tt.lls))
			require.NoError(t, err)
			require.Equal(t, tt.want, result.Grade)
			require.GreaterOrEqual(t, result.Deltas[tt.k], gradeThreshold)
		})
	}
}

func TestSelectGradeQuadraticTrend(t *testing.T) {
	// D_0 and D_1 significant, D_2 and D_3 not: a true quadratic
	// background selects degree 2, not 0, 1, 3, or 4.
	result, err := SelectGrade(syntheticLikes([5]float64{0, 5, 10, 10.5, 11}))
	require.NoError(t, err)
	require.Equal(t, 2, result.Grade)
}

func TestSelectGradePicksLargestSignificantStep(t *testing.T) {
	// A non-significant step followed by a significant one: the selected
	// degree is the largest k+1 with Deltas[k] over threshold.
	result, err := SelectGrade(syntheticLikes([5]float64{0, 5, 6, 7, 12}))
	require.NoError(t, err)
	require.Equal(t, 4, result.Grade)
}

func TestSelectGradeThresholdBoundary(t *testing.T) {
	// Delta exactly 9.0 is accepted.
	result, err := SelectGrade(syntheticLikes([5]float64{0, 4.5, 5, 5.5, 6}))
	require.NoError(t, err)
	require.Equal(t, 9.0, result.Deltas[0])
	require.Equal(t, 1, result.Grade)

	// Just under the threshold is not.
	result, err = SelectGrade(syntheticLikes([5]float64{0, 4.4999, 5, 5.5, 6}))
	require.NoError(t, err)
	require.Equal(t, 0, result.Grade)
}

func TestSelectGradePValues(t *testing.T) {
	result, err := SelectGrade(syntheticLikes([5]float64{0, 5, 5.5, 5, 5.5}))
	require.NoError(t, err)

	// Delta 10: survival probability of chi-square(1) is about 0.0016.
	require.Greater(t, result.PValues[0], 0.0001)
	require.Less(t, result.PValues[0], 0.01)

	// A degraded likelihood reports p-value 1.
	require.Equal(t, 1.0, result.PValues[1])
}

func TestSelectGradePropagatesErrors(t *testing.T) {
	boom := fmt.Errorf("fit blew up")
	_, err := SelectGrade(func(degree int) (float64, error) {
		if degree == 3 {
			return 0, boom
		}

		return 0, nil
	})
	require.ErrorIs(t, err, boom)
}
