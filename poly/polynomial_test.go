package poly

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/mat"
)

func TestEval(t *testing.T) {
	// r(t) = 2 + 3t + t^2
	p := New(2, 3, 1)

	require.Equal(t, 2, p.Degree())
	require.InDelta(t, 2.0, p.Eval(0), 1e-12)
	require.InDelta(t, 6.0, p.Eval(1), 1e-12)
	require.InDelta(t, 12.0, p.Eval(2), 1e-12)
	require.InDelta(t, 0.0, p.Eval(-1), 1e-12)
}

func TestIntegral(t *testing.T) {
	tests := []struct {
		name   string
		coeffs []float64
		a, b   float64
		want   float64
	}{
		{"constant", []float64{5}, 0, 10, 50},
		{"linear", []float64{0, 2}, 0, 3, 9},
		{"quadratic", []float64{1, 0, 3}, 0, 2, 10},
		{"negative bounds", []float64{0, 2}, -3, 0, -9},
		{"empty window", []float64{5}, 4, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.coeffs...)
			require.InDelta(t, tt.want, p.Integral(tt.a, tt.b), 1e-10)
		})
	}
}

func TestIntegralErrorConstantModel(t *testing.T) {
	// A constant rate with var(c0) = sigma^2 has integral error
	// sigma * (b - a).
	cov := mat.NewSymDense(1, []float64{0.25})
	p, err := FromFit([]float64{5}, cov)
	require.NoError(t, err)

	require.InDelta(t, 0.5*10, p.IntegralError(0, 10), 1e-10)
}

func TestIntegralErrorQuadraticForm(t *testing.T) {
	// Linear model over [0, 2]: g = (2, 2). With identity covariance the
	// variance is g'g = 8.
	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	p, err := FromFit([]float64{1, 1}, cov)
	require.NoError(t, err)

	require.InDelta(t, math.Sqrt(8), p.IntegralError(0, 2), 1e-10)
}

func TestIntegralErrorZeroCovariance(t *testing.T) {
	p := New(3, 1)
	require.Equal(t, 0.0, p.IntegralError(0, 100))
}

func TestFromFitValidation(t *testing.T) {
	_, err := FromFit(nil, nil)
	require.Error(t, err)

	_, err = FromFit([]float64{1, 2}, mat.NewSymDense(3, nil))
	require.Error(t, err)

	p, err := FromFit([]float64{1, 2}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, p.Degree())
}

func TestImmutability(t *testing.T) {
	coeffs := []float64{1, 2}
	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})

	p, err := FromFit(coeffs, cov)
	require.NoError(t, err)

	coeffs[0] = 99
	cov.SetSym(0, 0, 99)

	require.Equal(t, []float64{1, 2}, p.Coefficients())
	require.Equal(t, 1.0, p.Covariance().At(0, 0))

	// Accessors return copies as well.
	p.Coefficients()[1] = 42
	require.Equal(t, []float64{1, 2}, p.Coefficients())
}

func TestCoefficientErrors(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{4, 0, 0, 9})
	p, err := FromFit([]float64{1, 2}, cov)
	require.NoError(t, err)

	require.Equal(t, []float64{2, 3}, p.CoefficientErrors())
}
