package series

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asterope/bkgfit/errs"
	"github.com/asterope/bkgfit/format"
	"github.com/asterope/bkgfit/store"
)

const (
	testEventCount = 10000
	testChannels   = 4
	testStopTime   = 100.0
)

// newFlatSeries builds a series with events spread evenly over
// [0, 100) and cycled over four channels, so every channel counts at a
// steady 25 per unit time.
func newFlatSeries(t *testing.T, opts ...Option) *Series {
	t.Helper()

	times := make([]float64, testEventCount)
	channels := make([]int, testEventCount)
	for i := range testEventCount {
		times[i] = testStopTime * float64(i) / testEventCount
		channels[i] = i % testChannels
	}

	s, err := New(times, channels, 0, testStopTime, testChannels, opts...)
	require.NoError(t, err)

	return s
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name     string
		times    []float64
		channels []int
		start    float64
		stop     float64
		n        int
	}{
		{"length mismatch", []float64{1, 2}, []int{0}, 0, 10, 4},
		{"unsorted times", []float64{2, 1}, []int{0, 0}, 0, 10, 4},
		{"channel out of range", []float64{1, 2}, []int{0, 4}, 0, 10, 4},
		{"negative channel", []float64{1, 2}, []int{0, -1}, 0, 10, 4},
		{"empty bounds", []float64{1, 2}, []int{0, 1}, 10, 10, 4},
		{"no channels", []float64{1, 2}, []int{0, 0}, 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.times, tt.channels, tt.start, tt.stop, tt.n)
			require.Error(t, err)
		})
	}
}

func TestNewWithFirstChannel(t *testing.T) {
	s, err := New([]float64{1, 2, 3}, []int{1, 2, 4}, 0, 10, 4, WithFirstChannel(1))
	require.NoError(t, err)
	require.Equal(t, 1, s.FirstChannel())

	// Channel 0 is below the first channel now.
	_, err = New([]float64{1}, []int{0}, 0, 10, 4, WithFirstChannel(1))
	require.Error(t, err)
}

func TestCountsAndExposure(t *testing.T) {
	s := newFlatSeries(t)

	require.Equal(t, testChannels, s.NChannels())
	require.InDelta(t, 10.0, s.ExposureOverInterval(20, 30), 1e-12)
	require.InDelta(t, 1000, float64(s.CountsOverInterval(20, 30)), 2)
}

func TestFitPreconditions(t *testing.T) {
	s := newFlatSeries(t)

	require.False(t, s.HasFit())

	_, err := s.PolyInfo()
	require.ErrorIs(t, err, errs.ErrNoFit)

	_, err = s.Polynomials()
	require.ErrorIs(t, err, errs.ErrNoFit)

	_, err = s.TotalPolyCount(0, 100, nil)
	require.ErrorIs(t, err, errs.ErrNoFit)

	_, err = s.SelectionRates(false)
	require.ErrorIs(t, err, errs.ErrNoSelection)
}

func TestBinnedFitFlatBackground(t *testing.T) {
	s := newFlatSeries(t)
	require.NoError(t, s.SetPolyOrder(0))

	// The first interval lies entirely before the series; it must be
	// dropped with an advisory while the fit proceeds on the second.
	advisories, err := s.SetPolynomialFitInterval(format.FitModeBinned, "-10-0", "50-100")
	require.NoError(t, err)
	require.Len(t, advisories, 1)
	require.True(t, advisories[0].Dropped())

	require.True(t, s.HasFit())

	set, err := s.PolyIntervals()
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	require.Equal(t, 50.0, set.Start())
	require.Equal(t, 100.0, set.Stop())

	info, err := s.PolyInfo()
	require.NoError(t, err)
	require.Equal(t, 0, info.Grade)
	require.Equal(t, format.FitModeBinned, info.Mode)
	require.Len(t, info.Coefficients, testChannels)

	// Flat 25 counts per unit time in every channel.
	for ch, coeffs := range info.Coefficients {
		require.Len(t, coeffs, 1)
		require.InDelta(t, 25.0, coeffs[0], 2.0, "channel %d", ch)
		require.Greater(t, info.Errors[ch][0], 0.0)
	}

	total, err := s.TotalPolyCount(0, testStopTime, nil)
	require.NoError(t, err)
	require.InDelta(t, float64(testEventCount), total, 500)

	totalErr, err := s.TotalPolyError(0, testStopTime, nil)
	require.NoError(t, err)
	require.Greater(t, totalErr, 0.0)

	// Explicit degree, so no selection diagnostics.
	grade, err := s.GradeInfo()
	require.NoError(t, err)
	require.Nil(t, grade)
}

func TestUnbinnedFitFlatBackground(t *testing.T) {
	s := newFlatSeries(t)
	require.NoError(t, s.SetPolyOrder(0))

	_, err := s.SetPolynomialFitInterval(format.FitModeUnbinned, "50-100")
	require.NoError(t, err)

	info, err := s.PolyInfo()
	require.NoError(t, err)
	require.Equal(t, format.FitModeUnbinned, info.Mode)
	for ch, coeffs := range info.Coefficients {
		require.InDelta(t, 25.0, coeffs[0], 2.0, "channel %d", ch)
	}
}

func TestAutomaticGradeOnFlatData(t *testing.T) {
	s := newFlatSeries(t)

	_, err := s.SetPolynomialFitInterval(format.FitModeBinned, "0-50", "80-100")
	require.NoError(t, err)

	degree, err := s.PolyOrder()
	require.NoError(t, err)
	require.Equal(t, 0, degree)

	grade, err := s.GradeInfo()
	require.NoError(t, err)
	require.NotNil(t, grade)
	require.Equal(t, 0, grade.Grade)
	for k := range grade.Deltas {
		require.Less(t, grade.Deltas[k], gradeThreshold)
	}
}

func TestEmptySelectionLeavesFitUntouched(t *testing.T) {
	s := newFlatSeries(t)
	require.NoError(t, s.SetPolyOrder(0))

	_, err := s.SetPolynomialFitInterval(format.FitModeBinned, "50-100")
	require.NoError(t, err)

	before, err := s.TotalPolyCount(0, testStopTime, nil)
	require.NoError(t, err)

	// All intervals fall outside the series bounds.
	_, err = s.SetPolynomialFitInterval(format.FitModeBinned, "-50--10")
	require.ErrorIs(t, err, errs.ErrEmptySelection)

	// The previous fit survives the failed replacement.
	require.True(t, s.HasFit())
	after, err := s.TotalPolyCount(0, testStopTime, nil)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestSetPolyOrder(t *testing.T) {
	s := newFlatSeries(t)

	require.ErrorIs(t, s.SetPolyOrder(5), errs.ErrInvalidDegree)
	require.ErrorIs(t, s.SetPolyOrder(-2), errs.ErrInvalidDegree)
	require.NoError(t, s.SetPolyOrder(-1))

	require.NoError(t, s.SetPolyOrder(0))
	_, err := s.SetPolynomialFitInterval(format.FitModeBinned, "50-100")
	require.NoError(t, err)

	// Raising the degree refits in place.
	require.NoError(t, s.SetPolyOrder(1))

	degree, err := s.PolyOrder()
	require.NoError(t, err)
	require.Equal(t, 1, degree)

	polys, err := s.Polynomials()
	require.NoError(t, err)
	for _, p := range polys {
		require.Equal(t, 1, p.Degree())
	}
}

func TestIntegratorDeterminism(t *testing.T) {
	s := newFlatSeries(t)
	require.NoError(t, s.SetPolyOrder(0))
	_, err := s.SetPolynomialFitInterval(format.FitModeBinned, "50-100")
	require.NoError(t, err)

	first, err := s.TotalPolyCount(10, 90, nil)
	require.NoError(t, err)
	second, err := s.TotalPolyCount(10, 90, nil)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// The total over all channels equals the sum of per-channel
	// integrals exactly.
	polys, err := s.Polynomials()
	require.NoError(t, err)

	var sum float64
	for _, p := range polys {
		sum += p.Integral(10, 90)
	}
	require.Equal(t, sum, first)
}

func TestIntegratorChannelMask(t *testing.T) {
	s := newFlatSeries(t)
	require.NoError(t, s.SetPolyOrder(0))
	_, err := s.SetPolynomialFitInterval(format.FitModeBinned, "50-100")
	require.NoError(t, err)

	all, err := s.TotalPolyCount(0, testStopTime, nil)
	require.NoError(t, err)

	one, err := s.TotalPolyCount(0, testStopTime, []bool{true, false, false, false})
	require.NoError(t, err)
	require.InDelta(t, all/testChannels, one, 100)

	_, err = s.TotalPolyCount(0, testStopTime, []bool{true, false})
	require.ErrorIs(t, err, errs.ErrChannelMask)
}

func TestActiveSelectionRates(t *testing.T) {
	s := newFlatSeries(t)

	advisories, err := s.SetActiveTimeIntervals("20-30")
	require.NoError(t, err)
	require.Empty(t, advisories)
	require.True(t, s.HasSelection())

	set, err := s.SelectionIntervals()
	require.NoError(t, err)
	require.InDelta(t, 10.0, set.Duration(), 1e-12)

	// Raw Poisson rates without a background model.
	rates, err := s.SelectionRates(false)
	require.NoError(t, err)
	require.True(t, rates.Poisson)
	require.Nil(t, rates.RateError)
	require.InDelta(t, 10.0, rates.Exposure, 1e-12)
	for ch := range testChannels {
		require.Equal(t, ch, rates.Channels[ch])
		require.InDelta(t, 25.0, rates.Rate[ch], 2.0)
	}

	_, err = s.SelectionRates(true)
	require.ErrorIs(t, err, errs.ErrNoFit)

	// Fitting after the selection recomputes the model counts.
	require.NoError(t, s.SetPolyOrder(0))
	_, err = s.SetPolynomialFitInterval(format.FitModeBinned, "50-100")
	require.NoError(t, err)

	rates, err = s.SelectionRates(true)
	require.NoError(t, err)
	require.False(t, rates.Poisson)
	require.NotNil(t, rates.RateError)
	for ch := range testChannels {
		require.InDelta(t, 25.0, rates.Rate[ch], 2.0)
		require.Greater(t, rates.RateError[ch], 0.0)
	}
}

func TestSelectionBeforeFit(t *testing.T) {
	s := newFlatSeries(t)
	require.NoError(t, s.SetPolyOrder(0))
	_, err := s.SetPolynomialFitInterval(format.FitModeBinned, "50-100")
	require.NoError(t, err)

	// Selecting after the fit also yields model rates immediately.
	_, err = s.SetActiveTimeIntervals("10-20", "30-40")
	require.NoError(t, err)

	rates, err := s.SelectionRates(true)
	require.NoError(t, err)
	require.InDelta(t, 20.0, rates.Exposure, 1e-12)
	for ch := range testChannels {
		require.InDelta(t, 25.0, rates.Rate[ch], 2.0)
	}
}

func TestSaveAndRestoreFit(t *testing.T) {
	s := newFlatSeries(t)
	require.NoError(t, s.SetPolyOrder(1))
	_, err := s.SetPolynomialFitInterval(format.FitModeBinned, "0-40", "60-100")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "flat")
	require.NoError(t, s.SaveBackground(path, false))

	// The extension is appended when missing.
	require.FileExists(t, path+FitFileExt)

	// Overwrite needs explicit authorization.
	err = s.SaveBackground(path, false)
	require.ErrorIs(t, err, errs.ErrFileExists)
	require.NoError(t, s.SaveBackground(path, true))

	restored := newFlatSeries(t)
	require.NoError(t, restored.RestoreFit(path+FitFileExt))
	require.True(t, restored.HasFit())

	want, err := s.PolyInfo()
	require.NoError(t, err)
	got, err := restored.PolyInfo()
	require.NoError(t, err)

	require.Equal(t, want.Grade, got.Grade)
	require.Equal(t, want.Mode, got.Mode)
	require.Equal(t, want.Method, got.Method)
	require.Equal(t, want.Intervals, got.Intervals)
	require.Equal(t, want.Coefficients, got.Coefficients)
	require.Equal(t, want.Errors, got.Errors)

	// Integrals agree bit for bit.
	wantTotal, err := s.TotalPolyCount(0, testStopTime, nil)
	require.NoError(t, err)
	gotTotal, err := restored.TotalPolyCount(0, testStopTime, nil)
	require.NoError(t, err)
	require.Equal(t, wantTotal, gotTotal)

	// Restored diagnostics carry no automatic selection record.
	grade, err := restored.GradeInfo()
	require.NoError(t, err)
	require.Nil(t, grade)
}

func TestRestoreFitChannelMismatch(t *testing.T) {
	s := newFlatSeries(t)
	require.NoError(t, s.SetPolyOrder(0))
	_, err := s.SetPolynomialFitInterval(format.FitModeBinned, "50-100")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "flat.bkg")
	require.NoError(t, s.SaveBackground(path, false))

	other, err := New([]float64{1, 2, 3}, []int{0, 1, 0}, 0, 10, 2)
	require.NoError(t, err)
	require.Error(t, other.RestoreFit(path))
	require.False(t, other.HasFit())
}

func TestSaveBackgroundCompressionOptions(t *testing.T) {
	s := newFlatSeries(t)
	require.NoError(t, s.SetPolyOrder(0))
	_, err := s.SetPolynomialFitInterval(format.FitModeBinned, "50-100")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "flat.bkg")
	require.NoError(t, s.SaveBackground(path, false, store.WithCompression(format.CompressionLZ4)))

	restored := newFlatSeries(t)
	require.NoError(t, restored.RestoreFit(path))
	require.True(t, restored.HasFit())
}
