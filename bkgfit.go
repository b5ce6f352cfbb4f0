// Package bkgfit estimates time-varying backgrounds of time-tagged,
// channel-tagged event streams by fitting low-order polynomials to
// user-selected background intervals, one polynomial per channel.
//
// The model family is polynomials of degree 0 through 4 fitted by
// Poisson maximum likelihood, either on histogrammed counts (binned) or
// directly on event arrival times (unbinned). The polynomial degree can
// be fixed by the caller or selected automatically with a likelihood
// ratio test across the nested family.
//
// # Core Features
//
//   - Binned and unbinned Poisson likelihood fits behind one interface
//   - Automatic polynomial degree selection via likelihood ratio test
//   - Interval validation with clipping and drop advisories
//   - Exact analytic integration of fitted models with error propagation
//   - Compact persisted fit files (None, Zstd, S2, LZ4 compression)
//     with digest-verified exact round trips
//   - Per-channel fits run concurrently with deterministic results
//
// # Basic Usage
//
// Fitting a background and integrating it over a span of interest:
//
//	import "github.com/asterope/bkgfit"
//
//	// Wrap an event stream: arrival times (sorted), channel labels,
//	// observation bounds, number of channels.
//	s, _ := bkgfit.NewSeries(times, channels, 0, 100, 4)
//
//	// Fit the background over two off-source intervals. The degree is
//	// selected automatically; advisories report clipped intervals.
//	advisories, err := s.SetPolynomialFitInterval(format.FitModeBinned, "-10-0", "50-100")
//
//	// Expected background counts over the on-source span.
//	counts, _ := s.TotalPolyCount(10, 30, nil)
//	sigma, _ := s.TotalPolyError(10, 30, nil)
//
// Persisting and restoring a fit:
//
//	_ = s.SaveBackground("run42", false) // writes run42.bkg
//
//	restored, _ := bkgfit.RestoreSeries("run42.bkg", times, channels, 0, 100, 4)
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the series
// package. For fine-grained control (exposure providers, explicit
// degrees, active selections, rate reports) use the series package
// directly; the fit, interval, store and binner packages expose the
// underlying building blocks.
package bkgfit

import (
	"github.com/asterope/bkgfit/series"
)

// NewSeries wraps an event stream for background fitting.
//
// Parameters:
//   - arrivalTimes: event arrival times, sorted ascending
//   - channels: per-event channel labels, same length as arrivalTimes
//   - startTime, stopTime: observation bounds, startTime < stopTime
//   - nChannels: number of channels in the stream
//   - opts: optional configuration (see series.Option)
//
// Available options:
//   - series.WithFirstChannel(first)
//   - series.WithExposureProvider(p)
//   - series.WithLogger(logger)
//   - series.WithInstrument(name) / series.WithMission(name)
//
// Returns an error if the stream is inconsistent: unsorted times,
// mismatched slice lengths, or channel labels outside the declared
// range.
func NewSeries(arrivalTimes []float64, channels []int, startTime, stopTime float64, nChannels int, opts ...series.Option) (*series.Series, error) {
	return series.New(arrivalTimes, channels, startTime, stopTime, nChannels, opts...)
}

// RestoreSeries wraps an event stream and loads a previously saved
// background fit into it in one step.
//
// The persisted fit must match the stream's channel count. The restored
// series reports model counts and rates exactly as the series that
// saved the fit would.
func RestoreSeries(path string, arrivalTimes []float64, channels []int, startTime, stopTime float64, nChannels int, opts ...series.Option) (*series.Series, error) {
	s, err := series.New(arrivalTimes, channels, startTime, stopTime, nChannels, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.RestoreFit(path); err != nil {
		return nil, err
	}

	return s, nil
}
