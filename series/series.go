// Package series provides the orchestrating container for a time-tagged,
// channel-tagged event stream: background interval selection, per-channel
// polynomial background fitting with automatic degree selection,
// background integral queries, active-selection bookkeeping, and exact
// persistence of fitted state.
//
// A Series owns its event data and all fit state; it is mutated only by
// its own methods, and a refit fully replaces the previous fit. The
// per-channel regressions inside a fit run concurrently, but results are
// always installed in channel order and a mutex keeps at most one fit in
// flight per Series.
package series

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/asterope/bkgfit/errs"
	"github.com/asterope/bkgfit/format"
	"github.com/asterope/bkgfit/internal/options"
	"github.com/asterope/bkgfit/interval"
	"github.com/asterope/bkgfit/poly"
)

// ExposureProvider supplies the live time accumulated over a time window.
// Implementations are mission specific (deadtime models vary by
// instrument); the returned value must be non-negative and defined for
// any a <= b within the data bounds.
type ExposureProvider interface {
	ExposureOverInterval(a, b float64) float64
}

// IdealExposure is the default ExposureProvider: no deadtime, so the
// exposure of a window equals its duration.
type IdealExposure struct{}

func (IdealExposure) ExposureOverInterval(a, b float64) float64 {
	return b - a
}

// Series is the orchestrating state holder for one event stream.
type Series struct {
	mu sync.Mutex

	arrivalTimes []float64
	channels     []int

	startTime    float64
	stopTime     float64
	nChannels    int
	firstChannel int

	instrument string
	mission    string

	exposure ExposureProvider
	logger   *slog.Logger

	// Fit state; replaced wholesale by every successful fit or restore.
	userDegree  int
	fitExists   bool
	grade       int
	gradeInfo   *GradeResult
	mode        format.FitMode
	method      string
	polyIntrvls interval.Set
	polynomials []*poly.Polynomial

	// Active selection state.
	selectionExists bool
	selIntervals    interval.Set
	selExposure     float64
	selCounts       []float64
	polyCounts      []float64
	polyCountErrs   []float64
}

// Option configures a Series at construction.
type Option = options.Option[*Series]

// WithFirstChannel sets the index of the first channel (default 0).
func WithFirstChannel(first int) Option {
	return options.NoError(func(s *Series) {
		s.firstChannel = first
	})
}

// WithExposureProvider sets the deadtime-aware exposure source
// (default IdealExposure).
func WithExposureProvider(p ExposureProvider) Option {
	return options.New(func(s *Series) error {
		if p == nil {
			return fmt.Errorf("exposure provider must not be nil")
		}
		s.exposure = p

		return nil
	})
}

// WithLogger sets the logger receiving non-fatal diagnostics
// (default slog.Default).
func WithLogger(logger *slog.Logger) Option {
	return options.New(func(s *Series) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		s.logger = logger

		return nil
	})
}

// WithInstrument sets the instrument label used in log output.
func WithInstrument(name string) Option {
	return options.NoError(func(s *Series) {
		s.instrument = name
	})
}

// WithMission sets the mission label used in log output.
func WithMission(name string) Option {
	return options.NoError(func(s *Series) {
		s.mission = name
	})
}

// New creates a Series over the given event stream.
//
// arrivalTimes must be monotonically non-decreasing and channels holds
// one channel label per event. Events lie in [startTime, stopTime) and
// channel labels in [firstChannel, firstChannel+nChannels). Both slices
// are copied; the stream is immutable once ingested.
func New(arrivalTimes []float64, channels []int, startTime, stopTime float64, nChannels int, opts ...Option) (*Series, error) {
	if nChannels <= 0 {
		return nil, fmt.Errorf("number of channels must be positive, got %d", nChannels)
	}
	if stopTime <= startTime {
		return nil, fmt.Errorf("stop time %g must be after start time %g", stopTime, startTime)
	}
	if len(arrivalTimes) != len(channels) {
		return nil, fmt.Errorf("%d arrival times but %d channel labels",
			len(arrivalTimes), len(channels))
	}

	s := &Series{
		arrivalTimes: append([]float64(nil), arrivalTimes...),
		channels:     append([]int(nil), channels...),
		startTime:    startTime,
		stopTime:     stopTime,
		nChannels:    nChannels,
		instrument:   "UNKNOWN",
		mission:      "UNKNOWN",
		exposure:     IdealExposure{},
		logger:       slog.Default(),
		userDegree:   -1,
	}

	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	for i, t := range s.arrivalTimes {
		if i > 0 && t < s.arrivalTimes[i-1] {
			return nil, fmt.Errorf("arrival times are not sorted at index %d", i)
		}
		if ch := s.channels[i]; ch < s.firstChannel || ch >= s.firstChannel+s.nChannels {
			return nil, fmt.Errorf("event %d has channel %d outside [%d, %d)",
				i, ch, s.firstChannel, s.firstChannel+s.nChannels)
		}
	}

	return s, nil
}

// NChannels returns the number of channels.
func (s *Series) NChannels() int {
	return s.nChannels
}

// FirstChannel returns the label of the first channel.
func (s *Series) FirstChannel() int {
	return s.firstChannel
}

// StartTime returns the lower data bound.
func (s *Series) StartTime() float64 {
	return s.startTime
}

// StopTime returns the upper data bound.
func (s *Series) StopTime() float64 {
	return s.stopTime
}

// ArrivalTimes returns a copy of the event arrival times.
func (s *Series) ArrivalTimes() []float64 {
	return append([]float64(nil), s.arrivalTimes...)
}

// Channels returns a copy of the per-event channel labels.
func (s *Series) Channels() []int {
	return append([]int(nil), s.channels...)
}

// ExposureOverInterval returns the live time over [a, b] from the
// configured exposure provider.
func (s *Series) ExposureOverInterval(a, b float64) float64 {
	return s.exposure.ExposureOverInterval(a, b)
}

// CountsOverInterval returns the number of events with a <= t <= b.
func (s *Series) CountsOverInterval(a, b float64) int {
	var n int
	for _, t := range s.arrivalTimes {
		if t >= a && t <= b {
			n++
		}
	}

	return n
}

// HasFit reports whether a polynomial fit exists.
func (s *Series) HasFit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fitExists
}

// HasSelection reports whether an active time selection exists.
func (s *Series) HasSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selectionExists
}

// PolyOrder returns the resolved polynomial degree of the current fit.
func (s *Series) PolyOrder() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fitExists {
		return 0, errs.ErrNoFit
	}

	return s.grade, nil
}

// SetPolyOrder sets the polynomial degree used by fits: 0 through 4, or
// -1 to select the degree automatically. If a fit already exists it is
// redone immediately with the stored intervals and mode.
func (s *Series) SetPolyOrder(degree int) error {
	if degree < -1 || degree > maxGrade {
		return fmt.Errorf("%w: got %d", errs.ErrInvalidDegree, degree)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.userDegree = degree

	if !s.fitExists {
		return nil
	}

	s.logger.Info("refitting background with new polynomial order",
		"order", degree, "intervals", s.polyIntrvls.String())

	return s.refitLocked(s.polyIntrvls, s.mode)
}

// Polynomials returns the fitted per-channel models in channel order.
func (s *Series) Polynomials() ([]*poly.Polynomial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fitExists {
		return nil, errs.ErrNoFit
	}

	out := make([]*poly.Polynomial, len(s.polynomials))
	copy(out, s.polynomials)

	return out, nil
}

// PolyIntervals returns the background intervals of the current fit.
func (s *Series) PolyIntervals() (interval.Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fitExists {
		return interval.Set{}, errs.ErrNoFit
	}

	return s.polyIntrvls, nil
}

// GradeInfo returns the automatic degree selection diagnostics of the
// current fit, or nil when the degree was supplied explicitly.
func (s *Series) GradeInfo() (*GradeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fitExists {
		return nil, errs.ErrNoFit
	}

	return s.gradeInfo, nil
}

// PolyInfo summarizes the current fit: per-channel coefficients and
// their standard errors, plus the fit metadata.
type PolyInfo struct {
	Grade        int
	Mode         format.FitMode
	Method       string
	Intervals    []interval.Interval
	Coefficients [][]float64
	Errors       [][]float64
}

// PolyInfo returns the fit summary. Calling it before a fit exists is an
// error.
func (s *Series) PolyInfo() (*PolyInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fitExists {
		return nil, errs.ErrNoFit
	}

	info := &PolyInfo{
		Grade:        s.grade,
		Mode:         s.mode,
		Method:       s.method,
		Intervals:    s.polyIntrvls.Intervals(),
		Coefficients: make([][]float64, len(s.polynomials)),
		Errors:       make([][]float64, len(s.polynomials)),
	}

	for i, p := range s.polynomials {
		info.Coefficients[i] = p.Coefficients()
		info.Errors[i] = p.CoefficientErrors()
	}

	return info, nil
}
