package series

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/asterope/bkgfit/errs"
	"github.com/asterope/bkgfit/fit"
	"github.com/asterope/bkgfit/format"
	"github.com/asterope/bkgfit/interval"
	"github.com/asterope/bkgfit/poly"
)

// fitBinWidth is the fixed width of the histogram bins used by the
// binned fit, in the same unit as the arrival times. Inherited domain
// policy, deliberately not configurable.
const fitBinWidth = 1.0

// backgroundSource is a fittable view of the event data restricted to
// the background intervals. The binned and unbinned fit paths differ
// only in how they turn events into regression samples, so both are
// strategies behind this interface and the surrounding flow (grade
// selection, per-channel loop) is shared.
type backgroundSource interface {
	// sumLogLike returns the maximized log-likelihood of the
	// channel-summed data at the given degree, for grade selection.
	sumLogLike(degree int) (float64, error)
	// fitChannel fits one channel at the given degree.
	fitChannel(channel, degree int) (*poly.Polynomial, error)
}

// selectEvents returns the arrival times and channel labels of events
// inside any of the background intervals.
func (s *Series) selectEvents(set interval.Set) (times []float64, channels []int) {
	for i, t := range s.arrivalTimes {
		if set.Contains(t) {
			times = append(times, t)
			channels = append(channels, s.channels[i])
		}
	}

	return times, channels
}

// binnedSource fits histogrammed counts per fixed-width time bin.
type binnedSource struct {
	selTimes    []float64
	selChannels []int

	binStart float64 // left edge of the first bin
	nBins    int

	// Retained bins: those whose midpoint falls inside a background
	// interval, so unselected stretches of the light curve are not fit
	// as zero counts.
	midTimes  []float64
	exposures []float64
	sumCounts []float64
	retained  []int
}

func (s *Series) newBinnedSource(set interval.Set) (*binnedSource, error) {
	src := &binnedSource{binStart: s.startTime}
	src.selTimes, src.selChannels = s.selectEvents(set)

	if len(src.selTimes) == 0 {
		return nil, fmt.Errorf("%w: no events in background intervals %s",
			errs.ErrEmptySelection, set)
	}

	src.nBins = int((s.stopTime - s.startTime) / fitBinWidth)
	if src.nBins < 1 {
		return nil, fmt.Errorf("data span %g-%g is shorter than the fit bin width",
			s.startTime, s.stopTime)
	}

	allCounts := src.histogram(src.selTimes, nil, 0)

	for i := range src.nBins {
		lo := s.startTime + float64(i)*fitBinWidth
		mid := lo + fitBinWidth/2

		if !set.Contains(mid) {
			continue
		}

		src.retained = append(src.retained, i)
		src.midTimes = append(src.midTimes, mid)
		src.exposures = append(src.exposures, s.exposure.ExposureOverInterval(lo, lo+fitBinWidth))
		src.sumCounts = append(src.sumCounts, allCounts[i])
	}

	if len(src.retained) == 0 {
		return nil, fmt.Errorf("%w: no fit bins inside background intervals %s",
			errs.ErrEmptySelection, set)
	}

	return src, nil
}

// histogram bins the given times; when channels is non-nil only events
// with the matching channel label are counted.
func (src *binnedSource) histogram(times []float64, channels []int, channel int) []float64 {
	counts := make([]float64, src.nBins)
	for i, t := range times {
		if channels != nil && channels[i] != channel {
			continue
		}

		idx := int(math.Floor((t - src.binStart) / fitBinWidth))
		if idx >= 0 && idx < src.nBins {
			counts[idx]++
		}
	}

	return counts
}

func (src *binnedSource) sumLogLike(degree int) (float64, error) {
	_, logLike, err := fit.Binned(src.midTimes, src.sumCounts, src.exposures, degree)

	return logLike, err
}

func (src *binnedSource) fitChannel(channel, degree int) (*poly.Polynomial, error) {
	all := src.histogram(src.selTimes, src.selChannels, channel)

	counts := make([]float64, len(src.retained))
	for i, bin := range src.retained {
		counts[i] = all[bin]
	}

	p, _, err := fit.Binned(src.midTimes, counts, src.exposures, degree)

	return p, err
}

// unbinnedSource fits raw arrival times via the event likelihood.
type unbinnedSource struct {
	selTimes    []float64
	selChannels []int

	starts   []float64
	stops    []float64
	exposure float64
}

func (s *Series) newUnbinnedSource(set interval.Set) (*unbinnedSource, error) {
	src := &unbinnedSource{
		starts: set.Starts(),
		stops:  set.Stops(),
	}
	src.selTimes, src.selChannels = s.selectEvents(set)

	if len(src.selTimes) == 0 {
		return nil, fmt.Errorf("%w: no events in background intervals %s",
			errs.ErrEmptySelection, set)
	}

	for _, iv := range set.Intervals() {
		src.exposure += s.exposure.ExposureOverInterval(iv.Start, iv.Stop)
	}

	if src.exposure <= 0 {
		return nil, fmt.Errorf("%w: background intervals %s have no exposure",
			errs.ErrEmptySelection, set)
	}

	return src, nil
}

func (src *unbinnedSource) sumLogLike(degree int) (float64, error) {
	_, logLike, err := fit.Unbinned(src.selTimes, degree, src.starts, src.stops, src.exposure)

	return logLike, err
}

func (src *unbinnedSource) fitChannel(channel, degree int) (*poly.Polynomial, error) {
	var events []float64
	for i, t := range src.selTimes {
		if src.selChannels[i] == channel {
			events = append(events, t)
		}
	}

	p, _, err := fit.Unbinned(events, degree, src.starts, src.stops, src.exposure)

	return p, err
}

// SetPolynomialFitInterval selects the background fit intervals and fits
// the background polynomials in the given mode.
//
// Interval strings use the "start-stop" form, e.g. "-10.0-0.0","10.-15.".
// Intervals reaching outside the data bounds are clipped or dropped with
// non-fatal advisories, which are both logged and returned. A successful
// call replaces any previous fit entirely; if an active time selection
// exists it is recomputed against the new background model. On error the
// previous fit state is left untouched.
func (s *Series) SetPolynomialFitInterval(mode format.FitMode, specs ...string) ([]interval.Advisory, error) {
	set, err := interval.FromStrings(specs...)
	if err != nil {
		return nil, err
	}

	return s.SetPolynomialFitIntervalSet(set, mode)
}

// SetPolynomialFitIntervalSet is SetPolynomialFitInterval with a typed
// interval set.
func (s *Series) SetPolynomialFitIntervalSet(set interval.Set, mode format.FitMode) ([]interval.Advisory, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %d", errs.ErrInvalidFitMode, mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clipped, advisories := set.ClipTo(s.startTime, s.stopTime)
	for _, adv := range advisories {
		s.logger.Warn(adv.Message, "instrument", s.instrument)
	}

	if clipped.IsEmpty() {
		return advisories, fmt.Errorf("%w: no background intervals remain within %g-%g",
			errs.ErrEmptySelection, s.startTime, s.stopTime)
	}

	if err := s.refitLocked(clipped, mode); err != nil {
		return advisories, err
	}

	return advisories, nil
}

// refitLocked fits the background over the given (already clipped)
// intervals and installs the result. Caller holds s.mu.
func (s *Series) refitLocked(set interval.Set, mode format.FitMode) error {
	var (
		src backgroundSource
		err error
	)

	switch mode {
	case format.FitModeBinned:
		src, err = s.newBinnedSource(set)
	case format.FitModeUnbinned:
		src, err = s.newUnbinnedSource(set)
	default:
		return fmt.Errorf("%w: %d", errs.ErrInvalidFitMode, mode)
	}
	if err != nil {
		return err
	}

	grade := s.userDegree
	var gradeInfo *GradeResult

	if grade < 0 {
		result, err := SelectGrade(src.sumLogLike)
		if err != nil {
			return err
		}

		grade = result.Grade
		gradeInfo = &result

		s.logger.Info("auto-determined polynomial order",
			"order", grade, "instrument", s.instrument)
	}

	polynomials, err := s.fitAllChannels(src, grade)
	if err != nil {
		return err
	}

	// Install the new fit wholesale.
	s.polynomials = polynomials
	s.grade = grade
	s.gradeInfo = gradeInfo
	s.mode = mode
	s.method = fit.Method
	s.polyIntrvls = set
	s.fitExists = true

	s.logger.Info("background fit complete",
		"mode", mode.String(), "order", grade, "method", s.method,
		"instrument", s.instrument, "mission", s.mission)

	if s.selectionExists {
		// The background model changed, so the selection-derived counts
		// must never go stale.
		s.recomputeSelectionLocked()
	}

	return nil
}

// fitAllChannels fits every channel at the resolved degree. The channel
// fits are independent given the shared source, so they run concurrently;
// results are written into a slice indexed by channel so the output order
// is deterministic.
func (s *Series) fitAllChannels(src backgroundSource, degree int) ([]*poly.Polynomial, error) {
	polynomials := make([]*poly.Polynomial, s.nChannels)
	fitErrs := make([]error, s.nChannels)

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup

	for i := range s.nChannels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			polynomials[i], fitErrs[i] = src.fitChannel(s.firstChannel+i, degree)
		}()
	}
	wg.Wait()

	for i, err := range fitErrs {
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", s.firstChannel+i, err)
		}
	}

	return polynomials, nil
}
