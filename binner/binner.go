// Package binner builds time bin edges over event arrival streams.
//
// Three strategies are provided: constant-width cadence, caller-supplied
// custom edges, and greedy forward binning to a target detection
// significance against a background model.
package binner

import (
	"fmt"
	"math"

	"github.com/asterope/bkgfit/errs"
	"github.com/asterope/bkgfit/interval"
)

// Bin is one half-open time bin [Start, Stop) with its event count.
type Bin struct {
	Start  float64
	Stop   float64
	Counts int
}

// Interval returns the bin edges as an interval.
func (b Bin) Interval() interval.Interval {
	return interval.Interval{Start: b.Start, Stop: b.Stop}
}

// Width returns the bin duration.
func (b Bin) Width() float64 {
	return b.Stop - b.Start
}

func checkSorted(events []float64) error {
	for i := 1; i < len(events); i++ {
		if events[i] < events[i-1] {
			return fmt.Errorf("event %d at %g precedes event %d at %g", i, events[i], i-1, events[i-1])
		}
	}

	return nil
}

// count returns the number of events in [start, stop). The event slice
// must be sorted.
func count(events []float64, start, stop float64) int {
	n := 0
	for _, t := range events {
		if t >= stop {
			break
		}
		if t >= start {
			n++
		}
	}

	return n
}

// ByConstant bins the span [start, stop) into constant-width bins of
// width dt, counting the given events into each. The final bin is
// shortened to end exactly at stop when dt does not divide the span.
func ByConstant(events []float64, start, stop, dt float64) ([]Bin, error) {
	if stop <= start {
		return nil, fmt.Errorf("bin span %g-%g: %w", start, stop, errs.ErrInvalidInterval)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("bin width %g must be positive", dt)
	}
	if err := checkSorted(events); err != nil {
		return nil, err
	}

	nBins := int(math.Ceil((stop - start) / dt))
	bins := make([]Bin, 0, nBins)
	for i := range nBins {
		lo := start + float64(i)*dt
		hi := min(lo+dt, stop)
		bins = append(bins, Bin{Start: lo, Stop: hi, Counts: count(events, lo, hi)})
	}

	return bins, nil
}

// ByCustom counts events into caller-supplied bin edges. Edges are
// validated the same way fit intervals are: each stop must exceed its
// start and bins must not overlap.
func ByCustom(events []float64, starts, stops []float64) ([]Bin, error) {
	set, err := interval.FromStartsStops(starts, stops)
	if err != nil {
		return nil, err
	}
	if err := checkSorted(events); err != nil {
		return nil, err
	}

	bins := make([]Bin, set.Len())
	for i, iv := range set.Intervals() {
		bins[i] = Bin{Start: iv.Start, Stop: iv.Stop, Counts: count(events, iv.Start, iv.Stop)}
	}

	return bins, nil
}

// BackgroundFunc reports expected background counts (or their error)
// over a time span. The integrator methods of a fitted series satisfy
// this shape directly.
type BackgroundFunc func(start, stop float64) (float64, error)

// BySignificance walks the events forward, growing each bin until its
// excess over the modeled background reaches the target Gaussian
// significance and the bin holds at least minCounts events. The
// trailing events that never reach the target are dropped.
//
// The significance of a bin with n counted events, b expected
// background counts and background error e is (n-b)/sqrt(b+e*e).
func BySignificance(events []float64, bkg, bkgErr BackgroundFunc, sigma float64, minCounts int) ([]Bin, error) {
	if bkg == nil || bkgErr == nil {
		return nil, errs.ErrNoFit
	}
	if sigma <= 0 {
		return nil, fmt.Errorf("target significance %g must be positive", sigma)
	}
	if err := checkSorted(events); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	var bins []Bin

	binStart := events[0]
	counts := 0
	for i := range events {
		counts++
		if counts < minCounts || i+1 == len(events) {
			continue
		}

		// Close the candidate bin at the next arrival so the current
		// event is counted inside it.
		stop := events[i+1]

		b, err := bkg(binStart, stop)
		if err != nil {
			return nil, fmt.Errorf("background model over %g-%g: %w", binStart, stop, err)
		}
		e, err := bkgErr(binStart, stop)
		if err != nil {
			return nil, fmt.Errorf("background error over %g-%g: %w", binStart, stop, err)
		}

		variance := b + e*e
		if variance <= 0 {
			continue
		}
		if (float64(counts)-b)/math.Sqrt(variance) < sigma {
			continue
		}

		bins = append(bins, Bin{Start: binStart, Stop: stop, Counts: counts})
		binStart = stop
		counts = 0
	}

	return bins, nil
}
