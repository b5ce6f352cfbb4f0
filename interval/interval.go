// Package interval provides ordered sets of disjoint time intervals and
// the validation used to turn user-specified fit windows into a usable
// fitting domain.
//
// Intervals can be built from typed (start, stop) pairs or parsed from
// "start-stop" strings, including negative bounds ("-10--5" is the
// interval from -10 to -5). ClipTo validates a set against the data
// bounds, clipping partly-outside intervals and dropping wholly-outside
// ones; each correction is reported as a non-fatal Advisory rather than
// an error, so a single bad window never aborts the whole operation.
package interval

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/asterope/bkgfit/errs"
)

// Interval is a single [Start, Stop] time window.
type Interval struct {
	Start float64
	Stop  float64
}

// New creates an interval, requiring stop > start.
func New(start, stop float64) (Interval, error) {
	if stop <= start {
		return Interval{}, fmt.Errorf("%w: got %g-%g", errs.ErrInvalidInterval, start, stop)
	}

	return Interval{Start: start, Stop: stop}, nil
}

// Duration returns the interval length.
func (iv Interval) Duration() float64 {
	return iv.Stop - iv.Start
}

// Contains reports whether t lies inside the interval, inclusive of both
// bounds.
func (iv Interval) Contains(t float64) bool {
	return t >= iv.Start && t <= iv.Stop
}

func (iv Interval) String() string {
	return fmt.Sprintf("%g-%g", iv.Start, iv.Stop)
}

// intervalPattern matches "start-stop" where either bound may be negative
// or in scientific notation.
var intervalPattern = regexp.MustCompile(
	`^\s*(-?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)\s*-\s*(-?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)\s*$`)

// Parse parses a single "start-stop" interval string.
func Parse(spec string) (Interval, error) {
	m := intervalPattern.FindStringSubmatch(spec)
	if m == nil {
		return Interval{}, fmt.Errorf("cannot parse interval %q: expected \"start-stop\"", spec)
	}

	start, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Interval{}, fmt.Errorf("cannot parse interval %q: %w", spec, err)
	}

	stop, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Interval{}, fmt.Errorf("cannot parse interval %q: %w", spec, err)
	}

	return New(start, stop)
}

// Set is an ordered collection of non-overlapping intervals.
//
// The zero value is an empty set. Sets are immutable once built; every
// operation returns a new Set.
type Set struct {
	intervals []Interval
}

// NewSet builds a set from intervals, sorting them by start time and
// rejecting overlaps. Intervals sharing a single boundary point are
// allowed.
func NewSet(intervals ...Interval) (Set, error) {
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].Stop {
			return Set{}, fmt.Errorf("%w: %s and %s",
				errs.ErrOverlappingIntervals, sorted[i-1], sorted[i])
		}
	}

	return Set{intervals: sorted}, nil
}

// FromStrings parses one or more "start-stop" interval strings into a set.
func FromStrings(specs ...string) (Set, error) {
	intervals := make([]Interval, 0, len(specs))
	for _, spec := range specs {
		iv, err := Parse(spec)
		if err != nil {
			return Set{}, err
		}
		intervals = append(intervals, iv)
	}

	return NewSet(intervals...)
}

// FromStartsStops builds a set from parallel start and stop slices.
func FromStartsStops(starts, stops []float64) (Set, error) {
	if len(starts) != len(stops) {
		return Set{}, fmt.Errorf("starts and stops have different lengths (%d vs %d)",
			len(starts), len(stops))
	}

	intervals := make([]Interval, 0, len(starts))
	for i := range starts {
		iv, err := New(starts[i], stops[i])
		if err != nil {
			return Set{}, err
		}
		intervals = append(intervals, iv)
	}

	return NewSet(intervals...)
}

// Len returns the number of intervals in the set.
func (s Set) Len() int {
	return len(s.intervals)
}

// IsEmpty reports whether the set contains no intervals.
func (s Set) IsEmpty() bool {
	return len(s.intervals) == 0
}

// At returns the i-th interval in start-time order.
func (s Set) At(i int) Interval {
	return s.intervals[i]
}

// Intervals returns a copy of the intervals in start-time order.
func (s Set) Intervals() []Interval {
	out := make([]Interval, len(s.intervals))
	copy(out, s.intervals)

	return out
}

// Starts returns the start times of all intervals, in order.
func (s Set) Starts() []float64 {
	out := make([]float64, len(s.intervals))
	for i, iv := range s.intervals {
		out[i] = iv.Start
	}

	return out
}

// Stops returns the stop times of all intervals, in order.
func (s Set) Stops() []float64 {
	out := make([]float64, len(s.intervals))
	for i, iv := range s.intervals {
		out[i] = iv.Stop
	}

	return out
}

// Start returns the earliest start time of the set.
func (s Set) Start() float64 {
	if len(s.intervals) == 0 {
		return 0
	}

	return s.intervals[0].Start
}

// Stop returns the latest stop time of the set.
func (s Set) Stop() float64 {
	if len(s.intervals) == 0 {
		return 0
	}

	return s.intervals[len(s.intervals)-1].Stop
}

// Duration returns the summed duration of all intervals.
func (s Set) Duration() float64 {
	var total float64
	for _, iv := range s.intervals {
		total += iv.Duration()
	}

	return total
}

// Contains reports whether t lies inside any interval of the set.
func (s Set) Contains(t float64) bool {
	for _, iv := range s.intervals {
		if iv.Contains(t) {
			return true
		}
	}

	return false
}

func (s Set) String() string {
	parts := make([]string, len(s.intervals))
	for i, iv := range s.intervals {
		parts[i] = iv.String()
	}

	return strings.Join(parts, ",")
}

// Advisory is a non-fatal diagnostic produced while validating a set
// against the data bounds.
type Advisory struct {
	// Original is the interval as the user specified it.
	Original Interval
	// Replacement is the clipped interval, or nil when the interval was
	// dropped entirely.
	Replacement *Interval
	// Message is a human-readable description of the correction.
	Message string
}

// Dropped reports whether the interval was removed rather than clipped.
func (a Advisory) Dropped() bool {
	return a.Replacement == nil
}

// ClipTo validates the set against the data bounds [lo, hi]. Intervals
// starting before lo or ending after hi are clipped to the bounds;
// intervals falling entirely outside are dropped. Every correction is
// reported as an Advisory. The returned set contains only intervals
// satisfying lo <= start < stop <= hi.
func (s Set) ClipTo(lo, hi float64) (Set, []Advisory) {
	var advisories []Advisory
	kept := make([]Interval, 0, len(s.intervals))

	for _, iv := range s.intervals {
		if iv.Stop <= lo || iv.Start >= hi {
			advisories = append(advisories, Advisory{
				Original: iv,
				Message: fmt.Sprintf(
					"interval %s is outside of the arrival times and will be dropped", iv),
			})

			continue
		}

		t1, t2 := iv.Start, iv.Stop

		if t1 < lo {
			advisories = append(advisories, Advisory{
				Original:    iv,
				Replacement: &Interval{Start: lo, Stop: t2},
				Message: fmt.Sprintf(
					"interval %s starts before the first arrival time (%g); using %g-%g",
					iv, lo, lo, t2),
			})
			t1 = lo
		}

		if t2 > hi {
			advisories = append(advisories, Advisory{
				Original:    iv,
				Replacement: &Interval{Start: t1, Stop: hi},
				Message: fmt.Sprintf(
					"interval %s ends after the last arrival time (%g); using %g-%g",
					iv, hi, t1, hi),
			})
			t2 = hi
		}

		kept = append(kept, Interval{Start: t1, Stop: t2})
	}

	return Set{intervals: kept}, advisories
}
