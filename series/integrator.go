package series

import (
	"fmt"
	"math"

	"github.com/asterope/bkgfit/errs"
	"github.com/asterope/bkgfit/poly"
)

// Integrator answers background integral queries against a completed
// fit. It holds an immutable snapshot of the per-channel models, so it
// stays valid (for the fit it was taken from) even if the Series refits.
//
// External consumers such as temporal binners receive their background
// rate callbacks from here.
type Integrator struct {
	polynomials []*poly.Polynomial
}

// Integrator returns an integral-query view of the current fit. Calling
// it before a fit exists is an error.
func (s *Series) Integrator() (*Integrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fitExists {
		return nil, errs.ErrNoFit
	}

	polynomials := make([]*poly.Polynomial, len(s.polynomials))
	copy(polynomials, s.polynomials)

	return &Integrator{polynomials: polynomials}, nil
}

// checkMask validates a channel mask; nil selects all channels.
func (it *Integrator) checkMask(mask []bool) error {
	if mask != nil && len(mask) != len(it.polynomials) {
		return fmt.Errorf("%w: mask has %d entries for %d channels",
			errs.ErrChannelMask, len(mask), len(it.polynomials))
	}

	return nil
}

// TotalCount returns the expected background counts in [a, b], summed
// over the selected channels.
func (it *Integrator) TotalCount(a, b float64, mask []bool) (float64, error) {
	if err := it.checkMask(mask); err != nil {
		return 0, err
	}

	var total float64
	for i, p := range it.polynomials {
		if mask != nil && !mask[i] {
			continue
		}
		total += p.Integral(a, b)
	}

	return total, nil
}

// TotalCountError returns the standard error of TotalCount(a, b): the
// per-channel integral errors added in quadrature.
func (it *Integrator) TotalCountError(a, b float64, mask []bool) (float64, error) {
	if err := it.checkMask(mask); err != nil {
		return 0, err
	}

	var sumSq float64
	for i, p := range it.polynomials {
		if mask != nil && !mask[i] {
			continue
		}
		e := p.IntegralError(a, b)
		sumSq += e * e
	}

	return math.Sqrt(sumSq), nil
}

// TotalPolyCount returns the expected background counts in [a, b] over
// the masked channels of the current fit.
func (s *Series) TotalPolyCount(a, b float64, mask []bool) (float64, error) {
	it, err := s.Integrator()
	if err != nil {
		return 0, err
	}

	return it.TotalCount(a, b, mask)
}

// TotalPolyError returns the standard error of TotalPolyCount.
func (s *Series) TotalPolyError(a, b float64, mask []bool) (float64, error) {
	it, err := s.Integrator()
	if err != nil {
		return 0, err
	}

	return it.TotalCountError(a, b, mask)
}
