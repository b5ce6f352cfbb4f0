package series

import (
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/asterope/bkgfit/errs"
	"github.com/asterope/bkgfit/format"
	"github.com/asterope/bkgfit/interval"
	"github.com/asterope/bkgfit/poly"
	"github.com/asterope/bkgfit/store"
)

// FitFileExt is the extension of persisted background fit files.
const FitFileExt = ".bkg"

// normalizeFitPath forces the fit-file extension on path.
func normalizeFitPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + FitFileExt
}

// SaveBackground persists the current fit to path, forcing the ".bkg"
// extension. The saved file restores the exact fit: per-channel
// coefficients and covariances, the resolved degree, the background
// intervals, the fit mode, and the fit method.
//
// An existing destination fails with errs.ErrFileExists unless overwrite
// is set; see store.Write for the overwrite semantics.
func (s *Series) SaveBackground(path string, overwrite bool, opts ...store.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fitExists {
		return fmt.Errorf("cannot save background: %w", errs.ErrNoFit)
	}

	state := &store.State{
		Mode:           s.mode,
		Unbinned:       s.mode == format.FitModeUnbinned,
		Method:         s.method,
		Degree:         s.grade,
		IntervalStarts: s.polyIntrvls.Starts(),
		IntervalStops:  s.polyIntrvls.Stops(),
		Coefficients:   make([][]float64, len(s.polynomials)),
		Covariances:    make([][]float64, len(s.polynomials)),
	}

	for ch, p := range s.polynomials {
		coeffs := p.Coefficients()
		cov := p.Covariance()

		n := len(coeffs)
		flat := make([]float64, n*n)
		for r := range n {
			for c := range n {
				flat[r*n+c] = cov.At(r, c)
			}
		}

		state.Coefficients[ch] = coeffs
		state.Covariances[ch] = flat
	}

	path = normalizeFitPath(path)

	if err := store.Write(path, state, overwrite, opts...); err != nil {
		return err
	}

	s.logger.Info("saved fitted background", "path", path)

	return nil
}

// RestoreFit loads a previously saved fit from path, replacing any
// current fit without refitting. If an active time selection exists, its
// background-derived products are recomputed against the restored model,
// exactly as if the fit had just been performed.
func (s *Series) RestoreFit(path string) error {
	state, err := store.Read(path)
	if err != nil {
		return err
	}

	if len(state.Coefficients) != s.nChannels {
		return fmt.Errorf("fit state in %s has %d channels but the series has %d",
			path, len(state.Coefficients), s.nChannels)
	}

	polynomials := make([]*poly.Polynomial, s.nChannels)
	for ch, coeffs := range state.Coefficients {
		n := len(coeffs)
		cov := mat.NewSymDense(n, state.Covariances[ch])

		p, err := poly.FromFit(coeffs, cov)
		if err != nil {
			return fmt.Errorf("fit state in %s, channel %d: %w", path, ch, err)
		}
		polynomials[ch] = p
	}

	set, err := interval.FromStartsStops(state.IntervalStarts, state.IntervalStops)
	if err != nil {
		return fmt.Errorf("fit state in %s has invalid intervals: %w", path, err)
	}

	mode := format.FitModeBinned
	if state.Unbinned {
		mode = format.FitModeUnbinned
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.polynomials = polynomials
	s.grade = state.Degree
	s.gradeInfo = nil
	s.mode = mode
	s.method = state.Method
	s.polyIntrvls = set
	s.fitExists = true

	s.logger.Info("restored fitted background",
		"path", path, "order", s.grade, "mode", mode.String())

	if s.selectionExists {
		s.recomputeSelectionLocked()
	}

	return nil
}
