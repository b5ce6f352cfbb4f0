// Package store persists fitted background state to a compact binary
// container and restores it without refitting.
//
// A container holds, for every channel, the fitted polynomial
// coefficients and their covariance matrix, plus the fit metadata: the
// resolved polynomial degree, the background fit intervals, the fit mode,
// and the fit method identifier. The round trip is exact: coefficients
// and covariances are stored as raw float64 bit patterns, so Read
// reproduces Write's input bit for bit.
//
// The container is a fixed 40-byte header followed by a single payload
// holding three sections (coefficient table, covariance table, metadata).
// The payload carries an xxhash64 digest and may be compressed with any
// codec from the compress package; the header records which.
package store

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/asterope/bkgfit/compress"
	"github.com/asterope/bkgfit/errs"
	"github.com/asterope/bkgfit/format"
	"github.com/asterope/bkgfit/internal/options"
)

// State is the complete persisted fit state.
type State struct {
	// Mode records whether the fit was binned or unbinned.
	Mode format.FitMode
	// Unbinned mirrors Mode in the persisted metadata block.
	Unbinned bool
	// Method identifies the fit algorithm that produced the state.
	Method string
	// Degree is the resolved polynomial degree.
	Degree int
	// IntervalStarts and IntervalStops are the background fit interval
	// boundaries, parallel slices in start-time order.
	IntervalStarts []float64
	IntervalStops  []float64
	// Coefficients holds one coefficient vector per channel, constant
	// term first. Vectors may have different lengths.
	Coefficients [][]float64
	// Covariances holds one row-major n x n covariance matrix per
	// channel, where n is the length of that channel's coefficient
	// vector.
	Covariances [][]float64
}

func (s *State) validate() error {
	if !s.Mode.Valid() {
		return errs.ErrInvalidFitMode
	}
	if len(s.Coefficients) == 0 {
		return fmt.Errorf("state has no channels")
	}
	if len(s.Covariances) != len(s.Coefficients) {
		return fmt.Errorf("state has %d covariance matrices for %d channels",
			len(s.Covariances), len(s.Coefficients))
	}
	if len(s.IntervalStarts) != len(s.IntervalStops) {
		return fmt.Errorf("state has %d interval starts but %d stops",
			len(s.IntervalStarts), len(s.IntervalStops))
	}
	if s.Degree < 0 || s.Degree > 4 {
		return fmt.Errorf("%w: got %d", errs.ErrInvalidDegree, s.Degree)
	}

	for ch, coeffs := range s.Coefficients {
		if len(coeffs) == 0 {
			return fmt.Errorf("channel %d has no coefficients", ch)
		}
		if want := len(coeffs) * len(coeffs); len(s.Covariances[ch]) != want {
			return fmt.Errorf("channel %d covariance has %d elements, want %d",
				ch, len(s.Covariances[ch]), want)
		}
	}

	return nil
}

type config struct {
	compression format.Compression
	bigEndian   bool
}

// Option configures Write.
type Option = options.Option[*config]

// WithCompression selects the payload compression. The default is Zstd.
func WithCompression(c format.Compression) Option {
	return options.New(func(cfg *config) error {
		if !c.Valid() {
			return errs.ErrInvalidCompression
		}
		cfg.compression = c

		return nil
	})
}

// WithBigEndian writes the container in big-endian byte order.
func WithBigEndian() Option {
	return options.NoError(func(cfg *config) {
		cfg.bigEndian = true
	})
}

// Write persists the state to path.
//
// If the destination exists, Write fails with errs.ErrFileExists unless
// overwrite is set; with overwrite set, a destination that cannot be
// removed (e.g. permissions) is a fatal error before any byte is written,
// so an existing file is never partially overwritten.
func Write(path string, state *State, overwrite bool, opts ...Option) error {
	if err := state.validate(); err != nil {
		return fmt.Errorf("invalid fit state: %w", err)
	}

	cfg := &config{compression: format.CompressionZstd}
	if err := options.Apply(cfg, opts...); err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", errs.ErrFileExists, path)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("cannot remove existing file %s (check permissions): %w",
				path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot stat %s: %w", path, err)
	}

	flag := NewFlag(state.Mode, cfg.compression)
	if cfg.bigEndian {
		flag.SetBigEndian()
	}

	header := NewHeader(flag)
	payload := encodePayload(header, state, flag.EndianEngine())
	header.Digest = xxhash.Sum64(payload)

	codec, err := compress.ForType(cfg.compression)
	if err != nil {
		return err
	}

	compressed, err := codec.Compress(payload)
	if err != nil {
		return fmt.Errorf("cannot compress payload: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(header.Bytes()); err != nil {
		return fmt.Errorf("cannot write header to %s: %w", path, err)
	}
	if _, err := f.Write(compressed); err != nil {
		return fmt.Errorf("cannot write payload to %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("cannot close %s: %w", path, err)
	}

	return nil
}

// Read restores a fit state from path.
func Read(path string) (*State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var header Header
	if err := header.Parse(data); err != nil {
		return nil, fmt.Errorf("invalid fit state in %s: %w", path, err)
	}

	codec, err := compress.ForType(header.Flag.Compression)
	if err != nil {
		return nil, err
	}

	payload, err := codec.Decompress(data[HeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("cannot decompress payload of %s: %w", path, err)
	}

	if len(payload) != int(header.PayloadSize) {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d",
			errs.ErrShortPayload, len(payload), header.PayloadSize)
	}
	if digest := xxhash.Sum64(payload); digest != header.Digest {
		return nil, fmt.Errorf("%w in %s", errs.ErrDigestMismatch, path)
	}

	state, err := decodePayload(&header, payload)
	if err != nil {
		return nil, fmt.Errorf("invalid fit state in %s: %w", path, err)
	}

	return state, nil
}
