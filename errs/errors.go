// Package errs defines the sentinel errors shared across the bkgfit
// packages. Callers can match them with errors.Is even when wrapped with
// additional context.
package errs

import "errors"

// Precondition and configuration errors.
var (
	// ErrNoFit is returned when fit products are requested before any
	// polynomial fit has been performed or restored.
	ErrNoFit = errors.New("no polynomial fit exists")

	// ErrNoSelection is returned when selection products are requested
	// before an active time selection has been set.
	ErrNoSelection = errors.New("no active time selection exists")

	// ErrEmptySelection is returned when a fit is attempted on a
	// background interval set that retained no data.
	ErrEmptySelection = errors.New("background selection is empty")

	// ErrInvalidDegree is returned for polynomial degrees outside [-1, 4].
	ErrInvalidDegree = errors.New("polynomial degree must be between -1 (auto) and 4")

	// ErrChannelMask is returned when a channel mask length does not match
	// the number of channels.
	ErrChannelMask = errors.New("channel mask length does not match channel count")
)

// Interval errors.
var (
	// ErrInvalidInterval is returned when an interval stop does not lie
	// strictly after its start.
	ErrInvalidInterval = errors.New("interval stop must be greater than start")

	// ErrOverlappingIntervals is returned when intervals in a set overlap.
	ErrOverlappingIntervals = errors.New("intervals overlap")
)

// Persistence errors.
var (
	// ErrInvalidHeaderSize is returned when a stored header is truncated.
	ErrInvalidHeaderSize = errors.New("invalid header size")

	// ErrBadMagic is returned when a stored header does not carry the
	// fit-state magic number.
	ErrBadMagic = errors.New("bad magic number in header")

	// ErrInvalidFitMode is returned for an unknown fit mode in a header.
	ErrInvalidFitMode = errors.New("invalid fit mode")

	// ErrInvalidCompression is returned for an unknown compression type.
	ErrInvalidCompression = errors.New("invalid compression type")

	// ErrDigestMismatch is returned when the stored payload digest does
	// not match the decoded payload.
	ErrDigestMismatch = errors.New("payload digest mismatch")

	// ErrShortPayload is returned when a stored payload is truncated.
	ErrShortPayload = errors.New("payload truncated")

	// ErrFileExists is returned when the destination file already exists
	// and overwriting was not authorized.
	ErrFileExists = errors.New("destination file already exists")
)
