package store

import (
	"github.com/asterope/bkgfit/endian"
	"github.com/asterope/bkgfit/errs"
	"github.com/asterope/bkgfit/format"
)

// flagMagic identifies a fit-state container. It occupies bits 4-15 of
// the packed options word; bit 0 carries the byte order.
const (
	flagMagic     uint16 = 0x9B10
	flagMagicMask uint16 = 0xFFF0
	flagBigEndian uint16 = 0x0001
)

// Flag is the packed option word at the start of the container header.
// It records the magic number, the byte order of the remaining header
// fields and payload, the fit mode, and the payload compression.
type Flag struct {
	Options     uint16
	Mode        format.FitMode
	Compression format.Compression
}

// NewFlag creates a flag for the given mode and compression, little-endian.
func NewFlag(mode format.FitMode, compression format.Compression) Flag {
	return Flag{
		Options:     flagMagic,
		Mode:        mode,
		Compression: compression,
	}
}

// SetBigEndian marks the container as big-endian.
func (f *Flag) SetBigEndian() {
	f.Options |= flagBigEndian
}

// IsBigEndian reports whether the container is big-endian.
func (f Flag) IsBigEndian() bool {
	return f.Options&flagBigEndian != 0
}

// EndianEngine returns the byte order engine for the container body.
func (f Flag) EndianEngine() endian.EndianEngine {
	if f.IsBigEndian() {
		return endian.GetBigEndianEngine()
	}

	return endian.GetLittleEndianEngine()
}

// Validate checks the magic number, fit mode, and compression type.
func (f Flag) Validate() error {
	if f.Options&flagMagicMask != flagMagic {
		return errs.ErrBadMagic
	}
	if !f.Mode.Valid() {
		return errs.ErrInvalidFitMode
	}
	if !f.Compression.Valid() {
		return errs.ErrInvalidCompression
	}

	return nil
}
