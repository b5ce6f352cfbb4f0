package store

import (
	"github.com/asterope/bkgfit/errs"
	"github.com/asterope/bkgfit/format"
)

// HeaderSize is the fixed size of the container header in bytes.
const HeaderSize = 40

// Header is the fixed-size section at the start of a fit-state container.
//
// Layout (offsets in bytes):
//
//	0-1   packed flag options (always little-endian)
//	2     fit mode
//	3     payload compression
//	4-7   channel count
//	8-11  interval count
//	12-15 coefficient section offset (into the uncompressed payload)
//	16-19 covariance section offset
//	20-23 metadata section offset
//	24-31 xxhash64 digest of the uncompressed payload
//	32-35 uncompressed payload size
//	36-39 reserved (zero)
type Header struct {
	Flag          Flag
	ChannelCount  uint32
	IntervalCount uint32
	CoeffOffset   uint32
	CovOffset     uint32
	MetaOffset    uint32
	Digest        uint64
	PayloadSize   uint32
}

// NewHeader creates a header for the given flag. Counts, offsets, digest,
// and payload size are filled in when the payload is encoded.
func NewHeader(flag Flag) *Header {
	return &Header{Flag: flag}
}

// Bytes serializes the header into a HeaderSize byte slice.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)

	// The flag word is always little-endian so a reader can determine the
	// byte order of everything else.
	b[0] = byte(h.Flag.Options)
	b[1] = byte(h.Flag.Options >> 8)
	b[2] = byte(h.Flag.Mode)
	b[3] = byte(h.Flag.Compression)

	engine := h.Flag.EndianEngine()
	engine.PutUint32(b[4:8], h.ChannelCount)
	engine.PutUint32(b[8:12], h.IntervalCount)
	engine.PutUint32(b[12:16], h.CoeffOffset)
	engine.PutUint32(b[16:20], h.CovOffset)
	engine.PutUint32(b[20:24], h.MetaOffset)
	engine.PutUint64(b[24:32], h.Digest)
	engine.PutUint32(b[32:36], h.PayloadSize)

	return b
}

// Parse parses and validates a header from data.
func (h *Header) Parse(data []byte) error {
	if len(data) < HeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	h.Flag.Options = uint16(data[0]) | uint16(data[1])<<8
	h.Flag.Mode = format.FitMode(data[2])
	h.Flag.Compression = format.Compression(data[3])

	if err := h.Flag.Validate(); err != nil {
		return err
	}

	engine := h.Flag.EndianEngine()
	h.ChannelCount = engine.Uint32(data[4:8])
	h.IntervalCount = engine.Uint32(data[8:12])
	h.CoeffOffset = engine.Uint32(data[12:16])
	h.CovOffset = engine.Uint32(data[16:20])
	h.MetaOffset = engine.Uint32(data[20:24])
	h.Digest = engine.Uint64(data[24:32])
	h.PayloadSize = engine.Uint32(data[32:36])

	return nil
}
