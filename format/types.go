// Package format defines the shared enumerations used across the bkgfit
// packages: the background fit mode and the compression applied to
// persisted fit-state payloads.
package format

type (
	FitMode     uint8
	Compression uint8
)

const (
	// FitModeBinned fits histogrammed counts per time bin.
	FitModeBinned FitMode = 0x1
	// FitModeUnbinned fits raw event arrival times via an event likelihood.
	FitModeUnbinned FitMode = 0x2

	CompressionNone Compression = 0x1 // CompressionNone stores the payload uncompressed.
	CompressionZstd Compression = 0x2 // CompressionZstd applies Zstandard compression.
	CompressionS2   Compression = 0x3 // CompressionS2 applies S2 compression.
	CompressionLZ4  Compression = 0x4 // CompressionLZ4 applies LZ4 block compression.
)

func (m FitMode) String() string {
	switch m {
	case FitModeBinned:
		return "binned"
	case FitModeUnbinned:
		return "unbinned"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the defined fit modes.
func (m FitMode) Valid() bool {
	return m == FitModeBinned || m == FitModeUnbinned
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionS2:
		return "s2"
	case CompressionLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// Valid reports whether c is one of the defined compression types.
func (c Compression) Valid() bool {
	return c >= CompressionNone && c <= CompressionLZ4
}
