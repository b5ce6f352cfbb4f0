// Package compress provides the payload codecs used by the fit-state
// container.
//
// A persisted fit state is a single payload (coefficient table, covariance
// table, metadata) that is compressed as a whole. The compression type is
// recorded in the container header, so a reader can always select the
// matching codec via ForType.
//
// Available codecs:
//
//   - None: payload stored as-is
//   - Zstd: best ratio (cgo builds use valyala/gozstd, pure builds use
//     klauspost/compress/zstd)
//   - S2: fast with a reasonable ratio
//   - LZ4: fastest, lowest ratio
package compress

import (
	"fmt"

	"github.com/asterope/bkgfit/format"
)

// Codec compresses and decompresses fit-state payloads.
//
// Implementations are stateless values and safe for concurrent use.
// Compress and Decompress return newly allocated slices owned by the
// caller; the input slice is never modified. Both map empty input to nil
// output.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// ForType returns the codec matching the given compression type.
func ForType(c format.Compression) (Codec, error) {
	switch c {
	case format.CompressionNone:
		return NoneCodec{}, nil
	case format.CompressionZstd:
		return ZstdCodec{}, nil
	case format.CompressionS2:
		return S2Codec{}, nil
	case format.CompressionLZ4:
		return LZ4Codec{}, nil
	default:
		return nil, fmt.Errorf("unknown compression type 0x%02x", uint8(c))
	}
}

// NoneCodec passes payloads through unchanged.
type NoneCodec struct{}

var _ Codec = (*NoneCodec)(nil)

func (NoneCodec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}

func (NoneCodec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}
