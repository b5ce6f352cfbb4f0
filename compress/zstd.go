package compress

// ZstdCodec compresses payloads with Zstandard.
//
// Two implementations are provided, selected at build time: cgo builds
// use valyala/gozstd (bindings to the reference C library), while pure-Go
// builds fall back to klauspost/compress/zstd. Both produce standard zstd
// frames and can decompress each other's output.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// zstdLevel is the compression level for cgo builds, matching the default
// speed/ratio trade-off of the pure-Go encoder.
const zstdLevel = 3
