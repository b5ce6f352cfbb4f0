// Package endian provides byte order utilities for the binary fit-state
// container.
//
// It combines the ByteOrder and AppendByteOrder interfaces from
// encoding/binary into a single EndianEngine interface so encoders and
// decoders can take one value that covers read, write, and append
// operations. Fit-state files are little-endian by default; big-endian
// output is available for interoperability with big-endian consumers.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
// into a single interface. It is satisfied by binary.LittleEndian and
// binary.BigEndian, so any stdlib byte order works where an EndianEngine
// is expected.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine. This is the
// default byte order for persisted fit state.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
