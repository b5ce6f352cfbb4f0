package endian

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetLittleEndianEngine(t *testing.T) {
	engine := GetLittleEndianEngine()
	require.Equal(t, binary.ByteOrder(binary.LittleEndian), engine)

	buf := engine.AppendUint32(nil, 0x01020304)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf)
	require.Equal(t, uint32(0x01020304), engine.Uint32(buf))
}

func TestGetBigEndianEngine(t *testing.T) {
	engine := GetBigEndianEngine()
	require.Equal(t, binary.ByteOrder(binary.BigEndian), engine)

	buf := engine.AppendUint64(nil, 0x0102030405060708)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, buf)
	require.Equal(t, uint64(0x0102030405060708), engine.Uint64(buf))
}

func TestEnginesRoundTripFloat64Bits(t *testing.T) {
	for _, engine := range []EndianEngine{GetLittleEndianEngine(), GetBigEndianEngine()} {
		buf := engine.AppendUint64(nil, 0x400921FB54442D18)
		require.Len(t, buf, 8)
		require.Equal(t, uint64(0x400921FB54442D18), engine.Uint64(buf))
	}
}
