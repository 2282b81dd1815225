package hvec

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFloat32RoundTrip(t *testing.T) {
	v := Vector{
		Encoding:   EncodingFloat32,
		Dimensions: 4,
		Values:     []float32{0.1, -0.2, 3.4, 0.0},
	}

	data, err := Encode(v)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, v.Encoding, got.Encoding)
	assert.Equal(t, v.Dimensions, got.Dimensions)
	assert.InDeltaSlice(t, v.Values, got.Values, 1e-6)
}

func TestEncodeDecodeBipolarRoundTrip(t *testing.T) {
	v := Vector{
		Encoding:   EncodingBipolar,
		Dimensions: 5,
		Values:     []float32{1, -1, 1, -1, 1},
	}

	data, err := Encode(v)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, v.Dimensions, got.Dimensions)
	assert.Equal(t, v.Values, got.Values)
}

func TestEncodeBipolarClampsToSign(t *testing.T) {
	// Bipolar only has two codepoints; any non-negative value round-trips as
	// +1 and any negative value round-trips as -1.
	v := Vector{Encoding: EncodingBipolar, Dimensions: 2, Values: []float32{0.3, -7.2}}

	data, err := Encode(v)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, -1}, got.Values)
}

func TestEncodeDecodeBinaryRoundTrip(t *testing.T) {
	v := Vector{
		Encoding:   EncodingBinary,
		Dimensions: 10,
		Values:     []float32{1, 0, 1, 1, 0, 0, 0, 1, 1, 0},
	}

	data, err := Encode(v)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, v.Dimensions, got.Dimensions)
	assert.Equal(t, v.Values, got.Values)
}

func TestEncodeBinaryPacksLeastSignificantBitFirst(t *testing.T) {
	// bits, LSB-first: 1,1,0,1,0,0,0,0 -> byte 0b00001011 = 0x0B
	v := Vector{Encoding: EncodingBinary, Dimensions: 8, Values: []float32{1, 1, 0, 1, 0, 0, 0, 0}}

	data, err := Encode(v)
	require.NoError(t, err)

	// magic(4) + version(2) + dimensions(4) + encoding(1) = 11 bytes of header
	payloadByte := data[11]
	assert.Equal(t, byte(0x0B), payloadByte)
}

func TestEncodeDimensionMismatch(t *testing.T) {
	_, err := Encode(Vector{Dimensions: 5, Values: []float32{1, 2}})
	assert.Error(t, err)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	data, err := Encode(Vector{Encoding: EncodingFloat32, Dimensions: 1, Values: []float32{1}})
	require.NoError(t, err)
	data[0] = 'X'

	_, err = Decode(data)
	assert.Error(t, err)
}

func TestDecodeRejectsCorruptedChecksum(t *testing.T) {
	data, err := Encode(Vector{Encoding: EncodingFloat32, Dimensions: 2, Values: []float32{1, 2}})
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF

	_, err = Decode(data)
	assert.Error(t, err)
}

func TestDecodeRejectsTruncatedFrame(t *testing.T) {
	_, err := Decode([]byte{'H', 'V', 'E'})
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownEncoding(t *testing.T) {
	data, err := Encode(Vector{Encoding: EncodingFloat32, Dimensions: 1, Values: []float32{1}})
	require.NoError(t, err)

	// Flip the encoding byte (offset 10) to an undefined code and recompute
	// the trailing CRC so only the encoding check can reject the frame.
	data[10] = 0x7F
	fixed := recomputeChecksum(t, data)

	_, err = Decode(fixed)
	assert.Error(t, err)
}

func recomputeChecksum(t *testing.T, data []byte) []byte {
	t.Helper()
	// The CRC covers everything but itself, so after mutating a header byte
	// it must be recomputed the same way Encode does, isolating the
	// encoding check as the only thing that can still reject the frame.
	body := data[:len(data)-4]
	sum := crc32.ChecksumIEEE(body)
	out := make([]byte, len(data))
	copy(out, data)
	out[len(out)-4] = byte(sum)
	out[len(out)-3] = byte(sum >> 8)
	out[len(out)-2] = byte(sum >> 16)
	out[len(out)-1] = byte(sum >> 24)
	return out
}
