// Package hvec implements the binary wire codec for hypervector payloads
// exchanged with the associative-retrieval candidate source: a small framed
// format with a magic header, explicit dimensionality, an encoding tag, and
// a trailing checksum, in the same little-endian binary.Write style the
// corpus uses for its own vector blobs.
package hvec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// magic identifies an hvec frame: "HVEC".
var magic = [4]byte{'H', 'V', 'E', 'C'}

const version uint16 = 1

// Encoding tags the payload's element representation.
type Encoding byte

const (
	// EncodingBinary packs each dimension as a single bit (1 if non-zero),
	// least-significant-bit first within each payload byte.
	EncodingBinary Encoding = 0x01
	// EncodingBipolar packs each dimension as one byte: 0x01 for a
	// non-negative element, 0xFF for a negative one.
	EncodingBipolar Encoding = 0x02
	// EncodingFloat32 packs dimensions as little-endian IEEE-754 float32s.
	EncodingFloat32 Encoding = 0x03
)

// Vector is a decoded hypervector frame. Values always decode to float32:
// 0/1 for EncodingBinary, -1/+1 for EncodingBipolar, exact bits for
// EncodingFloat32.
type Vector struct {
	Encoding   Encoding
	Dimensions uint32
	Values     []float32
}

// Encode serializes v into the wire format:
// magic(4) | version(u16 LE) | dimensions(u32 LE) | encoding(1) | payload | crc32(u32 LE)
func Encode(v Vector) ([]byte, error) {
	if int(v.Dimensions) != len(v.Values) {
		return nil, fmt.Errorf("hvec: dimensions %d does not match %d values", v.Dimensions, len(v.Values))
	}

	buf := &bytes.Buffer{}
	buf.Write(magic[:])
	if err := binary.Write(buf, binary.LittleEndian, version); err != nil {
		return nil, fmt.Errorf("hvec: write version: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, v.Dimensions); err != nil {
		return nil, fmt.Errorf("hvec: write dimensions: %w", err)
	}
	buf.WriteByte(byte(v.Encoding))

	switch v.Encoding {
	case EncodingFloat32:
		if err := binary.Write(buf, binary.LittleEndian, v.Values); err != nil {
			return nil, fmt.Errorf("hvec: write float32 payload: %w", err)
		}
	case EncodingBipolar:
		buf.Write(encodeBipolar(v.Values))
	case EncodingBinary:
		buf.Write(encodeBinary(v.Values))
	default:
		return nil, fmt.Errorf("hvec: unknown encoding %#x", byte(v.Encoding))
	}

	sum := crc32.ChecksumIEEE(buf.Bytes())
	if err := binary.Write(buf, binary.LittleEndian, sum); err != nil {
		return nil, fmt.Errorf("hvec: write checksum: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a frame produced by Encode, verifying its magic, version,
// and trailing CRC32 before returning the vector.
func Decode(data []byte) (Vector, error) {
	if len(data) < 4+2+4+1+4 {
		return Vector{}, fmt.Errorf("hvec: frame too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return Vector{}, fmt.Errorf("hvec: bad magic %q", data[:4])
	}

	body := data[:len(data)-4]
	wantSum := binary.LittleEndian.Uint32(data[len(data)-4:])
	gotSum := crc32.ChecksumIEEE(body)
	if wantSum != gotSum {
		return Vector{}, fmt.Errorf("hvec: checksum mismatch: want %x got %x", wantSum, gotSum)
	}

	r := bytes.NewReader(data[4:])
	var gotVersion uint16
	if err := binary.Read(r, binary.LittleEndian, &gotVersion); err != nil {
		return Vector{}, fmt.Errorf("hvec: read version: %w", err)
	}
	if gotVersion != version {
		return Vector{}, fmt.Errorf("hvec: unsupported version %d", gotVersion)
	}

	var dims uint32
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return Vector{}, fmt.Errorf("hvec: read dimensions: %w", err)
	}

	encByte, err := r.ReadByte()
	if err != nil {
		return Vector{}, fmt.Errorf("hvec: read encoding: %w", err)
	}
	enc := Encoding(encByte)

	v := Vector{Encoding: enc, Dimensions: dims}
	switch enc {
	case EncodingFloat32:
		values := make([]float32, dims)
		if err := binary.Read(r, binary.LittleEndian, &values); err != nil {
			return Vector{}, fmt.Errorf("hvec: read float32 payload: %w", err)
		}
		v.Values = values
	case EncodingBipolar:
		payload := make([]byte, dims)
		if _, err := r.Read(payload); err != nil {
			return Vector{}, fmt.Errorf("hvec: read bipolar payload: %w", err)
		}
		v.Values = decodeBipolar(payload)
	case EncodingBinary:
		payload := make([]byte, binaryByteLen(dims))
		if _, err := r.Read(payload); err != nil {
			return Vector{}, fmt.Errorf("hvec: read binary payload: %w", err)
		}
		v.Values = decodeBinary(payload, dims)
	default:
		return Vector{}, fmt.Errorf("hvec: unknown encoding %#x", encByte)
	}

	return v, nil
}

// binaryByteLen returns the number of payload bytes needed to pack dims bits.
func binaryByteLen(dims uint32) int {
	return int((dims + 7) / 8)
}

// encodeBinary packs one bit per value (non-zero = 1), least-significant-bit
// first within each byte.
func encodeBinary(values []float32) []byte {
	out := make([]byte, binaryByteLen(uint32(len(values))))
	for i, f := range values {
		if f != 0 {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// decodeBinary unpacks dims bits (LSB-first per byte) back into 0/1 floats.
func decodeBinary(payload []byte, dims uint32) []float32 {
	values := make([]float32, dims)
	for i := range values {
		if payload[i/8]&(1<<uint(i%8)) != 0 {
			values[i] = 1
		}
	}
	return values
}

// encodeBipolar maps each element to one byte: 0x01 if non-negative, 0xFF
// (two's-complement -1) if negative.
func encodeBipolar(values []float32) []byte {
	out := make([]byte, len(values))
	for i, f := range values {
		if f < 0 {
			out[i] = 0xFF
		} else {
			out[i] = 0x01
		}
	}
	return out
}

// decodeBipolar reverses encodeBipolar back into -1/+1 floats.
func decodeBipolar(payload []byte) []float32 {
	values := make([]float32, len(payload))
	for i, b := range payload {
		if b == 0xFF {
			values[i] = -1
		} else {
			values[i] = 1
		}
	}
	return values
}
