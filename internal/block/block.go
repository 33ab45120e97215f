// Package block encodes and decodes the binary blocks moved between the instrument and the
// profile store: length-prefixed instrument blocks (learn strings, error-coefficient arrays)
// and fixed-size structure images (markers, bandwidth results, segments).
package block

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the fixed instrument block header: "#A" followed by a big-endian
	// uint16 payload length.
	HeaderSize = 4
	// BytesPerPoint is the size of one point in the instrument's internal binary format.
	BytesPerPoint = 6

	lengthOffset = 2
	maxPayload   = 0xFFFF
)

var (
	// ErrShortBlock is returned when a block is shorter than its header or embedded length.
	ErrShortBlock = errors.New("block: short instrument block")
	// ErrBlockTooLarge is returned when a payload cannot be described by the 16-bit length.
	ErrBlockTooLarge = errors.New("block: payload too large")
)

// Length returns the payload length embedded in an instrument block.
func Length(b []byte) (int, error) {
	if len(b) < HeaderSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrShortBlock, len(b))
	}
	return int(binary.BigEndian.Uint16(b[lengthOffset:])), nil
}

// Size returns the number of bytes the block occupies: header plus embedded length.
func Size(b []byte) (int, error) {
	n, err := Length(b)
	if err != nil {
		return 0, err
	}
	return HeaderSize + n, nil
}

// Trim returns a copy of exactly Size(b) bytes, dropping any trailing padding the caller's
// buffer carried. A buffer shorter than its embedded length is rejected.
func Trim(b []byte) ([]byte, error) {
	size, err := Size(b)
	if err != nil {
		return nil, err
	}
	if len(b) < size {
		return nil, fmt.Errorf("%w: embedded size %d, have %d", ErrShortBlock, size, len(b))
	}
	out := make([]byte, size)
	copy(out, b[:size])
	return out, nil
}

// Payload returns the payload bytes of a block, excluding the header and padding.
func Payload(b []byte) ([]byte, error) {
	size, err := Size(b)
	if err != nil {
		return nil, err
	}
	if len(b) < size {
		return nil, fmt.Errorf("%w: embedded size %d, have %d", ErrShortBlock, size, len(b))
	}
	return b[HeaderSize:size], nil
}

// Encode wraps payload in an instrument block header.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > maxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlockTooLarge, len(payload))
	}
	out := make([]byte, HeaderSize+len(payload))
	out[0], out[1] = '#', 'A'
	binary.BigEndian.PutUint16(out[lengthOffset:], uint16(len(payload)))
	copy(out[HeaderSize:], payload)
	return out, nil
}

// Points returns the number of points described by an error-coefficient block, or zero
// when the block is absent or malformed.
func Points(b []byte) int {
	n, err := Length(b)
	if err != nil {
		return 0
	}
	return n / BytesPerPoint
}

// Clone returns a verbatim copy of a stored blob. It is used on the recovery path where the
// stored size is the only information available. Empty blobs recover as nil.
func Clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
