// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"errors"
	"io"
)

var (
	// ErrBufferTooShort is returned when the data ends before the field does.
	ErrBufferTooShort = errors.New("buffer too short")

	// ErrMalformedVBI is returned when a Variable Byte Integer still has the
	// continuation bit set on its fourth byte.
	ErrMalformedVBI = errors.New("malformed variable byte integer")

	// ErrMaxLengthExceeded represents an error for invalid length int size.
	// Length is positive integer of variable bytes integer.
	ErrMaxLengthExceeded = errors.New("max length value exceeded")
)

const maxVBIBytes = 4

// Uint16 reads a big-endian uint16 at the start of data.
func Uint16(data []byte) (uint16, error) {
	if len(data) < 2 {
		return 0, ErrBufferTooShort
	}
	return binary.BigEndian.Uint16(data), nil
}

// DecodeVBIFromBytes decodes a Variable Byte Integer at the start of data.
// It returns the value and the number of bytes consumed. At most four bytes
// are read.
func DecodeVBIFromBytes(data []byte) (int, int, error) {
	var vbi uint32
	var multiplier uint32
	for i := 0; i < maxVBIBytes; i++ {
		if i >= len(data) {
			return 0, 0, ErrBufferTooShort
		}
		b := data[i]
		vbi |= uint32(b&0x7F) << multiplier
		if (b & 0x80) == 0 {
			return int(vbi), i + 1, nil
		}
		multiplier += 7
	}
	return 0, 0, ErrMalformedVBI
}

// DecodeVBI reads a Variable Byte Integer from r, one byte at a time.
// It returns the value and the number of bytes consumed.
func DecodeVBI(r io.Reader) (int, int, error) {
	var vbi uint32
	var multiplier uint32
	var b [1]byte
	for i := 0; i < maxVBIBytes; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, i, err
		}
		vbi |= uint32(b[0]&0x7F) << multiplier
		if (b[0] & 0x80) == 0 {
			return int(vbi), i + 1, nil
		}
		multiplier += 7
	}
	return 0, maxVBIBytes, ErrMalformedVBI
}
