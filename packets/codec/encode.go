// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

// Encode methods rewrite some of bigEndian methods
// to avoid unnecessary function calls and checks.

// MaxVBI is the largest value a 4-byte Variable Byte Integer can hold.
const MaxVBI = 268435455

func EncodeUint16(num uint16) []byte {
	return []byte{byte(num >> 8), byte(num)}
}

func EncodeBytes(field []byte) []byte {
	v := len(field)
	b := []byte{byte(v >> 8), byte(v)}
	return append(b, field...)
}

func EncodeString(field string) []byte {
	return EncodeBytes([]byte(field))
}

// EncodeVBI is used for Variable Byte Integers used to
// encode length in a minimal way.
func EncodeVBI(num int) []byte {
	var ret [4]byte
	n := PutVBI(ret[:], num)
	return ret[:n]
}

// PutVBI writes num as a Variable Byte Integer into dst and returns the
// number of bytes written. dst must have room for VBISize(num) bytes.
func PutVBI(dst []byte, num int) int {
	var x int
	v := uint32(num)
	for {
		b := byte(v & 0x7F) // take 7 least significant bits
		v >>= 7
		if v > 0 {
			b |= 0x80 // set continuation bit
		}
		dst[x] = b
		x++
		if v == 0 {
			return x
		}
	}
}

// VBISize returns the number of bytes PutVBI needs for num.
func VBISize(num int) int {
	switch {
	case num < 128:
		return 1
	case num < 16384:
		return 2
	case num < 2097152:
		return 3
	default:
		return 4
	}
}

// PacketSize returns the full on-wire size of a packet whose remaining
// length is rem: one header byte, the length field and the body.
func PacketSize(rem int) int {
	return 1 + VBISize(rem) + rem
}

// PutUint16 writes num big-endian at dst[0:2] and returns 2.
func PutUint16(dst []byte, num uint16) int {
	dst[0] = byte(num >> 8)
	dst[1] = byte(num)
	return 2
}

// PutString writes the length-prefixed field into dst and returns the
// number of bytes written.
func PutString(dst []byte, field string) int {
	PutUint16(dst, uint16(len(field)))
	return 2 + copy(dst[2:], field)
}
