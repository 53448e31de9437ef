// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec_test

import (
	"bytes"
	"testing"

	"github.com/absmach/mqttsub/packets/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeVBI(t *testing.T) {
	cases := []struct {
		desc        string
		input       int
		expectedLen int
	}{
		{desc: "zero", input: 0, expectedLen: 1},
		{desc: "boundary 127 (1 byte)", input: 127, expectedLen: 1},
		{desc: "boundary 128 (2 bytes)", input: 128, expectedLen: 2},
		{desc: "boundary 16383 (2 bytes)", input: 16383, expectedLen: 2},
		{desc: "boundary 16384 (3 bytes)", input: 16384, expectedLen: 3},
		{desc: "boundary 2097151 (3 bytes)", input: 2097151, expectedLen: 3},
		{desc: "boundary 2097152 (4 bytes)", input: 2097152, expectedLen: 4},
		{desc: "max VBI value", input: codec.MaxVBI, expectedLen: 4},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			encoded := codec.EncodeVBI(tc.input)
			assert.Len(t, encoded, tc.expectedLen)
			assert.Equal(t, tc.expectedLen, codec.VBISize(tc.input))

			v, n, err := codec.DecodeVBIFromBytes(encoded)
			require.NoError(t, err)
			assert.Equal(t, tc.input, v)
			assert.Equal(t, tc.expectedLen, n)

			v, n, err = codec.DecodeVBI(bytes.NewReader(encoded))
			require.NoError(t, err)
			assert.Equal(t, tc.input, v)
			assert.Equal(t, tc.expectedLen, n)
		})
	}
}

func TestDecodeVBIFromBytesErrors(t *testing.T) {
	cases := []struct {
		desc string
		data []byte
		err  error
	}{
		{desc: "empty", data: nil, err: codec.ErrBufferTooShort},
		{desc: "continuation without next byte", data: []byte{0x80}, err: codec.ErrBufferTooShort},
		{desc: "five byte sequence", data: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x01}, err: codec.ErrMalformedVBI},
		{desc: "four continuation bytes", data: []byte{0x80, 0x80, 0x80, 0x80}, err: codec.ErrMalformedVBI},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, _, err := codec.DecodeVBIFromBytes(tc.data)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestDecodeVBIReaderMalformed(t *testing.T) {
	_, _, err := codec.DecodeVBI(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x01}))
	assert.ErrorIs(t, err, codec.ErrMalformedVBI)
}

func TestPutString(t *testing.T) {
	buf := make([]byte, 8)
	n := codec.PutString(buf, "a/b")
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte{0x00, 0x03, 'a', '/', 'b'}, buf[:n])
	assert.Equal(t, codec.EncodeString("a/b"), buf[:n])
}

func TestPacketSize(t *testing.T) {
	assert.Equal(t, 3, codec.PacketSize(1))
	assert.Equal(t, 130, codec.PacketSize(127))
	assert.Equal(t, 131, codec.PacketSize(128))
}

func TestUint16(t *testing.T) {
	v, err := codec.Uint16([]byte{0xAB, 0xCD})
	require.NoError(t, err)
	assert.Equal(t, uint16(0xABCD), v)
	assert.Equal(t, []byte{0xAB, 0xCD}, codec.EncodeUint16(v))

	_, err = codec.Uint16([]byte{0x01})
	assert.ErrorIs(t, err, codec.ErrBufferTooShort)
}
