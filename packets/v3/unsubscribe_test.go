// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package v3_test

import (
	"bytes"
	"testing"

	"github.com/absmach/mqttsub/packets"
	v3 "github.com/absmach/mqttsub/packets/v3"
	paho "github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeUnsubscribe(t *testing.T) {
	buf := make([]byte, 32)
	n, err := v3.EncodeUnsubscribe(buf, 0x0203, []string{"a/b", "c"})
	require.NoError(t, err)

	expected := []byte{
		0xA2, 0x0A, // UNSUBSCRIBE, flags 0010, remaining length 10
		0x02, 0x03,
		0x00, 0x03, 'a', '/', 'b',
		0x00, 0x01, 'c',
	}
	assert.Equal(t, expected, buf[:n])

	cp, err := paho.ReadPacket(bytes.NewReader(buf[:n]))
	require.NoError(t, err)
	unsub, ok := cp.(*paho.UnsubscribePacket)
	require.True(t, ok)
	assert.Equal(t, uint16(0x0203), unsub.MessageID)
	assert.Equal(t, []string{"a/b", "c"}, unsub.Topics)
}

func TestEncodeUnsubscribeErrors(t *testing.T) {
	cases := []struct {
		desc   string
		buf    []byte
		topics []string
		err    error
	}{
		{desc: "nil buffer", buf: nil, topics: []string{"a"}, err: packets.ErrNullArgument},
		{desc: "no topics", buf: make([]byte, 8), topics: nil, err: packets.ErrNoTopics},
		{desc: "empty topic", buf: make([]byte, 8), topics: []string{""}, err: packets.ErrMalformedTopic},
		{desc: "buffer too short", buf: make([]byte, 6), topics: []string{"a/b"}, err: packets.ErrBufferTooShort},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			n, err := v3.EncodeUnsubscribe(tc.buf, 1, tc.topics)
			assert.ErrorIs(t, err, tc.err)
			assert.Zero(t, n)
		})
	}
}

func TestDecodeUnsubAck(t *testing.T) {
	ua := paho.NewControlPacket(paho.Unsuback).(*paho.UnsubackPacket)
	ua.MessageID = 77
	var buf bytes.Buffer
	require.NoError(t, ua.Write(&buf))

	id, err := v3.DecodeUnsubAck(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint16(77), id)

	own := (&v3.UnsubAck{ID: 77}).Encode()
	assert.Equal(t, buf.Bytes(), own)

	_, err = v3.DecodeUnsubAck([]byte{0x90, 0x02, 0x00, 0x01})
	assert.ErrorIs(t, err, packets.ErrProtocol)

	_, err = v3.DecodeUnsubAck([]byte{0xB0, 0x03, 0x00, 0x01, 0x00})
	assert.ErrorIs(t, err, packets.ErrProtocol)
}
