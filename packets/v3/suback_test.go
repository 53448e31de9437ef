// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package v3_test

import (
	"bytes"
	"testing"

	"github.com/absmach/mqttsub/packets"
	"github.com/absmach/mqttsub/packets/codec"
	v3 "github.com/absmach/mqttsub/packets/v3"
	paho "github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeSubAckRoundTrip(t *testing.T) {
	cases := []struct {
		desc   string
		filter string
		qos    byte
		id     uint16
	}{
		{desc: "qos 0", filter: "a/b", qos: 0, id: 1},
		{desc: "qos 1", filter: "home/+/light", qos: 1, id: 300},
		{desc: "qos 2", filter: "#", qos: 2, id: 65535},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			buf := make([]byte, 128)
			n, err := v3.EncodeSubscribe(buf, false, tc.id, []v3.Topic{{Name: tc.filter, QoS: tc.qos}})
			require.NoError(t, err)

			sentID, err := codec.Uint16(buf[2:n])
			require.NoError(t, err)

			ack := (&v3.SubAck{ID: sentID, ReturnCodes: []byte{tc.qos}}).Encode()

			granted := make([]byte, 1)
			id, count, err := v3.DecodeSubAck(ack, granted)
			require.NoError(t, err)
			assert.Equal(t, tc.id, id)
			assert.Equal(t, 1, count)
			assert.Equal(t, tc.qos, granted[0])
		})
	}
}

func TestDecodeSubAckFromPaho(t *testing.T) {
	sa := paho.NewControlPacket(paho.Suback).(*paho.SubackPacket)
	sa.MessageID = 77
	sa.ReturnCodes = []byte{0x00, 0x02, 0x80}

	var b bytes.Buffer
	require.NoError(t, sa.Write(&b))

	granted := make([]byte, 3)
	id, n, err := v3.DecodeSubAck(b.Bytes(), granted)
	require.NoError(t, err)
	assert.Equal(t, uint16(77), id)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0x00, 0x02, packets.SubAckFailure}, granted)
}

func TestDecodeSubAckErrors(t *testing.T) {
	cases := []struct {
		desc string
		buf  []byte
		errs []error
	}{
		{
			desc: "shorter than minimum",
			buf:  []byte{0x90, 0x03, 0x00, 0x01},
			errs: []error{packets.ErrProtocol, packets.ErrBufferTooShort},
		},
		{
			desc: "wrong packet type",
			buf:  []byte{0xB0, 0x03, 0x00, 0x01, 0x00},
			errs: []error{packets.ErrProtocol},
		},
		{
			desc: "malformed remaining length",
			buf:  []byte{0x90, 0x80, 0x80, 0x80, 0x80, 0x01, 0x00, 0x01, 0x00},
			errs: []error{packets.ErrProtocol, codec.ErrMalformedVBI},
		},
		{
			desc: "remaining length exceeds buffer",
			buf:  []byte{0x90, 0x05, 0x00, 0x01, 0x00},
			errs: []error{packets.ErrProtocol},
		},
		{
			desc: "no return codes",
			buf:  []byte{0x90, 0x02, 0x00, 0x01, 0x00},
			errs: []error{packets.ErrProtocol},
		},
		{
			desc: "reserved return code",
			buf:  []byte{0x90, 0x03, 0x00, 0x01, 0x03},
			errs: []error{packets.ErrProtocol, packets.ErrMalformedReturnCode},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, _, err := v3.DecodeSubAck(tc.buf, make([]byte, 4))
			require.Error(t, err)
			for _, e := range tc.errs {
				assert.ErrorIs(t, err, e)
			}
		})
	}
}

func TestDecodeSubAckNilGranted(t *testing.T) {
	_, _, err := v3.DecodeSubAck([]byte{0x90, 0x03, 0x00, 0x01, 0x00}, nil)
	assert.ErrorIs(t, err, packets.ErrNullArgument)
}

func TestDecodeSubAckTooManyResults(t *testing.T) {
	const n = 4
	ack := (&v3.SubAck{ID: 5, ReturnCodes: []byte{0, 1, 2, 1}}).Encode()

	backing := []byte{0xEE, 0xEE, 0xEE, 0xEE, 0xEE}
	granted := backing[:n-1]

	_, count, err := v3.DecodeSubAck(ack, granted)
	assert.ErrorIs(t, err, packets.ErrTooManyResults)
	assert.LessOrEqual(t, count, n-1)
	assert.Equal(t, []byte{0, 1, 2}, backing[:n-1])
	assert.Equal(t, []byte{0xEE, 0xEE}, backing[n-1:], "nothing written past the declared maximum")
}

func TestSubAckUnpack(t *testing.T) {
	ack := (&v3.SubAck{ID: 12, ReturnCodes: []byte{1, 0}}).Encode()

	var sa v3.SubAck
	require.NoError(t, sa.Unpack(ack, 2))
	assert.Equal(t, uint16(12), sa.ID)
	assert.Equal(t, []byte{1, 0}, sa.ReturnCodes)
	assert.Equal(t, byte(packets.SubAckType), sa.Type())
}
