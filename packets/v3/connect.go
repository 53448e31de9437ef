// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package v3

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsub/packets"
	"github.com/absmach/mqttsub/packets/codec"
)

const protocolName = "MQTT"

// Connect represents the MQTT V3.1.1 CONNECT packet. Will messages are not
// supported by this client.
type Connect struct {
	packets.FixedHeader
	CleanSession bool
	KeepAlive    uint16

	ClientID string
	Username string
	Password []byte
}

func (c *Connect) String() string {
	return fmt.Sprintf("%s\nClientID: %s\nCleanSession: %t\nKeepAlive: %d\nUsername: %s\n",
		c.FixedHeader, c.ClientID, c.CleanSession, c.KeepAlive, c.Username)
}

func (c *Connect) Type() byte {
	return packets.ConnectType
}

func (c *Connect) Encode() []byte {
	var body []byte
	// Variable Header
	body = append(body, codec.EncodeString(protocolName)...)
	body = append(body, packets.V311)

	var flags byte
	if c.Username != "" {
		flags |= 1 << 7
	}
	if c.Password != nil {
		flags |= 1 << 6
	}
	if c.CleanSession {
		flags |= 1 << 1
	}
	body = append(body, flags)
	body = append(body, codec.EncodeUint16(c.KeepAlive)...)

	// Payload
	body = append(body, codec.EncodeString(c.ClientID)...)
	if c.Username != "" {
		body = append(body, codec.EncodeString(c.Username)...)
	}
	if c.Password != nil {
		body = append(body, codec.EncodeBytes(c.Password)...)
	}

	c.FixedHeader = packets.FixedHeader{PacketType: packets.ConnectType, RemainingLength: len(body)}
	ret := append([]byte{c.FixedHeader.Byte()}, codec.EncodeVBI(len(body))...)
	return append(ret, body...)
}

func (c *Connect) Pack(w io.Writer) error {
	_, err := w.Write(c.Encode())
	return err
}

// ConnAckCode represents MQTT 3.1.1 CONNACK return codes.
type ConnAckCode byte

// MQTT 3.1.1 CONNACK return codes.
const (
	ConnAccepted           ConnAckCode = 0x00
	ConnRefusedProtocol    ConnAckCode = 0x01
	ConnRefusedIDRejected  ConnAckCode = 0x02
	ConnRefusedUnavailable ConnAckCode = 0x03
	ConnRefusedBadAuth     ConnAckCode = 0x04
	ConnRefusedNotAuth     ConnAckCode = 0x05
)

// String returns a human-readable description of the CONNACK code.
func (c ConnAckCode) String() string {
	switch c {
	case ConnAccepted:
		return "connection accepted"
	case ConnRefusedProtocol:
		return "unacceptable protocol version"
	case ConnRefusedIDRejected:
		return "client identifier rejected"
	case ConnRefusedUnavailable:
		return "server unavailable"
	case ConnRefusedBadAuth:
		return "bad username or password"
	case ConnRefusedNotAuth:
		return "not authorized"
	default:
		return "unknown error"
	}
}

// ConnAck represents the MQTT V3.1.1 CONNACK packet.
type ConnAck struct {
	packets.FixedHeader
	SessionPresent bool
	ReturnCode     ConnAckCode
}

// Encode serializes the packet to bytes.
func (c *ConnAck) Encode() []byte {
	var sp byte
	if c.SessionPresent {
		sp = 1
	}
	c.FixedHeader = packets.FixedHeader{PacketType: packets.ConnAckType, RemainingLength: 2}
	return []byte{c.FixedHeader.Byte(), 0x02, sp, byte(c.ReturnCode)}
}

// DecodeConnAck parses a CONNACK from buf. A refused connection is reported
// as an error wrapping packets.ErrConnectRefused.
func DecodeConnAck(buf []byte) (*ConnAck, error) {
	var fh packets.FixedHeader
	offset, err := fh.DecodeFromBytes(buf)
	if err != nil {
		return nil, err
	}
	if fh.PacketType != packets.ConnAckType {
		return nil, fmt.Errorf("%w: expected CONNACK, got %s", packets.ErrProtocol, packets.PacketNames[fh.PacketType])
	}
	if fh.RemainingLength != 2 {
		return nil, fmt.Errorf("%w: connack remaining length %d", packets.ErrProtocol, fh.RemainingLength)
	}

	ca := &ConnAck{
		FixedHeader:    fh,
		SessionPresent: buf[offset]&0x01 > 0,
		ReturnCode:     ConnAckCode(buf[offset+1]),
	}
	if ca.ReturnCode != ConnAccepted {
		return ca, fmt.Errorf("%w: %s", packets.ErrConnectRefused, ca.ReturnCode)
	}

	return ca, nil
}
