// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package packets provides shared constants, the fixed header and the error
// taxonomy for MQTT packet handling. The MQTT 3.1.1 codecs live in the v3
// subpackage.
package packets

import (
	"errors"
	"fmt"
)

// Protocol version constants.
const (
	V311 byte = 0x04 // MQTT 3.1.1
)

// Packet type constants.
const (
	ConnectType = iota + 1 // 0 value is forbidden
	ConnAckType
	PublishType
	PubAckType
	PubRecType
	PubRelType
	PubCompType
	SubscribeType
	SubAckType
	UnsubscribeType
	UnsubAckType
	PingReqType
	PingRespType
	DisconnectType
)

// PacketNames maps packet type constants to string names.
var PacketNames = map[byte]string{
	ConnectType:     "CONNECT",
	ConnAckType:     "CONNACK",
	PublishType:     "PUBLISH",
	PubAckType:      "PUBACK",
	PubRecType:      "PUBREC",
	PubRelType:      "PUBREL",
	PubCompType:     "PUBCOMP",
	SubscribeType:   "SUBSCRIBE",
	SubAckType:      "SUBACK",
	UnsubscribeType: "UNSUBSCRIBE",
	UnsubAckType:    "UNSUBACK",
	PingReqType:     "PINGREQ",
	PingRespType:    "PINGRESP",
	DisconnectType:  "DISCONNECT",
}

// SubAckFailure is the SUBACK return code for a refused subscription.
const SubAckFailure byte = 0x80

// MaxTopicLength is the longest topic filter a 2-byte length prefix can carry.
const MaxTopicLength = 65535

// Packet errors.
var (
	ErrNullArgument        = errors.New("null argument")
	ErrBufferTooShort      = errors.New("buffer too short")
	ErrProtocol            = errors.New("protocol error")
	ErrTooManyResults      = errors.New("too many results")
	ErrNoTopics            = errors.New("no topic filters")
	ErrMalformedTopic      = errors.New("malformed topic filter")
	ErrMalformedQoS        = errors.New("malformed qos")
	ErrMalformedReturnCode = fmt.Errorf("%w: malformed return code", ErrProtocol)
	ErrConnectRefused      = errors.New("connection refused by broker")
)

// FixedHeader represents the MQTT fixed header present in all packets.
type FixedHeader struct {
	PacketType      byte
	Dup             bool
	QoS             byte
	Retain          bool
	RemainingLength int
}

const headerFormat = "type: %s dup: %t qos: %d retain: %t remaining_length: %d"

func (fh FixedHeader) String() string {
	return fmt.Sprintf(headerFormat, PacketNames[fh.PacketType], fh.Dup, fh.QoS, fh.Retain, fh.RemainingLength)
}

// Byte returns the type-and-flags byte of the header.
func (fh FixedHeader) Byte() byte {
	var dup, retain byte
	if fh.Dup {
		dup = 1
	}
	if fh.Retain {
		retain = 1
	}
	return fh.PacketType<<4 | dup<<3 | (fh.QoS&0x03)<<1 | retain
}

// DecodeByte fills the type and flag fields from the type-and-flags byte.
func (fh *FixedHeader) DecodeByte(typeAndFlags byte) {
	fh.PacketType = typeAndFlags >> 4
	fh.Dup = (typeAndFlags>>3)&0x01 > 0
	fh.QoS = (typeAndFlags >> 1) & 0x03
	fh.Retain = typeAndFlags&0x01 > 0
}
