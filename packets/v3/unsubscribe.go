// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package v3

import (
	"fmt"

	"github.com/absmach/mqttsub/packets"
	"github.com/absmach/mqttsub/packets/codec"
)

// unsubscribeFlags is the fixed flag nibble of UNSUBSCRIBE [MQTT-3.10.1-1].
const unsubscribeFlags = 0x02

// Unsubscribe represents the MQTT V3.1.1 UNSUBSCRIBE packet.
type Unsubscribe struct {
	packets.FixedHeader
	ID     uint16
	Topics []string
}

func (u *Unsubscribe) String() string {
	return fmt.Sprintf("%s\nPacketID: %d\nTopics: %v\n", u.FixedHeader, u.ID, u.Topics)
}

func (u *Unsubscribe) Type() byte {
	return packets.UnsubscribeType
}

// EncodeTo serializes the packet into buf and returns the number of bytes written.
func (u *Unsubscribe) EncodeTo(buf []byte) (int, error) {
	return EncodeUnsubscribe(buf, u.ID, u.Topics)
}

// EncodeUnsubscribe serializes an UNSUBSCRIBE packet into buf. Nothing is
// written unless the whole packet fits.
func EncodeUnsubscribe(buf []byte, id uint16, topics []string) (int, error) {
	if buf == nil {
		return 0, packets.ErrNullArgument
	}
	if len(topics) == 0 {
		return 0, packets.ErrNoTopics
	}

	rem := 2
	for _, t := range topics {
		if len(t) == 0 || len(t) > packets.MaxTopicLength {
			return 0, fmt.Errorf("%w: length %d", packets.ErrMalformedTopic, len(t))
		}
		rem += 2 + len(t)
	}
	if rem > codec.MaxVBI {
		return 0, codec.ErrMaxLengthExceeded
	}
	if size := codec.PacketSize(rem); size > len(buf) {
		return 0, fmt.Errorf("%w: unsubscribe needs %d bytes, have %d", packets.ErrBufferTooShort, size, len(buf))
	}

	buf[0] = packets.UnsubscribeType<<4 | unsubscribeFlags
	n := 1
	n += codec.PutVBI(buf[n:], rem)
	n += codec.PutUint16(buf[n:], id)
	for _, t := range topics {
		n += codec.PutString(buf[n:], t)
	}

	return n, nil
}

// UnsubAck represents the MQTT V3.1.1 UNSUBACK packet.
type UnsubAck struct {
	packets.FixedHeader
	ID uint16
}

func (u *UnsubAck) String() string {
	return fmt.Sprintf("%s\nPacketID: %d\n", u.FixedHeader, u.ID)
}

func (u *UnsubAck) Type() byte {
	return packets.UnsubAckType
}

// Encode serializes the packet to bytes.
func (u *UnsubAck) Encode() []byte {
	u.FixedHeader = packets.FixedHeader{PacketType: packets.UnsubAckType, RemainingLength: 2}
	return append([]byte{u.FixedHeader.Byte(), 0x02}, codec.EncodeUint16(u.ID)...)
}

// DecodeUnsubAck parses an UNSUBACK from buf and returns its packet id.
func DecodeUnsubAck(buf []byte) (uint16, error) {
	ack, err := DecodeAck(buf)
	if err != nil {
		return 0, err
	}
	if ack.PacketType != packets.UnsubAckType {
		return 0, fmt.Errorf("%w: expected UNSUBACK, got %s", packets.ErrProtocol, packets.PacketNames[ack.PacketType])
	}
	return ack.ID, nil
}
