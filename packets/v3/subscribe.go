// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package v3

import (
	"fmt"

	"github.com/absmach/mqttsub/packets"
	"github.com/absmach/mqttsub/packets/codec"
)

// subscribeFlags is the fixed flag nibble of SUBSCRIBE [MQTT-3.8.1-1].
const subscribeFlags = 0x02

// Topic represents a topic subscription.
type Topic struct {
	Name string
	QoS  byte
}

// Subscribe represents the MQTT V3.1.1 SUBSCRIBE packet.
type Subscribe struct {
	packets.FixedHeader
	ID     uint16
	Topics []Topic
}

func (s *Subscribe) String() string {
	return fmt.Sprintf("%s\nPacketID: %d\nTopics: %v\n", s.FixedHeader, s.ID, s.Topics)
}

func (s *Subscribe) Type() byte {
	return packets.SubscribeType
}

// Size returns the full on-wire size of the packet.
func (s *Subscribe) Size() (int, error) {
	rem, err := subscribeRemaining(s.Topics)
	if err != nil {
		return 0, err
	}
	return codec.PacketSize(rem), nil
}

// EncodeTo serializes the packet into buf and returns the number of bytes written.
func (s *Subscribe) EncodeTo(buf []byte) (int, error) {
	return EncodeSubscribe(buf, s.Dup, s.ID, s.Topics)
}

// EncodeSubscribe serializes a SUBSCRIBE packet into buf. Nothing is written
// unless the whole packet fits.
func EncodeSubscribe(buf []byte, dup bool, id uint16, topics []Topic) (int, error) {
	if buf == nil {
		return 0, packets.ErrNullArgument
	}
	rem, err := subscribeRemaining(topics)
	if err != nil {
		return 0, err
	}
	if size := codec.PacketSize(rem); size > len(buf) {
		return 0, fmt.Errorf("%w: subscribe needs %d bytes, have %d", packets.ErrBufferTooShort, size, len(buf))
	}

	fh := packets.FixedHeader{PacketType: packets.SubscribeType, Dup: dup}
	buf[0] = fh.Byte() | subscribeFlags
	n := 1
	n += codec.PutVBI(buf[n:], rem)
	n += codec.PutUint16(buf[n:], id)
	for _, t := range topics {
		n += codec.PutString(buf[n:], t.Name)
		buf[n] = t.QoS
		n++
	}

	return n, nil
}

func subscribeRemaining(topics []Topic) (int, error) {
	if len(topics) == 0 {
		return 0, packets.ErrNoTopics
	}

	rem := 2 // packet id
	for _, t := range topics {
		if len(t.Name) == 0 || len(t.Name) > packets.MaxTopicLength {
			return 0, fmt.Errorf("%w: length %d", packets.ErrMalformedTopic, len(t.Name))
		}
		if t.QoS > 2 {
			return 0, fmt.Errorf("%w: %d", packets.ErrMalformedQoS, t.QoS)
		}
		rem += 2 + len(t.Name) + 1 // length + topic + requested qos
	}
	if rem > codec.MaxVBI {
		return 0, codec.ErrMaxLengthExceeded
	}

	return rem, nil
}
