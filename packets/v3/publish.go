// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package v3

import (
	"fmt"

	"github.com/absmach/mqttsub/packets"
	"github.com/absmach/mqttsub/packets/codec"
)

// Publish is an inbound MQTT V3.1.1 PUBLISH packet. Payload aliases the
// buffer passed to DecodePublish.
type Publish struct {
	packets.FixedHeader
	TopicName string
	ID        uint16
	Payload   []byte
}

func (pkt *Publish) String() string {
	return fmt.Sprintf("%s\ntopic_name: %s\npacket_id: %d\npayload: %s\n", pkt.FixedHeader, pkt.TopicName, pkt.ID, pkt.Payload)
}

func (pkt *Publish) Type() byte {
	return packets.PublishType
}

// Encode serializes the packet to bytes.
func (pkt *Publish) Encode() []byte {
	var body []byte
	body = append(body, codec.EncodeString(pkt.TopicName)...)
	if pkt.QoS > 0 {
		body = append(body, codec.EncodeUint16(pkt.ID)...)
	}
	body = append(body, pkt.Payload...)

	pkt.FixedHeader.PacketType = packets.PublishType
	pkt.FixedHeader.RemainingLength = len(body)
	ret := append([]byte{pkt.FixedHeader.Byte()}, codec.EncodeVBI(len(body))...)
	return append(ret, body...)
}

// DecodePublish parses a complete PUBLISH packet held in buf.
func DecodePublish(buf []byte) (*Publish, error) {
	var fh packets.FixedHeader
	offset, err := fh.DecodeFromBytes(buf)
	if err != nil {
		return nil, err
	}
	if fh.PacketType != packets.PublishType {
		return nil, fmt.Errorf("%w: expected PUBLISH, got %s", packets.ErrProtocol, packets.PacketNames[fh.PacketType])
	}
	if fh.QoS > 2 {
		return nil, fmt.Errorf("%w: publish qos %d", packets.ErrProtocol, fh.QoS)
	}
	body := buf[offset : offset+fh.RemainingLength]

	tl, err := codec.Uint16(body)
	if err != nil {
		return nil, fmt.Errorf("%w: topic length: %w", packets.ErrProtocol, err)
	}
	pos := 2 + int(tl)
	if pos > len(body) {
		return nil, fmt.Errorf("%w: topic exceeds packet", packets.ErrProtocol)
	}
	pkt := &Publish{FixedHeader: fh, TopicName: string(body[2:pos])}

	if fh.QoS > 0 {
		if pkt.ID, err = codec.Uint16(body[pos:]); err != nil {
			return nil, fmt.Errorf("%w: packet id: %w", packets.ErrProtocol, err)
		}
		pos += 2
	}
	pkt.Payload = body[pos:]

	return pkt, nil
}
