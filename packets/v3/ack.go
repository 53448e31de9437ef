// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package v3

import (
	"fmt"

	"github.com/absmach/mqttsub/packets"
	"github.com/absmach/mqttsub/packets/codec"
)

// Ack is one of the fixed-size acknowledgements the client sends for inbound
// publishes: PUBACK, PUBREC or PUBCOMP.
type Ack struct {
	packets.FixedHeader
	ID uint16
}

func (a *Ack) String() string {
	return fmt.Sprintf("%s\nPacketID: %d\n", a.FixedHeader, a.ID)
}

func (a *Ack) Type() byte {
	return a.FixedHeader.PacketType
}

// Encode serializes the packet to bytes.
func (a *Ack) Encode() []byte {
	if a.FixedHeader.PacketType == packets.PubRelType {
		a.FixedHeader.QoS = 1
	}
	a.FixedHeader.RemainingLength = 2
	return append([]byte{a.FixedHeader.Byte(), 0x02}, codec.EncodeUint16(a.ID)...)
}

// DecodeAck parses a packet made of a fixed header and a packet id.
func DecodeAck(buf []byte) (*Ack, error) {
	var fh packets.FixedHeader
	offset, err := fh.DecodeFromBytes(buf)
	if err != nil {
		return nil, err
	}
	if fh.RemainingLength != 2 {
		return nil, fmt.Errorf("%w: %s remaining length %d", packets.ErrProtocol, packets.PacketNames[fh.PacketType], fh.RemainingLength)
	}
	id, _ := codec.Uint16(buf[offset:])
	return &Ack{FixedHeader: fh, ID: id}, nil
}

// PingReq is the encoded PINGREQ packet.
var PingReq = []byte{packets.PingReqType << 4, 0x00}
