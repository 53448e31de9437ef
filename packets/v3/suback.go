// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package v3

import (
	"fmt"

	"github.com/absmach/mqttsub/packets"
	"github.com/absmach/mqttsub/packets/codec"
)

// minSubAckSize is one header byte, one length byte, the packet id and at
// least one return code [MQTT-3.9].
const minSubAckSize = 5

// SubAck represents the MQTT V3.1.1 SUBACK packet.
type SubAck struct {
	packets.FixedHeader
	ID          uint16
	ReturnCodes []byte
}

func (s *SubAck) String() string {
	return fmt.Sprintf("%s\nPacketID: %d\nReturnCodes: %v\n", s.FixedHeader, s.ID, s.ReturnCodes)
}

func (s *SubAck) Type() byte {
	return packets.SubAckType
}

// Encode serializes the packet to bytes.
func (s *SubAck) Encode() []byte {
	var body []byte
	body = append(body, codec.EncodeUint16(s.ID)...)
	body = append(body, s.ReturnCodes...)
	s.FixedHeader.PacketType = packets.SubAckType
	s.FixedHeader.RemainingLength = len(body)
	ret := append([]byte{s.FixedHeader.Byte()}, codec.EncodeVBI(len(body))...)
	return append(ret, body...)
}

// Unpack decodes a SUBACK with room for up to max return codes.
func (s *SubAck) Unpack(buf []byte, max int) error {
	granted := make([]byte, max)
	id, n, err := DecodeSubAck(buf, granted)
	if err != nil {
		return err
	}
	s.FixedHeader = packets.FixedHeader{PacketType: packets.SubAckType, RemainingLength: 2 + n}
	s.ID = id
	s.ReturnCodes = granted[:n]
	return nil
}

// DecodeSubAck parses a SUBACK from buf. Return codes are written into
// granted, whose length is the maximum number the caller accepts; the
// returned count never exceeds it.
func DecodeSubAck(buf []byte, granted []byte) (uint16, int, error) {
	if granted == nil {
		return 0, 0, packets.ErrNullArgument
	}
	if len(buf) < minSubAckSize {
		return 0, 0, fmt.Errorf("%w: %w: suback needs at least %d bytes, got %d",
			packets.ErrProtocol, packets.ErrBufferTooShort, minSubAckSize, len(buf))
	}

	var fh packets.FixedHeader
	fh.DecodeByte(buf[0])
	if fh.PacketType != packets.SubAckType {
		return 0, 0, fmt.Errorf("%w: expected SUBACK, got %s", packets.ErrProtocol, packets.PacketNames[fh.PacketType])
	}

	offset, err := fh.DecodeFromBytes(buf)
	if err != nil {
		return 0, 0, err
	}
	if fh.RemainingLength < 3 {
		return 0, 0, fmt.Errorf("%w: suback remaining length %d", packets.ErrProtocol, fh.RemainingLength)
	}
	end := offset + fh.RemainingLength

	id, _ := codec.Uint16(buf[offset:end])
	offset += 2

	var count int
	for ; offset < end; offset++ {
		if count >= len(granted) {
			return id, count, fmt.Errorf("%w: suback carries more than %d return codes", packets.ErrTooManyResults, len(granted))
		}
		rc := buf[offset]
		if rc > 2 && rc != packets.SubAckFailure {
			return id, count, fmt.Errorf("%w 0x%02x", packets.ErrMalformedReturnCode, rc)
		}
		granted[count] = rc
		count++
	}

	return id, count, nil
}
