// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package v3

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsub/packets"
)

// Disconnect represents the MQTT V3.1.1 DISCONNECT packet.
type Disconnect struct {
	packets.FixedHeader
}

func (d *Disconnect) String() string {
	return fmt.Sprintf("%s\n", d.FixedHeader)
}

func (d *Disconnect) Type() byte {
	return packets.DisconnectType
}

func (d *Disconnect) Encode() []byte {
	d.FixedHeader = packets.FixedHeader{PacketType: packets.DisconnectType}
	return []byte{d.FixedHeader.Byte(), 0x00}
}

func (d *Disconnect) Pack(w io.Writer) error {
	_, err := w.Write(d.Encode())
	return err
}
