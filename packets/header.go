// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttsub/packets/codec"
)

// DecodeFromBytes parses the fixed header from a byte slice and checks that
// the remaining length fits in the data. Returns the number of bytes consumed
// by the header.
func (fh *FixedHeader) DecodeFromBytes(data []byte) (int, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("%w: %w", ErrProtocol, codec.ErrBufferTooShort)
	}
	fh.DecodeByte(data[0])

	rem, n, err := codec.DecodeVBIFromBytes(data[1:])
	if err != nil {
		return 0, fmt.Errorf("%w: remaining length: %w", ErrProtocol, err)
	}
	offset := 1 + n
	if rem > len(data)-offset {
		return 0, fmt.Errorf("%w: remaining length %d exceeds %d available bytes", ErrProtocol, rem, len(data)-offset)
	}
	fh.RemainingLength = rem

	return offset, nil
}
