// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"

	"github.com/absmach/mqttsub/packets"
	"github.com/absmach/mqttsub/timer"
)

// Client errors.
var (
	// Configuration errors.
	ErrNoTransport       = errors.New("transport cannot be nil")
	ErrInvalidBufferSize = errors.New("buffer size must be positive")
	ErrInvalidCapacity   = errors.New("max subscriptions must be positive")
	ErrInvalidTimeout    = errors.New("command timeout must be positive")

	// Connection errors.
	ErrNetworkDisconnected = errors.New("network disconnected")
	ErrClientNotIdle       = errors.New("client not idle")
	ErrStateTransition     = errors.New("state transition failed")

	// Operation errors.
	ErrMaxSubscriptionsReached = errors.New("maximum subscriptions reached")
	ErrSubscriptionRefused     = errors.New("subscription refused by broker")
	ErrNotSubscribed           = errors.New("filter not subscribed")
	ErrPacketIDMismatch        = errors.New("ack packet id does not match request")
	ErrInvalidQoS              = errors.New("invalid QoS level (must be 0, 1, or 2)")
	ErrInvalidSlot             = errors.New("subscription slot out of range")
	ErrSlotOccupied            = errors.New("subscription slot already occupied")

	// Timer errors.
	ErrTimeout = timer.ErrTimeout

	// Packet errors.
	ErrNullArgument   = packets.ErrNullArgument
	ErrBufferTooShort = packets.ErrBufferTooShort
	ErrProtocol       = packets.ErrProtocol
	ErrTooManyResults = packets.ErrTooManyResults
)
