// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Default values.
const (
	DefaultCommandTimeout   = 20 * time.Second
	DefaultWriteBufferSize  = 512
	DefaultReadBufferSize   = 512
	DefaultMaxSubscriptions = 5
)

// Options configures the subscribe core of the client.
type Options struct {
	// Session
	CommandTimeout   time.Duration // Bound for one SUBSCRIBE/SUBACK round trip
	WriteBufferSize  int           // Size of the outgoing packet buffer
	ReadBufferSize   int           // Size of the incoming packet buffer
	MaxSubscriptions int           // Capacity of the subscription table

	// Behavior
	VerifyPacketID   bool       // Reject a SUBACK whose packet id differs from the request
	ResubscribeRate  rate.Limit // SUBSCRIBE requests per second during resubscribe (Inf = unlimited)
	ResubscribeBurst int        // Burst allowance for ResubscribeRate

	// Collaborators
	State     StateMachine      // Connection state machine (nil = new StateManager)
	PacketIDs PacketIDGenerator // Packet identifier source (nil = SequentialIDs)
	Clock     clockwork.Clock   // Clock for command timers (nil = real clock)

	// Observability
	Logger         *slog.Logger         // nil = slog.Default()
	MeterProvider  metric.MeterProvider // nil = global provider
	TracerProvider trace.TracerProvider // nil = global provider
}

// NewOptions creates Options with sensible defaults.
func NewOptions() *Options {
	return &Options{
		CommandTimeout:   DefaultCommandTimeout,
		WriteBufferSize:  DefaultWriteBufferSize,
		ReadBufferSize:   DefaultReadBufferSize,
		MaxSubscriptions: DefaultMaxSubscriptions,
		ResubscribeRate:  rate.Inf,
		ResubscribeBurst: 1,
	}
}

// SetCommandTimeout sets the timeout for one request/response round trip.
func (o *Options) SetCommandTimeout(d time.Duration) *Options {
	o.CommandTimeout = d
	return o
}

// SetBufferSizes sets the write and read buffer sizes.
func (o *Options) SetBufferSizes(write, read int) *Options {
	o.WriteBufferSize = write
	o.ReadBufferSize = read
	return o
}

// SetMaxSubscriptions sets the capacity of the subscription table.
func (o *Options) SetMaxSubscriptions(n int) *Options {
	o.MaxSubscriptions = n
	return o
}

// SetVerifyPacketID enables comparing the SUBACK packet id with the request.
func (o *Options) SetVerifyPacketID(verify bool) *Options {
	o.VerifyPacketID = verify
	return o
}

// SetResubscribeRate paces resubscribe requests.
func (o *Options) SetResubscribeRate(r rate.Limit, burst int) *Options {
	o.ResubscribeRate = r
	o.ResubscribeBurst = burst
	return o
}

// SetStateMachine replaces the built-in state manager.
func (o *Options) SetStateMachine(sm StateMachine) *Options {
	o.State = sm
	return o
}

// SetPacketIDs replaces the built-in packet id generator.
func (o *Options) SetPacketIDs(ids PacketIDGenerator) *Options {
	o.PacketIDs = ids
	return o
}

// SetClock sets the clock used for command timers.
func (o *Options) SetClock(c clockwork.Clock) *Options {
	o.Clock = c
	return o
}

// SetLogger sets the logger.
func (o *Options) SetLogger(l *slog.Logger) *Options {
	o.Logger = l
	return o
}

// SetMeterProvider sets the OpenTelemetry meter provider.
func (o *Options) SetMeterProvider(mp metric.MeterProvider) *Options {
	o.MeterProvider = mp
	return o
}

// SetTracerProvider sets the OpenTelemetry tracer provider.
func (o *Options) SetTracerProvider(tp trace.TracerProvider) *Options {
	o.TracerProvider = tp
	return o
}

// Validate checks the options.
func (o *Options) Validate() error {
	if o.CommandTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if o.WriteBufferSize <= 0 || o.ReadBufferSize <= 0 {
		return ErrInvalidBufferSize
	}
	if o.MaxSubscriptions <= 0 {
		return ErrInvalidCapacity
	}
	return nil
}
