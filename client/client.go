// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"log/slog"

	"github.com/absmach/mqttsub/timer"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Transport is the network collaborator. Send and WaitFor block for at most
// the time left on t. WaitFor fills p with the next packet of packetType and
// returns its length.
type Transport interface {
	IsConnected() bool
	Send(p []byte, t *timer.Timer) error
	WaitFor(packetType byte, p []byte, t *timer.Timer) (int, error)
}

// Client owns the subscription table and the packet buffers of one MQTT
// session. Subscribe-family calls are serialized by the state machine, not by
// a lock: a call made while another is in flight fails with ErrClientNotIdle.
type Client struct {
	opts      *Options
	transport Transport
	state     StateMachine
	registry  *Registry
	ids       PacketIDGenerator
	clock     clockwork.Clock
	limiter   *rate.Limiter

	writeBuf []byte
	readBuf  []byte

	logger  *slog.Logger
	metrics *metrics
	tracer  trace.Tracer
}

// New creates a client on top of the given transport.
func New(t Transport, opts *Options) (*Client, error) {
	if t == nil {
		return nil, ErrNoTransport
	}
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	state := opts.State
	if state == nil {
		state = NewStateManager()
	}
	ids := opts.PacketIDs
	if ids == nil {
		ids = NewSequentialIDs()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mp := opts.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	// Zero means unlimited.
	limit := opts.ResubscribeRate
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := opts.ResubscribeBurst
	if burst < 1 {
		burst = 1
	}

	registry := NewRegistry(opts.MaxSubscriptions)
	m, err := newMetrics(mp, registry)
	if err != nil {
		return nil, err
	}

	return &Client{
		opts:      opts,
		transport: t,
		state:     state,
		registry:  registry,
		ids:       ids,
		clock:     clock,
		limiter:   rate.NewLimiter(limit, burst),
		writeBuf:  make([]byte, opts.WriteBufferSize),
		readBuf:   make([]byte, opts.ReadBufferSize),
		logger:    logger,
		metrics:   m,
		tracer:    tp.Tracer(instrumentationName),
	}, nil
}

// State returns the current client state.
func (c *Client) State() State {
	return c.state.State()
}

// Registry returns the subscription table. The dispatch path reads it to
// route inbound messages; the unsubscribe path clears slots.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Subscriptions returns a copy of the active bindings in table order.
func (c *Client) Subscriptions() []Binding {
	return c.registry.Bindings()
}

// restore moves the state back after an operation. The operation's own error
// wins over a failed restore, which is then only logged.
func (c *Client) restore(from, to State, opErr error) error {
	err := c.state.Transition(from, to)
	if err == nil {
		return opErr
	}
	if opErr != nil {
		c.logger.Warn("client_state_restore_failed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
			slog.String("error", err.Error()),
			slog.String("cause", opErr.Error()))
		return opErr
	}
	return err
}
