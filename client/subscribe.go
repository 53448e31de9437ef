// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/absmach/mqttsub/packets"
	v3 "github.com/absmach/mqttsub/packets/v3"
	"github.com/absmach/mqttsub/timer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Subscribe registers filter with the broker and binds h to it. The call
// blocks until the SUBACK arrives or the command timeout expires. Each call
// takes a new slot; subscribing twice to the same filter uses two slots.
//
// It may be called from a message handler (StateConnectedWaitForCallbackReturn).
// ctx is checked between steps and never interrupts a transport call.
func (c *Client) Subscribe(ctx context.Context, filter string, qos byte, h Handler, data any) error {
	if c == nil || filter == "" || h == nil {
		return ErrNullArgument
	}
	if qos > 2 {
		return ErrInvalidQoS
	}
	if !c.transport.IsConnected() {
		return ErrNetworkDisconnected
	}

	prev := c.state.State()
	if prev != StateConnectedIdle && prev != StateConnectedWaitForCallbackReturn {
		return fmt.Errorf("%w: %s", ErrClientNotIdle, prev)
	}
	if err := c.state.Transition(prev, StateConnectedSubscribeInProgress); err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, "mqtt.subscribe", trace.WithAttributes(
		attribute.String("mqtt.topic_filter", filter),
		attribute.Int("mqtt.qos", int(qos)),
	))
	start := c.clock.Now()

	err := c.subscribe(ctx, filter, qos, h, data)
	err = c.restore(StateConnectedSubscribeInProgress, prev, err)

	c.metrics.recordSubscribe(ctx, c.clock.Now().Sub(start), err)
	endSpan(span, err)

	return err
}

func (c *Client) subscribe(ctx context.Context, filter string, qos byte, h Handler, data any) error {
	t := timer.Start(c.clock, c.opts.CommandTimeout)

	id := c.ids.Next()
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("mqtt.packet_id", int(id)))

	n, err := v3.EncodeSubscribe(c.writeBuf, false, id, []v3.Topic{{Name: filter, QoS: qos}})
	if err != nil {
		return err
	}

	// Checked before sending so a full table never issues a request.
	index := c.registry.Allocate()
	if index >= c.registry.Cap() {
		return ErrMaxSubscriptionsReached
	}

	granted, err := c.roundTrip(ctx, id, n, t)
	if err != nil {
		return err
	}

	if err := c.registry.Commit(index, Binding{
		Filter:     filter,
		QoS:        qos,
		GrantedQoS: granted,
		Handler:    h,
		Data:       data,
	}); err != nil {
		return err
	}

	c.logger.Debug("subscribe_acknowledged",
		slog.String("filter", filter),
		slog.Int("qos", int(qos)),
		slog.Int("granted_qos", int(granted)),
		slog.Int("slot", index),
		slog.Int("packet_id", int(id)))

	return nil
}

// Resubscribe sends SUBSCRIBE again for every active binding, in table
// order, one round trip at a time. A binding the broker refuses is freed and
// the sweep goes on. Any other failure stops the sweep and is returned;
// bindings acknowledged before it are kept as they are.
// Only allowed from StateConnectedIdle.
func (c *Client) Resubscribe(ctx context.Context) error {
	if c == nil {
		return ErrNullArgument
	}
	if !c.transport.IsConnected() {
		return ErrNetworkDisconnected
	}
	if s := c.state.State(); s != StateConnectedIdle {
		return fmt.Errorf("%w: %s", ErrClientNotIdle, s)
	}
	if err := c.state.Transition(StateConnectedIdle, StateConnectedResubscribeInProgress); err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, "mqtt.resubscribe")

	err := c.resubscribe(ctx)
	err = c.restore(StateConnectedResubscribeInProgress, StateConnectedIdle, err)

	c.metrics.recordResubscribe(ctx, err)
	endSpan(span, err)

	return err
}

func (c *Client) resubscribe(ctx context.Context) error {
	span := trace.SpanFromContext(ctx)

	var done, refused int
	for _, index := range c.registry.occupied() {
		b, ok := c.registry.Get(index)
		if !ok {
			continue // cleared by the unsubscribe path mid-sweep
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		t := timer.Start(c.clock, c.opts.CommandTimeout)
		id := c.ids.Next()
		span.AddEvent("resubscribe_filter", trace.WithAttributes(
			attribute.String("mqtt.topic_filter", b.Filter),
			attribute.Int("mqtt.packet_id", int(id)),
		))

		n, err := v3.EncodeSubscribe(c.writeBuf, false, id, []v3.Topic{{Name: b.Filter, QoS: b.QoS}})
		if err != nil {
			return fmt.Errorf("resubscribe %q: %w", b.Filter, err)
		}

		granted, err := c.roundTrip(ctx, id, n, t)
		if errors.Is(err, ErrSubscriptionRefused) {
			// The broker no longer holds this filter, so nothing may be
			// routed to it. The rest of the sweep is unaffected.
			c.registry.Clear(index)
			refused++
			span.AddEvent("resubscribe_refused", trace.WithAttributes(
				attribute.String("mqtt.topic_filter", b.Filter),
			))
			c.logger.Warn("resubscribe_refused",
				slog.String("filter", b.Filter),
				slog.Int("slot", index))
			continue
		}
		if err != nil {
			return fmt.Errorf("resubscribe %q: %w", b.Filter, err)
		}
		c.registry.setGranted(index, granted)
		done++
	}

	c.logger.Debug("resubscribe_completed",
		slog.Int("subscriptions", done),
		slog.Int("refused", refused))

	return nil
}

// roundTrip sends the n encoded bytes in the write buffer and waits for the
// matching SUBACK. Returns the granted QoS.
func (c *Client) roundTrip(ctx context.Context, id uint16, n int, t *timer.Timer) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := c.transport.Send(c.writeBuf[:n], t); err != nil {
		return 0, err
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if t.Expired() {
		return 0, ErrTimeout
	}
	rn, err := c.transport.WaitFor(packets.SubAckType, c.readBuf, t)
	if err != nil {
		return 0, err
	}
	if rn < 0 || rn > len(c.readBuf) {
		return 0, fmt.Errorf("%w: transport reported %d bytes", ErrProtocol, rn)
	}

	var granted [1]byte
	rxID, _, err := v3.DecodeSubAck(c.readBuf[:rn], granted[:])
	if err != nil {
		return 0, err
	}

	// Only one subscribe-family request is ever outstanding, so any SUBACK
	// is taken as the answer unless verification is turned on.
	if rxID != id {
		if c.opts.VerifyPacketID {
			return 0, fmt.Errorf("%w: sent %d, received %d", ErrPacketIDMismatch, id, rxID)
		}
		c.logger.Debug("suback_packet_id_mismatch",
			slog.Int("sent", int(id)),
			slog.Int("received", int(rxID)))
	}

	if granted[0] == packets.SubAckFailure {
		return 0, ErrSubscriptionRefused
	}

	return granted[0], nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
