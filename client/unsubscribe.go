// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/absmach/mqttsub/packets"
	v3 "github.com/absmach/mqttsub/packets/v3"
	"github.com/absmach/mqttsub/timer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Unsubscribe removes filter at the broker and frees every slot bound to it
// once the UNSUBACK arrives. Unknown filters fail without sending anything.
// Like Subscribe, it may be called from a message handler.
func (c *Client) Unsubscribe(ctx context.Context, filter string) error {
	if c == nil || filter == "" {
		return ErrNullArgument
	}
	if !c.transport.IsConnected() {
		return ErrNetworkDisconnected
	}

	prev := c.state.State()
	if prev != StateConnectedIdle && prev != StateConnectedWaitForCallbackReturn {
		return fmt.Errorf("%w: %s", ErrClientNotIdle, prev)
	}
	if err := c.state.Transition(prev, StateConnectedUnsubscribeInProgress); err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, "mqtt.unsubscribe", trace.WithAttributes(
		attribute.String("mqtt.topic_filter", filter),
	))

	err := c.unsubscribe(ctx, filter)
	err = c.restore(StateConnectedUnsubscribeInProgress, prev, err)

	c.metrics.recordUnsubscribe(ctx, err)
	endSpan(span, err)

	return err
}

func (c *Client) unsubscribe(ctx context.Context, filter string) error {
	var known bool
	c.registry.Range(func(_ int, b Binding) bool {
		known = b.Filter == filter
		return !known
	})
	if !known {
		return fmt.Errorf("%w: %q", ErrNotSubscribed, filter)
	}

	t := timer.Start(c.clock, c.opts.CommandTimeout)
	id := c.ids.Next()
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("mqtt.packet_id", int(id)))

	n, err := v3.EncodeUnsubscribe(c.writeBuf, id, []string{filter})
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.transport.Send(c.writeBuf[:n], t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	rn, err := c.transport.WaitFor(packets.UnsubAckType, c.readBuf, t)
	if err != nil {
		return err
	}
	if rn < 0 || rn > len(c.readBuf) {
		return fmt.Errorf("%w: transport reported %d bytes", ErrProtocol, rn)
	}
	rxID, err := v3.DecodeUnsubAck(c.readBuf[:rn])
	if err != nil {
		return err
	}
	if rxID != id && c.opts.VerifyPacketID {
		return fmt.Errorf("%w: sent %d, received %d", ErrPacketIDMismatch, id, rxID)
	}

	c.registry.Remove(filter)
	c.logger.Debug("unsubscribe_acknowledged",
		slog.String("filter", filter),
		slog.Int("packet_id", int(id)))

	return nil
}
