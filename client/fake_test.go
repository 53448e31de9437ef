// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/absmach/mqttsub/packets"
	v3 "github.com/absmach/mqttsub/packets/v3"
	"github.com/absmach/mqttsub/timer"
	paho "github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/stretchr/testify/require"
)

// fakeBroker is an in-process Transport that answers every SUBSCRIBE with a
// SUBACK granting the requested QoS, unless told otherwise, and every
// UNSUBSCRIBE with an UNSUBACK.
type fakeBroker struct {
	disconnected bool
	sendErr      error
	idOffset     uint16
	grant        func(req *paho.SubscribePacket) []byte
	onSend       func(req *paho.SubscribePacket)
	failWait     map[int]error // keyed by 1-based WaitFor call

	sent    []*paho.SubscribePacket
	unsent  []*paho.UnsubscribePacket
	pending [][]byte
	waits   int
}

func (b *fakeBroker) IsConnected() bool {
	return !b.disconnected
}

func (b *fakeBroker) Send(p []byte, _ *timer.Timer) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	cp, err := paho.ReadPacket(bytes.NewReader(p))
	if err != nil {
		return err
	}
	if unsub, ok := cp.(*paho.UnsubscribePacket); ok {
		b.unsent = append(b.unsent, unsub)
		ack := &v3.UnsubAck{ID: unsub.MessageID + b.idOffset}
		b.pending = append(b.pending, ack.Encode())
		return nil
	}
	req, ok := cp.(*paho.SubscribePacket)
	if !ok {
		return fmt.Errorf("unexpected %T", cp)
	}
	b.sent = append(b.sent, req)
	if b.onSend != nil {
		b.onSend(req)
	}

	codes := req.Qoss
	if b.grant != nil {
		codes = b.grant(req)
	}
	ack := &v3.SubAck{ID: req.MessageID + b.idOffset, ReturnCodes: codes}
	b.pending = append(b.pending, ack.Encode())
	return nil
}

func (b *fakeBroker) WaitFor(packetType byte, p []byte, _ *timer.Timer) (int, error) {
	b.waits++
	if err, ok := b.failWait[b.waits]; ok {
		if len(b.pending) > 0 {
			b.pending = b.pending[1:]
		}
		return 0, err
	}
	if len(b.pending) == 0 {
		return 0, timer.ErrTimeout
	}
	pkt := b.pending[0]
	b.pending = b.pending[1:]
	if pkt[0]>>4 != packetType {
		return 0, packets.ErrProtocol
	}
	return copy(p, pkt), nil
}

func (b *fakeBroker) filters() []string {
	var out []string
	for _, s := range b.sent {
		out = append(out, s.Topics...)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(sm StateMachine) *Options {
	return NewOptions().
		SetMaxSubscriptions(3).
		SetStateMachine(sm).
		SetLogger(discardLogger())
}

// newTestClient returns a connected, idle client on b.
func newTestClient(t *testing.T, b *fakeBroker, opts *Options) (*Client, *StateManager) {
	t.Helper()
	sm := NewStateManager()
	sm.Set(StateConnectedIdle)
	if opts == nil {
		opts = testOptions(sm)
	} else {
		opts.SetStateMachine(sm).SetLogger(discardLogger())
	}

	c, err := New(b, opts)
	require.NoError(t, err)
	return c, sm
}

func noopHandler(string, []byte, byte, any) {}
