// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

func TestNewOptions(t *testing.T) {
	opts := NewOptions()

	if opts.CommandTimeout != DefaultCommandTimeout {
		t.Errorf("expected CommandTimeout %v, got %v", DefaultCommandTimeout, opts.CommandTimeout)
	}
	if opts.MaxSubscriptions != DefaultMaxSubscriptions {
		t.Errorf("expected MaxSubscriptions %d, got %d", DefaultMaxSubscriptions, opts.MaxSubscriptions)
	}
	if opts.VerifyPacketID {
		t.Error("expected VerifyPacketID to be false by default")
	}
	if opts.ResubscribeRate != rate.Inf {
		t.Errorf("expected unlimited resubscribe rate, got %v", opts.ResubscribeRate)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("default options should be valid: %v", err)
	}
}

func TestOptionsBuilder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sm := NewStateManager()
	ids := NewSequentialIDs()

	opts := NewOptions().
		SetCommandTimeout(5*time.Second).
		SetBufferSizes(128, 256).
		SetMaxSubscriptions(10).
		SetVerifyPacketID(true).
		SetResubscribeRate(20, 4).
		SetStateMachine(sm).
		SetPacketIDs(ids).
		SetClock(clock)

	if opts.CommandTimeout != 5*time.Second {
		t.Errorf("expected CommandTimeout 5s, got %v", opts.CommandTimeout)
	}
	if opts.WriteBufferSize != 128 || opts.ReadBufferSize != 256 {
		t.Errorf("expected buffers 128/256, got %d/%d", opts.WriteBufferSize, opts.ReadBufferSize)
	}
	if opts.MaxSubscriptions != 10 {
		t.Errorf("expected MaxSubscriptions 10, got %d", opts.MaxSubscriptions)
	}
	if !opts.VerifyPacketID {
		t.Error("expected VerifyPacketID to be true")
	}
	if opts.ResubscribeRate != 20 || opts.ResubscribeBurst != 4 {
		t.Errorf("expected rate 20 burst 4, got %v %d", opts.ResubscribeRate, opts.ResubscribeBurst)
	}
	if opts.State != sm || opts.PacketIDs != ids || opts.Clock != clock {
		t.Error("collaborators should be set")
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		opts *Options
		err  error
	}{
		{"zero timeout", NewOptions().SetCommandTimeout(0), ErrInvalidTimeout},
		{"zero write buffer", NewOptions().SetBufferSizes(0, 10), ErrInvalidBufferSize},
		{"negative read buffer", NewOptions().SetBufferSizes(10, -1), ErrInvalidBufferSize},
		{"zero capacity", NewOptions().SetMaxSubscriptions(0), ErrInvalidCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.Validate(); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestNewClientOptions(t *testing.T) {
	if _, err := New(nil, nil); !errors.Is(err, ErrNoTransport) {
		t.Errorf("expected ErrNoTransport, got %v", err)
	}
	if _, err := New(&fakeBroker{}, NewOptions().SetMaxSubscriptions(0)); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("expected ErrInvalidCapacity, got %v", err)
	}

	c, err := New(&fakeBroker{}, nil)
	if err != nil {
		t.Fatalf("New with nil options failed: %v", err)
	}
	if c.Registry().Cap() != DefaultMaxSubscriptions {
		t.Errorf("expected capacity %d, got %d", DefaultMaxSubscriptions, c.Registry().Cap())
	}
	if c.State() != StateInitialized {
		t.Errorf("expected Initialized, got %v", c.State())
	}
}
