// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package timer provides the countdown used to bound a single MQTT request.
// The timer is polled; it never interrupts a call that is already running.
package timer

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrTimeout is returned by transports and the client when a countdown expires.
var ErrTimeout = errors.New("operation timed out")

// Timer is a single countdown.
type Timer struct {
	clock    clockwork.Clock
	deadline time.Time
}

// New returns a stopped timer. A nil clock uses the real clock.
func New(clock clockwork.Clock) *Timer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Timer{clock: clock}
}

// Start creates a timer on clock that expires after d.
func Start(clock clockwork.Clock, d time.Duration) *Timer {
	t := New(clock)
	t.Countdown(d)
	return t
}

// Countdown (re)starts the timer to expire d from now.
func (t *Timer) Countdown(d time.Duration) {
	t.deadline = t.clock.Now().Add(d)
}

// Expired reports whether the deadline has passed. A stopped timer is expired.
func (t *Timer) Expired() bool {
	return t.Remaining() <= 0
}

// Remaining returns the time left before expiry, never negative.
func (t *Timer) Remaining() time.Duration {
	if t.deadline.IsZero() {
		return 0
	}
	left := t.deadline.Sub(t.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

// Deadline returns the wall-clock expiry, suitable for net.Conn deadlines.
func (t *Timer) Deadline() time.Time {
	return time.Now().Add(t.Remaining())
}

// After returns a channel that receives once the remaining time has elapsed
// on the timer's clock.
func (t *Timer) After() <-chan time.Time {
	return t.clock.After(t.Remaining())
}
