// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"sync/atomic"
)

// State represents the client connection state.
type State uint32

// Client states.
const (
	StateInvalid State = iota
	StateInitialized
	StateConnecting
	StateConnectedIdle
	StateConnectedYieldInProgress
	StateConnectedPublishInProgress
	StateConnectedSubscribeInProgress
	StateConnectedUnsubscribeInProgress
	StateConnectedResubscribeInProgress
	StateConnectedWaitForCallbackReturn
	StateDisconnecting
	StateDisconnectedError
	StateDisconnectedManually
	StatePendingReconnect
)

// StateDisconnected is the state of a client that has never connected.
const StateDisconnected = StateInitialized

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInvalid:
		return "invalid"
	case StateInitialized:
		return "initialized"
	case StateConnecting:
		return "connecting"
	case StateConnectedIdle:
		return "connected_idle"
	case StateConnectedYieldInProgress:
		return "connected_yield_in_progress"
	case StateConnectedPublishInProgress:
		return "connected_publish_in_progress"
	case StateConnectedSubscribeInProgress:
		return "connected_subscribe_in_progress"
	case StateConnectedUnsubscribeInProgress:
		return "connected_unsubscribe_in_progress"
	case StateConnectedResubscribeInProgress:
		return "connected_resubscribe_in_progress"
	case StateConnectedWaitForCallbackReturn:
		return "connected_wait_for_callback_return"
	case StateDisconnecting:
		return "disconnecting"
	case StateDisconnectedError:
		return "disconnected_error"
	case StateDisconnectedManually:
		return "disconnected_manually"
	case StatePendingReconnect:
		return "pending_reconnect"
	default:
		return "unknown"
	}
}

// StateMachine is the connection state collaborator. Transition must be an
// atomic compare-and-set.
type StateMachine interface {
	State() State
	Transition(from, to State) error
}

// StateManager handles atomic state transitions.
type StateManager struct {
	state uint32
}

// NewStateManager creates a state manager in StateInitialized.
func NewStateManager() *StateManager {
	return &StateManager{state: uint32(StateInitialized)}
}

// State returns the current state.
func (sm *StateManager) State() State {
	return State(atomic.LoadUint32(&sm.state))
}

// Set unconditionally sets the state. Reserved for the connection lifecycle.
func (sm *StateManager) Set(s State) {
	atomic.StoreUint32(&sm.state, uint32(s))
}

// Transition moves from the expected state to the new one.
func (sm *StateManager) Transition(from, to State) error {
	if atomic.CompareAndSwapUint32(&sm.state, uint32(from), uint32(to)) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s while %s", ErrStateTransition, from, to, sm.State())
}

// transitionFrom attempts to transition from any of the expected states.
// Returns true if successful.
func (sm *StateManager) transitionFrom(to State, from ...State) bool {
	for _, f := range from {
		if atomic.CompareAndSwapUint32(&sm.state, uint32(f), uint32(to)) {
			return true
		}
	}
	return false
}

// BeginConnect moves a disconnected client to StateConnecting.
func (sm *StateManager) BeginConnect() error {
	if !sm.transitionFrom(StateConnecting, StateInitialized, StateDisconnectedError, StateDisconnectedManually, StatePendingReconnect) {
		return fmt.Errorf("%w: cannot connect while %s", ErrStateTransition, sm.State())
	}
	return nil
}

// Connected completes a connection attempt.
func (sm *StateManager) Connected() error {
	return sm.Transition(StateConnecting, StateConnectedIdle)
}
