// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import "sync"

// PacketIDGenerator supplies packet identifiers. Next must never return 0.
type PacketIDGenerator interface {
	Next() uint16
}

// SequentialIDs cycles through 1..65535.
type SequentialIDs struct {
	mu     sync.Mutex
	nextID uint16
}

// NewSequentialIDs creates a generator starting at 1.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{nextID: 1}
}

// Next returns the next packet id.
func (g *SequentialIDs) Next() uint16 {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.nextID == 0 {
		g.nextID = 1
	}
	id := g.nextID
	g.nextID++
	return id
}
