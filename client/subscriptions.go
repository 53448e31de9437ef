// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import "sync"

// Handler is invoked by the dispatch path for inbound messages matching a
// binding. data is the value given to Subscribe.
type Handler func(topic string, payload []byte, qos byte, data any)

// Binding is one topic filter registered with the broker.
type Binding struct {
	Filter     string
	QoS        byte // requested
	GrantedQoS byte // returned in SUBACK
	Handler    Handler
	Data       any
}

type slot struct {
	used    bool
	binding Binding
}

// Registry is the fixed-capacity subscription table. A freed slot is reused
// in place; slots are never compacted.
type Registry struct {
	mu    sync.RWMutex
	slots []slot
	count int
}

// NewRegistry creates a registry with room for capacity bindings.
func NewRegistry(capacity int) *Registry {
	return &Registry{slots: make([]slot, capacity)}
}

// Cap returns the number of slots.
func (r *Registry) Cap() int {
	return len(r.slots)
}

// Count returns the number of occupied slots.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Allocate returns the index of the first free slot, or Cap() when the table
// is full. The slot stays free until Commit.
func (r *Registry) Allocate() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.slots {
		if !r.slots[i].used {
			return i
		}
	}
	return len(r.slots)
}

// Commit stores b in the slot at index.
func (r *Registry) Commit(index int, b Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.slots) {
		return ErrInvalidSlot
	}
	if r.slots[index].used {
		return ErrSlotOccupied
	}
	r.slots[index] = slot{used: true, binding: b}
	r.count++
	return nil
}

// Clear frees the slot at index. Returns false if it was already free.
func (r *Registry) Clear(index int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.slots) || !r.slots[index].used {
		return false
	}
	r.slots[index] = slot{}
	r.count--
	return true
}

// Remove frees every slot bound to filter and returns whether any was found.
func (r *Registry) Remove(filter string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found bool
	for i := range r.slots {
		if r.slots[i].used && r.slots[i].binding.Filter == filter {
			r.slots[i] = slot{}
			r.count--
			found = true
		}
	}
	return found
}

// Get returns the binding at index.
func (r *Registry) Get(index int) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.slots) || !r.slots[index].used {
		return Binding{}, false
	}
	return r.slots[index].binding, true
}

// Range calls fn for each occupied slot in table order until fn returns false.
// fn must not modify the registry.
func (r *Registry) Range(fn func(index int, b Binding) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.slots {
		if !r.slots[i].used {
			continue
		}
		if !fn(i, r.slots[i].binding) {
			return
		}
	}
}

// Bindings returns a copy of the occupied bindings in table order.
func (r *Registry) Bindings() []Binding {
	out := make([]Binding, 0, r.Count())
	r.Range(func(_ int, b Binding) bool {
		out = append(out, b)
		return true
	})
	return out
}

// occupied returns the indexes of the occupied slots in table order.
func (r *Registry) occupied() []int {
	var idx []int
	r.Range(func(i int, _ Binding) bool {
		idx = append(idx, i)
		return true
	})
	return idx
}

// setGranted records the QoS granted on a resubscribe.
func (r *Registry) setGranted(index int, qos byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index >= 0 && index < len(r.slots) && r.slots[index].used {
		r.slots[index].binding.GrantedQoS = qos
	}
}
