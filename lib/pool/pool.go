// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool provides slot-indexed object storage for simulation
// entities. Every persistent object lives in exactly one pool under a
// stable slot index; cross-object links carry that index rather than a
// pointer, so they survive a save/load cycle unchanged.
package pool

import (
	"fmt"
	"iter"
	"slices"
)

// Pool stores objects of type T under stable uint32 slot indices.
// Deleting leaves a hole: indices are never compacted, because saved
// references name them. Pools are not safe for concurrent use; the
// simulation owns them from a single goroutine.
type Pool[T any] struct {
	name  string
	max   uint32
	slots map[uint32]*T

	// probe is where Add starts scanning for a free slot. It trails
	// the lowest index that might be free, so repeated Add/Delete
	// churn stays cheap without a separate free list.
	probe uint32
}

// New creates an empty pool. name appears in diagnostics; max bounds
// the highest usable slot index (exclusive).
func New[T any](name string, max uint32) *Pool[T] {
	return &Pool[T]{name: name, max: max, slots: make(map[uint32]*T)}
}

// Name returns the pool's diagnostic name.
func (p *Pool[T]) Name() string { return p.name }

// Max returns the exclusive upper bound on slot indices.
func (p *Pool[T]) Max() uint32 { return p.max }

// Len returns the number of occupied slots.
func (p *Pool[T]) Len() int { return len(p.slots) }

// Contains reports whether the slot is occupied.
func (p *Pool[T]) Contains(index uint32) bool {
	_, ok := p.slots[index]
	return ok
}

// Get returns the object in the slot, if any.
func (p *Pool[T]) Get(index uint32) (*T, bool) {
	obj, ok := p.slots[index]
	return obj, ok
}

// Create places a zero object at the given index. The load path uses
// it to recreate objects at their saved slots; occupying a slot twice
// means the save carried duplicate indices.
func (p *Pool[T]) Create(index uint32) (*T, error) {
	if index >= p.max {
		return nil, fmt.Errorf("%s pool: slot %d out of range (max %d)", p.name, index, p.max)
	}
	if _, taken := p.slots[index]; taken {
		return nil, fmt.Errorf("%s pool: slot %d already occupied", p.name, index)
	}
	obj := new(T)
	p.slots[index] = obj
	return obj, nil
}

// Add places a zero object in the lowest free slot and returns its
// index. Fails only when the pool is full.
func (p *Pool[T]) Add() (uint32, *T, error) {
	for index := p.probe; index < p.max; index++ {
		if _, taken := p.slots[index]; !taken {
			obj := new(T)
			p.slots[index] = obj
			p.probe = index + 1
			return index, obj, nil
		}
	}
	return 0, nil, fmt.Errorf("%s pool: no free slot (max %d)", p.name, p.max)
}

// Delete frees the slot. Deleting an empty slot is a no-op.
func (p *Pool[T]) Delete(index uint32) {
	delete(p.slots, index)
	if index < p.probe {
		p.probe = index
	}
}

// Clear empties the pool. A load starts from cleared pools so a
// failed load never leaves a half-populated world behind.
func (p *Pool[T]) Clear() {
	clear(p.slots)
	p.probe = 0
}

// All iterates the occupied slots in ascending index order. The save
// path depends on that ordering for byte-identical output.
func (p *Pool[T]) All() iter.Seq2[uint32, *T] {
	indices := make([]uint32, 0, len(p.slots))
	for index := range p.slots {
		indices = append(indices, index)
	}
	slices.Sort(indices)
	return func(yield func(uint32, *T) bool) {
		for _, index := range indices {
			if !yield(index, p.slots[index]) {
				return
			}
		}
	}
}
