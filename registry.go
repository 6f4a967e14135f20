// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import "fmt"

// slotMap is a free-list-backed arena mapping signed int32 handles to
// values. Insertion reuses the most recently freed slot (LIFO) before
// growing the backing slice, so handle values are stable and densely
// packed. The map never shrinks; freed slots are reclaimed only by reuse.
//
// Misuse, such as removing a slot twice or accessing a free or
// out-of-range slot, is a programming error and panics.
type slotMap[T any] struct {
	entries   []slotEntry[T]
	firstFree int32
}

// slotEntry is either occupied (holding a value) or free (holding the
// index of the next free slot, forming an intrusive free list).
type slotEntry[T any] struct {
	value    T
	nextFree int32
	occupied bool
}

// noFreeSlot marks an empty free list.
const noFreeSlot int32 = -1

func newSlotMap[T any]() slotMap[T] {
	return slotMap[T]{firstFree: noFreeSlot}
}

// insert stores value and returns its handle. The most recently freed
// slot is reused when available; otherwise the backing slice grows.
func (m *slotMap[T]) insert(value T) int32 {
	if m.firstFree != noFreeSlot {
		idx := m.firstFree
		entry := &m.entries[idx]
		m.firstFree = entry.nextFree
		entry.value = value
		entry.nextFree = 0
		entry.occupied = true
		return idx
	}
	m.entries = append(m.entries, slotEntry[T]{value: value, occupied: true})
	return int32(len(m.entries) - 1) //nolint:gosec // registry growth is bounded well below int32
}

// remove frees the slot and returns its value. The freed slot becomes the
// new head of the free list. Panics if the slot is out of range or
// already free.
func (m *slotMap[T]) remove(handle int32) T {
	m.checkRange(handle)
	entry := &m.entries[handle]
	if !entry.occupied {
		panic(fmt.Sprintf("gpudev: slot %d is already free", handle))
	}
	value := entry.value
	var zero T
	entry.value = zero
	entry.nextFree = m.firstFree
	entry.occupied = false
	m.firstFree = handle
	return value
}

// get returns the value stored in the slot. Panics if the slot is out of
// range or free.
func (m *slotMap[T]) get(handle int32) T {
	m.checkRange(handle)
	entry := &m.entries[handle]
	if !entry.occupied {
		panic(fmt.Sprintf("gpudev: slot %d is free", handle))
	}
	return entry.value
}

// forEach calls fn for every occupied slot in storage order. Used for
// bulk teardown; fn must not mutate the map.
func (m *slotMap[T]) forEach(fn func(handle int32, value T)) {
	for i := range m.entries {
		if m.entries[i].occupied {
			fn(int32(i), m.entries[i].value) //nolint:gosec // index bounded by insert
		}
	}
}

// len returns the number of occupied slots.
func (m *slotMap[T]) len() int {
	n := 0
	for i := range m.entries {
		if m.entries[i].occupied {
			n++
		}
	}
	return n
}

func (m *slotMap[T]) checkRange(handle int32) {
	if handle < 0 || int(handle) >= len(m.entries) {
		panic(fmt.Sprintf("gpudev: handle %d out of range (len %d)", handle, len(m.entries)))
	}
}

// registryCell wraps a slotMap so that insert/remove/get work through a
// shared reference under a runtime-checked exclusivity guard. Overlapping
// access within a call stack, for example destroying a resource from
// inside a forEach callback, faults immediately instead of corrupting
// the free list.
//
// The guard is a borrow counter, not a lock: zero means unborrowed,
// positive counts shared borrows, -1 marks an exclusive borrow. It
// detects reentrant misuse on a single goroutine; the Device's documented
// single-recording-thread discipline covers cross-goroutine access.
type registryCell[T any] struct {
	borrow int32
	slots  slotMap[T]
}

func newRegistryCell[T any]() registryCell[T] {
	return registryCell[T]{slots: newSlotMap[T]()}
}

func (c *registryCell[T]) borrowMut() {
	if c.borrow != 0 {
		panic("gpudev: registry already borrowed")
	}
	c.borrow = -1
}

func (c *registryCell[T]) releaseMut() { c.borrow = 0 }

func (c *registryCell[T]) borrowShared() {
	if c.borrow < 0 {
		panic("gpudev: registry already mutably borrowed")
	}
	c.borrow++
}

func (c *registryCell[T]) releaseShared() { c.borrow-- }

// insert stores value under an exclusive borrow and returns its handle.
func (c *registryCell[T]) insert(value T) int32 {
	c.borrowMut()
	defer c.releaseMut()
	return c.slots.insert(value)
}

// remove frees the slot under an exclusive borrow and returns its value.
func (c *registryCell[T]) remove(handle int32) T {
	c.borrowMut()
	defer c.releaseMut()
	return c.slots.remove(handle)
}

// get returns the slot's value under a shared borrow.
func (c *registryCell[T]) get(handle int32) T {
	c.borrowShared()
	defer c.releaseShared()
	return c.slots.get(handle)
}

// forEach visits every occupied slot under a shared borrow, in storage
// order. Mutating the registry from fn faults.
func (c *registryCell[T]) forEach(fn func(handle int32, value T)) {
	c.borrowShared()
	defer c.releaseShared()
	c.slots.forEach(fn)
}

// len returns the number of occupied slots under a shared borrow.
func (c *registryCell[T]) len() int {
	c.borrowShared()
	defer c.releaseShared()
	return c.slots.len()
}
