// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import (
	"strings"
	"testing"
)

func TestSlotMap_InsertSequential(t *testing.T) {
	m := newSlotMap[string]()

	if got := m.insert("a"); got != 0 {
		t.Errorf("first insert = %d, want 0", got)
	}
	if got := m.insert("b"); got != 1 {
		t.Errorf("second insert = %d, want 1", got)
	}
	if got := m.insert("c"); got != 2 {
		t.Errorf("third insert = %d, want 2", got)
	}
	if got := m.len(); got != 3 {
		t.Errorf("len = %d, want 3", got)
	}
}

func TestSlotMap_LIFOReuse(t *testing.T) {
	m := newSlotMap[string]()
	m.insert("a") // 0
	m.insert("b") // 1
	m.insert("c") // 2

	if got := m.remove(1); got != "b" {
		t.Errorf("remove(1) = %q, want %q", got, "b")
	}
	// The most recently freed slot is reused first.
	if got := m.insert("d"); got != 1 {
		t.Errorf("insert after remove = slot %d, want 1", got)
	}
	if got := m.get(1); got != "d" {
		t.Errorf("get(1) = %q, want %q", got, "d")
	}
}

func TestSlotMap_FreeListChain(t *testing.T) {
	m := newSlotMap[int]()
	for i := 0; i < 4; i++ {
		m.insert(i * 10)
	}
	m.remove(0)
	m.remove(2)

	// Slot 2 was freed last, so it comes back first, then 0, then growth.
	if got := m.insert(100); got != 2 {
		t.Errorf("first reuse = slot %d, want 2", got)
	}
	if got := m.insert(200); got != 0 {
		t.Errorf("second reuse = slot %d, want 0", got)
	}
	if got := m.insert(300); got != 4 {
		t.Errorf("growth insert = slot %d, want 4", got)
	}
}

func TestSlotMap_IterationStorageOrder(t *testing.T) {
	m := newSlotMap[string]()
	m.insert("a") // 0
	m.insert("b") // 1
	m.insert("c") // 2
	m.remove(1)
	m.insert("d") // reuses 1

	var handles []int32
	var values []string
	m.forEach(func(h int32, v string) {
		handles = append(handles, h)
		values = append(values, v)
	})

	wantHandles := []int32{0, 1, 2}
	wantValues := []string{"a", "d", "c"}
	for i := range wantHandles {
		if i >= len(handles) || handles[i] != wantHandles[i] || values[i] != wantValues[i] {
			t.Fatalf("iteration = %v/%v, want %v/%v", handles, values, wantHandles, wantValues)
		}
	}
}

func TestSlotMap_DoubleRemovePanics(t *testing.T) {
	m := newSlotMap[string]()
	m.insert("a")
	m.remove(0)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("double remove did not panic")
		}
		if msg, ok := r.(string); !ok || !strings.Contains(msg, "already free") {
			t.Errorf("panic = %v, want mention of already free", r)
		}
	}()
	m.remove(0)
}

func TestSlotMap_GetFreePanics(t *testing.T) {
	m := newSlotMap[string]()
	m.insert("a")
	m.insert("b")
	m.remove(0)

	defer func() {
		if recover() == nil {
			t.Fatal("get on a free slot did not panic")
		}
	}()
	m.get(0)
}

func TestSlotMap_OutOfRangePanics(t *testing.T) {
	m := newSlotMap[string]()
	m.insert("a")

	for _, handle := range []int32{-1, 1, 42} {
		func() {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatalf("get(%d) did not panic", handle)
				}
				if msg, ok := r.(string); !ok || !strings.Contains(msg, "out of range") {
					t.Errorf("panic = %v, want out of range", r)
				}
			}()
			m.get(handle)
		}()
	}
}

func TestRegistryCell_BasicOperations(t *testing.T) {
	c := newRegistryCell[int]()
	h := c.insert(7)
	if got := c.get(h); got != 7 {
		t.Errorf("get = %d, want 7", got)
	}
	if got := c.len(); got != 1 {
		t.Errorf("len = %d, want 1", got)
	}
	if got := c.remove(h); got != 7 {
		t.Errorf("remove = %d, want 7", got)
	}
	if got := c.len(); got != 0 {
		t.Errorf("len after remove = %d, want 0", got)
	}
}

func TestRegistryCell_MutationDuringIterationPanics(t *testing.T) {
	c := newRegistryCell[int]()
	c.insert(1)
	c.insert(2)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("remove inside forEach did not panic")
		}
		if msg, ok := r.(string); !ok || !strings.Contains(msg, "already borrowed") {
			t.Errorf("panic = %v, want already borrowed", r)
		}
	}()
	c.forEach(func(h int32, _ int) {
		c.remove(h)
	})
}

func TestRegistryCell_SharedBorrowsNest(t *testing.T) {
	c := newRegistryCell[int]()
	h := c.insert(5)

	// Reading while iterating is fine; only mutation faults.
	c.forEach(func(_ int32, _ int) {
		if got := c.get(h); got != 5 {
			t.Errorf("nested get = %d, want 5", got)
		}
	})
	if c.borrow != 0 {
		t.Errorf("borrow counter = %d after balanced access, want 0", c.borrow)
	}
}
