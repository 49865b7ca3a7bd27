// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// Pool Creation Tests
// =============================================================================

func TestPool_Create(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewPool(n)
		expected := runtime.GOMAXPROCS(0)
		if pool.Workers() != expected {
			t.Errorf("NewPool(%d).Workers() = %d, want %d (GOMAXPROCS)", n, pool.Workers(), expected)
		}
		pool.Close()
	}
}

// =============================================================================
// ExecuteAll Tests
// =============================================================================

func TestPool_ExecuteAll(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}

	pool.ExecuteAll(work)

	if got := counter.Load(); got != 100 {
		t.Errorf("counter = %d, want 100", got)
	}
}

func TestPool_ExecuteAll_Empty(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	pool.ExecuteAll(nil)
	pool.ExecuteAll([]func(){})
}

func TestPool_ExecuteAllAfterClose(t *testing.T) {
	pool := NewPool(2)
	pool.Close()

	var counter atomic.Int64
	pool.ExecuteAll([]func(){
		func() { counter.Add(1) },
		func() { counter.Add(1) },
	})
	if got := counter.Load(); got != 2 {
		t.Errorf("closed pool ran %d items, want 2 inline", got)
	}
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestPool_CloseIdempotent(t *testing.T) {
	pool := NewPool(2)
	pool.Close()
	pool.Close()
	if pool.IsRunning() {
		t.Error("Pool should not be running after Close")
	}
}

func TestPool_WorkStealing(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	// Every fourth item is slow and lands on worker 0; the others should
	// be picked up by idle workers.
	var mu sync.Mutex
	var done []int
	work := make([]func(), 32)
	for i := range work {
		work[i] = func() {
			if i%4 == 0 {
				time.Sleep(time.Millisecond)
			}
			mu.Lock()
			done = append(done, i)
			mu.Unlock()
		}
	}

	pool.ExecuteAll(work)

	if len(done) != 32 {
		t.Errorf("completed %d items, want 32", len(done))
	}
}

func TestPool_NoGoroutineLeak(t *testing.T) {
	before := runtime.NumGoroutine()

	for range 10 {
		pool := NewPool(4)
		pool.Dispatch(64, func(int) {})
		pool.Close()
	}

	time.Sleep(10 * time.Millisecond)
	after := runtime.NumGoroutine()
	if after > before+2 {
		t.Errorf("goroutines: before=%d after=%d, possible leak", before, after)
	}
}
