// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stripe provides a fixed table of striped locks with
// deadline-aware condition waits.
//
// A Set maps an unbounded index space onto a small power-of-two number of
// locks. Distinct indices may share a lock; callers only rely on every
// access to a given index being serialized by the same lock.
//
// Each Lock doubles as a condition variable. Wait releases the lock and
// parks until Broadcast, a deadline, or context cancellation, then
// reacquires it. Wakeups may be spurious; callers re-check their condition
// in a loop.
package stripe

import (
	"context"
	"sync"
	"time"
)

// Lock is a mutex with an attached broadcast signal.
type Lock struct {
	mu      sync.Mutex
	signal  chan struct{} // closed by Broadcast; guarded by mu
	waiters int           // guarded by mu
	_       [64 - 24]byte
}

// Lock acquires the stripe.
func (l *Lock) Lock() { l.mu.Lock() }

// Unlock releases the stripe.
func (l *Lock) Unlock() { l.mu.Unlock() }

// Waiters returns the number of goroutines parked in Wait.
// The caller must hold the lock.
func (l *Lock) Waiters() int { return l.waiters }

// Broadcast wakes every goroutine parked in Wait.
// The caller must hold the lock.
func (l *Lock) Broadcast() {
	// Woken waiters stay counted until they reacquire the lock.
	if l.waiters == 0 || l.signal == nil {
		return
	}
	close(l.signal)
	l.signal = nil
}

// Wait releases the lock until Broadcast is called, deadline passes, or ctx
// is done, and reacquires it before returning. The caller must hold the lock.
//
// A zero deadline waits without a time limit. Wait reports false without
// parking when the deadline has already passed. A non-nil error is
// ctx.Err().
func (l *Lock) Wait(ctx context.Context, deadline time.Time) (bool, error) {
	var expired <-chan time.Time
	if !deadline.IsZero() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		t := time.NewTimer(remaining)
		defer t.Stop()
		expired = t.C
	}
	if l.signal == nil {
		l.signal = make(chan struct{})
	}
	signal := l.signal
	l.waiters++
	l.mu.Unlock()

	ok, err := true, error(nil)
	select {
	case <-signal:
	case <-expired:
		ok = false
	case <-ctx.Done():
		err = ctx.Err()
	}

	l.mu.Lock()
	l.waiters--
	return ok, err
}

// Set is a fixed table of stripe locks.
type Set struct {
	locks []Lock
	mask  uint64
}

// New creates a Set with n locks rounded up to the next power of 2.
// Panics if n < 1.
func New(n int) *Set {
	if n < 1 {
		panic("stripe: count must be >= 1")
	}
	size := 1
	for size < n {
		size <<= 1
	}
	return &Set{
		locks: make([]Lock, size),
		mask:  uint64(size - 1),
	}
}

// For returns the lock guarding index.
func (s *Set) For(index int64) *Lock {
	return &s.locks[uint64(index)&s.mask]
}

// Sync acquires and releases every lock in the set in order, waiting out
// every critical section already in progress.
func (s *Set) Sync() {
	for i := range s.locks {
		s.locks[i].Lock()
		s.locks[i].Unlock()
	}
}

// Len returns the number of locks in the set.
func (s *Set) Len() int {
	return len(s.locks)
}
