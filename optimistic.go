// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package winarr

import (
	"fmt"
	"strings"
	"sync"

	"code.hybscloud.com/atomix"
)

var (
	_ Window[int] = (*Array[int])(nil)
	_ Window[int] = (*Optimistic[int])(nil)
)

// Optimistic is a windowed array with one coarse lock and lock-free reads.
//
// Every mutation and window query takes the array's mutex. Get and GetAll
// take no lock at all: they locate any live value in the store (the anchor),
// derive the slot of the requested index from the anchor's index, and
// validate what they find there. A read racing with a writer returns either
// a value that was once stored at the index or a miss, never another
// index's value.
//
// Within one store an index never moves relative to another; growth copies
// the window into a fresh store, so readers holding the old store still see
// consistent, if stale, slots.
type Optimistic[T any] struct {
	_           pad
	windowStart atomix.Int64 // slot of FirstIndex; written under mu
	_           padShort
	store       atomix.Pointer[store[T]]
	_           padPtr

	mu         sync.Mutex
	first      int64 // guarded by mu
	size       int   // guarded by mu
	expansions int64 // guarded by mu
	guard      capacityGuard
	indexer    Indexer[T]
	removed    *entry[T] // tombstone
}

func newOptimistic[T any](opts Options, indexer Indexer[T]) *Optimistic[T] {
	o := &Optimistic[T]{
		guard:   capacityGuard{max: opts.maxCapacity, logger: opts.logger},
		indexer: indexer,
		removed: &entry[T]{index: UnknownIndex, hole: true},
	}
	o.store.StoreRelease(newStore[T](roundToPow2(opts.capacity)))
	return o
}

// Add appends v after LastIndex and returns its index.
// Fails with ErrOutOfBounds, returning UnknownIndex, when the store cannot
// grow any further.
func (o *Optimistic[T]) Add(v T) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	index := o.first + int64(o.size)
	st, actual, err := o.ensureIndex(index)
	if err != nil {
		return UnknownIndex, err
	}
	st.put(actual, o.newEntry(v, index))
	return index, nil
}

// Set stores v at index, extending the window if needed, and returns the
// previous value, if any. Fails with ErrOutOfBounds for an index that is
// negative, before FirstIndex, already removed, or beyond what the store
// can grow to address.
func (o *Optimistic[T]) Set(index int64, v T) (T, bool, error) {
	var zero T
	if index < 0 {
		return zero, false, errNegative(index)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.replace(index, func() *entry[T] { return o.newEntry(v, index) })
}

// Clear resets index to unwritten and returns the previous value, if any.
func (o *Optimistic[T]) Clear(index int64) (T, bool, error) {
	var zero T
	if index < 0 {
		return zero, false, errNegative(index)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.replace(index, func() *entry[T] { return nil })
}

func (o *Optimistic[T]) replace(index int64, next func() *entry[T]) (T, bool, error) {
	var zero T
	st, actual, err := o.ensureIndex(index)
	if err != nil {
		return zero, false, err
	}
	old := st.load(actual)
	if old == o.removed {
		return zero, false, fmt.Errorf("%w: index %d has already been removed and cannot be reset",
			ErrOutOfBounds, index)
	}
	st.put(actual, next())
	if old == nil {
		return zero, false, nil
	}
	return old.value, true, nil
}

func (o *Optimistic[T]) newEntry(v T, index int64) *entry[T] {
	if o.indexer != nil {
		o.indexer.AssignIndex(v, index)
	}
	return &entry[T]{value: v, index: index}
}

// ensureIndex extends the window to include index, growing the store if
// needed, and returns the store and slot for index. Caller holds mu.
func (o *Optimistic[T]) ensureIndex(index int64) (*store[T], int64, error) {
	if index < o.first {
		return nil, 0, fmt.Errorf("%w: window cannot grow backwards (index=%d, window first index=%d)",
			ErrOutOfBounds, index, o.first)
	}
	if index > o.lastLocked() {
		if err := o.guard.reach(index, o.first); err != nil {
			return nil, 0, err
		}
		need := int(index-o.first) + 1
		if need > int(o.store.LoadAcquire().capacity()) {
			if err := o.grow(index, need); err != nil {
				return nil, 0, err
			}
		}
		o.size = need
	}
	st := o.store.LoadAcquire()
	return st, o.translate(st, index), nil
}

// translate returns the slot of an index inside the window. Caller holds mu.
func (o *Optimistic[T]) translate(st *store[T], index int64) int64 {
	return (o.windowStart.Load() + index - o.first) % st.capacity()
}

// grow copies the window into a fresh store with the window starting at
// slot 0. Caller holds mu.
func (o *Optimistic[T]) grow(index int64, need int) error {
	old := o.store.LoadAcquire()
	oldCap := int(old.capacity())
	capacity, err := o.guard.check(oldCap, max(oldCap*2, int(index-o.first)+3), o.first, o.describeFirst)
	if err != nil {
		return err
	}
	if capacity < need {
		return fmt.Errorf("%w: exceeded max capacity of %d (index=%d, window first index=%d)",
			ErrOutOfBounds, o.guard.max, index, o.first)
	}

	st := newStore[T](capacity)
	start := o.windowStart.Load()
	for i := range int64(o.size) {
		st.put(i, old.load((start+i)%int64(oldCap)))
	}
	o.store.StoreRelease(st)
	o.windowStart.Store(0)
	o.expansions++
	return nil
}

// describeFirst renders the first element for diagnostics. Caller holds mu.
func (o *Optimistic[T]) describeFirst() string {
	if o.size == 0 {
		return "<none>"
	}
	st := o.store.LoadAcquire()
	e := st.load(o.translate(st, o.first))
	if e == nil || e.hole {
		return "<none>"
	}
	return fmt.Sprintf("%T:%v", e.value, e.value)
}

// Get reads the value at index without locking.
//
// A returned value was stored at index at some point, but may since have
// been replaced or removed. Returns false if no live anchor is found, the
// index lies more than a capacity away from it, or the slot does not hold
// index.
func (o *Optimistic[T]) Get(index int64) (T, bool) {
	var zero T
	if index < 0 {
		return zero, false
	}
	st := o.store.LoadAcquire()
	n := st.capacity()
	start := o.windowStart.Load() % n
	for k := range n {
		actual := (start + k) % n
		anchor := st.load(actual)
		if anchor == nil || anchor.hole {
			continue
		}
		delta := anchor.virtualIndex(actual, o.indexer) - index
		if delta <= -n || delta >= n {
			return zero, false
		}
		target := ((actual-delta)%n + n) % n
		e := st.load(target)
		if e == nil || e.hole || e.virtualIndex(target, o.indexer) != index {
			return zero, false
		}
		return e.value, true
	}
	return zero, false
}

// GetAll reads each of indices without locking, as Get does. Results are
// written as by Array.GetAll. Returns the number of hits.
func (o *Optimistic[T]) GetAll(indices []int64, results []T, found []bool) int {
	_ = results[:len(indices)]
	if found != nil {
		_ = found[:len(indices)]
	}
	n := 0
	for i, index := range indices {
		v, ok := o.Get(index)
		results[i] = v
		if found != nil {
			found[i] = ok
		}
		if ok {
			n++
		}
	}
	return n
}

// Remove removes index and returns its value, if one was present.
//
// Indices before the window report false. Fails with ErrOutOfBounds for a
// negative index or one beyond LastIndex. Removing FirstIndex advances the
// window past every removed index that follows it.
func (o *Optimistic[T]) Remove(index int64) (T, bool, error) {
	var zero T
	if index < 0 {
		return zero, false, errNegative(index)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if index < o.first {
		return zero, false, nil
	}
	if last := o.lastLocked(); index > last {
		return zero, false, errBeyondWindow(index, last)
	}

	st := o.store.LoadAcquire()
	actual := o.translate(st, index)
	old := st.load(actual)
	st.put(actual, o.removed)

	if index == o.first {
		n := st.capacity()
		start := o.windowStart.Load()
		for o.size > 0 && st.load(start) == o.removed {
			st.put(start, nil)
			o.first++
			o.size--
			start = (start + 1) % n
		}
		o.windowStart.Store(start)
	}

	if old == nil || old == o.removed {
		return zero, false, nil
	}
	return old.value, true, nil
}

// IsRemoved reports whether index has been removed.
func (o *Optimistic[T]) IsRemoved(index int64) bool {
	if index < 0 {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if index > o.lastLocked() {
		return false
	}
	if index < o.first {
		return true
	}
	st := o.store.LoadAcquire()
	return st.load(o.translate(st, index)) == o.removed
}

// FirstIndex returns the lowest index of the window.
func (o *Optimistic[T]) FirstIndex() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.first
}

// LastIndex returns the highest index of the window, or FirstIndex-1 when
// the window is empty.
func (o *Optimistic[T]) LastIndex() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastLocked()
}

func (o *Optimistic[T]) lastLocked() int64 {
	return o.first + int64(o.size) - 1
}

// WindowSize returns the number of indices in the window.
func (o *Optimistic[T]) WindowSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.size
}

// Capacity returns the current store capacity.
func (o *Optimistic[T]) Capacity() int {
	return int(o.store.LoadAcquire().capacity())
}

// Stats returns a report of the array.
func (o *Optimistic[T]) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Stats{
		Capacity:   int(o.store.LoadAcquire().capacity()),
		Expansions: o.expansions,
		FirstIndex: o.first,
		LastIndex:  o.lastLocked(),
		WindowSize: o.size,
	}
}

// String formats the stats followed by every live element of the window.
func (o *Optimistic[T]) String() string {
	s := o.Stats()
	var sb strings.Builder
	sb.WriteString("Optimistic[")
	sb.WriteString(s.String())
	sb.WriteByte(']')
	for index := s.FirstIndex; index <= s.LastIndex; index++ {
		if v, ok := o.Get(index); ok {
			fmt.Fprintf(&sb, "\n[%d]=%q", index, fmt.Sprint(v))
		}
	}
	return sb.String()
}
