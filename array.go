// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package winarr

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"code.hybscloud.com/winarr/internal/stripe"
)

// storeSpins is how many times stableStore spins before blocking on the
// resize lock.
const storeSpins = 64

// Array is a growable windowed array safe for concurrent use.
//
// Values live at monotonically increasing virtual indices. The window
// [FirstIndex, LastIndex] moves forward as indices are added and removed;
// a removed index is never reused. The backing store is circular and grows
// by doubling when a write lands beyond what it can address.
//
// Access to each index is serialized by one of a fixed set of stripe locks,
// so operations on different indices rarely contend. A single resize lock is
// taken only to grow. While the store is being rebuilt its reference is nil;
// operations that observe that wait for the new store and retry.
//
// Lock order: a stripe lock is never held while acquiring the resize lock.
//
// Per index state: unwritten → live → removed. Removed is terminal; Set and
// Clear move between unwritten and live.
type Array[T any] struct {
	_       pad
	last    atomix.Int64 // LastIndex
	_       padShort
	assumed atomix.Int64 // Lower bound of FirstIndex, only raised
	_       padShort
	store   atomix.Pointer[store[T]] // nil while growing
	_       padPtr

	resize  sync.Mutex
	guard   capacityGuard // guarded by resize
	stripes *stripe.Set
	holes   holeCache[T]
	indexer Indexer[T]

	expansions atomix.Int64
	optimistic atomix.Int64
	waits      atomix.Int64
	waiting    atomix.Int64
}

func newArray[T any](opts Options, indexer Indexer[T]) *Array[T] {
	capacity := roundToPow2(opts.capacity)
	a := &Array[T]{
		guard:   capacityGuard{max: opts.maxCapacity, logger: opts.logger},
		stripes: stripe.New(opts.stripes),
		indexer: indexer,
	}
	a.last.Store(-1)
	st := newStore[T](capacity)
	st.fill(0, st.capacity(), a.holes.get(0))
	a.store.StoreRelease(st)
	return a
}

// Add appends v at the next virtual index and returns that index.
//
// The index is claimed before v is stored. If storing fails because the
// store cannot grow any further, Add returns the claimed index together with
// an error wrapping ErrOutOfBounds; that index stays unwritten.
func (a *Array[T]) Add(v T) (int64, error) {
	index := a.last.AddAcqRel(1)
	_, _, err := a.setInternal(index, v, false)
	return index, err
}

// Set stores v at index and returns the previous value, if any.
//
// Setting an index beyond LastIndex extends the window. Fails with
// ErrOutOfBounds for a negative index, an index that has already been
// removed, or when the store cannot grow enough to address index. An index
// no store could ever address leaves LastIndex unchanged.
func (a *Array[T]) Set(index int64, v T) (T, bool, error) {
	if index < 0 {
		var zero T
		return zero, false, errNegative(index)
	}
	if err := a.reachable(index); err != nil {
		var zero T
		return zero, false, err
	}
	a.ensureLast(index)
	return a.setInternal(index, v, false)
}

// Clear resets index to unwritten and returns the previous value, if any.
// Unlike Remove, the index stays usable.
func (a *Array[T]) Clear(index int64) (T, bool, error) {
	var zero T
	if index < 0 {
		return zero, false, errNegative(index)
	}
	if err := a.reachable(index); err != nil {
		return zero, false, err
	}
	a.ensureLast(index)
	return a.setInternal(index, zero, true)
}

// reachable fails for an index that lies max capacity or more past
// FirstIndex. The cached lower bound settles most calls without a scan.
func (a *Array[T]) reachable(index int64) error {
	if a.guard.reach(index, a.assumed.Load()) == nil {
		return nil
	}
	return a.guard.reach(index, a.FirstIndex())
}

// ensureLast raises LastIndex to at least index.
func (a *Array[T]) ensureLast(index int64) {
	for {
		last := a.last.Load()
		if last >= index || a.last.CompareAndSwapAcqRel(last, index) {
			return
		}
	}
}

func (a *Array[T]) setInternal(index int64, v T, unset bool) (T, bool, error) {
	var zero T
	for {
		l, st := a.lockStore(index)
		actual := st.actual(index)
		old := st.load(actual)
		found := old.virtualIndex(actual, a.indexer)
		if found == index {
			var e *entry[T]
			if unset {
				e = a.holes.get(index - actual)
			} else {
				if a.indexer != nil {
					a.indexer.AssignIndex(v, index)
				}
				e = &entry[T]{value: v, index: index}
			}
			st.put(actual, e)
			l.Broadcast()
			l.Unlock()
			if old.hole {
				return zero, false, nil
			}
			return old.value, true, nil
		}
		l.Unlock()

		if found > index {
			if st.actual(found) == actual {
				return zero, false, fmt.Errorf("%w: index %d has already been removed and cannot be reset",
					ErrOutOfBounds, index)
			}
			return zero, false, fmt.Errorf("%w: found unexpected value at virtual index %d actual %d capacity %d",
				ErrInvariant, found, st.actual(found), st.capacity())
		}

		// The slot still belongs to an earlier index: the store is too small.
		if err := a.growFor(st, index); err != nil {
			return zero, false, err
		}
	}
}

// Get returns the value at index without waiting.
// Returns false if index is unwritten, removed, outside the window, or
// negative.
func (a *Array[T]) Get(index int64) (T, bool) {
	var zero T
	if index < 0 {
		return zero, false
	}
	l, st := a.lockStore(index)
	actual := st.actual(index)
	e := st.load(actual)
	l.Unlock()
	if e.hole || e.virtualIndex(actual, a.indexer) != index {
		return zero, false
	}
	return e.value, true
}

// GetWait returns the value at index, waiting up to timeout for it to be
// written. A zero timeout does not wait; a negative timeout waits until the
// value arrives or ctx is done.
//
// Returns false when the timeout expires or the index has been removed.
// Returns an error wrapping ErrInterrupted (and ctx.Err()) if ctx is done
// while waiting, or ErrOutOfBounds for a negative index.
func (a *Array[T]) GetWait(ctx context.Context, index int64, timeout time.Duration) (T, bool, error) {
	var zero T
	if index < 0 {
		return zero, false, errNegative(index)
	}
	deadline := deadlineOf(timeout)
	for {
		l, st := a.lockStore(index)
		actual := st.actual(index)
		e := st.load(actual)
		found := e.virtualIndex(actual, a.indexer)
		switch {
		case found > index:
			l.Unlock()
			return zero, false, nil
		case found == index && !e.hole:
			l.Unlock()
			return e.value, true, nil
		case timeout == 0:
			l.Unlock()
			return zero, false, nil
		}
		ok, err := a.wait(ctx, l, deadline)
		l.Unlock()
		if err != nil {
			return zero, false, errInterrupted(err)
		}
		if !ok {
			return zero, false, nil
		}
	}
}

// GetAll looks up each of indices and writes the value into the matching
// position of results, or the zero value on a miss. When found is non-nil it
// receives the hit flags. Returns the number of hits.
//
// Each lookup is current when made, but nothing holds across lookups: the
// values for i and i+1 may never have been present at the same time.
//
// Panics if results (or a non-nil found) is shorter than indices.
func (a *Array[T]) GetAll(indices []int64, results []T, found []bool) int {
	_ = results[:len(indices)]
	if found != nil {
		_ = found[:len(indices)]
	}
	n := 0
	for i, index := range indices {
		v, ok := a.Get(index)
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

// OptimisticGet reads the value at index without taking any lock.
//
// A returned value was genuinely stored at index at some point, but may
// already have been replaced or removed. A miss does not mean index is
// empty. Useful for indices read by many goroutines at once.
func (a *Array[T]) OptimisticGet(index int64) (T, bool) {
	var zero T
	st := a.store.LoadAcquire()
	if st == nil || index < 0 {
		return zero, false
	}
	actual := st.actual(index)
	e := st.load(actual)
	if e.hole || e.virtualIndex(actual, a.indexer) != index {
		return zero, false
	}
	a.optimistic.Add(1)
	return e.value, true
}

// IsRemoved reports whether index has been removed.
func (a *Array[T]) IsRemoved(index int64) bool {
	if index < 0 {
		return false
	}
	st := a.stableStore()
	actual := st.actual(index)
	if st.load(actual).virtualIndex(actual, a.indexer) > index {
		return true
	}
	l, st := a.lockStore(index)
	actual = st.actual(index)
	e := st.load(actual)
	l.Unlock()
	return e.virtualIndex(actual, a.indexer) > index
}

// Remove removes index and returns its value, if one was present.
//
// An unwritten index inside the window may be removed; it then never
// receives a value. Removing an already removed index returns false.
// Fails with ErrOutOfBounds for a negative index or an index beyond the
// window, including one whose slot is still occupied because the store has
// not grown to address it yet.
func (a *Array[T]) Remove(index int64) (T, bool, error) {
	if last := a.last.Load(); index > last {
		var zero T
		return zero, false, errBeyondWindow(index, last)
	}
	return a.removeInternal(context.Background(), index, 0, false)
}

// SafeRemove removes index only if a value is present and returns it.
// Returns false without removing anything otherwise.
func (a *Array[T]) SafeRemove(index int64) (T, bool, error) {
	return a.removeInternal(context.Background(), index, 0, true)
}

// SafeRemoveWait is SafeRemove waiting up to timeout for a value to be
// written. Timeout semantics match GetWait.
func (a *Array[T]) SafeRemoveWait(ctx context.Context, index int64, timeout time.Duration) (T, bool, error) {
	return a.removeInternal(ctx, index, timeout, true)
}

// removeInternal removes index. Callers only pass a non-zero timeout with
// safe set: a removal that may take an unwritten index never blocks.
func (a *Array[T]) removeInternal(ctx context.Context, index int64, timeout time.Duration, safe bool) (T, bool, error) {
	var zero T
	if index < 0 {
		return zero, false, errNegative(index)
	}
	deadline := deadlineOf(timeout)

	var (
		st     *store[T]
		actual int64
		e      *entry[T]
	)
	for {
		var l *stripe.Lock
		l, st = a.lockStore(index)
		actual = st.actual(index)
		e = st.load(actual)
		found := e.virtualIndex(actual, a.indexer)
		if found > index {
			l.Unlock()
			return zero, false, nil
		}
		if found == index && !(safe && e.hole) {
			st.put(actual, a.holes.get(index-actual+st.capacity()))
			l.Broadcast()
			l.Unlock()
			break
		}
		if timeout == 0 {
			l.Unlock()
			if safe {
				return zero, false, nil
			}
			return zero, false, errBeyondWindow(index, a.last.Load())
		}
		ok, err := a.wait(ctx, l, deadline)
		l.Unlock()
		if err != nil {
			return zero, false, errInterrupted(err)
		}
		if !ok {
			return zero, false, nil
		}
	}

	if index == a.assumed.Load() {
		a.advanceAssumed(st, index)
	}
	if e.hole {
		return zero, false, nil
	}
	return e.value, true, nil
}

// advanceAssumed moves the FirstIndex hint past index, which was just
// removed. st may be stale; a stale store only under-reports removals, which
// keeps the hint conservative.
func (a *Array[T]) advanceAssumed(st *store[T], index int64) {
	for next := index + 1; ; next++ {
		actual := st.actual(next)
		if st.load(actual).virtualIndex(actual, a.indexer) <= next {
			a.raiseAssumed(next)
			return
		}
	}
}

func (a *Array[T]) raiseAssumed(index int64) {
	for {
		cur := a.assumed.Load()
		if cur >= index || a.assumed.CompareAndSwapAcqRel(cur, index) {
			return
		}
	}
}

// FirstIndex returns the lowest index that has not been removed.
// Equals LastIndex+1 when the window is empty.
//
// FirstIndex scans forward from a cached lower bound, taking each
// candidate's stripe lock, so it is comparatively expensive and must not be
// called while holding a stripe lock (for example from an Indexer). The scan
// is not bounded: many consecutive removed indices are walked one by one.
//
// Panics with ErrInvariant if the slots contradict the window.
func (a *Array[T]) FirstIndex() int64 {
	for {
		if first, ok := a.firstIndexIn(a.stableStore()); ok {
			return first
		}
	}
}

// firstIndexIn scans st for the first index. Reports false if st was
// replaced during the scan.
func (a *Array[T]) firstIndexIn(st *store[T]) (int64, bool) {
	assumed := a.assumed.Load()
	for index := assumed; ; index++ {
		actual := st.actual(index)
		if st.load(actual).virtualIndex(actual, a.indexer) > index {
			continue
		}
		l := a.stripes.For(index)
		l.Lock()
		if a.store.LoadAcquire() != st {
			l.Unlock()
			return 0, false
		}
		found := st.load(actual).virtualIndex(actual, a.indexer)
		l.Unlock()
		if found == index {
			if index != assumed {
				a.raiseAssumed(index)
			}
			return index, true
		}
		if found < index {
			panic(fmt.Errorf("%w: slot for index %d holds earlier index %d", ErrInvariant, index, found))
		}
	}
}

// LastIndex returns the highest index claimed so far, or -1.
func (a *Array[T]) LastIndex() int64 {
	return a.last.Load()
}

// WindowSize returns LastIndex - FirstIndex + 1.
// It computes FirstIndex and shares its cost and restrictions.
func (a *Array[T]) WindowSize() int {
	return int(a.LastIndex() - a.FirstIndex() + 1)
}

// Capacity returns the current store capacity.
func (a *Array[T]) Capacity() int {
	return int(a.stableStore().capacity())
}

// All returns an iterator over the live values of the window in index
// order. Values are read one at a time, as with GetAll.
func (a *Array[T]) All() iter.Seq2[int64, T] {
	return func(yield func(int64, T) bool) {
		for index, last := a.FirstIndex(), a.LastIndex(); index <= last; index++ {
			if v, ok := a.Get(index); ok && !yield(index, v) {
				return
			}
		}
	}
}

// lockStore acquires the stripe lock of index and returns it together with
// the current store. It waits out any resize in progress.
func (a *Array[T]) lockStore(index int64) (*stripe.Lock, *store[T]) {
	l := a.stripes.For(index)
	for {
		l.Lock()
		if st := a.store.LoadAcquire(); st != nil {
			return l, st
		}
		l.Unlock()
		a.stableStore()
	}
}

// stableStore returns the current store, waiting for a resize in progress to
// publish its result. Must not be called while holding a stripe lock.
func (a *Array[T]) stableStore() *store[T] {
	sw := spin.Wait{}
	for range storeSpins {
		if st := a.store.LoadAcquire(); st != nil {
			return st
		}
		sw.Once()
	}
	a.resize.Lock()
	st := a.store.LoadAcquire()
	a.resize.Unlock()
	if st == nil {
		panic(fmt.Errorf("%w: store unset outside of resize", ErrInvariant))
	}
	return st
}

// wait parks on l until it is signalled or the deadline passes.
// The caller holds l.
func (a *Array[T]) wait(ctx context.Context, l *stripe.Lock, deadline time.Time) (bool, error) {
	a.waits.Add(1)
	a.waiting.Add(1)
	defer a.waiting.Add(-1)
	return l.Wait(ctx, deadline)
}

// growFor grows the store so that it can address index, unless another
// goroutine already replaced st.
func (a *Array[T]) growFor(st *store[T], index int64) error {
	a.resize.Lock()
	defer a.resize.Unlock()
	if a.store.LoadAcquire() != st {
		return nil
	}
	return a.grow(st, index)
}

// grow rebuilds old into a larger store able to address index.
// The caller holds the resize lock and old is the current store.
//
// The store reference is unset for the duration of the rebuild. Once it is
// unset and every stripe has been cycled, no writer stores into old, so the
// copy sees its final state. The deferred publish commits the new store or
// restores old on failure.
func (a *Array[T]) grow(old *store[T], index int64) error {
	first, ok := a.firstIndexIn(old)
	if !ok {
		return fmt.Errorf("%w: store replaced while holding the resize lock", ErrInvariant)
	}
	if err := a.guard.reach(index, first); err != nil {
		return err
	}
	oldCap := old.capacity()
	capacity, err := a.guard.check(int(oldCap), max(int(oldCap)*2, int(index-first)+3), first, func() string {
		return a.describe(first)
	})
	if err != nil {
		return err
	}

	next := old
	a.store.StoreRelease(nil)
	defer func() { a.store.StoreRelease(next) }()
	a.stripes.Sync()

	hi := max(index, a.highestRecorded(old, first))
	if err := a.guard.reach(hi, first); err != nil {
		return err
	}
	capacity = max(capacity, int(hi-first)+1)

	st := newStore[T](capacity)
	newCap := st.capacity()
	firstActual := first % newCap
	offset := first - firstActual
	st.fill(firstActual, newCap, a.holes.get(offset))
	st.fill(0, firstActual, a.holes.get(offset+newCap))

	for v := first; v <= hi; v++ {
		oldActual := old.actual(v)
		e := old.load(oldActual)
		found := e.virtualIndex(oldActual, a.indexer)
		actual := st.actual(v)
		switch {
		case found == v && !e.hole:
			st.put(actual, e)
		case found > v:
			st.put(actual, a.holes.get(v+newCap-actual))
		}
	}

	next = st
	a.expansions.Add(1)
	return nil
}

// highestRecorded returns the highest index at or after first that st holds
// a value or a removal for, or first-1 if there is none.
func (a *Array[T]) highestRecorded(st *store[T], first int64) int64 {
	hi := first - 1
	n := st.capacity()
	for actual := range n {
		e := st.load(actual)
		found := e.virtualIndex(actual, a.indexer)
		if e.hole {
			// The slot's previous generation was removed.
			found -= n
		}
		hi = max(hi, found)
	}
	return hi
}

// describe renders the value at index for diagnostics.
func (a *Array[T]) describe(index int64) string {
	if v, ok := a.Get(index); ok {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return "<none>"
}

// deadlineOf converts a wait timeout into a deadline.
// Zero means no deadline (an infinite or a non-blocking wait).
func deadlineOf(timeout time.Duration) time.Time {
	if timeout > 0 {
		return time.Now().Add(timeout)
	}
	return time.Time{}
}
