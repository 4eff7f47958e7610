// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package winarr provides growable windowed arrays addressed by
// monotonically increasing virtual indices.
//
// A windowed array holds values at indices 0, 1, 2, ... that are never
// reused. Only the window between the lowest index not yet removed
// (FirstIndex) and the highest index claimed so far (LastIndex) is backed by
// memory: a circular store whose slot for index i is i % capacity. The store
// grows by doubling when a write lands beyond what it can address, and
// removed indices free their slots for the next generation.
//
// Two variants are provided:
//
//   - [Array]: striped locks per index, blocking reads that wait for a value
//     to be written, and lock-free optimistic reads.
//   - [Optimistic]: one coarse mutex for writers and window queries;
//     Get and GetAll take no lock.
//
// [IndexedQueue] is an unbounded multi-producer multi-consumer FIFO queue
// built on an Array.
//
// # Quick Start
//
// Direct constructors:
//
//	a := winarr.NewArray[*Request](1024)
//	o := winarr.NewOptimistic[string](64)
//	q := winarr.NewIndexedQueue[Job](256)
//
// Builder API for bounds, striping and logging:
//
//	a := winarr.Build[*Msg](winarr.New(1024).MaxCapacity(1<<20).Stripes(64), nil)
//	o := winarr.BuildOptimistic[*Msg](winarr.New(64).Logger(slog.Default()), nil)
//
// # Basic Usage
//
//	a := winarr.NewArray[string](16)
//
//	i, _ := a.Add("first")       // i == 0
//	a.Set(5, "sixth")            // extends the window to [0, 5]
//	v, ok := a.Get(i)            // "first", true
//	a.Remove(i)                  // FirstIndex moves to 1
//	a.Set(i, "again")            // fails: removed indices cannot be reset
//
// Waiting for a value another goroutine will write:
//
//	v, ok, err := a.GetWait(ctx, 42, 500*time.Millisecond)
//	switch {
//	case err != nil:
//	    // ctx was canceled; errors.Is(err, winarr.ErrInterrupted)
//	case !ok:
//	    // timed out, or index 42 was removed
//	}
//
// Consuming values in index order:
//
//	for {
//	    v, ok, err := a.SafeRemoveWait(ctx, next, -1)
//	    if err != nil {
//	        return err
//	    }
//	    if ok {
//	        process(v)
//	    }
//	    next++
//	}
//
// # Indexers
//
// By default each stored value is paired with its index. Values that carry
// their own index can supply an [Indexer] instead, such as
// [SelfIndexer] for types implementing [Indexable]:
//
//	type Msg struct {
//	    seq  int64
//	    body []byte
//	}
//
//	func (m *Msg) SetVirtualIndex(i int64) { m.seq = i }
//	func (m *Msg) VirtualIndex() int64     { return m.seq }
//
//	a := winarr.Build[*Msg](winarr.New(64), winarr.SelfIndexer[*Msg]())
//
// An Indexer runs while a stripe lock is held and must not call back into the
// array. An Indexer whose IndexOf does not return the assigned index breaks
// the array; operations then fail with [ErrInvariant].
//
// # Window and Growth
//
// FirstIndex only moves when the index at the front of the window is
// removed. A window whose first value is never removed keeps growing the
// store until [Builder.MaxCapacity] is reached; past that, operations that
// need more room fail with [ErrOutOfBounds] and the array stays usable.
// A builder with a [Builder.Logger] warns (at most every 30 seconds) when
// the window keeps growing while its first index stays put.
//
// # Error Handling
//
// Out of range indices, resets of removed indices and exhausted capacity
// wrap [ErrOutOfBounds]. Canceled waits wrap [ErrInterrupted] and the
// context's error. An expired timeout is not an error: the operation
// reports false.
//
// [IndexedQueue.Dequeue] returns [ErrWouldBlock] when no element is ready.
// This error is sourced from [code.hybscloud.com/iox] for ecosystem
// consistency:
//
//	backoff := iox.Backoff{}
//	for {
//	    job, err := q.Dequeue()
//	    if err == nil {
//	        backoff.Reset()
//	        job.Run()
//	        continue
//	    }
//	    if !winarr.IsWouldBlock(err) {
//	        return err
//	    }
//	    backoff.Wait()
//	}
//
// # Capacity
//
// Capacity rounds up to the next power of 2. Minimum capacity is 2. Panic if
// capacity < 2.
//
// # Race Detection
//
// Window bounds and statistics use [code.hybscloud.com/atomix] primitives,
// which the race detector observes as plain memory accesses. Concurrent
// tests that exercise them are skipped when [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic counters with explicit memory
// ordering, [code.hybscloud.com/spin] for CPU pause instructions while a
// store is being rebuilt, and [github.com/cornelk/hashmap] to track indices
// abandoned by failed enqueues.
package winarr
