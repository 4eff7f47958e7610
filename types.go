// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package winarr

// UnknownIndex is returned by an Indexer for a value it never tagged.
const UnknownIndex int64 = -1

// Indexer associates virtual indices with stored values.
//
// AssignIndex is called with the index a value is about to be stored at.
// It may be called more than once for the same value during one operation,
// and it runs while the index's stripe lock is held, so it must not call
// back into the array.
//
// IndexOf returns the index last assigned to v, or UnknownIndex.
//
// An array built without an Indexer records the index next to each value,
// which is sufficient for values that cannot carry their own index.
type Indexer[T any] interface {
	AssignIndex(v T, index int64)
	IndexOf(v T) int64
}

// IndexFuncs adapts a pair of functions to an Indexer.
type IndexFuncs[T any] struct {
	Assign func(v T, index int64)
	Index  func(v T) int64
}

// AssignIndex calls f.Assign.
func (f IndexFuncs[T]) AssignIndex(v T, index int64) { f.Assign(v, index) }

// IndexOf calls f.Index.
func (f IndexFuncs[T]) IndexOf(v T) int64 { return f.Index(v) }

// Indexable is implemented by values that carry their own virtual index.
// Implementations are typically pointer types.
type Indexable interface {
	SetVirtualIndex(index int64)
	VirtualIndex() int64
}

// SelfIndexer returns an Indexer that stores the index in the value itself.
func SelfIndexer[T Indexable]() Indexer[T] {
	return selfIndexer[T]{}
}

type selfIndexer[T Indexable] struct{}

func (selfIndexer[T]) AssignIndex(v T, index int64) { v.SetVirtualIndex(index) }
func (selfIndexer[T]) IndexOf(v T) int64            { return v.VirtualIndex() }

// Window is the read and remove surface shared by [Array] and [Optimistic].
//
// Both variants assign monotonically increasing virtual indices and never
// reuse an index once it has been removed.
type Window[T any] interface {
	// Add appends v at the next virtual index and returns that index.
	Add(v T) (int64, error)

	// Set stores v at index and returns the previous value, if any.
	Set(index int64, v T) (T, bool, error)

	// Get returns the value at index, if one is present.
	Get(index int64) (T, bool)

	// GetAll looks up each of indices, writing hits to results (and found,
	// when non-nil). Returns the number of hits.
	GetAll(indices []int64, results []T, found []bool) int

	// Remove removes the value at index and returns it, if one was present.
	Remove(index int64) (T, bool, error)

	// IsRemoved reports whether index has been removed.
	IsRemoved(index int64) bool

	FirstIndex() int64
	LastIndex() int64
	WindowSize() int
	Capacity() int
}

// Queue is the combined producer-consumer interface for a FIFO queue.
//
// Queue provides non-blocking Enqueue and Dequeue operations. Dequeue
// returns ErrWouldBlock when no element is ready.
//
// The interface intentionally excludes length; track counts in application
// logic when needed.
type Queue[T any] interface {
	Producer[T]
	Consumer[T]
	Cap() int
}

// Producer is the interface for enqueueing elements.
//
// The element is passed by pointer to avoid copying large structs. The
// queue stores a copy of the pointed-to value.
type Producer[T any] interface {
	// Enqueue adds an element to the queue (non-blocking).
	// Returns nil on success or an error wrapping ErrOutOfBounds when the
	// queue cannot grow any further.
	Enqueue(elem *T) error
}

// Consumer is the interface for dequeueing elements.
type Consumer[T any] interface {
	// Dequeue removes and returns an element from the queue (non-blocking).
	// Returns (zero-value, ErrWouldBlock) if no element is ready.
	Dequeue() (T, error)
}
