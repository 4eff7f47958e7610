// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package winarr

import (
	"log/slog"
	"unsafe"
)

const (
	// DefaultCapacity is the initial store capacity of the direct constructors.
	DefaultCapacity = 64

	// DefaultMaxCapacity bounds growth unless MaxCapacity is set.
	DefaultMaxCapacity = 1 << 24

	// DefaultStripes is the number of stripe locks per Array.
	DefaultStripes = 256
)

// Options configures array creation.
type Options struct {
	// Initial store capacity (rounds up to next power of 2)
	capacity int

	// Growth bound; exceeding it fails the growing operation
	maxCapacity int

	// Lock striping (rounds up to next power of 2)
	stripes int

	logger *slog.Logger
}

// Builder creates arrays and queues with fluent configuration.
//
// Example:
//
//	// Concurrent array that may grow to one million slots
//	a := winarr.Build[*Msg](winarr.New(1024).MaxCapacity(1<<20), winarr.SelfIndexer[*Msg]())
//
//	// Optimistic array with the default bound
//	o := winarr.BuildOptimistic[string](winarr.New(64), nil)
//
//	// Queue that logs when its window keeps growing
//	q := winarr.BuildQueue[Job](winarr.New(256).Logger(slog.Default()))
type Builder struct {
	opts Options
}

// New creates a builder with the given initial capacity.
//
// Capacity rounds up to the next power of 2. The store grows on demand up
// to MaxCapacity.
//
// Panics if capacity < 2.
func New(capacity int) *Builder {
	if capacity < 2 {
		panic("winarr: capacity must be >= 2")
	}
	return &Builder{opts: Options{
		capacity:    capacity,
		maxCapacity: DefaultMaxCapacity,
		stripes:     DefaultStripes,
	}}
}

// MaxCapacity bounds store growth. An operation that would need a larger
// store fails with ErrOutOfBounds; the array stays usable.
//
// Panics if n is smaller than the initial capacity after rounding.
func (b *Builder) MaxCapacity(n int) *Builder {
	if n < roundToPow2(b.opts.capacity) {
		panic("winarr: max capacity must be >= initial capacity")
	}
	b.opts.maxCapacity = n
	return b
}

// Stripes sets the number of stripe locks used by Array (rounds up to the
// next power of 2). More stripes reduce contention between unrelated indices.
//
// Panics if n < 1.
func (b *Builder) Stripes(n int) *Builder {
	if n < 1 {
		panic("winarr: stripes must be >= 1")
	}
	b.opts.stripes = n
	return b
}

// Logger sets a structured logger for operational warnings, such as a
// window that keeps growing because its first element is never removed.
func (b *Builder) Logger(logger *slog.Logger) *Builder {
	b.opts.logger = logger
	return b
}

// Build creates a concurrent Array.
// A nil indexer records indices next to the stored values.
func Build[T any](b *Builder, indexer Indexer[T]) *Array[T] {
	return newArray(b.opts, indexer)
}

// BuildOptimistic creates an Optimistic array.
// A nil indexer records indices next to the stored values.
func BuildOptimistic[T any](b *Builder, indexer Indexer[T]) *Optimistic[T] {
	return newOptimistic(b.opts, indexer)
}

// BuildQueue creates an IndexedQueue backed by a concurrent Array.
func BuildQueue[T any](b *Builder) *IndexedQueue[T] {
	return newIndexedQueue(Build[T](b, nil))
}

// NewArray creates a concurrent Array with default bounds and no Indexer.
// Capacity rounds up to the next power of 2.
func NewArray[T any](capacity int) *Array[T] {
	return Build[T](New(capacity), nil)
}

// NewOptimistic creates an Optimistic array with default bounds and no
// Indexer. Capacity rounds up to the next power of 2.
func NewOptimistic[T any](capacity int) *Optimistic[T] {
	return BuildOptimistic[T](New(capacity), nil)
}

// NewIndexedQueue creates an IndexedQueue with default bounds.
// Capacity rounds up to the next power of 2.
func NewIndexedQueue[T any](capacity int) *IndexedQueue[T] {
	return BuildQueue[T](New(capacity))
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte

// padPtr is padding to fill cache line after pointer-sized field.
type padPtr [64 - ptrSize]byte
