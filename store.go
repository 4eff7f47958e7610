// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package winarr

import "code.hybscloud.com/atomix"

// store is a circular backing array addressed by virtualIndex % capacity.
//
// A store never changes size. Growth builds a fresh store and swaps it in,
// so lock-free readers holding an old store see stale but once-true slots.
type store[T any] struct {
	slots []atomix.Pointer[entry[T]]
}

func newStore[T any](capacity int) *store[T] {
	return &store[T]{slots: make([]atomix.Pointer[entry[T]], capacity)}
}

func (s *store[T]) capacity() int64 {
	return int64(len(s.slots))
}

// actual returns the slot position of a virtual index.
func (s *store[T]) actual(index int64) int64 {
	return index % int64(len(s.slots))
}

func (s *store[T]) load(actual int64) *entry[T] {
	return s.slots[actual].LoadAcquire()
}

func (s *store[T]) put(actual int64, e *entry[T]) {
	s.slots[actual].StoreRelease(e)
}

// fill sets slots [from, to) to e.
func (s *store[T]) fill(from, to int64, e *entry[T]) {
	for i := from; i < to; i++ {
		s.slots[i].StoreRelease(e)
	}
}
