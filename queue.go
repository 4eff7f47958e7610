// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package winarr

import (
	"context"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"github.com/cornelk/hashmap"
)

var _ Queue[int] = (*IndexedQueue[int])(nil)

// IndexedQueue is a multi-producer multi-consumer FIFO queue backed by a
// concurrent Array.
//
// Producers claim consecutive indices with Array.Add; consumers race to
// remove the element at the head index and advance the head by CAS. The
// queue grows with its array and is bounded only by its max capacity.
//
// An index whose Add failed (the array could not grow) is remembered as
// abandoned; the consumer that reaches it removes it so the window keeps
// moving.
type IndexedQueue[T any] struct {
	_         pad
	head      atomix.Int64 // Next index to dequeue
	_         padShort
	arr       *Array[T]
	abandoned *hashmap.Map[int64, struct{}]
}

func newIndexedQueue[T any](arr *Array[T]) *IndexedQueue[T] {
	return &IndexedQueue[T]{
		arr:       arr,
		abandoned: hashmap.New[int64, struct{}](),
	}
}

// Enqueue adds a copy of *elem to the tail of the queue.
// Returns an error wrapping ErrOutOfBounds if the queue cannot grow.
func (q *IndexedQueue[T]) Enqueue(elem *T) error {
	index, err := q.arr.Add(*elem)
	if err != nil {
		q.abandoned.Set(index, struct{}{})
		return err
	}
	return nil
}

// Dequeue removes and returns the element at the head of the queue.
// Returns (zero-value, ErrWouldBlock) if the head element has not been
// written yet or the queue is empty.
func (q *IndexedQueue[T]) Dequeue() (T, error) {
	var zero T
	sw := spin.Wait{}
	for {
		head := q.head.LoadAcquire()
		if head > q.arr.LastIndex() {
			return zero, ErrWouldBlock
		}
		v, ok, err := q.arr.SafeRemove(head)
		if err != nil {
			return zero, err
		}
		if ok {
			q.head.CompareAndSwapAcqRel(head, head+1)
			return v, nil
		}
		skipped, err := q.skip(head)
		if err != nil {
			return zero, err
		}
		if !skipped {
			return zero, ErrWouldBlock
		}
		sw.Once()
	}
}

// DequeueWait removes and returns the element at the head of the queue,
// waiting up to timeout for one to be written. A negative timeout waits
// until an element arrives or ctx is done.
//
// Returns ErrWouldBlock when the timeout expires, or an error wrapping
// ErrInterrupted when ctx is done first.
func (q *IndexedQueue[T]) DequeueWait(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T
	deadline := deadlineOf(timeout)
	for {
		wait := time.Duration(-1)
		if !deadline.IsZero() {
			if wait = time.Until(deadline); wait <= 0 {
				return zero, ErrWouldBlock
			}
		} else if timeout == 0 {
			wait = 0
		}

		head := q.head.LoadAcquire()
		if _, gone := q.abandoned.Get(head); gone {
			if _, err := q.skip(head); err != nil {
				return zero, err
			}
			continue
		}
		v, ok, err := q.arr.SafeRemoveWait(ctx, head, wait)
		if err != nil {
			return zero, err
		}
		if ok {
			q.head.CompareAndSwapAcqRel(head, head+1)
			return v, nil
		}
		skipped, err := q.skip(head)
		if err != nil {
			return zero, err
		}
		if !skipped && timeout == 0 {
			return zero, ErrWouldBlock
		}
	}
}

// skip advances the head past index if another consumer already removed it
// or its producer abandoned it. Reports whether the head may have moved.
func (q *IndexedQueue[T]) skip(head int64) (bool, error) {
	if q.arr.IsRemoved(head) {
		q.head.CompareAndSwapAcqRel(head, head+1)
		return true, nil
	}
	if _, gone := q.abandoned.Get(head); !gone {
		return false, nil
	}
	if _, _, err := q.arr.Remove(head); err != nil {
		return false, err
	}
	q.abandoned.Del(head)
	q.head.CompareAndSwapAcqRel(head, head+1)
	return true, nil
}

// Cap returns the current capacity of the backing array.
func (q *IndexedQueue[T]) Cap() int {
	return q.arr.Capacity()
}

// Array returns the backing array.
func (q *IndexedQueue[T]) Array() *Array[T] {
	return q.arr
}
