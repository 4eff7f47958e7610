// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package winarr

import (
	"fmt"
	"math"

	"code.hybscloud.com/atomix"
)

// entry is the immutable content of one slot.
//
// A live entry holds a value and the virtual index it was stored at.
// A hole holds no value; its index is a virtual offset such that the slot at
// actual position i stands for virtual index offset+i. Holes mark both
// "not yet written" and "removed": a removed index is encoded as a hole for
// the next generation of its slot.
type entry[T any] struct {
	value T
	index int64
	hole  bool
}

// virtualIndex returns the virtual index the entry at actual stands for.
func (e *entry[T]) virtualIndex(actual int64, idx Indexer[T]) int64 {
	if e.hole {
		return e.index + actual
	}
	if idx != nil {
		return idx.IndexOf(e.value)
	}
	return e.index
}

func (e *entry[T]) String() string {
	if e.hole {
		return fmt.Sprintf("hole(offset=%d)", e.index)
	}
	return fmt.Sprintf("%v@%d", e.value, e.index)
}

// recentHoles is the number of holes kept for reuse.
const recentHoles = 3

// holeCache hands out holes, reusing recently allocated ones.
//
// The same offset is requested repeatedly (every removal within one
// generation of the store shares it), so a tiny ring avoids most
// allocations. Eviction replaces the smallest offset.
type holeCache[T any] struct {
	ring   [recentHoles]atomix.Pointer[entry[T]]
	allocs atomix.Int64
}

// get returns a hole for offset.
func (c *holeCache[T]) get(offset int64) *entry[T] {
	oldest, oldestOffset := 0, int64(math.MaxInt64)
	for i := range c.ring {
		h := c.ring[i].LoadAcquire()
		if h == nil {
			oldest, oldestOffset = i, -1
			continue
		}
		if h.index == offset {
			return h
		}
		if h.index < oldestOffset {
			oldest, oldestOffset = i, h.index
		}
	}
	if offset < 0 {
		panic(fmt.Errorf("%w: negative hole offset %d", ErrInvariant, offset))
	}
	h := &entry[T]{index: offset, hole: true}
	c.ring[oldest].StoreRelease(h)
	c.allocs.Add(1)
	return h
}
