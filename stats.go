// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package winarr

import (
	"fmt"
	"strings"
)

// Stats is a point-in-time report of an array's shape and activity.
// Fields that do not apply to a variant are zero.
type Stats struct {
	Capacity   int
	Expansions int64
	FirstIndex int64
	LastIndex  int64
	WindowSize int

	// Optimistic gets that returned a value (Array only).
	OptimisticGets int64

	// Holes allocated over time (Array only).
	HoleAllocations int64

	// Times a goroutine waited for an index to be written (Array only).
	Waits int64

	// Goroutines currently waiting (Array only).
	Waiting int64
}

func (s Stats) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "capacity=%d, expansions=%d, window size=%d, first index=%d, last index=%d",
		s.Capacity, s.Expansions, s.WindowSize, s.FirstIndex, s.LastIndex)
	if s.HoleAllocations != 0 || s.Waits != 0 || s.OptimisticGets != 0 {
		fmt.Fprintf(&sb, ", optimistic gets=%d, hole allocations=%d, waits=%d, waiting=%d",
			s.OptimisticGets, s.HoleAllocations, s.Waits, s.Waiting)
	}
	return sb.String()
}

// Stats returns a report of the array. It computes FirstIndex and shares its
// cost and restrictions.
func (a *Array[T]) Stats() Stats {
	first, last := a.FirstIndex(), a.LastIndex()
	return Stats{
		Capacity:        a.Capacity(),
		Expansions:      a.expansions.Load(),
		FirstIndex:      first,
		LastIndex:       last,
		WindowSize:      int(last - first + 1),
		OptimisticGets:  a.optimistic.Load(),
		HoleAllocations: a.holes.allocs.Load(),
		Waits:           a.waits.Load(),
		Waiting:         a.waiting.Load(),
	}
}

// String formats the stats followed by every live element of the window.
func (a *Array[T]) String() string {
	var sb strings.Builder
	sb.WriteString("Array[")
	sb.WriteString(a.Stats().String())
	sb.WriteByte(']')
	for index, v := range a.All() {
		fmt.Fprintf(&sb, "\n[%d]=%q", index, fmt.Sprint(v))
	}
	return sb.String()
}
