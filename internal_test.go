// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package winarr

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"
)

func TestHoleCacheReuse(t *testing.T) {
	var c holeCache[int]

	h := c.get(8)
	if !h.hole || h.index != 8 {
		t.Fatalf("get(8): got %v, want hole(offset=8)", h)
	}
	if c.get(8) != h {
		t.Fatalf("get(8): second call allocated a new hole")
	}
	if c.allocs.Load() != 1 {
		t.Fatalf("allocs: got %d, want 1", c.allocs.Load())
	}
}

func TestHoleCacheEvictsSmallest(t *testing.T) {
	var c holeCache[int]
	h0 := c.get(0)
	c.get(4)
	c.get(8)

	// Ring full: 12 evicts offset 0
	c.get(12)
	if c.get(4).index != 4 || c.get(8).index != 8 || c.get(12).index != 12 {
		t.Fatalf("recent holes lost")
	}
	if c.allocs.Load() != 4 {
		t.Fatalf("allocs: got %d, want 4", c.allocs.Load())
	}
	if c.get(0) == h0 {
		t.Fatalf("get(0): got evicted hole back")
	}
}

func TestHoleCacheNegativeOffset(t *testing.T) {
	var c holeCache[int]
	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, ErrInvariant) {
			t.Fatalf("get(-1): got panic %v, want ErrInvariant", err)
		}
	}()
	c.get(-1)
}

func TestEntryVirtualIndex(t *testing.T) {
	hole := &entry[int]{index: 8, hole: true}
	if got := hole.virtualIndex(3, nil); got != 11 {
		t.Fatalf("hole.virtualIndex(3): got %d, want 11", got)
	}
	live := &entry[int]{value: 5, index: 42}
	if got := live.virtualIndex(2, nil); got != 42 {
		t.Fatalf("live.virtualIndex: got %d, want 42", got)
	}
	idx := IndexFuncs[int]{Assign: func(int, int64) {}, Index: func(v int) int64 { return int64(v) * 10 }}
	if got := live.virtualIndex(2, idx); got != 50 {
		t.Fatalf("live.virtualIndex with indexer: got %d, want 50", got)
	}
	if hole.String() != "hole(offset=8)" || live.String() != "5@42" {
		t.Fatalf("String: got %q and %q", hole.String(), live.String())
	}
}

func TestStoreFill(t *testing.T) {
	st := newStore[int](8)
	h := &entry[int]{index: 0, hole: true}
	st.fill(0, st.capacity(), h)
	if st.actual(13) != 5 {
		t.Fatalf("actual(13): got %d, want 5", st.actual(13))
	}
	for i := range st.capacity() {
		if st.load(i) != h {
			t.Fatalf("slot %d: not filled", i)
		}
	}
}

func TestCapacityGuard(t *testing.T) {
	g := capacityGuard{max: 64}
	describe := func() string { return "int:1" }

	if got, err := g.check(8, 16, 0, describe); err != nil || got != 16 {
		t.Fatalf("check(8, 16): got (%d, %v), want (16, nil)", got, err)
	}
	if got, err := g.check(32, 100, 0, describe); err != nil || got != 64 {
		t.Fatalf("check(32, 100): got (%d, %v), want (64, nil)", got, err)
	}
	_, err := g.check(64, 128, 3, describe)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("check(64, 128): got %v, want ErrOutOfBounds", err)
	}
	if !strings.Contains(err.Error(), "first element[3] = int:1") {
		t.Fatalf("check(64, 128): got %q, want first element", err)
	}
}

func TestCapacityGuardWarnsOnStuckWindow(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	g := capacityGuard{max: 1 << 10, logger: logger}
	describe := func() string { return "string:stuck" }

	// Below max/16: never warns
	g.check(16, 32, 0, describe)
	if buf.Len() != 0 {
		t.Fatalf("unexpected warning: %s", buf.String())
	}

	// First large growth records the first index
	g.check(64, 128, 5, describe)
	if buf.Len() != 0 {
		t.Fatalf("unexpected warning on first large growth: %s", buf.String())
	}

	// Same first index again: warns
	g.check(128, 256, 5, describe)
	out := buf.String()
	for _, want := range []string{"window size has grown", "capacity=256", "first=5", "first_value=string:stuck", "component=winarr"} {
		if !strings.Contains(out, want) {
			t.Fatalf("warning: got %q, missing %q", out, want)
		}
	}

	// Rate limited
	buf.Reset()
	g.check(256, 512, 5, describe)
	if buf.Len() != 0 {
		t.Fatalf("warning not rate limited: %s", buf.String())
	}

	// Past the interval: warns again
	g.lastWarn = time.Now().Add(-2 * growthWarnInterval)
	g.check(256, 512, 5, describe)
	if buf.Len() == 0 {
		t.Fatalf("no warning after interval")
	}

	// Moving window: no warning
	buf.Reset()
	g.lastWarn = time.Time{}
	g.check(256, 512, 9, describe)
	if buf.Len() != 0 {
		t.Fatalf("warning for a moving window: %s", buf.String())
	}
}

func TestArrayLogsStuckWindow(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	a := Build[int](New(2).MaxCapacity(64).Logger(logger), nil)

	for i := range 64 {
		if _, err := a.Add(i); err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
	}
	if !strings.Contains(buf.String(), "window size has grown") {
		t.Fatalf("no growth warning logged: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "first_value=int:0") {
		t.Fatalf("warning misses first value: %q", buf.String())
	}
}

func TestGrowRestoresStoreOnFailure(t *testing.T) {
	a := Build[int](New(4).MaxCapacity(8), nil)
	for i := range 4 {
		a.Add(i)
	}
	before := a.store.Load()

	// Index 20 cannot fit in 8 slots while index 0 is live
	if _, _, err := a.Set(20, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Set(20): got %v, want ErrOutOfBounds", err)
	}
	if a.store.Load() != before {
		t.Fatalf("store: failed growth did not restore the previous store")
	}
	if a.expansions.Load() != 0 {
		t.Fatalf("expansions: got %d, want 0", a.expansions.Load())
	}
	if v, ok := a.Get(3); !ok || v != 3 {
		t.Fatalf("Get(3): got (%d, %v), want (3, true)", v, ok)
	}
}

func TestGrowRejectsUnaddressableIndex(t *testing.T) {
	a := NewArray[int](4)
	a.Add(1)
	before := a.store.LoadAcquire()

	a.resize.Lock()
	err := a.grow(before, math.MaxInt64)
	a.resize.Unlock()
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("grow(MaxInt64): got %v, want ErrOutOfBounds", err)
	}
	if a.store.LoadAcquire() != before {
		t.Fatalf("store: rejected growth replaced the store")
	}
	if err := a.guard.reach(math.MaxInt64, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("reach(MaxInt64, 0): got %v, want ErrOutOfBounds", err)
	}
	if err := a.guard.reach(int64(DefaultMaxCapacity)-1, 0); err != nil {
		t.Fatalf("reach(max-1, 0): %v", err)
	}
}
