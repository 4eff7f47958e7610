// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package winarr

import (
	"fmt"
	"log/slog"
	"time"
)

// growthWarnInterval bounds how often a stuck window is reported.
const growthWarnInterval = 30 * time.Second

// capacityGuard bounds store growth and reports windows that keep growing
// while their first index stays put, which usually means a consumer stopped
// removing. Callers serialize access (resize lock or array mutex).
type capacityGuard struct {
	max        int
	logger     *slog.Logger
	stuckFirst int64
	lastWarn   time.Time
}

// check returns the capacity to grow to, given the current capacity and the
// desired one. It fails once the current capacity has reached the maximum.
// describe renders the first element for diagnostics.
func (g *capacityGuard) check(current, want int, first int64, describe func() string) (int, error) {
	if current >= g.max {
		return 0, fmt.Errorf("%w: exceeded max capacity of %d; first element[%d] = %s",
			ErrOutOfBounds, g.max, first, describe())
	}
	if want > g.max>>4 {
		if first == g.stuckFirst && g.logger != nil {
			if now := time.Now(); now.Sub(g.lastWarn) > growthWarnInterval {
				g.logger.Warn("winarr: window size has grown",
					slog.Int("capacity", want),
					slog.Int64("first", first),
					slog.String("first_value", describe()),
					slog.String("component", "winarr"))
				g.lastWarn = now
			}
		}
		g.stuckFirst = first
	}
	return min(want, g.max), nil
}

// reach fails when index lies max or more positions past first, which no
// store can address. The span is compared in int64 so it cannot wrap.
func (g *capacityGuard) reach(index, first int64) error {
	if index-first >= int64(g.max) {
		return fmt.Errorf("%w: exceeded max capacity of %d (index=%d, window first index=%d)",
			ErrOutOfBounds, g.max, index, first)
	}
	return nil
}
