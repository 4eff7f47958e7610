// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package winarr

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent tests that exercise atomix counters,
// which the detector reports as plain memory accesses.
const RaceEnabled = true
