// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package winarr

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrOutOfBounds reports an index the array cannot address.
//
// Returned for a negative index, a removal beyond the window, an attempt to
// set an index that has already been removed, and growth past the maximum
// capacity. The array itself stays usable.
var ErrOutOfBounds = errors.New("winarr: index out of bounds")

// ErrInvariant reports a slot whose resolved index contradicts the slot
// arithmetic. It indicates a bug in the array or an Indexer that does not
// return the index it was assigned.
var ErrInvariant = errors.New("winarr: internal invariant violated")

// ErrInterrupted reports a blocking wait ended by context cancellation.
// The returned error also wraps the context's error.
var ErrInterrupted = errors.New("winarr: wait interrupted")

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// Returned by Queue.Dequeue when no element is ready. It is a control flow
// signal, not a failure.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// IsOutOfBounds reports whether err wraps [ErrOutOfBounds].
func IsOutOfBounds(err error) bool {
	return errors.Is(err, ErrOutOfBounds)
}

func errNegative(index int64) error {
	return fmt.Errorf("%w: negative index is illegal: %d", ErrOutOfBounds, index)
}

func errBeyondWindow(index, last int64) error {
	return fmt.Errorf("%w: cannot remove beyond the window (index=%d, last index=%d)", ErrOutOfBounds, index, last)
}

func errInterrupted(err error) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, err)
}
