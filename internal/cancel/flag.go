// Package cancel provides the cooperative cancellation handle shared by the
// download orchestration layers.
//
// A Flag is set exactly once from outside the running work (typically a
// signal handler) and polled at well-defined checkpoints: before each engine
// output line is processed, after the engine process exits, and before each
// URL in a batch starts. Nothing preempts the child process outside those
// checkpoints.
package cancel

import (
	"errors"
	"sync/atomic"
)

// ErrCanceled reports a user-initiated abort. It is distinguished from
// download failures so callers can treat it as a normal outcome rather than
// an error condition worth diagnostics.
var ErrCanceled = errors.New("canceled by user")

// Flag is a set-once cancellation signal safe for concurrent use.
// The zero value is usable and unset.
type Flag struct {
	set atomic.Bool
}

// NewFlag returns an unset Flag.
func NewFlag() *Flag {
	return &Flag{}
}

// Set marks the flag. It reports whether this call was the one that set it;
// subsequent calls are no-ops.
func (f *Flag) Set() bool {
	if f == nil {
		return false
	}
	return f.set.CompareAndSwap(false, true)
}

// IsSet reports whether cancellation was requested. A nil Flag is never set,
// so callers that do not support cancellation may pass nil.
func (f *Flag) IsSet() bool {
	return f != nil && f.set.Load()
}
