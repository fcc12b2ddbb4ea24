package common

import "errors"

// ErrReentrantCall is returned when a nested call re-enters an engine that is
// already executing a mutating operation.
var ErrReentrantCall = errors.New("reentrant call")

// ReentrancyLock is the per-engine exclusive lock acquired at the entry of
// every public mutating operation. Execution is single-writer, so the lock is
// a plain flag: a nested synchronous call observing the flag set is by
// definition a reentrant call and must fail rather than wait.
type ReentrancyLock struct {
	held bool
}

// Acquire marks the engine busy. It fails with ErrReentrantCall when the lock
// is already held by an outer frame.
func (l *ReentrancyLock) Acquire() error {
	if l == nil {
		return nil
	}
	if l.held {
		return ErrReentrantCall
	}
	l.held = true
	return nil
}

// Release clears the busy flag. It must run on every exit path, including
// failures, so engines call it via defer immediately after a successful
// Acquire.
func (l *ReentrancyLock) Release() {
	if l == nil {
		return
	}
	l.held = false
}
