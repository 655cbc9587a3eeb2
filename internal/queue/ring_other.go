//go:build !linux

package queue

import "errors"

// ErrRingUnsupported is returned by NewRingQueue on platforms other than
// Linux, where io_uring does not exist. Callers should fall back to
// NewMultimapQueue; IoUringSupported always reports false here.
var ErrRingUnsupported = errors.New("queue: io_uring ring backend is linux-only")

// RingConfig mirrors the Linux type so callers can share construction
// code across platforms without build tags of their own.
type RingConfig struct {
	Entries          uint32
	PollTimeoutNanos int64
}

// DefaultRingConfig mirrors the Linux defaults.
func DefaultRingConfig() RingConfig {
	return RingConfig{Entries: 256, PollTimeoutNanos: 1_000_000}
}

// IoUringSupported always reports false on non-Linux platforms.
func IoUringSupported() bool { return false }

// NewRingQueue always fails on non-Linux platforms; use NewMultimapQueue.
func NewRingQueue(cfg RingConfig) (Queue, error) {
	return nil, ErrRingUnsupported
}
