//go:build linux

package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRingQueue_PushPop(t *testing.T) {
	if !IoUringSupported() {
		t.Skip("io_uring not available on this kernel")
	}

	q, err := NewRingQueue(DefaultRingConfig())
	require.NoError(t, err)
	defer q.Close()

	_, err = q.Push(5, "first")
	require.NoError(t, err)

	var it Item
	var ok bool
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		it, ok = q.Pop()
		if ok {
			break
		}
		q.Wait(nil)
	}
	require.True(t, ok, "expected a completed NOP within the deadline")
	require.Equal(t, "first", it.Payload)
}

func TestRingQueue_QuitClosesPush(t *testing.T) {
	if !IoUringSupported() {
		t.Skip("io_uring not available on this kernel")
	}

	q, err := NewRingQueue(DefaultRingConfig())
	require.NoError(t, err)
	defer q.Close()

	q.Quit()
	_, err = q.Push(0, "x")
	require.ErrorIs(t, err, ErrClosed)
}
