package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultimapQueue_PriorityOrder(t *testing.T) {
	q := NewMultimapQueue()
	_, err := q.Push(10, "low-precedence")
	require.NoError(t, err)
	_, err = q.Push(1, "high-precedence")
	require.NoError(t, err)

	it, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "high-precedence", it.Payload)

	it, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, "low-precedence", it.Payload)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestMultimapQueue_FIFOWithinPriority(t *testing.T) {
	q := NewMultimapQueue()
	for i := 0; i < 5; i++ {
		_, err := q.Push(5, i)
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		it, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, it.Payload)
	}
}

func TestMultimapQueue_MonotonicSeq(t *testing.T) {
	q := NewMultimapQueue()
	seqs := make([]uint64, 0, 20)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := q.Push(0, nil)
			require.NoError(t, err)
			mu.Lock()
			seqs = append(seqs, seq)
			mu.Unlock()
		}()
	}
	wg.Wait()

	seen := make(map[uint64]bool, len(seqs))
	for _, s := range seqs {
		assert.False(t, seen[s], "duplicate sequence %d", s)
		seen[s] = true
	}
	assert.Len(t, seen, 20)
}

func TestMultimapQueue_QuitClosesPush(t *testing.T) {
	q := NewMultimapQueue()
	q.Quit()
	_, err := q.Push(0, "x")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMultimapQueue_WaitWakesOnPush(t *testing.T) {
	q := NewMultimapQueue()
	done := make(chan struct{})
	woke := make(chan struct{})
	go func() {
		q.Wait(done)
		close(woke)
	}()
	_, err := q.Push(0, "x")
	require.NoError(t, err)
	<-woke
	it, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "x", it.Payload)
}
