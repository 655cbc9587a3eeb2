package queue

import (
	"container/heap"
	"sync"
	"time"
)

// MultimapQueue is the portable EventQueue reference implementation: a
// mutex-guarded ordered multimap (a binary heap keyed by (priority, seq))
// with a buffered wake-up channel standing in for a condition variable.
// It preserves FIFO delivery among items of equal priority because seq is
// strictly increasing and always used as the heap's tiebreaker.
type MultimapQueue struct {
	mu     sync.Mutex
	heap   minHeap
	nextID uint64
	closed bool
	notify chan struct{} // capacity 1, non-blocking signal of "queue state changed"
}

// NewMultimapQueue returns a ready-to-use MultimapQueue.
func NewMultimapQueue() *MultimapQueue {
	return &MultimapQueue{notify: make(chan struct{}, 1)}
}

func (q *MultimapQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *MultimapQueue) Push(priority Priority, payload interface{}) (uint64, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, ErrClosed
	}
	q.nextID++
	seq := q.nextID
	heap.Push(&q.heap, Item{Priority: priority, Seq: seq, Payload: payload})
	q.mu.Unlock()
	q.wake()
	return seq, nil
}

func (q *MultimapQueue) Pop() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return Item{}, false
	}
	it := heap.Pop(&q.heap).(Item)
	return it, true
}

// Wait blocks until the queue is non-empty, closed, or done is closed,
// polling on a short fallback timeout so the scheduler loop periodically
// re-checks its own conditions, matching a "block with a small timeout"
// contract.
func (q *MultimapQueue) Wait(done <-chan struct{}) {
	if !q.Empty() || q.isClosed() {
		return
	}
	select {
	case <-q.notify:
	case <-done:
	case <-time.After(20 * time.Millisecond):
	}
}

func (q *MultimapQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *MultimapQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len() == 0
}

func (q *MultimapQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

func (q *MultimapQueue) Quit() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// minHeap implements container/heap.Interface over Item, ordering by
// Priority then Seq so that equal-priority items remain FIFO.
type minHeap []Item

func (h minHeap) Len() int { return len(h) }
func (h minHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].Seq < h[j].Seq
}
func (h minHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *minHeap) Push(x interface{}) {
	*h = append(*h, x.(Item))
}

func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}
