// Package queue implements a bounded-priority multi-producer /
// single-consumer event queue: producers
// on any goroutine may Push; only the owning kernel goroutine may Pop.
package queue

// Priority orders items: lower numeric value pops first. Items with equal
// priority pop in Push order.
type Priority uint64

// Item is one queued unit of work. Seq is assigned by the queue at Push
// time and is strictly increasing across the lifetime of a single Queue,
// which is what gives the kernel its "monotonic event id" guarantee when
// Payload is an ichor.Event.
type Item struct {
	Priority Priority
	Seq      uint64
	Payload  interface{}
}

// Queue is the contract every event-queue backend satisfies. Two
// implementations live in this package: MultimapQueue (portable, the
// default) and the Linux-only io_uring-backed RingQueue (ring_linux.go).
type Queue interface {
	// Push enqueues payload at priority and returns its assigned
	// sequence number. Push never blocks the caller except for the
	// queue's own internal locking, and is safe to call from any
	// goroutine, including concurrently with Pop.
	Push(priority Priority, payload interface{}) (seq uint64, err error)

	// Pop removes and returns the highest-priority (lowest numeric
	// value), earliest-enqueued item. Only the owning goroutine may call
	// Pop. ok is false if the queue is empty.
	Pop() (item Item, ok bool)

	// Wait blocks the owning goroutine until the queue is non-empty, the
	// queue is quit, or the given done channel is closed, whichever
	// happens first. It returns promptly (it is not required to wait the
	// full duration) so the scheduler loop can re-check its own
	// conditions -- blocking with a small
	// timeout rather than indefinitely.
	Wait(done <-chan struct{})

	// Empty and Size are observational; Size is best-effort under
	// concurrent Push.
	Empty() bool
	Size() int

	// Quit marks the queue as shutting down. Idempotent. After Quit, Push
	// returns ErrClosed and any blocked Wait returns immediately. Items
	// already queued remain poppable so the drain phase can finish them.
	Quit()
}
