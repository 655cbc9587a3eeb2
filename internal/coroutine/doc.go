// Package coroutine implements a Go-idiomatic rendering of a coroutine
// scheduler: a suspension point is a channel receive on the calling
// goroutine; the continuation is a frame entry keyed by a monotonically
// increasing promise id rather than a resumed stack. Resumption is a
// two-step process -- pushing a ContinuableEvent and only delivering the
// result once that event is actually popped -- so ordering with respect
// to other pending kernel work is preserved even though real goroutines,
// not reified stacks, are blocked on the suspension.
package coroutine
