package ichor

import (
	"context"
	"fmt"

	"github.com/volt-software/ichor-go/internal/coroutine"
	"github.com/volt-software/ichor-go/internal/waiter"
)

// CoalesceKey distinguishes otherwise-identical in-flight awaits from
// the same service so PushEventAsync can attach a new caller to an
// existing one instead of issuing a second push.
type CoalesceKey struct {
	Discriminator uint64
}

// PushEventAsync pushes evt at priority on behalf of origin and
// suspends the calling goroutine until a completion or error handler
// fires for it. If coalesce is non-nil and an identical await (same
// origin, event type and Discriminator) is already in flight, this call
// attaches to it instead of pushing a second event.
//
// The wait is registered against evt's own identity before evt is ever
// pushed, so the scheduler loop can never settle it ahead of
// registration, and resumption travels back through a ContinuableEvent
// pushed at evt's own priority -- the continuation waits its turn in
// priority/FIFO order exactly as a synchronous listener would.
func (k *Kernel) PushEventAsync(ctx context.Context, priority Priority, origin ServiceID, evt Event, coalesce *CoalesceKey) (Event, error) {
	p, ok := evt.(pushable)
	if !ok {
		return nil, fmt.Errorf("ichor: event type %T does not embed BaseEvent", evt)
	}
	if k.quitting.Load() {
		return nil, ErrQueueClosed
	}

	promiseID, deliver := k.coroutines.Suspend(coroutine.Scope{coroutine.ServiceID(origin)})

	var key *waiter.CoalesceKey
	if coalesce != nil {
		ck := waiter.CoalesceKey{
			Service:       waiter.ServiceID(origin),
			EventType:     waiter.EventTypeID(evt.Type()),
			Discriminator: coalesce.Discriminator,
		}
		key = &ck
	}
	coalesced := k.waiters.Register(p, promiseID, waiter.ServiceID(origin), waiter.EventTypeID(evt.Type()), key)

	if !coalesced {
		if _, err := k.pushFrom(priority, origin, p); err != nil {
			k.waiters.Abandon(p)
			k.coroutines.Resume(promiseID, coroutine.Result{Err: err})
		}
	}

	select {
	case result := <-deliver:
		if result.Err != nil {
			return nil, result.Err
		}
		evt, _ := result.Value.(Event)
		return evt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitForService suspends the calling goroutine until svc emits an
// event of type evtType -- typically DependencyOnlineEvent (svc became
// ACTIVE) or StopServiceEvent (svc began stopping). Resumption is
// driven through the same ContinuableEvent round trip as
// PushEventAsync, attributed to svc's scope.
func (k *Kernel) WaitForService(ctx context.Context, svc ServiceID, evtType EventTypeID) (Event, error) {
	promiseID, deliver := k.coroutines.Suspend(coroutine.Scope{coroutine.ServiceID(svc)})
	target := svc

	var handle RegistrationHandle
	handle = k.RegisterEventHandler(evtType, 0, &target, func(evt Event) (Continuation, error) {
		handle.Close()
		if _, err := k.push(evt.Priority(), newContinuableEvent(promiseID, evt, nil)); err != nil {
			k.coroutines.Resume(promiseID, coroutine.Result{Value: evt})
		}
		return Done, nil
	})

	select {
	case result := <-deliver:
		evt, _ := result.Value.(Event)
		return evt, result.Err
	case <-ctx.Done():
		handle.Close()
		return nil, ctx.Err()
	}
}

// ManualResetEvent is a producer-consumer primitive: any number of
// producers may Set it, but only the first Set
// is observed by Wait -- matching a manual-reset event's "set once,
// observed by every waiter" semantics for a single round of signalling.
type ManualResetEvent struct {
	ch chan Result
}

// Result is what a ManualResetEvent eventually delivers to Wait.
type Result struct {
	Value any
	Err   error
}

// NewManualResetEvent returns an unset event.
func NewManualResetEvent() *ManualResetEvent {
	return &ManualResetEvent{ch: make(chan Result, 1)}
}

// Set signals the event with value/err. Only the first call has any
// effect; subsequent calls are no-ops.
func (e *ManualResetEvent) Set(value any, err error) {
	select {
	case e.ch <- Result{Value: value, Err: err}:
	default:
	}
}

// Wait blocks until Set is called or ctx is done.
func (e *ManualResetEvent) Wait(ctx context.Context) (any, error) {
	select {
	case r := <-e.ch:
		e.ch <- r // re-deliver so every waiter observes the same result
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
