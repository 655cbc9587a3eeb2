package waiter

import "sync"

// ServiceID and EventTypeID mirror the root package's types; see
// internal/handler's doc comment for why these are redeclared.
type (
	ServiceID   uint64
	EventTypeID uint64
)

// CoalesceKey identifies "the same in-flight event" for the purposes of
// attaching a new await to an existing one rather than issuing a second
// push. Callers choose Discriminator
// (e.g. a hash of the request payload) to distinguish otherwise-
// identical (service, event-type) pairs.
type CoalesceKey struct {
	Service       ServiceID
	EventType     EventTypeID
	Discriminator uint64
}

// entry is one in-flight await: the service and event type it is
// waiting on, and the coroutine frames to resume once it settles. A
// coalesced entry carries more than one promise but is still driven by
// exactly one underlying event dispatch.
type entry struct {
	svc      ServiceID
	evtType  EventTypeID
	promises []uint64
}

// Table tracks in-flight awaits, keyed by the awaited event's own
// identity rather than a queue-assigned sequence number. The queue has
// no reserve-then-commit API -- the id it hands back is only known
// once Push has already made the event visible to the scheduler loop,
// which is too late to register a waiter race-free. Keying by the
// event itself (its pointer, boxed as interface{}) lets Register, and
// the coalesce check, run strictly before the event is pushed.
//
// Register runs on the awaiting goroutine; Complete runs on the kernel
// loop goroutine once the awaited event's handlers have settled. mu
// guards both against the resulting concurrent access.
type Table struct {
	mu       sync.Mutex
	byEvent  map[interface{}]*entry
	coalesce map[CoalesceKey]interface{}
}

// New returns an empty waiter table.
func New() *Table {
	return &Table{
		byEvent:  make(map[interface{}]*entry),
		coalesce: make(map[CoalesceKey]interface{}),
	}
}

// Register records that the coroutine frame promiseID is awaiting
// evtKey's settlement. If key is non-nil and an identical await is
// already in flight, promiseID is attached to that wait instead and
// coalesced reports true -- the caller must then skip pushing evtKey's
// event, since a dispatch for it is already underway and pushing again
// would fire the handler twice.
func (t *Table) Register(evtKey interface{}, promiseID uint64, svc ServiceID, evtType EventTypeID, key *CoalesceKey) (coalesced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if key != nil {
		if existing, ok := t.coalesce[*key]; ok {
			if e, ok := t.byEvent[existing]; ok {
				e.promises = append(e.promises, promiseID)
				return true
			}
		}
	}

	t.byEvent[evtKey] = &entry{svc: svc, evtType: evtType, promises: []uint64{promiseID}}
	if key != nil {
		t.coalesce[*key] = evtKey
	}
	return false
}

// Complete reports that evtKey's dispatch has settled -- it only ever
// fires once per evtKey, even when coalesced, since coalescing means no
// second event was ever pushed for it. Complete removes the entry and
// returns every promiseID attached to it, in registration order. ok is
// false if evtKey was never registered (already completed, or never
// awaited at all).
func (t *Table) Complete(evtKey interface{}) (promises []uint64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, found := t.byEvent[evtKey]
	if !found {
		return nil, false
	}
	delete(t.byEvent, evtKey)
	for k, v := range t.coalesce {
		if v == evtKey {
			delete(t.coalesce, k)
		}
	}
	return e.promises, true
}

// Abandon removes evtKey's entry without resolving it, used when the
// only (or last surviving) caller waiting on it gives up -- e.g. its
// event could not be pushed. A no-op if
// evtKey is not registered.
func (t *Table) Abandon(evtKey interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byEvent, evtKey)
	for k, v := range t.coalesce {
		if v == evtKey {
			delete(t.coalesce, k)
		}
	}
}

// Outstanding reports how many promises are currently attached to
// evtKey's wait, or 0 if it is not registered.
func (t *Table) Outstanding(evtKey interface{}) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.byEvent[evtKey]; ok {
		return len(e.promises)
	}
	return 0
}

// Len reports how many events currently have a live waiter entry.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byEvent)
}
