package ichor

// Continuation describes what a listener returned. A listener that is
// not done yet hands back the PromiseID of the generator frame the
// coroutine scheduler registered for it; the kernel schedules a
// ContinuableEvent for that frame's next step at the same priority as
// the original dispatch.
type Continuation struct {
	Done      bool
	PromiseID uint64
}

// Done is the Continuation value every synchronous (non-generator)
// listener and callback should return.
var Done = Continuation{Done: true}

// WildcardEventType is the interceptor registration key meaning "every
// event type".
const WildcardEventType EventTypeID = 0

// ListenerFunc handles one dispatched event.
type ListenerFunc func(evt Event) (Continuation, error)

// CompletionFunc is invoked on the originating service once an event it
// is awaiting finishes (err is nil) or is rejected (err is the
// rejection cause).
type CompletionFunc func(evt Event, err error)

// InterceptorPreFunc runs before dispatch; returning true vetoes
// dispatch. Post-interceptors still run for a vetoed event, with
// dispatched=false.
type InterceptorPreFunc func(evt Event) (veto bool)

// InterceptorPostFunc observes whether dispatch happened.
type InterceptorPostFunc func(evt Event, dispatched bool)

// TrackerFunc is invoked with a DependencyRequestEvent or
// DependencyUndoRequestEvent payload when a service declares interest
// in an interface via RegisterDependencyTracker.
type TrackerFunc func(evt Event)

// Targeted may be implemented by a user event type to address it to one
// service: listeners registered with a different target are skipped,
// while listeners registered without a target still receive it.
// Built-in events never reach listeners, so this applies to user events
// only.
type Targeted interface {
	Target() ServiceID
}
