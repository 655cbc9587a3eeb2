package handler

// ServiceID, InterfaceID and EventTypeID mirror the identically-named
// types in the root package. They are redeclared here rather than
// imported to keep this package import-free of the root module --
// internal/* packages form the engine the root package wires together,
// not the other way around.
type (
	ServiceID      uint64
	InterfaceID    uint64
	EventTypeID    uint64
	RegistrationID uint64
)

// WildcardEventType is the interceptor key meaning "every event type".
const WildcardEventType EventTypeID = 0

// Continuation describes what an event listener returned. A listener
// that is not done yet hands back the PromiseID of the generator frame
// the coroutine scheduler registered for it; the scheduler loop uses
// this to schedule a ContinuableEvent for the frame's next step.
type Continuation struct {
	Done      bool
	PromiseID uint64
}

// Done is the Continuation value every synchronous (non-generator)
// listener and callback should return.
var Done = Continuation{Done: true}

// ListenerFunc handles one dispatched event. evt is the event payload
// (an ichor.Event in the root package's terms, passed here as
// interface{} to avoid the import); target, if non-zero, restricts
// delivery to the named service and is enforced by the caller, not by
// ListenerFunc itself.
type ListenerFunc func(evt interface{}) (Continuation, error)

// CompletionFunc is invoked on the originating service once an event it
// is awaiting finishes (onErr is nil) or is rejected (onErr is the
// rejection cause).
type CompletionFunc func(evt interface{}, onErr error)

// InterceptorPreFunc runs before dispatch; returning veto=true skips
// dispatch. Post-interceptors still run for a vetoed event, with
// dispatched=false.
type InterceptorPreFunc func(evt interface{}) (veto bool)

// InterceptorPostFunc observes whether dispatch happened.
type InterceptorPostFunc func(evt interface{}, dispatched bool)

// TrackerFunc is invoked with a DependencyRequestEvent or
// DependencyUndoRequestEvent payload when a service declares interest in
// InterfaceID via Trackers.Add (the root package's
// RegisterDependencyTracker).
type TrackerFunc func(evt interface{})
