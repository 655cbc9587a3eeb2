package ichor

// Event is an owned value: pushing it transfers ownership to the queue,
// which transfers it to the handler(s) that process it. Nothing else may
// retain a reference to a pushed Event's mutable payload after the push.
type Event interface {
	// EventID is the monotonic, per-kernel, strictly increasing identifier
	// assigned at push time.
	EventID() uint64
	// Type is the stable type tag used for listener/interceptor lookup.
	Type() EventTypeID
	// Priority is the priority this event was pushed with.
	Priority() Priority
	// Origin is the service that pushed this event, or 0 for kernel-
	// originated events with no owning service.
	Origin() ServiceID
}

// BaseEvent is embedded by concrete event payload types to satisfy Event
// without repeating the bookkeeping fields.
type BaseEvent struct {
	id       uint64
	typ      EventTypeID
	priority Priority
	origin   ServiceID
}

func (b *BaseEvent) EventID() uint64    { return b.id }
func (b *BaseEvent) Type() EventTypeID  { return b.typ }
func (b *BaseEvent) Priority() Priority { return b.priority }
func (b *BaseEvent) Origin() ServiceID  { return b.origin }

func newBaseEvent(id uint64, typ EventTypeID, priority Priority, origin ServiceID) BaseEvent {
	return BaseEvent{id: id, typ: typ, priority: priority, origin: origin}
}

// NewBaseEvent constructs a BaseEvent carrying only its type tag. User
// event types embed this at construction time; EventID, Priority and
// Origin are filled in by the kernel at push time via patchBase.
func NewBaseEvent(typ EventTypeID) BaseEvent {
	return BaseEvent{typ: typ}
}

// patchBase assigns the three fields only the kernel's push path may
// set. It has a pointer receiver so it promotes onto every *XEvent type
// that embeds BaseEvent by value, including user-defined event types in
// other packages, without exposing a public setter a handler could call
// mid-dispatch.
func (b *BaseEvent) patchBase(id uint64, priority Priority, origin ServiceID) {
	b.id = id
	b.priority = priority
	b.origin = origin
}

// pushable is the contract the kernel's push path requires: a pointer
// satisfying Event plus the unexported patchBase setter every BaseEvent-
// embedding type promotes.
type pushable interface {
	Event
	patchBase(id uint64, priority Priority, origin ServiceID)
}

// Built-in event type tags. These are recognised
// directly by the scheduler loop and never reach a user listener except
// where explicitly noted (RunFunctionEvent/RunFunctionEventAsync are
// dispatched to the single closure they carry, not to listener tables).
var (
	EventTypeInsertService             = NewEventTypeID("ichor.InsertServiceEvent")
	EventTypeDependencyRequest         = NewEventTypeID("ichor.DependencyRequestEvent")
	EventTypeDependencyUndoRequest     = NewEventTypeID("ichor.DependencyUndoRequestEvent")
	EventTypeDependencyOnline          = NewEventTypeID("ichor.DependencyOnlineEvent")
	EventTypeDependencyOffline         = NewEventTypeID("ichor.DependencyOfflineEvent")
	EventTypeStartService              = NewEventTypeID("ichor.StartServiceEvent")
	EventTypeStopService                = NewEventTypeID("ichor.StopServiceEvent")
	EventTypeRemoveService              = NewEventTypeID("ichor.RemoveServiceEvent")
	EventTypeRunFunction                = NewEventTypeID("ichor.RunFunctionEvent")
	EventTypeRunFunctionAsync           = NewEventTypeID("ichor.RunFunctionEventAsync")
	EventTypeContinuable                = NewEventTypeID("ichor.ContinuableEvent")
	EventTypeContinuableStart           = NewEventTypeID("ichor.ContinuableStartEvent")
	EventTypeRemoveCompletionCallbacks  = NewEventTypeID("ichor.RemoveCompletionCallbacksEvent")
	EventTypeRemoveEventHandler         = NewEventTypeID("ichor.RemoveEventHandlerEvent")
	EventTypeRemoveInterceptor          = NewEventTypeID("ichor.RemoveInterceptorEvent")
	EventTypeRemoveTracker              = NewEventTypeID("ichor.RemoveTrackerEvent")
	EventTypeQuit                       = NewEventTypeID("ichor.QuitEvent")
)

// InsertServiceEvent registers a newly created service in the registry.
// Pushed at PriorityInsertService so it lands ahead of anything that
// could observe the service prematurely.
type InsertServiceEvent struct {
	BaseEvent
	Service ServiceID
}

// DependencyRequestEvent notifies dependency trackers that a service is
// looking for candidates satisfying Interface.
type DependencyRequestEvent struct {
	BaseEvent
	Requester ServiceID
	Interface InterfaceID
	Required  bool
}

// DependencyUndoRequestEvent notifies trackers that a prior
// DependencyRequestEvent is withdrawn (the requesting service is going
// away).
type DependencyUndoRequestEvent struct {
	BaseEvent
	Requester ServiceID
	Interface InterfaceID
}

// DependencyOnlineEvent announces that Service has reached StateActive.
type DependencyOnlineEvent struct {
	BaseEvent
	Service ServiceID
}

// DependencyOfflineEvent announces that Service's required dependency
// satisfaction has dropped to zero and it is leaving StateActive.
type DependencyOfflineEvent struct {
	BaseEvent
	Service ServiceID
}

// StartServiceEvent is the entry point that drives a service from
// StateInstalled toward StateActive.
type StartServiceEvent struct {
	BaseEvent
	Service ServiceID
	done    chan error // closed/sent once after internal_start settles
}

// StopServiceEvent is the entry point that drives a service from
// StateActive back to StateInstalled (or, on a kernel Quit, all the way
// to StateUninstalled via a following RemoveServiceEvent). A failed
// start does not push a StopServiceEvent; its StartError goes straight
// to the callers awaiting that start.
type StopServiceEvent struct {
	BaseEvent
	Service ServiceID
	Cause   error // a *DependencyError if a required dependency going offline forced this stop; nil otherwise
	done    chan error
}

// RemoveServiceEvent destroys a service: it must already be
// StateInstalled. After processing, the service's id is no longer in the
// registry and its state is StateUninstalled.
type RemoveServiceEvent struct {
	BaseEvent
	Service ServiceID
	done    chan error
}

// RunFunctionEvent executes fn on the kernel thread once popped.
type RunFunctionEvent struct {
	BaseEvent
	Fn func()
}

// RunFunctionEventAsync executes fn on the kernel thread and reports its
// error, if any, to done exactly once.
type RunFunctionEventAsync struct {
	BaseEvent
	Fn   func() error
	done chan error
}

// ContinuableEvent resumes a suspended coroutine frame identified by
// PromiseID, delivering Result/Err to it.
type ContinuableEvent struct {
	BaseEvent
	PromiseID uint64
	Result    any
	Err       error
}

// ContinuableStartEvent starts a fresh coroutine frame on the kernel
// thread; used when a generator's first step must run with the same
// ordering guarantees as a resumption.
type ContinuableStartEvent struct {
	BaseEvent
	PromiseID uint64
}

// QuitEvent begins shutdown: the loop will push a StopServiceEvent for
// every remaining active service (a RemoveServiceEvent for an installed
// one) in descending start order and exit once all of them have been
// removed (StateUninstalled).
type QuitEvent struct {
	BaseEvent
}

// Remove{CompletionCallbacks,EventHandler,Interceptor,Tracker}Event are
// pushed by a RegistrationHandle's Close rather than mutating handler
// tables directly, so no in-flight iteration over a table ever observes a
// half-removed entry.
type RemoveCompletionCallbacksEvent struct {
	BaseEvent
	RegistrationID uint64
}

type RemoveEventHandlerEvent struct {
	BaseEvent
	RegistrationID uint64
}

type RemoveInterceptorEvent struct {
	BaseEvent
	RegistrationID uint64
}

type RemoveTrackerEvent struct {
	BaseEvent
	RegistrationID uint64
}

// Constructors for the built-in events, each pre-filling BaseEvent's
// type tag. The kernel's push path fills in id/priority/origin via
// patchBase once the queue assigns a sequence number.

func newInsertServiceEvent(svc ServiceID) *InsertServiceEvent {
	return &InsertServiceEvent{BaseEvent: NewBaseEvent(EventTypeInsertService), Service: svc}
}

func newDependencyRequestEvent(requester ServiceID, iface InterfaceID, required bool) *DependencyRequestEvent {
	return &DependencyRequestEvent{
		BaseEvent: NewBaseEvent(EventTypeDependencyRequest),
		Requester: requester,
		Interface: iface,
		Required:  required,
	}
}

func newDependencyUndoRequestEvent(requester ServiceID, iface InterfaceID) *DependencyUndoRequestEvent {
	return &DependencyUndoRequestEvent{
		BaseEvent: NewBaseEvent(EventTypeDependencyUndoRequest),
		Requester: requester,
		Interface: iface,
	}
}

func newDependencyOnlineEvent(svc ServiceID) *DependencyOnlineEvent {
	return &DependencyOnlineEvent{BaseEvent: NewBaseEvent(EventTypeDependencyOnline), Service: svc}
}

func newDependencyOfflineEvent(svc ServiceID) *DependencyOfflineEvent {
	return &DependencyOfflineEvent{BaseEvent: NewBaseEvent(EventTypeDependencyOffline), Service: svc}
}

func newStartServiceEvent(svc ServiceID, done chan error) *StartServiceEvent {
	return &StartServiceEvent{BaseEvent: NewBaseEvent(EventTypeStartService), Service: svc, done: done}
}

func newStopServiceEvent(svc ServiceID, cause error, done chan error) *StopServiceEvent {
	return &StopServiceEvent{BaseEvent: NewBaseEvent(EventTypeStopService), Service: svc, Cause: cause, done: done}
}

func newRemoveServiceEvent(svc ServiceID, done chan error) *RemoveServiceEvent {
	return &RemoveServiceEvent{BaseEvent: NewBaseEvent(EventTypeRemoveService), Service: svc, done: done}
}

func newRunFunctionEvent(fn func()) *RunFunctionEvent {
	return &RunFunctionEvent{BaseEvent: NewBaseEvent(EventTypeRunFunction), Fn: fn}
}

func newRunFunctionEventAsync(fn func() error, done chan error) *RunFunctionEventAsync {
	return &RunFunctionEventAsync{BaseEvent: NewBaseEvent(EventTypeRunFunctionAsync), Fn: fn, done: done}
}

func newContinuableEvent(promiseID uint64, result any, err error) *ContinuableEvent {
	return &ContinuableEvent{
		BaseEvent: NewBaseEvent(EventTypeContinuable),
		PromiseID: promiseID,
		Result:    result,
		Err:       err,
	}
}

func newQuitEvent() *QuitEvent {
	return &QuitEvent{BaseEvent: NewBaseEvent(EventTypeQuit)}
}
