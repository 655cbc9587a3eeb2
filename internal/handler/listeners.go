package handler

// listenerEntry is one registered (service, optional target filter,
// handler) triple, kept in registration order so dispatch honours
// priority-then-registration order.
type listenerEntry struct {
	id     RegistrationID
	svc    ServiceID
	target *ServiceID
	fn     ListenerFunc
}

// Listeners is the event-type -> ordered-listener-list table.
type Listeners struct {
	byType map[EventTypeID][]listenerEntry
}

// NewListeners returns an empty listener table.
func NewListeners() *Listeners {
	return &Listeners{byType: make(map[EventTypeID][]listenerEntry)}
}

// Add registers fn for events of type evtType originating for svc,
// optionally filtered to deliveries whose event carries the given
// target service id (nil means "no filter"). id is assigned by the
// caller, which owns a single counter shared across all four tables --
// Add never runs off the kernel goroutine, so it does not mint its own.
func (l *Listeners) Add(id RegistrationID, evtType EventTypeID, svc ServiceID, target *ServiceID, fn ListenerFunc) RegistrationID {
	l.byType[evtType] = append(l.byType[evtType], listenerEntry{id: id, svc: svc, target: target, fn: fn})
	return id
}

// Remove deletes the registration with the given id, if present. It is a
// no-op if the id is unknown (the registration may have already been
// removed, e.g. by the service uninstalling).
func (l *Listeners) Remove(id RegistrationID) {
	for evtType, entries := range l.byType {
		for i, e := range entries {
			if e.id == id {
				l.byType[evtType] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// RemoveByService removes every listener registered by svc, used when a
// service uninstalls and its registrations were never explicitly closed.
func (l *Listeners) RemoveByService(svc ServiceID) {
	for evtType, entries := range l.byType {
		kept := entries[:0]
		for _, e := range entries {
			if e.svc != svc {
				kept = append(kept, e)
			}
		}
		l.byType[evtType] = kept
	}
}

// Dispatch invokes every listener registered for evtType, in
// registration order, skipping entries whose target filter excludes
// targetSvc (targetSvc is the event's addressee, 0 if the event has
// none). It stops calling further listeners and returns an error only if
// a handler itself returns one; a listener that is not yet done is
// reported back via its Continuation for the caller to schedule a
// resumption.
func (l *Listeners) Dispatch(evtType EventTypeID, targetSvc ServiceID, evt interface{}) ([]PendingContinuation, error) {
	var pending []PendingContinuation
	for _, e := range l.byType[evtType] {
		if e.target != nil && targetSvc != 0 && *e.target != targetSvc {
			continue
		}
		cont, err := e.fn(evt)
		if err != nil {
			return pending, err
		}
		if !cont.Done {
			pending = append(pending, PendingContinuation{Service: e.svc, PromiseID: cont.PromiseID})
		}
	}
	return pending, nil
}

// PendingContinuation names a listener invocation that suspended rather
// than completing synchronously.
type PendingContinuation struct {
	Service   ServiceID
	PromiseID uint64
}
