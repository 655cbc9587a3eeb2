package handler

// interceptorEntry is one registered (service, pre, post) triple.
type interceptorEntry struct {
	id   RegistrationID
	svc  ServiceID
	pre  InterceptorPreFunc
	post InterceptorPostFunc
}

// Interceptors is the event-type-or-wildcard -> ordered-interceptor-list
// table.
type Interceptors struct {
	byType map[EventTypeID][]interceptorEntry
}

// NewInterceptors returns an empty interceptor table.
func NewInterceptors() *Interceptors {
	return &Interceptors{byType: make(map[EventTypeID][]interceptorEntry)}
}

// Add registers pre/post for evtType (use WildcardEventType to intercept
// every event). Either of pre/post may be nil. id is assigned by the
// caller (see Listeners.Add).
func (in *Interceptors) Add(id RegistrationID, evtType EventTypeID, svc ServiceID, pre InterceptorPreFunc, post InterceptorPostFunc) RegistrationID {
	in.byType[evtType] = append(in.byType[evtType], interceptorEntry{id: id, svc: svc, pre: pre, post: post})
	return id
}

// Remove deletes the registration with the given id, if present.
func (in *Interceptors) Remove(id RegistrationID) {
	for evtType, entries := range in.byType {
		for i, e := range entries {
			if e.id == id {
				in.byType[evtType] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// RemoveByService removes every interceptor registered by svc.
func (in *Interceptors) RemoveByService(svc ServiceID) {
	for evtType, entries := range in.byType {
		kept := entries[:0]
		for _, e := range entries {
			if e.svc != svc {
				kept = append(kept, e)
			}
		}
		in.byType[evtType] = kept
	}
}

// RunPre runs the wildcard interceptors followed by the evtType-specific
// ones. It stops and returns veto=true
// as soon as any pre-fn vetoes.
func (in *Interceptors) RunPre(evtType EventTypeID, evt interface{}) (veto bool) {
	for _, e := range in.byType[WildcardEventType] {
		if e.pre != nil && e.pre(evt) {
			return true
		}
	}
	if evtType == WildcardEventType {
		return false
	}
	for _, e := range in.byType[evtType] {
		if e.pre != nil && e.pre(evt) {
			return true
		}
	}
	return false
}

// RunPost runs post-interceptors symmetrically to RunPre.
func (in *Interceptors) RunPost(evtType EventTypeID, evt interface{}, dispatched bool) {
	for _, e := range in.byType[WildcardEventType] {
		if e.post != nil {
			e.post(evt, dispatched)
		}
	}
	if evtType == WildcardEventType {
		return
	}
	for _, e := range in.byType[evtType] {
		if e.post != nil {
			e.post(evt, dispatched)
		}
	}
}
