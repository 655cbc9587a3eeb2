package ichor

// registrationKind identifies which handler table a RegistrationHandle's
// id refers to, so Close can push the matching Remove*Event.
type registrationKind uint8

const (
	registrationListener registrationKind = iota
	registrationCompletion
	registrationInterceptor
	registrationTracker
)

// RegistrationHandle is returned by every Register* call on Kernel.
// Closing it never mutates a handler table directly -- it pushes the
// matching Remove*Event so no in-flight
// dispatch ever observes a half-removed table.
type RegistrationHandle struct {
	k    *Kernel
	kind registrationKind
	id   uint64
}

// Close removes the registration. Safe to call more than once; the
// second call's Remove*Event is a harmless no-op against an already
// absent id. Close never blocks: it pushes the removal event and
// returns, it does not wait for the kernel thread to process it.
func (h RegistrationHandle) Close() error {
	if h.k == nil {
		return nil
	}
	switch h.kind {
	case registrationListener:
		evt := &RemoveEventHandlerEvent{BaseEvent: NewBaseEvent(EventTypeRemoveEventHandler), RegistrationID: h.id}
		_, err := h.k.push(PriorityKernelInternal, evt)
		return err
	case registrationCompletion:
		evt := &RemoveCompletionCallbacksEvent{BaseEvent: NewBaseEvent(EventTypeRemoveCompletionCallbacks), RegistrationID: h.id}
		_, err := h.k.push(PriorityKernelInternal, evt)
		return err
	case registrationInterceptor:
		evt := &RemoveInterceptorEvent{BaseEvent: NewBaseEvent(EventTypeRemoveInterceptor), RegistrationID: h.id}
		_, err := h.k.push(PriorityKernelInternal, evt)
		return err
	case registrationTracker:
		evt := &RemoveTrackerEvent{BaseEvent: NewBaseEvent(EventTypeRemoveTracker), RegistrationID: h.id}
		_, err := h.k.push(PriorityKernelInternal, evt)
		return err
	default:
		return nil
	}
}
