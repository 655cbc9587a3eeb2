package ichor

// Bridge forwards every event of the given types, pushed on from, onto
// to at priority, preserving the original origin service id. This is
// the communication channel between two independent schedulers: each
// kernel stays single-threaded on its own, linked only by the selected
// event types a Bridge relays between their queues.
type Bridge struct {
	handles []RegistrationHandle
}

// NewBridge registers one listener per evtType on from and returns a
// Bridge that can later be torn down with Close. evtTypes must be user
// event types: built-in kernel events (InsertServiceEvent and friends)
// are handled directly by the scheduler loop and never reach a
// listener, so a Bridge cannot relay them.
func NewBridge(from, to *Kernel, priority Priority, evtTypes ...EventTypeID) *Bridge {
	seen := make(map[EventTypeID]bool, len(evtTypes))
	handles := make([]RegistrationHandle, 0, len(evtTypes))
	for _, evtType := range evtTypes {
		if seen[evtType] {
			continue
		}
		seen[evtType] = true
		h := from.RegisterEventHandler(evtType, 0, nil, func(evt Event) (Continuation, error) {
			_, _ = to.PushFrom(priority, evt.Origin(), evt)
			return Done, nil
		})
		handles = append(handles, h)
	}
	return &Bridge{handles: handles}
}

// Close unregisters every listener the bridge installed. Safe to call
// more than once.
func (b *Bridge) Close() error {
	for _, h := range b.handles {
		if err := h.Close(); err != nil {
			return err
		}
	}
	return nil
}
