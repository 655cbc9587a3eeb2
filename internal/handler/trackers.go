package handler

// trackerEntry is one service interested in an interface's
// DependencyRequest/DependencyUndoRequest traffic.
type trackerEntry struct {
	id  RegistrationID
	svc ServiceID
	fn  TrackerFunc
}

// Trackers is the interface-hash -> interested-services table,
// consulted by the lifecycle manager so service
// factories can offer candidates for a requested interface.
type Trackers struct {
	byInterface map[InterfaceID][]trackerEntry
}

// NewTrackers returns an empty dependency tracker table.
func NewTrackers() *Trackers {
	return &Trackers{byInterface: make(map[InterfaceID][]trackerEntry)}
}

// Add registers fn to be notified of DependencyRequest/
// DependencyUndoRequest traffic for iface. id is assigned by the caller
// (see Listeners.Add).
func (t *Trackers) Add(id RegistrationID, iface InterfaceID, svc ServiceID, fn TrackerFunc) RegistrationID {
	t.byInterface[iface] = append(t.byInterface[iface], trackerEntry{id: id, svc: svc, fn: fn})
	return id
}

// Remove deletes the registration with the given id, if present.
func (t *Trackers) Remove(id RegistrationID) {
	for iface, entries := range t.byInterface {
		for i, e := range entries {
			if e.id == id {
				t.byInterface[iface] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// RemoveByService removes every tracker registered by svc.
func (t *Trackers) RemoveByService(svc ServiceID) {
	for iface, entries := range t.byInterface {
		kept := entries[:0]
		for _, e := range entries {
			if e.svc != svc {
				kept = append(kept, e)
			}
		}
		t.byInterface[iface] = kept
	}
}

// Notify invokes every tracker registered for iface with evt (a
// DependencyRequestEvent or DependencyUndoRequestEvent payload).
func (t *Trackers) Notify(iface InterfaceID, evt interface{}) {
	for _, e := range t.byInterface[iface] {
		e.fn(evt)
	}
}
