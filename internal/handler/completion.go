package handler

// completionKey is the (service, event-type) pair completion/error
// handlers are keyed by.
type completionKey struct {
	svc     ServiceID
	evtType EventTypeID
}

type completionEntry struct {
	id RegistrationID
	fn CompletionFunc
}

// Completions is the (service, event-type) -> handler table.
type Completions struct {
	byKey map[completionKey][]completionEntry
}

// NewCompletions returns an empty completion/error handler table.
func NewCompletions() *Completions {
	return &Completions{byKey: make(map[completionKey][]completionEntry)}
}

// Add registers fn to be called on svc once an event of type evtType
// that svc is awaiting settles, successfully or not. id is assigned by
// the caller (see Listeners.Add).
func (c *Completions) Add(id RegistrationID, svc ServiceID, evtType EventTypeID, fn CompletionFunc) RegistrationID {
	key := completionKey{svc: svc, evtType: evtType}
	c.byKey[key] = append(c.byKey[key], completionEntry{id: id, fn: fn})
	return id
}

// Remove deletes the registration with the given id, if present.
func (c *Completions) Remove(id RegistrationID) {
	for key, entries := range c.byKey {
		for i, e := range entries {
			if e.id == id {
				c.byKey[key] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// RemoveByService removes every completion handler registered by svc.
func (c *Completions) RemoveByService(svc ServiceID) {
	for key := range c.byKey {
		if key.svc == svc {
			delete(c.byKey, key)
		}
	}
}

// Fire invokes every completion handler registered for (svc, evtType)
// with the settlement outcome. onErr is nil on success.
func (c *Completions) Fire(svc ServiceID, evtType EventTypeID, evt interface{}, onErr error) {
	key := completionKey{svc: svc, evtType: evtType}
	for _, e := range c.byKey[key] {
		e.fn(evt, onErr)
	}
}
