package handler

// Tables bundles the four handler tables the scheduler loop consults on
// every dispatch. It carries no synchronization of its own -- see the
// package doc comment.
type Tables struct {
	Listeners    *Listeners
	Completions  *Completions
	Interceptors *Interceptors
	Trackers     *Trackers
}

// NewTables returns an empty set of the four tables.
func NewTables() *Tables {
	return &Tables{
		Listeners:    NewListeners(),
		Completions:  NewCompletions(),
		Interceptors: NewInterceptors(),
		Trackers:     NewTrackers(),
	}
}

// RemoveService drops every registration belonging to svc across all
// four tables. Called when a service reaches StateUninstalled so a
// service that never explicitly closed its handles does not leak
// entries that could later be dispatched into a dead service.
func (t *Tables) RemoveService(svc ServiceID) {
	t.Listeners.RemoveByService(svc)
	t.Completions.RemoveByService(svc)
	t.Interceptors.RemoveByService(svc)
	t.Trackers.RemoveByService(svc)
}
