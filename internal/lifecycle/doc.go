// Package lifecycle implements the dependency graph and the seven-state
// service state machine. It is a pure bookkeeping layer: Manager tracks
// per-service dependency satisfaction counts, injected-dependency and
// dependee edges, and state transitions, but it never itself pushes
// events or drives I/O. The scheduler loop in the root package calls
// Manager's methods in response to each lifecycle event (InsertService,
// DependencyRequest, DependencyOnline/Offline, StartService, StopService,
// RemoveService) and acts on the returned decision: each suspension point
// is simply the boundary between one event and the next one the loop
// schedules, rather than a blocked goroutine or stackful coroutine.
package lifecycle
