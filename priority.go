package ichor

// Priority orders events in the queue: a lower numeric value dispatches
// before a higher one. Events with equal priority are delivered in
// enqueue order (FIFO), never reordered by an EventQueue implementation.
type Priority uint64

const (
	// PriorityInsertService is reserved for InsertServiceEvent. It is
	// strictly lower (higher precedence) than every other kernel event so
	// that a newly created service is registered before anything else can
	// observe it.
	PriorityInsertService Priority = 0

	// PriorityKernelInternal is the band reserved for lifecycle and other
	// kernel-internal events (DependencyOnline/Offline, StartService,
	// StopService, RemoveService, ...); a ContinuableEvent is pushed at
	// the priority of the event it resumes from instead. It is strictly
	// lower (higher precedence) than PriorityUserDefault so lifecycle
	// transitions preempt ordinary user work.
	PriorityKernelInternal Priority = 1000

	// PriorityUserDefault is the priority new user services and events get
	// unless a caller specifies otherwise.
	PriorityUserDefault Priority = 1_000_000

	// PriorityUserLow is a convenience value for background/low urgency
	// user work.
	PriorityUserLow Priority = 2_000_000
)

// IsKernelBand reports whether p falls in the kernel-reserved priority
// band: every value strictly below PriorityUserDefault, which includes
// PriorityInsertService and PriorityKernelInternal.
func IsKernelBand(p Priority) bool {
	return p < PriorityUserDefault
}
