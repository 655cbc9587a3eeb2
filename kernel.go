package ichor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/volt-software/ichor-go/internal/breaker"
	"github.com/volt-software/ichor-go/internal/coroutine"
	"github.com/volt-software/ichor-go/internal/handler"
	"github.com/volt-software/ichor-go/internal/klog"
	"github.com/volt-software/ichor-go/internal/kmetrics"
	"github.com/volt-software/ichor-go/internal/lifecycle"
	"github.com/volt-software/ichor-go/internal/queue"
	"github.com/volt-software/ichor-go/internal/registry"
	"github.com/volt-software/ichor-go/internal/waiter"
)

// stopRequest tracks one in-flight StopServiceEvent's caller-visible
// settlement, keyed by the service being stopped.
type stopRequest struct {
	cause error
	done  chan error
}

// serviceEntry is the kernel's own bookkeeping record for one created
// service -- whatever the registry and lifecycle manager do not
// themselves own: the live Service value once constructed, the
// dependency values accumulated so far, and callers awaiting its start.
type serviceEntry struct {
	id         ServiceID
	name       string
	priority   Priority
	properties *Properties
	interfaces []InterfaceID
	specs      []DependencySpec

	ctor Constructor
	adv  Advanced
	impl Service

	depValues map[InterfaceID]any

	startWaiters []chan error
}

// ServiceOption configures a service at creation time.
type ServiceOption func(*serviceEntry)

// WithPriority overrides the default PriorityUserDefault recorded for a
// created service: the registry orders services exposing the same
// interface by it, and ServiceHandle.Priority reports it. Events the
// service pushes keep the priority they are pushed with.
func WithPriority(p Priority) ServiceOption {
	return func(e *serviceEntry) { e.priority = p }
}

// WithInterfaces declares the capability interfaces a service exposes.
func WithInterfaces(ifaces ...InterfaceID) ServiceOption {
	return func(e *serviceEntry) { e.interfaces = ifaces }
}

// WithProperties attaches a property map, e.g. carrying a Filter under
// PropertyFilter.
func WithProperties(props *Properties) ServiceOption {
	return func(e *serviceEntry) { e.properties = props }
}

// Kernel is a single scheduler-loop instance: one event queue, one set
// of handler tables, one dependency graph, drained by exactly one
// goroutine once Serve is called. No two
// goroutines ever touch the same service; Push/PushFrom, Quit,
// CreateService, the Register* methods and the await calls are the
// entry points safe to call from other goroutines.
type Kernel struct {
	name   string
	cfg    Config
	logger zerolog.Logger

	q          queue.Queue
	tables     *handler.Tables
	registry   *registry.Registry
	lifecycle  *lifecycle.Manager
	waiters    *waiter.Table
	coroutines *coroutine.Scheduler
	metrics    *kmetrics.Metrics

	// mu guards services and stopRequests (nextID and nextRegID are
	// advanced atomically instead): CreateService and
	// RegistrationHandle.Close may be called from any goroutine, while
	// the scheduler loop reads and mutates the same maps from the
	// kernel goroutine.
	mu           sync.Mutex
	services     map[ServiceID]*serviceEntry
	nextID       uint64
	nextRegID    uint64
	stopRequests map[ServiceID]*stopRequest

	// cascadeWaiters/cascadeOwners track stops that fan out into more
	// stops: onDependencyOffline may need one or more dependees to fully
	// stop before the dependency that triggered it is allowed to finish
	// stopping itself. Both maps are read and written only from the
	// kernel goroutine, never concurrently, so unlike the fields above
	// they need no lock of their own.
	cascadeWaiters map[ServiceID]int
	cascadeOwners  map[ServiceID][]ServiceID

	done     chan struct{}
	quitting atomic.Bool
}

// Option configures a Kernel at construction time.
type Option func(*Kernel)

// WithLogger overrides the kernel's logger (default: internal/klog's
// package-global logger with a "kernel" field attached).
func WithLogger(l zerolog.Logger) Option {
	return func(k *Kernel) { k.logger = l }
}

// WithQueue overrides the event queue backend. Default is chosen from
// Config.QueueBackend by NewKernel.
func WithQueue(q queue.Queue) Option {
	return func(k *Kernel) { k.q = q }
}

// WithMetricsRegistry enables internal/kmetrics collection against reg,
// labelled with the kernel's name.
func WithMetricsRegistry(reg prometheus.Registerer) Option {
	return func(k *Kernel) {
		if reg != nil {
			k.metrics = kmetrics.New(reg, k.name)
		}
	}
}

// NewKernel constructs a Kernel. The returned Kernel is inert until
// Serve or Start is called; CreateService and the Register* methods may
// be called beforehand or after, from any goroutine.
func NewKernel(name string, cfg Config, opts ...Option) *Kernel {
	k := &Kernel{
		name:           name,
		cfg:            cfg,
		logger:         klog.Logger().With().Str("kernel", name).Logger(),
		tables:         handler.NewTables(),
		registry:       registry.New(),
		lifecycle:      lifecycle.New(),
		waiters:        waiter.New(),
		coroutines:     coroutine.New(),
		services:       make(map[ServiceID]*serviceEntry),
		stopRequests:   make(map[ServiceID]*stopRequest),
		cascadeWaiters: make(map[ServiceID]int),
		cascadeOwners:  make(map[ServiceID][]ServiceID),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.q == nil {
		k.q = defaultQueue(cfg)
	}
	if cfg.MetricsEnabled && k.metrics == nil {
		k.metrics = kmetrics.New(prometheus.NewRegistry(), name)
	}
	return k
}

func defaultQueue(cfg Config) queue.Queue {
	if cfg.QueueBackend == "ring" {
		rc := queue.RingConfig{Entries: cfg.RingEntries, PollTimeoutNanos: int64(cfg.PollTimeout)}
		if q, err := queue.NewRingQueue(rc); err == nil {
			return q
		}
	}
	return queue.NewMultimapQueue()
}

// Name returns the kernel's configured name, used as a metrics/logging
// label and as its suture.Service String().
func (k *Kernel) Name() string { return k.name }

// String satisfies suture.Service / fmt.Stringer so a *Kernel can be
// hosted directly by internal/supervisor.Tree.
func (k *Kernel) String() string { return k.name }

// Done returns a channel closed once the scheduler loop has fully
// drained and exited.
func (k *Kernel) Done() <-chan struct{} { return k.done }

// Serve runs the scheduler loop until ctx is cancelled or Quit drains
// the kernel to completion. It satisfies suture.Service so a *Kernel can
// be added directly to an internal/supervisor.Tree.
func (k *Kernel) Serve(ctx context.Context) error {
	ctx = WithKernel(ctx, k)
	return k.run(ctx)
}

// Start runs Serve, optionally cancelling ctx on SIGINT/SIGTERM, per the
// required surface's Kernel::start(capture_sigint).
func (k *Kernel) Start(ctx context.Context, captureSigint bool) error {
	if captureSigint {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()
	}
	return k.Serve(ctx)
}

// Quit begins shutdown: every remaining service is stopped in
// descending start order and the loop exits once all have reached
// StateUninstalled. Idempotent.
func (k *Kernel) Quit() error {
	_, err := k.push(PriorityKernelInternal, newQuitEvent())
	return err
}

// push is the unchecked core every kernel-internal caller uses: it
// always enqueues, even while quitting, since the shutdown cascade
// itself is driven by internal pushes.
func (k *Kernel) push(priority Priority, evt pushable) (uint64, error) {
	return k.pushFrom(priority, 0, evt)
}

func (k *Kernel) pushFrom(priority Priority, origin ServiceID, evt pushable) (uint64, error) {
	id, err := k.q.Push(queue.Priority(priority), evt)
	if err != nil {
		return 0, err
	}
	evt.patchBase(id, priority, origin)
	return id, nil
}

// Push enqueues a user event at priority with no recorded origin
// service. It returns ErrQueueClosed once Quit has been called.
func (k *Kernel) Push(priority Priority, evt Event) (uint64, error) {
	return k.PushFrom(priority, 0, evt)
}

// PushFrom enqueues a user event at priority on behalf of origin. evt
// must embed BaseEvent (directly or transitively); every built-in event
// type and every event constructed via NewBaseEvent satisfies this.
func (k *Kernel) PushFrom(priority Priority, origin ServiceID, evt Event) (uint64, error) {
	p, ok := evt.(pushable)
	if !ok {
		return 0, fmt.Errorf("ichor: event type %T does not embed BaseEvent", evt)
	}
	if k.quitting.Load() {
		return 0, ErrQueueClosed
	}
	return k.pushFrom(priority, origin, p)
}

// CreateService creates a constructor-injected service: Impl.New is
// invoked once every required dependency declared by Dependencies has
// satisfaction count >= 1.
func (k *Kernel) CreateService(ctor Constructor, opts ...ServiceOption) (ServiceHandle, error) {
	return k.createService(ctor, nil, opts)
}

// CreateAdvancedService creates a service that is already constructed;
// AddDependency/RemoveDependency callbacks fire as candidates come and
// go.
func (k *Kernel) CreateAdvancedService(adv Advanced, opts ...ServiceOption) (ServiceHandle, error) {
	return k.createService(nil, adv, opts)
}

func (k *Kernel) createService(ctor Constructor, adv Advanced, opts []ServiceOption) (ServiceHandle, error) {
	if k.quitting.Load() {
		return ServiceHandle{}, ErrQueueClosed
	}

	var name string
	var specs []DependencySpec
	switch {
	case ctor != nil:
		name = ctor.ServiceName()
		specs = ctor.Dependencies()
	case adv != nil:
		name = adv.ServiceName()
		specs = adv.Dependencies()
	default:
		return ServiceHandle{}, fmt.Errorf("ichor: createService requires a Constructor or Advanced")
	}

	entry := &serviceEntry{
		id:         ServiceID(atomic.AddUint64(&k.nextID, 1)),
		name:       name,
		priority:   PriorityUserDefault,
		properties: NewProperties(),
		ctor:       ctor,
		adv:        adv,
		specs:      specs,
		depValues:  make(map[InterfaceID]any),
	}
	if adv != nil {
		entry.impl = adv
	}
	for _, opt := range opts {
		opt(entry)
	}

	k.mu.Lock()
	k.services[entry.id] = entry
	k.mu.Unlock()

	if _, err := k.push(PriorityInsertService, newInsertServiceEvent(entry.id)); err != nil {
		k.mu.Lock()
		delete(k.services, entry.id)
		k.mu.Unlock()
		return ServiceHandle{}, err
	}

	return ServiceHandle{ID: entry.id, UUID: newServiceUUID(), Priority: entry.priority}, nil
}

// nextRegistrationID hands out a RegistrationID unique across all four
// handler tables. Minted here rather than by the tables themselves
// since Register* is callable from any goroutine but a table mutation
// only ever runs on the kernel goroutine (see internal/handler's doc
// comment) -- the caller needs the id back immediately to build a
// RegistrationHandle, before the mutation it names has even applied.
func (k *Kernel) nextRegistrationID() handler.RegistrationID {
	return handler.RegistrationID(atomic.AddUint64(&k.nextRegID, 1))
}

// RegisterEventHandler registers fn for events of type evtType
// originating for svc, optionally restricted to deliveries addressed to
// target. The registration itself happens on the kernel goroutine: this
// method only reserves the id and pushes the table mutation, so it
// never races the loop's own iteration over the listener table.
func (k *Kernel) RegisterEventHandler(evtType EventTypeID, svc ServiceID, target *ServiceID, fn ListenerFunc) RegistrationHandle {
	wrapped := func(raw interface{}) (handler.Continuation, error) {
		evt, _ := raw.(Event)
		c, err := fn(evt)
		return handler.Continuation{Done: c.Done, PromiseID: c.PromiseID}, err
	}
	var t *handler.ServiceID
	if target != nil {
		ht := handler.ServiceID(*target)
		t = &ht
	}
	id := k.nextRegistrationID()
	k.push(PriorityKernelInternal, newRunFunctionEvent(func() {
		k.tables.Listeners.Add(id, handler.EventTypeID(evtType), handler.ServiceID(svc), t, wrapped)
	}))
	return RegistrationHandle{k: k, kind: registrationListener, id: uint64(id)}
}

// RegisterCompletionHandlers registers fn to be invoked on svc once an
// event of type evtType that svc is awaiting settles. Routed through
// the kernel goroutine for the same reason as RegisterEventHandler.
func (k *Kernel) RegisterCompletionHandlers(svc ServiceID, evtType EventTypeID, fn CompletionFunc) RegistrationHandle {
	wrapped := func(raw interface{}, onErr error) {
		evt, _ := raw.(Event)
		fn(evt, onErr)
	}
	id := k.nextRegistrationID()
	k.push(PriorityKernelInternal, newRunFunctionEvent(func() {
		k.tables.Completions.Add(id, handler.ServiceID(svc), handler.EventTypeID(evtType), wrapped)
	}))
	return RegistrationHandle{k: k, kind: registrationCompletion, id: uint64(id)}
}

// RegisterEventInterceptor registers pre/post hooks for evtType, or for
// every event type if evtType is WildcardEventType. Routed through the
// kernel goroutine for the same reason as RegisterEventHandler.
func (k *Kernel) RegisterEventInterceptor(evtType EventTypeID, svc ServiceID, pre InterceptorPreFunc, post InterceptorPostFunc) RegistrationHandle {
	var wrappedPre handler.InterceptorPreFunc
	if pre != nil {
		wrappedPre = func(raw interface{}) bool {
			evt, _ := raw.(Event)
			return pre(evt)
		}
	}
	var wrappedPost handler.InterceptorPostFunc
	if post != nil {
		wrappedPost = func(raw interface{}, dispatched bool) {
			evt, _ := raw.(Event)
			post(evt, dispatched)
		}
	}
	id := k.nextRegistrationID()
	k.push(PriorityKernelInternal, newRunFunctionEvent(func() {
		k.tables.Interceptors.Add(id, handler.EventTypeID(evtType), handler.ServiceID(svc), wrappedPre, wrappedPost)
	}))
	return RegistrationHandle{k: k, kind: registrationInterceptor, id: uint64(id)}
}

// RegisterDependencyTracker registers fn to observe
// DependencyRequestEvent/DependencyUndoRequestEvent traffic for iface,
// used to build service factories. Each registration gets its own
// circuit breaker: a tracker that panics repeatedly while offering
// candidates trips it, and further traffic is dropped (logged, not
// delivered to fn) rather than busy-looping a wedged callback. Routed
// through the kernel goroutine for the same reason as
// RegisterEventHandler.
func (k *Kernel) RegisterDependencyTracker(iface InterfaceID, svc ServiceID, fn TrackerFunc) RegistrationHandle {
	br := breaker.NewTracker(breaker.DefaultConfig(fmt.Sprintf("tracker:%d:%d", svc, iface)))
	wrapped := func(raw interface{}) {
		evt, _ := raw.(Event)
		_, _, err := br.Offer(func() (any, bool, error) {
			return nil, true, k.invokeTracker(fn, evt)
		})
		if err != nil {
			k.logger.Warn().Err(err).Uint64("service", uint64(svc)).Uint64("interface", uint64(iface)).
				Msg("dependency tracker callback failed or breaker open; skipping this round")
		}
	}
	id := k.nextRegistrationID()
	k.push(PriorityKernelInternal, newRunFunctionEvent(func() {
		k.tables.Trackers.Add(id, handler.InterfaceID(iface), handler.ServiceID(svc), wrapped)
	}))
	return RegistrationHandle{k: k, kind: registrationTracker, id: uint64(id)}
}

func (k *Kernel) invokeTracker(fn TrackerFunc, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackFailure{Phase: "tracker", Panic: r}
		}
	}()
	fn(evt)
	return nil
}
