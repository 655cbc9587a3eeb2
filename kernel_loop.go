package ichor

import (
	"context"
	"time"

	"github.com/volt-software/ichor-go/internal/coroutine"
	"github.com/volt-software/ichor-go/internal/handler"
	"github.com/volt-software/ichor-go/internal/lifecycle"
	"github.com/volt-software/ichor-go/internal/queue"
	"github.com/volt-software/ichor-go/internal/registry"
)

// run is the kernel's scheduler loop: pop the
// highest-priority event, run interceptors around dispatch, fire
// waiters, repeat. It returns once Quit has drained every service to
// StateUninstalled, or ctx is cancelled.
func (k *Kernel) run(ctx context.Context) error {
	defer close(k.done)
	defer k.q.Quit()

	pollTimeout := k.cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = time.Millisecond
	}

	for {
		if k.quitting.Load() && k.q.Empty() && k.serviceCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		item, ok := k.q.Pop()
		if !ok {
			waitDone := make(chan struct{})
			timer := time.AfterFunc(pollTimeout, func() { close(waitDone) })
			k.q.Wait(waitDone)
			timer.Stop()
			continue
		}
		k.dispatch(item)
	}
}

func (k *Kernel) serviceCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.services)
}

func (k *Kernel) dispatch(item queue.Item) {
	evt, ok := item.Payload.(Event)
	if !ok {
		k.logger.Warn().Type("payload", item.Payload).Msg("dropped queue item that is not an ichor.Event")
		return
	}

	start := time.Now()
	htyp := handler.EventTypeID(evt.Type())
	veto := k.tables.Interceptors.RunPre(htyp, evt)
	dispatched := !veto
	if dispatched {
		k.handleEvent(evt)
	}
	k.tables.Interceptors.RunPost(htyp, evt, dispatched)

	if k.metrics != nil {
		k.metrics.ObserveDispatch(start)
		k.metrics.EventsProcessedTotal.Inc()
		k.metrics.QueueDepth.Set(float64(k.q.Size()))
		k.metrics.CoroutineFrames.Set(float64(k.coroutines.FrameCount()))
	}
}

func (k *Kernel) handleEvent(evt Event) {
	switch e := evt.(type) {
	case *InsertServiceEvent:
		k.onInsertService(e)
	case *DependencyRequestEvent:
		k.tables.Trackers.Notify(handler.InterfaceID(e.Interface), e)
	case *DependencyUndoRequestEvent:
		k.tables.Trackers.Notify(handler.InterfaceID(e.Interface), e)
	case *DependencyOnlineEvent:
		k.onDependencyOnline(e)
	case *DependencyOfflineEvent:
		k.onDependencyOffline(e)
	case *StartServiceEvent:
		k.onStartService(e)
	case *StopServiceEvent:
		k.onStopService(e)
	case *RemoveServiceEvent:
		k.onRemoveService(e)
	case *RunFunctionEvent:
		k.onRunFunction(e)
	case *RunFunctionEventAsync:
		k.onRunFunctionAsync(e)
	case *ContinuableEvent:
		k.coroutines.Resume(e.PromiseID, coroutine.Result{Value: e.Result, Err: e.Err})
	case *ContinuableStartEvent:
		k.coroutines.Resume(e.PromiseID, coroutine.Result{})
	case *RemoveCompletionCallbacksEvent:
		k.tables.Completions.Remove(handler.RegistrationID(e.RegistrationID))
	case *RemoveEventHandlerEvent:
		k.tables.Listeners.Remove(handler.RegistrationID(e.RegistrationID))
	case *RemoveInterceptorEvent:
		k.tables.Interceptors.Remove(handler.RegistrationID(e.RegistrationID))
	case *RemoveTrackerEvent:
		k.tables.Trackers.Remove(handler.RegistrationID(e.RegistrationID))
	case *QuitEvent:
		k.onQuit()
	default:
		k.dispatchUserEvent(evt)
	}
}

func (k *Kernel) dispatchUserEvent(evt Event) {
	htyp := handler.EventTypeID(evt.Type())
	var target handler.ServiceID
	if t, ok := evt.(Targeted); ok {
		target = handler.ServiceID(t.Target())
	}
	pending, err := k.tables.Listeners.Dispatch(htyp, target, evt)

	// A listener that returned an unfinished Continuation resumes through
	// a ContinuableEvent pushed at evt's priority.
	for _, c := range pending {
		k.push(evt.Priority(), newContinuableEvent(c.PromiseID, evt, nil))
	}

	// Resolve any PushEventAsync awaits keyed on evt's own
	// identity. Each one resumes through a freshly pushed ContinuableEvent
	// at evt's priority rather than being resumed in place, so a
	// continuation waits its turn in priority/FIFO order the same way a
	// synchronous listener would have.
	if promises, ok := k.waiters.Complete(evt); ok {
		for _, promiseID := range promises {
			k.push(evt.Priority(), newContinuableEvent(promiseID, evt, err))
		}
	}

	k.tables.Completions.Fire(handler.ServiceID(evt.Origin()), htyp, evt, err)
}

// transition drives both the registry's and the lifecycle manager's
// recorded state for id in lockstep, and keeps the per-state metrics
// gauge consistent.
func (k *Kernel) transition(id ServiceID, newState ServiceState) {
	var oldState ServiceState
	if e, ok := k.registry.Get(registry.ServiceID(id)); ok {
		oldState = ServiceState(e.State)
	}
	k.registry.SetState(registry.ServiceID(id), registry.State(newState))
	k.lifecycle.SetState(lifecycle.ServiceID(id), lifecycle.State(newState))
	if k.metrics != nil && oldState != newState {
		k.metrics.ServiceState.WithLabelValues(oldState.String()).Dec()
		k.metrics.ServiceState.WithLabelValues(newState.String()).Inc()
	}
}

func (k *Kernel) entryOf(id ServiceID) *serviceEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.services[id]
}

func (k *Kernel) propertiesOf(id ServiceID) map[string]interface{} {
	entry := k.entryOf(id)
	if entry == nil || entry.properties == nil {
		return nil
	}
	return entry.properties.Snapshot()
}

func (k *Kernel) lifecycleSpecs(entry *serviceEntry) []lifecycle.DependencySpec {
	var filter lifecycle.Filter
	if f, ok := entry.properties.Get(PropertyFilter); ok {
		if lf, ok := f.(lifecycle.Filter); ok {
			filter = lf
		}
	}
	out := make([]lifecycle.DependencySpec, len(entry.specs))
	for i, s := range entry.specs {
		out[i] = lifecycle.DependencySpec{Interface: lifecycle.InterfaceID(s.Interface), Required: s.Required, Filter: filter}
	}
	return out
}

func (k *Kernel) onInsertService(e *InsertServiceEvent) {
	entry := k.entryOf(e.Service)
	if entry == nil {
		return
	}

	k.registry.Insert(registry.ServiceID(entry.id), entry.name, registry.Priority(entry.priority), toRegistryInterfaces(entry.interfaces))
	if k.metrics != nil {
		k.metrics.ServiceState.WithLabelValues(StateInstalled.String()).Inc()
	}

	specs := k.lifecycleSpecs(entry)
	k.lifecycle.Register(lifecycle.ServiceID(entry.id), uint64(entry.priority), specs)

	for _, spec := range specs {
		k.push(PriorityKernelInternal, newDependencyRequestEvent(entry.id, InterfaceID(spec.Interface), spec.Required))
		k.probeCandidates(entry.id, InterfaceID(spec.Interface))
	}

	if k.lifecycle.State(lifecycle.ServiceID(entry.id)) == lifecycle.StateInstalled && k.lifecycle.AllRequiredSatisfied(lifecycle.ServiceID(entry.id)) {
		k.internalStart(entry.id)
	}
}

func (k *Kernel) probeCandidates(depID ServiceID, iface InterfaceID) {
	for _, e := range k.registry.GetStarted(registry.InterfaceID(iface)) {
		k.offerDependency(depID, ServiceID(e.ID))
	}
}

// onDependencyOnline is the announcement that candidateID has just
// reached StateActive: offer it as a dependency candidate to every
// other currently registered service.
func (k *Kernel) onDependencyOnline(e *DependencyOnlineEvent) {
	candidateID := e.Service
	k.mu.Lock()
	ids := make([]ServiceID, 0, len(k.services))
	for id := range k.services {
		if id != candidateID {
			ids = append(ids, id)
		}
	}
	k.mu.Unlock()
	for _, depID := range ids {
		k.offerDependency(depID, candidateID)
	}
}

func (k *Kernel) offerDependency(depID, candidateID ServiceID) {
	if depID == candidateID {
		return
	}
	ce, ok := k.registry.Get(registry.ServiceID(candidateID))
	if !ok || ce.State != registry.StateActive {
		return
	}
	cand := lifecycle.Candidate{
		ID:         lifecycle.ServiceID(candidateID),
		Interfaces: toLifecycleInterfaces(ce.Interfaces),
		Properties: k.propertiesOf(candidateID),
	}
	matched := k.lifecycle.InterestedInDependency(lifecycle.ServiceID(depID), cand, true)
	if len(matched) == 0 {
		return
	}

	result := k.lifecycle.DependencyOnline(lifecycle.ServiceID(depID), lifecycle.ServiceID(candidateID), matched)
	k.lifecycle.RecordDependee(lifecycle.ServiceID(candidateID), lifecycle.ServiceID(depID))
	if k.metrics != nil {
		for _, iface := range matched {
			k.metrics.DependencySatisfied.WithLabelValues(ifaceLabel(iface)).Inc()
		}
	}
	k.injectCandidate(depID, candidateID, matched)

	if result.ReadyToStart {
		k.internalStart(depID)
	}
}

func (k *Kernel) injectCandidate(depID, candidateID ServiceID, matched []lifecycle.InterfaceID) {
	entry := k.entryOf(depID)
	if entry == nil {
		return
	}
	candEntry := k.entryOf(candidateID)
	var impl any
	if candEntry != nil {
		impl = candEntry.impl
	}

	for _, iface := range matched {
		if entry.adv != nil {
			k.invokeAddDependency(entry, InterfaceID(iface), candidateID, impl)
		} else {
			entry.depValues[InterfaceID(iface)] = impl
		}
	}
}

func (k *Kernel) invokeAddDependency(entry *serviceEntry, iface InterfaceID, candidateID ServiceID, impl any) {
	var callErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				callErr = &CallbackFailure{Service: entry.id, Phase: "add_dependency", Panic: r}
			}
		}()
		callErr = entry.adv.AddDependency(iface, candidateID, impl)
	}()
	if callErr != nil {
		k.logger.Error().Err(callErr).Uint64("service", uint64(entry.id)).Msg("add_dependency failed; reverting to INSTALLED")
		k.failStart(entry.id, callErr)
	}
}

func (k *Kernel) internalStart(id ServiceID) {
	entry := k.entryOf(id)
	if entry == nil {
		return
	}
	k.transition(id, StateStarting)

	if entry.ctor != nil {
		deps := make([]any, len(entry.specs))
		for i, spec := range entry.specs {
			deps[i] = entry.depValues[spec.Interface]
		}
		impl, err := k.invokeConstructor(entry, deps)
		if err != nil {
			k.failStart(id, err)
			return
		}
		entry.impl = impl
	}

	k.transition(id, StateInjecting)
	k.transition(id, StateActive)
	k.resolveStartWaiters(id, nil)
	k.push(PriorityKernelInternal, newDependencyOnlineEvent(id))
}

func (k *Kernel) invokeConstructor(entry *serviceEntry, deps []any) (svc Service, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackFailure{Service: entry.id, Phase: "constructor", Panic: r}
		}
	}()
	return entry.ctor.New(deps)
}

func (k *Kernel) failStart(id ServiceID, cause error) {
	k.transition(id, StateInstalled)
	k.resolveStartWaiters(id, &StartError{Service: id, Name: k.nameOf(id), Err: cause})
}

func (k *Kernel) nameOf(id ServiceID) string {
	if e := k.entryOf(id); e != nil {
		return e.name
	}
	return ""
}

func (k *Kernel) resolveStartWaiters(id ServiceID, err error) {
	k.mu.Lock()
	entry := k.services[id]
	if entry == nil {
		k.mu.Unlock()
		return
	}
	waiters := entry.startWaiters
	entry.startWaiters = nil
	k.mu.Unlock()
	for _, ch := range waiters {
		ch <- err
		close(ch)
	}
}

func (k *Kernel) onStartService(e *StartServiceEvent) {
	id := e.Service
	if e.done != nil {
		switch k.lifecycle.State(lifecycle.ServiceID(id)) {
		case lifecycle.StateActive:
			e.done <- nil
			close(e.done)
		default:
			k.mu.Lock()
			if entry := k.services[id]; entry != nil {
				entry.startWaiters = append(entry.startWaiters, e.done)
			}
			k.mu.Unlock()
		}
	}
	if k.lifecycle.State(lifecycle.ServiceID(id)) == lifecycle.StateInstalled && k.lifecycle.AllRequiredSatisfied(lifecycle.ServiceID(id)) {
		k.internalStart(id)
	}
}

func (k *Kernel) onStopService(e *StopServiceEvent) {
	id := e.Service
	if k.lifecycle.State(lifecycle.ServiceID(id)) != lifecycle.StateActive {
		if e.done != nil {
			e.done <- nil
			close(e.done)
		}
		// No finishStop is coming for this request, so any dependee
		// stop it might otherwise have blocked on must be released now
		// -- e.g. a second StopServiceEvent for id arriving after a
		// first one already drove it all the way to StateInstalled.
		k.resolveCascade(id)
		return
	}
	k.mu.Lock()
	k.stopRequests[id] = &stopRequest{cause: e.Cause, done: e.done}
	k.mu.Unlock()
	k.push(PriorityKernelInternal, newDependencyOfflineEvent(id))
}

// onDependencyOffline is the announcement that id is going offline:
// every dependee of id drops id from its dependencies, possibly
// cascading into its own stop, before id itself finishes stopping. id
// only transitions to UNINJECTING once its dependees set is empty, and
// finishStop(id) only runs once every cascading dependee stop this call
// triggers has itself completed -- otherwise a leaf dependency could
// reach INSTALLED before the dependees that still required it.
func (k *Kernel) onDependencyOffline(e *DependencyOfflineEvent) {
	id := e.Service
	dependees := k.lifecycle.Dependees(lifecycle.ServiceID(id))
	ce, _ := k.registry.Get(registry.ServiceID(id))

	for _, dependee := range dependees {
		depID := ServiceID(dependee)
		matched := k.matchedInterfaces(depID, id, ce)
		if len(matched) == 0 {
			continue
		}
		result := k.lifecycle.DependencyOffline(lifecycle.ServiceID(depID), lifecycle.ServiceID(id), matched)
		k.lifecycle.DropDependee(lifecycle.ServiceID(id), lifecycle.ServiceID(depID))
		if k.metrics != nil {
			for _, iface := range matched {
				k.metrics.DependencySatisfied.WithLabelValues(ifaceLabel(iface)).Dec()
			}
		}
		k.removeCandidate(depID, id, matched)
		if len(result.RequiredDropped) > 0 && k.lifecycle.State(lifecycle.ServiceID(depID)) == lifecycle.StateActive {
			k.cascadeWaiters[id]++
			k.cascadeOwners[depID] = append(k.cascadeOwners[depID], id)
			k.push(PriorityKernelInternal, newStopServiceEvent(depID, &DependencyError{Service: depID, Interface: InterfaceID(result.RequiredDropped[0])}, nil))
		}
	}

	// By now every dependee that still required id has dropped it, so
	// the dependees set invariant holds; only now does id itself leave
	// ACTIVE toward UNINJECTING.
	k.transition(id, StateUninjecting)

	if k.cascadeWaiters[id] == 0 {
		k.finishStop(id)
	}
}

// resolveCascade releases every id waiting on depID's stop to finish,
// decrementing their cascadeWaiters count and, once it reaches zero,
// finally calling finishStop for them.
func (k *Kernel) resolveCascade(depID ServiceID) {
	owners := k.cascadeOwners[depID]
	delete(k.cascadeOwners, depID)
	for _, owner := range owners {
		k.cascadeWaiters[owner]--
		if k.cascadeWaiters[owner] <= 0 {
			delete(k.cascadeWaiters, owner)
			k.finishStop(owner)
		}
	}
}

func (k *Kernel) matchedInterfaces(depID, candidateID ServiceID, ce *registry.Entry) []lifecycle.InterfaceID {
	if ce == nil {
		return nil
	}
	cand := lifecycle.Candidate{
		ID:         lifecycle.ServiceID(candidateID),
		Interfaces: toLifecycleInterfaces(ce.Interfaces),
		Properties: k.propertiesOf(candidateID),
	}
	return k.lifecycle.InterestedInDependency(lifecycle.ServiceID(depID), cand, false)
}

func (k *Kernel) removeCandidate(depID, candidateID ServiceID, matched []lifecycle.InterfaceID) {
	entry := k.entryOf(depID)
	if entry == nil {
		return
	}
	for _, iface := range matched {
		if entry.adv != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						k.logger.Error().
							Interface("panic", r).
							Uint64("service", uint64(depID)).
							Msg("remove_dependency panicked; the dependency invariant no longer holds")
						panic(r)
					}
				}()
				entry.adv.RemoveDependency(InterfaceID(iface), candidateID)
			}()
		} else {
			delete(entry.depValues, InterfaceID(iface))
		}
	}
}

func (k *Kernel) finishStop(id ServiceID) {
	k.transition(id, StateStopping)

	entry := k.entryOf(id)
	if entry != nil && entry.impl != nil {
		if stopper, ok := entry.impl.(Stopper); ok {
			func() {
				defer func() {
					if r := recover(); r != nil {
						k.logger.Error().Interface("panic", r).Uint64("service", uint64(id)).Msg("Stop panicked")
					}
				}()
				if err := stopper.Stop(); err != nil {
					k.logger.Warn().Err(err).Uint64("service", uint64(id)).Msg("Stop returned an error")
				}
			}()
		}
	}

	k.transition(id, StateInstalled)

	k.mu.Lock()
	req := k.stopRequests[id]
	delete(k.stopRequests, id)
	k.mu.Unlock()

	if req != nil && req.done != nil {
		req.done <- req.cause
		close(req.done)
	}

	k.coroutines.Cancel(coroutine.ServiceID(id), ErrServiceQuitting)

	// id has now fully stopped: release anything waiting on that (a
	// dependency of id's that deferred its own finishStop until id, one
	// of its dependees, was done).
	k.resolveCascade(id)

	if k.quitting.Load() {
		k.push(PriorityKernelInternal, newRemoveServiceEvent(id, nil))
	}
}

func (k *Kernel) onRemoveService(e *RemoveServiceEvent) {
	id := e.Service
	if k.lifecycle.State(lifecycle.ServiceID(id)) != lifecycle.StateInstalled {
		if e.done != nil {
			e.done <- &DependencyError{Service: id}
			close(e.done)
		}
		return
	}

	for _, candidateID := range k.lifecycle.InjectedDependencies(lifecycle.ServiceID(id)) {
		k.lifecycle.DropDependee(candidateID, lifecycle.ServiceID(id))
	}

	k.tables.RemoveService(handler.ServiceID(id))
	k.coroutines.Cancel(coroutine.ServiceID(id), ErrServiceQuitting)
	k.lifecycle.Unregister(lifecycle.ServiceID(id))
	k.registry.Remove(registry.ServiceID(id))
	if k.metrics != nil {
		k.metrics.ServiceState.WithLabelValues(StateInstalled.String()).Dec()
	}

	k.mu.Lock()
	delete(k.services, id)
	k.mu.Unlock()

	if e.done != nil {
		e.done <- nil
		close(e.done)
	}
}

func (k *Kernel) onRunFunction(e *RunFunctionEvent) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				k.logger.Error().Interface("panic", r).Msg("RunFunctionEvent panicked")
			}
		}()
		e.Fn()
	}()
}

func (k *Kernel) onRunFunctionAsync(e *RunFunctionEventAsync) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &CallbackFailure{Phase: "run_function_async", Panic: r}
			}
		}()
		err = e.Fn()
	}()
	if e.done != nil {
		e.done <- err
		close(e.done)
	}
}

// onQuit begins the shutdown sequence: every remaining service is
// driven toward StateUninstalled in descending start order. The queue
// itself is not closed here -- that happens once run's loop condition
// observes an empty queue and zero remaining services -- so the
// cascade of StopServiceEvent/RemoveServiceEvent pushes this triggers
// is never rejected by a prematurely closed queue.
func (k *Kernel) onQuit() {
	if k.quitting.Swap(true) {
		return
	}
	order := k.lifecycle.StartOrder()
	for i := len(order) - 1; i >= 0; i-- {
		id := ServiceID(order[i])
		switch k.lifecycle.State(lifecycle.ServiceID(id)) {
		case lifecycle.StateActive:
			k.push(PriorityKernelInternal, newStopServiceEvent(id, nil, nil))
		case lifecycle.StateInstalled:
			k.push(PriorityKernelInternal, newRemoveServiceEvent(id, nil))
		}
	}
}

func toRegistryInterfaces(ifaces []InterfaceID) []registry.InterfaceID {
	out := make([]registry.InterfaceID, len(ifaces))
	for i, v := range ifaces {
		out[i] = registry.InterfaceID(v)
	}
	return out
}

func toLifecycleInterfaces(ifaces []registry.InterfaceID) []lifecycle.InterfaceID {
	out := make([]lifecycle.InterfaceID, len(ifaces))
	for i, v := range ifaces {
		out[i] = lifecycle.InterfaceID(v)
	}
	return out
}

func ifaceLabel(iface lifecycle.InterfaceID) string {
	return uint64ToString(uint64(iface))
}
