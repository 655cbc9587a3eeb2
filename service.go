package ichor

import (
	"sync"

	"github.com/google/uuid"
)

// ServiceState is a node in the service lifecycle state machine.
// Transitions are only ever driven by the lifecycle manager; user code
// observes states through Service.State but never writes them.
type ServiceState int

const (
	StateInstalled ServiceState = iota
	StateStarting
	StateInjecting
	StateActive
	StateUninjecting
	StateStopping
	StateUninstalled
)

func (s ServiceState) String() string {
	switch s {
	case StateInstalled:
		return "INSTALLED"
	case StateStarting:
		return "STARTING"
	case StateInjecting:
		return "INJECTING"
	case StateActive:
		return "ACTIVE"
	case StateUninjecting:
		return "UNINJECTING"
	case StateStopping:
		return "STOPPING"
	case StateUninstalled:
		return "UNINSTALLED"
	default:
		return "UNKNOWN"
	}
}

// Properties is an insertion-order-preserving string-to-any map attached
// to a service. A Filter (see filter.go in internal/lifecycle, re-exported
// below) may be stored under PropertyFilter to restrict which candidates
// the dependency manager will consider for this service.
type Properties struct {
	mu     sync.RWMutex
	order  []string
	values map[string]any
}

// NewProperties returns an empty, ready-to-use Properties map.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]any)}
}

// Set stores key=value, appending key to the insertion order the first
// time it is seen.
func (p *Properties) Set(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.values[key]; !exists {
		p.order = append(p.order, key)
	}
	p.values[key] = value
}

// Get returns the value stored under key, if any.
func (p *Properties) Get(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the property keys in insertion order.
func (p *Properties) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Snapshot returns a plain map copy, suitable for MarshalJSON via
// goccy/go-json in debug dumps. Order is not preserved by a Go map; use
// Keys for ordered iteration.
func (p *Properties) Snapshot() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// MarshalJSON renders properties as an ordered array of {key,value}
// objects so the insertion order invariant survives serialization.
func (p *Properties) MarshalJSON() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	type kv struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}
	out := make([]kv, 0, len(p.order))
	for _, k := range p.order {
		out = append(out, kv{Key: k, Value: p.values[k]})
	}
	return jsonMarshal(out)
}

// PropertyFilter is the well-known Properties key under which a Filter is
// stored, if the service declares one.
const PropertyFilter = "ichor.filter"

// PropertyPriority is a reserved Properties key name. Nothing in this
// package reads it; a service's priority is set with WithPriority.
const PropertyPriority = "ichor.priority"

// Service is the minimal contract every kernel-managed object satisfies.
// Most services additionally implement Constructor or Advanced; Service
// alone is enough to be registered, looked up and have its lifecycle
// observed.
type Service interface {
	// ServiceName returns a human-readable name used in logs and debug
	// dumps. It need not be unique.
	ServiceName() string
}

// DependencySpec declares one dependency of a constructor-injected or
// advanced service.
type DependencySpec struct {
	Interface InterfaceID
	Required  bool
}

// Constructor is implemented by services whose dependencies are supplied
// as constructor arguments rather than via AddDependency callbacks. The
// dependency list is never recovered by inspecting
// a constructor's parameter types -- it is declared explicitly here.
type Constructor interface {
	Service
	// Dependencies lists the interfaces this service requires or
	// optionally accepts before New is invoked.
	Dependencies() []DependencySpec
	// New is invoked once every required dependency has satisfaction
	// count >= 1. deps holds one entry per DependencySpec, in the same
	// order, and is nil for an unsatisfied optional dependency.
	New(deps []any) (Service, error)
}

// Advanced is implemented by services constructed up front whose
// dependencies are added and removed after construction via callbacks.
type Advanced interface {
	Service
	Dependencies() []DependencySpec
	// AddDependency is invoked once per satisfying candidate, after the
	// candidate reaches StateActive and is matched by any declared
	// Filter. A panic here is recovered as CallbackFailure and forces the
	// service back to StateInstalled.
	AddDependency(iface InterfaceID, candidate ServiceID, impl any) error
	// RemoveDependency is invoked when a previously injected candidate
	// goes offline. A panic here is unrecoverable: the process
	// terminates, because the invariant that a service survives its
	// dependencies no longer holds.
	RemoveDependency(iface InterfaceID, candidate ServiceID)
}

// Stopper may optionally be implemented by a service to run cleanup logic
// during the STOPPING transition, after all RemoveDependency callbacks
// have completed and before the service returns to StateInstalled.
type Stopper interface {
	Stop() error
}

// ServiceHandle is returned by Kernel.CreateService. It identifies the
// service for lookups, filters and RemoveServiceEvent.
type ServiceHandle struct {
	ID       ServiceID
	UUID     uuid.UUID
	Priority Priority
}

func newServiceUUID() uuid.UUID {
	return uuid.New()
}
