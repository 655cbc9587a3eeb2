package lifecycle

// ServiceID and InterfaceID mirror the root package's types;
// see internal/handler's doc comment for why these are redeclared.
type (
	ServiceID   uint64
	InterfaceID uint64
)

// State is the seven-value service state machine.
type State uint8

const (
	StateInstalled State = iota
	StateStarting
	StateInjecting
	StateActive
	StateUninjecting
	StateStopping
	StateUninstalled
)

func (s State) String() string {
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

// DependencySpec declares one dependency a service was created with.
type DependencySpec struct {
	Interface InterfaceID
	Required  bool
	Filter    Filter // nil means "accept any candidate exposing Interface"
}

// depState is the per-interface bookkeeping for one declared dependency:
// whether it is required and how many live candidates
// currently satisfy it.
type depState struct {
	required  bool
	satisfied int
	filter    Filter
}

// node is one service's lifecycle record.
type node struct {
	id       ServiceID
	priority uint64
	state    State
	deps     map[InterfaceID]*depState
	// injected holds the ids of services this node has accepted as
	// candidates for one of its own dependencies -- this service's
	// own dependency set.
	injected map[ServiceID]struct{}
	// dependees holds the ids of services that have accepted this node
	// as one of their candidates -- the reverse edge, consulted before
	// this node is allowed to finish stopping.
	dependees map[ServiceID]struct{}
}

// Manager owns the dependency graph and state machine for every service
// registered with one kernel.
type Manager struct {
	nodes map[ServiceID]*node
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{nodes: make(map[ServiceID]*node)}
}

// Register creates a node for id in StateInstalled with the given
// dependency declarations. Dependencies with no Required entries start
// with satisfied=0.
func (m *Manager) Register(id ServiceID, priority uint64, specs []DependencySpec) {
	n := &node{
		id:        id,
		priority:  priority,
		state:     StateInstalled,
		deps:      make(map[InterfaceID]*depState, len(specs)),
		injected:  make(map[ServiceID]struct{}),
		dependees: make(map[ServiceID]struct{}),
	}
	for _, s := range specs {
		n.deps[s.Interface] = &depState{required: s.Required, filter: s.Filter}
	}
	m.nodes[id] = n
}

// Unregister drops id's node entirely. The caller must already have
// confirmed id is StateInstalled and its dependees set is empty.
func (m *Manager) Unregister(id ServiceID) {
	delete(m.nodes, id)
}

// State returns id's current state, or StateUninstalled if id is
// unknown (already removed or never registered).
func (m *Manager) State(id ServiceID) State {
	if n, ok := m.nodes[id]; ok {
		return n.state
	}
	return StateUninstalled
}

// SetState forcibly transitions id's node. Exported for the scheduler
// loop to drive internal_start/internal_stop's intermediate steps.
func (m *Manager) SetState(id ServiceID, s State) {
	if n, ok := m.nodes[id]; ok {
		n.state = s
	}
}

// RequiredInterfaces returns every dependency interface id declared,
// required or optional alike; it does not filter on Required.
func (m *Manager) RequiredInterfaces(id ServiceID) []InterfaceID {
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	out := make([]InterfaceID, 0, len(n.deps))
	for iface := range n.deps {
		out = append(out, iface)
	}
	return out
}

// AllInterfaces returns every declared dependency interface (required or
// optional) for id.
func (m *Manager) AllInterfaces(id ServiceID) []InterfaceID {
	return m.RequiredInterfaces(id)
}

// Candidate describes a service offered as a dependency match. Kept
// minimal and package-local (rather than importing registry.Entry) so
// lifecycle stays free of a dependency on the registry package.
type Candidate struct {
	ID         ServiceID
	Interfaces []InterfaceID
	Properties map[string]interface{}
}

// InterestedInDependency mirrors DependencyLifecycleManager::
// interestedInDependency: id is interested in candidate (for the
// online=true direction) if candidate exposes at least one interface id
// declared a dependency on, id has not already recorded candidate as
// injected (for online) or has (for offline), and candidate passes any
// configured Filter for that interface. It returns the subset of
// candidate's interfaces id actually declared dependencies on.
func (m *Manager) InterestedInDependency(id ServiceID, candidate Candidate, online bool) []InterfaceID {
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	_, alreadyInjected := n.injected[candidate.ID]
	if online && alreadyInjected {
		return nil
	}
	if !online && !alreadyInjected {
		return nil
	}

	var matched []InterfaceID
	for _, iface := range candidate.Interfaces {
		dep, ok := n.deps[iface]
		if !ok {
			continue
		}
		if dep.filter != nil && !dep.filter.Match(candidate) {
			continue
		}
		matched = append(matched, iface)
	}
	return matched
}

// DependencyOnlineResult reports the bookkeeping effect of one
// DependencyOnline call.
type DependencyOnlineResult struct {
	// ReadyToStart is true the first time this dependency arrival makes
	// every required interface's satisfied count >= 1 while the node is
	// still StateInstalled -- the signal to drive internal_start.
	ReadyToStart bool
}

// DependencyOnline records that candidate now satisfies the matched
// interfaces of id's dependency set: increments
// each matched interface's satisfied count and records the edge in both
// directions. The caller is responsible for also recording the reverse
// edge on candidate's own node via RecordDependee.
func (m *Manager) DependencyOnline(id ServiceID, candidateID ServiceID, matched []InterfaceID) DependencyOnlineResult {
	n, ok := m.nodes[id]
	if !ok || len(matched) == 0 {
		return DependencyOnlineResult{}
	}

	wasUnsatisfied := false
	for _, iface := range matched {
		if dep := n.deps[iface]; dep != nil {
			if dep.required && dep.satisfied == 0 {
				wasUnsatisfied = true
			}
			dep.satisfied++
		}
	}
	n.injected[candidateID] = struct{}{}

	ready := wasUnsatisfied && n.state == StateInstalled && m.allRequiredSatisfied(n)
	return DependencyOnlineResult{ReadyToStart: ready}
}

// RecordDependee adds dependeeID to id's dependees set -- id is now
// depended upon by dependeeID. Called on the candidate's own node right
// after the dependent's DependencyOnline call records the forward edge.
func (m *Manager) RecordDependee(id ServiceID, dependeeID ServiceID) {
	if n, ok := m.nodes[id]; ok {
		n.dependees[dependeeID] = struct{}{}
	}
}

// DropDependee removes dependeeID from id's dependees set.
func (m *Manager) DropDependee(id ServiceID, dependeeID ServiceID) {
	if n, ok := m.nodes[id]; ok {
		delete(n.dependees, dependeeID)
	}
}

// DependencyOfflineResult reports the bookkeeping effect of one
// DependencyOffline call.
type DependencyOfflineResult struct {
	// RequiredDropped lists the interfaces whose satisfied count reached
	// zero as a result of this call, while Required is true for them.
	// A non-empty list is the trigger for the caller to begin the
	// UNINJECTING -> STOPPING cascade.
	RequiredDropped []InterfaceID
}

// DependencyOffline records that candidateID is no longer satisfying the
// matched interfaces of id's dependency set.
func (m *Manager) DependencyOffline(id ServiceID, candidateID ServiceID, matched []InterfaceID) DependencyOfflineResult {
	n, ok := m.nodes[id]
	if !ok || len(matched) == 0 {
		return DependencyOfflineResult{}
	}

	var dropped []InterfaceID
	for _, iface := range matched {
		dep := n.deps[iface]
		if dep == nil {
			continue
		}
		if dep.satisfied > 0 {
			dep.satisfied--
		}
		if dep.required && dep.satisfied == 0 {
			dropped = append(dropped, iface)
		}
	}
	delete(n.injected, candidateID)

	return DependencyOfflineResult{RequiredDropped: dropped}
}

// AllRequiredSatisfied reports whether every Required dependency of id
// currently has satisfied >= 1.
func (m *Manager) AllRequiredSatisfied(id ServiceID) bool {
	n, ok := m.nodes[id]
	if !ok {
		return false
	}
	return m.allRequiredSatisfied(n)
}

func (m *Manager) allRequiredSatisfied(n *node) bool {
	for _, dep := range n.deps {
		if dep.required && dep.satisfied == 0 {
			return false
		}
	}
	return true
}

// Dependees returns the ids of services currently depending on id.
func (m *Manager) Dependees(id ServiceID) []ServiceID {
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	out := make([]ServiceID, 0, len(n.dependees))
	for dep := range n.dependees {
		out = append(out, dep)
	}
	return out
}

// InjectedDependencies returns the ids of services currently injected
// into id.
func (m *Manager) InjectedDependencies(id ServiceID) []ServiceID {
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	out := make([]ServiceID, 0, len(n.injected))
	for dep := range n.injected {
		out = append(out, dep)
	}
	return out
}

// StartOrder returns every registered service id in ascending ServiceID
// order (not the order Register was called in), used to compute
// shutdown's descending start-order requirement. ServiceID is itself assigned monotonically at creation
// time, so ascending id order is ascending start order.
func (m *Manager) StartOrder() []ServiceID {
	out := make([]ServiceID, 0, len(m.nodes))
	for id := range m.nodes {
		out = append(out, id)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
