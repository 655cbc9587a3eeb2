package ichor

import "github.com/volt-software/ichor-go/internal/lifecycle"

// ServiceSnapshot is one service's externally-visible state, as
// rendered by Kernel.DebugSnapshot.
type ServiceSnapshot struct {
	ID         ServiceID     `json:"id"`
	Name       string        `json:"name"`
	State      string        `json:"state"`
	Priority   Priority      `json:"priority"`
	Interfaces []InterfaceID `json:"interfaces"`
	Properties *Properties   `json:"properties,omitempty"`
}

// DebugSnapshot renders every currently registered service's id, name,
// state, priority, interfaces and properties as JSON, for inspection
// tooling and tests. It takes a point-in-time copy; nothing it returns
// is retained by the kernel.
func (k *Kernel) DebugSnapshot() ([]byte, error) {
	k.mu.Lock()
	entries := make([]*serviceEntry, 0, len(k.services))
	for _, e := range k.services {
		entries = append(entries, e)
	}
	k.mu.Unlock()

	out := make([]ServiceSnapshot, 0, len(entries))
	for _, e := range entries {
		out = append(out, ServiceSnapshot{
			ID:         e.id,
			Name:       e.name,
			State:      k.lifecycle.State(lifecycle.ServiceID(e.id)).String(),
			Priority:   e.priority,
			Interfaces: e.interfaces,
			Properties: e.properties,
		})
	}
	return jsonMarshal(out)
}
