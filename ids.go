package ichor

import "hash/fnv"

// ServiceID is a process-local, monotonically increasing identifier. It is
// never reused within the lifetime of a Kernel.
type ServiceID uint64

// InterfaceID is the stable identity of a capability an service advertises.
// It is a hash of a caller-supplied, human-readable, globally unique name
// (conventionally a fully qualified Go type name), computed once and
// compared as a plain uint64 thereafter -- never by string comparison on
// the hot path.
type InterfaceID uint64

// EventTypeID is the stable identity of an event's type tag, computed the
// same way as InterfaceID.
type EventTypeID uint64

// HashName computes the stable FNV-1a hash of name. InterfaceID and
// EventTypeID values are expected to be produced by this function (or a
// constant computed offline with the same algorithm) so that two
// processes, or two builds of the same process, agree on identity.
func HashName(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

// NewInterfaceID hashes name into an InterfaceID.
func NewInterfaceID(name string) InterfaceID {
	return InterfaceID(HashName(name))
}

// NewEventTypeID hashes name into an EventTypeID.
func NewEventTypeID(name string) EventTypeID {
	return EventTypeID(HashName(name))
}
