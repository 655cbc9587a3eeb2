// Package registry implements the service registry:
// services keyed by id, with a secondary interface-hash index for
// GetStarted-style lookups. Like internal/handler, it is thread-local to
// the owning kernel goroutine and does no locking of its own -- cross-
// thread access must go through a pushed event instead.
package registry
