// Package waiter implements the event waiter table: awaited event ->
// {waiting service, event type, outstanding count, list of coroutine
// promise ids to resume}. Entries are keyed by the awaited event's own
// identity rather than a sequence number so a waiter can be registered
// before the event is pushed. It also backs the coalescing behaviour
// of a second await of an identical in-flight event, which attaches to
// the existing waiter instead of issuing a new push.
package waiter
