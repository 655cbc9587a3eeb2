// Package handler implements the four handler tables: event listeners,
// completion/error handlers, interceptors, and
// dependency trackers. All four tables are thread-local to the owning
// kernel goroutine, so none of the types here do
// any locking of their own; callers outside the kernel goroutine must go
// through a pushed event instead of touching a table directly, for both
// Add and Remove.
//
// Every Add takes a caller-assigned RegistrationID rather than minting
// its own, since the caller may run on a different goroutine than the
// one that eventually applies the mutation and still needs the id back
// immediately to build a RAII-style handle. That handle's Close pushes
// the matching Remove*Event rather than calling Remove directly, so
// that a table mutation is never observed mid-dispatch by the very
// iteration that triggered it.
package handler
