// Package supervisor hosts kernels under a suture.Supervisor tree, so a
// kernel whose scheduler loop panics or returns a non-quit error is
// restarted with a failure-threshold/backoff policy instead of taking
// the whole process down with it. This is the process-level structure
// that owns the "kernels may be linked by a communication channel"
// relationship: each linked kernel is a supervised suture.Service under
// one root.
package supervisor
