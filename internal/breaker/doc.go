// Package breaker wraps user-supplied dependency-tracker callbacks with
// a circuit breaker: a tracker that panics or errors repeatedly while
// being asked to offer a candidate for a required interface trips the
// breaker, and the kernel's tracker wrapper then logs a warning and
// skips delivering to that tracker this round rather than busy-looping
// code that is clearly wedged.
package breaker
