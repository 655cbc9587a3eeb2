package breaker

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrOpen is returned by Tracker.Offer when the breaker is open and the
// call was rejected without invoking the wrapped callback.
var ErrOpen = gobreaker.ErrOpenState

// Config holds circuit breaker settings for one dependency-tracker
// callback.
type Config struct {
	Name             string
	MaxRequests      uint32        // requests allowed through in half-open state
	Interval         time.Duration // reset interval for the closed-state failure counts
	Timeout          time.Duration // time to stay open before probing half-open
	FailureThreshold uint32        // consecutive failures before tripping open
}

// DefaultConfig returns production defaults: trip after 5 consecutive
// failures, stay open 10s, allow 3 probes in half-open.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// OfferFunc produces a dependency candidate (or nil, ok=false if none is
// currently available) for a required interface. It is the shape of a
// tracker's add_dependency/candidate-offer callback.
type OfferFunc func() (candidate any, ok bool, err error)

// Tracker wraps one dependency-tracker callback with a circuit breaker.
type Tracker struct {
	cb *gobreaker.CircuitBreaker[offerResult]
}

// NewTracker builds a Tracker from cfg.
func NewTracker(cfg Config) *Tracker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	}
	return &Tracker{cb: gobreaker.NewCircuitBreaker[offerResult](settings)}
}

// offerResult carries both the candidate and the ok flag through
// gobreaker's single (value, error) Execute signature, so a legitimate
// "nothing to offer yet" (ok=false, err=nil) can return success and
// avoid incrementing the breaker's consecutive-failure count -- only a
// non-nil err from fn should count as a tracker failure.
type offerResult struct {
	candidate any
	ok        bool
}

// Offer invokes fn through the breaker. A tripped breaker returns
// ErrOpen without calling fn.
func (t *Tracker) Offer(fn OfferFunc) (candidate any, ok bool, err error) {
	result, execErr := t.cb.Execute(func() (offerResult, error) {
		c, ok, err := fn()
		if err != nil {
			return offerResult{}, err
		}
		return offerResult{candidate: c, ok: ok}, nil
	})
	if execErr != nil {
		return nil, false, execErr
	}
	return result.candidate, result.ok, nil
}

// State reports the breaker's current state ("closed", "half-open",
// "open").
func (t *Tracker) State() string {
	return t.cb.State().String()
}
