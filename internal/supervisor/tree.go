package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration in suture's own
// failure-threshold/decay/backoff terms. kconfig.Config's
// SupervisorRestart* fields are not mapped onto it.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay, in seconds.
	FailureDecay float64

	// FailureBackoff is the duration to wait once the threshold is
	// exceeded.
	FailureBackoff time.Duration

	// ShutdownTimeout bounds how long a kernel gets to drain on Remove
	// before suture reports it as unstopped.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's own built-in defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree supervises a flat set of kernels. Unlike an application built from
// independently-failable layers, linked kernels share fate by design --
// a kernel crash restarts just that kernel, so its dependents simply see
// a fresh dependency-offline/dependency-online cycle the next time the
// supervisor Adds it back, rather than the whole tree observing a
// tiered failure domain.
type Tree struct {
	root   *suture.Supervisor
	logger zerolog.Logger
	config TreeConfig
}

// New creates a supervisor tree named name, logging supervisor events
// through logger via sutureslog.
func New(name string, logger zerolog.Logger, config TreeConfig) *Tree {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	handler := &sutureslog.Handler{Logger: zerologToSlog(logger)}
	eventHook := handler.MustHook()

	root := suture.New(name, suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	})

	return &Tree{root: root, logger: logger, config: config}
}

// Add adds a kernel (or any suture.Service) to the tree.
func (t *Tree) Add(svc suture.Service) suture.ServiceToken {
	return t.root.Add(svc)
}

// Remove stops and removes a kernel from the tree.
func (t *Tree) Remove(token suture.ServiceToken) error {
	return t.root.Remove(token)
}

// RemoveAndWait stops a kernel and blocks until it has fully drained or
// timeout elapses.
func (t *Tree) RemoveAndWait(token suture.ServiceToken, timeout time.Duration) error {
	return t.root.RemoveAndWait(token, timeout)
}

// Serve starts the tree and blocks until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in a background goroutine, returning a
// channel that receives the terminal error once the tree stops.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists kernels that did not stop within
// ShutdownTimeout of the last Remove/Serve-cancellation.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// Root exposes the underlying suture.Supervisor for callers that need
// direct access (e.g. to Add a second tier of non-kernel services).
func (t *Tree) Root() *suture.Supervisor {
	return t.root
}
