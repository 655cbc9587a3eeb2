package ichor

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Group runs a fixed set of kernels together -- typically ones linked by
// one or more Bridges -- and waits for every one of them to drain,
// collecting the first error any of them returns.
type Group struct {
	kernels []*Kernel
}

// NewGroup returns a Group over kernels.
func NewGroup(kernels ...*Kernel) *Group {
	return &Group{kernels: kernels}
}

// Serve starts every kernel's scheduler loop concurrently. If ctx is
// cancelled, or any kernel's loop returns an error, the remaining
// kernels' contexts are cancelled too and Serve blocks until they have
// all drained before returning the first error.
func (g *Group) Serve(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, k := range g.kernels {
		k := k
		eg.Go(func() error { return k.Serve(ctx) })
	}
	return eg.Wait()
}

// Quit begins shutdown on every kernel in the group. It returns the
// first error any individual Quit call returns, but still calls Quit on
// every kernel regardless.
func (g *Group) Quit() error {
	var first error
	for _, k := range g.kernels {
		if err := k.Quit(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
