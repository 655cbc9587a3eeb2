package ichor

import "context"

// kernelCtxKey is the context key WithKernel/Current use. context.Context
// stands in for thread-local storage here, since goroutines have none,
// and it composes with cancellation the way the rest of this package's
// blocking calls already expect.
type kernelCtxKey struct{}

// WithKernel returns a context carrying k as "the current kernel", so
// code invoked indirectly (an HTTP handler, a timer callback) can recover
// it with Current instead of threading a *Kernel parameter through every
// call site.
func WithKernel(ctx context.Context, k *Kernel) context.Context {
	return context.WithValue(ctx, kernelCtxKey{}, k)
}

// Current returns the kernel stored in ctx by WithKernel, or nil if ctx
// carries none. Serve calls WithKernel on the context it runs the
// scheduler loop under; that context is not handed to listeners or
// other callbacks.
func Current(ctx context.Context) *Kernel {
	k, _ := ctx.Value(kernelCtxKey{}).(*Kernel)
	return k
}
