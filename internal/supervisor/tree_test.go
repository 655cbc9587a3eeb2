package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestNew_AppliesDefaultsForZeroConfig(t *testing.T) {
	tr := New("test", testLogger(), TreeConfig{})
	require.NotNil(t, tr.Root())
	assert.Equal(t, 5.0, tr.config.FailureThreshold)
	assert.Equal(t, 30.0, tr.config.FailureDecay)
	assert.Equal(t, 15*time.Second, tr.config.FailureBackoff)
	assert.Equal(t, 10*time.Second, tr.config.ShutdownTimeout)
}

func TestTree_StartsAndStopsGracefully(t *testing.T) {
	tr := New("test", testLogger(), TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   100 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	tr.Add(NewMockService("kernel-a"))
	tr.Add(NewMockService("kernel-b"))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- tr.Serve(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			assert.True(t, errors.Is(err, context.Canceled))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}
}

func TestTree_AddedKernelIsStarted(t *testing.T) {
	tr := New("test", testLogger(), TreeConfig{ShutdownTimeout: time.Second})

	svc := NewMockService("kernel-a")
	tr.Add(svc)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go tr.Serve(ctx)
	time.Sleep(100 * time.Millisecond)

	assert.GreaterOrEqual(t, svc.StartCount(), int32(1))
}

func TestTree_FailingKernelIsRestarted(t *testing.T) {
	tr := New("test", testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	failing := NewMockService("failing")
	failing.SetFailCount(2)
	stable := NewMockService("stable")

	tr.Add(failing)
	tr.Add(stable)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	go tr.Serve(ctx)
	time.Sleep(200 * time.Millisecond)

	assert.GreaterOrEqual(t, failing.StartCount(), int32(3))
	assert.GreaterOrEqual(t, stable.StartCount(), int32(1))
}

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()
	assert.Equal(t, 5.0, cfg.FailureThreshold)
	assert.Equal(t, 30.0, cfg.FailureDecay)
	assert.Equal(t, 15*time.Second, cfg.FailureBackoff)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}
