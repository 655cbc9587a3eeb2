package ichor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingEvent struct {
	BaseEvent
	n int
}

var pingEventType = NewEventTypeID("ichor_test.pingEvent")

func newPingEvent(n int) *pingEvent {
	e := &pingEvent{BaseEvent: NewBaseEvent(pingEventType), n: n}
	return e
}

type noopService struct{ name string }

func (s *noopService) ServiceName() string { return s.name }

func runKernel(t *testing.T, k *Kernel) (wait func()) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- k.Serve(context.Background()) }()
	return func() {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("kernel did not shut down in time")
		}
	}
}

func TestKernel_ServiceIDsAreMonotonic(t *testing.T) {
	k := NewKernel("test", DefaultConfig())
	wait := runKernel(t, k)
	defer wait()
	defer k.Quit()

	var last ServiceID
	for i := 0; i < 5; i++ {
		h, err := k.CreateService(newConstructingService(&noopService{name: "s"}))
		require.NoError(t, err)
		assert.Greater(t, h.ID, last)
		last = h.ID
	}
}

func TestKernel_QuitWithNoServicesDrainsImmediately(t *testing.T) {
	k := NewKernel("test", DefaultConfig())
	wait := runKernel(t, k)
	require.NoError(t, k.Quit())
	wait()
}

func TestKernel_PushDeliversInPriorityThenFIFOOrder(t *testing.T) {
	k := NewKernel("test", DefaultConfig())
	wait := runKernel(t, k)
	defer wait()

	var mu sync.Mutex
	var order []int
	gotAll := make(chan struct{})

	k.RegisterEventHandler(pingEventType, 0, nil, func(evt Event) (Continuation, error) {
		p := evt.(*pingEvent)
		mu.Lock()
		order = append(order, p.n)
		done := len(order) == 3
		mu.Unlock()
		if done {
			close(gotAll)
		}
		return Done, nil
	})

	// Lower numeric priority dispatches first; same-priority events keep
	// enqueue (FIFO) order.
	_, err := k.Push(PriorityUserLow, newPingEvent(3))
	require.NoError(t, err)
	_, err = k.Push(PriorityUserDefault, newPingEvent(1))
	require.NoError(t, err)
	_, err = k.Push(PriorityUserDefault, newPingEvent(2))
	require.NoError(t, err)

	select {
	case <-gotAll:
	case <-time.After(2 * time.Second):
		t.Fatal("events not all delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, order)

	require.NoError(t, k.Quit())
}

// constructingService adapts a plain Service value with no declared
// dependencies into a Constructor, for tests that only care about
// create/remove plumbing rather than dependency injection.
type constructingService struct {
	Service
}

func newConstructingService(s Service) *constructingService {
	return &constructingService{Service: s}
}

func (c *constructingService) Dependencies() []DependencySpec { return nil }
func (c *constructingService) New(deps []any) (Service, error) { return c.Service, nil }
