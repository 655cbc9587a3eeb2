package ichor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridge_RelaysUserEventsBetweenKernels(t *testing.T) {
	from := NewKernel("from", DefaultConfig())
	to := NewKernel("to", DefaultConfig())
	waitFrom := runKernel(t, from)
	waitTo := runKernel(t, to)
	defer waitFrom()
	defer waitTo()
	defer from.Quit()
	defer to.Quit()

	received := make(chan *pingEvent, 1)
	to.RegisterEventHandler(pingEventType, 0, nil, func(evt Event) (Continuation, error) {
		received <- evt.(*pingEvent)
		return Done, nil
	})

	b := NewBridge(from, to, PriorityUserDefault, pingEventType)
	defer b.Close()

	_, err := from.Push(PriorityUserDefault, newPingEvent(42))
	require.NoError(t, err)

	select {
	case evt := <-received:
		assert.Equal(t, 42, evt.n)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not relayed to the target kernel")
	}
}

func TestBridge_Close_IsIdempotent(t *testing.T) {
	from := NewKernel("from", DefaultConfig())
	to := NewKernel("to", DefaultConfig())
	waitFrom := runKernel(t, from)
	waitTo := runKernel(t, to)
	defer waitFrom()
	defer waitTo()
	defer from.Quit()
	defer to.Quit()

	b := NewBridge(from, to, PriorityUserDefault, pingEventType)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestBridge_DedupesRepeatedEventTypes(t *testing.T) {
	from := NewKernel("from", DefaultConfig())
	to := NewKernel("to", DefaultConfig())
	waitFrom := runKernel(t, from)
	waitTo := runKernel(t, to)
	defer waitFrom()
	defer waitTo()
	defer from.Quit()
	defer to.Quit()

	b := NewBridge(from, to, PriorityUserDefault, pingEventType, pingEventType, pingEventType)
	assert.Len(t, b.handles, 1)
}
