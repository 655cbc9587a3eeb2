package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_InsertGetRemove(t *testing.T) {
	r := New()
	r.Insert(1, "svc-a", 100, []InterfaceID{10})

	e, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, "svc-a", e.Name)
	assert.Equal(t, StateInstalled, e.State)

	r.Remove(1)
	_, ok = r.Get(1)
	assert.False(t, ok)
}

func TestRegistry_GetStartedOrdersByPriorityAndFiltersState(t *testing.T) {
	r := New()
	r.Insert(1, "low-precedence", 200, []InterfaceID{10})
	r.Insert(2, "high-precedence", 50, []InterfaceID{10})
	r.Insert(3, "not-active", 10, []InterfaceID{10})

	r.SetState(1, StateActive)
	r.SetState(2, StateActive)
	// 3 stays StateInstalled.

	active := r.GetStarted(10)
	require.Len(t, active, 2)
	assert.Equal(t, ServiceID(2), active[0].ID)
	assert.Equal(t, ServiceID(1), active[1].ID)
}

func TestRegistry_RemoveUnknownIsNoop(t *testing.T) {
	r := New()
	assert.NotPanics(t, func() { r.Remove(999) })
	assert.NotPanics(t, func() { r.SetState(999, StateActive) })
}

func TestRegistry_InterfaceIndexPrunedOnRemove(t *testing.T) {
	r := New()
	r.Insert(1, "svc", 0, []InterfaceID{10})
	r.SetState(1, StateActive)
	r.Remove(1)
	assert.Empty(t, r.GetStarted(10))
}
