package waiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_RegisterCompleteReturnsPromise(t *testing.T) {
	tbl := New()
	evtKey := new(int)
	coalesced := tbl.Register(evtKey, 42, 10, 1, nil)
	require.False(t, coalesced)

	promises, ok := tbl.Complete(evtKey)
	require.True(t, ok)
	assert.Equal(t, []uint64{42}, promises)
	assert.Equal(t, 0, tbl.Len())

	_, ok = tbl.Complete(evtKey)
	assert.False(t, ok, "completing an already-settled event must be a no-op")
}

func TestTable_CoalescingAttachesToInFlightWaiter(t *testing.T) {
	tbl := New()
	evtKey := new(int)
	key := CoalesceKey{Service: 10, EventType: 1, Discriminator: 99}

	coalesced1 := tbl.Register(evtKey, 1, 10, 1, &key)
	require.False(t, coalesced1)
	coalesced2 := tbl.Register(evtKey, 2, 10, 1, &key)
	require.True(t, coalesced2, "second register with the same key must attach, not push again")

	assert.Equal(t, 2, tbl.Outstanding(evtKey))

	promises, ok := tbl.Complete(evtKey)
	require.True(t, ok)
	assert.ElementsMatch(t, []uint64{1, 2}, promises)
}

func TestTable_CompleteUnknownEventIsNoop(t *testing.T) {
	tbl := New()
	assert.NotPanics(t, func() {
		_, ok := tbl.Complete(new(int))
		assert.False(t, ok)
	})
}

func TestTable_DistinctEventsDoNotCoalesceWithoutAMatchingKey(t *testing.T) {
	tbl := New()
	key1 := new(int)
	key2 := new(int)

	tbl.Register(key1, 1, 10, 1, nil)
	tbl.Register(key2, 2, 10, 1, nil)
	assert.Equal(t, 2, tbl.Len())
}
