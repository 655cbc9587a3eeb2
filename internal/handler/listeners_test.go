package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListeners_DispatchOrderAndFilter(t *testing.T) {
	l := NewListeners()
	var order []string

	l.Add(100, 1, 10, nil, func(evt interface{}) (Continuation, error) {
		order = append(order, "a")
		return Done, nil
	})
	target := ServiceID(20)
	l.Add(101, 1, 11, &target, func(evt interface{}) (Continuation, error) {
		order = append(order, "b")
		return Done, nil
	})
	l.Add(102, 1, 12, nil, func(evt interface{}) (Continuation, error) {
		order = append(order, "c")
		return Done, nil
	})

	_, err := l.Dispatch(1, 20, "payload")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)

	order = nil
	_, err = l.Dispatch(1, 99, "payload")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, order)
}

func TestListeners_RemoveAndRemoveByService(t *testing.T) {
	l := NewListeners()
	id := l.Add(100, 1, 10, nil, func(evt interface{}) (Continuation, error) { return Done, nil })
	l.Add(101, 1, 11, nil, func(evt interface{}) (Continuation, error) { return Done, nil })

	l.Remove(id)
	assert.Len(t, l.byType[1], 1)

	l.RemoveByService(11)
	assert.Len(t, l.byType[1], 0)
}

func TestListeners_PendingContinuation(t *testing.T) {
	l := NewListeners()
	l.Add(100, 1, 10, nil, func(evt interface{}) (Continuation, error) {
		return Continuation{Done: false, PromiseID: 42}, nil
	})

	pending, err := l.Dispatch(1, 0, "payload")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, uint64(42), pending[0].PromiseID)
	assert.Equal(t, ServiceID(10), pending[0].Service)
}
