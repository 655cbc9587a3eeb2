package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterceptors_WildcardRunsBeforeSpecific(t *testing.T) {
	in := NewInterceptors()
	var order []string
	in.Add(100, WildcardEventType, 1, func(evt interface{}) bool {
		order = append(order, "wildcard")
		return false
	}, nil)
	in.Add(101, 5, 2, func(evt interface{}) bool {
		order = append(order, "specific")
		return false
	}, nil)

	veto := in.RunPre(5, "evt")
	assert.False(t, veto)
	assert.Equal(t, []string{"wildcard", "specific"}, order)
}

func TestInterceptors_PreVetoShortCircuits(t *testing.T) {
	in := NewInterceptors()
	called := false
	in.Add(100, 5, 1, func(evt interface{}) bool { return true }, nil)
	in.Add(101, 5, 2, func(evt interface{}) bool {
		called = true
		return false
	}, nil)

	veto := in.RunPre(5, "evt")
	assert.True(t, veto)
	assert.False(t, called, "second interceptor must not run once the first vetoes")
}

func TestInterceptors_PostObservesDispatched(t *testing.T) {
	in := NewInterceptors()
	var gotDispatched bool
	in.Add(100, 5, 1, nil, func(evt interface{}, dispatched bool) {
		gotDispatched = dispatched
	})
	in.RunPost(5, "evt", true)
	assert.True(t, gotDispatched)
}
