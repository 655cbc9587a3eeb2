package handler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletions_FireSuccessAndError(t *testing.T) {
	c := NewCompletions()
	var gotErr error
	var called int
	c.Add(100, 10, 1, func(evt interface{}, onErr error) {
		called++
		gotErr = onErr
	})

	c.Fire(10, 1, "evt", nil)
	assert.Equal(t, 1, called)
	assert.NoError(t, gotErr)

	boom := errors.New("boom")
	c.Fire(10, 1, "evt", boom)
	assert.Equal(t, 2, called)
	assert.Equal(t, boom, gotErr)
}

func TestCompletions_KeyedByServiceAndEventType(t *testing.T) {
	c := NewCompletions()
	var calledFor []EventTypeID
	c.Add(100, 10, 1, func(evt interface{}, onErr error) { calledFor = append(calledFor, 1) })
	c.Add(101, 10, 2, func(evt interface{}, onErr error) { calledFor = append(calledFor, 2) })

	c.Fire(10, 1, "evt", nil)
	assert.Equal(t, []EventTypeID{1}, calledFor)
}

func TestCompletions_RemoveByService(t *testing.T) {
	c := NewCompletions()
	called := false
	c.Add(100, 10, 1, func(evt interface{}, onErr error) { called = true })
	c.RemoveByService(10)
	c.Fire(10, 1, "evt", nil)
	assert.False(t, called)
}
