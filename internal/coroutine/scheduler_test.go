package coroutine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_SuspendResumeDeliversOnce(t *testing.T) {
	s := New()
	id, ch := s.Suspend(Scope{1, 2})

	s.Resume(id, Result{Value: "ok"})
	res, open := <-ch
	require.True(t, open)
	assert.Equal(t, "ok", res.Value)

	_, open = <-ch
	assert.False(t, open)
	assert.Equal(t, 0, s.FrameCount())
}

func TestScheduler_ResumeUnknownIsNoop(t *testing.T) {
	s := New()
	assert.NotPanics(t, func() { s.Resume(999, Result{}) })
}

func TestScheduler_SuspendStepInvokesContinuation(t *testing.T) {
	s := New()
	var got Result
	id := s.SuspendStep(Scope{1}, func(r Result) bool {
		got = r
		return true
	})
	s.Resume(id, Result{Value: 7})
	assert.Equal(t, 7, got.Value)
	assert.Equal(t, 0, s.FrameCount())
}

func TestScheduler_CancelDeliversErrOnlyToOwnedScope(t *testing.T) {
	s := New()
	_, chOwned := s.Suspend(Scope{1, 5})
	_, chOther := s.Suspend(Scope{1, 6})

	boom := errors.New("service quitting")
	s.Cancel(5, boom)

	res := <-chOwned
	assert.Equal(t, boom, res.Err)
	assert.Equal(t, 1, s.FrameCount())

	select {
	case <-chOther:
		t.Fatal("other scope's frame must not be cancelled")
	default:
	}
}

func TestScope_Owner(t *testing.T) {
	assert.Equal(t, ServiceID(0), Scope(nil).Owner())
	assert.Equal(t, ServiceID(3), Scope{1, 2, 3}.Owner())
}
