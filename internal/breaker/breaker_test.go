package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracker(t *testing.T) {
	tr := NewTracker(DefaultConfig("test-tracker"))
	require.NotNil(t, tr)
	assert.Equal(t, "closed", tr.State())
}

func TestTracker_Offer_Success(t *testing.T) {
	tr := NewTracker(DefaultConfig("success-test"))

	candidate, ok, err := tr.Offer(func() (any, bool, error) {
		return "svc-impl", true, nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "svc-impl", candidate)
}

func TestTracker_Offer_NoCandidateDoesNotCountAsFailure(t *testing.T) {
	tr := NewTracker(Config{
		Name:             "no-candidate-test",
		MaxRequests:      1,
		Interval:         time.Second,
		Timeout:          time.Second,
		FailureThreshold: 1,
	})

	for i := 0; i < 5; i++ {
		_, ok, err := tr.Offer(func() (any, bool, error) {
			return nil, false, nil
		})
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, "closed", tr.State(), "repeated no-candidate responses should never trip the breaker")
}

func TestTracker_Offer_OpensAfterConsecutiveFailures(t *testing.T) {
	tr := NewTracker(Config{
		Name:             "open-test",
		MaxRequests:      1,
		Interval:         time.Second,
		Timeout:          time.Second,
		FailureThreshold: 2,
	})
	failErr := errors.New("tracker wedged")

	for i := 0; i < 2; i++ {
		_, _, err := tr.Offer(func() (any, bool, error) {
			return nil, false, failErr
		})
		assert.ErrorIs(t, err, failErr)
	}

	_, _, err := tr.Offer(func() (any, bool, error) {
		t.Fatal("callback must not run while the breaker is open")
		return nil, false, nil
	})
	assert.ErrorIs(t, err, ErrOpen)
}

func TestTracker_Offer_RecoversAfterTimeout(t *testing.T) {
	tr := NewTracker(Config{
		Name:             "recovery-test",
		MaxRequests:      1,
		Interval:         100 * time.Millisecond,
		Timeout:          100 * time.Millisecond,
		FailureThreshold: 1,
	})

	_, _, err := tr.Offer(func() (any, bool, error) {
		return nil, false, errors.New("fail")
	})
	require.Error(t, err)

	_, _, err = tr.Offer(func() (any, bool, error) {
		return "should not run", true, nil
	})
	assert.ErrorIs(t, err, ErrOpen)

	time.Sleep(150 * time.Millisecond)

	candidate, ok, err := tr.Offer(func() (any, bool, error) {
		return "recovered", true, nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "recovered", candidate)
	assert.Equal(t, "closed", tr.State())
}
