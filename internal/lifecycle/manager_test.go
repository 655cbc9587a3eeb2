package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_DependencyOnlineDrivesReadyToStart(t *testing.T) {
	m := New()
	m.Register(1, 0, []DependencySpec{{Interface: 100, Required: true}})

	candidate := Candidate{ID: 2, Interfaces: []InterfaceID{100}}
	matched := m.InterestedInDependency(1, candidate, true)
	require.Equal(t, []InterfaceID{100}, matched)

	res := m.DependencyOnline(1, 2, matched)
	assert.True(t, res.ReadyToStart)
	assert.True(t, m.AllRequiredSatisfied(1))
	assert.Contains(t, m.InjectedDependencies(1), ServiceID(2))
}

func TestManager_SecondCandidateDoesNotReTriggerReadyToStart(t *testing.T) {
	m := New()
	m.Register(1, 0, []DependencySpec{{Interface: 100, Required: true}})

	first := Candidate{ID: 2, Interfaces: []InterfaceID{100}}
	m.DependencyOnline(1, 2, m.InterestedInDependency(1, first, true))
	m.SetState(1, StateActive) // pretend internal_start already ran

	second := Candidate{ID: 3, Interfaces: []InterfaceID{100}}
	matched := m.InterestedInDependency(1, second, true)
	res := m.DependencyOnline(1, 3, matched)
	assert.False(t, res.ReadyToStart, "state is no longer INSTALLED so no re-start should be signalled")
}

func TestManager_DependencyOfflineDropsToZeroAndFlagsRequired(t *testing.T) {
	m := New()
	m.Register(1, 0, []DependencySpec{{Interface: 100, Required: true}})
	candidate := Candidate{ID: 2, Interfaces: []InterfaceID{100}}
	matched := m.InterestedInDependency(1, candidate, true)
	m.DependencyOnline(1, 2, matched)
	m.SetState(1, StateActive)

	offMatched := m.InterestedInDependency(1, candidate, false)
	require.Equal(t, []InterfaceID{100}, offMatched)
	res := m.DependencyOffline(1, 2, offMatched)
	assert.Equal(t, []InterfaceID{100}, res.RequiredDropped)
	assert.NotContains(t, m.InjectedDependencies(1), ServiceID(2))
}

func TestManager_FilterRejectsNonMatchingCandidate(t *testing.T) {
	m := New()
	m.Register(1, 0, []DependencySpec{{
		Interface: 100,
		Required:  true,
		Filter:    PropertyFilter{Key: "region", Value: "us"},
	}})

	wrongRegion := Candidate{ID: 2, Interfaces: []InterfaceID{100}, Properties: map[string]interface{}{"region": "eu"}}
	assert.Empty(t, m.InterestedInDependency(1, wrongRegion, true))

	rightRegion := Candidate{ID: 3, Interfaces: []InterfaceID{100}, Properties: map[string]interface{}{"region": "us"}}
	assert.Equal(t, []InterfaceID{100}, m.InterestedInDependency(1, rightRegion, true))
}

func TestManager_DependeesTrackedSeparately(t *testing.T) {
	m := New()
	m.Register(1, 0, nil)
	m.RecordDependee(1, 5)
	m.RecordDependee(1, 6)
	assert.ElementsMatch(t, []ServiceID{5, 6}, m.Dependees(1))

	m.DropDependee(1, 5)
	assert.ElementsMatch(t, []ServiceID{6}, m.Dependees(1))
}

func TestManager_StartOrderAscendingByID(t *testing.T) {
	m := New()
	m.Register(3, 0, nil)
	m.Register(1, 0, nil)
	m.Register(2, 0, nil)
	assert.Equal(t, []ServiceID{1, 2, 3}, m.StartOrder())
}
