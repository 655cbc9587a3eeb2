package ichor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernel_DebugSnapshotReportsRegisteredServices(t *testing.T) {
	k := NewKernel("test", DefaultConfig())
	wait := runKernel(t, k)
	defer wait()
	defer k.Quit()

	props := NewProperties()
	props.Set("region", "eu")
	h, err := k.CreateService(newConstructingService(&noopService{name: "widget"}),
		WithInterfaces(NewInterfaceID("widget")), WithProperties(props))
	require.NoError(t, err)

	// give the scheduler loop a moment to process InsertServiceEvent.
	require.Eventually(t, func() bool {
		raw, err := k.DebugSnapshot()
		if err != nil {
			return false
		}
		var snaps []ServiceSnapshot
		require.NoError(t, json.Unmarshal(raw, &snaps))
		for _, s := range snaps {
			if s.ID == h.ID {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	raw, err := k.DebugSnapshot()
	require.NoError(t, err)
	var snaps []ServiceSnapshot
	require.NoError(t, json.Unmarshal(raw, &snaps))
	var found *ServiceSnapshot
	for i := range snaps {
		if snaps[i].ID == h.ID {
			found = &snaps[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "widget", found.Name)
	assert.Contains(t, found.Interfaces, NewInterfaceID("widget"))
}
