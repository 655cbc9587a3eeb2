package kmetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "test-kernel")

	m.QueueDepth.Set(3)
	m.EventsProcessedTotal.Inc()
	m.ServiceState.WithLabelValues("active").Set(2)
	m.DependencySatisfied.WithLabelValues("Logger").Set(1)
	m.CoroutineFrames.Set(5)
	m.ObserveDispatch(time.Now().Add(-time.Millisecond))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["ichor_queue_depth"])
	assert.True(t, names["ichor_scheduler_events_processed_total"])
	assert.True(t, names["ichor_scheduler_dispatch_latency_seconds"])
	assert.True(t, names["ichor_service_state"])
	assert.True(t, names["ichor_dependency_satisfied_count"])
	assert.True(t, names["ichor_coroutine_frames"])
}

func TestNew_ConstLabelCarriesKernelName(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "kernel-a")
	m.QueueDepth.Set(1)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() != "ichor_queue_depth" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, lbl := range metric.GetLabel() {
				if lbl.GetName() == "kernel" && lbl.GetValue() == "kernel-a" {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected kernel=kernel-a const label on ichor_queue_depth")
}
