package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.ObserveRoute("trip_planner_agent", "ok", 20*time.Millisecond)
	rec.ObserveRoute("trip_planner_agent", "ok", 30*time.Millisecond)
	rec.ObserveRoute("trip_planner_agent", "timeout", time.Second)
	rec.SetAgents(3)

	require.Equal(t, 2.0, testutil.ToFloat64(rec.routeTotal.WithLabelValues("trip_planner_agent", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(rec.routeTotal.WithLabelValues("trip_planner_agent", "timeout")))
	require.Equal(t, 3.0, testutil.ToFloat64(rec.agents))
	require.Equal(t, 1, testutil.CollectAndCount(rec.routeDuration))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	require.ElementsMatch(t, []string{"agent_route_total", "agent_route_duration_seconds", "agent_registered"}, names)
}

func TestNopRecorder(t *testing.T) {
	t.Parallel()

	var rec Recorder = Nop{}
	rec.ObserveRoute("a", "ok", time.Millisecond)
	rec.SetAgents(1)
}
