package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRunMetrics(t *testing.T) {
	RunStarted("c-metrics")
	assert.Equal(t, float64(1), testutil.ToFloat64(runsInFlight.WithLabelValues("c-metrics")))

	RunFinished("c-metrics", "provision", "succeeded", 3*time.Second)
	assert.Equal(t, float64(0), testutil.ToFloat64(runsInFlight.WithLabelValues("c-metrics")))
	assert.Equal(t, float64(1), testutil.ToFloat64(runsTotal.WithLabelValues("c-metrics", "provision", "succeeded")))
}

func TestFailure_UnknownKind(t *testing.T) {
	before := testutil.ToFloat64(failuresTotal.WithLabelValues("lock", "unknown"))
	Failure("lock", "")
	assert.Equal(t, before+1, testutil.ToFloat64(failuresTotal.WithLabelValues("lock", "unknown")))
}

func TestProbe(t *testing.T) {
	before := testutil.ToFloat64(probesTotal.WithLabelValues("control_plane", "failure"))
	Probe(true, false)
	assert.Equal(t, before+1, testutil.ToFloat64(probesTotal.WithLabelValues("control_plane", "failure")))

	before = testutil.ToFloat64(probesTotal.WithLabelValues("worker", "success"))
	Probe(false, true)
	assert.Equal(t, before+1, testutil.ToFloat64(probesTotal.WithLabelValues("worker", "success")))
}

func TestStatusReport(t *testing.T) {
	before := testutil.ToFloat64(statusReportsTotal.WithLabelValues("success"))
	StatusReport(true)
	assert.Equal(t, before+1, testutil.ToFloat64(statusReportsTotal.WithLabelValues("success")))
}

func TestRegistry_Gathers(t *testing.T) {
	Stage("probe", true, 20*time.Millisecond)

	families, err := Registry().Gather()
	assert.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "autokube_orchestrator_stage_duration_seconds" {
			found = true
		}
	}
	assert.True(t, found)
}
