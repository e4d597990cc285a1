// Package metrics defines the Prometheus metrics of provisioning runs.
//
// Metrics are registered with controller-runtime's registry so the run
// server can expose them next to the Go runtime and process collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// Run metrics
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autokube",
			Subsystem: "orchestrator",
			Name:      "runs_total",
			Help:      "Total number of orchestration runs by mode and status",
		},
		[]string{"cluster", "mode", "status"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "autokube",
			Subsystem: "orchestrator",
			Name:      "run_duration_seconds",
			Help:      "Duration of orchestration runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2.3h
		},
		[]string{"cluster", "mode"},
	)

	runsInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "autokube",
			Subsystem: "orchestrator",
			Name:      "runs_in_flight",
			Help:      "Number of orchestration runs currently executing",
		},
		[]string{"cluster"},
	)

	// Stage metrics
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "autokube",
			Subsystem: "orchestrator",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~43min
		},
		[]string{"stage", "result"},
	)

	failuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autokube",
			Subsystem: "orchestrator",
			Name:      "failures_total",
			Help:      "Total number of failed runs by stage and error kind",
		},
		[]string{"stage", "kind"},
	)

	// Node metrics
	probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autokube",
			Subsystem: "probe",
			Name:      "nodes_total",
			Help:      "Total number of node probes by role and result",
		},
		[]string{"role", "result"},
	)

	// Control plane metrics
	statusReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autokube",
			Subsystem: "controlplane",
			Name:      "status_reports_total",
			Help:      "Total number of status reports by result",
		},
		[]string{"result"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		runsTotal,
		runDuration,
		runsInFlight,
		stageDuration,
		failuresTotal,
		probesTotal,
		statusReportsTotal,
	)
}

// Registry is the registry all metrics are registered with.
func Registry() prometheus.Gatherer {
	return metrics.Registry
}

// RunStarted marks a run of cluster as in flight.
func RunStarted(cluster string) {
	runsInFlight.WithLabelValues(cluster).Inc()
}

// RunFinished records a finished run.
func RunFinished(cluster, mode, status string, duration time.Duration) {
	runsInFlight.WithLabelValues(cluster).Dec()
	runsTotal.WithLabelValues(cluster, mode, status).Inc()
	runDuration.WithLabelValues(cluster, mode).Observe(duration.Seconds())
}

// Stage records one pipeline stage.
func Stage(stage string, success bool, duration time.Duration) {
	stageDuration.WithLabelValues(stage, result(success)).Observe(duration.Seconds())
}

// Failure records the stage and kind a run failed with.
func Failure(stage, kind string) {
	if kind == "" {
		kind = "unknown"
	}
	failuresTotal.WithLabelValues(stage, kind).Inc()
}

// Probe records one node probe.
func Probe(controlPlane, success bool) {
	role := "worker"
	if controlPlane {
		role = "control_plane"
	}
	probesTotal.WithLabelValues(role, result(success)).Inc()
}

// StatusReport records one attempt to report to the control plane.
func StatusReport(sent bool) {
	statusReportsTotal.WithLabelValues(result(sent)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
