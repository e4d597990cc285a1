package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/autokube/provisioner/internal/k8s"
	"github.com/autokube/provisioner/internal/provisioning"
	"github.com/autokube/provisioner/internal/provisioning/execute"
	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/provisioning/report"
)

func TestRenderReport_Plain(t *testing.T) {
	t.Parallel()
	rep := &provisioning.Report{
		RunID:     "run-1",
		ClusterID: "42",
		Status:    report.StatusSucceeded,
		Stages: []provisioning.StageResult{
			{Name: "fetch", Success: true, Duration: 120 * time.Millisecond},
			{Name: "probe", Success: true, Duration: time.Second},
		},
		Probes: []provisioning.ProbeResult{
			{Node: "m1", Address: "10.0.0.1", ControlPlane: true, Success: true},
			{Node: "w2", Address: "10.0.0.3", Error: "connection refused"},
		},
		Execution: &execute.Result{
			Method:  execute.MethodKubespray,
			Success: true,
			Nodes:   &k8s.Verification{Ready: []string{"m1", "w1"}},
		},
		Warnings: []string{"worker w2 is unreachable and was excluded from installation"},
		Delivery: &report.Delivery{Sent: true, Status: "ready"},
	}

	out := renderReport(rep, false)

	assert.Contains(t, out, "Cluster 42 [OK] succeeded")
	assert.Contains(t, out, "[OK] fetch")
	assert.Contains(t, out, "[??] w2")
	assert.Contains(t, out, "excluded: connection refused")
	assert.Contains(t, out, "Install  kubespray, 2/2 nodes ready")
	assert.Contains(t, out, "Control plane marked ready")
	assert.NotContains(t, out, "\x1b[", "no ANSI codes in plain output")
}

func TestRenderReport_Failure(t *testing.T) {
	t.Parallel()
	rep := &provisioning.Report{
		ClusterID: "42",
		Status:    report.StatusFailed,
		Failure: &provisioning.Failure{
			Stage:   "execute",
			Kind:    fault.KindExecution,
			Message: "ansible-playbook exited with code 2",
			Output:  "TASK [kubernetes/preinstall]\nfatal: [w1]: UNREACHABLE!",
		},
		Delivery: &report.Delivery{Reason: "failure reporting disabled"},
	}

	out := renderReport(rep, false)

	assert.Contains(t, out, "[!!] failed")
	assert.Contains(t, out, "Failed in execute (execution): ansible-playbook exited with code 2")
	assert.Contains(t, out, "    fatal: [w1]: UNREACHABLE!")
	assert.Contains(t, out, "Nothing reported: failure reporting disabled")
}

func TestRenderReport_Skipped(t *testing.T) {
	t.Parallel()
	out := renderReport(&provisioning.Report{ClusterID: "42", Status: report.StatusSkipped}, false)
	assert.Contains(t, out, "[--] skipped")
}

func TestIndent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "    a\n    b", indent("a\nb\n"))
}
