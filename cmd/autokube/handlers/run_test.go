package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autokube/provisioner/internal/config"
	"github.com/autokube/provisioner/internal/orchestration"
	"github.com/autokube/provisioner/internal/provisioning"
	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/provisioning/report"
)

type mockOrchestrator struct {
	req    orchestration.Request
	report *provisioning.Report
	err    error
}

func (m *mockOrchestrator) Run(_ context.Context, req orchestration.Request) (*provisioning.Report, error) {
	m.req = req
	return m.report, m.err
}

func testConfig() *config.Config {
	return &config.Config{
		APIURL:   "http://localhost:3000",
		APIToken: "token",
		WorkDir:  "/tmp/autokube",
		Strategy: config.StrategyAuto,
		Log:      config.LogConfig{Level: "error", Format: "text"},
		Timeouts: config.DefaultTimeouts(),
	}
}

// stubRun replaces the factories for one test. Tests using it must not run in parallel.
func stubRun(t *testing.T, orch *mockOrchestrator, loadErr error) (*bytes.Buffer, *orchestration.Options) {
	t.Helper()
	origLoad, origNew, origStdout, origTTY := loadConfig, newOrchestrator, stdout, isTTY
	t.Cleanup(func() {
		loadConfig, newOrchestrator, stdout, isTTY = origLoad, origNew, origStdout, origTTY
	})

	var out bytes.Buffer
	var got orchestration.Options
	loadConfig = func(string) (*config.Config, error) {
		if loadErr != nil {
			return nil, loadErr
		}
		return testConfig(), nil
	}
	newOrchestrator = func(_ context.Context, _ *config.Config, opts orchestration.Options) (Orchestrator, error) {
		got = opts
		return orch, nil
	}
	stdout = &out
	isTTY = func() bool { return false }
	return &out, &got
}

func TestRun_Success(t *testing.T) {
	orch := &mockOrchestrator{report: &provisioning.Report{
		RunID:     "run-1",
		ClusterID: "42",
		Status:    report.StatusSucceeded,
		Duration:  90 * time.Second,
		Stages:    []provisioning.StageResult{{Name: "fetch", Success: true}},
		Delivery:  &report.Delivery{Sent: true, Status: "ready"},
	}}
	out, opts := stubRun(t, orch, nil)

	err := Run(context.Background(), RunOptions{ClusterID: "42", Mode: orchestration.ModeProvision, Stream: true})
	require.NoError(t, err)

	assert.Equal(t, "42", orch.req.ClusterID)
	assert.Equal(t, orchestration.ModeProvision, orch.req.Mode)
	assert.NotNil(t, opts.Stream, "stream is wired to stdout")
	assert.NotNil(t, opts.Observer)
	assert.Contains(t, out.String(), "Cluster 42")
	assert.Contains(t, out.String(), "succeeded")
	assert.Contains(t, out.String(), "Control plane marked ready")
}

func TestRun_FailurePrintsReport(t *testing.T) {
	runErr := fault.OnNode(fault.KindProbe, "m1", errors.New("connection refused"))
	orch := &mockOrchestrator{
		report: &provisioning.Report{
			ClusterID: "42",
			Status:    report.StatusFailed,
			Failure:   &provisioning.Failure{Stage: "probe", Node: "m1", Kind: fault.KindProbe, Message: runErr.Error()},
		},
		err: runErr,
	}
	out, _ := stubRun(t, orch, nil)

	err := Run(context.Background(), RunOptions{ClusterID: "42", Mode: orchestration.ModeProvision})
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindProbe))
	assert.Contains(t, out.String(), "Failed in probe on m1")
}

func TestRun_JSON(t *testing.T) {
	orch := &mockOrchestrator{report: &provisioning.Report{RunID: "run-1", ClusterID: "42", Status: report.StatusSucceeded}}
	out, _ := stubRun(t, orch, nil)

	require.NoError(t, Run(context.Background(), RunOptions{ClusterID: "42", Mode: orchestration.ModeProbe, JSON: true}))

	var decoded provisioning.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
}

func TestRun_ConfigError(t *testing.T) {
	orch := &mockOrchestrator{}
	stubRun(t, orch, config.ErrMissingToken)

	err := Run(context.Background(), RunOptions{ClusterID: "42"})
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingToken)
	assert.Empty(t, orch.req.ClusterID, "no run without a token")
}

func TestRun_LockErrorWithoutReport(t *testing.T) {
	orch := &mockOrchestrator{err: fault.Newf(fault.KindUnavailable, "another run holds the lock")}
	out, _ := stubRun(t, orch, nil)

	err := Run(context.Background(), RunOptions{ClusterID: "42", Mode: orchestration.ModeProvision})
	require.Error(t, err)
	assert.Empty(t, out.String())
}
