package provisioning

import (
	"context"
	"errors"
	"time"

	"github.com/autokube/provisioner/internal/provisioning/execute"
	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/provisioning/probe"
	"github.com/autokube/provisioner/internal/provisioning/report"
)

type (
	ProbeResult     = probe.Result
	ExecutionResult = execute.Result
)

// Failure describes why a run failed.
type Failure struct {
	Stage   string     `json:"stage"`
	Kind    fault.Kind `json:"kind,omitempty"`
	Node    string     `json:"node,omitempty"`
	Message string     `json:"message"`
	Output  string     `json:"output,omitempty"`
}

// Report is the outcome of one orchestration run. It is persisted as
// report.json and summarized to the control plane.
type Report struct {
	RunID      string        `json:"runId"`
	ClusterID  string        `json:"clusterId"`
	Status     report.Status `json:"status"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Duration   time.Duration `json:"duration"`

	Nodes     []string         `json:"nodes,omitempty"`
	Excluded  []string         `json:"excluded,omitempty"`
	Stages    []StageResult    `json:"stages"`
	Probes    []ProbeResult    `json:"probes,omitempty"`
	Execution *ExecutionResult `json:"execution,omitempty"`
	Failure   *Failure         `json:"failure,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`

	Delivery   *report.Delivery `json:"delivery,omitempty"`
	ArchiveURI string           `json:"archiveUri,omitempty"`
}

// NewReport summarizes state and the pipeline's error. A run without error
// succeeded when something was installed and is skipped otherwise.
func NewReport(state *State, started time.Time, err error) *Report {
	now := time.Now()
	r := &Report{
		RunID:      state.RunID,
		ClusterID:  state.ClusterID,
		StartedAt:  started,
		FinishedAt: now,
		Duration:   now.Sub(started),
		Stages:     state.Stages,
		Execution:  state.Execution,
		Warnings:   state.Warnings,
	}
	if state.Inventory != nil {
		r.Nodes = state.Inventory.HostNames()
	}
	if state.Probe != nil {
		r.Probes = state.Probe.Results
		r.Excluded = state.Probe.Excluded
	}

	switch {
	case err != nil:
		r.Status = report.StatusFailed
		r.Failure = failureOf(state, err)
	case state.Execution != nil && state.Execution.Success:
		r.Status = report.StatusSucceeded
	default:
		r.Status = report.StatusSkipped
	}
	return r
}

func failureOf(state *State, err error) *Failure {
	f := &Failure{Message: err.Error()}
	if fe, ok := fault.As(err); ok {
		f.Stage = fe.Stage
		f.Kind = fe.Kind
		f.Node = fe.Node
		f.Output = fe.Output
	}
	if f.Kind == "" && errors.Is(err, context.Canceled) {
		f.Message = "run cancelled"
	}
	if f.Stage == "" {
		for _, s := range state.Stages {
			if !s.Success {
				f.Stage = s.Name
			}
		}
	}
	return f
}

// Outcome converts the report into what the status reporter sends.
func (r *Report) Outcome() report.Outcome {
	o := report.Outcome{
		ClusterID: r.ClusterID,
		RunID:     r.RunID,
		Status:    r.Status,
	}
	if r.Failure != nil {
		o.Stage = r.Failure.Stage
		o.Kind = r.Failure.Kind
		o.Node = r.Failure.Node
		o.Error = r.Failure.Message
	}
	return o
}
