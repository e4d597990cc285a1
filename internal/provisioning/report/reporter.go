package report

import (
	"context"
	"time"

	"github.com/autokube/provisioner/internal/controlplane"
	"github.com/autokube/provisioner/internal/provisioning/fault"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusSkipped means the run ended without installing anything.
	StatusSkipped Status = "skipped"
)

// StatusUpdater sends a status to the control plane.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id string, update controlplane.StatusUpdate) error
}

// Outcome is the part of a run the control plane is told about.
type Outcome struct {
	ClusterID string
	RunID     string
	Status    Status
	Stage     string
	Kind      fault.Kind
	Node      string
	Error     string
}

// Delivery records what the reporter did.
type Delivery struct {
	Sent   bool      `json:"sent"`
	Status string    `json:"status,omitempty"`
	At     time.Time `json:"at,omitempty"`
	Error  string    `json:"error,omitempty"`
	// Reason explains why nothing was sent.
	Reason string `json:"reason,omitempty"`
}

// Reporter maps run outcomes onto control-plane status updates.
type Reporter struct {
	Client StatusUpdater
	// ReportFailures sends failed runs as status "failed". When false only
	// successful runs are reported.
	ReportFailures bool
	Timeout        time.Duration
}

// Report sends the outcome when policy asks for it. The returned Delivery is
// never nil. The error is a KindReport fault.
func (r *Reporter) Report(ctx context.Context, o Outcome) (*Delivery, error) {
	update, reason := r.update(o)
	if update == nil {
		return &Delivery{Reason: reason}, nil
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	d := &Delivery{Status: update.Status, At: time.Now()}
	if err := r.Client.UpdateStatus(ctx, o.ClusterID, *update); err != nil {
		if _, ok := fault.As(err); !ok {
			err = fault.New(fault.KindReport, err)
		}
		d.Error = err.Error()
		return d, err
	}
	d.Sent = true
	return d, nil
}

func (r *Reporter) update(o Outcome) (*controlplane.StatusUpdate, string) {
	switch o.Status {
	case StatusSucceeded:
		return &controlplane.StatusUpdate{Status: controlplane.StatusReady, RunID: o.RunID}, ""
	case StatusFailed:
		if !r.ReportFailures {
			return nil, "failure reporting disabled"
		}
		return &controlplane.StatusUpdate{
			Status: controlplane.StatusFailed,
			RunID:  o.RunID,
			Stage:  o.Stage,
			Kind:   string(o.Kind),
			Node:   o.Node,
			Error:  o.Error,
		}, ""
	default:
		return nil, "nothing was installed"
	}
}
