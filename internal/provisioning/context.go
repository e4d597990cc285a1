package provisioning

import (
	"context"
	"time"

	"github.com/autokube/provisioner/internal/config"
	"github.com/autokube/provisioner/internal/provisioning/credentials"
	"github.com/autokube/provisioner/internal/provisioning/execute"
	"github.com/autokube/provisioner/internal/provisioning/inventory"
	"github.com/autokube/provisioner/internal/provisioning/overlay"
	"github.com/autokube/provisioner/internal/provisioning/probe"
	"github.com/autokube/provisioner/internal/topology"
)

// State holds the shared results of provisioning phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results.
type State struct {
	ClusterID    string
	RunID        string
	InventoryDir string // <work-dir>/<cluster-id>

	// Descriptor results (populated by the fetch phase)
	Descriptor *topology.ClusterDescriptor
	Names      []string // index-aligned with Descriptor.Nodes

	Credentials   *credentials.Set
	Inventory     *inventory.Inventory
	InventoryPath string
	Overlay       *overlay.Overlay

	// Probe results; Targets is Inventory minus excluded workers
	Probe   *probe.Outcome
	Targets *inventory.Inventory

	Execution *execute.Result

	// Stages records every phase that ran, in order.
	Stages   []StageResult
	Warnings []string
}

// NewState creates an empty provisioning state for one run.
func NewState(clusterID, runID, inventoryDir string) *State {
	return &State{
		ClusterID:    clusterID,
		RunID:        runID,
		InventoryDir: inventoryDir,
	}
}

// Warn records a non-fatal problem.
func (s *State) Warn(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

// Context wraps all dependencies and state needed for a provisioning phase.
type Context struct {
	context.Context
	Config   *config.Config
	State    *State
	Observer Observer
	Logger   Logger
	Timeouts *config.Timeouts

	Fetcher  DescriptorFetcher
	Prober   ConnectivityProber
	Executor RemoteExecutor
}

// NewContext creates a new provisioning context. The observer defaults to
// a logrus-backed one on the standard logger.
func NewContext(ctx context.Context, cfg *config.Config, state *State, observer Observer) *Context {
	if observer == nil {
		observer = NewLogrusObserver(nil)
	}
	timeouts := cfg.Timeouts
	return &Context{
		Context:  ctx,
		Config:   cfg,
		State:    state,
		Observer: observer,
		Logger:   observer,
		Timeouts: &timeouts,
	}
}

// WithDeadline returns a copy of ctx bounded by d. A non-positive d only
// derives a cancellable context.
func (c *Context) WithDeadline(d time.Duration) (*Context, context.CancelFunc) {
	var inner context.Context
	var cancel context.CancelFunc
	if d > 0 {
		inner, cancel = context.WithTimeout(c.Context, d)
	} else {
		inner, cancel = context.WithCancel(c.Context)
	}
	cp := *c
	cp.Context = inner
	return &cp, cancel
}
