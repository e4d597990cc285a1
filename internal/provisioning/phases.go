package provisioning

import (
	"path/filepath"

	"github.com/autokube/provisioner/internal/provisioning/credentials"
	"github.com/autokube/provisioner/internal/provisioning/execute"
	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/provisioning/inventory"
	"github.com/autokube/provisioner/internal/provisioning/overlay"
	"github.com/autokube/provisioner/internal/topology"
)

// Stage names, as reported in events, errors and the run report.
const (
	StageFetch       = "fetch"
	StageValidate    = "validate"
	StageCredentials = "credentials"
	StageInventory   = "inventory"
	StageOverlay     = "overlay"
	StageProbe       = "probe"
	StageExecute     = "execute"
	StageReport      = "report"
)

// KeysDir is the credential directory below the inventory directory.
const KeysDir = "keys"

// ProvisionPhases returns the full provisioning pipeline in order.
func ProvisionPhases() []Phase {
	return []Phase{
		&FetchPhase{},
		NewValidationPhase(),
		&CredentialsPhase{},
		&InventoryPhase{},
		&OverlayPhase{},
		&ProbePhase{},
		&ExecutePhase{},
	}
}

// ProbeOnlyPhases returns the phases needed to check connectivity without
// installing anything.
func ProbeOnlyPhases() []Phase {
	return []Phase{
		&FetchPhase{},
		NewValidationPhase(),
		&CredentialsPhase{},
		&InventoryPhase{},
		&ProbePhase{},
	}
}

// InventoryOnlyPhases returns the phases that render the inventory and
// installer overlays for inspection.
func InventoryOnlyPhases() []Phase {
	return []Phase{
		&FetchPhase{},
		NewValidationPhase(),
		&CredentialsPhase{},
		&InventoryPhase{},
		&OverlayPhase{Force: true},
	}
}

// FetchPhase loads the cluster descriptor from the control plane.
type FetchPhase struct{}

func (p *FetchPhase) Name() string { return StageFetch }

func (p *FetchPhase) Provision(ctx *Context) error {
	if ctx.Fetcher == nil {
		return fault.Newf(fault.KindFetch, "no descriptor source configured")
	}

	fctx, cancel := ctx.WithDeadline(ctx.Timeouts.Fetch)
	defer cancel()

	d, err := ctx.Fetcher.FetchCluster(fctx, ctx.State.ClusterID)
	if err != nil {
		return err
	}

	ctx.State.Descriptor = d
	ctx.State.Names = topology.NodeNames(d.Nodes)
	ctx.Observer.Printf("[%s] cluster %s has %d nodes (%d control-plane)", StageFetch, d.ID, len(d.Nodes), len(d.ControlPlanes()))
	return nil
}

// CredentialsPhase materializes per-node credentials. The set is stored in
// the state even on failure so the caller can clean up written key files.
type CredentialsPhase struct{}

func (p *CredentialsPhase) Name() string { return StageCredentials }

func (p *CredentialsPhase) Provision(ctx *Context) error {
	m := credentials.NewMaterializer(filepath.Join(ctx.State.InventoryDir, KeysDir))
	set, err := m.Materialize(ctx.State.Descriptor.Nodes, ctx.State.Names)
	ctx.State.Credentials = set
	if err != nil {
		for _, fe := range fault.All(err) {
			ctx.Observer.Event(Event{
				Type:    EventNodeFailed,
				Phase:   StageCredentials,
				Node:    fe.Node,
				Kind:    fe.Kind,
				Message: fe.Error(),
			})
		}
		return err
	}

	ctx.Observer.Printf("[%s] resolved %d credentials, %d key files", StageCredentials, set.Len(), len(set.Files()))
	return nil
}

// InventoryPhase builds the role-grouped inventory and writes hosts.yaml.
type InventoryPhase struct{}

func (p *InventoryPhase) Name() string { return StageInventory }

func (p *InventoryPhase) Provision(ctx *Context) error {
	inv, err := inventory.Build(ctx.State.Descriptor.Nodes, ctx.State.Names, ctx.State.Credentials)
	if err != nil {
		return err
	}

	path, err := inv.Write(ctx.State.InventoryDir)
	if err != nil {
		return err
	}

	ctx.State.Inventory = inv
	ctx.State.Targets = inv
	ctx.State.InventoryPath = path
	ctx.Observer.Printf("[%s] wrote %d hosts to %s", StageInventory, len(inv.Hosts), path)
	return nil
}

// OverlayPhase merges descriptor settings onto the Kubespray group_vars
// templates. The overlay only feeds Kubespray, so it is skipped when the
// run installs through Helm or not at all.
type OverlayPhase struct {
	// Force applies the overlay regardless of the selected method.
	Force bool
}

func (p *OverlayPhase) Name() string { return StageOverlay }

func (p *OverlayPhase) Provision(ctx *Context) error {
	d := ctx.State.Descriptor
	if method := execute.Select(ctx.Config.Strategy, d); method != execute.MethodKubespray && !p.Force {
		ctx.Observer.Printf("[%s] skipped, install method is %s", StageOverlay, method)
		return nil
	}

	engine := overlay.NewEngine(ctx.Config.KubesprayDir, ctx.State.InventoryDir)
	out, err := engine.Apply(d)
	if err != nil {
		return err
	}

	for _, w := range out.Warnings {
		ctx.State.Warn(w)
		LogWarning(ctx.Observer, StageOverlay, w)
	}
	ctx.State.Overlay = out
	ctx.Observer.Printf("[%s] wrote %d files", StageOverlay, len(out.Paths))
	return nil
}

// ProbePhase checks connectivity to every host and drops unreachable
// workers from the target set.
type ProbePhase struct{}

func (p *ProbePhase) Name() string { return StageProbe }

func (p *ProbePhase) Provision(ctx *Context) error {
	if ctx.Prober == nil {
		return fault.Newf(fault.KindProbe, "no prober configured")
	}

	outcome, err := ctx.Prober.Probe(ctx, ctx.State.Inventory, ctx.State.Credentials)
	ctx.State.Probe = outcome
	if outcome != nil {
		for i, r := range outcome.Results {
			LogNodeProbed(ctx.Observer, StageProbe, r.Node, r.Success, r.Error)
			ctx.Observer.Progress(StageProbe, i+1, len(outcome.Results))
		}
	}
	if err != nil {
		return err
	}

	if failed := outcome.Failed(); len(failed) > 0 {
		ctx.Observer.Printf("[%s] %d of %d hosts unreachable", StageProbe, len(failed), len(outcome.Results))
	}
	for _, name := range outcome.Excluded {
		msg := "worker " + name + " is unreachable and was excluded from installation"
		ctx.State.Warn(msg)
		LogNodeExcluded(ctx.Observer, StageProbe, name, "unreachable")
	}
	ctx.State.Targets = ctx.State.Inventory.Without(outcome.Excluded...)
	return nil
}

// ExecutePhase runs the selected installer against the target hosts.
type ExecutePhase struct{}

func (p *ExecutePhase) Name() string { return StageExecute }

func (p *ExecutePhase) Provision(ctx *Context) error {
	if ctx.Executor == nil {
		return fault.Newf(fault.KindExecution, "no executor configured")
	}

	targets := ctx.State.Targets
	if targets == nil {
		targets = ctx.State.Inventory
	}

	res, err := ctx.Executor.Execute(ctx, &execute.Request{
		Descriptor:   ctx.State.Descriptor,
		Strategy:     ctx.Config.Strategy,
		Targets:      targets,
		InventoryDir: ctx.State.InventoryDir,
		Credentials:  ctx.State.Credentials,
	})
	ctx.State.Execution = res
	if res != nil {
		for _, w := range res.Warnings {
			ctx.State.Warn(w)
			LogWarning(ctx.Observer, StageExecute, w)
		}
	}
	if err != nil {
		return err
	}

	if res.Method == execute.MethodSkipped {
		ctx.Observer.Printf("[%s] nothing to install", StageExecute)
		return nil
	}
	ctx.Observer.Printf("[%s] %s install succeeded in %v", StageExecute, res.Method, res.Duration)
	return nil
}
