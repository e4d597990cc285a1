package provisioning

import (
	"context"

	"github.com/autokube/provisioner/internal/provisioning/credentials"
	"github.com/autokube/provisioner/internal/provisioning/execute"
	"github.com/autokube/provisioner/internal/provisioning/inventory"
	"github.com/autokube/provisioner/internal/provisioning/probe"
	"github.com/autokube/provisioner/internal/topology"
)

// Logger is the minimal printf-style logger.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Phase defines the interface for a provisioning phase.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Provision executes the provisioning logic for this phase.
	Provision(ctx *Context) error
}

// DescriptorFetcher loads a cluster descriptor from the control plane.
// Implemented by controlplane.Client.
type DescriptorFetcher interface {
	FetchCluster(ctx context.Context, id string) (*topology.ClusterDescriptor, error)
}

// ConnectivityProber checks that inventory hosts are reachable.
// Implemented by probe.Prober.
type ConnectivityProber interface {
	Probe(ctx context.Context, inv *inventory.Inventory, creds *credentials.Set) (*probe.Outcome, error)
}

// RemoteExecutor installs the cluster. Implemented by execute.Executor.
type RemoteExecutor interface {
	Execute(ctx context.Context, req *execute.Request) (*execute.Result, error)
}
