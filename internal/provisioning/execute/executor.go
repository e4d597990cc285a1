package execute

import (
	"context"
	"io"
	"time"

	"github.com/autokube/provisioner/internal/config"
	"github.com/autokube/provisioner/internal/k8s"
	"github.com/autokube/provisioner/internal/provisioning/credentials"
	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/provisioning/inventory"
	"github.com/autokube/provisioner/internal/topology"
	"github.com/autokube/provisioner/internal/util/prerequisites"
)

// Options configures an Executor.
type Options struct {
	KubesprayDir string
	Playbook     string

	Chart ChartOptions

	KubesprayTimeout  time.Duration
	HelmTimeout       time.Duration
	KubeconfigTimeout time.Duration
	VerifyTimeout     time.Duration

	// Verify lists the cluster's nodes through the API server after a
	// successful install.
	Verify bool
}

// ChartOptions selects the chart installed by the Helm strategy.
type ChartOptions struct {
	// URL is a chart archive URL or local path.
	URL       string
	Release   string
	Namespace string
}

// OptionsFromConfig maps runtime configuration onto executor options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		KubesprayDir: cfg.KubesprayDir,
		Chart: ChartOptions{
			URL:       cfg.Helm.ChartURL,
			Release:   cfg.Helm.Release,
			Namespace: cfg.Helm.Namespace,
		},
		KubesprayTimeout:  cfg.Timeouts.Kubespray,
		HelmTimeout:       cfg.Timeouts.Helm,
		KubeconfigTimeout: cfg.Timeouts.Kubeconfig,
		VerifyTimeout:     cfg.Timeouts.Verify,
		Verify:            cfg.VerifyNodes,
	}
}

// Executor runs the selected installation strategy. Zero-valued
// collaborators fall back to the real implementations.
type Executor struct {
	Options

	Runner       CommandRunner
	CheckTools   func(passwordAuth bool) error
	Remote       RemoteDialer
	NewInstaller InstallerFactory
	NewVerifier  VerifierFactory

	// Stream receives installer output while it runs.
	Stream io.Writer
}

// New returns an executor with the production collaborators.
func New(opts Options) *Executor {
	return &Executor{Options: opts}
}

// Request is the input of one execution.
type Request struct {
	Descriptor *topology.ClusterDescriptor
	Strategy   config.Strategy
	// Targets is the inventory minus hosts excluded by the prober.
	Targets      *inventory.Inventory
	InventoryDir string
	Credentials  *credentials.Set
}

// Result records what the executor did.
type Result struct {
	Method    Method        `json:"method"`
	Node      string        `json:"node,omitempty"`
	Success   bool          `json:"success"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`

	Release      string `json:"release,omitempty"`
	ChartVersion string `json:"chartVersion,omitempty"`

	Nodes    *k8s.Verification `json:"nodes,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Execute installs the cluster. The result is returned also on failure,
// carrying the captured output. Failures are KindExecution or KindTimeout;
// a missing installer tool is KindUnavailable.
func (e *Executor) Execute(ctx context.Context, req *Request) (*Result, error) {
	res := &Result{
		Method:    Select(req.Strategy, req.Descriptor),
		StartedAt: time.Now(),
	}
	defer func() { res.Duration = time.Since(res.StartedAt) }()

	var err error
	var kubeconfig []byte
	switch res.Method {
	case MethodSkipped:
		return res, nil
	case MethodHelm:
		kubeconfig, err = e.runHelm(ctx, req, res)
	default:
		err = e.runKubespray(ctx, req, res)
	}
	if err != nil {
		res.Error = err.Error()
		return res, err
	}
	res.Success = true

	if e.Verify {
		e.verify(ctx, req, res, kubeconfig)
	}
	return res, nil
}

func (e *Executor) runner() CommandRunner {
	if e.Runner != nil {
		return e.Runner
	}
	return ExecRunner{}
}

func (e *Executor) checkTools(passwordAuth bool) error {
	if e.CheckTools != nil {
		return e.CheckTools(passwordAuth)
	}
	return prerequisites.CheckKubespray(passwordAuth).Error()
}

// firstControlPlane returns the first control-plane target and its credential.
func firstControlPlane(req *Request) (inventory.Host, *credentials.Credential, error) {
	for _, name := range req.Targets.ControlPlane {
		h, ok := req.Targets.Host(name)
		if !ok {
			continue
		}
		cred, ok := req.Credentials.Get(h.Name)
		if !ok {
			return h, nil, fault.Newf(fault.KindExecution, "no credential for control-plane host %s", h.Name)
		}
		return h, cred, nil
	}
	return inventory.Host{}, nil, fault.Newf(fault.KindExecution, "no reachable control-plane host")
}
