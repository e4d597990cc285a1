package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/autokube/provisioner/internal/platform/ssh"
	"github.com/autokube/provisioner/internal/provisioning/credentials"
	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/provisioning/inventory"
	"github.com/autokube/provisioner/internal/util/async"
)

const (
	// Command is run on each host. It has no side effects and succeeds on
	// any POSIX shell.
	Command = "true"

	DefaultConcurrency = 8
	DefaultTimeout     = 10 * time.Second
)

// Runner executes a command on one host.
type Runner interface {
	Execute(ctx context.Context, command string) (string, error)
}

// Dialer builds a Runner for a host from its credential.
type Dialer func(host inventory.Host, cred *credentials.Credential, timeout time.Duration) (Runner, error)

// SSHDialer dials hosts with the native SSH client, one attempt per probe.
func SSHDialer(host inventory.Host, cred *credentials.Credential, timeout time.Duration) (Runner, error) {
	return ssh.NewClient(&ssh.Config{
		Host:        host.Address,
		Port:        host.Port,
		User:        cred.User,
		PrivateKey:  cred.PrivateKey(),
		Password:    cred.Password(),
		DialTimeout: timeout,
	})
}

// Result is the outcome of probing one host.
type Result struct {
	Node         string        `json:"node"`
	Address      string        `json:"address"`
	ControlPlane bool          `json:"controlPlane"`
	Success      bool          `json:"success"`
	Output       string        `json:"output,omitempty"`
	Error        string        `json:"error,omitempty"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"duration"`
}

// Outcome collects the results of one probe round.
type Outcome struct {
	// Results holds one entry per inventory host, in inventory order.
	Results []Result
	// Excluded lists workers that failed and must not be targeted.
	Excluded []string
}

// Failed returns the results that did not succeed.
func (o *Outcome) Failed() []Result {
	var out []Result
	for _, r := range o.Results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

// Prober runs connectivity checks.
type Prober struct {
	Dial        Dialer
	Concurrency int
	Timeout     time.Duration
}

// New returns a Prober using SSH with the given bounds. Non-positive values
// fall back to the defaults.
func New(concurrency int, timeout time.Duration) *Prober {
	return &Prober{Dial: SSHDialer, Concurrency: concurrency, Timeout: timeout}
}

// Probe checks every host of inv. The outcome is always returned, also
// alongside an error. Control-plane failures produce one node-scoped
// KindProbe error each, joined.
func (p *Prober) Probe(ctx context.Context, inv *inventory.Inventory, creds *credentials.Set) (*Outcome, error) {
	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dial := p.Dial
	if dial == nil {
		dial = SSHDialer
	}

	out := &Outcome{Results: make([]Result, len(inv.Hosts))}
	tasks := make([]async.Task, 0, len(inv.Hosts))
	for i, host := range inv.Hosts {
		tasks = append(tasks, async.Task{
			Name: host.Name,
			Func: func(ctx context.Context) error {
				out.Results[i] = probeHost(ctx, dial, host, creds, timeout)
				return nil
			},
		})
	}
	_ = async.RunParallel(ctx, concurrency, tasks)

	if err := ctx.Err(); err != nil {
		return out, err
	}

	var errs []error
	for _, r := range out.Results {
		if r.Success {
			continue
		}
		if r.ControlPlane {
			errs = append(errs, fault.OnNode(fault.KindProbe, r.Node, errors.New(r.Error)).WithOutput(r.Output))
			continue
		}
		out.Excluded = append(out.Excluded, r.Node)
	}
	return out, errors.Join(errs...)
}

func probeHost(ctx context.Context, dial Dialer, host inventory.Host, creds *credentials.Set, timeout time.Duration) (res Result) {
	res = Result{
		Node:         host.Name,
		Address:      host.Address,
		ControlPlane: host.IsControlPlane(),
		StartedAt:    time.Now(),
	}
	defer func() { res.Duration = time.Since(res.StartedAt) }()

	cred, ok := creds.Get(host.Name)
	if !ok {
		res.Error = "no credential for host"
		return res
	}

	nodeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runner, err := dial(host, cred, timeout)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	output, err := runner.Execute(nodeCtx, Command)
	res.Output = output
	switch {
	case err == nil:
		res.Success = true
	case errors.Is(nodeCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.Error = fmt.Sprintf("probe timed out after %s", timeout)
	default:
		res.Error = err.Error()
	}
	return res
}
