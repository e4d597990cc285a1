package execute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"helm.sh/helm/v3/pkg/release"

	"github.com/autokube/provisioner/internal/addons/helm"
	"github.com/autokube/provisioner/internal/k8s"
	"github.com/autokube/provisioner/internal/platform/ssh"
	"github.com/autokube/provisioner/internal/provisioning/credentials"
	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/provisioning/inventory"
)

const (
	// AdminKubeconfigPath is where kubeadm-based installers leave the admin kubeconfig.
	AdminKubeconfigPath = "/etc/kubernetes/admin.conf"
	apiServerPort       = "6443"
)

// RemoteRunner runs a command on a node and returns its stdout.
type RemoteRunner interface {
	Output(ctx context.Context, command string, stdin io.Reader) ([]byte, error)
}

// RemoteDialer connects to a node with its credential.
type RemoteDialer func(host inventory.Host, cred *credentials.Credential) (RemoteRunner, error)

// SSHRemote dials nodes with the native SSH client.
func SSHRemote(host inventory.Host, cred *credentials.Credential) (RemoteRunner, error) {
	return ssh.NewClient(&ssh.Config{
		Host:       host.Address,
		Port:       host.Port,
		User:       cred.User,
		PrivateKey: cred.PrivateKey(),
		Password:   cred.Password(),
		MaxRetries: 2,
	})
}

// ChartInstaller installs or upgrades a release.
type ChartInstaller interface {
	InstallOrUpgrade(ctx context.Context, releaseName, chartRef string, values helm.Values) (*release.Release, error)
}

// InstallerFactory builds a ChartInstaller for a cluster.
type InstallerFactory func(kubeconfig []byte, namespace string, timeout time.Duration, log helm.LogFunc) (ChartInstaller, error)

// HelmInstaller is the production InstallerFactory.
func HelmInstaller(kubeconfig []byte, namespace string, timeout time.Duration, log helm.LogFunc) (ChartInstaller, error) {
	return helm.NewClient(kubeconfig, namespace, helm.WithTimeout(timeout), helm.WithLogger(log))
}

// KubeconfigCommand returns the command reading the admin kubeconfig and the
// stdin to feed it. The become password only ever travels on stdin.
func KubeconfigCommand(cred *credentials.Credential) (string, string) {
	switch {
	case cred.BecomePassword() != "":
		return "sudo -S -p '' cat " + AdminKubeconfigPath, cred.BecomePassword() + "\n"
	case cred.User == "root":
		return "cat " + AdminKubeconfigPath, ""
	default:
		return "sudo -n cat " + AdminKubeconfigPath, ""
	}
}

// FetchKubeconfig reads the admin kubeconfig from host and points it at the
// host's API server address.
func (e *Executor) FetchKubeconfig(ctx context.Context, host inventory.Host, cred *credentials.Credential) ([]byte, error) {
	dial := e.Remote
	if dial == nil {
		dial = SSHRemote
	}
	remote, err := dial(host, cred)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", host.Name, err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, orDefault(e.KubeconfigTimeout, defaultKubeconfigTimeout))
	defer cancel()

	command, stdin := KubeconfigCommand(cred)
	raw, err := remote.Output(fetchCtx, command, strings.NewReader(stdin))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s on %s: %w", AdminKubeconfigPath, host.Name, err)
	}

	server := "https://" + net.JoinHostPort(host.Address, apiServerPort)
	kubeconfig, err := k8s.RewriteServer(raw, server)
	if err != nil {
		return nil, fmt.Errorf("kubeconfig from %s: %w", host.Name, err)
	}
	return kubeconfig, nil
}

// logBuffer collects helm debug lines, which may arrive from several goroutines.
type logBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (l *logBuffer) logf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(&l.b, format, v...)
	l.b.WriteByte('\n')
}

func (l *logBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func (e *Executor) runHelm(ctx context.Context, req *Request, res *Result) ([]byte, error) {
	host, cred, err := firstControlPlane(req)
	if err != nil {
		return nil, err
	}
	res.Node = host.Name

	kubeconfig, err := e.FetchKubeconfig(ctx, host, cred)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fault.OnNode(fault.KindExecution, host.Name, err)
	}

	timeout := orDefault(e.HelmTimeout, defaultHelmTimeout)
	var logs logBuffer
	factory := e.NewInstaller
	if factory == nil {
		factory = HelmInstaller
	}
	installer, err := factory(kubeconfig, e.Chart.Namespace, timeout, logs.logf)
	if err != nil {
		return nil, fault.OnNode(fault.KindExecution, host.Name, err)
	}

	// Helm enforces its own timeout for the wait; the extra minute covers
	// chart download and release bookkeeping.
	helmCtx, cancel := context.WithTimeout(ctx, timeout+time.Minute)
	defer cancel()

	rel, err := installer.InstallOrUpgrade(helmCtx, e.Chart.Release, e.Chart.URL, nil)
	res.Output = tail(logs.String())
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(helmCtx.Err(), context.DeadlineExceeded):
			return nil, fault.OnNode(fault.KindTimeout, host.Name, err).WithOutput(res.Output)
		default:
			return nil, fault.OnNode(fault.KindExecution, host.Name, err).WithOutput(res.Output)
		}
	}

	res.Release = e.Chart.Release
	if rel != nil && rel.Chart != nil && rel.Chart.Metadata != nil {
		res.ChartVersion = rel.Chart.Metadata.Version
	}
	return kubeconfig, nil
}
