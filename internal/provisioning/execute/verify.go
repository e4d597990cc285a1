package execute

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/autokube/provisioner/internal/k8s"
)

const (
	defaultKubesprayTimeout  = 90 * time.Minute
	defaultHelmTimeout       = 300 * time.Second
	defaultKubeconfigTimeout = 30 * time.Second
	defaultVerifyTimeout     = 30 * time.Second

	verifyInterval = 5 * time.Second
)

// NodeVerifier checks node readiness through the API server.
type NodeVerifier interface {
	WaitForNodesReady(ctx context.Context, expected []k8s.ExpectedNode, interval, timeout time.Duration) (*k8s.Verification, error)
}

// VerifierFactory builds a NodeVerifier from a kubeconfig.
type VerifierFactory func(kubeconfig []byte) (NodeVerifier, error)

// ClusterVerifier is the production VerifierFactory.
func ClusterVerifier(kubeconfig []byte) (NodeVerifier, error) {
	return k8s.NewClientFromBytes(kubeconfig)
}

// verify records node readiness on res. Every problem becomes a warning.
func (e *Executor) verify(ctx context.Context, req *Request, res *Result, kubeconfig []byte) {
	if kubeconfig == nil {
		host, cred, err := firstControlPlane(req)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("node verification skipped: %v", err))
			return
		}
		kubeconfig, err = e.FetchKubeconfig(ctx, host, cred)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("node verification skipped: %v", err))
			return
		}
	}

	factory := e.NewVerifier
	if factory == nil {
		factory = ClusterVerifier
	}
	verifier, err := factory(kubeconfig)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("node verification skipped: %v", err))
		return
	}

	// Inventory names are synthesized, so a cluster installed earlier may
	// register its nodes under other names; the address still matches.
	expected := make([]k8s.ExpectedNode, 0, len(req.Targets.Hosts))
	for _, h := range req.Targets.Hosts {
		expected = append(expected, k8s.ExpectedNode{Name: h.Name, Address: h.Address})
	}

	v, err := verifier.WaitForNodesReady(ctx, expected, verifyInterval, orDefault(e.VerifyTimeout, defaultVerifyTimeout))
	res.Nodes = v
	if err == nil {
		return
	}
	if v == nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("node verification failed: %v", err))
		return
	}
	if len(v.NotReady) > 0 {
		res.Warnings = append(res.Warnings, "nodes not ready: "+strings.Join(v.NotReady, ", "))
	}
	if len(v.Missing) > 0 {
		res.Warnings = append(res.Warnings, "nodes not registered: "+strings.Join(v.Missing, ", "))
	}
	if len(v.NotReady) == 0 && len(v.Missing) == 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("node verification failed: %v", err))
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
