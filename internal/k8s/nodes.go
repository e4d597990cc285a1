package k8s

import (
	"context"
	"fmt"
	"slices"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

// NodeStatus is the observed state of one cluster node.
type NodeStatus struct {
	Name           string `json:"name"`
	InternalIP     string `json:"internalIP,omitempty"`
	Ready          bool   `json:"ready"`
	KubeletVersion string `json:"kubeletVersion,omitempty"`
}

// ExpectedNode is a node the cluster should report. A registered node
// matches by name or, failing that, by its InternalIP.
type ExpectedNode struct {
	Name    string
	Address string
}

// Verification compares the nodes a cluster reports with the expected set.
type Verification struct {
	Ready    []string `json:"ready,omitempty"`
	NotReady []string `json:"notReady,omitempty"`
	Missing  []string `json:"missing,omitempty"`
}

// OK reports whether every expected node is present and Ready.
func (v *Verification) OK() bool {
	return len(v.NotReady) == 0 && len(v.Missing) == 0
}

// ListNodes returns the status of every node registered with the API server.
func (c *Client) ListNodes(ctx context.Context) ([]NodeStatus, error) {
	list, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	statuses := make([]NodeStatus, 0, len(list.Items))
	for i := range list.Items {
		node := &list.Items[i]
		statuses = append(statuses, NodeStatus{
			Name:           node.Name,
			InternalIP:     internalIP(node),
			Ready:          isNodeReady(node),
			KubeletVersion: node.Status.NodeInfo.KubeletVersion,
		})
	}
	return statuses, nil
}

// VerifyNodes checks the expected nodes against the cluster once. Results
// carry the expected names. Nodes the cluster knows but that were not
// expected are ignored.
func (c *Client) VerifyNodes(ctx context.Context, expected []ExpectedNode) (*Verification, error) {
	statuses, err := c.ListNodes(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]NodeStatus, len(statuses))
	byIP := make(map[string]NodeStatus, len(statuses))
	for _, s := range statuses {
		byName[s.Name] = s
		if s.InternalIP != "" {
			byIP[s.InternalIP] = s
		}
	}

	v := &Verification{}
	for _, want := range expected {
		s, ok := byName[want.Name]
		if !ok && want.Address != "" {
			s, ok = byIP[want.Address]
		}
		switch {
		case !ok:
			v.Missing = append(v.Missing, want.Name)
		case s.Ready:
			v.Ready = append(v.Ready, want.Name)
		default:
			v.NotReady = append(v.NotReady, want.Name)
		}
	}
	slices.Sort(v.Ready)
	slices.Sort(v.NotReady)
	slices.Sort(v.Missing)
	return v, nil
}

// WaitForNodesReady polls until every expected node is Ready or timeout
// elapses. The last observed verification is returned in both cases.
func (c *Client) WaitForNodesReady(ctx context.Context, expected []ExpectedNode, interval, timeout time.Duration) (*Verification, error) {
	var last *Verification
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		v, err := c.VerifyNodes(ctx, expected)
		if err != nil {
			return false, nil
		}
		last = v
		return v.OK(), nil
	})
	if err != nil {
		if last == nil {
			last = &Verification{}
			for _, want := range expected {
				last.Missing = append(last.Missing, want.Name)
			}
			slices.Sort(last.Missing)
		}
		return last, fmt.Errorf("nodes not ready: %w", err)
	}
	return last, nil
}

func isNodeReady(node *corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

func internalIP(node *corev1.Node) string {
	for _, addr := range node.Status.Addresses {
		if addr.Type == corev1.NodeInternalIP {
			return addr.Address
		}
	}
	return ""
}
