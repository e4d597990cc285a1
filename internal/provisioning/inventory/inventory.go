// Package inventory groups nodes by role and serializes them as a
// Kubespray-style Ansible inventory.
package inventory

import (
	"fmt"
	"slices"

	"github.com/autokube/provisioner/internal/provisioning/credentials"
	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/topology"
)

// Group names expected by Kubespray.
const (
	GroupControlPlane = "kube_control_plane"
	GroupEtcd         = "etcd"
	GroupWorker       = "kube_node"
	GroupCluster      = "k8s_cluster"
	GroupCalicoRR     = "calico_rr"
)

// roleGroups maps a role to the groups its nodes join. A role missing here
// cannot be provisioned.
var roleGroups = map[topology.Role][]string{
	topology.RoleMaster: {GroupControlPlane, GroupEtcd},
	topology.RoleWorker: {GroupWorker},
}

// Host is one inventory entry.
type Host struct {
	Name    string
	Address string
	Port    int
	User    string
	Role    topology.Role

	// KeyFile is set for key-authenticated hosts.
	KeyFile string
	// Password is true when the SSH password is supplied through the environment.
	Password bool
	// Become is true when a sudo password is supplied through the environment.
	Become bool
}

// IsControlPlane reports whether the host runs the control plane.
func (h Host) IsControlPlane() bool {
	return h.Role == topology.RoleMaster
}

// Inventory is the role-grouped set of hosts for one run.
type Inventory struct {
	Hosts        []Host
	ControlPlane []string
	Etcd         []string
	Workers      []string
}

// Build assigns groups to every node that has a usable credential. Nodes
// without one were already reported by the credential materializer and are
// left out. An unknown role or the absence of control-plane nodes is a
// KindTopology error.
func Build(nodes []topology.NodeSpec, names []string, creds *credentials.Set) (*Inventory, error) {
	if len(names) != len(nodes) {
		return nil, fault.Newf(fault.KindTopology, "got %d names for %d nodes", len(names), len(nodes))
	}

	inv := &Inventory{}
	for i, node := range nodes {
		name := names[i]
		cred, ok := creds.Get(name)
		if !ok {
			continue
		}

		groups, ok := roleGroups[node.Role]
		if !ok {
			return nil, fault.OnNode(fault.KindTopology, name, fmt.Errorf("unsupported role %q", node.Role))
		}

		inv.Hosts = append(inv.Hosts, Host{
			Name:     name,
			Address:  node.IPAddress,
			Port:     node.Port(),
			User:     cred.User,
			Role:     node.Role,
			KeyFile:  cred.KeyPath,
			Password: cred.Password() != "",
			Become:   cred.BecomePassword() != "",
		})

		for _, g := range groups {
			inv.addToGroup(g, name)
		}
	}

	if len(inv.ControlPlane) == 0 {
		return nil, fault.Newf(fault.KindTopology, "cluster has no control-plane (%s) nodes", topology.RoleMaster)
	}
	return inv, nil
}

func (inv *Inventory) addToGroup(group, name string) {
	switch group {
	case GroupControlPlane:
		inv.ControlPlane = append(inv.ControlPlane, name)
	case GroupEtcd:
		inv.Etcd = append(inv.Etcd, name)
	case GroupWorker:
		inv.Workers = append(inv.Workers, name)
	}
}

// Host returns the host called name.
func (inv *Inventory) Host(name string) (Host, bool) {
	for _, h := range inv.Hosts {
		if h.Name == name {
			return h, true
		}
	}
	return Host{}, false
}

// Groups returns group membership keyed by Kubespray group name.
func (inv *Inventory) Groups() map[string][]string {
	return map[string][]string{
		GroupControlPlane: slices.Clone(inv.ControlPlane),
		GroupEtcd:         slices.Clone(inv.Etcd),
		GroupWorker:       slices.Clone(inv.Workers),
	}
}

// HostNames returns all host names in descriptor order.
func (inv *Inventory) HostNames() []string {
	names := make([]string, len(inv.Hosts))
	for i, h := range inv.Hosts {
		names[i] = h.Name
	}
	return names
}

// Without returns a copy of the inventory minus the named hosts.
func (inv *Inventory) Without(names ...string) *Inventory {
	drop := func(s []string) []string {
		return slices.DeleteFunc(slices.Clone(s), func(n string) bool { return slices.Contains(names, n) })
	}

	out := &Inventory{
		ControlPlane: drop(inv.ControlPlane),
		Etcd:         drop(inv.Etcd),
		Workers:      drop(inv.Workers),
	}
	for _, h := range inv.Hosts {
		if !slices.Contains(names, h.Name) {
			out.Hosts = append(out.Hosts, h)
		}
	}
	return out
}
