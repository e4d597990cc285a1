package testing

import (
	"slices"

	"github.com/autokube/provisioner/internal/topology"
)

// DescriptorBuilder provides a fluent interface for constructing test descriptors.
// Each method returns a new builder (immutable) for chaining.
type DescriptorBuilder struct {
	d topology.ClusterDescriptor
}

// NewDescriptorBuilder creates a builder for an empty cluster with sensible defaults.
func NewDescriptorBuilder() *DescriptorBuilder {
	return &DescriptorBuilder{
		d: topology.ClusterDescriptor{
			ID:                "test-cluster",
			Name:              "test",
			KubernetesVersion: "v1.30.4",
			ContainerRuntime:  topology.RuntimeContainerd,
		},
	}
}

// WithID sets the cluster identifier.
func (b *DescriptorBuilder) WithID(id string) *DescriptorBuilder {
	nb := b.clone()
	nb.d.ID = id
	return nb
}

// WithRuntime sets the container runtime.
func (b *DescriptorBuilder) WithRuntime(rt topology.ContainerRuntime) *DescriptorBuilder {
	nb := b.clone()
	nb.d.ContainerRuntime = rt
	return nb
}

// WithKubernetesVersion sets the Kubernetes version.
func (b *DescriptorBuilder) WithKubernetesVersion(v string) *DescriptorBuilder {
	nb := b.clone()
	nb.d.KubernetesVersion = v
	return nb
}

// WithConfig replaces the addon configuration.
func (b *DescriptorBuilder) WithConfig(cfg topology.ClusterConfig) *DescriptorBuilder {
	nb := b.clone()
	nb.d.ClusterConfig = cfg
	return nb
}

// WithKubeSphere toggles the KubeSphere app.
func (b *DescriptorBuilder) WithKubeSphere(enabled bool) *DescriptorBuilder {
	nb := b.clone()
	nb.d.ClusterApp.KubeSphere.Enabled = enabled
	return nb
}

// WithMaster adds a password-authenticated control-plane node.
func (b *DescriptorBuilder) WithMaster(hostname, ip string) *DescriptorBuilder {
	return b.WithNode(PasswordNode(hostname, ip, topology.RoleMaster))
}

// WithWorker adds a password-authenticated worker node.
func (b *DescriptorBuilder) WithWorker(hostname, ip string) *DescriptorBuilder {
	return b.WithNode(PasswordNode(hostname, ip, topology.RoleWorker))
}

// WithNode appends an arbitrary node.
func (b *DescriptorBuilder) WithNode(n topology.NodeSpec) *DescriptorBuilder {
	nb := b.clone()
	nb.d.Nodes = append(nb.d.Nodes, n)
	return nb
}

// Build returns the constructed descriptor.
func (b *DescriptorBuilder) Build() *topology.ClusterDescriptor {
	d := b.clone().d
	return &d
}

func (b *DescriptorBuilder) clone() *DescriptorBuilder {
	d := b.d
	d.Nodes = slices.Clone(b.d.Nodes)
	return &DescriptorBuilder{d: d}
}

// PasswordNode returns a node authenticating with a fixed password.
func PasswordNode(hostname, ip string, role topology.Role) topology.NodeSpec {
	return topology.NodeSpec{
		Hostname:  hostname,
		IPAddress: ip,
		Username:  "ubuntu",
		Role:      role,
		AuthType:  topology.AuthPassword,
		Password:  "password-" + ip,
	}
}

// KeyNode returns a node authenticating with privateKey.
func KeyNode(hostname, ip string, role topology.Role, privateKey string) topology.NodeSpec {
	return topology.NodeSpec{
		Hostname:  hostname,
		IPAddress: ip,
		Username:  "root",
		Role:      role,
		AuthType:  topology.AuthSSHKey,
		SSHKey:    privateKey,
	}
}
