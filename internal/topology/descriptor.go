package topology

// Role is a node's role in the cluster.
type Role string

const (
	RoleMaster Role = "MASTER"
	RoleWorker Role = "WORKER"
)

// AuthType is how the provisioner authenticates to a node.
type AuthType string

const (
	AuthPassword AuthType = "PASSWORD"
	AuthSSHKey   AuthType = "SSH_KEY"
)

// ContainerRuntime is the requested container runtime.
type ContainerRuntime string

const (
	RuntimeDocker     ContainerRuntime = "DOCKER"
	RuntimeContainerd ContainerRuntime = "CONTAINERD"
)

// DefaultSSHPort is used when a node does not specify a port.
const DefaultSSHPort = 22

// ClusterDescriptor is an immutable snapshot of a cluster's topology.
// Exactly the nodes listed here are provisioned.
type ClusterDescriptor struct {
	ID                string           `mapstructure:"id"`
	Name              string           `mapstructure:"name"`
	KubernetesVersion string           `mapstructure:"kubernetesVersion"`
	ContainerRuntime  ContainerRuntime `mapstructure:"containerRuntime"`
	ContainerVersion  string           `mapstructure:"containerVersion"`
	ClusterConfig     ClusterConfig    `mapstructure:"clusterConfig"`
	ClusterApp        ClusterApp       `mapstructure:"clusterApp"`
	Nodes             []NodeSpec       `mapstructure:"nodes"`
}

// ClusterConfig holds installer addon toggles.
type ClusterConfig struct {
	Helm                 HelmAddon      `mapstructure:"helm"`
	Registry             RegistryAddon  `mapstructure:"registry"`
	Metrics              MetricsAddon   `mapstructure:"metrics"`
	LocalPathProvisioner LocalPathAddon `mapstructure:"localPathProvisioner"`
}

// HelmAddon installs the Helm client on control-plane nodes.
type HelmAddon struct {
	Enabled bool `mapstructure:"enabled"`
}

// RegistryAddon deploys an in-cluster image registry. Empty fields take
// installer defaults.
type RegistryAddon struct {
	Enabled      bool   `mapstructure:"enabled"`
	Namespace    string `mapstructure:"namespace"`
	StorageClass string `mapstructure:"storageClass"`
	DiskSize     string `mapstructure:"diskSize"`
}

// MetricsAddon deploys metrics-server.
type MetricsAddon struct {
	Enabled          bool   `mapstructure:"enabled"`
	MetricResolution string `mapstructure:"metricResolution"`
	Replicas         int    `mapstructure:"replicas"`
}

// LocalPathAddon deploys the local-path storage provisioner.
type LocalPathAddon struct {
	Enabled       bool   `mapstructure:"enabled"`
	Namespace     string `mapstructure:"namespace"`
	StorageClass  string `mapstructure:"storageClass"`
	ReclaimPolicy string `mapstructure:"reclaimPolicy"`
	ClaimRoot     string `mapstructure:"claimRoot"`
}

// ClusterApp holds applications installed on top of a running cluster.
type ClusterApp struct {
	KubeSphere AppToggle `mapstructure:"kubesphere"`
}

// AppToggle enables an application.
type AppToggle struct {
	Enabled bool `mapstructure:"enabled"`
}

// NodeSpec describes one machine.
type NodeSpec struct {
	Hostname  string   `mapstructure:"hostname"`
	IPAddress string   `mapstructure:"ipAddress"`
	Username  string   `mapstructure:"username"`
	Role      Role     `mapstructure:"role"`
	AuthType  AuthType `mapstructure:"authType"`
	Password  string   `mapstructure:"password"`
	SSHKey    string   `mapstructure:"sshKey"`
	SSHPort   int      `mapstructure:"sshPort"`

	// BecomePassword is the sudo password. When empty, password nodes
	// escalate with their SSH password and key nodes expect passwordless sudo.
	BecomePassword string `mapstructure:"becomePassword"`
}

// Port returns the SSH port, defaulting to 22.
func (n NodeSpec) Port() int {
	if n.SSHPort == 0 {
		return DefaultSSHPort
	}
	return n.SSHPort
}

// ControlPlanes returns the nodes with role MASTER, in descriptor order.
func (d *ClusterDescriptor) ControlPlanes() []NodeSpec {
	var out []NodeSpec
	for _, n := range d.Nodes {
		if n.Role == RoleMaster {
			out = append(out, n)
		}
	}
	return out
}

// KubeSphereEnabled reports whether the KubeSphere app is requested.
func (d *ClusterDescriptor) KubeSphereEnabled() bool {
	return d.ClusterApp.KubeSphere.Enabled
}
