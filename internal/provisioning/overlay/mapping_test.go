package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autokube/provisioner/internal/addons/helm"
	testutil "github.com/autokube/provisioner/internal/testing"
	"github.com/autokube/provisioner/internal/topology"
)

func TestContainerManager(t *testing.T) {
	t.Parallel()
	tests := []struct {
		runtime topology.ContainerRuntime
		want    string
	}{
		{topology.RuntimeDocker, "docker"},
		{topology.RuntimeContainerd, "containerd"},
		{"", "containerd"},
		{"CRIO", "containerd"},
	}

	for _, tt := range tests {
		t.Run(string(tt.runtime), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ContainerManager(tt.runtime))
		})
	}
}

func TestCoreValues(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		d    *topology.ClusterDescriptor
		want helm.Values
	}{
		{
			name: "docker with version",
			d:    testutil.ThreeNodeCluster(),
			want: helm.Values{"kube_version": "v1.30.4", "container_manager": "docker"},
		},
		{
			name: "default version",
			d:    testutil.NewDescriptorBuilder().WithKubernetesVersion("").Build(),
			want: helm.Values{"kube_version": DefaultKubernetesVersion, "container_manager": "containerd"},
		},
		{
			name: "runtime version pinned",
			d: func() *topology.ClusterDescriptor {
				d := testutil.NewDescriptorBuilder().WithKubernetesVersion("v1.31.1").Build()
				d.ContainerVersion = "1.7.21"
				return d
			}(),
			want: helm.Values{"kube_version": "v1.31.1", "container_manager": "containerd", "containerd_version": "1.7.21"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CoreValues(tt.d))
		})
	}
}

func TestAddonValues_AllDisabled(t *testing.T) {
	t.Parallel()

	v := AddonValues(testutil.ThreeNodeCluster())

	assert.Equal(t, helm.Values{
		"helm_enabled":                   false,
		"registry_enabled":               false,
		"metrics_server_enabled":         false,
		"local_path_provisioner_enabled": false,
	}, v)
}

func TestAddonValues_Defaults(t *testing.T) {
	t.Parallel()

	v := AddonValues(testutil.NewDescriptorBuilder().WithConfig(testutil.AllAddons()).Build())

	assert.Equal(t, true, v["helm_enabled"])
	assert.Equal(t, "kube-system", v["registry_namespace"])
	assert.Equal(t, "", v["registry_storage_class"])
	assert.Equal(t, "10Gi", v["registry_disk_size"])
	assert.Equal(t, "15s", v["metrics_server_metric_resolution"])
	assert.Equal(t, 1, v["metrics_server_replicas"])
	assert.Equal(t, true, v["metrics_server_kubelet_insecure_tls"])
	assert.Equal(t, "local-path-storage", v["local_path_provisioner_namespace"])
	assert.Equal(t, "local-path", v["local_path_provisioner_storage_class"])
	assert.Equal(t, "Delete", v["local_path_provisioner_reclaim_policy"])
	assert.Equal(t, "/opt/local-path-provisioner/", v["local_path_provisioner_claim_root"])
}

func TestAddonValues_ExplicitOptions(t *testing.T) {
	t.Parallel()
	cfg := topology.ClusterConfig{
		Registry: topology.RegistryAddon{Enabled: true, Namespace: "registry", StorageClass: "fast", DiskSize: "50Gi"},
		Metrics:  topology.MetricsAddon{Enabled: true, MetricResolution: "30s", Replicas: 2},
		LocalPathProvisioner: topology.LocalPathAddon{
			Enabled: true, Namespace: "lpp", StorageClass: "local", ReclaimPolicy: "Retain", ClaimRoot: "/data/",
		},
	}

	v := AddonValues(testutil.NewDescriptorBuilder().WithConfig(cfg).Build())

	assert.Equal(t, "registry", v["registry_namespace"])
	assert.Equal(t, "fast", v["registry_storage_class"])
	assert.Equal(t, "50Gi", v["registry_disk_size"])
	assert.Equal(t, "30s", v["metrics_server_metric_resolution"])
	assert.Equal(t, 2, v["metrics_server_replicas"])
	assert.Equal(t, "lpp", v["local_path_provisioner_namespace"])
	assert.Equal(t, "local", v["local_path_provisioner_storage_class"])
	assert.Equal(t, "Retain", v["local_path_provisioner_reclaim_policy"])
	assert.Equal(t, "/data/", v["local_path_provisioner_claim_root"])
}
