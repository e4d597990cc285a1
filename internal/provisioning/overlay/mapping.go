package overlay

import (
	"github.com/autokube/provisioner/internal/addons/helm"
	"github.com/autokube/provisioner/internal/topology"
)

// DefaultKubernetesVersion is installed when the descriptor names none.
const DefaultKubernetesVersion = "v1.30.4"

const (
	defaultRegistryNamespace    = "kube-system"
	defaultRegistryStorageClass = ""
	defaultRegistryDiskSize     = "10Gi"

	defaultMetricResolution = "15s"
	defaultMetricsReplicas  = 1

	defaultLocalPathNamespace     = "local-path-storage"
	defaultLocalPathStorageClass  = "local-path"
	defaultLocalPathReclaimPolicy = "Delete"
	defaultLocalPathClaimRoot     = "/opt/local-path-provisioner/"
)

// ContainerManager maps a descriptor runtime to Kubespray's container_manager.
// Anything other than DOCKER installs containerd.
func ContainerManager(rt topology.ContainerRuntime) string {
	if rt == topology.RuntimeDocker {
		return "docker"
	}
	return "containerd"
}

// CoreValues returns the overrides for k8s-cluster.yml.
func CoreValues(d *topology.ClusterDescriptor) helm.Values {
	version := d.KubernetesVersion
	if version == "" {
		version = DefaultKubernetesVersion
	}
	manager := ContainerManager(d.ContainerRuntime)

	v := helm.Values{
		"kube_version":      version,
		"container_manager": manager,
	}
	if d.ContainerVersion != "" {
		v[manager+"_version"] = d.ContainerVersion
	}
	return v
}

// AddonValues returns the overrides for addons.yml. Disabled addons only set
// their enabled flag so the template's own sub-options are left alone.
func AddonValues(d *topology.ClusterDescriptor) helm.Values {
	cfg := d.ClusterConfig
	v := helm.Values{
		"helm_enabled":                   cfg.Helm.Enabled,
		"registry_enabled":               cfg.Registry.Enabled,
		"metrics_server_enabled":         cfg.Metrics.Enabled,
		"local_path_provisioner_enabled": cfg.LocalPathProvisioner.Enabled,
	}

	if r := cfg.Registry; r.Enabled {
		v["registry_namespace"] = orDefault(r.Namespace, defaultRegistryNamespace)
		v["registry_storage_class"] = orDefault(r.StorageClass, defaultRegistryStorageClass)
		v["registry_disk_size"] = orDefault(r.DiskSize, defaultRegistryDiskSize)
	}

	if m := cfg.Metrics; m.Enabled {
		replicas := m.Replicas
		if replicas <= 0 {
			replicas = defaultMetricsReplicas
		}
		v["metrics_server_metric_resolution"] = orDefault(m.MetricResolution, defaultMetricResolution)
		v["metrics_server_replicas"] = replicas
		v["metrics_server_kubelet_insecure_tls"] = true
	}

	if lp := cfg.LocalPathProvisioner; lp.Enabled {
		v["local_path_provisioner_namespace"] = orDefault(lp.Namespace, defaultLocalPathNamespace)
		v["local_path_provisioner_storage_class"] = orDefault(lp.StorageClass, defaultLocalPathStorageClass)
		v["local_path_provisioner_reclaim_policy"] = orDefault(lp.ReclaimPolicy, defaultLocalPathReclaimPolicy)
		v["local_path_provisioner_claim_root"] = orDefault(lp.ClaimRoot, defaultLocalPathClaimRoot)
	}

	return v
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
