package testing

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleCoreTemplate is a trimmed copy of Kubespray's sample k8s-cluster.yml.
const SampleCoreTemplate = `# Kubernetes configuration dirs and system namespace.
kube_config_dir: /etc/kubernetes
kube_version: v1.29.0
kube_network_plugin: calico
kube_service_addresses: 10.233.0.0/18
kube_pods_subnet: 10.233.64.0/18
cluster_name: cluster.local
container_manager: containerd
kube_proxy_mode: ipvs
`

// SampleAddonsTemplate is a trimmed copy of Kubespray's sample addons.yml.
const SampleAddonsTemplate = `dashboard_enabled: false
helm_enabled: false
registry_enabled: false
metrics_server_enabled: false
local_path_provisioner_enabled: false
ingress_nginx_enabled: false
`

// KubesprayCheckout lays out a fake Kubespray directory with the sample
// group_vars templates and returns its path. withAddons controls whether
// addons.yml is present.
func KubesprayCheckout(t *testing.T, withAddons bool) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "inventory", "sample", "group_vars", "k8s_cluster")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	writeFile(t, filepath.Join(dir, "k8s-cluster.yml"), SampleCoreTemplate)
	if withAddons {
		writeFile(t, filepath.Join(dir, "addons.yml"), SampleAddonsTemplate)
	}
	writeFile(t, filepath.Join(root, "cluster.yml"), "- import_playbook: playbooks/cluster.yml\n")
	return root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
