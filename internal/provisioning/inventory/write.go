package inventory

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/autokube/provisioner/internal/util/fileutil"
	"github.com/autokube/provisioner/internal/util/naming"
)

type hostVars struct {
	AnsibleHost    string `yaml:"ansible_host"`
	AnsiblePort    int    `yaml:"ansible_port"`
	IP             string `yaml:"ip"`
	AccessIP       string `yaml:"access_ip"`
	AnsibleUser    string `yaml:"ansible_user"`
	KeyFile        string `yaml:"ansible_ssh_private_key_file,omitempty"`
	Password       string `yaml:"ansible_password,omitempty"`
	BecomePassword string `yaml:"ansible_become_password,omitempty"`
}

// envLookup renders an Ansible expression reading an environment variable,
// so secrets reach Ansible without being written into the inventory.
func envLookup(name string) string {
	return fmt.Sprintf("{{ lookup('env', '%s') }}", name)
}

func hostSet(names []string) map[string]any {
	hosts := make(map[string]any, len(names))
	for _, n := range names {
		hosts[n] = map[string]any{}
	}
	return hosts
}

// Document returns the inventory as a YAML-ready tree.
func (inv *Inventory) Document() map[string]any {
	hosts := make(map[string]hostVars, len(inv.Hosts))
	for _, h := range inv.Hosts {
		vars := hostVars{
			AnsibleHost: h.Address,
			AnsiblePort: h.Port,
			IP:          h.Address,
			AccessIP:    h.Address,
			AnsibleUser: h.User,
			KeyFile:     h.KeyFile,
		}
		if h.Password {
			vars.Password = envLookup(naming.PasswordEnv(h.Name))
		}
		if h.Become {
			vars.BecomePassword = envLookup(naming.BecomeEnv(h.Name))
		}
		hosts[h.Name] = vars
	}

	children := map[string]any{
		GroupCluster: map[string]any{
			"children": map[string]any{
				GroupControlPlane: map[string]any{},
				GroupWorker:       map[string]any{},
				GroupCalicoRR:     map[string]any{},
			},
		},
		GroupCalicoRR: map[string]any{"hosts": map[string]any{}},
	}
	for group, members := range inv.Groups() {
		children[group] = map[string]any{"hosts": hostSet(members)}
	}

	return map[string]any{
		"all": map[string]any{
			"hosts":    hosts,
			"children": children,
		},
	}
}

// Write serializes the inventory to dir/hosts.yaml, replacing any previous
// file atomically, and returns the file path.
func (inv *Inventory) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create inventory directory: %w", err)
	}

	data, err := yaml.Marshal(inv.Document())
	if err != nil {
		return "", fmt.Errorf("failed to encode inventory: %w", err)
	}

	path := filepath.Join(dir, naming.InventoryFile)
	if err := fileutil.WriteAtomic(path, data, 0o640); err != nil {
		return "", err
	}
	return path, nil
}
