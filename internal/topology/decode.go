package topology

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-viper/mapstructure/v2"
	"k8s.io/apimachinery/pkg/util/validation"
)

// MalformedError lists every problem found in a descriptor.
type MalformedError struct {
	Problems []string
}

func (e *MalformedError) Error() string {
	return "malformed cluster descriptor: " + strings.Join(e.Problems, "; ")
}

var requiredNodeFields = []string{"role", "ipAddress", "username", "authType"}

// Decode parses and validates a descriptor document.
func Decode(data []byte) (*ClusterDescriptor, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedError{Problems: []string{fmt.Sprintf("invalid JSON: %v", err)}}
	}
	return DecodeMap(raw)
}

// DecodeMap validates and converts an already parsed document.
func DecodeMap(raw map[string]any) (*ClusterDescriptor, error) {
	if problems := checkRequired(raw); len(problems) > 0 {
		return nil, &MalformedError{Problems: problems}
	}

	var d ClusterDescriptor
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &d,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &MalformedError{Problems: []string{err.Error()}}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func checkRequired(raw map[string]any) []string {
	nodesRaw, ok := raw["nodes"]
	if !ok || nodesRaw == nil {
		return []string{"nodes is required"}
	}
	nodes, ok := nodesRaw.([]any)
	if !ok {
		return []string{"nodes must be a list"}
	}

	var problems []string
	for i, n := range nodes {
		node, ok := n.(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("nodes[%d] must be an object", i))
			continue
		}
		for _, field := range requiredNodeFields {
			if s, _ := node[field].(string); strings.TrimSpace(s) == "" {
				problems = append(problems, fmt.Sprintf("nodes[%d].%s is required", i, field))
			}
		}
	}
	return problems
}

// Validate checks semantic constraints and normalizes the Kubernetes version
// to a "v"-prefixed semantic version. Unknown roles and auth types are left
// for the inventory builder and credential materializer to reject.
func (d *ClusterDescriptor) Validate() error {
	var problems []string

	if d.KubernetesVersion != "" {
		v, err := semver.NewVersion(d.KubernetesVersion)
		if err != nil {
			problems = append(problems, fmt.Sprintf("kubernetesVersion %q is not a valid version", d.KubernetesVersion))
		} else {
			d.KubernetesVersion = "v" + v.String()
		}
	}

	hostnames := make(map[string]int)
	addresses := make(map[string]int)
	for i := range d.Nodes {
		n := &d.Nodes[i]
		n.Role = Role(strings.ToUpper(strings.TrimSpace(string(n.Role))))
		n.AuthType = AuthType(strings.ToUpper(strings.TrimSpace(string(n.AuthType))))
		n.Hostname = strings.TrimSpace(n.Hostname)

		if net.ParseIP(n.IPAddress) == nil {
			problems = append(problems, fmt.Sprintf("nodes[%d].ipAddress %q is not a valid IP address", i, n.IPAddress))
		} else if j, dup := addresses[n.IPAddress]; dup {
			problems = append(problems, fmt.Sprintf("nodes[%d].ipAddress %s duplicates nodes[%d]", i, n.IPAddress, j))
		} else {
			addresses[n.IPAddress] = i
		}

		if n.Hostname != "" {
			for _, msg := range validation.IsDNS1123Subdomain(n.Hostname) {
				problems = append(problems, fmt.Sprintf("nodes[%d].hostname %q: %s", i, n.Hostname, msg))
			}
			if j, dup := hostnames[n.Hostname]; dup {
				problems = append(problems, fmt.Sprintf("nodes[%d].hostname %s duplicates nodes[%d]", i, n.Hostname, j))
			} else {
				hostnames[n.Hostname] = i
			}
		}

		if n.SSHPort < 0 || n.SSHPort > 65535 {
			problems = append(problems, fmt.Sprintf("nodes[%d].sshPort %d is out of range", i, n.SSHPort))
		}
	}

	if len(problems) > 0 {
		return &MalformedError{Problems: problems}
	}
	return nil
}
