package topology

import (
	"github.com/autokube/provisioner/internal/util/naming"
)

// NodeNames assigns every node a stable inventory name, index-aligned with
// nodes. A node's hostname is used when present; otherwise the name is
// {role}{N} with N counting nodes of that role in descriptor order, starting
// at 1. A synthesized name that collides with an explicit hostname skips to
// the next free counter value.
func NodeNames(nodes []NodeSpec) []string {
	taken := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.Hostname != "" {
			taken[n.Hostname] = true
		}
	}

	counters := make(map[Role]int)
	names := make([]string, len(nodes))
	for i, n := range nodes {
		if n.Hostname != "" {
			names[i] = n.Hostname
			continue
		}
		for {
			counters[n.Role]++
			name := naming.Node(string(n.Role), counters[n.Role])
			if !taken[name] {
				names[i] = name
				taken[name] = true
				break
			}
		}
	}
	return names
}
