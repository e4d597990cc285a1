package naming

import (
	"fmt"
	"path"
	"strings"
)

// Naming functions for per-cluster artifacts.
// Everything a run writes lives below {workDir}/{clusterID} so concurrent
// runs for different clusters never touch the same files.

const (
	InventoryFile = "hosts.yaml"
	ReportFile    = "report.json"
	LockFile      = ".lock"
	KeysDir       = "keys"

	ReportObjectExt = ".json"
)

func Node(role string, index int) string {
	return fmt.Sprintf("%s%d", strings.ToLower(role), index)
}

func KeyFile(node string) string {
	return fmt.Sprintf("%s_id_rsa", pathSafe(node))
}

// PasswordEnv is the environment variable carrying a node's SSH password
// to the installer subprocess.
func PasswordEnv(node string) string {
	return "AUTOKUBE_SSH_PASS_" + envSafe(node)
}

// BecomeEnv is the environment variable carrying a node's sudo password.
func BecomeEnv(node string) string {
	return "AUTOKUBE_BECOME_PASS_" + envSafe(node)
}

func ClusterDir(workDir, clusterID string) string {
	return path.Join(workDir, pathSafe(clusterID))
}

func ReportObjectKey(prefix, clusterID, runID string) string {
	return path.Join(prefix, pathSafe(clusterID), runID+ReportObjectExt)
}

// ReportObjectPrefix is the key prefix shared by every archived report of
// a cluster.
func ReportObjectPrefix(prefix, clusterID string) string {
	return path.Join(prefix, pathSafe(clusterID)) + "/"
}

// pathSafe keeps [A-Za-z0-9-] and writes every other byte as _XX (hex).
// The encoding is injective: '_' only ever starts an escape, so distinct
// inputs such as "node-1" and "node.1" never share a file name.
func pathSafe(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02X", c)
		}
	}
	return b.String()
}

// envSafe upper-cases [a-z], keeps digits and escapes every other byte,
// upper-case letters included, as _XX.
func envSafe(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02X", c)
		}
	}
	return b.String()
}
