package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamingFunctions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{name: "Node master", got: Node("MASTER", 1), expected: "master1"},
		{name: "Node worker", got: Node("WORKER", 12), expected: "worker12"},
		{name: "KeyFile", got: KeyFile("m1"), expected: "m1_id_rsa"},
		{name: "KeyFile keeps dashes", got: KeyFile("node-1"), expected: "node-1_id_rsa"},
		{name: "KeyFile escapes dots", got: KeyFile("node.1"), expected: "node_2E1_id_rsa"},
		{name: "KeyFile sanitizes", got: KeyFile("../etc/passwd"), expected: "_2E_2E_2Fetc_2Fpasswd_id_rsa"},
		{name: "PasswordEnv", got: PasswordEnv("node-a.example"), expected: "AUTOKUBE_SSH_PASS_NODE_2DA_2EEXAMPLE"},
		{name: "BecomeEnv", got: BecomeEnv("w1"), expected: "AUTOKUBE_BECOME_PASS_W1"},
		{name: "BecomeEnv escapes upper case", got: BecomeEnv("W1"), expected: "AUTOKUBE_BECOME_PASS__571"},
		{name: "ClusterDir", got: ClusterDir("/var/lib/autokube", "abc/123"), expected: "/var/lib/autokube/abc_2F123"},
		{name: "ReportObjectKey", got: ReportObjectKey("reports", "c1", "run-1"), expected: "reports/c1/run-1.json"},
		{name: "ReportObjectPrefix", got: ReportObjectPrefix("reports", "a.b"), expected: "reports/a_2Eb/"},
		{name: "ReportObjectKey escapes", got: ReportObjectKey("reports", "a.b", "run-1"), expected: "reports/a_2Eb/run-1.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestNaming_DistinctInputsNeverCollide(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"node-1", "node.1"},
		{"node-1", "node_1"},
		{"a.b", "a-b"},
		{"w1", "W1"},
		{"node_2E1", "node.1"},
	}
	for _, p := range pairs {
		t.Run(p[0]+"/"+p[1], func(t *testing.T) {
			t.Parallel()
			assert.NotEqual(t, KeyFile(p[0]), KeyFile(p[1]))
			assert.NotEqual(t, PasswordEnv(p[0]), PasswordEnv(p[1]))
			assert.NotEqual(t, BecomeEnv(p[0]), BecomeEnv(p[1]))
			assert.NotEqual(t, ClusterDir("/work", p[0]), ClusterDir("/work", p[1]))
			assert.NotEqual(t, ReportObjectKey("reports", p[0], "r"), ReportObjectKey("reports", p[1], "r"))
		})
	}
}
