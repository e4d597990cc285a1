package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDescriptor = `{
  "id": "clx1",
  "name": "demo",
  "kubernetesVersion": "1.30.4",
  "containerRuntime": "DOCKER",
  "containerVersion": "24.0",
  "clusterConfig": {
    "helm": {"enabled": true},
    "registry": {"enabled": false},
    "metrics": {"enabled": true, "metricResolution": "30s", "replicas": 2},
    "localPathProvisioner": null
  },
  "clusterApp": {"kubesphere": {"enabled": false}},
  "nodes": [
    {"hostname": "m1", "ipAddress": "10.0.0.1", "username": "ubuntu", "role": "MASTER", "authType": "PASSWORD", "password": "pw", "sshKey": null},
    {"hostname": "w1", "ipAddress": "10.0.0.2", "username": "ubuntu", "role": "WORKER", "authType": "SSH_KEY", "sshKey": "KEY", "sshPort": 2222},
    {"hostname": "", "ipAddress": "10.0.0.3", "username": "ubuntu", "role": "worker", "authType": "ssh_key", "sshKey": "KEY"}
  ]
}`

func TestDecode_Valid(t *testing.T) {
	t.Parallel()

	d, err := Decode([]byte(validDescriptor))
	require.NoError(t, err)

	assert.Equal(t, "clx1", d.ID)
	assert.Equal(t, "v1.30.4", d.KubernetesVersion)
	assert.Equal(t, RuntimeDocker, d.ContainerRuntime)
	assert.True(t, d.ClusterConfig.Helm.Enabled)
	assert.True(t, d.ClusterConfig.Metrics.Enabled)
	assert.Equal(t, 2, d.ClusterConfig.Metrics.Replicas)
	assert.False(t, d.ClusterConfig.LocalPathProvisioner.Enabled)
	assert.False(t, d.KubeSphereEnabled())

	require.Len(t, d.Nodes, 3)
	assert.Equal(t, "pw", d.Nodes[0].Password)
	assert.Equal(t, "", d.Nodes[0].SSHKey)
	assert.Equal(t, 22, d.Nodes[0].Port())
	assert.Equal(t, 2222, d.Nodes[1].Port())
	assert.Equal(t, RoleWorker, d.Nodes[2].Role, "roles are normalized to upper case")
	assert.Equal(t, AuthSSHKey, d.Nodes[2].AuthType)
	assert.Equal(t, "10.0.0.3", d.Nodes[2].IPAddress)
	assert.Len(t, d.ControlPlanes(), 1)
}

func TestDecode_MissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		doc      string
		problems []string
	}{
		{
			name:     "no nodes",
			doc:      `{"id": "x"}`,
			problems: []string{"nodes is required"},
		},
		{
			name:     "nodes not a list",
			doc:      `{"nodes": {"a": 1}}`,
			problems: []string{"nodes must be a list"},
		},
		{
			name: "node fields",
			doc:  `{"nodes": [{"hostname": "m1", "ipAddress": "10.0.0.1", "authType": "PASSWORD"}, {"role": "WORKER", "username": "u", "authType": "", "ipAddress": "10.0.0.2"}]}`,
			problems: []string{
				"nodes[0].role is required",
				"nodes[0].username is required",
				"nodes[1].authType is required",
			},
		},
		{
			name:     "invalid json",
			doc:      `{`,
			problems: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode([]byte(tt.doc))
			require.Error(t, err)

			var malformed *MalformedError
			require.ErrorAs(t, err, &malformed)
			for _, p := range tt.problems {
				assert.Contains(t, malformed.Problems, p)
			}
		})
	}
}

func TestDecode_SemanticValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		problem string
	}{
		{
			name:    "bad ip",
			doc:     `{"nodes": [{"role": "MASTER", "ipAddress": "10.0.0.300", "username": "u", "authType": "PASSWORD"}]}`,
			problem: "is not a valid IP address",
		},
		{
			name:    "duplicate hostname",
			doc:     `{"nodes": [{"hostname": "n", "role": "MASTER", "ipAddress": "10.0.0.1", "username": "u", "authType": "PASSWORD"}, {"hostname": "n", "role": "WORKER", "ipAddress": "10.0.0.2", "username": "u", "authType": "PASSWORD"}]}`,
			problem: "hostname n duplicates nodes[0]",
		},
		{
			name:    "duplicate ip",
			doc:     `{"nodes": [{"role": "MASTER", "ipAddress": "10.0.0.1", "username": "u", "authType": "PASSWORD"}, {"role": "WORKER", "ipAddress": "10.0.0.1", "username": "u", "authType": "PASSWORD"}]}`,
			problem: "ipAddress 10.0.0.1 duplicates nodes[0]",
		},
		{
			name:    "invalid hostname",
			doc:     `{"nodes": [{"hostname": "Bad_Host", "role": "MASTER", "ipAddress": "10.0.0.1", "username": "u", "authType": "PASSWORD"}]}`,
			problem: `hostname "Bad_Host"`,
		},
		{
			name:    "bad version",
			doc:     `{"kubernetesVersion": "latest", "nodes": []}`,
			problem: `kubernetesVersion "latest" is not a valid version`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestDecode_UnknownRoleAndAuthAccepted(t *testing.T) {
	t.Parallel()

	d, err := Decode([]byte(`{"nodes": [{"role": "ETCD", "ipAddress": "10.0.0.1", "username": "u", "authType": "KERBEROS"}]}`))
	require.NoError(t, err)
	assert.Equal(t, Role("ETCD"), d.Nodes[0].Role)
	assert.Equal(t, AuthType("KERBEROS"), d.Nodes[0].AuthType)
}

func TestDecode_VersionNormalization(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"1.30.4":  "v1.30.4",
		"v1.29.0": "v1.29.0",
		"1.28":    "v1.28.0",
	} {
		d, err := Decode([]byte(`{"kubernetesVersion": "` + in + `", "nodes": []}`))
		require.NoError(t, err)
		assert.Equal(t, want, d.KubernetesVersion)
	}
}
