package credentials

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/topology"
	"github.com/autokube/provisioner/internal/util/keygen"
)

func testKey(t *testing.T) string {
	t.Helper()
	kp, err := keygen.GenerateEd25519KeyPair()
	require.NoError(t, err)
	return string(kp.PrivateKey)
}

func TestMaterialize_Password(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	nodes := []topology.NodeSpec{{Username: "ubuntu", AuthType: topology.AuthPassword, Password: "s3cret"}}
	set, err := NewMaterializer(dir).Materialize(nodes, []string{"m1"})
	require.NoError(t, err)

	cred, ok := set.Get("m1")
	require.True(t, ok)
	assert.Equal(t, "s3cret", cred.Password())
	assert.Equal(t, "s3cret", cred.BecomePassword(), "password nodes reuse the SSH password for sudo")
	assert.Empty(t, cred.KeyPath)
	assert.NotContains(t, cred.String(), "s3cret")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "passwords are never written to disk")
}

func TestMaterialize_ExplicitBecomePassword(t *testing.T) {
	t.Parallel()

	nodes := []topology.NodeSpec{
		{Username: "u", AuthType: topology.AuthPassword, Password: "login", BecomePassword: "root-pw"},
		{Username: "u", AuthType: topology.AuthSSHKey, SSHKey: testKey(t)},
	}
	set, err := NewMaterializer(t.TempDir()).Materialize(nodes, []string{"m1", "w1"})
	require.NoError(t, err)
	defer func() { _ = set.Cleanup() }()

	m1, _ := set.Get("m1")
	w1, _ := set.Get("w1")
	assert.Equal(t, "root-pw", m1.BecomePassword())
	assert.Empty(t, w1.BecomePassword(), "key nodes expect passwordless sudo by default")
}

func TestMaterialize_SSHKeyPermissionsAndUniquePaths(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "keys")

	nodes := []topology.NodeSpec{
		{Username: "u", AuthType: topology.AuthSSHKey, SSHKey: testKey(t)},
		{Username: "u", AuthType: topology.AuthSSHKey, SSHKey: testKey(t)},
		{Username: "u", AuthType: topology.AuthSSHKey, SSHKey: testKey(t)},
	}
	set, err := NewMaterializer(dir).Materialize(nodes, []string{"m1", "w1", "w2"})
	require.NoError(t, err)
	defer func() { _ = set.Cleanup() }()

	paths := make(map[string]bool)
	for _, name := range []string{"m1", "w1", "w2"} {
		cred, ok := set.Get(name)
		require.True(t, ok, name)
		require.NotEmpty(t, cred.KeyPath)
		assert.False(t, paths[cred.KeyPath], "key path reused: %s", cred.KeyPath)
		paths[cred.KeyPath] = true

		info, err := os.Stat(cred.KeyPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
		assert.True(t, strings.HasPrefix(cred.Fingerprint, "SHA256:"))

		data, err := os.ReadFile(cred.KeyPath)
		require.NoError(t, err)
		assert.Equal(t, cred.PrivateKey(), data)
	}

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestMaterialize_InvalidNodesExcluded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		node    topology.NodeSpec
		wantErr string
	}{
		{name: "unknown auth type", node: topology.NodeSpec{AuthType: "KERBEROS"}, wantErr: `unsupported auth type "KERBEROS"`},
		{name: "empty password", node: topology.NodeSpec{AuthType: topology.AuthPassword}, wantErr: "requires a password"},
		{name: "empty key", node: topology.NodeSpec{AuthType: topology.AuthSSHKey, SSHKey: "  "}, wantErr: "requires a private key"},
		{name: "garbage key", node: topology.NodeSpec{AuthType: topology.AuthSSHKey, SSHKey: "ssh-key-placeholder"}, wantErr: "unusable private key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			nodes := []topology.NodeSpec{
				{Username: "u", AuthType: topology.AuthPassword, Password: "ok"},
				tt.node,
			}
			set, err := NewMaterializer(t.TempDir()).Materialize(nodes, []string{"m1", "bad"})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			fe, ok := fault.As(err)
			require.True(t, ok)
			assert.Equal(t, fault.KindCredential, fe.Kind)
			assert.Equal(t, "bad", fe.Node)

			require.NotNil(t, set)
			assert.Equal(t, 1, set.Len())
			_, ok = set.Get("m1")
			assert.True(t, ok)
			_, ok = set.Get("bad")
			assert.False(t, ok)
		})
	}
}

func TestSet_Cleanup(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	nodes := []topology.NodeSpec{
		{Username: "u", AuthType: topology.AuthSSHKey, SSHKey: testKey(t)},
		{Username: "u", AuthType: topology.AuthSSHKey},
	}
	set, err := NewMaterializer(dir).Materialize(nodes, []string{"m1", "w1"})
	require.Error(t, err, "second node has no key")
	require.Len(t, set.Files(), 1)

	require.NoError(t, set.Cleanup())
	require.NoError(t, set.Cleanup(), "cleanup is idempotent")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	var nilSet *Set
	assert.NoError(t, nilSet.Cleanup())
}

func TestSet_Env(t *testing.T) {
	t.Parallel()

	nodes := []topology.NodeSpec{
		{Username: "u", AuthType: topology.AuthPassword, Password: "p1"},
		{Username: "u", AuthType: topology.AuthSSHKey, SSHKey: testKey(t), BecomePassword: "b2"},
	}
	set, err := NewMaterializer(t.TempDir()).Materialize(nodes, []string{"m1", "w-1"})
	require.NoError(t, err)
	defer func() { _ = set.Cleanup() }()

	assert.ElementsMatch(t, []string{
		"AUTOKUBE_SSH_PASS_M1=p1",
		"AUTOKUBE_BECOME_PASS_M1=p1",
		"AUTOKUBE_BECOME_PASS_W_2D1=b2",
	}, set.Env())
}

func TestMaterialize_NameMismatch(t *testing.T) {
	t.Parallel()

	set, err := NewMaterializer(t.TempDir()).Materialize([]topology.NodeSpec{{}}, nil)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindCredential))
	assert.NotNil(t, set)
}

func TestMaterialize_SimilarNamesKeepSeparateSecrets(t *testing.T) {
	t.Parallel()

	t.Run("password", func(t *testing.T) {
		t.Parallel()
		nodes := []topology.NodeSpec{
			{Username: "u", AuthType: topology.AuthPassword, Password: "pw-A"},
			{Username: "u", AuthType: topology.AuthPassword, Password: "pw-B"},
		}
		set, err := NewMaterializer(t.TempDir()).Materialize(nodes, []string{"node-1", "node.1"})
		require.NoError(t, err)

		env := set.Env()
		require.Len(t, env, 4)
		names := make(map[string]string, len(env))
		for _, kv := range env {
			k, v, _ := strings.Cut(kv, "=")
			require.NotContains(t, names, k, "duplicate variable %s", k)
			names[k] = v
		}
		assert.Equal(t, "pw-A", names["AUTOKUBE_SSH_PASS_NODE_2D1"])
		assert.Equal(t, "pw-B", names["AUTOKUBE_SSH_PASS_NODE_2E1"])
	})

	t.Run("ssh key", func(t *testing.T) {
		t.Parallel()
		nodes := []topology.NodeSpec{
			{Username: "u", AuthType: topology.AuthSSHKey, SSHKey: testKey(t)},
			{Username: "u", AuthType: topology.AuthSSHKey, SSHKey: testKey(t)},
		}
		set, err := NewMaterializer(t.TempDir()).Materialize(nodes, []string{"node-1", "node.1"})
		require.NoError(t, err)
		defer func() { _ = set.Cleanup() }()

		a, _ := set.Get("node-1")
		b, _ := set.Get("node.1")
		require.NotNil(t, a)
		require.NotNil(t, b)
		assert.NotEqual(t, a.KeyPath, b.KeyPath)
		assert.Len(t, set.Files(), 2)
	})
}
