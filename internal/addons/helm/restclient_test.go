package helm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKubeconfig = `apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://10.0.0.1:6443
    insecure-skip-tls-verify: true
  name: cluster.local
contexts:
- context:
    cluster: cluster.local
    user: kubernetes-admin
  name: kubernetes-admin@cluster.local
current-context: kubernetes-admin@cluster.local
users:
- name: kubernetes-admin
  user:
    token: test-token
`

func TestInMemoryRESTClientGetter_ToRESTConfig(t *testing.T) {
	t.Parallel()
	getter := NewInMemoryRESTClientGetter([]byte(testKubeconfig), "kubesphere-system")

	restConfig, err := getter.ToRESTConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://10.0.0.1:6443", restConfig.Host)
	assert.Equal(t, "test-token", restConfig.BearerToken)

	again, err := getter.ToRESTConfig()
	require.NoError(t, err)
	assert.Same(t, restConfig, again)
}

func TestInMemoryRESTClientGetter_Namespace(t *testing.T) {
	t.Parallel()
	getter := NewInMemoryRESTClientGetter([]byte(testKubeconfig), "kubesphere-system")

	ns, _, err := getter.ToRawKubeConfigLoader().Namespace()
	require.NoError(t, err)
	assert.Equal(t, "kubesphere-system", ns)
}

func TestInMemoryRESTClientGetter_InvalidKubeconfig(t *testing.T) {
	t.Parallel()
	getter := NewInMemoryRESTClientGetter([]byte(`not valid yaml: {{{{`), "default")

	_, err := getter.ToRESTConfig()
	assert.Error(t, err)
}
