package prerequisites

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withLookPath(t *testing.T, found map[string]string) {
	t.Helper()
	orig := lookPath
	lookPath = func(name string) (string, error) {
		if p, ok := found[name]; ok {
			return p, nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
	t.Cleanup(func() { lookPath = orig })
}

func TestCheck_Found(t *testing.T) {
	withLookPath(t, map[string]string{"ansible-playbook": "/usr/bin/ansible-playbook"})

	results := CheckKubespray(false)

	require.Len(t, results.Results, 1)
	assert.True(t, results.Results[0].Found)
	assert.Equal(t, "/usr/bin/ansible-playbook", results.Results[0].Path)
	assert.False(t, results.HasErrors())
	assert.NoError(t, results.Error())
}

func TestCheck_MissingRequired(t *testing.T) {
	withLookPath(t, nil)

	results := CheckKubespray(false)

	require.Len(t, results.Missing, 1)
	assert.True(t, results.HasErrors())
	err := results.Error()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required tools")
	assert.Contains(t, err.Error(), "ansible-playbook")
}

func TestCheck_MissingOptional(t *testing.T) {
	withLookPath(t, nil)

	results := Check([]Tool{{Name: "kubectl", Required: false}})

	assert.Len(t, results.Missing, 1)
	assert.False(t, results.HasErrors())
	assert.NoError(t, results.Error())
}

func TestCheckKubespray_PasswordAuth(t *testing.T) {
	withLookPath(t, map[string]string{"ansible-playbook": "/usr/bin/ansible-playbook"})

	results := CheckKubespray(true)

	require.Len(t, results.Results, 2)
	require.Len(t, results.Missing, 1)
	assert.Equal(t, "sshpass", results.Missing[0].Name)
	assert.ErrorContains(t, results.Error(), "sshpass")
}
