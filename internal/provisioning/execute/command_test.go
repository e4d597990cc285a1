package execute

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_CombinedOutputAndExitCode(t *testing.T) {
	t.Parallel()
	requireShell(t)

	var stream bytes.Buffer
	out, err := ExecRunner{}.Run(context.Background(), Command{
		Name:   "sh",
		Args:   []string{"-c", `echo "$GREETING"; echo oops >&2; exit 3`},
		Env:    []string{"GREETING=hello"},
		Dir:    t.TempDir(),
		Stream: &stream,
	})

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())
	assert.Contains(t, string(out), "hello")
	assert.Contains(t, string(out), "oops")
	assert.Equal(t, string(out), stream.String())
}

func TestExecRunner_CancelTerminates(t *testing.T) {
	t.Parallel()
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := ExecRunner{WaitDelay: time.Second}.Run(ctx, Command{Name: "sh", Args: []string{"-c", "sleep 10"}})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
