package execute

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// DefaultWaitDelay is how long a cancelled subprocess gets between SIGTERM
// and SIGKILL.
const DefaultWaitDelay = 30 * time.Second

// Command is a subprocess invocation. Args are passed as a vector, never
// through a shell.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env is appended to the parent environment.
	Env []string
	// Stream, when set, receives output as it is produced.
	Stream io.Writer
}

// CommandRunner runs a subprocess to completion and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands with os/exec. Cancelling the context sends
// SIGTERM and kills the process if it has not exited after WaitDelay.
type ExecRunner struct {
	WaitDelay time.Duration
}

// Run implements CommandRunner.
func (r ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	var buf bytes.Buffer
	var w io.Writer = &buf
	if c.Stream != nil {
		w = io.MultiWriter(&buf, c.Stream)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	err := cmd.Run()
	return buf.Bytes(), err
}
