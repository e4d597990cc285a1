// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/autokube/provisioner/internal/config"
	"github.com/autokube/provisioner/internal/orchestration"
	"github.com/autokube/provisioner/internal/provisioning"
)

// Orchestrator interface for testing - matches orchestration.Orchestrator.
type Orchestrator interface {
	Run(ctx context.Context, req orchestration.Request) (*provisioning.Report, error)
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfig resolves configuration from file and environment.
	loadConfig = config.Load

	// newOrchestrator wires the production orchestrator.
	newOrchestrator = func(ctx context.Context, cfg *config.Config, opts orchestration.Options) (Orchestrator, error) {
		return orchestration.NewFromConfig(ctx, cfg, opts)
	}

	// stdout receives reports and streamed installer output.
	stdout io.Writer = os.Stdout

	// isTTY reports whether stdout is an interactive terminal.
	isTTY = isInteractiveTTY
)

// RunOptions are the inputs of Run.
type RunOptions struct {
	ConfigPath string
	ClusterID  string
	Mode       orchestration.Mode
	// JSON prints the report as JSON instead of a summary.
	JSON bool
	// Stream copies installer output to stdout while it runs.
	Stream bool
}

// Run executes one orchestration run and prints its report.
//
// A missing API token fails here, before any run starts. The returned error
// is the run's error; the report is printed either way.
func Run(ctx context.Context, opts RunOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Log, os.Stderr)
	orchOpts := orchestration.Options{
		Observer: provisioning.NewLogrusObserver(logger),
	}
	if opts.Stream {
		orchOpts.Stream = stdout
	}

	orch, err := newOrchestrator(ctx, cfg, orchOpts)
	if err != nil {
		return err
	}

	rep, runErr := orch.Run(ctx, orchestration.Request{
		ClusterID: opts.ClusterID,
		Mode:      opts.Mode,
	})
	if rep != nil {
		if err := printReport(stdout, rep, opts.JSON); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("%s of cluster %s failed: %w", opts.Mode, opts.ClusterID, runErr)
	}
	return nil
}
