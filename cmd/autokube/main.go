// Package main is the entry point for the autokube CLI.
//
// autokube provisions Kubernetes clusters on existing machines. It fetches a
// cluster's topology from the control plane, materializes node credentials,
// renders a Kubespray inventory, probes every node over SSH and installs the
// cluster with Kubespray or a Helm bootstrap before reporting the outcome.
//
// Commands: provision, probe, inventory, serve, version.
//
// For detailed usage information, run:
//
//	autokube --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/autokube/provisioner/cmd/autokube/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// An interrupt cancels the run; credential cleanup and reporting still happen.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
