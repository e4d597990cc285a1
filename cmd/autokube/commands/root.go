// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the autokube CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "autokube",
		Short:         "Provision Kubernetes clusters on existing machines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Run commands
	cmd.AddCommand(Provision())
	cmd.AddCommand(Probe())
	cmd.AddCommand(Inventory())
	cmd.AddCommand(Serve())

	// Utility commands
	cmd.AddCommand(Version())

	return cmd
}
