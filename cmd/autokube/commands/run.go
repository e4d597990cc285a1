package commands

import (
	"github.com/spf13/cobra"

	"github.com/autokube/provisioner/cmd/autokube/handlers"
	"github.com/autokube/provisioner/internal/orchestration"
)

// runFlags are shared by the commands that execute a run.
type runFlags struct {
	configPath string
	jsonOutput bool
}

func (f *runFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to configuration file (default: environment only)")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Print the run report as JSON")
}

// Provision returns the command that provisions a cluster.
//
// Required arguments:
//
//	cluster-id: Control-plane identifier of the cluster
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML file
//	--json: Print the run report as JSON
//	--stream: Stream installer output to stdout while it runs
func Provision() *cobra.Command {
	var flags runFlags
	var stream bool

	cmd := &cobra.Command{
		Use:   "provision <cluster-id>",
		Short: "Provision a cluster from its control-plane topology",
		Long: `Provision a Kubernetes cluster on the machines described by the control plane.

The run fetches the cluster descriptor, materializes node credentials,
writes a Kubespray inventory and group_vars overlays, probes every node
over SSH and installs the cluster. Unreachable workers are skipped with a
warning; an unreachable control-plane node aborts the run before anything
is installed. The outcome is reported back to the control plane.

Re-running after a failure is safe; the installers are idempotent.

Examples:
  # Provision cluster 42
  autokube provision 42

  # Use a config file and watch Kubespray's output
  autokube provision 42 -c autokube.yaml --stream`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Run(cmd.Context(), handlers.RunOptions{
				ConfigPath: flags.configPath,
				ClusterID:  args[0],
				Mode:       orchestration.ModeProvision,
				JSON:       flags.jsonOutput,
				Stream:     stream,
			})
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream installer output to stdout")

	return cmd
}

// Probe returns the command that checks SSH connectivity to every node.
func Probe() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "probe <cluster-id>",
		Short: "Check SSH connectivity to every node of a cluster",
		Long: `Check that every node of a cluster accepts its credentials over SSH.

Nothing is installed and nothing is reported to the control plane. The
command fails when a control-plane node is unreachable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Run(cmd.Context(), handlers.RunOptions{
				ConfigPath: flags.configPath,
				ClusterID:  args[0],
				Mode:       orchestration.ModeProbe,
				JSON:       flags.jsonOutput,
			})
		},
	}

	flags.bind(cmd)
	return cmd
}

// Inventory returns the command that renders the inventory and overlays.
func Inventory() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "inventory <cluster-id>",
		Short: "Render the Kubespray inventory and group_vars of a cluster",
		Long: `Render hosts.yaml and the group_vars overlays of a cluster into the
work directory without contacting any node.

Key files are removed when the command exits, so the rendered inventory is
meant for inspection rather than for running Kubespray by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Run(cmd.Context(), handlers.RunOptions{
				ConfigPath: flags.configPath,
				ClusterID:  args[0],
				Mode:       orchestration.ModeInventory,
				JSON:       flags.jsonOutput,
			})
		},
	}

	flags.bind(cmd)
	return cmd
}
