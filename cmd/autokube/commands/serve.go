package commands

import (
	"github.com/spf13/cobra"

	"github.com/autokube/provisioner/cmd/autokube/handlers"
)

// Serve returns the command that runs the HTTP run server.
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML file
//	--addr: Listen address (default: serve.addr from config)
func Serve() *cobra.Command {
	var configPath string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API",
		Long: `Start an HTTP server that runs provisioning on request.

Endpoints:
  GET  /health
  POST /api/runs?id=<cluster-id>[&mode=provision|probe|inventory]
  GET  /api/runs[?cluster=<cluster-id>]
  GET  /api/runs/<run-id>
  GET  /metrics

Runs of the same cluster are serialized. On shutdown in-flight runs are
cancelled and still clean up their credentials.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Serve(cmd.Context(), configPath, addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: environment only)")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: serve.addr)")

	return cmd
}
