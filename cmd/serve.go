package cmd

import (
	"context"

	"github.com/ethpandaops/parcelsight/pkg/server"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analytics API, metrics and scheduled recompute",
	Long: `Serve builds the analytics engine once and keeps it running behind the HTTP
API, the metrics endpoint and, when enabled, the scheduled batch recompute.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfig()
	if err != nil {
		return err
	}

	e, err := buildEngine(config)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(logger, config, e)
	if err != nil {
		return err
	}

	return srv.Start(context.Background())
}
