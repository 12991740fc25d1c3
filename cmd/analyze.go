package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/ethpandaops/parcelsight/pkg/engine"
	"github.com/ethpandaops/parcelsight/pkg/publisher"
	"github.com/ethpandaops/parcelsight/pkg/server"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	analyzeParcels []string
	analyzeOutput  string
	analyzePublish bool
)

// analyzeCmd represents the analyze command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the batch analysis once and print the report as JSON",
	Long: `Analyze loads the configured source tables, runs every analysis stage and
prints the batch report as JSON.

Examples:
  # Analyze every parcel
  parcelsight analyze --config config.yaml

  # Analyze two parcels and write the report to a file
  parcelsight analyze --parcel P001 --parcel P002 --output report.json

  # Also publish the report to Redis
  parcelsight analyze --publish`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringSliceVar(&analyzeParcels, "parcel", nil, "Parcel to analyze (repeatable, default all)")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "Write the report to this file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzePublish, "publish", false, "Publish the report to Redis")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfig()
	if err != nil {
		return err
	}

	if len(analyzeParcels) > 0 {
		config.Engine.Batch.Parcels = analyzeParcels
	}

	e, err := buildEngine(config)
	if err != nil {
		return err
	}

	ctx := context.Background()

	report, err := e.Run(ctx, engine.TriggerCLI)
	if err != nil {
		return err
	}

	if analyzePublish || config.Publisher.Enabled {
		if err := publishReport(ctx, config, report); err != nil {
			return err
		}
	}

	out := os.Stdout
	if analyzeOutput != "" {
		f, err := os.Create(analyzeOutput)
		if err != nil {
			return err
		}
		defer f.Close()

		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	return enc.Encode(report)
}

func publishReport(ctx context.Context, config *server.Config, report *engine.Report) error {
	client, err := config.Redis.NewClient()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			logger.WithError(closeErr).Error("Failed to close redis client")
		}
	}()

	config.Publisher.Enabled = true

	p, err := publisher.NewPublisher(logger, &config.Publisher, client, &config.Redis)
	if err != nil {
		return err
	}

	return p.PublishReport(ctx, report)
}
