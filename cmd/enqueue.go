package cmd

import (
	"context"

	"github.com/ethpandaops/parcelsight/pkg/redis"
	"github.com/ethpandaops/parcelsight/pkg/tasks"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	enqueueParcels []string
	enqueueRunID   string
)

// enqueueCmd represents the enqueue command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Enqueue one analysis task per parcel for the workers",
	Long: `Enqueue loads the source tables to resolve the parcels, then puts one
parcel analysis task per parcel on the queue under a shared run id.

Examples:
  # Enqueue every parcel
  parcelsight enqueue --config config.yaml

  # Enqueue one parcel under an explicit run id
  parcelsight enqueue --parcel P001 --run-id nightly-2024-06-01`,
	RunE: runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().StringSliceVar(&enqueueParcels, "parcel", nil, "Parcel to enqueue (repeatable, default all)")
	enqueueCmd.Flags().StringVar(&enqueueRunID, "run-id", "", "Run id shared by the tasks (default a new uuid)")
}

func runEnqueue(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfig()
	if err != nil {
		return err
	}

	if err := config.Redis.Validate(); err != nil {
		return err
	}

	if len(enqueueParcels) > 0 {
		config.Engine.Batch.Parcels = enqueueParcels
	}

	e, err := buildEngine(config)
	if err != nil {
		return err
	}

	parcels, err := e.BatchParcels()
	if err != nil {
		return err
	}

	runID := enqueueRunID
	if runID == "" {
		runID = uuid.New().String()
	}

	opt, err := config.Redis.Options()
	if err != nil {
		return err
	}

	queue := tasks.NewQueueManager(redis.AsynqOptions(opt), config.Redis.PrefixQueue(tasks.QueueAnalysis))
	defer func() {
		if closeErr := queue.Close(); closeErr != nil {
			logger.WithError(closeErr).Error("Failed to close queue manager")
		}
	}()

	n, err := queue.EnqueueRun(context.Background(), runID, parcels)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"enqueued": n,
	}).Info("Enqueued parcel analysis tasks")

	return nil
}
