package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/parcelsight/pkg/publisher"
	"github.com/ethpandaops/parcelsight/pkg/redis"
	"github.com/ethpandaops/parcelsight/pkg/tasks"
	"github.com/ethpandaops/parcelsight/pkg/worker"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the parcelsight worker service",
	Long:  `The worker service processes per-parcel analysis tasks from the queue.`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
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

	e, err := buildEngine(config)
	if err != nil {
		return err
	}

	opt, err := config.Redis.Options()
	if err != nil {
		return err
	}

	var sink tasks.Sink

	if config.Publisher.Enabled {
		client, err := config.Redis.NewClient()
		if err != nil {
			return err
		}
		defer client.Close()

		p, err := publisher.NewPublisher(logger, &config.Publisher, client, &config.Redis)
		if err != nil {
			return err
		}

		sink = p
	} else {
		logger.Warn("Publisher is disabled, parcel reports will only be logged")
	}

	handler := tasks.NewTaskHandler(logger, e, sink)

	svc, err := worker.NewService(
		logger,
		&config.Worker,
		redis.AsynqOptions(opt),
		config.Redis.PrefixQueue(tasks.QueueAnalysis),
		handler,
	)
	if err != nil {
		return err
	}

	if err := svc.Start(context.Background()); err != nil {
		return err
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	return svc.Stop()
}
