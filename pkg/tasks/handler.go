package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethpandaops/parcelsight/pkg/engine"
	"github.com/ethpandaops/parcelsight/pkg/observability"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

var (
	// ErrStageFailures is returned when a parcel analysis recorded stage failures
	ErrStageFailures = errors.New("parcel analysis recorded stage failures")
)

// Analyzer analyses one parcel
type Analyzer interface {
	AnalyzeParcel(ctx context.Context, parcelID string) (*engine.ParcelReport, error)
}

// Sink receives finished parcel reports
type Sink interface {
	PublishParcel(ctx context.Context, report *engine.ParcelReport) error
}

// TaskHandler handles parcel analysis tasks
type TaskHandler struct {
	log      logrus.FieldLogger
	analyzer Analyzer
	sink     Sink
	workerID string
}

// NewTaskHandler creates a task handler. sink may be nil, in which case reports are only logged.
func NewTaskHandler(log logrus.FieldLogger, analyzer Analyzer, sink Sink) *TaskHandler {
	workerID, err := os.Hostname()
	if err != nil {
		workerID = "worker-unknown"
	}

	return &TaskHandler{
		log:      log.WithField("component", "task-handler"),
		analyzer: analyzer,
		sink:     sink,
		workerID: workerID,
	}
}

// Routes returns the task type to handler mapping
func (h *TaskHandler) Routes() map[string]asynq.HandlerFunc {
	return map[string]asynq.HandlerFunc{
		TypeParcelAnalysis: h.HandleParcelAnalysis,
	}
}

// HandleParcelAnalysis analyses one parcel and publishes its report. Malformed payloads,
// unknown parcels and stage failures are deterministic and skip the retry queue; publishing
// errors are retried.
func (h *TaskHandler) HandleParcelAnalysis(ctx context.Context, t *asynq.Task) (err error) {
	observability.RecordTaskStart(h.workerID)

	defer func() {
		status := "success"
		if err != nil {
			status = "failed"
		}

		observability.RecordTaskComplete(h.workerID, status)
	}()

	payload, err := ParsePayload(t)
	if err != nil {
		observability.RecordError("task-handler", "payload")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	log := h.log.WithFields(logrus.Fields{
		"parcel": payload.ParcelID,
		"run_id": payload.RunID,
	})

	log.Debug("Starting parcel analysis")

	report, err := h.analyzer.AnalyzeParcel(ctx, payload.ParcelID)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownParcel) {
			return fmt.Errorf("parcel %s: %w: %w", payload.ParcelID, err, asynq.SkipRetry)
		}

		return err
	}

	if h.sink != nil {
		if err := h.sink.PublishParcel(ctx, report); err != nil {
			return err
		}
	}

	if len(report.Failures) > 0 {
		for _, f := range report.Failures {
			log.WithFields(logrus.Fields{
				"stage":  f.Stage,
				"status": f.Status,
			}).Warn(f.Error)
		}

		return fmt.Errorf("parcel %s: %w: %w", payload.ParcelID, ErrStageFailures, asynq.SkipRetry)
	}

	log.Info("Parcel analysis completed")

	return nil
}
