package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/observability"
	"github.com/hibiken/asynq"
)

// QueueManager enqueues parcel analysis tasks
type QueueManager struct {
	client *asynq.Client
	queue  string
}

// NewQueueManager creates a queue manager writing to the given queue
func NewQueueManager(redisOpt asynq.RedisClientOpt, queue string) *QueueManager {
	return &QueueManager{
		client: asynq.NewClient(redisOpt),
		queue:  queue,
	}
}

// EnqueueParcel enqueues one parcel analysis task. The task id is derived from the run and
// the parcel, so enqueueing the same parcel twice in a run is rejected by Asynq.
func (q *QueueManager) EnqueueParcel(ctx context.Context, payload ParcelPayload, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	task, err := NewParcelTask(payload)
	if err != nil {
		return nil, err
	}

	defaultOpts := []asynq.Option{
		asynq.TaskID(payload.UniqueID()),
		asynq.Queue(q.queue),
		asynq.MaxRetry(3),
		asynq.Timeout(10 * time.Minute),
		asynq.Retention(24 * time.Hour),
	}

	info, err := q.client.EnqueueContext(ctx, task, append(defaultOpts, opts...)...)
	if err != nil {
		observability.RecordError("queue", "enqueue")
		return nil, fmt.Errorf("failed to enqueue parcel %s: %w", payload.ParcelID, err)
	}

	observability.RecordTaskEnqueued()

	return info, nil
}

// EnqueueRun enqueues one task per parcel under a shared run id
func (q *QueueManager) EnqueueRun(ctx context.Context, runID string, parcels []string) (int, error) {
	now := time.Now().UTC()

	for i, p := range parcels {
		if _, err := q.EnqueueParcel(ctx, ParcelPayload{ParcelID: p, RunID: runID, EnqueuedAt: now}); err != nil {
			return i, err
		}
	}

	return len(parcels), nil
}

// Close closes the queue manager
func (q *QueueManager) Close() error {
	return q.client.Close()
}
