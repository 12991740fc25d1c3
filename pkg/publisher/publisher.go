package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/engine"
	"github.com/ethpandaops/parcelsight/pkg/observability"
	r "github.com/ethpandaops/parcelsight/pkg/redis"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Notification kinds
const (
	KindBatch  = "batch"
	KindParcel = "parcel"
)

var (
	// ErrReportNotFound is returned when a report key does not exist or has expired
	ErrReportNotFound = errors.New("report not found")
)

// Notification is published on the configured channel after each write.
type Notification struct {
	Kind        string    `json:"kind"`
	RunID       string    `json:"run_id,omitempty"`
	ParcelID    string    `json:"parcelle_id,omitempty"`
	Key         string    `json:"key"`
	PublishedAt time.Time `json:"published_at"`
}

// Publisher stores reports under prefixed keys:
//
//	<prefix>:report:latest        latest batch report, no expiry
//	<prefix>:report:run:<run_id>  batch report, expires after TTL
//	<prefix>:report:runs          sorted set of run ids scored by generation time
//	<prefix>:report:parcel:<id>   latest per-parcel report, expires after TTL
type Publisher struct {
	log    logrus.FieldLogger
	cfg    *Config
	redis  *redis.Client
	prefix *r.Config
}

// NewPublisher creates a publisher writing through client with keys prefixed per redisCfg
func NewPublisher(log logrus.FieldLogger, cfg *Config, client *redis.Client, redisCfg *r.Config) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid publisher configuration: %w", err)
	}

	return &Publisher{
		log:    log.WithField("component", "publisher"),
		cfg:    cfg,
		redis:  client,
		prefix: redisCfg,
	}, nil
}

// LatestKey returns the key of the latest batch report
func (p *Publisher) LatestKey() string {
	return p.prefix.PrefixKey("report:latest")
}

// RunKey returns the key of one run's report
func (p *Publisher) RunKey(runID string) string {
	return p.prefix.PrefixKey("report:run:" + runID)
}

// RunsKey returns the key of the run index
func (p *Publisher) RunsKey() string {
	return p.prefix.PrefixKey("report:runs")
}

// ParcelKey returns the key of a parcel's latest report
func (p *Publisher) ParcelKey(parcelID string) string {
	return p.prefix.PrefixKey("report:parcel:" + parcelID)
}

// ChannelName returns the prefixed notification channel
func (p *Publisher) ChannelName() string {
	return p.prefix.PrefixKey(p.cfg.Channel)
}

// PublishReport stores a batch report as the latest and as a per-run entry, trims the run
// index to the configured history and notifies subscribers.
func (p *Publisher) PublishReport(ctx context.Context, report *engine.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		observability.RecordReportPublished(KindBatch, "failed")
		return fmt.Errorf("failed to encode report %s: %w", report.RunID, err)
	}

	runKey := p.RunKey(report.RunID)

	_, err = p.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, p.LatestKey(), data, 0)
		pipe.Set(ctx, runKey, data, p.cfg.TTL)
		pipe.ZAdd(ctx, p.RunsKey(), redis.Z{
			Score:  float64(report.GeneratedAt.UnixMilli()),
			Member: report.RunID,
		})
		pipe.ZRemRangeByRank(ctx, p.RunsKey(), 0, -p.cfg.History-1)

		return nil
	})
	if err != nil {
		observability.RecordReportPublished(KindBatch, "failed")
		observability.RecordError("publisher", "write")

		return fmt.Errorf("failed to store report %s: %w", report.RunID, err)
	}

	observability.RecordReportPublished(KindBatch, "success")

	p.log.WithFields(logrus.Fields{
		"run_id": report.RunID,
		"bytes":  len(data),
	}).Info("Published batch report")

	return p.notify(ctx, Notification{Kind: KindBatch, RunID: report.RunID, Key: runKey})
}

// PublishParcel stores a per-parcel report and notifies subscribers.
func (p *Publisher) PublishParcel(ctx context.Context, report *engine.ParcelReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		observability.RecordReportPublished(KindParcel, "failed")
		return fmt.Errorf("failed to encode report for parcel %s: %w", report.ParcelID, err)
	}

	key := p.ParcelKey(report.ParcelID)

	if err := p.redis.Set(ctx, key, data, p.cfg.TTL).Err(); err != nil {
		observability.RecordReportPublished(KindParcel, "failed")
		observability.RecordError("publisher", "write")

		return fmt.Errorf("failed to store report for parcel %s: %w", report.ParcelID, err)
	}

	observability.RecordReportPublished(KindParcel, "success")

	p.log.WithField("parcel", report.ParcelID).Debug("Published parcel report")

	return p.notify(ctx, Notification{Kind: KindParcel, ParcelID: report.ParcelID, Key: key})
}

func (p *Publisher) notify(ctx context.Context, n Notification) error {
	n.PublishedAt = time.Now().UTC()

	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	if err := p.redis.Publish(ctx, p.ChannelName(), data).Err(); err != nil {
		observability.RecordError("publisher", "notify")

		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

// Latest reads back the latest batch report.
func (p *Publisher) Latest(ctx context.Context) (*engine.Report, error) {
	return p.readReport(ctx, p.LatestKey())
}

// Run reads back one run's report.
func (p *Publisher) Run(ctx context.Context, runID string) (*engine.Report, error) {
	return p.readReport(ctx, p.RunKey(runID))
}

// Runs returns the indexed run ids, newest first.
func (p *Publisher) Runs(ctx context.Context) ([]string, error) {
	return p.redis.ZRevRange(ctx, p.RunsKey(), 0, -1).Result()
}

func (p *Publisher) readReport(ctx context.Context, key string) (*engine.Report, error) {
	data, err := p.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrReportNotFound
		}

		return nil, err
	}

	var report engine.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report at %s: %w", key, err)
	}

	return &report, nil
}
