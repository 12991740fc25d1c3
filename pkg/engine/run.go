package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/ethpandaops/parcelsight/pkg/factors"
	"github.com/ethpandaops/parcelsight/pkg/fusion"
	"github.com/ethpandaops/parcelsight/pkg/observability"
	"github.com/ethpandaops/parcelsight/pkg/pipeline"
	"github.com/ethpandaops/parcelsight/pkg/risk"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type runState struct {
	log    logrus.FieldLogger
	report *Report

	fused    *fusion.Table
	features *fusion.Table

	mu sync.Mutex
}

func (s *runState) fail(stage string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.report.Failures = append(s.report.Failures, newFailure(stage, "", err))
}

// Run executes every stage over the batch parcels in stage graph order. Stages of one level
// run concurrently and per-parcel work is bounded by the batch concurrency. Stage errors are
// recorded as failures in the report; only context cancellation aborts the run.
func (e *Engine) Run(ctx context.Context, trigger string) (*Report, error) {
	start := time.Now()

	parcels, err := e.BatchParcels()
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:         uuid.New().String(),
		GeneratedAt:   start.UTC(),
		Trigger:       trigger,
		Parcels:       parcels,
		ParcelReports: make([]*ParcelReport, len(parcels)),
		Failures:      []Failure{},
		Stages:        e.graph.Levels(),
	}

	for i, p := range parcels {
		report.ParcelReports[i] = &ParcelReport{ParcelID: p}
	}

	state := &runState{
		log: e.log.WithFields(logrus.Fields{
			"run_id":  report.RunID,
			"trigger": trigger,
		}),
		report: report,
	}

	state.log.WithField("parcels", len(parcels)).Info("Starting batch run")

	for _, level := range report.Stages {
		g, gctx := errgroup.WithContext(ctx)

		for _, stage := range level {
			g.Go(func() error {
				return e.runStage(gctx, stage, state)
			})
		}

		if err := g.Wait(); err != nil {
			observability.RecordBatchRun(trigger, "failed", len(report.Failures))

			return nil, fmt.Errorf("batch run %s aborted: %w", report.RunID, err)
		}
	}

	for _, pr := range report.ParcelReports {
		report.Failures = append(report.Failures, pr.Failures...)
	}

	status := "success"
	if report.Failed() {
		status = "partial"
	}

	observability.RecordBatchRun(trigger, status, len(report.Failures))

	state.log.WithFields(logrus.Fields{
		"failures": len(report.Failures),
		"duration": time.Since(start),
	}).Info("Batch run completed")

	return report, nil
}

// BatchParcels returns the sorted, deduplicated parcels a batch run covers: the configured
// selection, or every known parcel when none is configured.
func (e *Engine) BatchParcels() ([]string, error) {
	if len(e.cfg.Batch.Parcels) == 0 {
		return e.Parcels(), nil
	}

	parcels := slices.Clone(e.cfg.Batch.Parcels)
	slices.Sort(parcels)
	parcels = slices.Compact(parcels)

	for _, p := range parcels {
		if !e.HasParcel(p) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParcel, p)
		}
	}

	return parcels, nil
}

func (e *Engine) runStage(ctx context.Context, stage string, state *runState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	state.log.WithField("stage", stage).Debug("Running stage")

	switch stage {
	case analysis.StageValidation:
		if len(state.report.Parcels) == 0 {
			state.fail(stage, analysis.NewError(analysis.ErrNoData, stage, "", "dataset has no parcels"))
		}
	case analysis.StageFusion:
		table, err := e.Fuse()
		if err != nil {
			state.log.WithError(err).Warn("Fusion failed")
			state.fail(stage, err)

			return nil
		}

		state.fused = table
	case analysis.StageFeatures:
		table, err := e.Features()
		if err != nil {
			state.log.WithError(err).Warn("Feature table failed")
			state.fail(stage, err)

			return nil
		}

		state.features = table
	case analysis.StageRisk:
		return e.runRisk(state)
	case analysis.StagePatterns:
		return e.forEachParcel(ctx, state, func(_ context.Context, pr *ParcelReport) error {
			pr.Patterns = e.AnalyzeYieldPattern(pr.ParcelID)

			return nil
		})
	case analysis.StageFactors:
		if state.fused == nil {
			return nil
		}

		return e.forEachParcel(ctx, state, func(ctx context.Context, pr *ParcelReport) error {
			ranked, err := e.rankFactors(ctx, state.fused, pr.ParcelID)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}

				state.log.WithError(err).WithField("parcel", pr.ParcelID).Warn("Factor ranking failed")
				pr.fail(analysis.StageFactors, err)

				return nil
			}

			pr.Factors = ranked

			return nil
		})
	case analysis.StageCorrelation:
		m, err := e.CorrelationMatrix()
		if err != nil {
			state.log.WithError(err).Warn("Correlation failed")
			state.fail(stage, err)

			return nil
		}

		state.report.Correlation = m
		state.report.LimitingFactors = factors.LimitingFactors(m, e.cfg.Factors.CorrelationThreshold)
	default:
		return fmt.Errorf("%w: %s", pipeline.ErrUnknownStage, stage)
	}

	return nil
}

func (e *Engine) runRisk(state *runState) error {
	if state.features == nil {
		return nil
	}

	result, err := e.ScoreRisk(state.features)
	if err != nil {
		state.fail(analysis.StageRisk, err)

		return nil
	}

	if len(e.cfg.Batch.Parcels) > 0 {
		result = filterRisk(result, state.report.Parcels)
	}

	state.report.Risk = result

	return nil
}

func (e *Engine) forEachParcel(
	ctx context.Context,
	state *runState,
	fn func(ctx context.Context, pr *ParcelReport) error,
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Batch.Concurrency)

	for _, pr := range state.report.ParcelReports {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			return fn(gctx, pr)
		})
	}

	return g.Wait()
}

func filterRisk(result *risk.Result, parcels []string) *risk.Result {
	out := &risk.Result{
		Scores:  make([]risk.Score, 0, len(result.Scores)),
		Skipped: []risk.Skipped{},
	}

	for _, s := range result.Scores {
		if _, ok := slices.BinarySearch(parcels, s.ParcelID); ok {
			out.Scores = append(out.Scores, s)
		}
	}

	for _, s := range result.Skipped {
		if _, ok := slices.BinarySearch(parcels, s.ParcelID); ok {
			out.Skipped = append(out.Skipped, s)
		}
	}

	return out
}
