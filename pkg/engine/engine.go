package engine

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/ethpandaops/parcelsight/pkg/factors"
	"github.com/ethpandaops/parcelsight/pkg/fusion"
	"github.com/ethpandaops/parcelsight/pkg/observability"
	"github.com/ethpandaops/parcelsight/pkg/patterns"
	"github.com/ethpandaops/parcelsight/pkg/pipeline"
	"github.com/ethpandaops/parcelsight/pkg/records"
	"github.com/ethpandaops/parcelsight/pkg/risk"
	"github.com/sirupsen/logrus"
)

// Engine runs the analytics stages over one loaded dataset. It holds no mutable state after
// construction and is safe for concurrent use.
type Engine struct {
	log      logrus.FieldLogger
	cfg      *Config
	fuser    *fusion.Fuser
	patterns *patterns.Analyzer
	factors  *factors.Analyzer
	graph    *pipeline.Graph
	parcels  []string
}

// New validates the configuration and the dataset and builds an engine over the dataset.
func New(log logrus.FieldLogger, cfg *Config, dataset *records.Dataset) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log = log.WithField("component", "engine")

	start := time.Now()

	fuser, err := fusion.NewFuser(log, &cfg.Fusion, dataset)

	observability.RecordAnalysis(analysis.StageValidation, string(analysis.StatusOf(err)), time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}

	pa, err := patterns.NewAnalyzer(log, &cfg.Patterns)
	if err != nil {
		return nil, err
	}

	fa, err := factors.NewAnalyzer(log, &cfg.Factors)
	if err != nil {
		return nil, err
	}

	graph := pipeline.NewGraph()
	if err := graph.Build(pipeline.DefaultStages()); err != nil {
		return nil, err
	}

	e := &Engine{
		log:      log,
		cfg:      cfg,
		fuser:    fuser,
		patterns: pa,
		factors:  fa,
		graph:    graph,
		parcels:  fuser.Dataset().Parcels(),
	}

	log.WithFields(logrus.Fields{
		"parcels":    len(e.parcels),
		"monitoring": len(fuser.Dataset().Monitoring),
		"weather":    len(fuser.Dataset().Weather),
		"soil":       len(fuser.Dataset().Soil),
		"yield":      len(fuser.Dataset().Yield),
	}).Info("Analytics engine ready")

	return e, nil
}

// Config returns the engine configuration
func (e *Engine) Config() *Config {
	return e.cfg
}

// Dataset returns the validated, normalized dataset
func (e *Engine) Dataset() *records.Dataset {
	return e.fuser.Dataset()
}

// Schema returns the column schema of the dataset
func (e *Engine) Schema() records.Schema {
	return e.fuser.Schema()
}

// Graph returns the stage graph
func (e *Engine) Graph() *pipeline.Graph {
	return e.graph
}

// Parcels returns every known parcel, sorted
func (e *Engine) Parcels() []string {
	return slices.Clone(e.parcels)
}

// HasParcel reports whether the parcel appears in the monitoring or yield table
func (e *Engine) HasParcel(parcelID string) bool {
	_, found := slices.BinarySearch(e.parcels, parcelID)

	return found
}

// Fuse returns the fused table: rows with a resolved rendement only.
func (e *Engine) Fuse() (*fusion.Table, error) {
	start := time.Now()

	table, err := e.fuser.Fuse()

	e.observe(analysis.StageFusion, err, start)

	if err == nil {
		observability.RecordFusedRows("fused", table.Len())
	}

	return table, err
}

// Features returns the risk-ready table: every monitoring row with weather and soil joined.
func (e *Engine) Features() (*fusion.Table, error) {
	start := time.Now()

	table, err := e.fuser.Features()

	e.observe(analysis.StageFeatures, err, start)

	if err == nil {
		observability.RecordFusedRows("features", table.Len())
	}

	return table, err
}

// ScoreRisk scores every row of a feature table.
func (e *Engine) ScoreRisk(table *fusion.Table) (*risk.Result, error) {
	start := time.Now()

	result, err := risk.ScoreTable(&e.cfg.Risk, table)

	e.observe(analysis.StageRisk, err, start)

	if err != nil {
		return nil, err
	}

	for _, s := range result.Skipped {
		observability.RecordRiskSkipped(s.Reason)
	}

	if len(result.Skipped) > 0 {
		e.log.WithFields(logrus.Fields{
			"scored":  len(result.Scores),
			"skipped": len(result.Skipped),
		}).Debug("Some rows could not be risk scored")
	}

	return result, nil
}

// AnalyzeYieldPattern decomposes the yield history of a parcel.
func (e *Engine) AnalyzeYieldPattern(parcelID string) *patterns.Report {
	start := time.Now()

	report := e.patterns.Analyze(parcelID, e.Dataset().YieldHistory(parcelID))

	observability.RecordAnalysis(analysis.StagePatterns, string(report.Status), time.Since(start).Seconds())

	return report
}

// RankYieldFactors ranks the drivers of yield variance for a parcel over the fused table.
func (e *Engine) RankYieldFactors(ctx context.Context, parcelID string) ([]factors.Importance, error) {
	table, err := e.Fuse()
	if err != nil {
		return nil, err
	}

	return e.rankFactors(ctx, table, parcelID)
}

func (e *Engine) rankFactors(ctx context.Context, table *fusion.Table, parcelID string) ([]factors.Importance, error) {
	start := time.Now()

	ranked, err := e.factors.RankFactors(ctx, table, parcelID)

	e.observe(analysis.StageFactors, err, start)

	return ranked, err
}

// CorrelationMatrix correlates yield with weather and soil factors across the dataset.
func (e *Engine) CorrelationMatrix() (*factors.Matrix, error) {
	start := time.Now()

	m, err := e.correlationMatrix()

	e.observe(analysis.StageCorrelation, err, start)

	return m, err
}

func (e *Engine) correlationMatrix() (*factors.Matrix, error) {
	ds := e.Dataset()

	m, err := factors.CorrelationMatrix(ds.Yield, e.fuser.Weather(), ds.Soil, &e.cfg.Factors)
	if err != nil {
		return nil, err
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// LimitingFactors returns the factors weakly correlated with yield.
func (e *Engine) LimitingFactors() ([]factors.Correlation, error) {
	m, err := e.CorrelationMatrix()
	if err != nil {
		return nil, err
	}

	return factors.LimitingFactors(m, e.cfg.Factors.CorrelationThreshold), nil
}

// AnalyzeParcel runs the per-parcel stages for one parcel. Stage errors are recorded in the
// report rather than returned; only an unknown parcel or a cancelled context is an error.
func (e *Engine) AnalyzeParcel(ctx context.Context, parcelID string) (*ParcelReport, error) {
	if !e.HasParcel(parcelID) {
		return nil, ErrUnknownParcel
	}

	report := &ParcelReport{ParcelID: parcelID}
	report.Patterns = e.AnalyzeYieldPattern(parcelID)

	table, err := e.Fuse()
	if err != nil {
		report.fail(analysis.StageFusion, err)

		return report, nil
	}

	report.Factors, err = e.rankFactors(ctx, table, parcelID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		report.fail(analysis.StageFactors, err)
	}

	return report, nil
}

func (e *Engine) observe(stage string, err error, start time.Time) {
	observability.RecordAnalysis(stage, string(analysis.StatusOf(err)), time.Since(start).Seconds())

	var aerr *analysis.Error
	if err != nil && !errors.As(err, &aerr) {
		observability.RecordError("engine", stage)
	}
}
