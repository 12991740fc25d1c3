package api

import (
	"context"

	"github.com/ethpandaops/parcelsight/pkg/engine"
	"github.com/ethpandaops/parcelsight/pkg/factors"
	"github.com/ethpandaops/parcelsight/pkg/fusion"
	"github.com/ethpandaops/parcelsight/pkg/patterns"
	"github.com/ethpandaops/parcelsight/pkg/risk"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// Analytics is the engine surface served by the API
type Analytics interface {
	Parcels() []string
	HasParcel(parcelID string) bool
	Fuse() (*fusion.Table, error)
	Features() (*fusion.Table, error)
	ScoreRisk(table *fusion.Table) (*risk.Result, error)
	AnalyzeYieldPattern(parcelID string) *patterns.Report
	RankYieldFactors(ctx context.Context, parcelID string) ([]factors.Importance, error)
	CorrelationMatrix() (*factors.Matrix, error)
	LimitingFactors() ([]factors.Correlation, error)
	Run(ctx context.Context, trigger string) (*engine.Report, error)
}

// ParcelsResponse lists the known parcels
type ParcelsResponse struct {
	Parcels []string `json:"parcels"`
	Total   int      `json:"total"`
}

// FactorsResponse holds a parcel's ranked yield factors
type FactorsResponse struct {
	ParcelID string               `json:"parcelle_id"`
	Factors  []factors.Importance `json:"factors"`
}

// LimitingResponse holds the factors weakly correlated with yield
type LimitingResponse struct {
	Threshold float64               `json:"threshold"`
	Factors   []factors.Correlation `json:"factors"`
}

type handlers struct {
	analytics Analytics
	threshold float64
	log       logrus.FieldLogger
}

func (h *handlers) register(router fiber.Router) {
	router.Get("/parcels", h.listParcels)
	router.Get("/parcels/:id/patterns", h.parcelPatterns)
	router.Get("/parcels/:id/factors", h.parcelFactors)
	router.Get("/fused", h.fused)
	router.Get("/risk", h.risk)
	router.Get("/correlations", h.correlations)
	router.Get("/correlations/limiting", h.limiting)
	router.Get("/report", h.report)
}

func (h *handlers) listParcels(c fiber.Ctx) error {
	parcels := h.analytics.Parcels()

	return c.Status(fiber.StatusOK).JSON(ParcelsResponse{Parcels: parcels, Total: len(parcels)})
}

// parcel returns the :id path parameter, or a 404 when the parcel is unknown
func (h *handlers) parcel(c fiber.Ctx) (string, error) {
	id := c.Params("id")
	if !h.analytics.HasParcel(id) {
		return "", fiber.NewError(fiber.StatusNotFound, "unknown parcel "+id)
	}

	return id, nil
}

func (h *handlers) parcelPatterns(c fiber.Ctx) error {
	id, err := h.parcel(c)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(h.analytics.AnalyzeYieldPattern(id))
}

func (h *handlers) parcelFactors(c fiber.Ctx) error {
	id, err := h.parcel(c)
	if err != nil {
		return err
	}

	ranked, err := h.analytics.RankYieldFactors(c.Context(), id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(FactorsResponse{ParcelID: id, Factors: ranked})
}

func (h *handlers) fused(c fiber.Ctx) error {
	table, err := h.analytics.Fuse()
	if err != nil {
		return err
	}

	if id := c.Query("parcel"); id != "" {
		if !h.analytics.HasParcel(id) {
			return fiber.NewError(fiber.StatusNotFound, "unknown parcel "+id)
		}

		table = table.Filter(id)
	}

	return c.Status(fiber.StatusOK).JSON(table)
}

func (h *handlers) risk(c fiber.Ctx) error {
	table, err := h.analytics.Features()
	if err != nil {
		return err
	}

	result, err := h.analytics.ScoreRisk(table)
	if err != nil {
		return err
	}

	if id := c.Query("parcel"); id != "" {
		if !h.analytics.HasParcel(id) {
			return fiber.NewError(fiber.StatusNotFound, "unknown parcel "+id)
		}

		result = filterRisk(result, id)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *handlers) correlations(c fiber.Ctx) error {
	m, err := h.analytics.CorrelationMatrix()
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(m)
}

func (h *handlers) limiting(c fiber.Ctx) error {
	limiting, err := h.analytics.LimitingFactors()
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(LimitingResponse{Threshold: h.threshold, Factors: limiting})
}

func (h *handlers) report(c fiber.Ctx) error {
	report, err := h.analytics.Run(c.Context(), engine.TriggerAPI)
	if err != nil {
		return err
	}

	h.log.WithField("run_id", report.RunID).Debug("Served batch report")

	return c.Status(fiber.StatusOK).JSON(report)
}

func filterRisk(result *risk.Result, parcelID string) *risk.Result {
	out := &risk.Result{Scores: []risk.Score{}, Skipped: []risk.Skipped{}}

	for _, s := range result.Scores {
		if s.ParcelID == parcelID {
			out.Scores = append(out.Scores, s)
		}
	}

	for _, s := range result.Skipped {
		if s.ParcelID == parcelID {
			out.Skipped = append(out.Skipped, s)
		}
	}

	return out
}
