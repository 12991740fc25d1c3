package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethpandaops/parcelsight/internal/testutil"
	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/ethpandaops/parcelsight/pkg/engine"
	"github.com/ethpandaops/parcelsight/pkg/records"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, dataset *records.Dataset) *fiber.App {
	t.Helper()

	e, err := engine.New(testutil.Logger(), engine.DefaultConfig(), dataset)
	require.NoError(t, err)

	return NewApp(e, 0.2, testutil.Logger())
}

func get(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body), string(data))

	return resp.StatusCode, body
}

func TestAPI_Routes(t *testing.T) {
	app := newTestApp(t, testutil.Dataset())

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		check          func(t *testing.T, body map[string]any)
	}{
		{
			name:           "list parcels",
			path:           "/api/v1/parcels",
			expectedStatus: fiber.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, []any{"P001", "P002", "P003"}, body["parcels"])
				assert.InDelta(t, 3, body["total"], 0)
			},
		},
		{
			name:           "parcel patterns",
			path:           "/api/v1/parcels/P001/patterns",
			expectedStatus: fiber.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "P001", body["parcelle_id"])
				assert.Equal(t, string(analysis.StatusOK), body["status"])
				assert.Contains(t, body, "result")
			},
		},
		{
			name:           "unknown parcel patterns",
			path:           "/api/v1/parcels/P404/patterns",
			expectedStatus: fiber.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Contains(t, body["error"], "P404")
			},
		},
		{
			name:           "parcel factors",
			path:           "/api/v1/parcels/P001/factors",
			expectedStatus: fiber.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "P001", body["parcelle_id"])
				assert.NotEmpty(t, body["factors"])
			},
		},
		{
			name:           "unknown parcel factors",
			path:           "/api/v1/parcels/P404/factors",
			expectedStatus: fiber.StatusNotFound,
		},
		{
			name:           "fused table filtered by parcel",
			path:           "/api/v1/fused?parcel=P002",
			expectedStatus: fiber.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				rows, ok := body["rows"].([]any)
				require.True(t, ok)
				require.NotEmpty(t, rows)

				for _, r := range rows {
					row, ok := r.(map[string]any)
					require.True(t, ok)
					assert.Equal(t, "P002", row["parcelle_id"])
					assert.NotNil(t, row["rendement"])
				}
			},
		},
		{
			name:           "risk for parcel without soil",
			path:           "/api/v1/risk?parcel=P003",
			expectedStatus: fiber.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Empty(t, body["scores"])
				assert.Len(t, body["skipped"], 3)
			},
		},
		{
			name:           "risk for unknown parcel",
			path:           "/api/v1/risk?parcel=P404",
			expectedStatus: fiber.StatusNotFound,
		},
		{
			name:           "correlations",
			path:           "/api/v1/correlations",
			expectedStatus: fiber.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				cols, ok := body["columns"].([]any)
				require.True(t, ok)
				assert.Equal(t, records.ColRendement, cols[0])
			},
		},
		{
			name:           "limiting factors",
			path:           "/api/v1/correlations/limiting",
			expectedStatus: fiber.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.InDelta(t, 0.2, body["threshold"], 1e-12)
			},
		},
		{
			name:           "batch report",
			path:           "/api/v1/report",
			expectedStatus: fiber.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.NotEmpty(t, body["run_id"])
				assert.Equal(t, engine.TriggerAPI, body["trigger"])
				assert.Len(t, body["parcel_reports"], 3)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, app, tt.path)
			assert.Equal(t, tt.expectedStatus, status)

			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestAPI_DataIntegrityIsUnprocessable(t *testing.T) {
	dataset := testutil.Dataset()

	yields := dataset.Yield[:0]
	for _, y := range dataset.Yield {
		if y.Date.Year() < 2023 {
			yields = append(yields, y)
		}
	}
	dataset.Yield = yields

	app := newTestApp(t, dataset)

	for _, path := range []string{"/api/v1/fused", "/api/v1/parcels/P001/factors"} {
		t.Run(path, func(t *testing.T) {
			status, body := get(t, app, path)
			assert.Equal(t, fiber.StatusUnprocessableEntity, status)
			assert.Equal(t, analysis.StageFusion, body["stage"])
		})
	}

	// pattern analysis reads the yield history only
	status, _ := get(t, app, "/api/v1/parcels/P001/patterns")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "unknown parcel", err: fmt.Errorf("wrapped: %w", engine.ErrUnknownParcel), expected: fiber.StatusNotFound},
		{
			name:     "empty dataset",
			err:      analysis.NewError(analysis.ErrEmptyDataset, analysis.StageFactors, "P001", "no rows"),
			expected: fiber.StatusUnprocessableEntity,
		},
		{
			name:     "data integrity",
			err:      analysis.NewError(analysis.ErrDataIntegrity, analysis.StageFusion, "", "no rows"),
			expected: fiber.StatusUnprocessableEntity,
		},
		{
			name:     "dimension mismatch",
			err:      analysis.NewError(analysis.ErrDimensionMismatch, analysis.StageCorrelation, "", "2 columns, 3 rows"),
			expected: fiber.StatusInternalServerError,
		},
		{name: "other", err: errors.New("boom"), expected: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusCode(tt.err))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, (&Config{}).Validate())
	assert.NoError(t, (&Config{Enabled: true, Addr: ":8080"}).Validate())
	assert.ErrorIs(t, (&Config{Enabled: true}).Validate(), ErrAPIAddrRequired)
}
