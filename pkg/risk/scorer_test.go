package risk

import (
	"math"
	"testing"

	"github.com/ethpandaops/parcelsight/internal/testutil"
	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/ethpandaops/parcelsight/pkg/fusion"
	"github.com/ethpandaops/parcelsight/pkg/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorer_Score(t *testing.T) {
	s, err := NewScorer(DefaultConfig(), 8)
	require.NoError(t, err)

	tests := []struct {
		name           string
		observation    Observation
		expectedHydric float64
		expectedGlobal float64
	}{
		{
			name:           "typical",
			observation:    Observation{NDVI: 0.6, StressHydrique: 0.2, CapaciteRetentionEau: 0.4, RendementMoyen: 6},
			expectedHydric: 0.2 / (0.4 + 1e-6),
			expectedGlobal: 0.5*(0.2/(0.4+1e-6)) + 0.3*0.4 + 0.2*(1-6/(8+1e-6)),
		},
		{
			name:           "zero capacity stays finite",
			observation:    Observation{NDVI: 1, StressHydrique: 0.1, CapaciteRetentionEau: 0, RendementMoyen: 8},
			expectedHydric: 0.1 / 1e-6,
			expectedGlobal: 0.5*(0.1/1e-6) + 0.2*(1-8/(8+1e-6)),
		},
		{
			name:           "no stress",
			observation:    Observation{NDVI: 0.5, StressHydrique: 0, CapaciteRetentionEau: 0.3, RendementMoyen: 4},
			expectedHydric: 0,
			expectedGlobal: 0.15 + 0.2*(1-4/(8+1e-6)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := s.Score(tt.observation)
			assert.InDelta(t, tt.expectedHydric, score.RisqueHydrique, 1e-6)
			assert.InDelta(t, tt.expectedGlobal, score.RisqueGlobal, 1e-6)
			assert.GreaterOrEqual(t, score.RisqueHydrique, 0.0)
		})
	}
}

func TestScorer_HydricNonNegative(t *testing.T) {
	s, err := NewScorer(DefaultConfig(), 1)
	require.NoError(t, err)

	for _, stress := range []float64{0, 0.01, 0.5, 1, 10} {
		for _, capacity := range []float64{0, 0.05, 0.3, 1} {
			h := s.Hydric(stress, capacity)
			assert.GreaterOrEqual(t, h, 0.0)
			assert.False(t, analysis.IsMissing(h))
		}
	}
}

func TestScoreTable(t *testing.T) {
	f, err := fusion.NewFuser(testutil.Logger(), &fusion.Config{YieldJoin: fusion.YieldJoinDate, ForwardFill: true},
		testutil.Dataset())
	require.NoError(t, err)

	table, err := f.Features()
	require.NoError(t, err)

	result, err := ScoreTable(DefaultConfig(), table)
	require.NoError(t, err)

	// P003 has no soil, so no retention capacity
	assert.Len(t, result.Scores, 12)
	require.Len(t, result.Skipped, 3)
	for _, s := range result.Skipped {
		assert.Equal(t, testutil.ParcelC, s.ParcelID)
		assert.Equal(t, ReasonMissingCapacity, s.Reason)
	}

	for _, s := range result.Scores {
		assert.GreaterOrEqual(t, s.RisqueHydrique, 0.0)
	}

	// scoring never mutates the table
	again, err := ScoreTable(DefaultConfig(), table)
	require.NoError(t, err)
	assert.Equal(t, result, again)
}

func TestFromTable_SkipReasons(t *testing.T) {
	table := &fusion.Table{
		Numeric: []string{records.ColNDVI, records.ColStressHydrique, records.ColCapaciteRetentionEau},
		Rows: []fusion.Observation{
			{ParcelID: "P001", Values: analysis.Series{nan(), 0.1, 0.3}},
			{ParcelID: "P001", Values: analysis.Series{0.5, nan(), 0.3}},
			{ParcelID: "P001", Values: analysis.Series{0.5, 0.1, nan()}},
			{ParcelID: "P002", Values: analysis.Series{0.5, 0.1, 0.3}},
			{ParcelID: "P001", Values: analysis.Series{0.5, 0.1, 0.3}},
		},
		YieldMeans: map[string]float64{"P001": 6},
	}

	expected := []string{ReasonMissingNDVI, ReasonMissingStress, ReasonMissingCapacity, ReasonNoYieldHistory, ""}
	for i, want := range expected {
		_, reason := FromTable(table, i)
		assert.Equal(t, want, reason, "row %d", i)
	}

	result, err := ScoreTable(DefaultConfig(), table)
	require.NoError(t, err)
	require.Len(t, result.Scores, 1)
	assert.InDelta(t, 0.5*0.1/(0.3+1e-6)+0.3*0.5+0.2*(1-6/(6+1e-6)), result.Scores[0].RisqueGlobal, 1e-9)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{name: "defaults", config: *DefaultConfig()},
		{name: "negative weight", config: Config{Weights: Weights{Hydric: -1, Vegetation: 1}, Epsilon: 1e-6},
			wantErr: ErrNegativeWeight},
		{name: "all zero", config: Config{Epsilon: 1e-6}, wantErr: ErrZeroWeights},
		{name: "zero epsilon", config: Config{Weights: Weights{Hydric: 1}}, wantErr: ErrInvalidEpsilon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func nan() float64 {
	return math.NaN()
}
