package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethpandaops/parcelsight/internal/testutil"
	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/ethpandaops/parcelsight/pkg/engine"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	reports map[string]*engine.ParcelReport
	err     error
}

func (s *stubAnalyzer) AnalyzeParcel(_ context.Context, parcelID string) (*engine.ParcelReport, error) {
	if s.err != nil {
		return nil, s.err
	}

	report, ok := s.reports[parcelID]
	if !ok {
		return nil, engine.ErrUnknownParcel
	}

	return report, nil
}

type stubSink struct {
	published []string
	err       error
}

func (s *stubSink) PublishParcel(_ context.Context, report *engine.ParcelReport) error {
	if s.err != nil {
		return s.err
	}

	s.published = append(s.published, report.ParcelID)

	return nil
}

func task(t *testing.T, parcelID string) *asynq.Task {
	t.Helper()

	tk, err := NewParcelTask(ParcelPayload{ParcelID: parcelID, RunID: "run-1", EnqueuedAt: time.Now()})
	require.NoError(t, err)

	return tk
}

func TestParcelPayload(t *testing.T) {
	p := ParcelPayload{ParcelID: testutil.ParcelA, RunID: "run-1"}
	assert.Equal(t, "run-1:P001", p.UniqueID())

	tk, err := NewParcelTask(p)
	require.NoError(t, err)
	assert.Equal(t, TypeParcelAnalysis, tk.Type())

	parsed, err := ParsePayload(tk)
	require.NoError(t, err)
	assert.Equal(t, p.ParcelID, parsed.ParcelID)
	assert.Equal(t, p.RunID, parsed.RunID)

	_, err = NewParcelTask(ParcelPayload{RunID: "run-1"})
	assert.ErrorIs(t, err, ErrMissingParcel)
}

func TestParsePayload_Invalid(t *testing.T) {
	tests := []struct {
		name          string
		payload       string
		expectedError error
	}{
		{name: "not json", payload: "{", expectedError: ErrInvalidPayload},
		{name: "no parcel", payload: `{"run_id":"run-1"}`, expectedError: ErrMissingParcel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePayload(asynq.NewTask(TypeParcelAnalysis, []byte(tt.payload)))
			assert.ErrorIs(t, err, tt.expectedError)
		})
	}
}

func TestTaskHandler_HandleParcelAnalysis(t *testing.T) {
	ok := &engine.ParcelReport{ParcelID: testutil.ParcelA}
	failed := &engine.ParcelReport{
		ParcelID: testutil.ParcelC,
		Failures: []engine.Failure{{
			ParcelID: testutil.ParcelC,
			Stage:    analysis.StageFactors,
			Status:   analysis.StatusFailed,
			Error:    "factors: parcel P003: empty dataset",
		}},
	}

	sinkErr := errors.New("connection refused")

	analyzer := &stubAnalyzer{reports: map[string]*engine.ParcelReport{
		testutil.ParcelA: ok,
		testutil.ParcelC: failed,
	}}

	tests := []struct {
		name          string
		task          *asynq.Task
		analyzer      Analyzer
		sink          *stubSink
		expectedError error
		skipRetry     bool
		published     []string
	}{
		{
			name:      "publishes report",
			task:      task(t, testutil.ParcelA),
			analyzer:  analyzer,
			sink:      &stubSink{},
			published: []string{testutil.ParcelA},
		},
		{
			name:          "stage failures are published and not retried",
			task:          task(t, testutil.ParcelC),
			analyzer:      analyzer,
			sink:          &stubSink{},
			expectedError: ErrStageFailures,
			skipRetry:     true,
			published:     []string{testutil.ParcelC},
		},
		{
			name:          "unknown parcel is not retried",
			task:          task(t, "P404"),
			analyzer:      analyzer,
			sink:          &stubSink{},
			expectedError: engine.ErrUnknownParcel,
			skipRetry:     true,
		},
		{
			name:          "malformed payload is not retried",
			task:          asynq.NewTask(TypeParcelAnalysis, []byte("{")),
			analyzer:      analyzer,
			sink:          &stubSink{},
			expectedError: ErrInvalidPayload,
			skipRetry:     true,
		},
		{
			name:          "sink errors are retried",
			task:          task(t, testutil.ParcelA),
			analyzer:      analyzer,
			sink:          &stubSink{err: sinkErr},
			expectedError: sinkErr,
		},
		{
			name:          "cancellation is retried",
			task:          task(t, testutil.ParcelA),
			analyzer:      &stubAnalyzer{err: context.Canceled},
			sink:          &stubSink{},
			expectedError: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTaskHandler(testutil.Logger(), tt.analyzer, tt.sink)
			err := h.HandleParcelAnalysis(context.Background(), tt.task)

			if tt.expectedError == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
			}

			assert.Equal(t, tt.published, tt.sink.published)
		})
	}
}

func TestTaskHandler_NilSink(t *testing.T) {
	analyzer := &stubAnalyzer{reports: map[string]*engine.ParcelReport{
		testutil.ParcelA: {ParcelID: testutil.ParcelA},
	}}

	h := NewTaskHandler(testutil.Logger(), analyzer, nil)
	assert.NoError(t, h.HandleParcelAnalysis(context.Background(), task(t, testutil.ParcelA)))
	assert.Contains(t, h.Routes(), TypeParcelAnalysis)
}
