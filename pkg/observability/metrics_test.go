package observability

import (
	"context"
	"testing"

	"github.com/ethpandaops/parcelsight/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAnalysis(t *testing.T) {
	before := promtest.ToFloat64(AnalysesTotal.WithLabelValues("patterns", "ok"))

	RecordAnalysis("patterns", "ok", 0.01)
	RecordAnalysis("patterns", "ok", 0.02)

	assert.InDelta(t, before+2, promtest.ToFloat64(AnalysesTotal.WithLabelValues("patterns", "ok")), 1e-9)
}

func TestRecordBatchRun(t *testing.T) {
	RecordBatchRun("cli", "success", 3)
	assert.InDelta(t, 3.0, promtest.ToFloat64(BatchFailures), 1e-9)

	RecordFusedRows("fused", 42)
	assert.InDelta(t, 42.0, promtest.ToFloat64(FusedRows.WithLabelValues("fused")), 1e-9)
}

func TestRecordTask(t *testing.T) {
	RecordTaskStart("w1")
	assert.InDelta(t, 1.0, promtest.ToFloat64(TasksRunning.WithLabelValues("w1")), 1e-9)

	RecordTaskComplete("w1", "success")
	assert.InDelta(t, 0.0, promtest.ToFloat64(TasksRunning.WithLabelValues("w1")), 1e-9)
}

func TestMetricsServer_StartStop(t *testing.T) {
	StartMetricsServer(testutil.Logger(), "127.0.0.1:0")
	StartMetricsServer(testutil.Logger(), "127.0.0.1:0") // second call is a no-op

	require.NoError(t, StopMetricsServer(context.Background()))
	require.NoError(t, StopMetricsServer(context.Background()))
}
