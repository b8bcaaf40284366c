package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BaSui01/agentorch/internal/metrics"
	"github.com/BaSui01/agentorch/testutil/mocks"
	"github.com/BaSui01/agentorch/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 MetricsHandler 测试
// =============================================================================

type stubMetricsSource struct {
	snap   metrics.Snapshot
	active []metrics.ActiveWorkflow
}

func (s stubMetricsSource) ExportWorkflowMetrics() metrics.Snapshot  { return s.snap }
func (s stubMetricsSource) ListWorkflows() []metrics.ActiveWorkflow { return s.active }

func TestMetricsHandler_DerivedFields(t *testing.T) {
	src := stubMetricsSource{
		snap: metrics.Snapshot{
			TotalWorkflows:          8,
			SuccessfulWorkflows:     7,
			TotalTasks:              20,
			SuccessRate:             0.875,
			AverageDuration:         1250,
			AverageTasksPerWorkflow: 2.5,
		},
		active: []metrics.ActiveWorkflow{{ExecutionID: "e1", WorkflowName: "pattern-development", TaskCount: 2, StartedAt: time.Now()}},
	}
	h := NewMetricsHandler(src, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleMetrics(w, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var out MetricsResponse
	decodeData(t, w, &out)
	assert.Equal(t, "87.50%", out.Metrics.SuccessRatePercentage)
	assert.Equal(t, "1.25", out.Metrics.AverageDurationSeconds)
	assert.Equal(t, 8, out.Metrics.TotalWorkflows)
	assert.InDelta(t, 2.5, out.Metrics.AverageTasksPerWorkflow, 1e-9)
	require.Len(t, out.ActiveWorkflows, 1)
	assert.Equal(t, "e1", out.ActiveWorkflows[0].ExecutionID)
	assert.False(t, out.Timestamp.IsZero())
}

func TestMetricsHandler_Empty(t *testing.T) {
	h := NewMetricsHandler(stubMetricsSource{}, nil)

	w := httptest.NewRecorder()
	h.HandleMetrics(w, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))

	var out MetricsResponse
	decodeData(t, w, &out)
	assert.Equal(t, "0.00%", out.Metrics.SuccessRatePercentage)
	assert.Equal(t, "0.00", out.Metrics.AverageDurationSeconds)
	assert.NotNil(t, out.ActiveWorkflows)
	assert.Empty(t, out.ActiveWorkflows)
}

func TestMetricsHandler_ReflectsOrchestrator(t *testing.T) {
	o := newTestOrchestrator(t, mocks.NewMockProvider())
	_, err := o.ExecuteWorkflowByName(t.Context(), "pattern-development", workflow.Variables{"pattern": "p", "framework": "f"})
	require.NoError(t, err)

	h := NewMetricsHandler(o, zap.NewNop())
	w := httptest.NewRecorder()
	h.HandleMetrics(w, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))

	var out MetricsResponse
	decodeData(t, w, &out)
	assert.Equal(t, 1, out.Metrics.TotalWorkflows)
	assert.Equal(t, 2, out.Metrics.TotalTasks)
	assert.Equal(t, "100.00%", out.Metrics.SuccessRatePercentage)
}
