package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/BaSui01/agentorch/internal/metrics"
	"go.uber.org/zap"
)

// =============================================================================
// 📈 Metrics Handler
// =============================================================================

// WorkflowMetricsView 账本快照加上便于展示的派生字段
type WorkflowMetricsView struct {
	metrics.Snapshot
	SuccessRatePercentage  string `json:"successRatePercentage"`  // "87.50%"
	AverageDurationSeconds string `json:"averageDurationSeconds"` // "1.25"
}

// MetricsResponse GET /api/v1/metrics 的响应体
type MetricsResponse struct {
	Metrics         WorkflowMetricsView      `json:"metrics"`
	ActiveWorkflows []metrics.ActiveWorkflow `json:"activeWorkflows"`
	Timestamp       time.Time                `json:"timestamp"`
}

// MetricsSource 提供账本快照与活跃工作流
type MetricsSource interface {
	ExportWorkflowMetrics() metrics.Snapshot
	ListWorkflows() []metrics.ActiveWorkflow
}

// MetricsHandler 工作流指标处理器
type MetricsHandler struct {
	source MetricsSource
	logger *zap.Logger
}

// NewMetricsHandler 创建指标处理器
func NewMetricsHandler(source MetricsSource, logger *zap.Logger) *MetricsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsHandler{
		source: source,
		logger: logger.With(zap.String("handler", "metrics")),
	}
}

// HandleMetrics 返回账本聚合与运行中的工作流
// @Summary 工作流指标
// @Tags 指标
// @Produce json
// @Success 200 {object} Response{data=MetricsResponse}
// @Router /api/v1/metrics [get]
func (h *MetricsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := h.source.ExportWorkflowMetrics()
	active := h.source.ListWorkflows()
	if active == nil {
		active = []metrics.ActiveWorkflow{}
	}

	WriteSuccess(w, MetricsResponse{
		Metrics:         newMetricsView(snap),
		ActiveWorkflows: active,
		Timestamp:       time.Now(),
	})
}

func newMetricsView(s metrics.Snapshot) WorkflowMetricsView {
	return WorkflowMetricsView{
		Snapshot:               s,
		SuccessRatePercentage:  fmt.Sprintf("%.2f%%", s.SuccessRate*100),
		AverageDurationSeconds: fmt.Sprintf("%.2f", s.AverageDuration/1000),
	}
}
