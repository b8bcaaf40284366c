// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"
	"time"

	"github.com/BaSui01/agentorch/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector Prometheus 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 任务指标
	taskTotal    *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	taskAttempts *prometheus.HistogramVec
	tokensUsed   *prometheus.CounterVec

	// 工作流指标
	workflowTotal    *prometheus.CounterVec
	workflowDuration *prometheus.HistogramVec
	workflowTasks    *prometheus.CounterVec

	// 流式会话指标
	streamSessions *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器，reg 为 nil 时注册到默认 Registry
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 任务指标
	c.taskTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_executions_total",
			Help:      "Total number of agent task executions",
		},
		[]string{"agent", "provider", "status", "error_kind"},
	)

	c.taskDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Agent task duration in seconds, retries included",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"agent", "provider"},
	)

	c.taskAttempts = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_attempts",
			Help:      "Provider attempts per task",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
		[]string{"agent"},
	)

	c.tokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "type"}, // type: input, output
	)

	// 工作流指标
	c.workflowTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_executions_total",
			Help:      "Total number of workflow executions",
		},
		[]string{"workflow", "state"},
	)

	c.workflowDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Workflow wall-clock duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"workflow"},
	)

	c.workflowTasks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_tasks_total",
			Help:      "Workflow tasks by outcome",
		},
		[]string{"workflow", "outcome"}, // outcome: succeeded, failed, skipped
	)

	// 流式会话指标
	c.streamSessions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_sessions_total",
			Help:      "Streaming sessions by outcome",
		},
		[]string{"agent", "outcome"}, // outcome: completed, error, cancelled
	)

	return c
}

// =============================================================================
// 🌐 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// 🎭 任务指标记录
// =============================================================================

// ObserveTask 记录一次任务执行
func (c *Collector) ObserveTask(agent, provider string, success bool, kind string, duration time.Duration, usage types.TokenUsage, attempts int) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.taskTotal.WithLabelValues(agent, provider, status, kind).Inc()
	c.taskDuration.WithLabelValues(agent, provider).Observe(duration.Seconds())
	if attempts > 0 {
		c.taskAttempts.WithLabelValues(agent).Observe(float64(attempts))
	}
	if usage.InputTokens > 0 {
		c.tokensUsed.WithLabelValues(provider, "input").Add(float64(usage.InputTokens))
	}
	if usage.OutputTokens > 0 {
		c.tokensUsed.WithLabelValues(provider, "output").Add(float64(usage.OutputTokens))
	}
}

// =============================================================================
// 🔀 工作流指标记录
// =============================================================================

// RecordWorkflow 实现 WorkflowSink
func (c *Collector) RecordWorkflow(s WorkflowSummary) {
	c.workflowTotal.WithLabelValues(s.WorkflowName, s.State).Inc()
	c.workflowDuration.WithLabelValues(s.WorkflowName).Observe(float64(s.TotalDurationMs) / 1000)
	c.workflowTasks.WithLabelValues(s.WorkflowName, "succeeded").Add(float64(s.SucceededTasks))
	c.workflowTasks.WithLabelValues(s.WorkflowName, "failed").Add(float64(s.FailedTasks))
	c.workflowTasks.WithLabelValues(s.WorkflowName, "skipped").Add(float64(s.SkippedTasks))
}

// RecordStreamSession 记录一次流式会话的结局
func (c *Collector) RecordStreamSession(agent, outcome string) {
	c.streamSessions.WithLabelValues(agent, outcome).Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码归类为 2xx/3xx/4xx/5xx
func statusCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return strconv.Itoa(code)
	}
}
