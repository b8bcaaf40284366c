package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// =============================================================================
// 📒 工作流账本
// =============================================================================

// WorkflowSummary 一次已完成工作流的摘要
type WorkflowSummary struct {
	ExecutionID     string    `json:"executionId"`
	WorkflowName    string    `json:"workflowName"`
	Success         bool      `json:"success"`
	State           string    `json:"state"`
	TotalDurationMs int64     `json:"totalDurationMs"`
	TaskCount       int       `json:"taskCount"`
	SucceededTasks  int       `json:"succeededTasks"`
	FailedTasks     int       `json:"failedTasks"`
	SkippedTasks    int       `json:"skippedTasks"`
	FinishedAt      time.Time `json:"finishedAt"`
}

// ActiveWorkflow 运行中工作流的视图
type ActiveWorkflow struct {
	ExecutionID    string    `json:"executionId"`
	WorkflowName   string    `json:"workflowName"`
	TaskCount      int       `json:"taskCount"`
	CompletedTasks int       `json:"completedTasks"`
	StartedAt      time.Time `json:"startedAt"`
}

// Snapshot 账本在读取时刻的聚合视图
type Snapshot struct {
	TotalWorkflows          int     `json:"totalWorkflows"`
	SuccessfulWorkflows     int     `json:"successfulWorkflows"`
	TotalTasks              int     `json:"totalTasks"`
	SuccessRate             float64 `json:"successRate"`
	AverageDuration         float64 `json:"averageDuration"`
	AverageTasksPerWorkflow float64 `json:"averageTasksPerWorkflow"`
	AgentExecutions         int     `json:"agentExecutions"`
	FailedAgentExecutions   int     `json:"failedAgentExecutions"`
}

// WorkflowSink 接收每条新记录（例如 Prometheus Collector）
type WorkflowSink interface {
	RecordWorkflow(summary WorkflowSummary)
}

// aggregate 不可变，每次追加都发布一个新值
type aggregate struct {
	workflows       int
	successes       int
	tasks           int
	totalDurationMs int64
	agentRuns       int
	agentFailures   int
}

// Ledger 进程级的工作流账本。
// 追加由 mu 串行化；Snapshot 通过 atomic.Pointer 无锁读取。
type Ledger struct {
	mu       sync.Mutex
	entries  []WorkflowSummary
	recorded map[string]struct{}
	agg      atomic.Pointer[aggregate]

	activeMu sync.RWMutex
	active   map[string]ActiveWorkflow

	sinks []WorkflowSink
}

// NewLedger 创建空账本
func NewLedger(sinks ...WorkflowSink) *Ledger {
	l := &Ledger{
		recorded: make(map[string]struct{}),
		active:   make(map[string]ActiveWorkflow),
		sinks:    sinks,
	}
	l.agg.Store(&aggregate{})
	return l
}

// Begin 将工作流加入活跃视图
func (l *Ledger) Begin(w ActiveWorkflow) {
	l.activeMu.Lock()
	l.active[w.ExecutionID] = w
	l.activeMu.Unlock()
}

// Progress 更新活跃工作流的已完成任务数
func (l *Ledger) Progress(executionID string, completedTasks int) {
	l.activeMu.Lock()
	if w, ok := l.active[executionID]; ok {
		w.CompletedTasks = completedTasks
		l.active[executionID] = w
	}
	l.activeMu.Unlock()
}

// Record 追加一条摘要并移出活跃视图。同一 ExecutionID 只记录一次。
func (l *Ledger) Record(s WorkflowSummary) {
	l.mu.Lock()
	if s.ExecutionID != "" {
		if _, dup := l.recorded[s.ExecutionID]; dup {
			l.mu.Unlock()
			return
		}
		l.recorded[s.ExecutionID] = struct{}{}
	}
	l.entries = append(l.entries, s)

	next := *l.agg.Load()
	next.workflows++
	if s.Success {
		next.successes++
	}
	next.tasks += s.TaskCount
	next.totalDurationMs += s.TotalDurationMs
	l.agg.Store(&next)
	l.mu.Unlock()

	l.activeMu.Lock()
	delete(l.active, s.ExecutionID)
	l.activeMu.Unlock()

	for _, sink := range l.sinks {
		sink.RecordWorkflow(s)
	}
}

// RecordAgentExecution 统计单 Agent 执行（同步或流式），不计入工作流
func (l *Ledger) RecordAgentExecution(success bool) {
	l.mu.Lock()
	next := *l.agg.Load()
	next.agentRuns++
	if !success {
		next.agentFailures++
	}
	l.agg.Store(&next)
	l.mu.Unlock()
}

// Snapshot 无锁读取聚合视图
func (l *Ledger) Snapshot() Snapshot {
	a := l.agg.Load()
	s := Snapshot{
		TotalWorkflows:        a.workflows,
		SuccessfulWorkflows:   a.successes,
		TotalTasks:            a.tasks,
		AgentExecutions:       a.agentRuns,
		FailedAgentExecutions: a.agentFailures,
	}
	if a.workflows > 0 {
		n := float64(a.workflows)
		s.SuccessRate = float64(a.successes) / n
		s.AverageDuration = float64(a.totalDurationMs) / n
		s.AverageTasksPerWorkflow = float64(a.tasks) / n
	}
	return s
}

// ListActive 返回运行中的工作流，按开始时间排序
func (l *Ledger) ListActive() []ActiveWorkflow {
	l.activeMu.RLock()
	out := make([]ActiveWorkflow, 0, len(l.active))
	for _, w := range l.active {
		out = append(out, w)
	}
	l.activeMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ExecutionID < out[j].ExecutionID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Entries 返回历史记录的副本
func (l *Ledger) Entries() []WorkflowSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]WorkflowSummary(nil), l.entries...)
}
