package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/agentorch/internal/metrics"
	"github.com/BaSui01/agentorch/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// TaskRunner executes a single task.
type TaskRunner interface {
	Run(ctx context.Context, taskID string, spec TaskSpec, vars Variables) TaskResult
}

// Ledger receives workflow lifecycle reports.
type Ledger interface {
	Begin(active metrics.ActiveWorkflow)
	Progress(executionID string, completedTasks int)
	Record(summary metrics.WorkflowSummary)
}

// SchedulerConfig bounds workflow execution.
type SchedulerConfig struct {
	// MaxConcurrency caps in-flight tasks per workflow run.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`
}

// DefaultSchedulerConfig returns the default scheduler settings.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{MaxConcurrency: 4}
}

// Scheduler validates a template's task graph and drives its tasks through
// a TaskRunner in dependency order with bounded concurrency.
type Scheduler struct {
	runner TaskRunner
	ledger Ledger
	config SchedulerConfig
	tracer trace.Tracer
	logger *zap.Logger
}

// NewScheduler creates a scheduler. ledger may be nil.
func NewScheduler(runner TaskRunner, ledger Ledger, config SchedulerConfig, logger *zap.Logger) *Scheduler {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultSchedulerConfig().MaxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		runner: runner,
		ledger: ledger,
		config: config,
		tracer: otel.Tracer(instrumentationName),
		logger: logger.With(zap.String("component", "workflow_scheduler")),
	}
}

type taskDone struct {
	index  int
	result TaskResult
}

// execution is the mutable state of one workflow run. It is owned by the
// coordinating goroutine; task goroutines only send on done.
type execution struct {
	id      string
	tmpl    Template
	graph   *Graph
	vars    Variables
	state   State
	results []TaskResult
	settled []bool
	waiting []int // unsettled dependency count
	blocker []int // first failed dependency, or -1
	ready   []int
	settles int
	done    chan taskDone
}

func (x *execution) transition(to State) {
	if !CanTransition(x.state, to) {
		panic(fmt.Sprintf("workflow %s: illegal transition %s -> %s", x.id, x.state, to))
	}
	x.state = to
}

// Execute runs tmpl with vars. Structural problems are returned as a
// ValidationError before any task is dispatched; task failures are
// reported inside the Result. Cancelling ctx stops dispatch, cancels
// in-flight tasks, and records undispatched tasks as CANCELLED.
func (s *Scheduler) Execute(ctx context.Context, tmpl Template, vars Variables) (*Result, error) {
	graph, err := BuildGraph(tmpl)
	if err != nil {
		return nil, err
	}

	n := graph.Len()
	x := &execution{
		id:      uuid.NewString(),
		tmpl:    tmpl,
		graph:   graph,
		vars:    vars,
		state:   StatePending,
		results: make([]TaskResult, n),
		settled: make([]bool, n),
		waiting: make([]int, n),
		blocker: make([]int, n),
		ready:   graph.Roots(),
		done:    make(chan taskDone, n),
	}
	for i := 0; i < n; i++ {
		x.waiting[i] = len(graph.Deps(i))
		x.blocker[i] = -1
	}

	ctx, span := s.tracer.Start(ctx, "workflow.execute",
		trace.WithAttributes(
			attribute.String("workflow.name", tmpl.Name),
			attribute.String("workflow.execution_id", x.id),
			attribute.Int("workflow.tasks", n),
		))
	defer span.End()

	logger := s.logger.With(zap.String("workflow", tmpl.Name), zap.String("execution_id", x.id))
	start := time.Now()
	x.transition(StateRunning)
	if s.ledger != nil {
		s.ledger.Begin(metrics.ActiveWorkflow{
			ExecutionID:  x.id,
			WorkflowName: tmpl.Name,
			TaskCount:    n,
			StartedAt:    start,
		})
	}
	logger.Info("workflow started", zap.Int("tasks", n), zap.Int("max_concurrency", s.config.MaxConcurrency))

	s.run(ctx, x)

	end := time.Now()
	for i := 0; i < n; i++ {
		if x.settled[i] {
			continue
		}
		// never dispatched because ctx ended
		if x.blocker[i] >= 0 {
			x.results[i] = x.blockedResult(i, end)
		} else {
			x.results[i] = cancelledResult(x, i, end, ctx.Err())
		}
	}

	x.transition(terminalState(x.results))
	res := &Result{
		ExecutionID:     x.id,
		WorkflowName:    tmpl.Name,
		Success:         x.state == StateSucceeded,
		State:           x.state,
		TaskResults:     x.results,
		TotalDurationMs: end.Sub(start).Milliseconds(),
		StartedAt:       start,
		FinishedAt:      end,
	}

	succeeded, failed, skipped := res.Counts()
	span.SetAttributes(
		attribute.String("workflow.state", string(res.State)),
		attribute.Int("workflow.failed", failed),
		attribute.Int("workflow.skipped", skipped),
	)
	if s.ledger != nil {
		s.ledger.Record(metrics.WorkflowSummary{
			ExecutionID:     res.ExecutionID,
			WorkflowName:    res.WorkflowName,
			Success:         res.Success,
			State:           string(res.State),
			TotalDurationMs: res.TotalDurationMs,
			TaskCount:       n,
			SucceededTasks:  succeeded,
			FailedTasks:     failed,
			SkippedTasks:    skipped,
			FinishedAt:      end,
		})
	}
	logger.Info("workflow finished",
		zap.String("state", string(res.State)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Int("skipped", skipped),
		zap.Int64("duration_ms", res.TotalDurationMs),
	)
	return res, nil
}

// run dispatches ready tasks and settles completions until nothing is left
// to do or ctx ends.
func (s *Scheduler) run(ctx context.Context, x *execution) {
	sem := semaphore.NewWeighted(int64(s.config.MaxConcurrency))
	inflight := 0

	for {
		for len(x.ready) > 0 && ctx.Err() == nil {
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}
			if ctx.Err() != nil {
				sem.Release(1)
				break
			}
			i := x.ready[0]
			x.ready = x.ready[1:]
			inflight++
			go func(i int, taskVars Variables) {
				defer sem.Release(1)
				res := s.runner.Run(ctx, x.graph.ID(i), x.tmpl.Tasks[i], taskVars)
				res.TaskID = x.graph.ID(i)
				x.done <- taskDone{index: i, result: res}
			}(i, x.taskVars(i))
		}

		if inflight == 0 {
			return
		}
		d := <-x.done
		inflight--
		x.settle(d.index, d.result)
		if s.ledger != nil {
			s.ledger.Progress(x.id, x.settles)
		}
	}
}

// settle records a terminal result for task i and releases or skips its
// dependents.
func (x *execution) settle(i int, res TaskResult) {
	queue := []taskDone{{index: i, result: res}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		x.results[cur.index] = cur.result
		x.settled[cur.index] = true
		x.settles++

		for _, d := range x.graph.Dependents(cur.index) {
			if !cur.result.Success && x.blocker[d] < 0 {
				x.blocker[d] = cur.index
			}
			x.waiting[d]--
			if x.waiting[d] > 0 {
				continue
			}
			if x.blocker[d] >= 0 {
				queue = append(queue, taskDone{index: d, result: x.blockedResult(d, time.Now())})
			} else {
				x.ready = append(x.ready, d)
			}
		}
	}
}

// taskVars exposes successful dependency outputs as {{dependencies.<id>}}.
func (x *execution) taskVars(i int) Variables {
	deps := x.graph.Deps(i)
	if len(deps) == 0 {
		return x.vars
	}
	out := make(Variables, len(x.vars)+1)
	for k, v := range x.vars {
		out[k] = v
	}
	outputs := make(map[string]any, len(deps))
	for _, j := range deps {
		outputs[x.graph.ID(j)] = x.results[j].Output
	}
	out[DependenciesKey] = outputs
	return out
}

// blockedResult records a task that never ran because a dependency did not
// succeed. A dependency interrupted by cancellation cancels its dependents
// instead of skipping them.
func (x *execution) blockedResult(i int, at time.Time) TaskResult {
	dep := x.results[x.blocker[i]]
	if dep.ErrorKind() == types.ErrCancelled {
		return cancelledResult(x, i, at, dep.Error)
	}
	return TaskResult{
		TaskID:     x.graph.ID(i),
		AgentName:  x.tmpl.Tasks[i].AgentName,
		StartedAt:  at,
		FinishedAt: at,
		Error:      types.NewSkippedError(x.graph.ID(x.blocker[i])),
	}
}

func cancelledResult(x *execution, i int, at time.Time, cause error) TaskResult {
	return TaskResult{
		TaskID:     x.graph.ID(i),
		AgentName:  x.tmpl.Tasks[i].AgentName,
		StartedAt:  at,
		FinishedAt: at,
		Error:      types.NewCancelledError(cause),
	}
}
