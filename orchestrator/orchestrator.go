package orchestrator

import (
	"context"
	"sync/atomic"

	"github.com/BaSui01/agentorch/agent"
	"github.com/BaSui01/agentorch/internal/metrics"
	"github.com/BaSui01/agentorch/llm"
	"github.com/BaSui01/agentorch/llm/streaming"
	"github.com/BaSui01/agentorch/types"
	"github.com/BaSui01/agentorch/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UsageEstimator fills in token usage for providers that report none.
type UsageEstimator interface {
	Estimate(input, output string) types.TokenUsage
}

// Deps are the collaborators an Orchestrator is built from. Agents and
// Provider are required.
type Deps struct {
	Agents    *agent.Registry
	Library   *workflow.Library
	Provider  llm.Provider
	Cache     workflow.CompletionCache
	Estimator UsageEstimator
	Collector *metrics.Collector
	// Ledger defaults to a fresh ledger that forwards to Collector.
	Ledger *metrics.Ledger
	Logger *zap.Logger
}

// Config groups the runtime limits of every execution path.
type Config struct {
	Executor  workflow.ExecutorConfig  `yaml:"executor" json:"executor"`
	Scheduler workflow.SchedulerConfig `yaml:"scheduler" json:"scheduler"`
	Stream    streaming.Config         `yaml:"stream" json:"stream"`
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		Executor:  workflow.DefaultExecutorConfig(),
		Scheduler: workflow.DefaultSchedulerConfig(),
		Stream:    streaming.DefaultConfig(),
	}
}

// Orchestrator is the single entry point for executing agents and
// workflows. It owns the metrics ledger for its lifetime.
type Orchestrator struct {
	agents    atomic.Pointer[agent.Registry]
	library   atomic.Pointer[workflow.Library]
	ledger    *metrics.Ledger
	executor  *workflow.Executor
	scheduler *workflow.Scheduler
	streamer  *streaming.Streamer
	logger    *zap.Logger
}

// New wires an Orchestrator.
func New(deps Deps, config Config) (*Orchestrator, error) {
	if deps.Agents == nil {
		return nil, types.NewValidationError("orchestrator: agent registry is required")
	}
	if deps.Provider == nil {
		return nil, types.NewValidationError("orchestrator: model provider is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	library := deps.Library
	if library == nil {
		library, _ = workflow.NewLibrary()
	}
	ledger := deps.Ledger
	if ledger == nil {
		var sinks []metrics.WorkflowSink
		if deps.Collector != nil {
			sinks = append(sinks, deps.Collector)
		}
		ledger = metrics.NewLedger(sinks...)
	}

	o := &Orchestrator{
		ledger: ledger,
		logger: logger.With(zap.String("component", "orchestrator")),
	}
	o.agents.Store(deps.Agents)
	o.library.Store(library)

	lookup := registryLookup{o}

	var execOpts []workflow.ExecutorOption
	if deps.Cache != nil {
		execOpts = append(execOpts, workflow.WithCompletionCache(deps.Cache))
	}
	if deps.Estimator != nil {
		execOpts = append(execOpts, workflow.WithUsageEstimator(deps.Estimator))
	}
	if deps.Collector != nil {
		execOpts = append(execOpts, workflow.WithTaskObserver(deps.Collector))
	}
	o.executor = workflow.NewExecutor(lookup, deps.Provider, config.Executor, logger, execOpts...)
	o.scheduler = workflow.NewScheduler(o.executor, ledger, config.Scheduler, logger)

	streamOpts := []streaming.Option{
		streaming.WithConfig(config.Stream),
		streaming.WithLogger(logger),
		streaming.WithExecutionRecorder(ledger),
	}
	if deps.Estimator != nil {
		streamOpts = append(streamOpts, streaming.WithUsageEstimator(deps.Estimator))
	}
	if deps.Collector != nil {
		streamOpts = append(streamOpts, streaming.WithSessionObserver(deps.Collector))
	}
	o.streamer = streaming.NewStreamer(lookup, deps.Provider, streamOpts...)

	o.logger.Info("orchestrator ready", deps.Agents.LogFields()...)
	return o, nil
}

// registryLookup always resolves against the current registry snapshot.
type registryLookup struct{ o *Orchestrator }

func (l registryLookup) Lookup(name string) (types.AgentConfig, error) {
	return l.o.agents.Load().Lookup(name)
}

// ExecuteAgent runs one agent once. An unknown agent is returned as a
// NOT_FOUND error; every other failure is reported in the TaskResult.
func (o *Orchestrator) ExecuteAgent(ctx context.Context, agentName, prompt string, taskCtx map[string]any) (workflow.TaskResult, error) {
	if _, err := o.agents.Load().Lookup(agentName); err != nil {
		return workflow.TaskResult{}, err
	}
	taskID := agentName + "-" + uuid.NewString()
	res := o.executor.Run(ctx, taskID, workflow.TaskSpec{
		ID:             taskID,
		AgentName:      agentName,
		PromptTemplate: prompt,
		Context:        taskCtx,
	}, nil)
	o.ledger.RecordAgentExecution(res.Success)
	return res, nil
}

// ExecuteWorkflow runs tmpl with vars. Only structural problems are
// returned as errors.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, tmpl workflow.Template, vars workflow.Variables) (*workflow.Result, error) {
	return o.scheduler.Execute(ctx, tmpl, vars)
}

// ExecuteWorkflowByName resolves name in the workflow library and runs it.
func (o *Orchestrator) ExecuteWorkflowByName(ctx context.Context, name string, vars workflow.Variables) (*workflow.Result, error) {
	tmpl, err := o.library.Load().Get(name)
	if err != nil {
		return nil, err
	}
	return o.ExecuteWorkflow(ctx, tmpl, vars)
}

// StreamAgentExecution opens a lazy streaming session. Nothing is sent to
// the provider until the first Next.
func (o *Orchestrator) StreamAgentExecution(ctx context.Context, agentName, prompt string, taskCtx map[string]any) *streaming.Session {
	return o.streamer.Stream(ctx, agentName, prompt, taskCtx)
}

// ListWorkflows returns the workflows currently running.
func (o *Orchestrator) ListWorkflows() []metrics.ActiveWorkflow {
	return o.ledger.ListActive()
}

// ExportWorkflowMetrics returns the ledger aggregate at call time.
func (o *Orchestrator) ExportWorkflowMetrics() metrics.Snapshot {
	return o.ledger.Snapshot()
}

// Agents returns the current agent registry snapshot.
func (o *Orchestrator) Agents() *agent.Registry { return o.agents.Load() }

// Library returns the current workflow library snapshot.
func (o *Orchestrator) Library() *workflow.Library { return o.library.Load() }

// Ledger returns the metrics ledger owned by this orchestrator.
func (o *Orchestrator) Ledger() *metrics.Ledger { return o.ledger }

// ReloadLibraries swaps in new snapshots. A nil argument keeps the current
// one. Agents are resolved per task, so tasks dispatched after the swap
// see the new registry.
func (o *Orchestrator) ReloadLibraries(reg *agent.Registry, lib *workflow.Library) {
	if reg != nil {
		o.agents.Store(reg)
	}
	if lib != nil {
		o.library.Store(lib)
	}
	o.logger.Info("libraries reloaded",
		zap.Int("agents", o.agents.Load().Len()),
		zap.Int("workflows", len(o.library.Load().Names())),
	)
}
