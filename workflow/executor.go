package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/agentorch/llm"
	"github.com/BaSui01/agentorch/llm/retry"
	"github.com/BaSui01/agentorch/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/agentorch/workflow"

// AgentLookup resolves agent names to configuration.
type AgentLookup interface {
	Lookup(name string) (types.AgentConfig, error)
}

// CompletionCache is an optional cache consulted before invoking a provider.
type CompletionCache interface {
	Get(ctx context.Context, req *llm.Request) (*llm.Completion, error)
	Set(ctx context.Context, req *llm.Request, completion *llm.Completion) error
}

// UsageEstimator fills in token usage when a provider reports none.
type UsageEstimator interface {
	Estimate(input, output string) types.TokenUsage
}

// TaskObserver receives one callback per finished task.
type TaskObserver interface {
	ObserveTask(agent, provider string, success bool, kind string, duration time.Duration, usage types.TokenUsage, attempts int)
}

// ExecutorConfig bounds a single task invocation.
type ExecutorConfig struct {
	// TaskTimeout applies to each provider attempt. Zero disables it.
	TaskTimeout time.Duration `yaml:"task_timeout" json:"task_timeout"`
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	Jitter       bool          `yaml:"jitter" json:"jitter"`
}

// DefaultExecutorConfig returns conservative defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		TaskTimeout:  2 * time.Minute,
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Executor runs one task: resolve the agent, render the prompt, invoke the
// provider with timeout and retry, and report the outcome as a TaskResult.
// It is the only place provider calls are retried.
type Executor struct {
	agents    AgentLookup
	provider  llm.Provider
	config    ExecutorConfig
	retryer   retry.Retryer
	cache     CompletionCache
	estimator UsageEstimator
	observer  TaskObserver
	tracer    trace.Tracer
	logger    *zap.Logger
}

// ExecutorOption configures optional Executor collaborators.
type ExecutorOption func(*Executor)

// WithCompletionCache enables completion caching.
func WithCompletionCache(c CompletionCache) ExecutorOption {
	return func(e *Executor) { e.cache = c }
}

// WithUsageEstimator enables usage estimation for providers that report none.
func WithUsageEstimator(u UsageEstimator) ExecutorOption {
	return func(e *Executor) { e.estimator = u }
}

// WithTaskObserver registers a task metrics sink.
func WithTaskObserver(o TaskObserver) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) ExecutorOption {
	return func(e *Executor) { e.tracer = t }
}

// NewExecutor creates a task executor.
func NewExecutor(agents AgentLookup, provider llm.Provider, config ExecutorConfig, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		agents:   agents,
		provider: provider,
		config:   config,
		tracer:   otel.Tracer(instrumentationName),
		logger:   logger.With(zap.String("component", "task_executor")),
	}
	e.retryer = retry.NewBackoffRetryer(&retry.RetryPolicy{
		MaxRetries:   config.MaxRetries,
		InitialDelay: config.InitialDelay,
		MaxDelay:     config.MaxDelay,
		Multiplier:   config.Multiplier,
		Jitter:       config.Jitter,
		ShouldRetry:  types.IsRetryable,
	}, logger)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes spec as task taskID. Failures are returned as data in the
// TaskResult, never as an error.
func (e *Executor) Run(ctx context.Context, taskID string, spec TaskSpec, vars Variables) TaskResult {
	start := time.Now()
	res := TaskResult{
		TaskID:    taskID,
		AgentName: spec.AgentName,
		StartedAt: start,
	}

	ctx, span := e.tracer.Start(ctx, "workflow.task",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("agent.name", spec.AgentName),
		))
	defer span.End()

	providerName := e.provider.Name()
	finish := func() TaskResult {
		res.FinishedAt = time.Now()
		res.DurationMs = res.FinishedAt.Sub(start).Milliseconds()
		kind := string(res.ErrorKind())
		if res.Success {
			span.SetStatus(codes.Ok, "")
		} else {
			span.SetStatus(codes.Error, res.Error.Message)
			span.SetAttributes(attribute.String("error.kind", kind))
		}
		span.SetAttributes(attribute.Int("task.attempts", res.Attempts))
		if e.observer != nil {
			e.observer.ObserveTask(spec.AgentName, providerName, res.Success, kind, res.FinishedAt.Sub(start), res.Usage, res.Attempts)
		}
		return res
	}

	agentCfg, err := e.agents.Lookup(spec.AgentName)
	if err != nil {
		res.Error = llm.ClassifyError(providerName, err)
		e.logger.Warn("agent lookup failed", zap.String("task_id", taskID), zap.Error(err))
		return finish()
	}
	span.SetAttributes(attribute.String("agent.provider", string(agentCfg.Provider)))

	prompt := Inject(spec.PromptTemplate, vars)
	req := llm.NewRequest(agentCfg, prompt, MergeContext(spec.Context, vars))

	if e.cache != nil {
		if cached, err := e.cache.Get(ctx, req); err == nil && cached != nil {
			e.applyCompletion(&res, req, cached)
			res.Cached = true
			return finish()
		}
	}

	completion, err := retry.DoWithResultTyped[*llm.Completion](e.retryer, ctx, func() (*llm.Completion, error) {
		res.Attempts++
		return e.invokeOnce(ctx, req, providerName)
	})
	if err != nil {
		if ctx.Err() != nil {
			res.Error = types.NewCancelledError(ctx.Err())
		} else {
			res.Error = llm.ClassifyError(providerName, err)
		}
		e.logger.Warn("task failed",
			zap.String("task_id", taskID),
			zap.String("agent", spec.AgentName),
			zap.Int("attempts", res.Attempts),
			zap.String("kind", string(res.Error.Code)),
			zap.Error(err),
		)
		return finish()
	}

	e.applyCompletion(&res, req, completion)
	if e.cache != nil {
		if err := e.cache.Set(ctx, req, completion); err != nil {
			e.logger.Debug("cache set failed", zap.Error(err))
		}
	}
	e.logger.Debug("task succeeded",
		zap.String("task_id", taskID),
		zap.String("agent", spec.AgentName),
		zap.Int("attempts", res.Attempts),
	)
	return finish()
}

// invokeOnce performs one provider attempt under the per-attempt timeout.
func (e *Executor) invokeOnce(ctx context.Context, req *llm.Request, providerName string) (*llm.Completion, error) {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if e.config.TaskTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, e.config.TaskTimeout)
	}
	defer cancel()

	completion, err := e.provider.Invoke(attemptCtx, req)
	switch {
	case err == nil && completion == nil:
		return nil, types.NewProviderError(providerName, false, errors.New("provider returned no completion"))
	case err == nil:
		return completion, nil
	case ctx.Err() != nil:
		return nil, types.NewCancelledError(ctx.Err())
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		return nil, types.NewTimeoutError(fmt.Sprintf("agent %s exceeded %s", req.Agent.Name, e.config.TaskTimeout)).
			WithProvider(providerName).
			WithCause(err)
	default:
		return nil, llm.ClassifyError(providerName, err)
	}
}

func (e *Executor) applyCompletion(res *TaskResult, req *llm.Request, c *llm.Completion) {
	res.Success = true
	res.Output = c.Text
	res.ToolUses = c.ToolUses
	res.StopReason = c.StopReason
	res.Usage = c.Usage
	if res.Usage.IsZero() && e.estimator != nil {
		res.Usage = e.estimator.Estimate(req.Agent.SystemPrompt+"\n"+req.UserMessage(), c.Text)
	}
}
