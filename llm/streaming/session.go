// Package streaming drives a single agent call as a lazily produced,
// back-pressured and cancellable sequence of events.
package streaming

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/agentorch/llm"
	"github.com/BaSui01/agentorch/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/agentorch/llm/streaming"

// EventKind discriminates stream events.
type EventKind string

const (
	EventContent EventKind = "content"
	EventTool    EventKind = "tool"
	EventEnd     EventKind = "end"
	EventError   EventKind = "error"
)

// Event is one element of a streaming session.
type Event struct {
	Kind         EventKind             `json:"type"`
	Text         string                `json:"content,omitempty"`
	Tool         *types.ToolInvocation `json:"tool,omitempty"`
	Usage        types.TokenUsage      `json:"usage,omitempty"`
	FinishReason string                `json:"finishReason,omitempty"`
	Err          *types.Error          `json:"error,omitempty"`
}

// Terminal reports whether no event follows e.
func (e Event) Terminal() bool {
	return e.Kind == EventEnd || e.Kind == EventError
}

// Session outcomes reported to SessionObserver.
const (
	OutcomeCompleted = "completed"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// AgentLookup resolves agent names to configuration.
type AgentLookup interface {
	Lookup(name string) (types.AgentConfig, error)
}

// UsageEstimator fills in token usage when the provider reports none.
type UsageEstimator interface {
	Estimate(input, output string) types.TokenUsage
}

// ExecutionRecorder counts finished agent executions.
type ExecutionRecorder interface {
	RecordAgentExecution(success bool)
}

// SessionObserver receives one callback per finished session.
type SessionObserver interface {
	RecordStreamSession(agent, outcome string)
}

// Config bounds a streaming session.
type Config struct {
	// StreamTimeout caps the whole session. Zero disables it.
	StreamTimeout time.Duration `yaml:"stream_timeout" json:"stream_timeout"`
}

// DefaultConfig returns the default streaming settings.
func DefaultConfig() Config {
	return Config{StreamTimeout: 5 * time.Minute}
}

// Option configures optional Streamer collaborators.
type Option func(*Streamer)

// WithConfig overrides DefaultConfig.
func WithConfig(c Config) Option {
	return func(s *Streamer) { s.config = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Streamer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithExecutionRecorder counts completed and failed sessions.
func WithExecutionRecorder(r ExecutionRecorder) Option {
	return func(s *Streamer) { s.recorder = r }
}

// WithSessionObserver reports session outcomes.
func WithSessionObserver(o SessionObserver) Option {
	return func(s *Streamer) { s.observer = o }
}

// WithUsageEstimator estimates usage for providers that report none.
func WithUsageEstimator(u UsageEstimator) Option {
	return func(s *Streamer) { s.estimator = u }
}

// Streamer opens streaming sessions against one provider.
type Streamer struct {
	agents    AgentLookup
	provider  llm.Provider
	config    Config
	recorder  ExecutionRecorder
	observer  SessionObserver
	estimator UsageEstimator
	tracer    trace.Tracer
	events    metric.Int64Counter
	logger    *zap.Logger
}

// NewStreamer creates a Streamer.
func NewStreamer(agents AgentLookup, provider llm.Provider, opts ...Option) *Streamer {
	s := &Streamer{
		agents:   agents,
		provider: provider,
		config:   DefaultConfig(),
		tracer:   otel.Tracer(instrumentationName),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "stream_session"))

	counter, err := otel.Meter(instrumentationName).Int64Counter("agentorch.stream.events",
		metric.WithDescription("Stream events delivered to consumers"),
		metric.WithUnit("{event}"))
	if err != nil {
		s.logger.Warn("stream event counter unavailable", zap.Error(err))
	}
	s.events = counter
	return s
}

// Stream prepares a session. Nothing is sent to the provider until the
// first call to Next. Cancelling ctx cancels the session.
func (s *Streamer) Stream(ctx context.Context, agentName, prompt string, taskCtx map[string]any) *Session {
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		streamer:  s,
		agentName: agentName,
		prompt:    prompt,
		taskCtx:   taskCtx,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan Event),
		stop:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
}

// Session is a single-consumer event sequence. The producer goroutine hands
// each event over an unbuffered channel, so it never runs ahead of Next.
type Session struct {
	streamer  *Streamer
	agentName string
	prompt    string
	taskCtx   map[string]any

	ctx    context.Context
	cancel context.CancelFunc

	events    chan Event
	stop      chan struct{}
	exited    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	cancelled atomic.Bool
	closed    atomic.Bool

	mu  sync.Mutex
	err *types.Error
}

// Next blocks until the next event is available. It returns false once the
// sequence is closed: after the terminal event, after Cancel, or when ctx
// ends (which also cancels the session).
func (s *Session) Next(ctx context.Context) (Event, bool) {
	if s.cancelled.Load() || s.closed.Load() {
		return Event{}, false
	}
	s.startOnce.Do(func() { go s.produce() })

	select {
	case ev := <-s.events:
		if s.cancelled.Load() {
			return Event{}, false
		}
		if ev.Terminal() {
			s.closed.Store(true)
		}
		return ev, true
	case <-s.exited:
		s.closed.Store(true)
		return Event{}, false
	case <-s.stop:
		return Event{}, false
	case <-ctx.Done():
		s.Cancel()
		return Event{}, false
	}
}

// Cancel stops the session and releases the provider call. It is safe to
// call more than once and from any goroutine.
func (s *Session) Cancel() {
	s.stopOnce.Do(func() {
		s.cancelled.Store(true)
		close(s.stop)
		s.cancel()
	})
}

// Err returns the terminal error, if the session ended with one.
func (s *Session) Err() *types.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// AgentName returns the requested agent.
func (s *Session) AgentName() string {
	return s.agentName
}

func (s *Session) produce() {
	defer close(s.exited)
	defer s.cancel()

	st := s.streamer
	providerName := st.provider.Name()
	start := time.Now()
	outcome := OutcomeCancelled
	var delivered int

	ctx, span := st.tracer.Start(s.ctx, "stream.session",
		trace.WithAttributes(attribute.String("agent.name", s.agentName)))
	defer func() {
		span.SetAttributes(
			attribute.String("stream.outcome", outcome),
			attribute.Int("stream.events", delivered),
		)
		span.End()
		if st.observer != nil {
			st.observer.RecordStreamSession(s.agentName, outcome)
		}
		if st.recorder != nil && outcome != OutcomeCancelled {
			st.recorder.RecordAgentExecution(outcome == OutcomeCompleted)
		}
		st.logger.Debug("stream session closed",
			zap.String("agent", s.agentName),
			zap.String("outcome", outcome),
			zap.Int("events", delivered),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	emit := func(ev Event) bool {
		select {
		case s.events <- ev:
			delivered++
			if st.events != nil {
				st.events.Add(s.ctx, 1, metric.WithAttributes(attribute.String("kind", string(ev.Kind))))
			}
			return true
		case <-s.stop:
			return false
		case <-s.ctx.Done():
			return false
		}
	}
	fail := func(e *types.Error) {
		s.mu.Lock()
		s.err = e
		s.mu.Unlock()
		span.SetStatus(codes.Error, e.Message)
		if emit(Event{Kind: EventError, Err: e}) {
			outcome = OutcomeError
		}
	}

	agentCfg, err := st.agents.Lookup(s.agentName)
	if err != nil {
		fail(llm.ClassifyError(providerName, err))
		return
	}

	runCtx := ctx
	if st.config.StreamTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, st.config.StreamTimeout)
		defer cancel()
	}
	// interrupted distinguishes session timeout from caller cancellation.
	interrupted := func() {
		if s.ctx.Err() != nil {
			return
		}
		fail(types.NewTimeoutError(fmt.Sprintf("stream for agent %s exceeded %s", s.agentName, st.config.StreamTimeout)).
			WithProvider(providerName))
	}

	req := llm.NewRequest(agentCfg, s.prompt, s.taskCtx)
	raw, err := st.provider.InvokeStreaming(runCtx, req)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			interrupted()
			return
		}
		if s.ctx.Err() != nil {
			return
		}
		fail(llm.ClassifyError(providerName, err))
		return
	}

	var text []byte
	for {
		select {
		case <-s.stop:
			return
		case <-runCtx.Done():
			interrupted()
			return
		case r, ok := <-raw:
			if !ok {
				if runCtx.Err() != nil {
					interrupted()
					return
				}
				fail(types.NewProviderError(providerName, false, errors.New("stream closed before completion")))
				return
			}
			switch r.Type {
			case llm.RawText:
				if r.Text == "" {
					continue
				}
				text = append(text, r.Text...)
				if !emit(Event{Kind: EventContent, Text: r.Text}) {
					return
				}
			case llm.RawTool:
				if r.Tool == nil {
					continue
				}
				if !emit(Event{Kind: EventTool, Tool: r.Tool}) {
					return
				}
			case llm.RawDone:
				usage := r.Usage
				if usage.IsZero() && st.estimator != nil {
					usage = st.estimator.Estimate(agentCfg.SystemPrompt+"\n"+req.UserMessage(), string(text))
				}
				if emit(Event{Kind: EventEnd, Usage: usage, FinishReason: r.StopReason}) {
					outcome = OutcomeCompleted
					span.SetStatus(codes.Ok, "")
				}
				return
			case llm.RawError:
				if runCtx.Err() != nil {
					interrupted()
					return
				}
				cause := r.Err
				if cause == nil {
					cause = errors.New("provider reported a stream error")
				}
				fail(llm.ClassifyError(providerName, cause))
				return
			}
		}
	}
}
