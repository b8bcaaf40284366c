package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/agentorch/agent"
	"github.com/BaSui01/agentorch/internal/metrics"
	"github.com/BaSui01/agentorch/llm"
	"github.com/BaSui01/agentorch/llm/streaming"
	"github.com/BaSui01/agentorch/testutil"
	"github.com/BaSui01/agentorch/testutil/fixtures"
	"github.com/BaSui01/agentorch/testutil/mocks"
	"github.com/BaSui01/agentorch/types"
	"github.com/BaSui01/agentorch/workflow"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Executor.MaxRetries = 0
	cfg.Executor.InitialDelay = time.Millisecond
	cfg.Executor.MaxDelay = time.Millisecond
	cfg.Executor.Jitter = false
	cfg.Executor.TaskTimeout = time.Second
	return cfg
}

func newRegistry(t *testing.T, names ...string) *agent.Registry {
	t.Helper()
	reg, err := agent.NewRegistry(fixtures.AgentConfigs(names...))
	require.NoError(t, err)
	return reg
}

func devLibrary(t *testing.T) *workflow.Library {
	t.Helper()
	lib, err := workflow.NewLibrary(workflow.Template{
		Name: "dev",
		Tasks: []workflow.TaskSpec{
			{ID: "design", AgentName: "architect", PromptTemplate: "Design {{feature}}"},
			{ID: "build", AgentName: "builder", PromptTemplate: "Build {{dependencies.design}}", DependsOn: []string{"design"}},
		},
	})
	require.NoError(t, err)
	return lib
}

func newOrchestrator(t *testing.T, provider llm.Provider, deps Deps) *Orchestrator {
	t.Helper()
	if deps.Agents == nil {
		deps.Agents = newRegistry(t, "architect", "builder")
	}
	deps.Provider = provider
	deps.Logger = zap.NewNop()
	o, err := New(deps, testConfig())
	require.NoError(t, err)
	return o
}

func TestNew_RequiresAgentsAndProvider(t *testing.T) {
	_, err := New(Deps{Provider: mocks.NewMockProvider()}, DefaultConfig())
	assert.Equal(t, types.ErrValidation, types.GetErrorCode(err))

	_, err = New(Deps{Agents: newRegistry(t, "architect")}, DefaultConfig())
	assert.Equal(t, types.ErrValidation, types.GetErrorCode(err))
}

func TestExecuteAgent(t *testing.T) {
	provider := mocks.NewMockProvider().WithAgentResponse("architect", "use a queue")
	o := newOrchestrator(t, provider, Deps{})

	res, err := o.ExecuteAgent(testutil.TestContext(t), "architect", "Design {{thing}}", map[string]any{"thing": "x"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "use a queue", res.Output)
	assert.Equal(t, "architect", res.AgentName)
	assert.True(t, strings.HasPrefix(res.TaskID, "architect-"))

	calls := provider.Calls()
	require.Len(t, calls, 1)
	// 单 Agent 执行不做变量注入，context 原样传递
	assert.Equal(t, "Design {{thing}}", calls[0].Request.Prompt)
	assert.Equal(t, map[string]any{"thing": "x"}, calls[0].Request.Context)

	snap := o.ExportWorkflowMetrics()
	assert.Equal(t, 1, snap.AgentExecutions)
	assert.Equal(t, 0, snap.TotalWorkflows)
}

func TestExecuteAgent_UnknownAgent(t *testing.T) {
	provider := mocks.NewMockProvider()
	o := newOrchestrator(t, provider, Deps{})
	before := o.Agents().Names()

	_, err := o.ExecuteAgent(testutil.TestContext(t), "nonexistent-agent", "hi", nil)
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))

	e, _ := types.AsError(err)
	assert.Equal(t, []string{"architect", "builder"}, e.ValidNames)
	assert.Equal(t, before, o.Agents().Names())
	assert.Equal(t, 0, provider.CallCount())
	assert.Equal(t, 0, o.ExportWorkflowMetrics().AgentExecutions)
}

func TestExecuteAgent_ProviderFailureIsData(t *testing.T) {
	provider := mocks.NewMockProvider().WithError(mocks.ErrMockProvider)
	o := newOrchestrator(t, provider, Deps{})

	res, err := o.ExecuteAgent(testutil.TestContext(t), "architect", "hi", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, types.ErrProvider, res.ErrorKind())

	snap := o.ExportWorkflowMetrics()
	assert.Equal(t, 1, snap.AgentExecutions)
	assert.Equal(t, 1, snap.FailedAgentExecutions)
}

func TestExecuteWorkflowByName(t *testing.T) {
	provider := mocks.NewMockProvider().
		WithAgentResponse("architect", "blueprint").
		WithAgentResponse("builder", "binary")
	o := newOrchestrator(t, provider, Deps{Library: devLibrary(t)})

	res, err := o.ExecuteWorkflowByName(testutil.TestContext(t), "dev", workflow.Variables{"feature": "search"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, workflow.StateSucceeded, res.State)

	build := provider.CallsFor("builder")
	require.Len(t, build, 1)
	assert.Equal(t, "Build blueprint", build[0].Request.Prompt)

	snap := o.ExportWorkflowMetrics()
	assert.Equal(t, 1, snap.TotalWorkflows)
	assert.Equal(t, 2, snap.TotalTasks)
	assert.Equal(t, 1.0, snap.SuccessRate)
	assert.Empty(t, o.ListWorkflows())
}

func TestExecuteWorkflowByName_Unknown(t *testing.T) {
	o := newOrchestrator(t, mocks.NewMockProvider(), Deps{Library: devLibrary(t)})

	_, err := o.ExecuteWorkflowByName(testutil.TestContext(t), "missing", nil)
	require.Error(t, err)
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrNotFound, e.Code)
	assert.Equal(t, []string{"dev"}, e.ValidNames)
}

func TestExecuteWorkflow_ValidationError(t *testing.T) {
	provider := mocks.NewMockProvider()
	o := newOrchestrator(t, provider, Deps{})

	cyclic := workflow.Template{
		Name: "cyclic",
		Tasks: []workflow.TaskSpec{
			{ID: "a", AgentName: "architect", DependsOn: []string{"b"}},
			{ID: "b", AgentName: "builder", DependsOn: []string{"a"}},
		},
	}
	_, err := o.ExecuteWorkflow(testutil.TestContext(t), cyclic, nil)
	assert.Equal(t, types.ErrValidation, types.GetErrorCode(err))
	assert.Equal(t, 0, provider.CallCount())
	assert.Equal(t, 0, o.ExportWorkflowMetrics().TotalWorkflows)
}

func TestListWorkflows_ShowsRunning(t *testing.T) {
	release := make(chan struct{})
	provider := mocks.NewMockProvider().WithCompletionFunc(func(ctx context.Context, req *llm.Request) (*llm.Completion, error) {
		<-release
		return &llm.Completion{Text: "ok"}, nil
	})
	o := newOrchestrator(t, provider, Deps{Library: devLibrary(t)})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.ExecuteWorkflowByName(context.Background(), "dev", workflow.Variables{"feature": "x"})
	}()

	testutil.AssertEventuallyTrue(t, func() bool { return len(o.ListWorkflows()) == 1 }, time.Second)
	active := o.ListWorkflows()[0]
	assert.Equal(t, "dev", active.WorkflowName)
	assert.Equal(t, 2, active.TaskCount)

	close(release)
	<-done
	assert.Empty(t, o.ListWorkflows())
}

func TestStreamAgentExecution(t *testing.T) {
	provider := mocks.NewMockProvider().WithStreamEvents(
		llm.RawEvent{Type: llm.RawText, Text: "he"},
		llm.RawEvent{Type: llm.RawText, Text: "llo"},
		llm.RawEvent{Type: llm.RawDone, Usage: types.TokenUsage{InputTokens: 3, OutputTokens: 2}},
	)
	o := newOrchestrator(t, provider, Deps{})

	ctx := testutil.TestContext(t)
	session := o.StreamAgentExecution(ctx, "architect", "hi", nil)
	assert.Equal(t, 0, provider.StreamCount(), "session must be lazy")

	var text strings.Builder
	var last streaming.Event
	for {
		ev, ok := session.Next(ctx)
		if !ok {
			break
		}
		if ev.Kind == streaming.EventContent {
			text.WriteString(ev.Text)
		}
		last = ev
	}
	assert.Equal(t, "hello", text.String())
	assert.Equal(t, streaming.EventEnd, last.Kind)
	assert.Equal(t, 1, o.ExportWorkflowMetrics().AgentExecutions)
}

func TestReloadLibraries(t *testing.T) {
	provider := mocks.NewMockProvider()
	o := newOrchestrator(t, provider, Deps{Library: devLibrary(t)})

	_, err := o.ExecuteAgent(testutil.TestContext(t), "reviewer", "hi", nil)
	require.True(t, types.IsNotFound(err))

	o.ReloadLibraries(newRegistry(t, "architect", "builder", "reviewer"), nil)

	res, err := o.ExecuteAgent(testutil.TestContext(t), "reviewer", "hi", nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	// 未传入的 library 保持不变
	assert.Equal(t, []string{"dev"}, o.Library().Names())
}

func TestCollectorReceivesWorkflowAndTasks(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("test", reg, zap.NewNop())
	provider := mocks.NewMockProvider()
	o := newOrchestrator(t, provider, Deps{Library: devLibrary(t), Collector: collector})

	_, err := o.ExecuteWorkflowByName(testutil.TestContext(t), "dev", workflow.Variables{"feature": "x"})
	require.NoError(t, err)

	n, err := promtestutil.GatherAndCount(reg, "test_workflow_executions_total", "test_task_executions_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n) // 1 个 workflow 系列 + 2 个 agent 系列
}
