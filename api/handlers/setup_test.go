package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BaSui01/agentorch/agent"
	"github.com/BaSui01/agentorch/llm"
	"github.com/BaSui01/agentorch/orchestrator"
	"github.com/BaSui01/agentorch/testutil/fixtures"
	"github.com/BaSui01/agentorch/workflow"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 测试辅助
// =============================================================================

func newTestOrchestrator(t *testing.T, provider llm.Provider) *orchestrator.Orchestrator {
	t.Helper()

	reg, err := agent.NewRegistry(fixtures.PatternAgents(),
		agent.WithRecommendations(map[string][]string{
			"pattern-development": {"pattern-builder", "qa-agent"},
		}))
	require.NoError(t, err)

	lib, err := workflow.NewLibrary(workflow.Template{
		Name:        "pattern-development",
		Description: "Build and test a pattern",
		Tasks: []workflow.TaskSpec{
			{ID: "build", AgentName: "pattern-builder", PromptTemplate: "Build {{pattern}} for {{framework}}"},
			{ID: "qa", AgentName: "qa-agent", PromptTemplate: "Test {{dependencies.build}}", DependsOn: []string{"build"}},
		},
	})
	require.NoError(t, err)

	cfg := orchestrator.DefaultConfig()
	cfg.Executor.MaxRetries = 0
	cfg.Executor.TaskTimeout = 2 * time.Second
	cfg.Stream.StreamTimeout = 2 * time.Second

	o, err := orchestrator.New(orchestrator.Deps{
		Agents:   reg,
		Library:  lib,
		Provider: provider,
		Logger:   zap.NewNop(),
	}, cfg)
	require.NoError(t, err)
	return o
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	r := httptest.NewRequest(method, path, bytes.NewReader(data))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// decodeData 解码 Response 信封并把 data 重新解码到 dst
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) Response {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	if dst != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, dst))
	}
	return raw.Response
}
