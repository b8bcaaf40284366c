package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BaSui01/agentorch/llm"
	"github.com/BaSui01/agentorch/testutil"
	"github.com/BaSui01/agentorch/testutil/mocks"
	"github.com/BaSui01/agentorch/types"
	"github.com/BaSui01/agentorch/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 WorkflowHandler 测试
// =============================================================================

func TestWorkflowHandler_HandleList(t *testing.T) {
	h := NewWorkflowHandler(newTestOrchestrator(t, mocks.NewMockProvider()), zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleList(w, httptest.NewRequest(http.MethodGet, "/api/v1/workflows", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var out WorkflowListResponse
	decodeData(t, w, &out)
	assert.Equal(t, 1, out.TotalCount)
	require.Len(t, out.Workflows, 1)
	assert.Equal(t, "pattern-development", out.Workflows[0].Type)
	assert.Equal(t, 2, out.Workflows[0].TaskCount)
	assert.Equal(t, []string{"pattern", "framework"}, out.Workflows[0].RequiredVariables)
}

func TestWorkflowHandler_HandleExecute_ByName(t *testing.T) {
	provider := mocks.NewMockProvider().
		WithAgentResponse("pattern-builder", "rag.py").
		WithAgentResponse("qa-agent", "all green")
	h := NewWorkflowHandler(newTestOrchestrator(t, provider), zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleExecute(w, jsonRequest(t, http.MethodPost, "/api/v1/workflows/execute", map[string]any{
		"workflowType": "pattern-development",
		"variables":    map[string]any{"pattern": "RAG", "framework": "langchain"},
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var out WorkflowExecuteResponse
	decodeData(t, w, &out)
	assert.True(t, out.Success)
	require.NotNil(t, out.Result)
	assert.Equal(t, workflow.StateSucceeded, out.Result.State)
	require.Len(t, out.Result.TaskResults, 2)
	assert.Equal(t, "all green", out.Result.TaskResults[1].Output)

	build := provider.CallsFor("pattern-builder")
	require.Len(t, build, 1)
	assert.Equal(t, "Build RAG for langchain", build[0].Request.Prompt)
	qa := provider.CallsFor("qa-agent")
	require.Len(t, qa, 1)
	assert.Equal(t, "Test rag.py", qa[0].Request.Prompt)
}

func TestWorkflowHandler_HandleExecute_InlineTemplate(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse("ok")
	h := NewWorkflowHandler(newTestOrchestrator(t, provider), zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleExecute(w, jsonRequest(t, http.MethodPost, "/api/v1/workflows/execute", map[string]any{
		"template": map[string]any{
			"name": "adhoc",
			"tasks": []map[string]any{
				{"id": "docs", "agentName": "documentation-agent", "prompt": "Document {{topic}}"},
			},
		},
		"variables": map[string]any{"topic": "streaming"},
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var out WorkflowExecuteResponse
	decodeData(t, w, &out)
	assert.True(t, out.Success)
	assert.Equal(t, "adhoc", out.Result.WorkflowName)
	assert.Equal(t, "Document streaming", provider.Calls()[0].Request.Prompt)
}

func TestWorkflowHandler_HandleExecute_PartialFailure(t *testing.T) {
	provider := mocks.NewMockProvider().
		WithAgentError("qa-agent", types.NewProviderError("mock", false, assert.AnError))
	h := NewWorkflowHandler(newTestOrchestrator(t, provider), zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleExecute(w, jsonRequest(t, http.MethodPost, "/api/v1/workflows/execute", map[string]any{
		"workflowType": "pattern-development",
		"variables":    map[string]any{"pattern": "RAG", "framework": "llamaindex"},
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var out WorkflowExecuteResponse
	decodeData(t, w, &out)
	assert.False(t, out.Success)
	assert.Equal(t, workflow.StatePartiallyFailed, out.Result.State)
}

func TestWorkflowHandler_HandleExecute_Errors(t *testing.T) {
	provider := mocks.NewMockProvider()
	h := NewWorkflowHandler(newTestOrchestrator(t, provider), zap.NewNop())

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantCode   types.ErrorCode
	}{
		{
			name:       "missing workflow",
			body:       map[string]any{"variables": map[string]any{}},
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrValidation,
		},
		{
			name: "both name and template",
			body: map[string]any{
				"workflowType": "pattern-development",
				"template":     map[string]any{"name": "x", "tasks": []any{}},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrValidation,
		},
		{
			name:       "unknown workflow",
			body:       map[string]any{"workflowType": "nope"},
			wantStatus: http.StatusNotFound,
			wantCode:   types.ErrNotFound,
		},
		{
			name: "cyclic template",
			body: map[string]any{"template": map[string]any{
				"name": "loop",
				"tasks": []map[string]any{
					{"id": "a", "agentName": "qa-agent", "prompt": "a", "dependsOn": []string{"b"}},
					{"id": "b", "agentName": "qa-agent", "prompt": "b", "dependsOn": []string{"a"}},
				},
			}},
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.HandleExecute(w, jsonRequest(t, http.MethodPost, "/api/v1/workflows/execute", tt.body))

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeData(t, w, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.wantCode), resp.Error.Code)
		})
	}
	assert.Zero(t, provider.CallCount())
}

func TestWorkflowHandler_HandleActive(t *testing.T) {
	release := make(chan struct{})
	provider := mocks.NewMockProvider().WithCompletionFunc(func(ctx context.Context, req *llm.Request) (*llm.Completion, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &llm.Completion{Text: "done"}, nil
	})
	o := newTestOrchestrator(t, provider)
	h := NewWorkflowHandler(o, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.ExecuteWorkflowByName(context.Background(), "pattern-development", workflow.Variables{"pattern": "p", "framework": "f"})
	}()

	testutil.AssertEventuallyTrue(t, func() bool { return len(o.ListWorkflows()) == 1 }, 2*time.Second)

	w := httptest.NewRecorder()
	h.HandleActive(w, httptest.NewRequest(http.MethodGet, "/api/v1/workflows/active", nil))

	var active []map[string]any
	decodeData(t, w, &active)
	require.Len(t, active, 1)
	assert.Equal(t, "pattern-development", active[0]["workflowName"])

	close(release)
	<-done
	assert.Empty(t, o.ListWorkflows())
}
