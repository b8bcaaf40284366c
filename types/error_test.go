package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrProvider, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("claude")

	if GetErrorCode(err) != ErrProvider {
		t.Fatalf("expected code %s, got %s", ErrProvider, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_WrappedStillClassified(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("executing: %w", NewTimeoutError("deadline exceeded"))

	assert.Equal(t, ErrTimeout, GetErrorCode(wrapped))
	assert.True(t, IsRetryable(wrapped))
	e, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusGatewayTimeout, e.HTTPStatus)
}

func TestNewNotFoundError_ListsValidNames(t *testing.T) {
	t.Parallel()

	valid := []string{"researcher", "writer"}
	err := NewNotFoundError("agent", "ghost", valid)
	valid[0] = "mutated"

	assert.True(t, IsNotFound(err))
	assert.Equal(t, []string{"researcher", "writer"}, err.ValidNames)
	assert.Contains(t, err.Error(), "researcher, writer")
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus)
}

func TestNewSkippedError(t *testing.T) {
	t.Parallel()

	err := NewSkippedError("fetch")
	assert.Equal(t, ErrSkippedDueToDependencyFailure, err.Code)
	assert.False(t, err.Retryable)
	assert.Contains(t, err.Message, "fetch")
}

func TestAgentConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := AgentConfig{Name: "writer", Provider: ProviderClaudeSonnet, Temperature: 0.7, MaxTokens: 1024}
	require.NoError(t, valid.Validate())

	cases := map[string]AgentConfig{
		"missing name":     {Provider: ProviderClaudeSonnet, MaxTokens: 1},
		"missing provider": {Name: "a", MaxTokens: 1},
		"temperature high": {Name: "a", Provider: ProviderClaudeSonnet, Temperature: 2.5, MaxTokens: 1},
		"temperature low":  {Name: "a", Provider: ProviderClaudeSonnet, Temperature: -0.1, MaxTokens: 1},
		"zero max tokens":  {Name: "a", Provider: ProviderClaudeSonnet},
		"bad tool schema":  {Name: "a", Provider: ProviderClaudeSonnet, MaxTokens: 1, Tools: []ToolSchema{{Name: "t", InputSchema: []byte("{")}}},
		"duplicate tool":   {Name: "a", Provider: ProviderClaudeSonnet, MaxTokens: 1, Tools: []ToolSchema{{Name: "t"}, {Name: "t"}}},
		"unnamed tool":     {Name: "a", Provider: ProviderClaudeSonnet, MaxTokens: 1, Tools: []ToolSchema{{}}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, ErrValidation, GetErrorCode(err))
		})
	}
}

func TestAgentConfig_CloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := AgentConfig{
		Name:         "a",
		Capabilities: []string{"research"},
		Tools:        []ToolSchema{{Name: "search", InputSchema: []byte(`{"type":"object"}`)}},
	}
	cp := orig.Clone()
	cp.Capabilities[0] = "x"
	cp.Tools[0].InputSchema[0] = '['

	assert.Equal(t, "research", orig.Capabilities[0])
	assert.Equal(t, byte('{'), orig.Tools[0].InputSchema[0])
	assert.True(t, orig.HasCapability("RESEARCH"))
}
