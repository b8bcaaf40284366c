package providers

import (
	"testing"

	"github.com/BaSui01/agentorch/types"
	"github.com/stretchr/testify/assert"
)

// TestChooseModel_Priority tests the model selection priority:
// agent > config > family default
func TestChooseModel_Priority(t *testing.T) {
	tests := []struct {
		name          string
		agent         types.AgentConfig
		configModel   string
		expectedModel string
	}{
		{
			name:          "Agent model takes priority over config",
			agent:         types.AgentConfig{Provider: types.ProviderClaudeHaiku, Model: "agent-model"},
			configModel:   "config-model",
			expectedModel: "agent-model",
		},
		{
			name:          "Config model takes priority over family default",
			agent:         types.AgentConfig{Provider: types.ProviderClaudeHaiku},
			configModel:   "config-model",
			expectedModel: "config-model",
		},
		{
			name:          "Family default when nothing is pinned",
			agent:         types.AgentConfig{Provider: types.ProviderClaudeOpus},
			expectedModel: "claude-3-opus-latest",
		},
		{
			name:          "Unknown family falls back to sonnet",
			agent:         types.AgentConfig{Provider: types.ProviderMock},
			expectedModel: "claude-3-5-sonnet-latest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedModel, ChooseModel(tt.agent, tt.configModel))
		})
	}
}
