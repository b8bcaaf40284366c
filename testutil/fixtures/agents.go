// =============================================================================
// 📦 测试数据工厂 - Agent 测试数据
// =============================================================================
// 提供预定义的 Agent 配置，用于测试
// =============================================================================
package fixtures

import (
	"encoding/json"

	"github.com/BaSui01/agentorch/types"
)

// =============================================================================
// 🤖 Agent 配置工厂
// =============================================================================

// DefaultAgentConfig 返回默认的 Agent 配置
func DefaultAgentConfig() types.AgentConfig {
	return AgentConfig("test-agent")
}

// AgentConfig 返回指定名称的 Mock Agent 配置
func AgentConfig(name string) types.AgentConfig {
	return types.AgentConfig{
		Name:         name,
		Description:  "Test agent " + name,
		Provider:     types.ProviderMock,
		Model:        "mock-model",
		SystemPrompt: "You are " + name + ".",
		Temperature:  types.DefaultTemperature,
		MaxTokens:    types.DefaultMaxTokens,
	}
}

// AgentConfigs 返回一组 Mock Agent 配置
func AgentConfigs(names ...string) []types.AgentConfig {
	out := make([]types.AgentConfig, 0, len(names))
	for _, n := range names {
		out = append(out, AgentConfig(n))
	}
	return out
}

// AgentWithTools 返回带工具声明的 Agent 配置
func AgentWithTools(name string, tools ...types.ToolSchema) types.AgentConfig {
	cfg := AgentConfig(name)
	cfg.Tools = tools
	return cfg
}

// AgentWithCapabilities 返回带能力标签的 Agent 配置
func AgentWithCapabilities(name string, provider types.ProviderID, capabilities ...string) types.AgentConfig {
	cfg := AgentConfig(name)
	cfg.Provider = provider
	cfg.Capabilities = capabilities
	return cfg
}

// PatternAgents 返回模式开发相关的 Agent 集合
func PatternAgents() []types.AgentConfig {
	return []types.AgentConfig{
		AgentWithCapabilities("pattern-builder", types.ProviderClaudeSonnet, "building", "patterns"),
		AgentWithCapabilities("qa-agent", types.ProviderClaudeHaiku, "quality", "testing"),
		AgentWithCapabilities("documentation-agent", types.ProviderClaudeHaiku, "documentation"),
		AgentWithCapabilities("compliance-checker", types.ProviderClaudeOpus, "safety", "compliance"),
	}
}

// =============================================================================
// 🔧 工具定义工厂
// =============================================================================

// SearchToolSchema 返回搜索工具定义
func SearchToolSchema() types.ToolSchema {
	return types.ToolSchema{
		Name:        "search",
		Description: "Search the pattern catalogue",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`),
	}
}
