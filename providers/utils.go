package providers

import "github.com/BaSui01/agentorch/types"

// familyModels 模型家族到具体模型的默认映射
var familyModels = map[types.ProviderID]string{
	types.ProviderClaudeSonnet: "claude-3-5-sonnet-latest",
	types.ProviderClaudeHaiku:  "claude-3-5-haiku-latest",
	types.ProviderClaudeOpus:   "claude-3-opus-latest",
}

// ChooseModel selects the model to use based on priority:
// 1. Agent model (if the agent pins one)
// 2. Config model (if specified in provider configuration)
// 3. Default model for the agent's provider family
func ChooseModel(agent types.AgentConfig, configModel string) string {
	if agent.Model != "" {
		return agent.Model
	}
	if configModel != "" {
		return configModel
	}
	return DefaultModel(agent.Provider)
}

// DefaultModel returns the model for a provider family; unknown families
// fall back to Sonnet.
func DefaultModel(provider types.ProviderID) string {
	if m, ok := familyModels[provider]; ok {
		return m
	}
	return familyModels[types.ProviderClaudeSonnet]
}
