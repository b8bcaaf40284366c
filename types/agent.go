package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProviderID identifies the model family an agent runs on.
type ProviderID string

// Known model providers.
const (
	ProviderClaudeSonnet ProviderID = "claude-3-5-sonnet"
	ProviderClaudeHaiku  ProviderID = "claude-3-5-haiku"
	ProviderClaudeOpus   ProviderID = "claude-3-opus"
	ProviderMock         ProviderID = "mock"
)

// Generation defaults applied when an agent omits them.
const (
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7
)

// AgentConfig describes one named agent. It is immutable once it has been
// placed into a registry.
type AgentConfig struct {
	Name         string       `json:"name" yaml:"name"`
	Description  string       `json:"description,omitempty" yaml:"description"`
	Provider     ProviderID   `json:"provider" yaml:"provider"`
	Model        string       `json:"model,omitempty" yaml:"model"`
	SystemPrompt string       `json:"system_prompt" yaml:"system_prompt"`
	Temperature  float64      `json:"temperature" yaml:"temperature"`
	MaxTokens    int          `json:"max_tokens" yaml:"max_tokens"`
	Tools        []ToolSchema `json:"tools,omitempty" yaml:"tools"`
	Capabilities []string     `json:"capabilities,omitempty" yaml:"capabilities"`
}

// Validate checks the invariants an agent must satisfy before it can be
// registered.
func (c AgentConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("agent name is required")
	}
	if c.Provider == "" {
		return NewValidationError("agent %q: provider is required", c.Name)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return NewValidationError("agent %q: temperature %.2f out of range [0, 2]", c.Name, c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return NewValidationError("agent %q: max_tokens must be positive", c.Name)
	}
	seen := make(map[string]struct{}, len(c.Tools))
	for _, t := range c.Tools {
		if t.Name == "" {
			return NewValidationError("agent %q: tool name is required", c.Name)
		}
		if _, dup := seen[t.Name]; dup {
			return NewValidationError("agent %q: duplicate tool %q", c.Name, t.Name)
		}
		seen[t.Name] = struct{}{}
		if len(t.InputSchema) > 0 && !json.Valid(t.InputSchema) {
			return NewValidationError("agent %q: tool %q has invalid input schema", c.Name, t.Name)
		}
	}
	return nil
}

// HasCapability reports whether the agent is tagged with tag.
func (c AgentConfig) HasCapability(tag string) bool {
	for _, tagged := range c.Capabilities {
		if strings.EqualFold(tagged, tag) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate registry state.
func (c AgentConfig) Clone() AgentConfig {
	out := c
	if c.Tools != nil {
		out.Tools = make([]ToolSchema, len(c.Tools))
		for i, t := range c.Tools {
			out.Tools[i] = t
			out.Tools[i].InputSchema = append(json.RawMessage(nil), t.InputSchema...)
		}
	}
	out.Capabilities = append([]string(nil), c.Capabilities...)
	return out
}

// String is used in log fields.
func (c AgentConfig) String() string {
	return fmt.Sprintf("%s(%s)", c.Name, c.Provider)
}
