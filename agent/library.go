package agent

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BaSui01/agentorch/types"
	"gopkg.in/yaml.v3"
)

// libraryFile is the on-disk layout of an agent library.
type libraryFile struct {
	Agents           []agentEntry        `yaml:"agents"`
	CapabilityGroups map[string][]string `yaml:"capability_groups"`
	Recommendations  map[string][]string `yaml:"recommendations"`
}

type agentEntry struct {
	Name         string             `yaml:"name"`
	Description  string             `yaml:"description"`
	Provider     types.ProviderID   `yaml:"provider"`
	Model        string             `yaml:"model"`
	SystemPrompt string             `yaml:"system_prompt"`
	// Temperature is a pointer so an omitted value picks up the default
	// while an explicit 0 is kept.
	Temperature  *float64           `yaml:"temperature"`
	MaxTokens    int                `yaml:"max_tokens"`
	Tools        []types.ToolSchema `yaml:"tools"`
	Capabilities []string           `yaml:"capabilities"`
}

// LoadLibrary reads an agent library YAML file and builds a Registry.
func LoadLibrary(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent library: %w", err)
	}
	return ParseLibrary(data)
}

// ParseLibrary builds a Registry from agent library YAML.
func ParseLibrary(data []byte) (*Registry, error) {
	var file libraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, types.NewValidationError("parse agent library: %v", err)
	}

	configs := make([]types.AgentConfig, 0, len(file.Agents))
	for _, entry := range file.Agents {
		cfg := types.AgentConfig{
			Name:         entry.Name,
			Description:  entry.Description,
			Provider:     entry.Provider,
			Model:        entry.Model,
			SystemPrompt: entry.SystemPrompt,
			Temperature:  types.DefaultTemperature,
			MaxTokens:    entry.MaxTokens,
			Tools:        entry.Tools,
			Capabilities: entry.Capabilities,
		}
		if entry.Temperature != nil {
			cfg.Temperature = *entry.Temperature
		}
		if cfg.MaxTokens == 0 {
			cfg.MaxTokens = types.DefaultMaxTokens
		}
		for i := range cfg.Tools {
			tool := &cfg.Tools[i]
			if tool.InputSchemaYAML == nil {
				continue
			}
			raw, err := json.Marshal(tool.InputSchemaYAML)
			if err != nil {
				return nil, types.NewValidationError("agent %q tool %q: %v", cfg.Name, tool.Name, err)
			}
			tool.InputSchema = raw
			tool.InputSchemaYAML = nil
		}
		configs = append(configs, cfg)
	}

	return NewRegistry(configs,
		WithCapabilityGroups(file.CapabilityGroups),
		WithRecommendations(file.Recommendations),
	)
}
