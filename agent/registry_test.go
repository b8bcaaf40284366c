package agent

import (
	"sync"
	"testing"

	"github.com/BaSui01/agentorch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfigs() []types.AgentConfig {
	return []types.AgentConfig{
		{
			Name:         "pattern-builder",
			Description:  "Builds production AI architecture patterns",
			Provider:     types.ProviderClaudeSonnet,
			SystemPrompt: "You are an expert AI architect.",
			Temperature:  0.7,
			MaxTokens:    4096,
			Capabilities: []string{"building"},
		},
		{
			Name:         "qa-agent",
			Description:  "Reviews patterns for quality",
			Provider:     types.ProviderClaudeSonnet,
			Temperature:  0.3,
			MaxTokens:    4096,
			Capabilities: []string{"quality"},
		},
		{
			Name:        "documentation-agent",
			Description: "Writes documentation",
			Provider:    types.ProviderClaudeHaiku,
			Temperature: 0.5,
			MaxTokens:   2048,
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(testConfigs(),
		WithCapabilityGroups(map[string][]string{"documentation": {"documentation-agent"}}),
		WithRecommendations(map[string][]string{"build-pattern": {"pattern-builder", "documentation-agent"}}),
	)
	require.NoError(t, err)
	return r
}

func TestRegistry_Lookup(t *testing.T) {
	r := newTestRegistry(t)

	cfg, err := r.Lookup("qa-agent")
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Temperature)

	_, err = r.Lookup("nonexistent-agent")
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"documentation-agent", "pattern-builder", "qa-agent"}, e.ValidNames)
}

func TestRegistry_LookupReturnsCopy(t *testing.T) {
	r := newTestRegistry(t)

	cfg, err := r.Lookup("pattern-builder")
	require.NoError(t, err)
	cfg.Capabilities[0] = "mutated"
	cfg.SystemPrompt = "mutated"

	again, err := r.Lookup("pattern-builder")
	require.NoError(t, err)
	assert.Equal(t, "building", again.Capabilities[0])
	assert.Equal(t, "You are an expert AI architect.", again.SystemPrompt)
}

func TestRegistry_NewRegistryRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		configs []types.AgentConfig
		opts    []RegistryOption
	}{
		{
			name:    "duplicate name",
			configs: append(testConfigs(), testConfigs()[0]),
		},
		{
			name:    "invalid temperature",
			configs: []types.AgentConfig{{Name: "a", Provider: types.ProviderMock, Temperature: 3, MaxTokens: 1}},
		},
		{
			name:    "capability group references unknown agent",
			configs: testConfigs(),
			opts:    []RegistryOption{WithCapabilityGroups(map[string][]string{"x": {"ghost"}})},
		},
		{
			name:    "recommendation references unknown agent",
			configs: testConfigs(),
			opts:    []RegistryOption{WithRecommendations(map[string][]string{"x": {"ghost"}})},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.configs, tt.opts...)
			require.Error(t, err)
			assert.Equal(t, types.ErrValidation, types.GetErrorCode(err))
		})
	}
}

func TestRegistry_FilterByCapability(t *testing.T) {
	r := newTestRegistry(t)

	names := func(cfgs []types.AgentConfig) []string {
		var out []string
		for _, c := range cfgs {
			out = append(out, c.Name)
		}
		return out
	}

	assert.Equal(t, []string{"pattern-builder"}, names(r.FilterByCapability("building")))
	assert.Equal(t, []string{"qa-agent"}, names(r.FilterByCapability("QUALITY")))
	assert.Equal(t, []string{"documentation-agent"}, names(r.FilterByCapability("documentation")))
	// substring over name and description
	assert.Equal(t, []string{"pattern-builder", "qa-agent"}, names(r.FilterByCapability("pattern")))
	assert.Empty(t, r.FilterByCapability("nothing-matches"))
	assert.Empty(t, r.FilterByCapability("  "))
}

func TestRegistry_FilterByProvider(t *testing.T) {
	r := newTestRegistry(t)

	sonnet := r.FilterByProvider(types.ProviderClaudeSonnet)
	require.Len(t, sonnet, 2)
	assert.Equal(t, "pattern-builder", sonnet[0].Name)
	assert.Equal(t, "qa-agent", sonnet[1].Name)

	assert.Len(t, r.FilterByProvider(types.ProviderClaudeHaiku), 1)
	assert.Empty(t, r.FilterByProvider(types.ProviderClaudeOpus))
}

func TestRegistry_Recommend(t *testing.T) {
	r := newTestRegistry(t)

	recs := r.Recommend("build-pattern")
	require.Len(t, recs, 2)
	assert.Equal(t, "pattern-builder", recs[0].Name)
	assert.Equal(t, "documentation-agent", recs[1].Name)
	assert.Empty(t, r.Recommend("unknown"))
}

func TestRegistry_Capabilities(t *testing.T) {
	r := newTestRegistry(t)
	assert.Equal(t, []string{"building", "documentation", "quality"}, r.Capabilities())
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	r := newTestRegistry(t)
	before := r.List()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Lookup("qa-agent")
			_, _ = r.Lookup("missing")
			_ = r.FilterByCapability("quality")
			_ = r.FilterByProvider(types.ProviderClaudeHaiku)
		}()
	}
	wg.Wait()

	assert.Equal(t, before, r.List())
	assert.Equal(t, 3, r.Len())
}
