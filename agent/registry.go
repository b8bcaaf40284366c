package agent

import (
	"sort"
	"strings"

	"github.com/BaSui01/agentorch/types"
	"go.uber.org/zap"
)

// Registry is a read-only view over agent configuration. It is built once and
// never mutated, so any number of goroutines may read it concurrently.
// Reloading configuration means building a new Registry.
type Registry struct {
	agents          map[string]types.AgentConfig
	names           []string
	capabilities    map[string][]string
	recommendations map[string][]string
}

// RegistryOption customizes a Registry at construction time.
type RegistryOption func(*Registry)

// WithCapabilityGroups maps a capability tag to agent names, in addition to
// the tags each agent declares itself.
func WithCapabilityGroups(groups map[string][]string) RegistryOption {
	return func(r *Registry) {
		for tag, names := range groups {
			key := strings.ToLower(tag)
			r.capabilities[key] = append(r.capabilities[key], names...)
		}
	}
}

// WithRecommendations maps a task type to the agents best suited for it.
func WithRecommendations(recs map[string][]string) RegistryOption {
	return func(r *Registry) {
		for taskType, names := range recs {
			r.recommendations[taskType] = append([]string(nil), names...)
		}
	}
}

// NewRegistry validates configs and builds an immutable registry.
func NewRegistry(configs []types.AgentConfig, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		agents:          make(map[string]types.AgentConfig, len(configs)),
		capabilities:    make(map[string][]string),
		recommendations: make(map[string][]string),
	}
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.agents[cfg.Name]; dup {
			return nil, types.NewValidationError("duplicate agent name %q", cfg.Name)
		}
		r.agents[cfg.Name] = cfg.Clone()
		r.names = append(r.names, cfg.Name)
	}
	sort.Strings(r.names)

	for _, opt := range opts {
		opt(r)
	}
	for tag, names := range r.capabilities {
		for _, n := range names {
			if _, ok := r.agents[n]; !ok {
				return nil, types.NewValidationError("capability %q references unknown agent %q", tag, n)
			}
		}
	}
	for taskType, names := range r.recommendations {
		for _, n := range names {
			if _, ok := r.agents[n]; !ok {
				return nil, types.NewValidationError("recommendation %q references unknown agent %q", taskType, n)
			}
		}
	}
	return r, nil
}

// Lookup returns a copy of the named agent's configuration.
func (r *Registry) Lookup(name string) (types.AgentConfig, error) {
	cfg, ok := r.agents[name]
	if !ok {
		return types.AgentConfig{}, types.NewNotFoundError("agent", name, r.names)
	}
	return cfg.Clone(), nil
}

// Names returns all agent names, sorted.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	return len(r.agents)
}

// List returns every agent, sorted by name.
func (r *Registry) List() []types.AgentConfig {
	return r.collect(func(types.AgentConfig) bool { return true })
}

// FilterByCapability returns agents matching tag. An agent matches when it
// declares the tag, belongs to the tag's capability group, or mentions the
// tag in its name or description.
func (r *Registry) FilterByCapability(tag string) []types.AgentConfig {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil
	}
	needle := strings.ToLower(tag)
	grouped := make(map[string]struct{})
	for _, n := range r.capabilities[needle] {
		grouped[n] = struct{}{}
	}
	return r.collect(func(cfg types.AgentConfig) bool {
		if _, ok := grouped[cfg.Name]; ok {
			return true
		}
		if cfg.HasCapability(tag) {
			return true
		}
		return strings.Contains(strings.ToLower(cfg.Name), needle) ||
			strings.Contains(strings.ToLower(cfg.Description), needle)
	})
}

// FilterByProvider returns agents bound to provider.
func (r *Registry) FilterByProvider(provider types.ProviderID) []types.AgentConfig {
	return r.collect(func(cfg types.AgentConfig) bool {
		return cfg.Provider == provider
	})
}

// Recommend returns the agents suggested for taskType, in preference order.
func (r *Registry) Recommend(taskType string) []types.AgentConfig {
	names := r.recommendations[taskType]
	out := make([]types.AgentConfig, 0, len(names))
	for _, n := range names {
		out = append(out, r.agents[n].Clone())
	}
	return out
}

// Capabilities returns every known capability tag, sorted.
func (r *Registry) Capabilities() []string {
	set := make(map[string]struct{})
	for tag := range r.capabilities {
		set[tag] = struct{}{}
	}
	for _, cfg := range r.agents {
		for _, tag := range cfg.Capabilities {
			set[strings.ToLower(tag)] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) collect(match func(types.AgentConfig) bool) []types.AgentConfig {
	var out []types.AgentConfig
	for _, n := range r.names {
		if cfg := r.agents[n]; match(cfg) {
			out = append(out, cfg.Clone())
		}
	}
	return out
}

// LogFields summarizes the registry for structured logs.
func (r *Registry) LogFields() []zap.Field {
	return []zap.Field{
		zap.Int("agents", len(r.agents)),
		zap.Strings("names", r.names),
	}
}
