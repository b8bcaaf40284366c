package workflow

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BaSui01/agentorch/types"
	"gopkg.in/yaml.v3"
)

// TaskSpec is one agent invocation within a workflow.
type TaskSpec struct {
	// ID names the task within its workflow. Empty IDs default to
	// "task-<index>".
	ID             string         `json:"id,omitempty" yaml:"id"`
	AgentName      string         `json:"agentName" yaml:"agent"`
	PromptTemplate string         `json:"prompt" yaml:"prompt"`
	Context        map[string]any `json:"context,omitempty" yaml:"context"`
	// DependsOn lists task IDs, or decimal task indices, that must finish
	// before this task starts.
	DependsOn []string `json:"dependsOn,omitempty" yaml:"depends_on"`
}

// Template is a named, ordered list of tasks.
type Template struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description"`
	Tasks       []TaskSpec `json:"tasks" yaml:"tasks"`
}

// TaskID returns the effective ID of the task at index i.
func (t Template) TaskID(i int) string {
	if id := strings.TrimSpace(t.Tasks[i].ID); id != "" {
		return id
	}
	return fmt.Sprintf("task-%d", i)
}

// RequiredVariables lists the placeholders callers are expected to supply,
// excluding dependency outputs which the scheduler fills in.
func (t Template) RequiredVariables() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, task := range t.Tasks {
		for _, key := range Placeholders(task.PromptTemplate) {
			if strings.HasPrefix(key, DependenciesKey+".") {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	return out
}

// Library is a read-only set of workflow templates.
type Library struct {
	templates map[string]Template
	names     []string
}

// NewLibrary validates every template's task graph and builds a library.
func NewLibrary(templates ...Template) (*Library, error) {
	lib := &Library{templates: make(map[string]Template, len(templates))}
	for _, tmpl := range templates {
		if tmpl.Name == "" {
			return nil, types.NewValidationError("workflow name is required")
		}
		if _, dup := lib.templates[tmpl.Name]; dup {
			return nil, types.NewValidationError("duplicate workflow name %q", tmpl.Name)
		}
		if _, err := BuildGraph(tmpl); err != nil {
			return nil, fmt.Errorf("workflow %s: %w", tmpl.Name, err)
		}
		lib.templates[tmpl.Name] = tmpl
		lib.names = append(lib.names, tmpl.Name)
	}
	sort.Strings(lib.names)
	return lib, nil
}

// Get returns the named template or a NOT_FOUND error listing valid names.
func (l *Library) Get(name string) (Template, error) {
	tmpl, ok := l.templates[name]
	if !ok {
		return Template{}, types.NewNotFoundError("workflow", name, l.names)
	}
	return tmpl, nil
}

// Names returns the template names, sorted.
func (l *Library) Names() []string {
	return append([]string(nil), l.names...)
}

// List returns all templates sorted by name.
func (l *Library) List() []Template {
	out := make([]Template, 0, len(l.names))
	for _, n := range l.names {
		out = append(out, l.templates[n])
	}
	return out
}

type libraryFile struct {
	Workflows []Template `yaml:"workflows"`
}

// LoadLibrary reads a workflow library YAML file.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow library: %w", err)
	}
	return ParseLibrary(data)
}

// ParseLibrary builds a Library from workflow library YAML.
func ParseLibrary(data []byte) (*Library, error) {
	var file libraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, types.NewValidationError("parse workflow library: %v", err)
	}
	return NewLibrary(file.Workflows...)
}
