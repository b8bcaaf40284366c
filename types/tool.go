package types

import "encoding/json"

// ToolSchema declares a tool an agent may call.
type ToolSchema struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description"`
	InputSchema json.RawMessage `json:"input_schema,omitempty" yaml:"-"`
	// InputSchemaYAML lets library files declare the schema inline; it is
	// converted to InputSchema when the library is parsed.
	InputSchemaYAML map[string]any `json:"-" yaml:"input_schema"`
}

// ToolInvocation is a tool call requested by the model.
type ToolInvocation struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}
