package types

// WorkflowResolution is the boundary tool metadata resolved for one workflow
type WorkflowResolution struct {
	UUID        string   `json:"uuid,omitempty"`
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	ToolShedToolReferences []string         `json:"toolshed_tools"`
	ResolvedInputTools     []ToolDefinition `json:"input_tools"`
	ResolvedOutputTools    []ToolDefinition `json:"output_tools"`

	Inputs        []ParameterDeclaration `json:"inputs"`
	Outputs       []ParameterDeclaration `json:"outputs"`
	InputFormats  []string               `json:"input_formats"`
	OutputFormats []string               `json:"output_formats"`
}
