package loam

// ObjectMetadata is the frontmatter of a source document.
// The body (or its first fenced code block) is the object source.
type ObjectMetadata struct {
	Kind          string `json:"kind" mapstructure:"kind"`
	Name          string `json:"name" mapstructure:"name"`
	Package       string `json:"package" mapstructure:"package"`
	FunctionGroup string `json:"function_group" mapstructure:"function_group"`
	Description   string `json:"description" mapstructure:"description"`
	Transport     string `json:"transport" mapstructure:"transport"`
	Responsible   string `json:"responsible" mapstructure:"responsible"`

	// Activate overrides the flow default (Create on, Update off).
	Activate *bool `json:"activate" mapstructure:"activate"`

	// Extra carries kind-specific create attributes (data_type, length, ...).
	Extra map[string]any `json:"extra" mapstructure:"extra"`
}
