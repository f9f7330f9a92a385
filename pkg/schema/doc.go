// Package schema validates the kind-specific metadata carried by a create request.
//
// Kind-specific fields travel as strings (they come from command-line flags,
// front matter and tool arguments alike), so every Type parses the string form:
//
//	fields := schema.Schema{
//	    "final":      schema.Bool(),
//	    "visibility": schema.Enum("public", "protected", "private"),
//	}
//
//	err := fields.Validate(map[string]string{"final": "yes"})
//	// field "final": expected bool
//
// Fields are optional; keys the schema does not declare are left alone.
package schema
