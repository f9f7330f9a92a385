package domain

import (
	"fmt"
	"strings"
)

// ObjectKind identifies the type of an ABAP repository object.
type ObjectKind string

const (
	KindClass                  ObjectKind = "class"
	KindInterface              ObjectKind = "interface"
	KindProgram                ObjectKind = "program"
	KindTable                  ObjectKind = "table"
	KindStructure              ObjectKind = "structure"
	KindDomain                 ObjectKind = "domain"
	KindDataElement            ObjectKind = "data_element"
	KindView                   ObjectKind = "view"
	KindFunctionGroup          ObjectKind = "function_group"
	KindFunctionModule         ObjectKind = "function_module"
	KindMetadataExtension      ObjectKind = "metadata_extension"
	KindBehaviorDefinition     ObjectKind = "behavior_definition"
	KindBehaviorImplementation ObjectKind = "behavior_implementation"
)

// AllKinds lists every supported object kind in a stable order.
var AllKinds = []ObjectKind{
	KindClass,
	KindInterface,
	KindProgram,
	KindTable,
	KindStructure,
	KindDomain,
	KindDataElement,
	KindView,
	KindFunctionGroup,
	KindFunctionModule,
	KindMetadataExtension,
	KindBehaviorDefinition,
	KindBehaviorImplementation,
}

// ParseKind converts a user supplied kind (case-insensitive, '-' or '_') into an ObjectKind.
func ParseKind(s string) (ObjectKind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	for _, k := range AllKinds {
		if string(k) == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown object kind %q", s)
}

// Title returns a human readable label ("Class", "Data Element").
func (k ObjectKind) Title() string {
	parts := strings.Split(string(k), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// ObjectRef identifies a remote repository object.
type ObjectRef struct {
	Kind    ObjectKind `json:"kind" mapstructure:"kind"`
	Name    string     `json:"name" mapstructure:"name"`
	Package string     `json:"package,omitempty" mapstructure:"package"`

	// Parent is the owning container, e.g. the function group of a function module.
	Parent string `json:"parent,omitempty" mapstructure:"parent"`
}

// NewObjectRef builds a normalized reference. ABAP names are case-insensitive and stored upper-case.
func NewObjectRef(kind ObjectKind, name, pkg string) ObjectRef {
	return ObjectRef{
		Kind:    kind,
		Name:    strings.ToUpper(strings.TrimSpace(name)),
		Package: strings.ToUpper(strings.TrimSpace(pkg)),
	}
}

// Normalize upper-cases the name, package and parent of the reference.
func (r ObjectRef) Normalize() ObjectRef {
	r.Name = strings.ToUpper(strings.TrimSpace(r.Name))
	r.Package = strings.ToUpper(strings.TrimSpace(r.Package))
	r.Parent = strings.ToUpper(strings.TrimSpace(r.Parent))
	return r
}

// WithParent returns a copy of the reference bound to a parent container.
func (r ObjectRef) WithParent(parent string) ObjectRef {
	r.Parent = strings.ToUpper(strings.TrimSpace(parent))
	return r
}

// Key returns a stable identity for the object, independent of its package.
func (r ObjectRef) Key() string {
	if r.Parent != "" {
		return string(r.Kind) + ":" + r.Parent + "/" + r.Name
	}
	return string(r.Kind) + ":" + r.Name
}

func (r ObjectRef) String() string {
	return r.Kind.Title() + " " + r.Name
}

// Validate reports whether the reference carries the minimum identity.
func (r ObjectRef) Validate() error {
	if r.Kind == "" {
		return fmt.Errorf("object kind is required")
	}
	if r.Name == "" {
		return fmt.Errorf("%s name is required", strings.ToLower(r.Kind.Title()))
	}
	if r.Kind == KindFunctionModule && r.Parent == "" {
		return fmt.Errorf("function module %s requires a function group", r.Name)
	}
	return nil
}

// ObjectMetadata is the create-time description of a new object.
type ObjectMetadata struct {
	Ref              ObjectRef         `json:"ref" mapstructure:"ref"`
	Description      string            `json:"description" mapstructure:"description"`
	TransportRequest string            `json:"transport_request,omitempty" mapstructure:"transport_request"`
	Responsible      string            `json:"responsible,omitempty" mapstructure:"responsible"`
	Language         string            `json:"language,omitempty" mapstructure:"language"`
	Extra            map[string]string `json:"extra,omitempty" mapstructure:"extra"`
}

// ExtraValue returns a kind-specific attribute or the fallback.
func (m ObjectMetadata) ExtraValue(key, fallback string) string {
	if v, ok := m.Extra[key]; ok && v != "" {
		return v
	}
	return fallback
}
