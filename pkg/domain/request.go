package domain

// CreateRequest describes a Create edit transaction.
type CreateRequest struct {
	Ref              ObjectRef         `json:"ref" mapstructure:"ref"`
	Description      string            `json:"description" mapstructure:"description"`
	Source           string            `json:"source" mapstructure:"source"`
	TransportRequest string            `json:"transport_request,omitempty" mapstructure:"transport_request"`
	Responsible      string            `json:"responsible,omitempty" mapstructure:"responsible"`
	Extra            map[string]string `json:"extra,omitempty" mapstructure:"extra"`

	// Activate defaults to true when nil.
	Activate *bool `json:"activate,omitempty" mapstructure:"activate"`
}

// Metadata derives the create-time metadata of the request.
func (r CreateRequest) Metadata() ObjectMetadata {
	return ObjectMetadata{
		Ref:              r.Ref,
		Description:      r.Description,
		TransportRequest: r.TransportRequest,
		Responsible:      r.Responsible,
		Extra:            r.Extra,
	}
}

// ShouldActivate resolves the activation flag for Create (default on).
func (r CreateRequest) ShouldActivate() bool {
	return r.Activate == nil || *r.Activate
}

// UpdateRequest describes an Update edit transaction.
type UpdateRequest struct {
	Ref              ObjectRef `json:"ref" mapstructure:"ref"`
	Source           string    `json:"source" mapstructure:"source"`
	TransportRequest string    `json:"transport_request,omitempty" mapstructure:"transport_request"`

	// Activate defaults to false when nil.
	Activate *bool `json:"activate,omitempty" mapstructure:"activate"`
}

// ShouldActivate resolves the activation flag for Update (default off).
func (r UpdateRequest) ShouldActivate() bool {
	return r.Activate != nil && *r.Activate
}

// Bool returns a pointer to b, for optional flags.
func Bool(b bool) *bool {
	return &b
}
