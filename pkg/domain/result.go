package domain

import (
	"fmt"
	"strings"
)

// Result is the structured outcome of an edit transaction or single operation.
type Result struct {
	TransactionID string            `json:"transaction_id,omitempty"`
	Success       bool              `json:"success"`
	Flow          Flow              `json:"flow,omitempty"`
	Ref           ObjectRef         `json:"ref"`
	Message       string            `json:"message"`
	Phase         Phase             `json:"phase,omitempty"`
	Check         *CheckResult      `json:"check,omitempty"`
	Activation    *ActivationResult `json:"activation,omitempty"`
	Activated     bool              `json:"activated"`
	Warnings      []string          `json:"warnings,omitempty"`
	Trace         []PhaseRecord     `json:"trace,omitempty"`
}

// Payload renders the success payload exposed to callers: {success, <kind>_name, message, ...}.
func (r *Result) Payload() map[string]any {
	out := map[string]any{
		"success": r.Success,
		"message": r.Message,
	}
	out[string(r.Ref.Kind)+"_name"] = r.Ref.Name
	if r.Ref.Package != "" {
		out["package_name"] = r.Ref.Package
	}
	if r.Flow != "" {
		out["activated"] = r.Activated
	}
	if r.TransactionID != "" {
		out["transaction_id"] = r.TransactionID
	}
	if len(r.Warnings) > 0 {
		out["warnings"] = r.Warnings
	}
	if r.Check != nil {
		out["check"] = r.Check
	}
	if r.Activation != nil {
		out["activation"] = r.Activation
	}
	return out
}

// Summary returns a short single line description.
func (r *Result) Summary() string {
	verb := "processed"
	switch r.Flow {
	case FlowCreate:
		verb = "created"
	case FlowUpdate:
		verb = "updated"
	}
	msg := fmt.Sprintf("%s %s successfully", r.Ref, verb)
	if r.Activated {
		msg += " and activated"
	}
	if len(r.Warnings) > 0 {
		msg += " (" + strings.Join(r.Warnings, "; ") + ")"
	}
	return msg + "."
}
