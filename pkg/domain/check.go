package domain

import (
	"strconv"
	"strings"
)

// Version selects which version of the source a check or read addresses.
type Version string

const (
	VersionInactive Version = "inactive"
	VersionActive   Version = "active"
)

// Severity of a check or activation message, as reported by the backend.
type Severity string

const (
	SeverityError   Severity = "E"
	SeverityWarning Severity = "W"
	SeverityInfo    Severity = "I"
	SeverityAbort   Severity = "A"
)

// IsError reports whether the severity blocks a change.
func (s Severity) IsError() bool {
	return s == SeverityError || s == SeverityAbort
}

// CheckStatus summarizes a check run.
type CheckStatus string

const (
	CheckPassed         CheckStatus = "passed"
	CheckFailed         CheckStatus = "failed"
	CheckAlreadyChecked CheckStatus = "already_checked"
)

// CheckMessage is a single finding of a syntax check.
type CheckMessage struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
	URI      string   `json:"uri,omitempty"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
}

// CheckResult is the outcome of a syntax check.
type CheckResult struct {
	Status   CheckStatus    `json:"status"`
	Messages []CheckMessage `json:"messages,omitempty"`
}

// Errors returns the blocking messages.
func (c *CheckResult) Errors() []CheckMessage {
	if c == nil {
		return nil
	}
	var out []CheckMessage
	for _, m := range c.Messages {
		if m.Severity.IsError() {
			out = append(out, m)
		}
	}
	return out
}

// HasErrors reports whether the check found blocking messages.
func (c *CheckResult) HasErrors() bool {
	return len(c.Errors()) > 0
}

// ErrorText joins the blocking messages into a single line.
func (c *CheckResult) ErrorText() string {
	errs := c.Errors()
	parts := make([]string, 0, len(errs))
	for _, m := range errs {
		if m.Line > 0 {
			parts = append(parts, m.Text+" (line "+strconv.Itoa(m.Line)+")")
			continue
		}
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "; ")
}

// ActivationResult is the outcome of promoting inactive source to active.
type ActivationResult struct {
	Activated bool           `json:"activated"`
	Checked   bool           `json:"checked"`
	Generated bool           `json:"generated"`
	Messages  []CheckMessage `json:"messages,omitempty"`
}

// HasErrors reports whether activation produced blocking messages.
func (a *ActivationResult) HasErrors() bool {
	if a == nil {
		return false
	}
	for _, m := range a.Messages {
		if m.Severity.IsError() {
			return true
		}
	}
	return false
}
