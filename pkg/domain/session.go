package domain

import "time"

// Cookie is a serializable HTTP cookie carried by a Session.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Path   string `json:"path,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// Session is the opaque stateful session blob of the remote system.
// The coordinator passes it through untouched; only the transport mutates it.
// A Session must not be shared by concurrent transactions.
type Session struct {
	ID        string    `json:"id"`
	BaseURL   string    `json:"base_url,omitempty"`
	Client    string    `json:"client,omitempty"`
	CSRFToken string    `json:"csrf_token,omitempty"`
	Cookies   []Cookie  `json:"cookies,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an empty session with the given identifier.
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		UpdatedAt: time.Now().UTC(),
	}
}

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Cookies = append([]Cookie(nil), s.Cookies...)
	return &cp
}

// Reset drops the token and cookies, forcing a fresh login on the next call.
func (s *Session) Reset() {
	s.CSRFToken = ""
	s.Cookies = nil
	s.UpdatedAt = time.Now().UTC()
}
