package domain

import "time"

// LockHandle is the opaque proof of an exclusive edit right over one object.
// It is only valid within the session that produced it.
type LockHandle struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	Ref       ObjectRef `json:"ref"`

	// CorrNr is the transport request the backend associated with the lock, if any.
	CorrNr     string    `json:"corr_nr,omitempty"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// BoundTo reports whether the handle was produced by the given session.
func (h *LockHandle) BoundTo(sess *Session) bool {
	if h == nil || sess == nil {
		return false
	}
	return h.SessionID == sess.ID
}
