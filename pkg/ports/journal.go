package ports

import (
	"context"
	"time"

	"github.com/aretw0/adtkit/pkg/domain"
)

// JournalEntry is the audit record of one transaction or operation.
type JournalEntry struct {
	ID        string               `json:"id"`
	SessionID string               `json:"session_id,omitempty"`
	Operation string               `json:"operation"`
	Ref       domain.ObjectRef     `json:"ref"`
	Success   bool                 `json:"success"`
	ErrorKind domain.ErrorKind     `json:"error_kind,omitempty"`
	Message   string               `json:"message"`
	Trace     []domain.PhaseRecord `json:"trace,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// Journal records transaction outcomes.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry) error
	Recent(ctx context.Context, limit int) ([]JournalEntry, error)
}

// NewJournalEntry converts a finish event into its journal record.
// Events of calls rejected before a transaction began get a fresh ID.
func NewJournalEntry(e *domain.FinishEvent, newID func() string) JournalEntry {
	entry := JournalEntry{
		ID:        e.TransactionID,
		SessionID: e.SessionID,
		Operation: e.Operation,
		Ref:       e.Ref,
		Success:   e.Success(),
		Trace:     e.Trace,
		CreatedAt: e.Timestamp,
	}
	if entry.ID == "" {
		entry.ID = newID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	switch {
	case e.Err != nil:
		entry.ErrorKind = domain.KindOf(e.Err)
		entry.Message = e.Err.Error()
	case e.Result != nil:
		entry.Message = e.Result.Message
		if len(entry.Trace) == 0 {
			entry.Trace = e.Result.Trace
		}
	}
	return entry
}
