package runtime

import (
	"fmt"
	"sync"

	"github.com/aretw0/adtkit/pkg/domain"
)

// LockLedger tracks the locks held by this process, keyed by session and object.
// It enforces at most one outstanding lock per object per session and rejects
// handles presented on a session other than the one that produced them.
type LockLedger struct {
	mu      sync.Mutex
	entries map[string]*ledgerEntry
}

type ledgerEntry struct {
	handle  *domain.LockHandle
	pending bool
}

// NewLockLedger creates an empty ledger.
func NewLockLedger() *LockLedger {
	return &LockLedger{entries: make(map[string]*ledgerEntry)}
}

func ledgerKey(sessionID string, ref domain.ObjectRef) string {
	return sessionID + "|" + ref.Key()
}

// Reserve claims the (session, object) slot before the remote lock call.
// It fails if a lock is already held or being acquired in the same session.
func (l *LockLedger) Reserve(sessionID string, ref domain.ObjectRef) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(sessionID, ref)
	if _, held := l.entries[key]; held {
		return fmt.Errorf("%s is already locked in session %s", ref, sessionID)
	}
	l.entries[key] = &ledgerEntry{pending: true}
	return nil
}

// Confirm records the handle obtained for a reserved slot.
func (l *LockLedger) Confirm(handle *domain.LockHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[ledgerKey(handle.SessionID, handle.Ref)] = &ledgerEntry{handle: handle}
}

// Forget drops the slot, whether it was reserved or confirmed.
func (l *LockLedger) Forget(sessionID string, ref domain.ObjectRef) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, ledgerKey(sessionID, ref))
}

// Lookup returns the confirmed handle for the slot, if any.
func (l *LockLedger) Lookup(sessionID string, ref domain.ObjectRef) (*domain.LockHandle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[ledgerKey(sessionID, ref)]
	if !ok || e.pending {
		return nil, false
	}
	return e.handle, true
}

// Owner returns the session holding a confirmed lock with the given token on ref.
func (l *LockLedger) Owner(ref domain.ObjectRef, token string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.pending || e.handle == nil {
			continue
		}
		if e.handle.Token == token && e.handle.Ref.Key() == ref.Key() {
			return e.handle.SessionID, true
		}
	}
	return "", false
}

// Len returns the number of tracked slots.
func (l *LockLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
