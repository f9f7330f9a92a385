package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/adtkit/pkg/domain"
)

// StreamManager fans finish events out to the SSE subscribers of a session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager; a nil logger means slog.Default.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// streamEvent is the SSE payload of one finished operation.
type streamEvent struct {
	TransactionID string           `json:"transaction_id,omitempty"`
	Operation     string           `json:"operation"`
	Ref           domain.ObjectRef `json:"ref"`
	Success       bool             `json:"success"`
	ErrorKind     domain.ErrorKind `json:"error_kind,omitempty"`
	Message       string           `json:"message"`
}

// Hooks broadcasts every finished operation to the subscribers of its session.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFinish: func(ctx context.Context, e *domain.FinishEvent) {
			evt := streamEvent{
				TransactionID: e.TransactionID,
				Operation:     e.Operation,
				Ref:           e.Ref,
				Success:       e.Success(),
			}
			switch {
			case e.Err != nil:
				evt.ErrorKind = domain.KindOf(e.Err)
				evt.Message = e.Err.Error()
			case e.Result != nil:
				evt.Message = e.Result.Message
			}
			data, err := json.Marshal(evt)
			if err != nil {
				return
			}
			sm.Broadcast(e.SessionID, string(data))
		},
	}
}
