package domain

import (
	"context"
	"time"
)

// Primitive names a single remote operation of a capability set.
type Primitive string

const (
	PrimitiveValidate Primitive = "validate"
	PrimitiveCreate   Primitive = "create"
	PrimitiveLock     Primitive = "lock"
	PrimitiveCheck    Primitive = "check"
	PrimitiveUpdate   Primitive = "update"
	PrimitiveUnlock   Primitive = "unlock"
	PrimitiveActivate Primitive = "activate"
	PrimitiveDelete   Primitive = "delete"
)

// PhaseEvent is emitted whenever a transaction changes phase.
type PhaseEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	TransactionID string    `json:"transaction_id"`
	Flow          Flow      `json:"flow"`
	Ref           ObjectRef `json:"ref"`
	Phase         Phase     `json:"phase"`
}

// PrimitiveEvent is emitted after each remote primitive returns.
type PrimitiveEvent struct {
	Timestamp     time.Time     `json:"timestamp"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Ref           ObjectRef     `json:"ref"`
	Primitive     Primitive     `json:"primitive"`
	Duration      time.Duration `json:"duration"`
	Err           error         `json:"-"`
}

// FinishEvent is emitted once per transaction or single-object operation with its outcome.
// Operation is the flow name for transactions and the primitive name otherwise.
type FinishEvent struct {
	Timestamp     time.Time     `json:"timestamp"`
	TransactionID string        `json:"transaction_id,omitempty"`
	SessionID     string        `json:"session_id,omitempty"`
	Operation     string        `json:"operation"`
	Flow          Flow          `json:"flow,omitempty"`
	Ref           ObjectRef     `json:"ref"`
	Trace         []PhaseRecord `json:"trace,omitempty"`
	Result        *Result       `json:"result,omitempty"`
	Err           error         `json:"-"`
}

// Success reports whether the operation succeeded.
func (e *FinishEvent) Success() bool {
	return e.Err == nil && e.Result != nil && e.Result.Success
}

// LifecycleHooks defines callbacks for coordinator observability.
type LifecycleHooks struct {
	OnPhase     func(context.Context, *PhaseEvent)
	OnPrimitive func(context.Context, *PrimitiveEvent)
	OnFinish    func(context.Context, *FinishEvent)
}

// Merge combines two hook sets, calling a before b.
func (a LifecycleHooks) Merge(b LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnPhase: func(ctx context.Context, e *PhaseEvent) {
			if a.OnPhase != nil {
				a.OnPhase(ctx, e)
			}
			if b.OnPhase != nil {
				b.OnPhase(ctx, e)
			}
		},
		OnPrimitive: func(ctx context.Context, e *PrimitiveEvent) {
			if a.OnPrimitive != nil {
				a.OnPrimitive(ctx, e)
			}
			if b.OnPrimitive != nil {
				b.OnPrimitive(ctx, e)
			}
		},
		OnFinish: func(ctx context.Context, e *FinishEvent) {
			if a.OnFinish != nil {
				a.OnFinish(ctx, e)
			}
			if b.OnFinish != nil {
				b.OnFinish(ctx, e)
			}
		},
	}
}
