package domain

import "time"

// Phase is a step of the edit transaction state machine.
type Phase string

const (
	PhaseStart     Phase = "start"
	PhaseValidated Phase = "validated"
	PhaseCreated   Phase = "created"
	PhaseLocked    Phase = "locked"
	PhaseChecked   Phase = "checked"
	PhaseUpdated   Phase = "updated"
	PhaseUnlocked  Phase = "unlocked"
	PhaseActivated Phase = "activated"
	PhaseFailed    Phase = "failed"
)

// phaseOrder ranks the forward phases. Failed is reachable from anywhere.
var phaseOrder = map[Phase]int{
	PhaseStart:     0,
	PhaseValidated: 1,
	PhaseCreated:   2,
	PhaseLocked:    3,
	PhaseChecked:   4,
	PhaseUpdated:   5,
	PhaseUnlocked:  6,
	PhaseActivated: 7,
}

// CanAdvance reports whether moving from p to next keeps phases monotonic.
func (p Phase) CanAdvance(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseFailed {
		return true
	}
	from, ok := phaseOrder[p]
	if !ok {
		return false
	}
	to, ok := phaseOrder[next]
	if !ok {
		return false
	}
	return to > from
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseActivated || p == PhaseFailed
}

// Flow names the workflow a transaction runs.
type Flow string

const (
	FlowCreate Flow = "create"
	FlowUpdate Flow = "update"
)

// PhaseRecord is one entry of a transaction trace.
type PhaseRecord struct {
	Phase Phase     `json:"phase"`
	At    time.Time `json:"at"`
	Note  string    `json:"note,omitempty"`
}

// TransactionState is the transient state of one edit transaction.
// It is discarded after the call returns, except for what ends up in the Result.
type TransactionState struct {
	ID        string        `json:"id"`
	Flow      Flow          `json:"flow"`
	Phase     Phase         `json:"phase"`
	Ref       ObjectRef     `json:"ref"`
	Lock      *LockHandle   `json:"lock,omitempty"`
	LastCheck *CheckResult  `json:"last_check,omitempty"`
	Trace     []PhaseRecord `json:"trace"`
}

// NewTransactionState creates a state positioned at PhaseStart.
func NewTransactionState(id string, flow Flow, ref ObjectRef) *TransactionState {
	return &TransactionState{
		ID:    id,
		Flow:  flow,
		Phase: PhaseStart,
		Ref:   ref,
		Trace: []PhaseRecord{{Phase: PhaseStart, At: time.Now().UTC()}},
	}
}

// Advance moves the state to next, recording it in the trace.
func (s *TransactionState) Advance(next Phase, note string) error {
	if !s.Phase.CanAdvance(next) {
		return &TransitionError{From: s.Phase, To: next}
	}
	s.Phase = next
	s.Trace = append(s.Trace, PhaseRecord{Phase: next, At: time.Now().UTC(), Note: note})
	return nil
}

// Reached reports whether the trace passed through the given phase.
func (s *TransactionState) Reached(p Phase) bool {
	for _, rec := range s.Trace {
		if rec.Phase == p {
			return true
		}
	}
	return false
}
