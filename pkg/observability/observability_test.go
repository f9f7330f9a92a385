package observability_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/observability"
	"github.com/aretw0/adtkit/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ref = domain.NewObjectRef(domain.KindClass, "ZCL_DEMO", "$TMP")

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnPhase(ctx, &domain.PhaseEvent{Ref: ref, Phase: domain.PhaseLocked})
	hooks.OnPhase(ctx, &domain.PhaseEvent{Ref: ref, Phase: domain.PhaseLocked})
	hooks.OnPrimitive(ctx, &domain.PrimitiveEvent{Ref: ref, Primitive: domain.PrimitiveLock, Duration: 20 * time.Millisecond})
	hooks.OnFinish(ctx, &domain.FinishEvent{Operation: "update", Ref: ref, Result: &domain.Result{Success: true}})
	hooks.OnFinish(ctx, &domain.FinishEvent{
		Operation: "update",
		Ref:       ref,
		Err:       domain.NewError(domain.KindLockConflict, "lock", ref, "Lock conflict", nil),
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Phases.WithLabelValues("class", "locked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("class", "update", "success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("class", "update", "failure", "lock_conflict")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Primitives))

	n, err := testutil.GatherAndCount(reg, "adtkit_phase_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type memJournal struct {
	mu      sync.Mutex
	entries []ports.JournalEntry
	err     error
}

func (j *memJournal) Record(_ context.Context, e ports.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) Recent(context.Context, int) ([]ports.JournalEntry, error) {
	return j.entries, nil
}

func TestJournalHooks(t *testing.T) {
	j := &memJournal{}
	hooks := observability.JournalHooks(j, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hooks.OnFinish(ctx, &domain.FinishEvent{
		TransactionID: "tx-1",
		SessionID:     "s1",
		Operation:     "create",
		Ref:           ref,
		Trace:         []domain.PhaseRecord{{Phase: domain.PhaseStart}, {Phase: domain.PhaseFailed}},
		Err:           domain.NewError(domain.KindCheckFailed, "check", ref, "Check failed: syntax error", nil),
	})

	require.Len(t, j.entries, 1)
	e := j.entries[0]
	assert.Equal(t, "tx-1", e.ID)
	assert.Equal(t, "s1", e.SessionID)
	assert.Equal(t, domain.KindCheckFailed, e.ErrorKind)
	assert.Len(t, e.Trace, 2)
}

func TestJournalHooks_RecordErrorIsSwallowed(t *testing.T) {
	j := &memJournal{err: errors.New("disk full")}
	hooks := observability.JournalHooks(j, nil)
	assert.NotPanics(t, func() {
		hooks.OnFinish(context.Background(), &domain.FinishEvent{Operation: "check", Ref: ref, Result: &domain.Result{Success: true}})
	})
}
