package domain_test

import (
	"testing"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionState_AdvanceIsMonotonic(t *testing.T) {
	st := domain.NewTransactionState("tx-1", domain.FlowUpdate, domain.NewObjectRef(domain.KindClass, "zcl_demo", "$tmp"))

	require.NoError(t, st.Advance(domain.PhaseLocked, ""))
	require.NoError(t, st.Advance(domain.PhaseChecked, "passed"))

	var terr *domain.TransitionError
	require.ErrorAs(t, st.Advance(domain.PhaseLocked, ""), &terr)
	assert.Equal(t, domain.PhaseChecked, terr.From)

	assert.True(t, st.Reached(domain.PhaseLocked))
	assert.False(t, st.Reached(domain.PhaseCreated))
	assert.Len(t, st.Trace, 3)
}

func TestPhase_TerminalPhasesAreFinal(t *testing.T) {
	for _, p := range []domain.Phase{domain.PhaseActivated, domain.PhaseFailed} {
		assert.True(t, p.Terminal(), p)
		assert.False(t, p.CanAdvance(domain.PhaseFailed), p)
	}
	assert.False(t, domain.PhaseUnlocked.Terminal())
	assert.True(t, domain.PhaseUnlocked.CanAdvance(domain.PhaseActivated))

	st := domain.NewTransactionState("tx-2", domain.FlowCreate, domain.ObjectRef{})
	require.NoError(t, st.Advance(domain.PhaseFailed, "boom"))
	assert.Error(t, st.Advance(domain.PhaseFailed, "again"))
}

func TestSession_ResetDropsCredentialsOnly(t *testing.T) {
	sess := domain.NewSession("sess-1")
	sess.BaseURL = "https://sap.example.com"
	sess.CSRFToken = "TOKEN"
	sess.Cookies = []domain.Cookie{{Name: "SAP_SESSIONID", Value: "abc"}}
	snap := sess.Snapshot()

	sess.Reset()
	assert.Empty(t, sess.CSRFToken)
	assert.Empty(t, sess.Cookies)
	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, "https://sap.example.com", sess.BaseURL)

	assert.Equal(t, "TOKEN", snap.CSRFToken, "snapshot is independent")
	require.Len(t, snap.Cookies, 1)
}
