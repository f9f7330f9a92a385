package runtime_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/adtkit/internal/runtime"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockLedger_OneLockPerObjectPerSession(t *testing.T) {
	ledger := runtime.NewLockLedger()
	ref := domain.NewObjectRef(domain.KindClass, "ZCL_A", "")

	require.NoError(t, ledger.Reserve("s1", ref))
	assert.Error(t, ledger.Reserve("s1", ref), "pending reservation blocks a second lock")
	assert.NoError(t, ledger.Reserve("s2", ref), "other sessions are not tracked against each other")

	_, ok := ledger.Lookup("s1", ref)
	assert.False(t, ok, "pending slots have no handle yet")

	ledger.Confirm(&domain.LockHandle{Token: "T1", SessionID: "s1", Ref: ref})
	h, ok := ledger.Lookup("s1", ref)
	require.True(t, ok)
	assert.Equal(t, "T1", h.Token)

	owner, ok := ledger.Owner(ref, "T1")
	require.True(t, ok)
	assert.Equal(t, "s1", owner)

	ledger.Forget("s1", ref)
	ledger.Forget("s2", ref)
	assert.Zero(t, ledger.Len())
	assert.NoError(t, ledger.Reserve("s1", ref))
}

func TestLockLedger_ConcurrentReserve(t *testing.T) {
	ledger := runtime.NewLockLedger()
	ref := domain.NewObjectRef(domain.KindProgram, "ZPROG", "")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ledger.Reserve("shared", ref) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
