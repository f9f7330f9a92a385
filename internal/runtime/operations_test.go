package runtime_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/aretw0/adtkit/internal/testutils"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_Delete_ScenarioE_NotFound(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.Errs[domain.PrimitiveDelete] = &domain.RemoteError{Method: "POST", URL: "/sap/bc/adt/deletion/delete", Status: http.StatusNotFound}
	c := newCoordinator(t, caps)

	_, err := c.Delete(context.Background(), domain.NewSession("s"), classRef(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Class ZCL_DEMO not found.", err.Error())
}

func TestCoordinator_Delete_Success(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	c := newCoordinator(t, caps)

	res, err := c.Delete(context.Background(), domain.NewSession("s"), classRef(), "DEVK900001")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Class ZCL_DEMO deleted successfully.", res.Message)
	assert.Equal(t, []domain.Primitive{domain.PrimitiveDelete}, caps.Calls())
}

func TestCoordinator_Delete_RejectsWhileLockedInSession(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	c := newCoordinator(t, caps)
	sess := domain.NewSession("s")

	_, err := c.Lock(context.Background(), sess, classRef())
	require.NoError(t, err)

	_, err = c.Delete(context.Background(), sess, classRef(), "")
	assert.ErrorIs(t, err, domain.ErrLockConflict)
	assert.Zero(t, caps.Count(domain.PrimitiveDelete))
}

func TestCoordinator_Check_Idempotent(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.CheckResults = []*domain.CheckResult{
		{},
		{Messages: []domain.CheckMessage{{Severity: domain.SeverityError, Text: "ZCL_DEMO already checked"}}},
	}
	c := newCoordinator(t, caps)
	sess := domain.NewSession("s")

	first, err := c.Check(context.Background(), sess, classRef(), domain.VersionInactive, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckPassed, first.Check.Status)

	second, err := c.Check(context.Background(), sess, classRef(), domain.VersionInactive, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckAlreadyChecked, second.Check.Status)
	assert.Equal(t, "Class ZCL_DEMO was already checked.", second.Message)
}

func TestCoordinator_Check_Fails(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.CheckResults = []*domain.CheckResult{checkError("Unknown type ZTYPE")}
	c := newCoordinator(t, caps)

	res, err := c.Check(context.Background(), domain.NewSession("s"), classRef(), "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCheckFailed)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, domain.CheckFailed, res.Check.Status)
}

func TestCoordinator_Activate(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.ActivateResult = &domain.ActivationResult{
		Activated: true,
		Messages:  []domain.CheckMessage{{Severity: domain.SeverityWarning, Text: "Unused variable LV_X"}},
	}
	c := newCoordinator(t, caps)

	res, err := c.Activate(context.Background(), domain.NewSession("s"), classRef())
	require.NoError(t, err)
	assert.True(t, res.Activated)
	assert.Equal(t, []string{"Unused variable LV_X"}, res.Warnings)
}

func TestCoordinator_LockUnlock(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	c := newCoordinator(t, caps)
	owner := domain.NewSession("owner")
	other := domain.NewSession("other")

	handle, err := c.Lock(context.Background(), owner, classRef())
	require.NoError(t, err)
	assert.True(t, handle.BoundTo(owner))
	assert.False(t, handle.AcquiredAt.IsZero())

	t.Run("Second Lock In Same Session Conflicts", func(t *testing.T) {
		_, err := c.Lock(context.Background(), owner, classRef())
		assert.ErrorIs(t, err, domain.ErrLockConflict)
		assert.Equal(t, 1, caps.Count(domain.PrimitiveLock))
	})

	t.Run("Handle Rejected On Another Session", func(t *testing.T) {
		_, err := c.Unlock(context.Background(), other, classRef(), handle.Token)
		assert.ErrorIs(t, err, domain.ErrInvalidLockHandle)
		assert.Zero(t, caps.Count(domain.PrimitiveUnlock))
	})

	t.Run("Wrong Token Rejected", func(t *testing.T) {
		_, err := c.Unlock(context.Background(), owner, classRef(), "NOT-THE-TOKEN")
		assert.ErrorIs(t, err, domain.ErrInvalidLockHandle)
	})

	t.Run("Owner Unlocks", func(t *testing.T) {
		res, err := c.Unlock(context.Background(), owner, classRef(), handle.Token)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, []string{handle.Token}, caps.UnlockedTokens())
		assert.Zero(t, c.Ledger().Len())
	})

	t.Run("Empty Token Rejected", func(t *testing.T) {
		_, err := c.Unlock(context.Background(), owner, classRef(), "")
		assert.ErrorIs(t, err, domain.ErrInvalidLockHandle)
	})
}
