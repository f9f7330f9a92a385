package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"testing"

	"github.com/aretw0/adtkit/internal/runtime"
	"github.com/aretw0/adtkit/internal/testutils"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validClassSource = `CLASS zcl_demo DEFINITION PUBLIC FINAL CREATE PUBLIC.
ENDCLASS.
CLASS zcl_demo IMPLEMENTATION.
ENDCLASS.`

func newCoordinator(t *testing.T, caps *testutils.FakeCapabilities, opts ...runtime.Option) *runtime.Coordinator {
	t.Helper()
	return runtime.NewCoordinator(registry.NewRegistry(caps), opts...)
}

func classRef() domain.ObjectRef {
	return domain.NewObjectRef(domain.KindClass, "zcl_demo", "$tmp")
}

func createReq(source string) domain.CreateRequest {
	return domain.CreateRequest{
		Ref:         classRef(),
		Description: "Demo class",
		Source:      source,
	}
}

func checkError(text string) *domain.CheckResult {
	return &domain.CheckResult{Messages: []domain.CheckMessage{
		{Severity: domain.SeverityError, Text: text, Line: 3},
	}}
}

type netErr struct{}

func (netErr) Error() string   { return "connection reset by peer" }
func (netErr) Timeout() bool   { return false }
func (netErr) Temporary() bool { return false }

var _ net.Error = netErr{}

func TestCoordinator_Create_ScenarioA(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	c := newCoordinator(t, caps, runtime.WithIDGenerator(func() string { return "tx-1" }))
	sess := domain.NewSession("sess-1")

	res, err := c.Create(context.Background(), sess, domain.CreateRequest{
		Ref:         domain.NewObjectRef(domain.KindClass, "ZCL_DEMO", "$TMP"),
		Description: "Demo",
		Source:      validClassSource,
		Activate:    domain.Bool(true),
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.True(t, res.Activated)
	assert.Equal(t, "tx-1", res.TransactionID)
	assert.Equal(t, domain.PhaseActivated, res.Phase)
	assert.Equal(t, "Class ZCL_DEMO created successfully and activated.", res.Message)

	assert.Equal(t, []domain.Primitive{
		domain.PrimitiveValidate,
		domain.PrimitiveCreate,
		domain.PrimitiveLock,
		domain.PrimitiveCheck,
		domain.PrimitiveUpdate,
		domain.PrimitiveUnlock,
		domain.PrimitiveCheck,
		domain.PrimitiveActivate,
	}, caps.Calls())

	overrides := caps.CheckOverrides()
	require.Len(t, overrides, 2)
	require.NotNil(t, overrides[0], "pre-update check must see the new source")
	assert.Equal(t, validClassSource, *overrides[0])
	assert.Nil(t, overrides[1], "re-check addresses the stored inactive version")

	payload := res.Payload()
	assert.Equal(t, "ZCL_DEMO", payload["class_name"])
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, 0, c.Ledger().Len())
}

func TestCoordinator_Create_DefaultsToActivate(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	c := newCoordinator(t, caps)

	res, err := c.Create(context.Background(), domain.NewSession("s"), createReq(validClassSource))
	require.NoError(t, err)
	assert.True(t, res.Activated)
	assert.Equal(t, 1, caps.Count(domain.PrimitiveActivate))
}

func TestCoordinator_Update_DefaultsToNoActivate(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	c := newCoordinator(t, caps)

	res, err := c.Update(context.Background(), domain.NewSession("s"), domain.UpdateRequest{
		Ref:    classRef(),
		Source: validClassSource,
	})
	require.NoError(t, err)
	assert.False(t, res.Activated)
	assert.Equal(t, domain.PhaseUnlocked, res.Phase)
	assert.Zero(t, caps.Count(domain.PrimitiveActivate))
	assert.Equal(t, "Class ZCL_DEMO updated successfully.", res.Message)
}

func TestCoordinator_Update_ScenarioB_LockConflict(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.Errs[domain.PrimitiveLock] = &domain.RemoteError{Method: "POST", URL: "/lock", Status: http.StatusLocked}
	c := newCoordinator(t, caps)

	res, err := c.Update(context.Background(), domain.NewSession("s"), domain.UpdateRequest{
		Ref:    classRef(),
		Source: validClassSource,
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrLockConflict)
	assert.Zero(t, caps.Count(domain.PrimitiveUpdate))
	assert.Zero(t, caps.Count(domain.PrimitiveUnlock))
	assert.Zero(t, c.Ledger().Len())
}

func TestCoordinator_Create_ScenarioC_CheckFails(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.CheckResults = []*domain.CheckResult{checkError("Statement is not accessible")}
	c := newCoordinator(t, caps)

	_, err := c.Create(context.Background(), domain.NewSession("s"), createReq("CLASS broken."))
	require.Error(t, err)

	assert.ErrorIs(t, err, domain.ErrCheckFailed)
	assert.Contains(t, err.Error(), "Statement is not accessible (line 3)")
	assert.Zero(t, caps.Count(domain.PrimitiveUpdate), "update must be skipped")
	assert.Equal(t, 1, caps.Count(domain.PrimitiveUnlock), "unlock still attempted")
	assert.Zero(t, caps.Count(domain.PrimitiveActivate))
}

func TestCoordinator_Update_ScenarioD_UnlockFailsAfterUpdate(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.Errs[domain.PrimitiveUnlock] = netErr{}
	c := newCoordinator(t, caps)

	res, err := c.Update(context.Background(), domain.NewSession("s"), domain.UpdateRequest{
		Ref:    classRef(),
		Source: validClassSource,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, domain.PhaseUpdated, res.Phase)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "unlock failed")
	assert.Equal(t, 1, caps.Count(domain.PrimitiveUnlock))
	assert.Zero(t, c.Ledger().Len(), "ledger forgets the slot even when unlock fails")
}

func TestCoordinator_Update_ErrorKeepsOriginalCause(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.Errs[domain.PrimitiveUpdate] = &domain.RemoteError{Method: "PUT", URL: "/source/main", Status: http.StatusInternalServerError}
	caps.Errs[domain.PrimitiveUnlock] = netErr{}
	c := newCoordinator(t, caps)

	_, err := c.Update(context.Background(), domain.NewSession("s"), domain.UpdateRequest{
		Ref:    classRef(),
		Source: validClassSource,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpdate)
	assert.NotErrorIs(t, err, domain.ErrUnlock)
	assert.Equal(t, 1, caps.Count(domain.PrimitiveUnlock))
}

func TestCoordinator_UnlockExactlyOnceIffLocked(t *testing.T) {
	failures := []domain.Primitive{
		"",
		domain.PrimitiveValidate,
		domain.PrimitiveCreate,
		domain.PrimitiveLock,
		domain.PrimitiveCheck,
		domain.PrimitiveUpdate,
		domain.PrimitiveActivate,
	}
	for _, p := range failures {
		name := string(p)
		if name == "" {
			name = "none"
		}
		t.Run(name, func(t *testing.T) {
			caps := testutils.NewFakeCapabilities(domain.KindClass)
			if p != "" {
				caps.Errs[p] = errors.New("boom")
			}
			c := newCoordinator(t, caps)
			_, _ = c.Create(context.Background(), domain.NewSession("s"), createReq(validClassSource))

			lockSucceeded := caps.Count(domain.PrimitiveLock) == 1 && p != domain.PrimitiveLock
			if lockSucceeded {
				assert.Equal(t, 1, caps.Count(domain.PrimitiveUnlock))
			} else {
				assert.Zero(t, caps.Count(domain.PrimitiveUnlock))
			}
			assert.Zero(t, c.Ledger().Len())
		})
	}
}

func TestCoordinator_CanceledContextStillUnlocks(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	ctx, cancel := context.WithCancel(context.Background())
	caps.BeforeCall = func(p domain.Primitive) {
		if p == domain.PrimitiveUpdate {
			cancel()
		}
	}
	caps.Errs[domain.PrimitiveUpdate] = context.Canceled
	c := newCoordinator(t, caps)

	_, err := c.Update(ctx, domain.NewSession("s"), domain.UpdateRequest{Ref: classRef(), Source: validClassSource})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Equal(t, 1, caps.Count(domain.PrimitiveUnlock))
}

func TestCoordinator_Create_ValidationErrors(t *testing.T) {
	t.Run("Invalid", func(t *testing.T) {
		caps := testutils.NewFakeCapabilities(domain.KindClass)
		caps.ValidateResult.Valid = false
		caps.ValidateResult.Messages = []string{"Name must start with Z or Y"}
		c := newCoordinator(t, caps)

		_, err := c.Create(context.Background(), domain.NewSession("s"), createReq(validClassSource))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.NotErrorIs(t, err, domain.ErrAlreadyExists)
		assert.Equal(t, []domain.Primitive{domain.PrimitiveValidate}, caps.Calls())
	})

	t.Run("Already Exists", func(t *testing.T) {
		caps := testutils.NewFakeCapabilities(domain.KindClass)
		caps.ValidateResult.Valid = false
		caps.ValidateResult.Messages = []string{"Class ZCL_DEMO already exists"}
		c := newCoordinator(t, caps)

		_, err := c.Create(context.Background(), domain.NewSession("s"), createReq(validClassSource))
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Unexpected Create Status", func(t *testing.T) {
		caps := testutils.NewFakeCapabilities(domain.KindClass)
		caps.CreateStatus = http.StatusAccepted
		c := newCoordinator(t, caps)

		_, err := c.Create(context.Background(), domain.NewSession("s"), createReq(validClassSource))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 202")
		assert.Zero(t, caps.Count(domain.PrimitiveLock))
	})

	t.Run("Missing Function Group", func(t *testing.T) {
		caps := testutils.NewFakeCapabilities(domain.KindFunctionModule)
		c := newCoordinator(t, caps)

		_, err := c.Create(context.Background(), domain.NewSession("s"), domain.CreateRequest{
			Ref: domain.NewObjectRef(domain.KindFunctionModule, "Z_FM", "$TMP"),
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, caps.Calls())
	})
}

func TestCoordinator_AlreadyCheckedIsPass(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.CheckResults = []*domain.CheckResult{
		{Messages: []domain.CheckMessage{{Severity: domain.SeverityError, Text: "Object ZCL_DEMO has already been checked"}}},
		{Status: domain.CheckAlreadyChecked},
	}
	c := newCoordinator(t, caps)

	res, err := c.Update(context.Background(), domain.NewSession("s"), domain.UpdateRequest{Ref: classRef(), Source: validClassSource})
	require.NoError(t, err)
	assert.Equal(t, 1, caps.Count(domain.PrimitiveUpdate))
	assert.Equal(t, domain.CheckAlreadyChecked, res.Check.Status)
}

func TestCoordinator_RecheckIsNonFatal(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.CheckResults = []*domain.CheckResult{{}, checkError("Inactive include missing")}
	c := newCoordinator(t, caps)

	res, err := c.Update(context.Background(), domain.NewSession("s"), domain.UpdateRequest{Ref: classRef(), Source: validClassSource})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "post-update check")
}

func TestCoordinator_ActivationFailureIsFatal(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.ActivateResult = &domain.ActivationResult{
		Messages: []domain.CheckMessage{{Severity: domain.SeverityError, Text: "Method FOO not implemented"}},
	}
	c := newCoordinator(t, caps)

	_, err := c.Create(context.Background(), domain.NewSession("s"), createReq(validClassSource))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrActivation)
	assert.Contains(t, err.Error(), "Method FOO not implemented")
	assert.Equal(t, 1, caps.Count(domain.PrimitiveUnlock))
}

func TestCoordinator_RejectsMissingSessionAndUnknownKind(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	c := newCoordinator(t, caps)

	_, err := c.Create(context.Background(), nil, createReq(validClassSource))
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = c.Update(context.Background(), domain.NewSession("s"), domain.UpdateRequest{
		Ref: domain.NewObjectRef(domain.KindProgram, "ZPROG", ""),
	})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Empty(t, caps.Calls())
}

func TestCoordinator_Hooks(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	var phases []domain.Phase
	var primitives int
	var finished *domain.FinishEvent

	c := newCoordinator(t, caps, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnPhase:     func(_ context.Context, e *domain.PhaseEvent) { phases = append(phases, e.Phase) },
		OnPrimitive: func(_ context.Context, e *domain.PrimitiveEvent) { primitives++ },
		OnFinish:    func(_ context.Context, e *domain.FinishEvent) { finished = e },
	}))

	_, err := c.Create(context.Background(), domain.NewSession("s"), createReq(validClassSource))
	require.NoError(t, err)

	assert.Equal(t, []domain.Phase{
		domain.PhaseValidated,
		domain.PhaseCreated,
		domain.PhaseLocked,
		domain.PhaseChecked,
		domain.PhaseUpdated,
		domain.PhaseUnlocked,
		domain.PhaseActivated,
	}, phases)
	assert.Equal(t, 8, primitives)
	require.NotNil(t, finished)
	assert.Equal(t, domain.FlowCreate, finished.Flow)
	assert.NoError(t, finished.Err)
}

func TestCoordinator_FailedTrace(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.Errs[domain.PrimitiveUpdate] = errors.New("disk full")
	var last domain.Phase
	c := newCoordinator(t, caps, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnPhase: func(_ context.Context, e *domain.PhaseEvent) { last = e.Phase },
	}))

	_, err := c.Update(context.Background(), domain.NewSession("s"), domain.UpdateRequest{Ref: classRef(), Source: validClassSource})
	require.Error(t, err)
	assert.Equal(t, domain.PhaseFailed, last)
}

func TestCoordinator_ServerFaultsKeepTheirOwnKind(t *testing.T) {
	dump := &domain.RemoteError{
		Method: "POST",
		URL:    "/sap/bc/adt/oo/classes/zcl_demo",
		Status: http.StatusInternalServerError,
		Body:   []byte(`<exc:exception xmlns:exc="http://www.sap.com/abapxml/types/communicationframework"><message>Short dump in enqueue server</message></exc:exception>`),
	}

	t.Run("lock", func(t *testing.T) {
		caps := testutils.NewFakeCapabilities(domain.KindClass)
		caps.Errs[domain.PrimitiveLock] = dump
		c := newCoordinator(t, caps)

		_, err := c.Update(context.Background(), domain.NewSession("s"), domain.UpdateRequest{Ref: classRef(), Source: validClassSource})
		require.Error(t, err)
		assert.Equal(t, domain.KindUnknown, domain.KindOf(err))
		assert.NotErrorIs(t, err, domain.ErrLockConflict)
		assert.Contains(t, err.Error(), "SAP Error: Short dump in enqueue server")
		assert.Zero(t, caps.Count(domain.PrimitiveUnlock))
	})

	t.Run("create", func(t *testing.T) {
		caps := testutils.NewFakeCapabilities(domain.KindClass)
		caps.Errs[domain.PrimitiveCreate] = dump
		c := newCoordinator(t, caps)

		_, err := c.Create(context.Background(), domain.NewSession("s"), createReq(validClassSource))
		require.Error(t, err)
		assert.Equal(t, domain.KindUnknown, domain.KindOf(err))
		assert.NotErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, caps.Count(domain.PrimitiveLock))
	})

	t.Run("network on lock", func(t *testing.T) {
		caps := testutils.NewFakeCapabilities(domain.KindClass)
		caps.Errs[domain.PrimitiveLock] = netErr{}
		c := newCoordinator(t, caps)

		_, err := c.Update(context.Background(), domain.NewSession("s"), domain.UpdateRequest{Ref: classRef(), Source: validClassSource})
		assert.Equal(t, domain.KindTransport, domain.KindOf(err))
		assert.NotErrorIs(t, err, domain.ErrLockConflict)
	})
}

func TestCoordinator_CreateUpdateCheckRoundTrip(t *testing.T) {
	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.Checker = func(source string) *domain.CheckResult {
		if source != validClassSource {
			return checkError("Source differs from what was written.")
		}
		return &domain.CheckResult{}
	}
	c := newCoordinator(t, caps)
	sess := domain.NewSession("sess-rt")
	ctx := context.Background()

	req := createReq(validClassSource)
	req.Activate = domain.Bool(true)
	created, err := c.Create(ctx, sess, req)
	require.NoError(t, err)
	assert.True(t, created.Activated)

	_, err = c.Update(ctx, sess, domain.UpdateRequest{Ref: classRef(), Source: validClassSource})
	require.NoError(t, err)

	checked, err := c.Check(ctx, sess, classRef(), domain.VersionInactive, nil)
	require.NoError(t, err)
	assert.True(t, checked.Success)
	require.NotNil(t, checked.Check)
	assert.False(t, checked.Check.HasErrors())

	assert.Equal(t, []string{validClassSource, validClassSource}, caps.Updates())
	assert.Equal(t, 0, c.Ledger().Len())
}

func TestCoordinator_WarnsWhenCreatedObjectKeepsNoSource(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	caps := testutils.NewFakeCapabilities(domain.KindClass)
	caps.Errs[domain.PrimitiveUpdate] = errors.New("disk full")
	c := newCoordinator(t, caps, runtime.WithLogger(logger))

	_, err := c.Create(context.Background(), domain.NewSession("s"), createReq(validClassSource))
	require.Error(t, err)
	assert.Contains(t, logs.String(), "object was created but its source was not written")

	logs.Reset()
	_, err = c.Update(context.Background(), domain.NewSession("s"), domain.UpdateRequest{Ref: classRef(), Source: validClassSource})
	require.Error(t, err)
	assert.NotContains(t, logs.String(), "object was created")
}
