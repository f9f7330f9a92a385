package translator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/adtkit/internal/translator"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lockedBody = `<?xml version="1.0" encoding="utf-8"?>
<exc:exception xmlns:exc="http://www.sap.com/abapxml/types/communicationframework">
  <namespace id="com.sap.adt"/>
  <type id="ExceptionResourceNoAccess"/>
  <message lang="EN">User DEVELOPER is currently editing ZCL_DEMO</message>
  <localizedMessage lang="EN">User DEVELOPER is currently editing ZCL_DEMO</localizedMessage>
</exc:exception>`

const genericBody = `<?xml version="1.0" encoding="utf-8"?>
<exc:exception xmlns:exc="http://www.sap.com/abapxml/types/communicationframework">
  <namespace id="com.sap.adt"/>
  <type id="ExceptionResourceCreationFailure"/>
  <message lang="EN">Package ZMISSING does not exist</message>
</exc:exception>`

func remote(status int, body string) error {
	return &domain.RemoteError{Method: "POST", URL: "/sap/bc/adt/oo/classes/zcl_demo", Status: status, Body: []byte(body)}
}

func TestTranslate_StatusClassification(t *testing.T) {
	ref := domain.NewObjectRef(domain.KindClass, "zcl_demo", "$tmp")

	tests := []struct {
		name    string
		err     error
		op      domain.Primitive
		kind    domain.ErrorKind
		message string
	}{
		{"not found", remote(404, ""), domain.PrimitiveDelete, domain.KindNotFound, "Class ZCL_DEMO not found."},
		{"locked on lock", remote(423, lockedBody), domain.PrimitiveLock, domain.KindLockConflict, "Lock conflict: Class ZCL_DEMO is locked by another user or session. User DEVELOPER is currently editing ZCL_DEMO"},
		{"conflict on lock", remote(409, ""), domain.PrimitiveLock, domain.KindLockConflict, "Lock conflict: Class ZCL_DEMO is locked by another user or session."},
		{"conflict on create", remote(409, ""), domain.PrimitiveCreate, domain.KindAlreadyExists, "Class ZCL_DEMO already exists."},
		{"bad lock handle", remote(400, "invalid lock handle"), domain.PrimitiveUpdate, domain.KindInvalidLockHandle, "Invalid lock handle for Class ZCL_DEMO."},
		{"bad request with exception", remote(400, genericBody), domain.PrimitiveCreate, domain.KindBadRequest, "SAP Error: Package ZMISSING does not exist"},
		{"server error with exception", remote(500, genericBody), domain.PrimitiveActivate, domain.KindActivation, "SAP Error: Package ZMISSING does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translator.Translate(tt.err, tt.op, ref)
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.message, got.Error())
			assert.ErrorIs(t, got, tt.err, "original cause should stay reachable")
		})
	}
}

func TestTranslate_PassThroughAndSentinels(t *testing.T) {
	ref := domain.NewObjectRef(domain.KindProgram, "zdemo", "")
	original := domain.NewError(domain.KindCheckFailed, "", domain.ObjectRef{}, "Check failed: syntax error", nil)

	got := translator.Translate(original, domain.PrimitiveCheck, ref)
	assert.Equal(t, "ZDEMO", got.Ref.Name)
	assert.Equal(t, "check", got.Op)
	assert.Empty(t, original.Ref.Name, "the input error is not modified")
	assert.ErrorIs(t, got, domain.ErrCheckFailed)
	assert.NotErrorIs(t, got, domain.ErrLockConflict)

	complete := domain.NewError(domain.KindNotFound, "delete", ref, "Program ZDEMO not found.", nil)
	assert.Same(t, complete, translator.Translate(complete, domain.PrimitiveDelete, ref))
}

func TestTranslate_SentinelIsNotMutated(t *testing.T) {
	ref := domain.NewObjectRef(domain.KindProgram, "zdemo", "")

	got := translator.Translate(domain.ErrLockConflict, domain.PrimitiveLock, ref)
	assert.Equal(t, domain.KindLockConflict, got.Kind)
	assert.Equal(t, "lock", got.Op)
	assert.NotSame(t, domain.ErrLockConflict, got)

	assert.Empty(t, domain.ErrLockConflict.Op)
	assert.Empty(t, domain.ErrLockConflict.Ref.Name)
	unlockConflict := domain.NewError(domain.KindLockConflict, "unlock", ref, "Lock conflict", nil)
	assert.ErrorIs(t, unlockConflict, domain.ErrLockConflict)
}

func TestTranslate_ServerFaultsAreNotMisclassified(t *testing.T) {
	ref := domain.NewObjectRef(domain.KindProgram, "zdemo", "$tmp")
	dump := `<exc:exception xmlns:exc="http://www.sap.com/abapxml/types/communicationframework">
  <type id="ExceptionInternal"/>
  <message>Short dump in enqueue server</message>
</exc:exception>`

	for _, p := range []domain.Primitive{domain.PrimitiveLock, domain.PrimitiveValidate, domain.PrimitiveCreate} {
		t.Run(string(p), func(t *testing.T) {
			got := translator.Translate(remote(500, dump), p, ref)
			assert.Equal(t, domain.KindUnknown, got.Kind)
			assert.Equal(t, "SAP Error: Short dump in enqueue server", got.Error())
			assert.Equal(t, 500, got.Status)

			got = translator.Translate(errors.New("tls: handshake failure"), p, ref)
			assert.Equal(t, domain.KindUnknown, got.Kind)
			assert.Equal(t, "Error: tls: handshake failure", got.Error())
			assert.NotErrorIs(t, got, domain.ErrLockConflict)
			assert.NotErrorIs(t, got, domain.ErrValidation)
		})
	}
}

func TestTranslate_ContextAndPlainErrors(t *testing.T) {
	ref := domain.NewObjectRef(domain.KindTable, "ztab", "")

	got := translator.Translate(fmt.Errorf("call: %w", context.DeadlineExceeded), domain.PrimitiveUpdate, ref)
	assert.Equal(t, domain.KindTimeout, got.Kind)

	got = translator.Translate(errors.New("boom\nwith newline"), domain.PrimitiveUpdate, ref)
	assert.Equal(t, domain.KindUpdate, got.Kind)
	assert.Equal(t, "Error: boom with newline", got.Error())
}

func TestIsAlreadyChecked(t *testing.T) {
	body := `<exc:exception xmlns:exc="x"><type id="ExceptionResourceAlreadyChecked"/><message>Object ZCL_DEMO already checked</message></exc:exception>`
	assert.True(t, translator.IsAlreadyChecked(remote(400, body)))
	assert.True(t, translator.IsAlreadyChecked(errors.New("Object has already checked status")))
	assert.True(t, translator.IsAlreadyChecked(domain.ErrAlreadyChecked))
	assert.False(t, translator.IsAlreadyChecked(remote(400, genericBody)))
	assert.False(t, translator.IsAlreadyChecked(nil))
}
