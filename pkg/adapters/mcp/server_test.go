package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/adtkit"
	"github.com/aretw0/adtkit/internal/testutils"
	"github.com/aretw0/adtkit/pkg/adapters/memory"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *testutils.FakeCapabilities, *session.Manager) {
	t.Helper()
	caps := testutils.NewFakeCapabilities(domain.KindProgram)
	eng, err := adtkit.New(nil, adtkit.WithCapabilities(caps))
	require.NoError(t, err)
	mgr := session.NewManager(memory.NewStore())
	return NewServer(eng, mgr), caps, mgr
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	res, err := handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "tool errors are reported in the result, never as protocol errors")
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return res, text.Text
}

func TestServer_RegistersToolsPerKind(t *testing.T) {
	srv, _, _ := newTestServer(t)
	tools := srv.Tools()

	assert.Len(t, tools, 3*len(domain.AllKinds)+4)
	for _, name := range []string{
		"create_class", "update_program", "delete_function_module",
		"create_behavior_implementation",
		"check_object", "activate_object", "lock_object", "unlock_object",
	} {
		assert.Contains(t, tools, name)
	}
}

func TestServer_CreateProgram(t *testing.T) {
	srv, caps, mgr := newTestServer(t)

	res, text := call(t, srv.handleCreate(domain.KindProgram), "create_program", map[string]any{
		"program_name": "zhello",
		"package_name": "$tmp",
		"description":  "Hello",
		"source_code":  "REPORT zhello.",
	})
	require.False(t, res.IsError, text)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &payload))
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "ZHELLO", payload["program_name"])
	assert.Equal(t, "Program ZHELLO created successfully and activated.", payload["message"])
	assert.Equal(t, []string{"REPORT zhello."}, caps.Updates())

	// The ADT session is persisted under the MCP session.
	_, err := mgr.Load(context.Background(), DefaultSessionID)
	assert.NoError(t, err)
}

func TestServer_UpdateHonorsActivateFlag(t *testing.T) {
	srv, caps, _ := newTestServer(t)

	res, text := call(t, srv.handleUpdate(domain.KindProgram), "update_program", map[string]any{
		"program_name": "zhello",
		"source_code":  "REPORT zhello.",
		"activate":     "true",
	})
	require.False(t, res.IsError, text)
	assert.Equal(t, 1, caps.Count(domain.PrimitiveActivate))
}

func TestServer_FailureIsSingleLine(t *testing.T) {
	srv, caps, _ := newTestServer(t)
	caps.Errs[domain.PrimitiveLock] = domain.NewError(domain.KindLockConflict, "lock", domain.ObjectRef{},
		"Lock conflict: ZHELLO is locked by\nDEVELOPER.", nil)

	res, text := call(t, srv.handleUpdate(domain.KindProgram), "update_program", map[string]any{
		"program_name": "zhello",
		"source_code":  "REPORT zhello.",
	})
	assert.True(t, res.IsError)
	assert.Equal(t, "Lock conflict: ZHELLO is locked by DEVELOPER.", text)
	assert.Zero(t, caps.Count(domain.PrimitiveUpdate))
}

func TestServer_UnsupportedKind(t *testing.T) {
	srv, _, _ := newTestServer(t)

	res, _ := call(t, srv.handleDelete(domain.KindClass), "delete_class", map[string]any{
		"class_name": "zcl_demo",
	})
	assert.True(t, res.IsError)
}

func TestServer_FunctionModuleRequiresGroup(t *testing.T) {
	srv, _, _ := newTestServer(t)

	res, text := call(t, srv.handleDelete(domain.KindFunctionModule), "delete_function_module", map[string]any{
		"function_module_name": "z_get_data",
	})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "requires a function group")
}

func TestServer_LockUnlockRoundTrip(t *testing.T) {
	srv, caps, _ := newTestServer(t)
	obj := map[string]any{"object_type": "program", "object_name": "zhello"}

	res, text := call(t, srv.handleLock, "lock_object", obj)
	require.False(t, res.IsError, text)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &payload))
	handle, _ := payload["lock_handle"].(string)
	require.NotEmpty(t, handle)

	res, text = call(t, srv.handleLock, "lock_object", obj)
	assert.True(t, res.IsError)
	assert.Contains(t, text, "Lock conflict")

	unlock := map[string]any{"object_type": "program", "object_name": "zhello", "lock_handle": handle}
	res, text = call(t, srv.handleUnlock, "unlock_object", unlock)
	require.False(t, res.IsError, text)
	assert.Equal(t, []string{handle}, caps.UnlockedTokens())
}

func TestServer_CheckWithOverride(t *testing.T) {
	srv, caps, _ := newTestServer(t)

	res, text := call(t, srv.handleCheck, "check_object", map[string]any{
		"object_type": "program",
		"object_name": "zhello",
		"source_code": "REPORT zhello.",
	})
	require.False(t, res.IsError, text)
	overrides := caps.CheckOverrides()
	require.Len(t, overrides, 1)
	require.NotNil(t, overrides[0])
	assert.Equal(t, "REPORT zhello.", *overrides[0])
}

func TestServer_UnknownObjectType(t *testing.T) {
	srv, _, _ := newTestServer(t)

	res, text := call(t, srv.handleActivate, "activate_object", map[string]any{
		"object_type": "spreadsheet",
		"object_name": "x",
	})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "unknown object kind")
}
