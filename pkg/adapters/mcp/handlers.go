package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
)

// toolArgs is the union of every tool argument.
type toolArgs struct {
	Name          string            `mapstructure:"name"`
	ObjectType    string            `mapstructure:"object_type"`
	ObjectName    string            `mapstructure:"object_name"`
	FunctionGroup string            `mapstructure:"function_group_name"`
	Package       string            `mapstructure:"package_name"`
	Description   string            `mapstructure:"description"`
	Source        *string           `mapstructure:"source_code"`
	Transport     string            `mapstructure:"transport_request"`
	Responsible   string            `mapstructure:"responsible"`
	Activate      *bool             `mapstructure:"activate"`
	Extra         map[string]string `mapstructure:"extra"`
	Version       string            `mapstructure:"version"`
	LockHandle    string            `mapstructure:"lock_handle"`
}

func decodeArgs(request mcp.CallToolRequest, kind domain.ObjectKind) (toolArgs, error) {
	raw := request.GetArguments()
	var args toolArgs
	if kind != "" {
		// Per-kind tools name the object "<kind>_name".
		if v, ok := raw[string(kind)+"_name"]; ok {
			raw = copyArgs(raw)
			raw["name"] = v
		}
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &args,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return args, err
	}
	if err := decoder.Decode(raw); err != nil {
		return args, fmt.Errorf("invalid arguments: %w", err)
	}
	return args, nil
}

func copyArgs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (a toolArgs) ref(kind domain.ObjectKind) (domain.ObjectRef, error) {
	name := a.Name
	if kind == "" {
		k, err := domain.ParseKind(a.ObjectType)
		if err != nil {
			return domain.ObjectRef{}, err
		}
		kind = k
		name = a.ObjectName
	}
	ref := domain.NewObjectRef(kind, name, a.Package)
	if a.FunctionGroup != "" {
		ref = ref.WithParent(a.FunctionGroup)
	}
	return ref, ref.Validate()
}

// sessionID keys the ADT session by the MCP client session.
func sessionID(ctx context.Context) string {
	if cs := server.ClientSessionFromContext(ctx); cs != nil && cs.SessionID() != "" {
		return cs.SessionID()
	}
	return DefaultSessionID
}

// call resolves the reference, runs op on the caller's session and renders the outcome.
func (s *Server) call(ctx context.Context, request mcp.CallToolRequest, kind domain.ObjectKind,
	op func(context.Context, *domain.Session, toolArgs, domain.ObjectRef) (any, error)) (*mcp.CallToolResult, error) {

	args, err := decodeArgs(request, kind)
	if err != nil {
		return mcp.NewToolResultError(errorLine(err)), nil
	}
	ref, err := args.ref(kind)
	if err != nil {
		return mcp.NewToolResultError("Validation error: " + errorLine(err)), nil
	}

	var payload any
	id := sessionID(ctx)
	err = s.sessions.WithSession(ctx, id, func(ctx context.Context, sess *domain.Session) error {
		var opErr error
		payload, opErr = op(ctx, sess, args, ref)
		return opErr
	})
	if err != nil {
		s.logger.DebugContext(ctx, "tool failed", "tool", request.Params.Name, "session_id", id, "err", err)
		return mcp.NewToolResultError(errorLine(err)), nil
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) handleCreate(kind domain.ObjectKind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.call(ctx, request, kind, func(ctx context.Context, sess *domain.Session, a toolArgs, ref domain.ObjectRef) (any, error) {
			res, err := s.engine.Create(ctx, sess, domain.CreateRequest{
				Ref:              ref,
				Description:      a.Description,
				Source:           deref(a.Source),
				TransportRequest: a.Transport,
				Responsible:      a.Responsible,
				Extra:            a.Extra,
				Activate:         a.Activate,
			})
			return payloadOf(res), err
		})
	}
}

func (s *Server) handleUpdate(kind domain.ObjectKind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.call(ctx, request, kind, func(ctx context.Context, sess *domain.Session, a toolArgs, ref domain.ObjectRef) (any, error) {
			res, err := s.engine.Update(ctx, sess, domain.UpdateRequest{
				Ref:              ref,
				Source:           deref(a.Source),
				TransportRequest: a.Transport,
				Activate:         a.Activate,
			})
			return payloadOf(res), err
		})
	}
}

func (s *Server) handleDelete(kind domain.ObjectKind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.call(ctx, request, kind, func(ctx context.Context, sess *domain.Session, a toolArgs, ref domain.ObjectRef) (any, error) {
			res, err := s.engine.Delete(ctx, sess, ref, a.Transport)
			return payloadOf(res), err
		})
	}
}

func (s *Server) handleCheck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, request, "", func(ctx context.Context, sess *domain.Session, a toolArgs, ref domain.ObjectRef) (any, error) {
		version := domain.VersionInactive
		if a.Version != "" {
			version = domain.Version(strings.ToLower(a.Version))
		}
		res, err := s.engine.Check(ctx, sess, ref, version, a.Source)
		return payloadOf(res), err
	})
}

func (s *Server) handleActivate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, request, "", func(ctx context.Context, sess *domain.Session, a toolArgs, ref domain.ObjectRef) (any, error) {
		res, err := s.engine.Activate(ctx, sess, ref)
		return payloadOf(res), err
	})
}

func (s *Server) handleLock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, request, "", func(ctx context.Context, sess *domain.Session, a toolArgs, ref domain.ObjectRef) (any, error) {
		h, err := s.engine.Lock(ctx, sess, ref)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"success":                  true,
			string(ref.Kind) + "_name": ref.Name,
			"lock_handle":              h.Token,
			"corr_nr":                  h.CorrNr,
			"message":                  fmt.Sprintf("%s locked successfully.", ref),
		}, nil
	})
}

func (s *Server) handleUnlock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, request, "", func(ctx context.Context, sess *domain.Session, a toolArgs, ref domain.ObjectRef) (any, error) {
		res, err := s.engine.Unlock(ctx, sess, ref, a.LockHandle)
		return payloadOf(res), err
	})
}

func payloadOf(res *domain.Result) any {
	if res == nil {
		return nil
	}
	return res.Payload()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// errorLine flattens err to the single classified line shown to callers.
func errorLine(err error) string {
	return strings.Join(strings.Fields(err.Error()), " ")
}
