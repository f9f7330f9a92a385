package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/adtkit"
	"github.com/aretw0/adtkit/internal/logging"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/ports"
	"github.com/aretw0/adtkit/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultSessionID is used when the MCP transport carries no client session (plain stdio).
const DefaultSessionID = "mcp"

// SessionRunner runs fn with exclusive use of the named ADT session.
// session.Manager implements it.
type SessionRunner interface {
	WithSession(ctx context.Context, sessionID string, fn func(context.Context, *domain.Session) error) error
}

// Server exposes the edit engine as MCP tools.
type Server struct {
	engine    ports.EditEngine
	sessions  SessionRunner
	kinds     []domain.ObjectKind
	logger    *slog.Logger
	tools     []string
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithKinds restricts the per-kind tools to the given kinds.
func WithKinds(kinds ...domain.ObjectKind) Option {
	return func(s *Server) {
		s.kinds = kinds
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.EditEngine, sessions SessionRunner, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		sessions:  sessions,
		kinds:     domain.AllKinds,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("adtkit-mcp", adtkit.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// Tools returns the names of the registered tools, sorted.
func (s *Server) Tools() []string {
	out := append([]string(nil), s.tools...)
	sort.Strings(out)
	return out
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	s.tools = append(s.tools, tool.Name)
}

func (s *Server) registerTools() {
	for _, kind := range s.kinds {
		s.addTool(createTool(kind, s.extraFields(kind)), s.handleCreate(kind))
		s.addTool(updateTool(kind), s.handleUpdate(kind))
		s.addTool(deleteTool(kind), s.handleDelete(kind))
	}

	s.addTool(mcp.NewTool("check_object",
		append(objectParams("object to check"),
			mcp.WithDescription("Run a syntax check on an ABAP object, optionally against unsaved source."),
			mcp.WithString("version", mcp.Enum(string(domain.VersionInactive), string(domain.VersionActive)),
				mcp.Description("Version to check (default inactive)")),
			mcp.WithString("source_code", mcp.Description("Source to check instead of the stored version")),
		)...,
	), s.handleCheck)

	s.addTool(mcp.NewTool("activate_object",
		append(objectParams("object to activate"),
			mcp.WithDescription("Activate the inactive version of an ABAP object."),
		)...,
	), s.handleActivate)

	s.addTool(mcp.NewTool("lock_object",
		append(objectParams("object to lock"),
			mcp.WithDescription("Acquire an edit lock. The returned lock_handle is only valid on this MCP session."),
		)...,
	), s.handleLock)

	s.addTool(mcp.NewTool("unlock_object",
		append(objectParams("object to unlock"),
			mcp.WithDescription("Release an edit lock returned by lock_object."),
			mcp.WithString("lock_handle", mcp.Required(), mcp.Description("Handle returned by lock_object")),
		)...,
	), s.handleUnlock)
}

// extraFields reports the kind-specific create fields when the engine declares them.
func (s *Server) extraFields(kind domain.ObjectKind) schema.Schema {
	if d, ok := s.engine.(interface {
		ExtraFields(domain.ObjectKind) schema.Schema
	}); ok {
		return d.ExtraFields(kind)
	}
	return nil
}

func createTool(kind domain.ObjectKind, fields schema.Schema) mcp.Tool {
	extra := "Kind-specific create attributes"
	if len(fields) > 0 {
		extra += ": " + fields.Describe()
	}
	title := strings.ToLower(kind.Title())
	opts := append(kindParams(kind),
		mcp.WithDescription(fmt.Sprintf("Create a new %s, write its source, and activate it unless activate is false.", title)),
		mcp.WithString("package_name", mcp.Required(), mcp.Description("Target package (e.g. $TMP)")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Short description")),
		mcp.WithString("source_code", mcp.Description(sourceDescription(kind))),
		mcp.WithString("transport_request", mcp.Description("Transport request for non-local packages")),
		mcp.WithString("responsible", mcp.Description("Responsible user")),
		mcp.WithBoolean("activate", mcp.Description("Activate after writing (default true)")),
		mcp.WithObject("extra", mcp.Description(extra)),
	)
	return mcp.NewTool("create_"+string(kind), opts...)
}

func updateTool(kind domain.ObjectKind) mcp.Tool {
	title := strings.ToLower(kind.Title())
	opts := append(kindParams(kind),
		mcp.WithDescription(fmt.Sprintf("Replace the source of an existing %s. Activation is off unless activate is true.", title)),
		mcp.WithString("source_code", mcp.Required(), mcp.Description(sourceDescription(kind))),
		mcp.WithString("transport_request", mcp.Description("Transport request for non-local packages")),
		mcp.WithBoolean("activate", mcp.Description("Activate after writing (default false)")),
	)
	return mcp.NewTool("update_"+string(kind), opts...)
}

func deleteTool(kind domain.ObjectKind) mcp.Tool {
	opts := append(kindParams(kind),
		mcp.WithDescription(fmt.Sprintf("Delete a %s.", strings.ToLower(kind.Title()))),
		mcp.WithString("transport_request", mcp.Description("Transport request for non-local packages")),
	)
	return mcp.NewTool("delete_"+string(kind), opts...)
}

func kindParams(kind domain.ObjectKind) []mcp.ToolOption {
	opts := []mcp.ToolOption{
		mcp.WithString(string(kind)+"_name", mcp.Required(), mcp.Description(kind.Title()+" name")),
	}
	if kind == domain.KindFunctionModule {
		opts = append(opts, mcp.WithString("function_group_name", mcp.Required(), mcp.Description("Owning function group")))
	}
	return opts
}

func objectParams(what string) []mcp.ToolOption {
	kinds := make([]string, len(domain.AllKinds))
	for i, k := range domain.AllKinds {
		kinds[i] = string(k)
	}
	return []mcp.ToolOption{
		mcp.WithString("object_type", mcp.Required(), mcp.Enum(kinds...), mcp.Description("Kind of the "+what)),
		mcp.WithString("object_name", mcp.Required(), mcp.Description("Name of the "+what)),
		mcp.WithString("function_group_name", mcp.Description("Owning function group (function modules only)")),
	}
}

func sourceDescription(kind domain.ObjectKind) string {
	switch kind {
	case domain.KindDomain, domain.KindDataElement:
		return "Object XML definition"
	default:
		return "ABAP source code"
	}
}
