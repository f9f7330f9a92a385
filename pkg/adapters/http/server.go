package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/adtkit"
	"github.com/aretw0/adtkit/internal/logging"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionHeader selects the ADT session a request runs on.
const SessionHeader = "X-ADT-Session"

// DefaultSessionID is used when a request names no session.
const DefaultSessionID = "http"

// SessionRunner runs fn with exclusive use of the named ADT session.
type SessionRunner interface {
	WithSession(ctx context.Context, sessionID string, fn func(context.Context, *domain.Session) error) error
}

// Server serves the edit engine over HTTP.
type Server struct {
	Engine   ports.EditEngine
	Sessions SessionRunner
	Journal  ports.Journal
	Streams  *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithJournal exposes the journal at /v1/journal.
func WithJournal(j ports.Journal) Option {
	return func(s *Server) {
		s.Journal = j
	}
}

// WithStreams serves the session event stream at /v1/events.
// The manager's Hooks must be installed on the engine.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithGatherer serves metrics from g at /metrics (default: the global registry).
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine ports.EditEngine, sessions SessionRunner, opts ...Option) (http.Handler, error) {
	server := &Server{
		Engine:   engine,
		Sessions: sessions,
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.Streams == nil {
		server.Streams = NewStreamManager(server.logger)
	}

	swagger, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	validate, err := requestValidator(swagger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(validate)
		r.Get("/health", server.GetHealth)
		r.Get("/info", server.infoHandler(swagger.Info.Version))
		r.Get("/v1/journal", server.ListJournal)
		r.Get("/v1/events", server.SubscribeEvents)

		r.Route("/v1/objects/{kind}", func(r chi.Router) {
			r.Post("/", server.CreateObject)
			r.Route("/{name}", func(r chi.Router) {
				r.Put("/", server.UpdateObject)
				r.Delete("/", server.DeleteObject)
				r.Post("/check", server.CheckObject)
				r.Post("/activate", server.ActivateObject)
				r.Post("/lock", server.LockObject)
				r.Post("/unlock", server.UnlockObject)
			})
		})
	})

	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SessionHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) infoHandler(apiVersion string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"app":         "adtkit-http",
			"version":     adtkit.Version,
			"api_version": apiVersion,
		})
	}
}

type createBody struct {
	Name             string            `json:"name"`
	Package          string            `json:"package"`
	FunctionGroup    string            `json:"function_group"`
	Description      string            `json:"description"`
	Source           string            `json:"source"`
	TransportRequest string            `json:"transport_request"`
	Responsible      string            `json:"responsible"`
	Activate         *bool             `json:"activate"`
	Extra            map[string]string `json:"extra"`
}

type updateBody struct {
	Source           string `json:"source"`
	TransportRequest string `json:"transport_request"`
	Activate         *bool  `json:"activate"`
}

type checkBody struct {
	Version string  `json:"version"`
	Source  *string `json:"source"`
}

type unlockBody struct {
	LockHandle string `json:"lock_handle"`
}

// CreateObject handles POST /v1/objects/{kind}.
func (s *Server) CreateObject(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if !decode(w, r, &body) {
		return
	}
	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	ref := domain.NewObjectRef(kind, body.Name, body.Package)
	if body.FunctionGroup != "" {
		ref = ref.WithParent(body.FunctionGroup)
	}
	if err := ref.Validate(); err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	req := domain.CreateRequest{
		Ref:              ref,
		Description:      body.Description,
		Source:           body.Source,
		TransportRequest: body.TransportRequest,
		Responsible:      body.Responsible,
		Extra:            body.Extra,
		Activate:         body.Activate,
	}
	s.run(w, r, http.StatusCreated, func(ctx context.Context, sess *domain.Session) (any, error) {
		res, err := s.Engine.Create(ctx, sess, req)
		return payloadOf(res), err
	})
}

// UpdateObject handles PUT /v1/objects/{kind}/{name}.
func (s *Server) UpdateObject(w http.ResponseWriter, r *http.Request) {
	var body updateBody
	if !decode(w, r, &body) {
		return
	}
	ref, ok := s.objectRef(w, r)
	if !ok {
		return
	}
	req := domain.UpdateRequest{
		Ref:              ref,
		Source:           body.Source,
		TransportRequest: body.TransportRequest,
		Activate:         body.Activate,
	}
	s.run(w, r, http.StatusOK, func(ctx context.Context, sess *domain.Session) (any, error) {
		res, err := s.Engine.Update(ctx, sess, req)
		return payloadOf(res), err
	})
}

// DeleteObject handles DELETE /v1/objects/{kind}/{name}.
func (s *Server) DeleteObject(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.objectRef(w, r)
	if !ok {
		return
	}
	transport := r.URL.Query().Get("transport")
	s.run(w, r, http.StatusOK, func(ctx context.Context, sess *domain.Session) (any, error) {
		res, err := s.Engine.Delete(ctx, sess, ref, transport)
		return payloadOf(res), err
	})
}

// CheckObject handles POST /v1/objects/{kind}/{name}/check.
func (s *Server) CheckObject(w http.ResponseWriter, r *http.Request) {
	var body checkBody
	if r.ContentLength != 0 && !decode(w, r, &body) {
		return
	}
	ref, ok := s.objectRef(w, r)
	if !ok {
		return
	}
	version := domain.VersionInactive
	if body.Version != "" {
		version = domain.Version(body.Version)
	}
	s.run(w, r, http.StatusOK, func(ctx context.Context, sess *domain.Session) (any, error) {
		res, err := s.Engine.Check(ctx, sess, ref, version, body.Source)
		return payloadOf(res), err
	})
}

// ActivateObject handles POST /v1/objects/{kind}/{name}/activate.
func (s *Server) ActivateObject(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.objectRef(w, r)
	if !ok {
		return
	}
	s.run(w, r, http.StatusOK, func(ctx context.Context, sess *domain.Session) (any, error) {
		res, err := s.Engine.Activate(ctx, sess, ref)
		return payloadOf(res), err
	})
}

// LockObject handles POST /v1/objects/{kind}/{name}/lock.
func (s *Server) LockObject(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.objectRef(w, r)
	if !ok {
		return
	}
	s.run(w, r, http.StatusOK, func(ctx context.Context, sess *domain.Session) (any, error) {
		h, err := s.Engine.Lock(ctx, sess, ref)
		if err != nil {
			return nil, err
		}
		return h, nil
	})
}

// UnlockObject handles POST /v1/objects/{kind}/{name}/unlock.
func (s *Server) UnlockObject(w http.ResponseWriter, r *http.Request) {
	var body unlockBody
	if !decode(w, r, &body) {
		return
	}
	ref, ok := s.objectRef(w, r)
	if !ok {
		return
	}
	s.run(w, r, http.StatusOK, func(ctx context.Context, sess *domain.Session) (any, error) {
		res, err := s.Engine.Unlock(ctx, sess, ref, body.LockHandle)
		return payloadOf(res), err
	})
}

// ListJournal handles GET /v1/journal.
func (s *Server) ListJournal(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		writeJSON(w, http.StatusNotFound, errorBody(string(domain.KindNotFound), "Journal is not enabled."))
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.fail(w, r, badRequest(err))
			return
		}
		limit = n
	}
	entries, err := s.Journal.Recent(r.Context(), limit)
	if err != nil {
		s.fail(w, r, fmt.Errorf("failed to read journal: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// SubscribeEvents handles the GET /v1/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	sessionID := r.URL.Query().Get("session_id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	s.logger.Info("SSE: Subscribing to session events", "session_id", sessionID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: finish\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// run executes op on the request's session and writes the outcome.
func (s *Server) run(w http.ResponseWriter, r *http.Request, status int, op func(context.Context, *domain.Session) (any, error)) {
	var payload any
	err := s.Sessions.WithSession(r.Context(), sessionOf(r), func(ctx context.Context, sess *domain.Session) error {
		var err error
		payload, err = op(ctx, sess)
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, status, payload)
}

func (s *Server) objectRef(w http.ResponseWriter, r *http.Request) (domain.ObjectRef, bool) {
	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, badRequest(err))
		return domain.ObjectRef{}, false
	}
	ref := domain.NewObjectRef(kind, chi.URLParam(r, "name"), "")
	if fg := r.URL.Query().Get("function_group"); fg != "" {
		ref = ref.WithParent(fg)
	}
	if err := ref.Validate(); err != nil {
		s.fail(w, r, badRequest(err))
		return domain.ObjectRef{}, false
	}
	return ref, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "kind", kind, "err", err)
	}
	writeJSON(w, status, errorBody(string(kind), strings.Join(strings.Fields(err.Error()), " ")))
}

// statusOf maps a classified failure to its HTTP status.
func statusOf(err error) int {
	if errors.Is(err, domain.ErrUnsupportedKind) {
		return http.StatusNotFound
	}
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindBadRequest, domain.KindInvalidLockHandle:
		return http.StatusBadRequest
	case domain.KindAlreadyExists, domain.KindLockConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindCheckFailed, domain.KindActivation:
		return http.StatusUnprocessableEntity
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindTransport, domain.KindUpdate, domain.KindUnlock:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(err error) error {
	return domain.NewError(domain.KindBadRequest, "", domain.ObjectRef{}, err.Error(), err)
}

func sessionOf(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	return DefaultSessionID
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(string(domain.KindBadRequest), "Invalid request body."))
		return false
	}
	return true
}

func payloadOf(res *domain.Result) any {
	if res == nil {
		return nil
	}
	return res.Payload()
}

func errorBody(kind, msg string) map[string]any {
	return map[string]any{
		"success":    false,
		"error_kind": kind,
		"message":    msg,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
