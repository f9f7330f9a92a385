package adtkit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/adtkit/internal/logging"
	"github.com/aretw0/adtkit/internal/runtime"
	"github.com/aretw0/adtkit/pkg/adapters/adt"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/observability"
	"github.com/aretw0/adtkit/pkg/ports"
	"github.com/aretw0/adtkit/pkg/registry"
	"github.com/aretw0/adtkit/pkg/schema"
)

// Engine is the high-level entry point of the library.
// It wraps the internal coordinator and the kind registry behind ports.EditEngine.
type Engine struct {
	coord    *runtime.Coordinator
	registry *registry.Registry

	client         ports.Client
	language       string
	sets           []ports.ObjectCapabilitySet
	hooks          domain.LifecycleHooks
	journal        ports.Journal
	cleanupTimeout time.Duration
	logger         *slog.Logger
}

var _ ports.EditEngine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithJournal records every finished transaction and operation in j.
func WithJournal(j ports.Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithLanguage sets the master language used when creating objects (default "EN").
func WithLanguage(lang string) Option {
	return func(e *Engine) {
		e.language = lang
	}
}

// WithCapabilities registers capability sets, replacing the ADT set of the same kind.
// With no client, only these kinds are available.
func WithCapabilities(sets ...ports.ObjectCapabilitySet) Option {
	return func(e *Engine) {
		e.sets = append(e.sets, sets...)
	}
}

// WithCleanupTimeout bounds the unlock attempted after a failed or canceled transaction.
func WithCleanupTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.cleanupTimeout = d
	}
}

// New creates an Engine speaking ADT through client.
// client may be nil when WithCapabilities provides every kind needed.
func New(client ports.Client, opts ...Option) (*Engine, error) {
	eng := &Engine{
		client:         client,
		language:       "EN",
		cleanupTimeout: runtime.DefaultCleanupTimeout,
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if client == nil && len(eng.sets) == 0 {
		return nil, errors.New("a client or at least one capability set is required")
	}

	eng.registry = registry.NewRegistry()
	if client != nil {
		for _, set := range adt.All(client, eng.language) {
			eng.registry.Register(set)
		}
	}
	for _, set := range eng.sets {
		eng.registry.Register(set)
	}

	hooks := eng.hooks
	if eng.journal != nil {
		hooks = hooks.Merge(observability.JournalHooks(eng.journal, eng.logger))
	}

	eng.coord = runtime.NewCoordinator(eng.registry,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithCleanupTimeout(eng.cleanupTimeout),
	)
	return eng, nil
}

// Kinds returns the object kinds this engine can edit.
func (e *Engine) Kinds() []domain.ObjectKind {
	return e.registry.Kinds()
}

// Create runs the Create edit transaction. Activation defaults to on.
func (e *Engine) Create(ctx context.Context, sess *domain.Session, req domain.CreateRequest) (*domain.Result, error) {
	return e.coord.Create(ctx, sess, req)
}

// Update runs the Update edit transaction. Activation defaults to off.
func (e *Engine) Update(ctx context.Context, sess *domain.Session, req domain.UpdateRequest) (*domain.Result, error) {
	return e.coord.Update(ctx, sess, req)
}

// Delete removes an object.
func (e *Engine) Delete(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, transport string) (*domain.Result, error) {
	return e.coord.Delete(ctx, sess, ref, transport)
}

// Check runs a syntax check; override, when set, is checked instead of the stored source.
func (e *Engine) Check(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, version domain.Version, override *string) (*domain.Result, error) {
	return e.coord.Check(ctx, sess, ref, version, override)
}

// Activate promotes the inactive version of an object.
func (e *Engine) Activate(ctx context.Context, sess *domain.Session, ref domain.ObjectRef) (*domain.Result, error) {
	return e.coord.Activate(ctx, sess, ref)
}

// Lock acquires an edit lock bound to sess.
func (e *Engine) Lock(ctx context.Context, sess *domain.Session, ref domain.ObjectRef) (*domain.LockHandle, error) {
	return e.coord.Lock(ctx, sess, ref)
}

// Unlock releases a lock obtained with Lock on the same session.
func (e *Engine) Unlock(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, token string) (*domain.Result, error) {
	return e.coord.Unlock(ctx, sess, ref, token)
}

// ExtraFields returns the kind-specific create fields accepted for kind, if any.
func (e *Engine) ExtraFields(kind domain.ObjectKind) schema.Schema {
	set, err := e.registry.Get(kind)
	if err != nil {
		return nil
	}
	if d, ok := set.(interface{ ExtraFields() schema.Schema }); ok {
		return d.ExtraFields()
	}
	return nil
}

// HeldLocks returns the number of locks the engine currently tracks across sessions.
func (e *Engine) HeldLocks() int {
	return e.coord.Ledger().Len()
}
