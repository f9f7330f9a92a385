package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/adtkit/internal/logging"
	"github.com/aretw0/adtkit/internal/translator"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/ports"
	"github.com/google/uuid"
)

// DefaultCleanupTimeout bounds the unlock attempt made on behalf of a failed or canceled transaction.
const DefaultCleanupTimeout = 30 * time.Second

// CapabilityResolver returns the capability set for an object kind.
type CapabilityResolver interface {
	Get(kind domain.ObjectKind) (ports.ObjectCapabilitySet, error)
}

// Coordinator runs edit transactions and single-object operations over capability sets.
// It holds no session state: the session is passed explicitly on every call.
type Coordinator struct {
	resolver       CapabilityResolver
	ledger         *LockLedger
	gate           CheckGate
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
	cleanupTimeout time.Duration
	newID          func() string
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Coordinator) {
		c.hooks = hooks
	}
}

// WithLedger shares a lock ledger between coordinators.
func WithLedger(ledger *LockLedger) Option {
	return func(c *Coordinator) {
		if ledger != nil {
			c.ledger = ledger
		}
	}
}

// WithCleanupTimeout bounds compensation calls (unlock after failure).
func WithCleanupTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.cleanupTimeout = d
	}
}

// WithIDGenerator overrides transaction ID generation (tests).
func WithIDGenerator(fn func() string) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewCoordinator creates a coordinator resolving capability sets through resolver.
func NewCoordinator(resolver CapabilityResolver, opts ...Option) *Coordinator {
	c := &Coordinator{
		resolver:       resolver,
		ledger:         NewLockLedger(),
		logger:         logging.NewNop(),
		cleanupTimeout: DefaultCleanupTimeout,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ledger exposes the lock ledger (introspection and tests).
func (c *Coordinator) Ledger() *LockLedger {
	return c.ledger
}

func (c *Coordinator) capabilities(ref domain.ObjectRef, op domain.Primitive) (ports.ObjectCapabilitySet, error) {
	if err := ref.Validate(); err != nil {
		return nil, domain.NewError(domain.KindValidation, string(op), ref, "Validation error: "+err.Error(), err)
	}
	caps, err := c.resolver.Get(ref.Kind)
	if err != nil {
		return nil, domain.NewError(domain.KindBadRequest, string(op), ref, "Unsupported object kind: "+string(ref.Kind), err)
	}
	return caps, nil
}

func checkSession(sess *domain.Session, ref domain.ObjectRef, op domain.Primitive) error {
	if sess == nil || sess.ID == "" {
		return domain.NewError(domain.KindBadRequest, string(op), ref, "Bad request: a session is required.", nil)
	}
	return nil
}

// invoke runs one primitive, timing it and emitting the primitive hook.
func (c *Coordinator) invoke(ctx context.Context, txID string, ref domain.ObjectRef, p domain.Primitive, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	c.logger.DebugContext(ctx, "primitive returned",
		"tx_id", txID,
		"object", ref.Key(),
		"primitive", p,
		"duration", elapsed,
		"err", err,
	)
	if c.hooks.OnPrimitive != nil {
		c.hooks.OnPrimitive(ctx, &domain.PrimitiveEvent{
			Timestamp:     time.Now().UTC(),
			TransactionID: txID,
			Ref:           ref,
			Primitive:     p,
			Duration:      elapsed,
			Err:           err,
		})
	}
	return err
}

func (c *Coordinator) emitPhase(ctx context.Context, st *domain.TransactionState) {
	if c.hooks.OnPhase == nil {
		return
	}
	c.hooks.OnPhase(ctx, &domain.PhaseEvent{
		Timestamp:     time.Now().UTC(),
		TransactionID: st.ID,
		Flow:          st.Flow,
		Ref:           st.Ref,
		Phase:         st.Phase,
	})
}

func (c *Coordinator) emitFinish(ctx context.Context, e *domain.FinishEvent) {
	if c.hooks.OnFinish == nil {
		return
	}
	e.Timestamp = time.Now().UTC()
	c.hooks.OnFinish(ctx, e)
}

// translate classifies err for op, keeping an already classified error intact.
func translate(err error, op domain.Primitive, ref domain.ObjectRef) *domain.Error {
	return translator.Translate(err, op, ref)
}

func sessionID(sess *domain.Session) string {
	if sess == nil {
		return ""
	}
	return sess.ID
}
