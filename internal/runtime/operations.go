package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/ports"
)

// release unlocks handle and drops it from the ledger, whatever the remote outcome.
func (c *Coordinator) release(ctx context.Context, txID string, caps ports.ObjectCapabilitySet, sess *domain.Session, handle *domain.LockHandle) error {
	ref := handle.Ref
	var res *ports.UnlockResult
	err := c.invoke(ctx, txID, ref, domain.PrimitiveUnlock, func() error {
		var err error
		res, err = caps.Unlock(ctx, sess, ref, handle)
		return err
	})
	c.ledger.Forget(handle.SessionID, ref)

	if err != nil {
		return translate(err, domain.PrimitiveUnlock, ref)
	}
	if res != nil && res.Status != 0 && (res.Status < 200 || res.Status > 299) {
		e := domain.NewError(domain.KindUnlock, string(domain.PrimitiveUnlock), ref,
			fmt.Sprintf("SAP Error: unlocking %s returned HTTP %d.", ref, res.Status), nil)
		e.Status = res.Status
		return e
	}
	return nil
}

// single prepares a single-object operation: session guard, normalization and capability lookup.
func (c *Coordinator) single(sess *domain.Session, ref domain.ObjectRef, op domain.Primitive) (domain.ObjectRef, ports.ObjectCapabilitySet, error) {
	ref = ref.Normalize()
	if err := checkSession(sess, ref, op); err != nil {
		return ref, nil, err
	}
	caps, err := c.capabilities(ref, op)
	return ref, caps, err
}

// operation is the scope of one single-object call.
type operation struct {
	id     string
	ref    domain.ObjectRef
	caps   ports.ObjectCapabilitySet
	logger *slog.Logger
}

// track prepares a single-object operation, runs fn and emits the finish hook.
func (c *Coordinator) track(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, p domain.Primitive, fn func(*operation) (*domain.Result, error)) (*domain.Result, error) {
	finish := &domain.FinishEvent{SessionID: sessionID(sess), Operation: string(p)}
	ref, caps, err := c.single(sess, ref, p)
	finish.Ref = ref
	if err != nil {
		finish.Err = err
		c.emitFinish(ctx, finish)
		return nil, err
	}

	id := c.newID()
	op := &operation{
		id:   id,
		ref:  ref,
		caps: caps,
		logger: c.logger.With(
			"tx_id", id,
			"op", p,
			"kind", ref.Kind,
			"object", ref.Name,
			"session_id", sess.ID,
		),
	}
	res, err := fn(op)
	finish.TransactionID = id
	finish.Result, finish.Err = res, err
	c.emitFinish(ctx, finish)
	return res, err
}

// Delete removes an object. Deleting a missing object fails with NotFound.
// The deletion service enqueues its own lock, so no lock is taken here; a lock
// this session still holds on ref is rejected as a conflict.
func (c *Coordinator) Delete(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, transport string) (*domain.Result, error) {
	return c.track(ctx, sess, ref, domain.PrimitiveDelete, func(op *operation) (*domain.Result, error) {
		ref := op.ref
		if _, held := c.ledger.Lookup(sess.ID, ref); held {
			return nil, domain.NewError(domain.KindLockConflict, string(domain.PrimitiveDelete), ref,
				fmt.Sprintf("Lock conflict: %s is locked in this session; unlock it before deleting.", ref), nil)
		}

		var res *ports.DeleteResult
		err := c.invoke(ctx, op.id, ref, domain.PrimitiveDelete, func() error {
			var err error
			res, err = op.caps.Delete(ctx, sess, ref, transport)
			return err
		})
		if err != nil {
			derr := translate(err, domain.PrimitiveDelete, ref)
			op.logger.ErrorContext(ctx, "delete failed", "error_kind", derr.Kind, "err", derr)
			return nil, derr
		}

		msg := fmt.Sprintf("%s deleted successfully.", ref)
		if res != nil && res.Message != "" {
			msg = oneLine(res.Message)
		}
		op.logger.InfoContext(ctx, "object deleted")
		return &domain.Result{
			TransactionID: op.id,
			Success:       true,
			Ref:           ref,
			Message:       msg,
		}, nil
	})
}

// Check runs a syntax check of ref at version. An "already checked" answer passes.
// A failed check returns both the error and a Result carrying the messages.
func (c *Coordinator) Check(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, version domain.Version, override *string) (*domain.Result, error) {
	return c.track(ctx, sess, ref, domain.PrimitiveCheck, func(op *operation) (*domain.Result, error) {
		ref := op.ref
		var check *domain.CheckResult
		err := c.invoke(ctx, op.id, ref, domain.PrimitiveCheck, func() error {
			var err error
			check, err = c.gate.Run(ctx, op.caps, sess, ref, version, override)
			return err
		})
		if err != nil {
			op.logger.WarnContext(ctx, "check failed", "error_kind", domain.KindOf(err), "err", err)
			return &domain.Result{TransactionID: op.id, Ref: ref, Message: err.Error(), Check: check}, err
		}

		msg := fmt.Sprintf("%s checked successfully.", ref)
		if check.Status == domain.CheckAlreadyChecked {
			msg = fmt.Sprintf("%s was already checked.", ref)
		}
		return &domain.Result{
			TransactionID: op.id,
			Success:       true,
			Ref:           ref,
			Message:       msg,
			Check:         check,
			Warnings:      warningsOf(check.Messages),
		}, nil
	})
}

// Activate promotes the inactive version of ref.
func (c *Coordinator) Activate(ctx context.Context, sess *domain.Session, ref domain.ObjectRef) (*domain.Result, error) {
	return c.track(ctx, sess, ref, domain.PrimitiveActivate, func(op *operation) (*domain.Result, error) {
		res, err := c.activate(ctx, op.id, op.caps, sess, op.ref)
		if err != nil {
			op.logger.ErrorContext(ctx, "activation failed", "error_kind", domain.KindOf(err), "err", err)
			return nil, err
		}

		op.logger.InfoContext(ctx, "object activated")
		return &domain.Result{
			TransactionID: op.id,
			Success:       true,
			Ref:           op.ref,
			Message:       fmt.Sprintf("%s activated successfully.", op.ref),
			Activation:    res,
			Activated:     true,
			Warnings:      warningsOf(res.Messages),
		}, nil
	})
}

// Lock acquires an edit lock for the caller. The handle is bound to sess and
// must be released with Unlock on the same session.
func (c *Coordinator) Lock(ctx context.Context, sess *domain.Session, ref domain.ObjectRef) (*domain.LockHandle, error) {
	var handle *domain.LockHandle
	_, err := c.track(ctx, sess, ref, domain.PrimitiveLock, func(op *operation) (*domain.Result, error) {
		var err error
		handle, err = c.acquire(ctx, op.id, op.caps, sess, op.ref)
		if err != nil {
			op.logger.WarnContext(ctx, "lock failed", "error_kind", domain.KindOf(err), "err", err)
			return nil, err
		}
		op.logger.InfoContext(ctx, "object locked")
		return &domain.Result{
			TransactionID: op.id,
			Success:       true,
			Ref:           op.ref,
			Message:       fmt.Sprintf("%s locked successfully.", op.ref),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// Unlock releases a lock obtained with Lock. A token that this session does not
// hold for ref is rejected as an invalid lock handle without a remote call.
func (c *Coordinator) Unlock(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, token string) (*domain.Result, error) {
	return c.track(ctx, sess, ref, domain.PrimitiveUnlock, func(op *operation) (*domain.Result, error) {
		handle, err := c.heldBy(sess, op.ref, token)
		if err != nil {
			op.logger.WarnContext(ctx, "unlock rejected", "err", err)
			return nil, err
		}
		if err := c.release(ctx, op.id, op.caps, sess, handle); err != nil {
			op.logger.WarnContext(ctx, "unlock failed", "error_kind", domain.KindOf(err), "err", err)
			return nil, err
		}
		op.logger.InfoContext(ctx, "object unlocked")
		return &domain.Result{
			TransactionID: op.id,
			Success:       true,
			Ref:           op.ref,
			Message:       fmt.Sprintf("%s unlocked successfully.", op.ref),
		}, nil
	})
}

func warningsOf(msgs []domain.CheckMessage) []string {
	var out []string
	for _, m := range msgs {
		if m.Severity == domain.SeverityWarning {
			out = append(out, m.Text)
		}
	}
	return out
}

// heldBy resolves the handle for an Unlock request.
// Tokens unknown to the ledger are trusted as-is, so locks taken before a restart can be released.
func (c *Coordinator) heldBy(sess *domain.Session, ref domain.ObjectRef, token string) (*domain.LockHandle, error) {
	invalid := func(msg string) error {
		return domain.NewError(domain.KindInvalidLockHandle, string(domain.PrimitiveUnlock), ref, msg, nil)
	}
	if token == "" {
		return nil, invalid("Invalid lock handle: a lock handle is required.")
	}
	if owner, ok := c.ledger.Owner(ref, token); ok && owner != sess.ID {
		return nil, invalid(fmt.Sprintf("Invalid lock handle: the lock on %s belongs to another session.", ref))
	}
	if held, ok := c.ledger.Lookup(sess.ID, ref); ok {
		if held.Token != token {
			return nil, invalid(fmt.Sprintf("Invalid lock handle: %s is locked with a different handle.", ref))
		}
		return held, nil
	}
	return &domain.LockHandle{Token: token, SessionID: sess.ID, Ref: ref}, nil
}

// acquire takes a lock through the ledger and binds the handle to sess.
func (c *Coordinator) acquire(ctx context.Context, txID string, caps ports.ObjectCapabilitySet, sess *domain.Session, ref domain.ObjectRef) (*domain.LockHandle, error) {
	if err := c.ledger.Reserve(sess.ID, ref); err != nil {
		return nil, domain.NewError(domain.KindLockConflict, string(domain.PrimitiveLock), ref,
			fmt.Sprintf("Lock conflict: %s is already locked in this session.", ref), err)
	}

	var handle *domain.LockHandle
	err := c.invoke(ctx, txID, ref, domain.PrimitiveLock, func() error {
		var err error
		handle, err = caps.Lock(ctx, sess, ref)
		return err
	})
	if err == nil && (handle == nil || handle.Token == "") {
		err = domain.NewError(domain.KindLockConflict, string(domain.PrimitiveLock), ref,
			fmt.Sprintf("Lock conflict: no lock handle returned for %s.", ref), nil)
	}
	if err != nil {
		c.ledger.Forget(sess.ID, ref)
		return nil, translate(err, domain.PrimitiveLock, ref)
	}

	bound := *handle
	bound.Ref = ref
	bound.SessionID = sess.ID
	if bound.AcquiredAt.IsZero() {
		bound.AcquiredAt = time.Now().UTC()
	}
	c.ledger.Confirm(&bound)
	return &bound, nil
}
