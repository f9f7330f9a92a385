package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/ports"
)

// compUnlock names the unlock compensation registered after a successful Lock.
const compUnlock = "unlock"

// transaction is one run of the Create or Update workflow.
type transaction struct {
	c          *Coordinator
	caps       ports.ObjectCapabilitySet
	sess       *domain.Session
	state      *domain.TransactionState
	scope      *compensationScope
	logger     *slog.Logger
	activation *domain.ActivationResult
	warnings   []string
}

func (c *Coordinator) begin(flow domain.Flow, caps ports.ObjectCapabilitySet, sess *domain.Session, ref domain.ObjectRef) *transaction {
	id := c.newID()
	logger := c.logger.With(
		"tx_id", id,
		"flow", flow,
		"kind", ref.Kind,
		"object", ref.Name,
		"session_id", sess.ID,
	)
	return &transaction{
		c:      c,
		caps:   caps,
		sess:   sess,
		state:  domain.NewTransactionState(id, flow, ref),
		scope:  newCompensationScope(c.cleanupTimeout, logger),
		logger: logger,
	}
}

// Create runs the Create edit transaction.
//
// Validate, Create, Lock, Check(new source), Update, Unlock, re-Check, Activate.
// Activation is on unless req.Activate is explicitly false.
func (c *Coordinator) Create(ctx context.Context, sess *domain.Session, req domain.CreateRequest) (*domain.Result, error) {
	req.Ref = req.Ref.Normalize()
	finish := &domain.FinishEvent{
		SessionID: sessionID(sess),
		Operation: string(domain.FlowCreate),
		Flow:      domain.FlowCreate,
		Ref:       req.Ref,
	}
	if err := checkSession(sess, req.Ref, domain.PrimitiveValidate); err != nil {
		finish.Err = err
		c.emitFinish(ctx, finish)
		return nil, err
	}
	caps, err := c.capabilities(req.Ref, domain.PrimitiveValidate)
	if err != nil {
		finish.Err = err
		c.emitFinish(ctx, finish)
		return nil, err
	}

	tx := c.begin(domain.FlowCreate, caps, sess, req.Ref)
	res, err := tx.runCreate(ctx, req)
	finish.TransactionID = tx.state.ID
	finish.Trace = tx.state.Trace
	finish.Result, finish.Err = res, err
	c.emitFinish(ctx, finish)
	return res, err
}

// Update runs the Update edit transaction.
//
// Lock, Check(new source), Update, Unlock, re-Check, Activate.
// Activation is off unless req.Activate is explicitly true.
func (c *Coordinator) Update(ctx context.Context, sess *domain.Session, req domain.UpdateRequest) (*domain.Result, error) {
	req.Ref = req.Ref.Normalize()
	finish := &domain.FinishEvent{
		SessionID: sessionID(sess),
		Operation: string(domain.FlowUpdate),
		Flow:      domain.FlowUpdate,
		Ref:       req.Ref,
	}
	if err := checkSession(sess, req.Ref, domain.PrimitiveLock); err != nil {
		finish.Err = err
		c.emitFinish(ctx, finish)
		return nil, err
	}
	caps, err := c.capabilities(req.Ref, domain.PrimitiveLock)
	if err != nil {
		finish.Err = err
		c.emitFinish(ctx, finish)
		return nil, err
	}

	tx := c.begin(domain.FlowUpdate, caps, sess, req.Ref)
	res, err := tx.runUpdate(ctx, req)
	finish.TransactionID = tx.state.ID
	finish.Trace = tx.state.Trace
	finish.Result, finish.Err = res, err
	c.emitFinish(ctx, finish)
	return res, err
}

func (tx *transaction) runCreate(ctx context.Context, req domain.CreateRequest) (*domain.Result, error) {
	defer tx.scope.Close(ctx)
	tx.logger.InfoContext(ctx, "transaction started", "activate", req.ShouldActivate())

	meta := req.Metadata()
	meta.Ref = tx.state.Ref

	if err := tx.validate(ctx, meta); err != nil {
		return nil, tx.fail(ctx, err)
	}
	if err := tx.create(ctx, meta); err != nil {
		return nil, tx.fail(ctx, err)
	}
	if err := tx.edit(ctx, req.Source, req.TransportRequest); err != nil {
		return nil, tx.fail(ctx, err)
	}
	tx.recheck(ctx)

	if req.ShouldActivate() {
		if err := tx.activate(ctx); err != nil {
			return nil, tx.fail(ctx, err)
		}
	}
	return tx.result(ctx), nil
}

func (tx *transaction) runUpdate(ctx context.Context, req domain.UpdateRequest) (*domain.Result, error) {
	defer tx.scope.Close(ctx)
	tx.logger.InfoContext(ctx, "transaction started", "activate", req.ShouldActivate())

	if err := tx.edit(ctx, req.Source, req.TransportRequest); err != nil {
		return nil, tx.fail(ctx, err)
	}
	tx.recheck(ctx)

	if req.ShouldActivate() {
		if err := tx.activate(ctx); err != nil {
			return nil, tx.fail(ctx, err)
		}
	}
	return tx.result(ctx), nil
}

func (tx *transaction) advance(ctx context.Context, next domain.Phase, note string) error {
	if err := tx.state.Advance(next, note); err != nil {
		return err
	}
	tx.logger.DebugContext(ctx, "phase reached", "phase", next)
	tx.c.emitPhase(ctx, tx.state)
	return nil
}

func (tx *transaction) validate(ctx context.Context, meta domain.ObjectMetadata) error {
	ref := tx.state.Ref
	var res *ports.ValidationResult
	err := tx.c.invoke(ctx, tx.state.ID, ref, domain.PrimitiveValidate, func() error {
		var err error
		res, err = tx.caps.Validate(ctx, tx.sess, meta)
		return err
	})
	if err != nil {
		return translate(err, domain.PrimitiveValidate, ref)
	}

	if res != nil && !res.Valid {
		text := strings.Join(res.Messages, "; ")
		if text == "" {
			text = "object metadata was rejected"
		}
		kind := domain.KindValidation
		if strings.Contains(strings.ToLower(text), "already exist") {
			kind = domain.KindAlreadyExists
		}
		return domain.NewError(kind, string(domain.PrimitiveValidate), ref, oneLine("Validation error: "+text), nil)
	}
	return tx.advance(ctx, domain.PhaseValidated, "")
}

func (tx *transaction) create(ctx context.Context, meta domain.ObjectMetadata) error {
	ref := tx.state.Ref
	var res *ports.CreateResult
	err := tx.c.invoke(ctx, tx.state.ID, ref, domain.PrimitiveCreate, func() error {
		var err error
		res, err = tx.caps.Create(ctx, tx.sess, meta)
		return err
	})
	if err != nil {
		return translate(err, domain.PrimitiveCreate, ref)
	}

	if res == nil || (res.Status != http.StatusOK && res.Status != http.StatusCreated) {
		status := 0
		if res != nil {
			status = res.Status
		}
		e := domain.NewError(domain.KindUnknown, string(domain.PrimitiveCreate), ref,
			fmt.Sprintf("SAP Error: creating %s returned HTTP %d.", ref, status), nil)
		e.Status = status
		return e
	}
	return tx.advance(ctx, domain.PhaseCreated, res.Location)
}

// edit locks the object, lands the source behind the check gate and always attempts the unlock.
func (tx *transaction) edit(ctx context.Context, source, transport string) error {
	lock, err := tx.lock(ctx)
	if err != nil {
		return err
	}
	editErr := tx.checkAndUpdate(ctx, source, lock, transport)
	tx.unlock(ctx, "")
	return editErr
}

func (tx *transaction) lock(ctx context.Context) (*domain.LockHandle, error) {
	handle, err := tx.c.acquire(ctx, tx.state.ID, tx.caps, tx.sess, tx.state.Ref)
	if err != nil {
		return nil, err
	}
	tx.state.Lock = handle

	tx.scope.Push(compUnlock, func(cctx context.Context) error {
		return tx.c.release(cctx, tx.state.ID, tx.caps, tx.sess, handle)
	})
	return handle, tx.advance(ctx, domain.PhaseLocked, "")
}

func (tx *transaction) checkAndUpdate(ctx context.Context, source string, lock *domain.LockHandle, transport string) error {
	ref := tx.state.Ref

	var check *domain.CheckResult
	err := tx.c.invoke(ctx, tx.state.ID, ref, domain.PrimitiveCheck, func() error {
		var err error
		check, err = tx.c.gate.Run(ctx, tx.caps, tx.sess, ref, domain.VersionInactive, &source)
		return err
	})
	tx.state.LastCheck = check
	if err != nil {
		return err
	}
	if err := tx.advance(ctx, domain.PhaseChecked, string(check.Status)); err != nil {
		return err
	}

	var res *ports.UpdateResult
	err = tx.c.invoke(ctx, tx.state.ID, ref, domain.PrimitiveUpdate, func() error {
		var err error
		res, err = tx.caps.Update(ctx, tx.sess, ref, source, lock, transport)
		return err
	})
	if err != nil {
		return translate(err, domain.PrimitiveUpdate, ref)
	}
	if res != nil && res.Status != 0 && (res.Status < 200 || res.Status > 299) {
		e := domain.NewError(domain.KindUpdate, string(domain.PrimitiveUpdate), ref,
			fmt.Sprintf("SAP Error: updating %s returned HTTP %d.", ref, res.Status), nil)
		e.Status = res.Status
		return e
	}
	return tx.advance(ctx, domain.PhaseUpdated, "")
}

// unlock releases the transaction lock once. A failed unlock is logged and
// reported as a warning; it never replaces the transaction's own outcome.
func (tx *transaction) unlock(ctx context.Context, note string) {
	ran, err := tx.scope.Release(ctx, compUnlock)
	if !ran {
		return
	}
	if err != nil {
		tx.logger.WarnContext(ctx, "unlock failed, lock may remain until the session ends", "err", err)
		tx.warnings = append(tx.warnings, "unlock failed: "+err.Error())
		return
	}
	tx.state.Lock = nil
	if err := tx.advance(ctx, domain.PhaseUnlocked, note); err != nil {
		tx.logger.WarnContext(ctx, "phase not recorded", "err", err)
	}
}

// recheck runs the non-fatal sanity check of the saved inactive version.
func (tx *transaction) recheck(ctx context.Context) {
	ref := tx.state.Ref
	var check *domain.CheckResult
	err := tx.c.invoke(ctx, tx.state.ID, ref, domain.PrimitiveCheck, func() error {
		var err error
		check, err = tx.c.gate.Run(ctx, tx.caps, tx.sess, ref, domain.VersionInactive, nil)
		return err
	})
	if check != nil {
		tx.state.LastCheck = check
	}
	if err != nil {
		tx.logger.WarnContext(ctx, "post-update check reported problems", "err", err)
		tx.warnings = append(tx.warnings, "post-update check: "+err.Error())
	}
}

func (tx *transaction) activate(ctx context.Context) error {
	res, err := tx.c.activate(ctx, tx.state.ID, tx.caps, tx.sess, tx.state.Ref)
	tx.activation = res
	if res != nil {
		for _, m := range res.Messages {
			if m.Severity == domain.SeverityWarning {
				tx.warnings = append(tx.warnings, "activation: "+m.Text)
			}
		}
	}
	if err != nil {
		return err
	}
	return tx.advance(ctx, domain.PhaseActivated, "")
}

// fail settles the transaction in PhaseFailed, releasing a still held lock first.
// The returned error is the original failure, classified.
func (tx *transaction) fail(ctx context.Context, err error) error {
	derr := translate(err, "", tx.state.Ref)

	if tx.scope.Pending(compUnlock) {
		tx.unlock(ctx, "compensation")
	}

	reached := tx.state.Phase
	if tx.state.Flow == domain.FlowCreate && tx.state.Reached(domain.PhaseCreated) && !tx.state.Reached(domain.PhaseUpdated) {
		tx.logger.WarnContext(ctx, "object was created but its source was not written", "phase_reached", reached)
	}
	if advErr := tx.advance(ctx, domain.PhaseFailed, derr.Error()); advErr != nil {
		tx.logger.WarnContext(ctx, "phase not recorded", "err", advErr)
	}
	tx.logger.ErrorContext(ctx, "transaction failed",
		"phase_reached", reached,
		"error_kind", derr.Kind,
		"err", derr,
	)
	return derr
}

func (tx *transaction) result(ctx context.Context) *domain.Result {
	res := &domain.Result{
		TransactionID: tx.state.ID,
		Success:       true,
		Flow:          tx.state.Flow,
		Ref:           tx.state.Ref,
		Phase:         tx.state.Phase,
		Check:         tx.state.LastCheck,
		Activation:    tx.activation,
		Activated:     tx.state.Phase == domain.PhaseActivated,
		Warnings:      tx.warnings,
		Trace:         tx.state.Trace,
	}
	res.Message = res.Summary()
	tx.logger.InfoContext(ctx, "transaction finished", "phase", res.Phase, "warnings", len(res.Warnings))
	return res
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
