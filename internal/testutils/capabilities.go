package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/ports"
)

// FakeCapabilities is a scripted ports.ObjectCapabilitySet.
// Each primitive returns its configured error (if any) and records the call.
type FakeCapabilities struct {
	ObjectKind domain.ObjectKind

	ValidateResult *ports.ValidationResult
	CreateStatus   int
	CheckResults   []*domain.CheckResult
	ActivateResult *domain.ActivationResult
	LockToken      string

	// Errs maps a primitive to the error it returns.
	Errs map[domain.Primitive]error

	// BeforeCall, if set, runs before each primitive (e.g. to cancel a context).
	BeforeCall func(p domain.Primitive)

	// Checker, if set, answers Check once CheckResults are used up. It sees the
	// override source, or the last source written by Update when there is none.
	Checker func(source string) *domain.CheckResult

	mu        sync.Mutex
	calls     []domain.Primitive
	overrides []*string
	updates   []string
	unlocked  []string
	checkIdx  int
	lockSeq   int
}

// NewFakeCapabilities returns a fake whose primitives all succeed.
func NewFakeCapabilities(kind domain.ObjectKind) *FakeCapabilities {
	return &FakeCapabilities{
		ObjectKind:     kind,
		ValidateResult: &ports.ValidationResult{Valid: true},
		CreateStatus:   201,
		Errs:           map[domain.Primitive]error{},
	}
}

func (f *FakeCapabilities) record(p domain.Primitive) error {
	if f.BeforeCall != nil {
		f.BeforeCall(p)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	return f.Errs[p]
}

// Calls returns the primitives invoked so far, in order.
func (f *FakeCapabilities) Calls() []domain.Primitive {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Primitive(nil), f.calls...)
}

// Count returns how many times p was invoked.
func (f *FakeCapabilities) Count(p domain.Primitive) int {
	n := 0
	for _, c := range f.Calls() {
		if c == p {
			n++
		}
	}
	return n
}

// CheckOverrides returns the override argument of every Check call.
func (f *FakeCapabilities) CheckOverrides() []*string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*string(nil), f.overrides...)
}

// Updates returns the sources written by Update.
func (f *FakeCapabilities) Updates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updates...)
}

// UnlockedTokens returns the tokens passed to Unlock.
func (f *FakeCapabilities) UnlockedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unlocked...)
}

func (f *FakeCapabilities) Kind() domain.ObjectKind { return f.ObjectKind }

func (f *FakeCapabilities) Validate(ctx context.Context, sess *domain.Session, meta domain.ObjectMetadata) (*ports.ValidationResult, error) {
	if err := f.record(domain.PrimitiveValidate); err != nil {
		return nil, err
	}
	return f.ValidateResult, nil
}

func (f *FakeCapabilities) Create(ctx context.Context, sess *domain.Session, meta domain.ObjectMetadata) (*ports.CreateResult, error) {
	if err := f.record(domain.PrimitiveCreate); err != nil {
		return nil, err
	}
	return &ports.CreateResult{Status: f.CreateStatus}, nil
}

func (f *FakeCapabilities) Lock(ctx context.Context, sess *domain.Session, ref domain.ObjectRef) (*domain.LockHandle, error) {
	if err := f.record(domain.PrimitiveLock); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockSeq++
	token := f.LockToken
	if token == "" {
		token = fmt.Sprintf("LOCK-%d", f.lockSeq)
	}
	return &domain.LockHandle{Token: token}, nil
}

func (f *FakeCapabilities) Check(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, version domain.Version, override *string) (*domain.CheckResult, error) {
	err := f.record(domain.PrimitiveCheck)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides = append(f.overrides, override)
	if err != nil {
		return nil, err
	}
	if f.checkIdx < len(f.CheckResults) {
		res := f.CheckResults[f.checkIdx]
		f.checkIdx++
		return res, nil
	}
	if f.Checker != nil {
		source := ""
		if n := len(f.updates); n > 0 {
			source = f.updates[n-1]
		}
		if override != nil {
			source = *override
		}
		return f.Checker(source), nil
	}
	return &domain.CheckResult{}, nil
}

func (f *FakeCapabilities) Update(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, source string, lock *domain.LockHandle, transport string) (*ports.UpdateResult, error) {
	if err := f.record(domain.PrimitiveUpdate); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, source)
	return &ports.UpdateResult{Status: 200}, nil
}

func (f *FakeCapabilities) Unlock(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, lock *domain.LockHandle) (*ports.UnlockResult, error) {
	err := f.record(domain.PrimitiveUnlock)
	f.mu.Lock()
	f.unlocked = append(f.unlocked, lock.Token)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &ports.UnlockResult{Status: 200}, nil
}

func (f *FakeCapabilities) Activate(ctx context.Context, sess *domain.Session, ref domain.ObjectRef) (*domain.ActivationResult, error) {
	if err := f.record(domain.PrimitiveActivate); err != nil {
		return nil, err
	}
	if f.ActivateResult != nil {
		return f.ActivateResult, nil
	}
	return &domain.ActivationResult{Activated: true, Checked: true, Generated: true}, nil
}

func (f *FakeCapabilities) Delete(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, transport string) (*ports.DeleteResult, error) {
	if err := f.record(domain.PrimitiveDelete); err != nil {
		return nil, err
	}
	return &ports.DeleteResult{Status: 200}, nil
}

// NopClient is a ports.Client that answers every request with an empty 200.
type NopClient struct{}

func (NopClient) Do(ctx context.Context, sess *domain.Session, req *ports.Request) (*ports.Response, error) {
	return &ports.Response{Status: 200}, nil
}
