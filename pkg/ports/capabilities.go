package ports

import (
	"context"

	"github.com/aretw0/adtkit/pkg/domain"
)

// ValidationResult is the outcome of a name/package validation.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Severity string   `json:"severity,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// CreateResult is the outcome of creating an object.
type CreateResult struct {
	Status   int    `json:"status"`
	Location string `json:"location,omitempty"`
}

// UpdateResult is the outcome of writing new source.
type UpdateResult struct {
	Status int `json:"status"`
}

// UnlockResult is the outcome of releasing a lock.
type UnlockResult struct {
	Status int `json:"status"`
}

// DeleteResult is the outcome of deleting an object.
type DeleteResult struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

// ObjectCapabilitySet is the uniform contract implemented once per object kind.
// Every method is exactly one remote call; callers never see wire details.
type ObjectCapabilitySet interface {
	Kind() domain.ObjectKind
	Validate(ctx context.Context, sess *domain.Session, meta domain.ObjectMetadata) (*ValidationResult, error)
	Create(ctx context.Context, sess *domain.Session, meta domain.ObjectMetadata) (*CreateResult, error)
	Lock(ctx context.Context, sess *domain.Session, ref domain.ObjectRef) (*domain.LockHandle, error)
	// Check runs a syntax check. A non-nil override is checked instead of the stored source.
	Check(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, version domain.Version, override *string) (*domain.CheckResult, error)
	Update(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, source string, lock *domain.LockHandle, transport string) (*UpdateResult, error)
	Unlock(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, lock *domain.LockHandle) (*UnlockResult, error)
	Activate(ctx context.Context, sess *domain.Session, ref domain.ObjectRef) (*domain.ActivationResult, error)
	Delete(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, transport string) (*DeleteResult, error)
}
