package ports

import (
	"context"

	"github.com/aretw0/adtkit/pkg/domain"
)

// EditEngine is the surface exposed to the calling layers (MCP, HTTP, CLI).
// Every call receives the session explicitly; the engine holds no session state.
type EditEngine interface {
	// Create runs the Create edit transaction (validate, create, lock, check, update, unlock, re-check, activate).
	Create(ctx context.Context, sess *domain.Session, req domain.CreateRequest) (*domain.Result, error)

	// Update runs the Update edit transaction (lock, check, update, unlock, re-check, activate).
	Update(ctx context.Context, sess *domain.Session, req domain.UpdateRequest) (*domain.Result, error)

	// Delete removes an object.
	Delete(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, transport string) (*domain.Result, error)

	// Check runs a syntax check of the given version, optionally against override source.
	Check(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, version domain.Version, override *string) (*domain.Result, error)

	// Activate promotes the inactive version of an object.
	Activate(ctx context.Context, sess *domain.Session, ref domain.ObjectRef) (*domain.Result, error)

	// Lock acquires an edit lock that the caller must release with Unlock on the same session.
	Lock(ctx context.Context, sess *domain.Session, ref domain.ObjectRef) (*domain.LockHandle, error)

	// Unlock releases a lock previously returned by Lock.
	Unlock(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, token string) (*domain.Result, error)
}
