package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnsupportedKind is returned when no capability set is registered for a kind.
var ErrUnsupportedKind = errors.New("unsupported object kind")

// ErrorKind is the stable classification of a failure.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindAlreadyExists     ErrorKind = "already_exists"
	KindLockConflict      ErrorKind = "lock_conflict"
	KindInvalidLockHandle ErrorKind = "invalid_lock_handle"
	KindCheckFailed       ErrorKind = "check_failed"
	KindAlreadyChecked    ErrorKind = "already_checked"
	KindUpdate            ErrorKind = "update"
	KindUnlock            ErrorKind = "unlock"
	KindActivation        ErrorKind = "activation"
	KindNotFound          ErrorKind = "not_found"
	KindBadRequest        ErrorKind = "bad_request"
	KindTimeout           ErrorKind = "timeout"
	KindTransport         ErrorKind = "transport"
	KindUnknown           ErrorKind = "unknown"
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrAlreadyExists     = &Error{Kind: KindAlreadyExists}
	ErrLockConflict      = &Error{Kind: KindLockConflict}
	ErrInvalidLockHandle = &Error{Kind: KindInvalidLockHandle}
	ErrCheckFailed       = &Error{Kind: KindCheckFailed}
	ErrAlreadyChecked    = &Error{Kind: KindAlreadyChecked}
	ErrUpdate            = &Error{Kind: KindUpdate}
	ErrUnlock            = &Error{Kind: KindUnlock}
	ErrActivation        = &Error{Kind: KindActivation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrBadRequest        = &Error{Kind: KindBadRequest}
	ErrTimeout           = &Error{Kind: KindTimeout}
)

// Error is a classified failure carrying one human readable line.
type Error struct {
	Kind    ErrorKind
	Op      string
	Ref     ObjectRef
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind, so errors.Is(err, ErrLockConflict) works for any lock conflict.
// An AlreadyExists error is also a validation error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" && t.Op != e.Op {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindValidation && e.Kind == KindAlreadyExists
}

// NewError builds a classified error.
func NewError(kind ErrorKind, op string, ref ObjectRef, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Ref: ref, Message: msg, Err: cause}
}

// KindOf returns the classification of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// RemoteError is a raw fault returned by the transport for a non-success HTTP status.
type RemoteError struct {
	Method string
	URL    string
	Status int
	Body   []byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.Status)
}

// TransitionError is returned when a transaction tries to move its phase backwards.
type TransitionError struct {
	From Phase
	To   Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal phase transition %s -> %s", e.From, e.To)
}
