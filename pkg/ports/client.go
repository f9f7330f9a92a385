package ports

import (
	"context"
	"net/http"
	"net/url"

	"github.com/aretw0/adtkit/pkg/domain"
)

// Request is a single call against the remote system.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte

	// Stateful asks the backend to keep the server-side session (required for locks).
	Stateful bool
}

// Response is the raw answer of the remote system.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client performs one round trip, reading and refreshing the session (cookies, CSRF token).
// Non-success statuses are returned as *domain.RemoteError.
type Client interface {
	Do(ctx context.Context, sess *domain.Session, req *Request) (*Response, error)
}
