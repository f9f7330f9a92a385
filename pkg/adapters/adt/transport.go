package adt

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/adtkit/internal/logging"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/ports"
)

const (
	headerCSRF        = "x-csrf-token"
	headerSessionType = "X-sap-adt-sessiontype"
	discoveryPath     = "/sap/bc/adt/core/discovery"
)

// Transport is the ADT HTTP client. It threads the session cookies and CSRF
// token through every request and writes the refreshed values back into the
// session it was given.
type Transport struct {
	baseURL  string
	client   string
	user     string
	password string
	language string
	http     *http.Client
	logger   *slog.Logger
}

// TransportOption configures the Transport.
type TransportOption func(*Transport)

// WithCredentials sets the basic auth user and password.
func WithCredentials(user, password string) TransportOption {
	return func(t *Transport) {
		t.user = user
		t.password = password
	}
}

// WithClient sets the SAP client (mandant) sent as sap-client.
func WithClient(client string) TransportOption {
	return func(t *Transport) {
		t.client = client
	}
}

// WithLanguage sets the logon language sent as sap-language.
func WithLanguage(lang string) TransportOption {
	return func(t *Transport) {
		t.language = lang
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) {
		if c != nil {
			t.http = c
		}
	}
}

// WithTimeout bounds every remote call.
func WithTimeout(d time.Duration) TransportOption {
	return func(t *Transport) {
		t.http.Timeout = d
	}
}

// WithInsecureTLS disables certificate verification (self-signed development systems).
func WithInsecureTLS(insecure bool) TransportOption {
	return func(t *Transport) {
		if !insecure {
			return
		}
		t.http.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in for dev systems
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTransport creates a transport for the system at baseURL.
func NewTransport(baseURL string, opts ...TransportOption) *Transport {
	t := &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ ports.Client = (*Transport)(nil)

// Do sends req on behalf of sess. Mutating requests fetch a CSRF token first
// if the session has none, and retry once when the server rejects a stale token.
func (t *Transport) Do(ctx context.Context, sess *domain.Session, req *ports.Request) (*ports.Response, error) {
	if sess == nil {
		return nil, fmt.Errorf("adt: nil session")
	}
	if sess.BaseURL == "" {
		sess.BaseURL = t.baseURL
	}

	mutating := req.Method != http.MethodGet && req.Method != http.MethodHead
	if mutating && sess.CSRFToken == "" {
		if err := t.fetchToken(ctx, sess); err != nil {
			return nil, err
		}
	}

	resp, err := t.send(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusUnauthorized && len(sess.Cookies) > 0 {
		// The server dropped our session; log in again once.
		t.logger.DebugContext(ctx, "session rejected, starting a new one", "session_id", sess.ID)
		sess.Reset()
		if mutating {
			if err := t.fetchToken(ctx, sess); err != nil {
				return nil, err
			}
		}
		if resp, err = t.send(ctx, sess, req); err != nil {
			return nil, err
		}
	}
	if mutating && resp.Status == http.StatusForbidden && strings.EqualFold(resp.Header.Get(headerCSRF), "required") {
		t.logger.DebugContext(ctx, "csrf token expired, refetching", "session_id", sess.ID)
		sess.CSRFToken = ""
		if err := t.fetchToken(ctx, sess); err != nil {
			return nil, err
		}
		if resp, err = t.send(ctx, sess, req); err != nil {
			return nil, err
		}
	}

	if resp.Status < 200 || resp.Status > 299 {
		return resp, &domain.RemoteError{
			Method: req.Method,
			URL:    req.Path,
			Status: resp.Status,
			Body:   resp.Body,
		}
	}
	return resp, nil
}

func (t *Transport) fetchToken(ctx context.Context, sess *domain.Session) error {
	resp, err := t.send(ctx, sess, &ports.Request{
		Method: http.MethodGet,
		Path:   discoveryPath,
		Header: http.Header{headerCSRF: []string{"fetch"}, "Accept": []string{"application/atomsvc+xml"}},
	})
	if err != nil {
		return err
	}
	if resp.Status < 200 || resp.Status > 299 {
		return &domain.RemoteError{Method: http.MethodGet, URL: discoveryPath, Status: resp.Status, Body: resp.Body}
	}
	token := resp.Header.Get(headerCSRF)
	if token == "" {
		return fmt.Errorf("adt: server did not return a csrf token")
	}
	sess.CSRFToken = token
	return nil
}

func (t *Transport) send(ctx context.Context, sess *domain.Session, req *ports.Request) (*ports.Response, error) {
	target, err := t.url(sess, req)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("adt: build request: %w", err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if t.user != "" {
		httpReq.SetBasicAuth(t.user, t.password)
	}
	if sess.CSRFToken != "" && httpReq.Header.Get(headerCSRF) == "" {
		httpReq.Header.Set(headerCSRF, sess.CSRFToken)
	}
	if req.Stateful {
		httpReq.Header.Set(headerSessionType, "stateful")
	}
	for _, c := range sess.Cookies {
		httpReq.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	start := time.Now()
	httpResp, err := t.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("adt: read response: %w", err)
	}

	mergeCookies(sess, httpResp.Cookies())
	sess.UpdatedAt = time.Now().UTC()

	t.logger.DebugContext(ctx, "adt request",
		"method", req.Method,
		"path", req.Path,
		"status", httpResp.StatusCode,
		"duration", time.Since(start),
		"session_id", sess.ID,
	)
	return &ports.Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   data,
	}, nil
}

func (t *Transport) url(sess *domain.Session, req *ports.Request) (string, error) {
	base := sess.BaseURL
	if base == "" {
		base = t.baseURL
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + req.Path)
	if err != nil {
		return "", fmt.Errorf("adt: invalid url: %w", err)
	}

	q := u.Query()
	for k, vs := range req.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	client := t.client
	if sess.Client != "" {
		client = sess.Client
	}
	if client != "" && q.Get("sap-client") == "" {
		q.Set("sap-client", client)
	}
	if t.language != "" && q.Get("sap-language") == "" {
		q.Set("sap-language", t.language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// mergeCookies replaces session cookies by name and drops expired ones.
func mergeCookies(sess *domain.Session, fresh []*http.Cookie) {
	if len(fresh) == 0 {
		return
	}
	idx := make(map[string]int, len(sess.Cookies))
	for i, c := range sess.Cookies {
		idx[c.Name] = i
	}
	for _, c := range fresh {
		expired := c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(time.Now()))
		i, known := idx[c.Name]
		switch {
		case expired && known:
			sess.Cookies[i].Value = ""
		case expired:
		case known:
			sess.Cookies[i] = domain.Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain}
		default:
			idx[c.Name] = len(sess.Cookies)
			sess.Cookies = append(sess.Cookies, domain.Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain})
		}
	}

	kept := sess.Cookies[:0]
	for _, c := range sess.Cookies {
		if c.Value != "" {
			kept = append(kept, c)
		}
	}
	sess.Cookies = kept
}
