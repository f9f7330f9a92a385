package adt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/ports"
	"github.com/aretw0/adtkit/pkg/schema"
)

const (
	checkRunPath   = "/sap/bc/adt/checkruns"
	activationPath = "/sap/bc/adt/activation"
	deletionPath   = "/sap/bc/adt/deletion/delete"

	acceptLock = "application/*,application/vnd.sap.as+xml;charset=UTF-8;dataname=com.sap.adt.lock.result"
)

// Capabilities implements ports.ObjectCapabilitySet for one kind over an ADT client.
// Every method issues exactly one request.
type Capabilities struct {
	client   ports.Client
	spec     KindSpec
	language string
}

var _ ports.ObjectCapabilitySet = (*Capabilities)(nil)

// NewCapabilities creates the capability set for kind.
func NewCapabilities(client ports.Client, kind domain.ObjectKind, language string) (*Capabilities, error) {
	spec, ok := Specs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedKind, kind)
	}
	return &Capabilities{client: client, spec: spec, language: language}, nil
}

// All returns the capability sets of every supported kind.
func All(client ports.Client, language string) []ports.ObjectCapabilitySet {
	out := make([]ports.ObjectCapabilitySet, 0, len(domain.AllKinds))
	for _, k := range domain.AllKinds {
		caps, err := NewCapabilities(client, k, language)
		if err != nil {
			continue
		}
		out = append(out, caps)
	}
	return out
}

func (c *Capabilities) Kind() domain.ObjectKind {
	return c.spec.Kind
}

// ExtraFields returns the kind-specific create fields this kind accepts.
func (c *Capabilities) ExtraFields() schema.Schema {
	return c.spec.Extra
}

// Validate checks the kind-specific fields locally, then asks the backend to validate the name.
func (c *Capabilities) Validate(ctx context.Context, sess *domain.Session, meta domain.ObjectMetadata) (*ports.ValidationResult, error) {
	if err := c.spec.Extra.Validate(meta.Extra); err != nil {
		msgs := []string{err.Error()}
		if errs := schema.ValidationErrors(err); errs != nil {
			msgs = msgs[:0]
			for _, e := range errs {
				msgs = append(msgs, e.Error())
			}
		}
		return &ports.ValidationResult{Valid: false, Severity: "E", Messages: msgs}, nil
	}

	q := url.Values{}
	q.Set("objtype", c.spec.Type)
	q.Set("objname", meta.Ref.Name)
	if meta.Ref.Package != "" {
		q.Set("packagename", meta.Ref.Package)
	}
	if meta.Ref.Parent != "" {
		q.Set("fugrname", meta.Ref.Parent)
	}
	q.Set("description", meta.Description)

	resp, err := c.client.Do(ctx, sess, &ports.Request{
		Method: http.MethodPost,
		Path:   c.spec.ValidationPath,
		Query:  q,
		Header: http.Header{"Accept": []string{"application/vnd.sap.as+xml"}},
	})
	if err != nil {
		return nil, err
	}
	valid, severity, messages, err := parseValidation(resp.Body)
	if err != nil {
		return nil, err
	}
	return &ports.ValidationResult{Valid: valid, Severity: severity, Messages: messages}, nil
}

func (c *Capabilities) Create(ctx context.Context, sess *domain.Session, meta domain.ObjectMetadata) (*ports.CreateResult, error) {
	lang := meta.Language
	if lang == "" {
		lang = c.language
	}
	q := url.Values{}
	if meta.TransportRequest != "" {
		q.Set("corrNr", meta.TransportRequest)
	}

	resp, err := c.client.Do(ctx, sess, &ports.Request{
		Method: http.MethodPost,
		Path:   c.spec.CollectionURI(meta.Ref),
		Query:  q,
		Header: http.Header{"Content-Type": []string{c.spec.ContentType}},
		Body:   createBody(c.spec, meta, lang),
	})
	if err != nil {
		return nil, err
	}
	return &ports.CreateResult{Status: resp.Status, Location: resp.Header.Get("Location")}, nil
}

func (c *Capabilities) Lock(ctx context.Context, sess *domain.Session, ref domain.ObjectRef) (*domain.LockHandle, error) {
	q := url.Values{}
	q.Set("_action", "LOCK")
	q.Set("accessMode", "MODIFY")

	resp, err := c.client.Do(ctx, sess, &ports.Request{
		Method:   http.MethodPost,
		Path:     c.spec.ObjectURI(ref),
		Query:    q,
		Header:   http.Header{"Accept": []string{acceptLock}},
		Stateful: true,
	})
	if err != nil {
		return nil, err
	}
	token, corrNr, err := parseLock(resp.Body)
	if err != nil {
		return nil, err
	}
	return &domain.LockHandle{
		Token:      token,
		SessionID:  sess.ID,
		Ref:        ref,
		CorrNr:     corrNr,
		AcquiredAt: time.Now().UTC(),
	}, nil
}

func (c *Capabilities) Check(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, version domain.Version, override *string) (*domain.CheckResult, error) {
	if version == "" {
		version = domain.VersionInactive
	}
	q := url.Values{}
	q.Set("reporters", "abapCheckRun")

	resp, err := c.client.Do(ctx, sess, &ports.Request{
		Method: http.MethodPost,
		Path:   checkRunPath,
		Query:  q,
		Header: http.Header{
			"Content-Type": []string{"application/*"},
			"Accept":       []string{"application/vnd.sap.adt.checkmessages+xml"},
		},
		Body:     checkRunBody(c.spec, ref, version, override),
		Stateful: true,
	})
	if err != nil {
		return nil, err
	}
	return parseCheckRun(resp.Body)
}

func (c *Capabilities) Update(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, source string, lock *domain.LockHandle, transport string) (*ports.UpdateResult, error) {
	if lock == nil || lock.Token == "" {
		return nil, domain.NewError(domain.KindInvalidLockHandle, string(domain.PrimitiveUpdate), ref,
			fmt.Sprintf("Invalid lock handle for %s.", ref), nil)
	}
	q := url.Values{}
	q.Set("lockHandle", lock.Token)
	if transport == "" {
		transport = lock.CorrNr
	}
	if transport != "" {
		q.Set("corrNr", transport)
	}

	resp, err := c.client.Do(ctx, sess, &ports.Request{
		Method:   http.MethodPut,
		Path:     c.spec.SourceURI(ref),
		Query:    q,
		Header:   http.Header{"Content-Type": []string{c.spec.SourceContentType()}},
		Body:     []byte(source),
		Stateful: true,
	})
	if err != nil {
		return nil, err
	}
	return &ports.UpdateResult{Status: resp.Status}, nil
}

func (c *Capabilities) Unlock(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, lock *domain.LockHandle) (*ports.UnlockResult, error) {
	q := url.Values{}
	q.Set("_action", "UNLOCK")
	q.Set("lockHandle", lock.Token)

	resp, err := c.client.Do(ctx, sess, &ports.Request{
		Method:   http.MethodPost,
		Path:     c.spec.ObjectURI(ref),
		Query:    q,
		Stateful: true,
	})
	if err != nil {
		return nil, err
	}
	return &ports.UnlockResult{Status: resp.Status}, nil
}

func (c *Capabilities) Activate(ctx context.Context, sess *domain.Session, ref domain.ObjectRef) (*domain.ActivationResult, error) {
	q := url.Values{}
	q.Set("method", "activate")
	q.Set("preauditRequested", "true")

	resp, err := c.client.Do(ctx, sess, &ports.Request{
		Method: http.MethodPost,
		Path:   activationPath,
		Query:  q,
		Header: http.Header{"Content-Type": []string{"application/xml"}},
		Body:   activationBody(c.spec, ref),
	})
	if err != nil {
		return nil, err
	}
	return parseActivation(resp.Body)
}

func (c *Capabilities) Delete(ctx context.Context, sess *domain.Session, ref domain.ObjectRef, transport string) (*ports.DeleteResult, error) {
	resp, err := c.client.Do(ctx, sess, &ports.Request{
		Method: http.MethodPost,
		Path:   deletionPath,
		Header: http.Header{
			"Content-Type": []string{"application/vnd.sap.adt.deletion.request.v1+xml"},
			"Accept":       []string{"application/vnd.sap.adt.deletion.response.v1+xml"},
		},
		Body: deletionBody(c.spec, ref, transport),
	})
	if err != nil {
		return nil, err
	}
	deleted, message, err := parseDeletion(resp.Body)
	if err != nil {
		return nil, err
	}
	if !deleted {
		kind := domain.KindUnknown
		if missing(message) {
			kind = domain.KindNotFound
		}
		text := message
		if kind == domain.KindNotFound {
			text = fmt.Sprintf("%s not found.", ref)
		} else if text == "" {
			text = fmt.Sprintf("%s was not deleted.", ref)
		} else {
			text = "SAP Error: " + text
		}
		return nil, domain.NewError(kind, string(domain.PrimitiveDelete), ref, text, nil)
	}
	return &ports.DeleteResult{Status: resp.Status, Message: message}, nil
}

func missing(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "does not exist") || strings.Contains(m, "not found")
}
