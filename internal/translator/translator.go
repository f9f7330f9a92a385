// Package translator classifies raw transport and backend faults into the
// stable domain.ErrorKind taxonomy, each with one human readable line.
package translator

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/aretw0/adtkit/pkg/domain"
)

// Exception is the XML fault document returned by the ADT backend.
type Exception struct {
	XMLName   xml.Name `xml:"exception"`
	Namespace struct {
		ID string `xml:"id,attr"`
	} `xml:"namespace"`
	Type struct {
		ID string `xml:"id,attr"`
	} `xml:"type"`
	Message          string `xml:"message"`
	LocalizedMessage string `xml:"localizedMessage"`
}

// Text returns the most specific message carried by the exception.
func (e *Exception) Text() string {
	if s := strings.TrimSpace(e.LocalizedMessage); s != "" {
		return s
	}
	return strings.TrimSpace(e.Message)
}

// ParseException extracts the exception document embedded in an error body.
// It returns nil if the body is not an ADT exception.
func ParseException(body []byte) *Exception {
	if len(body) == 0 || !strings.Contains(string(body), "exception") {
		return nil
	}
	var exc Exception
	if err := xml.Unmarshal(body, &exc); err != nil {
		return nil
	}
	if exc.Text() == "" && exc.Type.ID == "" {
		return nil
	}
	return &exc
}

// IsAlreadyChecked reports whether err is the benign "object already checked" condition.
func IsAlreadyChecked(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrAlreadyChecked) {
		return true
	}
	var remote *domain.RemoteError
	if errors.As(err, &remote) {
		if exc := ParseException(remote.Body); exc != nil {
			if strings.Contains(exc.Type.ID, "AlreadyChecked") {
				return true
			}
			return MentionsAlreadyChecked(exc.Text())
		}
		return MentionsAlreadyChecked(string(remote.Body))
	}
	return MentionsAlreadyChecked(err.Error())
}

// MentionsAlreadyChecked reports whether a backend message is the "already checked" notice.
func MentionsAlreadyChecked(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "already checked") || strings.Contains(s, "already been checked")
}

// Translate classifies err raised by primitive p on ref.
// It always returns one classification and one single-line message.
// Already classified errors pass through, with the reference filled in when missing.
func Translate(err error, p domain.Primitive, ref domain.ObjectRef) *domain.Error {
	if err == nil {
		return nil
	}

	var classified *domain.Error
	if errors.As(err, &classified) {
		if classified.Ref.Name != "" && classified.Op != "" {
			return classified
		}
		// Fill in a copy: the error may be a shared sentinel.
		cp := *classified
		if cp.Ref.Name == "" {
			cp.Ref = ref
		}
		if cp.Op == "" {
			cp.Op = string(p)
		}
		return &cp
	}

	op := string(p)
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.KindTimeout, op, ref, oneLine(fmt.Sprintf("Timeout: %s on %s did not complete in time.", p, ref)), err)
	}
	if errors.Is(err, context.Canceled) {
		return domain.NewError(domain.KindTimeout, op, ref, oneLine(fmt.Sprintf("Canceled: %s on %s was canceled.", p, ref)), err)
	}

	var remote *domain.RemoteError
	if errors.As(err, &remote) {
		e := classifyRemote(remote, p, ref)
		e.Err = err
		return e
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.NewError(domain.KindTimeout, op, ref, oneLine("Timeout: "+err.Error()), err)
		}
		return domain.NewError(domain.KindTransport, op, ref, oneLine("Connection error: "+err.Error()), err)
	}

	if exc := ParseException([]byte(err.Error())); exc != nil {
		return domain.NewError(domain.KindUnknown, op, ref, oneLine("SAP Error: "+exc.Text()), err)
	}
	return domain.NewError(fallbackKind(p), op, ref, oneLine("Error: "+err.Error()), err)
}

func classifyRemote(remote *domain.RemoteError, p domain.Primitive, ref domain.ObjectRef) *domain.Error {
	op := string(p)
	exc := ParseException(remote.Body)
	detail := ""
	if exc != nil {
		detail = exc.Text()
	}

	build := func(kind domain.ErrorKind, msg string) *domain.Error {
		e := domain.NewError(kind, op, ref, oneLine(msg), nil)
		e.Status = remote.Status
		return e
	}

	if exc != nil && strings.Contains(exc.Type.ID, "AlreadyChecked") {
		return build(domain.KindAlreadyChecked, fmt.Sprintf("%s is already checked.", ref))
	}

	switch remote.Status {
	case http.StatusNotFound:
		return build(domain.KindNotFound, fmt.Sprintf("%s not found.", ref))

	case http.StatusConflict, http.StatusLocked:
		if existenceContext(p) || (exc != nil && strings.Contains(exc.Type.ID, "AlreadyExists")) {
			return build(domain.KindAlreadyExists, withDetail(fmt.Sprintf("%s already exists.", ref), detail))
		}
		return build(domain.KindLockConflict, withDetail(fmt.Sprintf("Lock conflict: %s is locked by another user or session.", ref), detail))

	case http.StatusBadRequest:
		if mentionsLockHandle(detail) || mentionsLockHandle(string(remote.Body)) {
			return build(domain.KindInvalidLockHandle, withDetail(fmt.Sprintf("Invalid lock handle for %s.", ref), detail))
		}
		if detail != "" {
			return build(domain.KindBadRequest, "SAP Error: "+detail)
		}
		return build(domain.KindBadRequest, fmt.Sprintf("Bad request: %s on %s was rejected.", p, ref))

	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return build(domain.KindTimeout, fmt.Sprintf("Timeout: %s on %s did not complete in time.", p, ref))
	}

	if detail != "" {
		return build(fallbackKind(p), "SAP Error: "+detail)
	}
	raw := strings.TrimSpace(string(remote.Body))
	if raw == "" || len(raw) > 300 {
		raw = remote.Error()
	}
	return build(fallbackKind(p), "SAP Error: "+raw)
}

// existenceContext reports whether a 409 on this primitive means "already exists" rather than "locked".
func existenceContext(p domain.Primitive) bool {
	return p == domain.PrimitiveValidate || p == domain.PrimitiveCreate
}

// fallbackKind classifies faults no status rule matched. Validation, existence and
// lock conflicts are only ever derived from the backend's answer, never from the primitive.
func fallbackKind(p domain.Primitive) domain.ErrorKind {
	switch p {
	case domain.PrimitiveCheck:
		return domain.KindCheckFailed
	case domain.PrimitiveUpdate:
		return domain.KindUpdate
	case domain.PrimitiveUnlock:
		return domain.KindUnlock
	case domain.PrimitiveActivate:
		return domain.KindActivation
	}
	return domain.KindUnknown
}

func mentionsLockHandle(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "lock handle") || strings.Contains(s, "lockhandle")
}

func withDetail(msg, detail string) string {
	if detail == "" {
		return msg
	}
	return msg + " " + detail
}

// oneLine collapses whitespace so messages stay on a single line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
