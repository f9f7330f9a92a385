package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/adtkit/internal/translator"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/ports"
)

// CheckGate decides whether a syntax check lets a change through.
// The "object already checked" answer is a sentinel success, never an error.
type CheckGate struct{}

// Run checks ref at version (default inactive), optionally against override source.
// It returns a CheckFailed error if the check reports blocking messages.
func (CheckGate) Run(ctx context.Context, caps ports.ObjectCapabilitySet, sess *domain.Session, ref domain.ObjectRef, version domain.Version, override *string) (*domain.CheckResult, error) {
	if version == "" {
		version = domain.VersionInactive
	}

	res, err := caps.Check(ctx, sess, ref, version, override)
	if err != nil {
		if translator.IsAlreadyChecked(err) {
			return &domain.CheckResult{Status: domain.CheckAlreadyChecked}, nil
		}
		return nil, translator.Translate(err, domain.PrimitiveCheck, ref)
	}
	if res == nil {
		return &domain.CheckResult{Status: domain.CheckPassed}, nil
	}

	if res.Status == domain.CheckAlreadyChecked || onlyAlreadyChecked(res) {
		res.Status = domain.CheckAlreadyChecked
		return res, nil
	}

	if res.HasErrors() {
		res.Status = domain.CheckFailed
		msg := fmt.Sprintf("Check failed for %s: %s", ref, res.ErrorText())
		e := domain.NewError(domain.KindCheckFailed, string(domain.PrimitiveCheck), ref, strings.Join(strings.Fields(msg), " "), nil)
		return res, e
	}

	res.Status = domain.CheckPassed
	return res, nil
}

// onlyAlreadyChecked reports whether every blocking message is the benign "already checked" notice.
func onlyAlreadyChecked(res *domain.CheckResult) bool {
	errs := res.Errors()
	if len(errs) == 0 {
		return false
	}
	for _, m := range errs {
		if !translator.MentionsAlreadyChecked(m.Text) {
			return false
		}
	}
	return true
}
