package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/ports"
)

// activate promotes the inactive version of ref. Activation messages of error
// severity fail the call even when the backend answered with a success status.
func (c *Coordinator) activate(ctx context.Context, txID string, caps ports.ObjectCapabilitySet, sess *domain.Session, ref domain.ObjectRef) (*domain.ActivationResult, error) {
	var res *domain.ActivationResult
	err := c.invoke(ctx, txID, ref, domain.PrimitiveActivate, func() error {
		var err error
		res, err = caps.Activate(ctx, sess, ref)
		return err
	})
	if err != nil {
		return nil, translate(err, domain.PrimitiveActivate, ref)
	}
	if res == nil {
		return &domain.ActivationResult{Activated: true}, nil
	}
	if res.HasErrors() || !res.Activated {
		detail := (&domain.CheckResult{Messages: res.Messages}).ErrorText()
		if detail == "" {
			detail = "the backend did not activate the object"
		}
		return res, domain.NewError(domain.KindActivation, string(domain.PrimitiveActivate), ref,
			oneLine(fmt.Sprintf("Activation failed for %s: %s", ref, detail)), nil)
	}
	return res, nil
}
