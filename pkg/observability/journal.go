package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/adtkit/internal/logging"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/ports"
	"github.com/google/uuid"
)

// JournalHooks records every finished transaction and operation in journal.
// Recording failures are logged and never affect the operation outcome.
func JournalHooks(journal ports.Journal, logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = logging.NewNop()
	}
	return domain.LifecycleHooks{
		OnFinish: func(ctx context.Context, e *domain.FinishEvent) {
			entry := ports.NewJournalEntry(e, uuid.NewString)
			if err := journal.Record(context.WithoutCancel(ctx), entry); err != nil {
				logger.WarnContext(ctx, "failed to record journal entry",
					"tx_id", entry.ID,
					"operation", entry.Operation,
					"err", err,
				)
			}
		},
	}
}
