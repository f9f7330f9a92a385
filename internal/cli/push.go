package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/adtkit/pkg/adapters/loam"
	"github.com/aretw0/adtkit/pkg/domain"
)

// PushOptions configures a push of source documents.
type PushOptions struct {
	SessionID string
	Create    bool
	// ActivateAll overrides the per-document activate flag when non-nil.
	ActivateAll *bool
}

// PushDocuments runs Create (or Update) for each document on one session and
// prints every outcome. It continues past failures and returns an error if any failed.
func PushDocuments(ctx context.Context, app *App, docs []*loam.Document, opts PushOptions, p *Printer) error {
	failed := 0
	for _, doc := range docs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res, err := pushOne(ctx, app, doc, opts)
		if err != nil {
			failed++
			p.Error(fmt.Errorf("%s: %w", doc.ID, err))
			continue
		}
		p.Result(res)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(docs))
	}
	return nil
}

func pushOne(ctx context.Context, app *App, doc *loam.Document, opts PushOptions) (*domain.Result, error) {
	var res *domain.Result
	err := app.Sessions.WithSession(ctx, opts.SessionID, func(ctx context.Context, sess *domain.Session) error {
		var err error
		if opts.Create {
			req := doc.CreateRequest()
			if opts.ActivateAll != nil {
				req.Activate = opts.ActivateAll
			}
			res, err = app.Engine.Create(ctx, sess, req)
		} else {
			req := doc.UpdateRequest()
			if opts.ActivateAll != nil {
				req.Activate = opts.ActivateAll
			}
			res, err = app.Engine.Update(ctx, sess, req)
		}
		return err
	})
	return res, err
}

// WatchPush pushes each document again (as an Update) whenever it changes, until ctx is done.
func WatchPush(ctx context.Context, app *App, src *loam.Source, opts PushOptions, p *Printer, status io.Writer) error {
	events, err := src.Watch(ctx)
	if err != nil {
		return err
	}
	opts.Create = false
	printSystemMessage(status, "Watching for changes (session '%s')...", opts.SessionID)

	pending := map[string]struct{}{}
	var flush <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case id, ok := <-events:
			if !ok {
				return nil
			}
			pending[id] = struct{}{}
			// Editors write in bursts; push once they settle.
			flush = time.After(300 * time.Millisecond)
		case <-flush:
			flush = nil
			for id := range pending {
				delete(pending, id)
				doc, err := src.Get(ctx, id)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						app.Logger.Debug("skipping changed document", "id", id, "err", err)
					}
					continue
				}
				printSystemMessage(status, "Change detected in '%s'", id)
				_ = PushDocuments(ctx, app, []*loam.Document{doc}, opts, p)
			}
		}
	}
}
