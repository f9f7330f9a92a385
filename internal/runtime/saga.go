package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// compensation is an undo action registered after a side effect succeeded.
type compensation struct {
	name string
	fn   func(context.Context) error
	done bool
}

// compensationScope implements the scoped-resource pattern of an edit transaction:
// every registered compensation runs exactly once, either when released explicitly
// on the normal path or when the scope closes on any exit path.
type compensationScope struct {
	mu      sync.Mutex
	stack   []*compensation
	timeout time.Duration
	logger  *slog.Logger
}

func newCompensationScope(timeout time.Duration, logger *slog.Logger) *compensationScope {
	return &compensationScope{
		timeout: timeout,
		logger:  logger,
	}
}

// Push registers a compensation. Compensations unwind in LIFO order on Close.
func (s *compensationScope) Push(name string, fn func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack = append(s.stack, &compensation{name: name, fn: fn})
}

// Pending reports whether the named compensation is registered and has not run yet.
func (s *compensationScope) Pending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.stack {
		if c.name == name && !c.done {
			return true
		}
	}
	return false
}

// Release runs the most recent pending compensation with the given name.
// It reports false if nothing was pending under that name.
func (s *compensationScope) Release(ctx context.Context, name string) (bool, error) {
	c := s.take(name)
	if c == nil {
		return false, nil
	}
	return true, s.run(ctx, c)
}

// Close runs every pending compensation, newest first.
// Failures are logged and returned; they never replace the caller's own error.
func (s *compensationScope) Close(ctx context.Context) []error {
	var errs []error
	for {
		c := s.take("")
		if c == nil {
			return errs
		}
		if err := s.run(ctx, c); err != nil {
			s.logger.WarnContext(ctx, "compensation failed", "compensation", c.name, "err", err)
			errs = append(errs, err)
		}
	}
}

// take marks and returns the newest pending compensation (any name if name is empty).
func (s *compensationScope) take(name string) *compensation {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.stack) - 1; i >= 0; i-- {
		c := s.stack[i]
		if c.done || (name != "" && c.name != name) {
			continue
		}
		c.done = true
		return c
	}
	return nil
}

// run executes a compensation detached from the caller's cancellation,
// so a timed out request still releases what it acquired.
func (s *compensationScope) run(ctx context.Context, c *compensation) error {
	cctx := context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(cctx, s.timeout)
		defer cancel()
	}
	return c.fn(cctx)
}
