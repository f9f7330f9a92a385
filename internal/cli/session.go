package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/adtkit/internal/config"
	"github.com/aretw0/adtkit/pkg/adapters/file"
	"github.com/aretw0/adtkit/pkg/adapters/memory"
	"github.com/aretw0/adtkit/pkg/adapters/redis"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/persistence/middleware"
	"github.com/aretw0/adtkit/pkg/ports"
	"github.com/aretw0/adtkit/pkg/session"
)

// NewSessionStore builds the configured session store, encrypted at rest when a key is set.
// The returned locker is non-nil for the redis store; the closer, if any, releases the backend.
func NewSessionStore(cfg config.Config) (ports.SessionStore, ports.DistributedLocker, io.Closer, error) {
	var (
		store  ports.SessionStore
		locker ports.DistributedLocker
		closer io.Closer
	)
	switch cfg.Session.Store {
	case "memory":
		store = memory.NewStore()
	case "", "file":
		store = file.New(cfg.Session.Dir)
	case "redis":
		rs, err := redis.New(cfg.Session.RedisURL, redis.WithTTL(cfg.Session.TTL))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect session store: %w", err)
		}
		store, closer = rs, rs
		locker = redis.NewLocker(rs.Client(), rs.Prefix())
	default:
		return nil, nil, nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}

	if cfg.Session.Key != "" {
		key, err := middleware.ParseKey(cfg.Session.Key)
		if err != nil {
			if closer != nil {
				_ = closer.Close()
			}
			return nil, nil, nil, fmt.Errorf("invalid session key: %w", err)
		}
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return store, locker, closer, nil
}

// NewSessionManager wraps the configured store in a session.Manager.
// New sessions are bound to the configured system URL and client.
func NewSessionManager(cfg config.Config, logger *slog.Logger) (*session.Manager, io.Closer, error) {
	store, locker, closer, err := NewSessionStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithLockTTL(cfg.Session.LockTTL),
		session.WithInitializer(func(s *domain.Session) {
			s.BaseURL = cfg.System.URL
			s.Client = cfg.System.Client
		}),
	}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
	}
	return session.NewManager(store, opts...), closer, nil
}
