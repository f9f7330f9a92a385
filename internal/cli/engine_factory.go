package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/adtkit"
	"github.com/aretw0/adtkit/internal/config"
	"github.com/aretw0/adtkit/pkg/adapters/adt"
	"github.com/aretw0/adtkit/pkg/adapters/sqlite"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/observability"
	"github.com/aretw0/adtkit/pkg/ports"
	"github.com/aretw0/adtkit/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// App bundles everything a command needs to run edit operations.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Engine   *adtkit.Engine
	Sessions *session.Manager
	Journal  *sqlite.Journal // nil when the journal is disabled
	Metrics  *observability.Metrics

	closers []io.Closer
}

// AppOptions tunes how the App is assembled.
type AppOptions struct {
	Debug bool

	// Registerer receives the metrics collectors (nil: metrics are kept but not registered).
	Registerer prometheus.Registerer

	// Hooks are merged after the built-in ones.
	Hooks []domain.LifecycleHooks

	// Client replaces the ADT transport (tests).
	Client ports.Client

	// Capabilities override the ADT capability sets of their kinds.
	Capabilities []ports.ObjectCapabilitySet
}

// NewApp wires config → transport → session store → session manager → engine.
func NewApp(cfg config.Config, opts AppOptions) (*App, error) {
	logger, err := NewLogger(cfg.Log, opts.Debug)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Logger: logger}

	client := opts.Client
	if client == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		client = adt.NewTransport(cfg.System.URL,
			adt.WithCredentials(cfg.System.User, cfg.System.Password),
			adt.WithClient(cfg.System.Client),
			adt.WithLanguage(cfg.System.Language),
			adt.WithTimeout(cfg.System.Timeout),
			adt.WithInsecureTLS(cfg.System.Insecure),
			adt.WithLogger(logger),
		)
	}

	sessions, closer, err := NewSessionManager(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.Sessions = sessions
	app.addCloser(closer)

	app.Metrics = observability.NewMetrics(opts.Registerer)
	engineOpts := []adtkit.Option{
		adtkit.WithLogger(logger),
		adtkit.WithLanguage(cfg.System.Language),
		adtkit.WithLifecycleHooks(app.Metrics.Hooks()),
	}
	if opts.Debug {
		engineOpts = append(engineOpts, adtkit.WithLifecycleHooks(createDebugHooks(logger)))
	}
	if len(opts.Capabilities) > 0 {
		engineOpts = append(engineOpts, adtkit.WithCapabilities(opts.Capabilities...))
	}
	for _, h := range opts.Hooks {
		engineOpts = append(engineOpts, adtkit.WithLifecycleHooks(h))
	}

	if cfg.Journal.Path != "" {
		journal, err := sqlite.Open(cfg.Journal.Path)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		app.Journal = journal
		app.addCloser(journal)
		engineOpts = append(engineOpts, adtkit.WithJournal(journal))
	}

	engine, err := adtkit.New(client, engineOpts...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	app.Engine = engine
	return app, nil
}

func (a *App) addCloser(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}

// Close releases the journal and the session backend.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Logger.Warn("close failed", "err", err)
		}
	}
	a.closers = nil
}
