package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/adtkit/internal/cli"
	httpAdapter "github.com/aretw0/adtkit/pkg/adapters/http"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves the edit operations as a JSON API described by /openapi.yaml,
plus /metrics for Prometheus and /v1/events for a server-sent event stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		streams := httpAdapter.NewStreamManager(nil)
		app, err := newApp(cmd, cli.AppOptions{
			Registerer: prometheus.DefaultRegisterer,
			Hooks:      []domain.LifecycleHooks{streams.Hooks()},
		})
		if err != nil {
			return err
		}
		defer app.Close()

		addr := app.Config.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		opts := []httpAdapter.Option{
			httpAdapter.WithStreams(streams),
			httpAdapter.WithGatherer(prometheus.DefaultGatherer),
			httpAdapter.WithLogger(app.Logger),
		}
		if app.Journal != nil {
			opts = append(opts, httpAdapter.WithJournal(app.Journal))
		}
		handler, err := httpAdapter.NewHandler(app.Engine, app.Sessions, opts...)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			app.Logger.Info("Starting adtkit server", "addr", srv.Addr, "system", app.Config.System.URL)
			serverErrors <- srv.ListenAndServe()
		}()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			app.Logger.Info("Start shutdown...", "signal", ctx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				_ = srv.Close()
			}
			app.Logger.Info("adtkit server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on (overrides server.addr)")
}
