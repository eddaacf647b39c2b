package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/draftform/internal/config"
	"github.com/vango-dev/draftform/internal/errors"
	"github.com/vango-dev/draftform/pkg/admin"
	"github.com/vango-dev/draftform/pkg/api"
	"github.com/vango-dev/draftform/pkg/auth"
	"github.com/vango-dev/draftform/pkg/features/form"
	"github.com/vango-dev/draftform/pkg/features/store"
	"github.com/vango-dev/draftform/pkg/telemetry"
	"github.com/vango-dev/draftform/pkg/users"
)

func serveCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin screen server",
		Long: `Run the admin HTTP server.

The server keeps one live form per operator and screen, mirrors every edit
to the shared drafts backend, and posts committed records to the API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")

	return cmd
}

// app is the wired service.
type app struct {
	logger  *slog.Logger
	handler *admin.Server
	drafts  *store.PersistentStore
	release func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return nil, errors.New("E102").Wrap(err)
	}
	slog.SetDefault(logger)

	if err := cfg.RequireAPI(); err != nil {
		return nil, err
	}

	backend, release, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	drafts := store.NewPersistentStore(backend,
		store.WithTTL(cfg.Drafts.TTL.Duration),
		store.WithPrefix(cfg.Drafts.Prefix),
		store.WithLogger(logger),
	)

	client, err := api.New(cfg.API.BaseURL, users.Resource,
		api.WithTimeout(cfg.API.Timeout.Duration),
		api.WithToken(cfg.API.Token),
		api.WithLogger(logger),
	)
	if err != nil {
		drafts.Close()
		release()
		return nil, errors.New("E160").Wrap(err)
	}

	opts := []admin.Option{
		admin.WithLogger(logger),
		admin.WithWriteTimeout(cfg.Server.WriteTimeout.Duration),
		admin.WithTracing(),
	}
	var observer form.Observer
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := telemetry.NewMetrics(
			telemetry.WithRegistry(reg),
			telemetry.WithNamespace(cfg.Metrics.Namespace),
		)
		observer = metrics
		opts = append(opts, admin.WithMetrics(metrics, reg))
	}

	tracer := telemetry.Tracer()
	build := func(screenID string, actor auth.Actor) *users.Screen {
		return users.NewScreen(screenID, users.Deps{
			Drafts:   drafts,
			Creator:  client,
			Actor:    actor.FormActor(),
			Observer: observer,
			Logger:   logger,
			Tracer:   tracer,
		})
	}
	opts = append(opts, admin.WithScreen("users", users.Resource, build))

	return &app{
		logger:  logger,
		handler: admin.New(drafts, opts...),
		drafts:  drafts,
		release: release,
	}, nil
}

func (a *app) close() {
	a.handler.Close()
	if err := a.drafts.Close(); err != nil {
		a.logger.Warn("drafts backend close failed", "error", err)
	}
	if err := a.release(); err != nil {
		a.logger.Warn("drafts release failed", "error", err)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: cfg.Server.ReadTimeout.Duration,
		ReadTimeout:       cfg.Server.ReadTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("admin server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.New("E180").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New("E181").Wrap(err)
	}
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if d := cfg.Server.ShutdownTimeout.Duration; d > 0 {
		return d
	}
	return 30 * time.Second
}
