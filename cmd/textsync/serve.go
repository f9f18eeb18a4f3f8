package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/textsync/internal/config"
	"github.com/rickgao/textsync/internal/connection"
	"github.com/rickgao/textsync/internal/database"
	"github.com/rickgao/textsync/internal/metrics"
	"github.com/rickgao/textsync/internal/notebook"
	"github.com/rickgao/textsync/internal/registry"
	"github.com/rickgao/textsync/internal/router"
	"github.com/rickgao/textsync/internal/server"
	"github.com/rickgao/textsync/internal/store"
	"github.com/rickgao/textsync/internal/version"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the server",
		Long: `Run the HTTP and WebSocket server.

Without --config the built-in defaults are used: notebooks mode, file
storage in the working directory, port 5000, metrics on port 9090.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")

	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting textsync",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"config", configPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	persister, pool, err := openPersister(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	st := store.New(cfg.Limits.MaxTextSize, persister, m, logger.With("component", "store"))
	dir := notebook.New(st, cfg.Limits.MaxBuffers, m, logger.With("component", "notebook"))
	if err := dir.Init(ctx, cfg.Storage.DefaultNotebook); err != nil {
		return fmt.Errorf("init notebooks: %w", err)
	}
	if cfg.Storage.Restore && cfg.Storage.Mode == config.ModeNotebooks {
		n, err := dir.Restore(ctx)
		if err != nil {
			return fmt.Errorf("restore notebooks: %w", err)
		}
		logger.Info("notebooks restored", "count", n, "notebooks", dir.List())
	}

	rt := router.New(
		registry.New(cfg.Limits.MaxConnections),
		dir,
		st,
		m,
		logger.With("component", "router"),
	)

	acceptor := connection.NewAcceptor(connection.SessionConfig{
		PingInterval:  cfg.Server.PingInterval,
		PongWait:      cfg.Server.PongWait,
		WriteTimeout:  cfg.Server.WriteTimeout,
		SendQueueSize: cfg.Server.SendQueueSize,
		MaxQueueSize:  cfg.Server.MaxQueueSize,
		ReadLimit:     connection.ReadLimitFor(cfg.Limits.MaxTextSize),
	}, rt, cfg.Server.AllowedOrigins, logger.With("component", "connection"))

	var db server.Pinger
	if pool != nil {
		db = pool
	}

	publicServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server.New(rt, acceptor, logger.With("component", "http")).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	opsServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: server.NewOpsHandler(server.OpsConfig{
			MetricsPath: cfg.Metrics.Path,
			Metrics:     m.Handler(),
			DB:          db,
		}, rt, logger.With("component", "ops")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", publicServer.Addr,
			"mode", cfg.Storage.Mode,
			"backend", persister.Backend(),
			"active", dir.Active(),
		)
		if err := publicServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("public server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("starting ops server",
			"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
			"metrics_path", cfg.Metrics.Path,
		)
		if err := opsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Hijacked WebSocket connections are not tracked by Shutdown.
		publicServer.Shutdown(shutdownCtx)
		rt.CloseAll()
		if err := acceptor.Wait(shutdownCtx); err != nil {
			logger.Warn("sessions still open at shutdown", "error", err)
		}
		opsServer.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	rs := rt.Stats()
	logger.Info("textsync stopped",
		"frames_received", rs.FramesReceived,
		"events_handled", rs.EventsHandled,
		"evictions", rs.Evictions,
		"refused", rs.RefusedConnects,
	)
	return nil
}

// openPersister selects the storage backend. The pool is non-nil only for
// the postgres backend and must be closed by the caller.
func openPersister(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Persister, *pgxpool.Pool, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database, cfg.Instance.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		p := store.NewPostgresPersister(pool)
		if cfg.Storage.Mode == config.ModeSingle {
			p = store.NewSharedPostgresPersister(pool)
		}
		if err := p.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("database connected")
		return p, pool, nil

	default:
		if cfg.Storage.Mode == config.ModeSingle {
			return store.NewSharedFilePersister(cfg.Storage.Dir), nil, nil
		}
		return store.NewFilePersister(cfg.Storage.Dir), nil, nil
	}
}
