// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/fiverow/fiverow/internal/auth"
	pgauth "github.com/fiverow/fiverow/internal/auth/postgres"
	"github.com/fiverow/fiverow/internal/config"
	"github.com/fiverow/fiverow/internal/game"
	"github.com/fiverow/fiverow/internal/httpapi"
	"github.com/fiverow/fiverow/internal/logging"
	"github.com/fiverow/fiverow/internal/observability"
	"github.com/fiverow/fiverow/internal/store"
	"github.com/fiverow/fiverow/internal/ws"
	"github.com/fiverow/fiverow/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// ServeDeps holds injectable dependencies for the serve command. Nil fields
// fall back to production implementations.
type ServeDeps struct {
	PoolFactory                func(ctx context.Context, url string) (*pgxpool.Pool, error)
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) *observability.Server
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the game server",
		Long: `Start the HTTP server: auth endpoints, the WebSocket game
gateway, and (optionally) a metrics/health endpoint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServe wires the server together and blocks until shutdown.
func runServe(ctx context.Context, cfg *config.Config, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = store.NewPool
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = observability.NewServer
	}

	logging.SetDefault("fiverow", version, cfg.LogFormat)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := deps.PoolFactory(ctx, cfg.DatabaseURL)
	if err != nil {
		errutil.LogError(slog.Default(), "database connection failed", err)
		return err
	}
	defer pool.Close()

	slog.Info("connected to database")

	codec, err := auth.NewTokenCodec([]byte(cfg.JWTSecret), cfg.AccessTTL)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(
		pgauth.NewUserRepository(pool),
		pgauth.NewSessionRepository(pool),
		auth.NewArgon2idHasher(),
		codec,
		cfg.RefreshTTL,
	)

	registry := game.NewRegistry()
	matchmaker := game.NewMatchmaker(registry)
	gateway := ws.NewGateway(ctx, authSvc, matchmaker, registry)

	authHandler := httpapi.NewAuthHandler(authSvc)
	router := httpapi.NewRouter(authHandler, gateway)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Revoked and expired session rows are garbage; sweep them on a timer.
	go sweepSessions(ctx, authSvc, cfg.SweepEvery)

	if cfg.MetricsAddr != "" {
		obsServer := deps.ObservabilityServerFactory(cfg.MetricsAddr, func() bool {
			return pool.Ping(ctx) == nil
		})
		obsServer.RegisterGaugeFunc("fiverow_ws_connections",
			"Open WebSocket connections", func() float64 {
				return float64(gateway.ActiveConnections())
			})
		obsServer.RegisterGaugeFunc("fiverow_queue_depth",
			"Connections waiting for a match", func() float64 {
				return float64(matchmaker.QueueDepth())
			})
		obsServer.RegisterGaugeFunc("fiverow_active_matches",
			"Matches currently in progress", func() float64 {
				return float64(registry.ActiveMatches())
			})

		metrics := obsServer.Metrics()
		authHandler.SetRecorder(func(operation, status string) {
			metrics.AuthRequestsTotal.WithLabelValues(operation, status).Inc()
		})
		registry.SetOnFinish(func(status game.Status) {
			metrics.MatchesTotal.WithLabelValues(string(status)).Inc()
		})

		obsErrCh, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			if err := obsServer.Stop(stopCtx); err != nil {
				slog.Warn("observability shutdown", "error", err)
			}
		}()
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if serveErr := httpSrv.Serve(listener); !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	slog.Info("server listening", "addr", listener.Addr().String())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		errutil.LogError(slog.Default(), "http server failed", err)
		cancel()
		return err
	case <-ctx.Done():
		slog.Info("shutting down", "reason", "context cancelled")
	}

	// Cancelling the context abandons live matches; their goroutines notify
	// survivors and release themselves before connections are torn down.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// sweepSessions purges dead session rows until ctx is cancelled.
func sweepSessions(ctx context.Context, svc *auth.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.SweepExpiredSessions(ctx)
			if err != nil {
				errutil.LogError(slog.Default(), "session sweep failed", err)
				continue
			}
			if n > 0 {
				slog.Info("swept expired sessions", "count", n)
			}
		}
	}
}

// monitorServerErrors cancels the process context when a background server
// fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string) {
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("background server failed", "server", name, "error", err)
			cancel()
		}
	}
}
