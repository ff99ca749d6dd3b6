// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/taskhive/taskhive/internal/auth"
	authpg "github.com/taskhive/taskhive/internal/auth/postgres"
	authredis "github.com/taskhive/taskhive/internal/auth/redis"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/logging"
	"github.com/taskhive/taskhive/internal/mail"
	"github.com/taskhive/taskhive/internal/notify"
	"github.com/taskhive/taskhive/internal/observability"
	"github.com/taskhive/taskhive/internal/store"
)

// application bundles the wired services handed to the transport layer.
type application struct {
	db        *store.Postgres
	sessions  *authredis.Store
	auth      *auth.Service
	reset     *auth.PasswordResetService
	reminders *notify.ReminderGuard
}

// ready reports whether both backing stores are reachable, for the
// readiness probe.
func (a *application) ready(ctx context.Context) bool {
	return a.sessions.Connected() && a.db.Ping(ctx) == nil
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth and session service",
		Long: `Start the Taskhive auth service: connects PostgreSQL and Redis,
wires the auth and password-reset services, and serves metrics and
health probes until interrupted.`,
		RunE: runServe,
	}

	// Flags mirror config keys; posflag merges them over the file.
	cmd.Flags().String("metrics.addr", "", "metrics/health HTTP address")
	cmd.Flags().String("log.format", "", "log format (json or text)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("taskhive", version, cfg.Log.Format)
	slog.Info("starting taskhive",
		"metrics_addr", cfg.Metrics.Addr,
		"log_format", cfg.Log.Format,
	)

	db, err := store.NewPostgres(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("connected to database")

	sessions, err := authredis.NewStore(cfg.Redis.URL, slog.Default())
	if err != nil {
		return err
	}
	if err := sessions.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if closeErr := sessions.Close(); closeErr != nil {
			slog.Warn("error closing session store", "error", closeErr)
		}
	}()
	slog.Info("connected to session store")

	app, err := buildApplication(cfg, db, sessions)
	if err != nil {
		return err
	}

	// Graceful shutdown on signal or server failure.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obsServer := observability.NewServer(cfg.Metrics.Addr, func() bool {
		probeCtx, probeCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer probeCancel()
		return app.ready(probeCtx)
	})
	obsErrCh, err := obsServer.Start()
	if err != nil {
		return err
	}
	go func() {
		if serveErr, ok := <-obsErrCh; ok && serveErr != nil {
			slog.Error("observability server failed", "error", serveErr)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Taskhive started")
	slog.Info("taskhive ready", "metrics_addr", obsServer.Addr())

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := obsServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// buildApplication wires the repositories and services from connected
// stores.
func buildApplication(cfg *config.Config, db *store.Postgres, sessions *authredis.Store) (*application, error) {
	users := authpg.NewUserRepository(db.Pool())
	hasher := auth.NewBcryptHasher()

	tokens, err := auth.NewTokenService(cfg.Auth.TokenSecret)
	if err != nil {
		return nil, err
	}

	authSvc, err := auth.NewAuthService(users, sessions, hasher, tokens)
	if err != nil {
		return nil, oops.With("component", "auth service").Wrap(err)
	}

	resetSvc, err := auth.NewPasswordResetService(
		users, sessions, hasher, tokens,
		auth.NewOtpGenerator(), mail.NewLogSender(slog.Default()), slog.Default())
	if err != nil {
		return nil, oops.With("component", "password reset service").Wrap(err)
	}

	reminders, err := notify.NewReminderGuard(sessions, slog.Default())
	if err != nil {
		return nil, oops.With("component", "reminder guard").Wrap(err)
	}

	return &application{
		db:        db,
		sessions:  sessions,
		auth:      authSvc,
		reset:     resetSvc,
		reminders: reminders,
	}, nil
}
