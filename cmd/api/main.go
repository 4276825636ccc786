package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/accounts/internal/app/migrate"
	httpx "github.com/splax/accounts/internal/http"
	"github.com/splax/accounts/internal/notify"
	"github.com/splax/accounts/internal/repository"
	"github.com/splax/accounts/internal/repository/postgres"
	"github.com/splax/accounts/internal/repository/sqlite"
	"github.com/splax/accounts/internal/service/auth"
	"github.com/splax/accounts/internal/service/profile"
	"github.com/splax/accounts/pkg/config"
	"github.com/splax/accounts/pkg/logger"
)

func main() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open account store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	sender, closeSender, err := notify.NewSender(ctx, cfg, log)
	if err != nil {
		log.Error("failed to configure mail sender", "driver", cfg.MailDriver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeSender(); err != nil {
			log.Warn("mail sender close failed", "error", err)
		}
	}()
	mailer := notify.NewDispatcher(sender, log, cfg.MailTimeout)

	authSvc := auth.New(repo, mailer, log, cfg)
	profileSvc := profile.New(repo, log)
	router := httpx.NewRouter(log, authSvc, profileSvc, cfg.CORSOrigins, repo.Ping)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", srv.Addr, "env", cfg.Environment, "mail_driver", cfg.MailDriver)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		mailer.Wait()
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

// openStore connects the account store named by DATABASE_URL. Postgres
// databases are migrated to the latest schema first.
func openStore(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (repository.AccountRepository, func(), error) {
	if path, ok := sqlite.PathFromURL(cfg.DatabaseURL); ok {
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using sqlite account store", "path", path)
		return store, func() { _ = store.Close() }, nil
	}

	runner, err := migrate.Open(ctx, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		return nil, nil, err
	}
	defer runner.Close()
	if err := runner.Ensure(ctx); err != nil {
		return nil, nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info("using postgres account store")
	return postgres.New(pool), pool.Close, nil
}
