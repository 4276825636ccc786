package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/splax/accounts/db"
)

const runTimeout = time.Minute

// Runner applies and rolls back schema migrations.
type Runner struct {
	db       *sql.DB
	provider *goose.Provider
	log      *slog.Logger
}

// Open connects to the Postgres database at dsn. Migrations are read from
// migrationsDir when it exists and from the embedded set otherwise.
func Open(ctx context.Context, dsn, migrationsDir string, log *slog.Logger) (*Runner, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("empty database dsn")
	}
	fsys, err := Source(migrationsDir)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sql connection: %w", err)
	}
	runner, err := New(conn, goose.DialectPostgres, fsys, log)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return runner, nil
}

// Source resolves the migration files: dir when it exists on disk, the
// embedded set when dir is empty or missing.
func Source(dir string) (fs.FS, error) {
	if dir = strings.TrimSpace(dir); dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir), nil
		}
	}
	sub, err := fs.Sub(db.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}
	return sub, nil
}

// New returns a migration runner over an open database.
func New(conn *sql.DB, dialect goose.Dialect, fsys fs.FS, log *slog.Logger) (*Runner, error) {
	if conn == nil {
		return nil, errors.New("nil database provided")
	}
	if fsys == nil {
		return nil, errors.New("nil migrations source")
	}
	if log == nil {
		log = slog.Default()
	}
	provider, err := goose.NewProvider(dialect, conn, fsys)
	if err != nil {
		return nil, fmt.Errorf("configure goose: %w", err)
	}
	return &Runner{db: conn, provider: provider, log: log}, nil
}

// Ensure applies pending migrations.
func (r *Runner) Ensure(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	r.log.Info("applying migrations")
	results, err := r.provider.Up(runCtx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		r.log.Info("migration applied", "version", res.Source.Version, "duration", res.Duration)
	}
	r.log.Info("migrations applied", "count", len(results))
	return nil
}

// Status reports applied and pending migrations.
func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	for _, st := range statuses {
		r.log.Info("migration status", "version", st.Source.Version, "path", st.Source.Path, "state", st.State)
	}
	return statuses, nil
}

// Down rolls back migrations either to the previous version or a specific target version.
func (r *Runner) Down(ctx context.Context, targetVersion int64) error {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	if targetVersion > 0 {
		r.log.Info("rolling back migrations", "target", targetVersion)
		if _, err := r.provider.DownTo(runCtx, targetVersion); err != nil {
			return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
		}
	} else {
		r.log.Info("rolling back latest migration")
		if _, err := r.provider.Down(runCtx); err != nil {
			return fmt.Errorf("rollback latest migration: %w", err)
		}
	}

	r.log.Info("rollback complete")
	return nil
}

// Version returns the current schema version.
func (r *Runner) Version(ctx context.Context) (int64, error) {
	return r.provider.GetDBVersion(ctx)
}

// Close releases underlying connections.
func (r *Runner) Close() error {
	return r.db.Close()
}
