package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/splax/accounts/internal/domain"
	"github.com/splax/accounts/internal/repository"
)

const uniqueViolation = "23505"

const accountColumns = `id, name, email, username, password_hash, otp, is_verified, about, skills, created_at, updated_at`

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	db DB
}

// New constructs a Repository.
func New(db DB) *Repository {
	return &Repository{db: db}
}

var _ repository.AccountRepository = (*Repository)(nil)

// CreateAccount inserts an account.
func (r *Repository) CreateAccount(ctx context.Context, account *domain.Account) error {
	const query = `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query,
		account.ID, account.Name, account.Email, account.Username, account.PasswordHash,
		account.OTP, account.IsVerified, account.About, nonNilSkills(account.Skills),
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("insert account", err)
	}
	return nil
}

// UpdateAccount overwrites the mutable columns of an account. Username and
// password hash are never rewritten.
func (r *Repository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	const query = `UPDATE accounts
		SET name = $2, email = $3, otp = $4, is_verified = $5, about = $6, skills = $7, updated_at = $8
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query,
		account.ID, account.Name, account.Email, account.OTP, account.IsVerified,
		account.About, nonNilSkills(account.Skills), account.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("update account", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetAccountByID retrieves an account by identifier.
func (r *Repository) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// GetAccountByEmail fetches an account by email.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.db.QueryRow(ctx, query, email))
}

// GetAccountByUsername fetches an account by username.
func (r *Repository) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return scanAccount(r.db.QueryRow(ctx, query, username))
}

// EmailTaken reports whether an account other than exceptID owns email.
func (r *Repository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1 AND id <> $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, email, exceptID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

// UsernameTaken reports whether any account owns username.
func (r *Repository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Username, &a.PasswordHash, &a.OTP,
		&a.IsVerified, &a.About, &a.Skills, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, repository.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nonNilSkills(skills []string) []string {
	if skills == nil {
		return []string{}
	}
	return skills
}
