package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/splax/accounts/internal/domain"
	"github.com/splax/accounts/internal/repository"
)

//go:embed schema.sql
var schema string

const accountColumns = `id, name, email, username, password_hash, otp, is_verified, about, skills, created_at, updated_at`

// Store implements account persistence over a single SQLite file.
type Store struct {
	db *sql.DB
}

var _ repository.AccountRepository = (*Store)(nil)

// Open opens the database at path and applies the embedded schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// PathFromURL extracts the file path from a sqlite:// database URL.
func PathFromURL(raw string) (string, bool) {
	path, ok := strings.CutPrefix(strings.TrimSpace(raw), "sqlite://")
	if !ok || path == "" {
		return "", false
	}
	return path, true
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateAccount inserts an account.
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	skills, err := encodeSkills(account.Skills)
	if err != nil {
		return err
	}
	const query = `INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		account.ID, account.Name, account.Email, account.Username, account.PasswordHash,
		nullString(account.OTP), account.IsVerified, account.About, skills,
		toMillis(account.CreatedAt), toMillis(account.UpdatedAt),
	)
	if err != nil {
		return mapWriteError("insert account", err)
	}
	return nil
}

// UpdateAccount overwrites the mutable columns of an account.
func (s *Store) UpdateAccount(ctx context.Context, account *domain.Account) error {
	skills, err := encodeSkills(account.Skills)
	if err != nil {
		return err
	}
	const query = `UPDATE accounts
		SET name = ?, email = ?, otp = ?, is_verified = ?, about = ?, skills = ?, updated_at = ?
		WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query,
		account.Name, account.Email, nullString(account.OTP), account.IsVerified,
		account.About, skills, toMillis(account.UpdatedAt), account.ID,
	)
	if err != nil {
		return mapWriteError("update account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetAccountByID retrieves an account by identifier.
func (s *Store) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	return s.getAccount(ctx, "id", id)
}

// GetAccountByEmail fetches an account by email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.getAccount(ctx, "email", email)
}

// GetAccountByUsername fetches an account by username.
func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.getAccount(ctx, "username", username)
}

// EmailTaken reports whether an account other than exceptID owns email.
func (s *Store) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = ? AND id <> ?)`, email, exceptID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

// UsernameTaken reports whether any account owns username.
func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = ?)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// getAccount looks an account up by one of the indexed columns. column is never user input.
func (s *Store) getAccount(ctx context.Context, column, value string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = ?`
	var (
		a                    domain.Account
		otp                  sql.NullString
		skills               string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, query, value).Scan(&a.ID, &a.Name, &a.Email, &a.Username,
		&a.PasswordHash, &otp, &a.IsVerified, &a.About, &skills, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	if otp.Valid {
		a.OTP = &otp.String
	}
	if err := json.Unmarshal([]byte(skills), &a.Skills); err != nil {
		return nil, fmt.Errorf("decode skills: %w", err)
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}

func mapWriteError(op string, err error) error {
	if isConstraintError(err) {
		return fmt.Errorf("%s: %v: %w", op, err, repository.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func encodeSkills(skills []string) (string, error) {
	if skills == nil {
		skills = []string{}
	}
	data, err := json.Marshal(skills)
	if err != nil {
		return "", fmt.Errorf("encode skills: %w", err)
	}
	return string(data), nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
