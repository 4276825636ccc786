package repository

import (
	"context"

	"github.com/splax/accounts/internal/domain"
)

// AccountRepository persists accounts. Email and username are unique across
// all records; writes violating that return ErrConflict.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	UpdateAccount(ctx context.Context, account *domain.Account) error
	GetAccountByID(ctx context.Context, id string) (*domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error)
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	Ping(ctx context.Context) error
}
