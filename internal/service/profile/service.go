package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/splax/accounts/internal/domain"
	"github.com/splax/accounts/internal/repository"
)

// Service reads and edits the profile of an authenticated account.
type Service struct {
	accounts repository.AccountRepository
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a Service.
func New(accounts repository.AccountRepository, logger *slog.Logger) Service {
	return Service{accounts: accounts, logger: logger, now: time.Now}
}

// GetProfile returns the outward view of an account.
func (s Service) GetProfile(ctx context.Context, accountID string) (domain.AccountView, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return domain.AccountView{}, err
	}
	return account.View(), nil
}

// UpdateProfile applies patch to the account and returns the stored result.
func (s Service) UpdateProfile(ctx context.Context, accountID string, patch domain.ProfilePatch) (domain.AccountView, error) {
	if patch.Name.Set {
		patch.Name.Value = strings.TrimSpace(patch.Name.Value)
		if patch.Name.Value == "" {
			return domain.AccountView{}, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
		}
	}
	if patch.Email.Set {
		patch.Email.Value = strings.TrimSpace(patch.Email.Value)
		if patch.Email.Value == "" {
			return domain.AccountView{}, fmt.Errorf("%w: email cannot be empty", domain.ErrInvalidInput)
		}
	}

	account, err := s.load(ctx, accountID)
	if err != nil {
		return domain.AccountView{}, err
	}
	if patch.Empty() {
		return account.View(), nil
	}

	if patch.Email.Set && patch.Email.Value != account.Email {
		taken, err := s.accounts.EmailTaken(ctx, patch.Email.Value, account.ID)
		if err != nil {
			return domain.AccountView{}, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return domain.AccountView{}, domain.ErrConflict
		}
	}

	patch.Apply(account)
	account.UpdatedAt = s.now().UTC()
	if err := s.accounts.UpdateAccount(ctx, account); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return domain.AccountView{}, domain.ErrConflict
		case errors.Is(err, repository.ErrNotFound):
			return domain.AccountView{}, domain.ErrNotFound
		}
		return domain.AccountView{}, fmt.Errorf("update account: %w", err)
	}
	s.logger.Info("profile updated", "user_id", account.ID)

	return s.GetProfile(ctx, account.ID)
}

func (s Service) load(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}
