package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/splax/accounts/internal/domain"
	"github.com/splax/accounts/internal/notify"
	"github.com/splax/accounts/internal/repository"
	"github.com/splax/accounts/pkg/config"
	"github.com/splax/accounts/pkg/crypto"
	jwtpkg "github.com/splax/accounts/pkg/jwt"
)

// Mailer queues outbound mail without waiting for delivery.
type Mailer interface {
	Dispatch(ctx context.Context, msg notify.Message)
}

// Service handles registration, verification and session workflows.
type Service struct {
	accounts repository.AccountRepository
	mailer   Mailer
	logger   *slog.Logger
	cfg      config.APIConfig
	now      func() time.Time
}

// New constructs a Service.
func New(accounts repository.AccountRepository, mailer Mailer, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{accounts: accounts, mailer: mailer, logger: logger, cfg: cfg, now: time.Now}
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Username string
	About    string
	Skills   []string
}

// Session is the result of a successful verification or login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *domain.Account
}

// Register creates an unverified account and mails it a verification code.
func (s Service) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Name == "" || in.Email == "" || in.Username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email, username and password are required", domain.ErrInvalidInput)
	}

	taken, err := s.accounts.EmailTaken(ctx, in.Email, "")
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, domain.ErrConflict
	}
	taken, err = s.accounts.UsernameTaken(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, domain.ErrConflict
	}

	hash, err := crypto.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	code, err := generateOTP()
	if err != nil {
		return nil, err
	}
	skills := make([]string, len(in.Skills))
	copy(skills, in.Skills)
	now := s.now().UTC()
	account := &domain.Account{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		OTP:          &code,
		About:        in.About,
		Skills:       skills,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.mailer.Dispatch(ctx, notify.OTPMessage(account.Email, code))
	s.logger.Info("account registered", "user_id", account.ID)
	return account, nil
}

// VerifyOTP confirms the pending code for email, marks the account verified
// and opens a session.
func (s Service) VerifyOTP(ctx context.Context, email, otp string) (Session, error) {
	account, err := s.lookupByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, domain.ErrNotFound
		}
		return Session{}, err
	}
	if !account.HasPendingOTP() || *account.OTP != otp {
		s.logger.Warn("otp verification failed", "user_id", account.ID)
		return Session{}, domain.ErrInvalidOTP
	}
	account.IsVerified = true
	account.OTP = nil
	account.UpdatedAt = s.now().UTC()
	if err := s.accounts.UpdateAccount(ctx, account); err != nil {
		return Session{}, fmt.Errorf("mark verified: %w", err)
	}
	session, err := s.issueSession(account)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("account verified", "user_id", account.ID)
	return session, nil
}

// ResendOTP replaces the pending code for email with a fresh one and mails it.
func (s Service) ResendOTP(ctx context.Context, email string) error {
	account, err := s.lookupByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	code, err := generateOTP()
	if err != nil {
		return err
	}
	account.OTP = &code
	account.UpdatedAt = s.now().UTC()
	if err := s.accounts.UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	s.mailer.Dispatch(ctx, notify.OTPMessage(account.Email, code))
	s.logger.Info("otp reissued", "user_id", account.ID)
	return nil
}

// Login checks credentials and opens a session for a verified account.
// Unknown email and wrong password are indistinguishable to the caller.
func (s Service) Login(ctx context.Context, email, password string) (Session, error) {
	account, err := s.lookupByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, domain.ErrInvalidCredential
		}
		return Session{}, err
	}
	if err := crypto.ComparePassword(account.PasswordHash, password); err != nil {
		s.logger.Warn("login rejected", "user_id", account.ID)
		return Session{}, domain.ErrInvalidCredential
	}
	if !account.IsVerified {
		return Session{}, domain.ErrUnverified
	}
	session, err := s.issueSession(account)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("user logged in", "user_id", account.ID)
	return session, nil
}

// Logout acknowledges the end of a session. Tokens are stateless so nothing is
// revoked; a parseable token only contributes its subject to the log.
func (s Service) Logout(_ context.Context, token string) {
	claims, err := jwtpkg.Parse(strings.TrimSpace(token), s.cfg.JWTSecret)
	if err != nil {
		s.logger.Info("user logged out")
		return
	}
	s.logger.Info("user logged out", "user_id", claims.UserID)
}

// Authorize validates a session token and returns the account it names.
func (s Service) Authorize(ctx context.Context, token string) (*domain.Account, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, domain.ErrUnauthenticated
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	account, err := s.accounts.GetAccountByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}

func (s Service) lookupByEmail(ctx context.Context, email string) (*domain.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, repository.ErrNotFound
	}
	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}

func (s Service) issueSession(account *domain.Account) (Session, error) {
	token, err := jwtpkg.GenerateToken(account.ID, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, ExpiresAt: s.now().Add(s.cfg.TokenTTL), Account: account}, nil
}
