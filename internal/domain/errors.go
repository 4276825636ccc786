package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConflict          = errors.New("account already exists")
	ErrNotFound          = errors.New("account not found")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrInvalidOTP        = fmt.Errorf("%w: otp mismatch", ErrInvalidCredential)
	ErrUnverified        = errors.New("email is not verified")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrInvalidInput      = errors.New("invalid input")
)
