package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/splax/accounts/internal/domain"
)

const maxBodyBytes = 1 << 20

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// statusFor maps a service error to its response status and message. Anything
// outside the domain taxonomy is an internal failure and leaks no detail.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidOTP):
		return http.StatusBadRequest, "Invalid OTP"
	case errors.Is(err, domain.ErrInvalidCredential):
		return http.StatusBadRequest, "Invalid Credentials"
	case errors.Is(err, domain.ErrUnverified):
		return http.StatusBadRequest, "Email is not verified. Please verify your email."
	case errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest, "User already exists"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "Token is not valid"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

// outcomeFor labels an auth result for metrics.
func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrInvalidOTP):
		return "invalid_otp"
	case errors.Is(err, domain.ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, domain.ErrUnverified):
		return "unverified"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "error"
	}
}
