package httpx

import (
	"context"
	"net/http"
	"strings"
)

// tokenHeader carries the session token on protected requests.
const tokenHeader = "x-auth-token"

type authContextKey string

type authInfo struct {
	UserID string
}

const contextKeyAuth authContextKey = "accounts-auth-info"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request has a valid session token before invoking the handler.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAuth validates the token header and enriches the context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, authInfo, bool) {
	token := strings.TrimSpace(req.Header.Get(tokenHeader))
	if token == "" {
		r.recordAuthOutcome("authorize", "missing_token")
		writeError(w, http.StatusUnauthorized, "No token, authorization denied")
		return req.Context(), authInfo{}, false
	}
	account, err := r.auth.Authorize(req.Context(), token)
	r.recordAuthOutcome("authorize", outcomeFor(err))
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			r.logger.Error("token validation failed", "error", err, "path", req.URL.Path)
		} else {
			r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		}
		writeError(w, status, msg)
		return req.Context(), authInfo{}, false
	}
	info := authInfo{UserID: account.ID}
	ctx := context.WithValue(req.Context(), contextKeyAuth, info)
	return ctx, info, true
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}
