package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/splax/accounts/internal/domain"
	"github.com/splax/accounts/internal/service/auth"
	"github.com/splax/accounts/internal/service/profile"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	handler  http.Handler
	logger   *slog.Logger
	auth     auth.Service
	profile  profile.Service
	dbHealth func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	authOutcomes       *prometheus.CounterVec
}

const healthCheckTimeout = 2 * time.Second

// routePrefixes lists the mount points of the account routes. The /api prefix
// serves clients that address the service behind that path.
var routePrefixes = []string{"", "/api"}

// NewRouter assembles routes with dependencies. corsOrigins lists the browser
// origins allowed to call the API; "*" admits any origin.
func NewRouter(logger *slog.Logger, authSvc auth.Service, profileSvc profile.Service, corsOrigins []string, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		auth:     authSvc,
		profile:  profileSvc,
		dbHealth: dbHealth,
	}
	r.initMetrics()
	r.register()
	r.handler = cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Content-Type", tokenHeader},
	}).Handler(r.mux)
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	for _, prefix := range routePrefixes {
		r.mux.HandleFunc(prefix+"/auth/register", r.audit(r.handleRegister))
		r.mux.HandleFunc(prefix+"/auth/verify-otp", r.audit(r.handleVerifyOTP))
		r.mux.HandleFunc(prefix+"/auth/resend-otp", r.audit(r.handleResendOTP))
		r.mux.HandleFunc(prefix+"/auth/login", r.audit(r.handleLogin))
		r.mux.HandleFunc(prefix+"/auth/logout", r.audit(r.handleLogout))
		r.mux.HandleFunc(prefix+"/user/profile", r.audit(r.requireAuth(r.handleProfile)))
	}
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Username string   `json:"username"`
		Name     string   `json:"name"`
		Email    string   `json:"email"`
		Password string   `json:"password"`
		About    string   `json:"about"`
		Skills   []string `json:"skills"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	_, err := r.auth.Register(req.Context(), auth.RegisterInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Username: payload.Username,
		About:    payload.About,
		Skills:   payload.Skills,
	})
	r.recordAuthOutcome("register", outcomeFor(err))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"msg": "User registered. Please check your email for the OTP."})
}

func (r *Router) handleVerifyOTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	session, err := r.auth.VerifyOTP(req.Context(), payload.Email, payload.OTP)
	r.recordAuthOutcome("verify_otp", outcomeFor(err))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "User not found")
			return
		}
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": session.Token})
}

func (r *Router) handleResendOTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	err := r.auth.ResendOTP(req.Context(), payload.Email)
	r.recordAuthOutcome("resend_otp", outcomeFor(err))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "User not found")
			return
		}
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"msg": "A new OTP has been sent to your email."})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	session, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	r.recordAuthOutcome("login", outcomeFor(err))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": session.Token})
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	r.auth.Logout(req.Context(), req.Header.Get(tokenHeader))
	r.recordAuthOutcome("logout", "ok")
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Logged out successfully"})
}

func (r *Router) handleProfile(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for profile", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	switch req.Method {
	case http.MethodGet:
		view, err := r.profile.GetProfile(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodPut:
		var patch domain.ProfilePatch
		if !decodeJSON(w, req, &patch) {
			return
		}
		view, err := r.profile.UpdateProfile(req.Context(), info.UserID, patch)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				writeError(w, http.StatusBadRequest, "Email already in use")
				return
			}
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// writeServiceError maps err onto the response. Internal failures are logged
// with detail and reported generically.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		r.logger.Error("request failed", "path", req.URL.Path, "error", err)
	}
	writeError(w, status, msg)
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, req.Pattern, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
