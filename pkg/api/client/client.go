package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenHeader is the request header carrying the session token.
const TokenHeader = "x-auth-token"

// DefaultBaseURL is used when no API address is configured.
const DefaultBaseURL = "http://localhost:5000"

// Client provides typed access to the accounts API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	About    string   `json:"about,omitempty"`
	Skills   []string `json:"skills,omitempty"`
}

// Profile mirrors the account view returned by the API.
type Profile struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Username   string   `json:"username"`
	IsVerified bool     `json:"isVerified"`
	About      string   `json:"about"`
	Skills     []string `json:"skills"`
}

// ProfileUpdate lists the fields to change. Nil fields are left untouched; a
// pointer to an empty value clears the field.
type ProfileUpdate struct {
	Name   *string   `json:"name,omitempty"`
	Email  *string   `json:"email,omitempty"`
	About  *string   `json:"about,omitempty"`
	Skills *[]string `json:"skills,omitempty"`
}

type messageResponse struct {
	Msg string `json:"msg"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Register creates an account and returns the server acknowledgement.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var resp messageResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, "", &resp); err != nil {
		return "", err
	}
	return resp.Msg, nil
}

// VerifyOTP confirms the emailed code and returns a session token.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	var resp tokenResponse
	body := map[string]string{"email": email, "otp": otp}
	if err := c.do(ctx, http.MethodPost, "/auth/verify-otp", body, "", &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// ResendOTP asks the server to email a fresh verification code.
func (c *Client) ResendOTP(ctx context.Context, email string) (string, error) {
	var resp messageResponse
	if err := c.do(ctx, http.MethodPost, "/auth/resend-otp", map[string]string{"email": email}, "", &resp); err != nil {
		return "", err
	}
	return resp.Msg, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, "", &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Logout notifies the server that the session ended.
func (c *Client) Logout(ctx context.Context, token string) (string, error) {
	var resp messageResponse
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, token, &resp); err != nil {
		return "", err
	}
	return resp.Msg, nil
}

// GetProfile fetches the profile of the token's account.
func (c *Client) GetProfile(ctx context.Context, token string) (Profile, error) {
	var profile Profile
	if err := c.do(ctx, http.MethodGet, "/user/profile", nil, token, &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// UpdateProfile applies update to the token's account.
func (c *Client) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (Profile, error) {
	var profile Profile
	if err := c.do(ctx, http.MethodPut, "/user/profile", update, token, &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set(TokenHeader, strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload messageResponse
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Msg)
}
