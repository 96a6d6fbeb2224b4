package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/synclist/internal/client/models"
	"github.com/dmitrijs2005/synclist/internal/common"
)

const requestTimeout = 30 * time.Second

// HTTPClient implements Client against the SyncList REST API.
type HTTPClient struct {
	baseURL     string
	httpClient  *http.Client
	userAgent   string
	devIdentity string
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient substitutes the underlying http.Client (tests, custom TLS).
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.httpClient = c }
}

// WithDevIdentity makes every request carry the development identity header
// instead of relying on bearer tokens. Only honored by dev-mode servers.
func WithDevIdentity(identity string) Option {
	return func(h *HTTPClient) { h.devIdentity = identity }
}

// NewHTTPClient constructs an API client for the given base URL,
// e.g. "http://localhost:8080".
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	h := &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		userAgent:  "synclist-client/1.0",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTPClient) RequestDeviceCode(ctx context.Context, deviceName string) (*DeviceCodeGrant, error) {
	body := map[string]string{"deviceName": deviceName}

	var grant DeviceCodeGrant
	if err := h.doJSON(ctx, http.MethodPost, "/auth/device-code", "", body, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

func (h *HTTPClient) ExchangeDeviceCode(ctx context.Context, deviceCode string) (*TokenPair, error) {
	body := map[string]string{"deviceCode": deviceCode}

	resp, err := h.do(ctx, http.MethodPost, "/auth/token", "", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var pair TokenPair
		if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
			return nil, fmt.Errorf("decoding token response: %w", err)
		}
		return &pair, nil
	}

	// The grant endpoint reports protocol state through {error: CODE}.
	var protoErr struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&protoErr); err != nil || protoErr.Error == "" {
		return nil, fmt.Errorf("token exchange failed: status %d", resp.StatusCode)
	}
	return nil, MapDeviceCodeError(protoErr.Error)
}

func (h *HTTPClient) VerifyMagicLink(ctx context.Context, token string) (*MagicLinkResult, error) {
	body := map[string]string{"token": token}

	var result MagicLinkResult
	if err := h.doJSON(ctx, http.MethodPost, "/auth/verify-magic-link", "", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refreshToken": refreshToken}

	resp, err := h.do(ctx, http.MethodPost, "/auth/refresh", "", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var pair TokenPair
		if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
			return nil, fmt.Errorf("decoding refresh response: %w", err)
		}
		return &pair, nil
	case http.StatusBadRequest, http.StatusUnauthorized:
		// The refresh token is known-bad; the caller must discard it.
		return nil, ErrInvalidGrant
	default:
		return nil, fmt.Errorf("refresh failed: status %d", resp.StatusCode)
	}
}

func (h *HTTPClient) Me(ctx context.Context, accessToken string) (*models.User, error) {
	var user models.User
	if err := h.doJSON(ctx, http.MethodGet, "/auth/me", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (h *HTTPClient) Push(ctx context.Context, accessToken, workspaceID string, todos []models.Task, lastSyncAt int64) error {
	body := map[string]any{
		"workspaceId": workspaceID,
		"todos":       todos,
		"lastSyncAt":  lastSyncAt,
	}
	return h.doJSON(ctx, http.MethodPost, "/sync", accessToken, body, nil)
}

func (h *HTTPClient) Pull(ctx context.Context, accessToken, workspaceID string) (*PullResult, error) {
	path := "/sync?workspaceId=" + url.QueryEscape(workspaceID)

	var result PullResult
	if err := h.doJSON(ctx, http.MethodGet, path, accessToken, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *HTTPClient) MigrateUnassigned(ctx context.Context, accessToken, workspaceID string) error {
	body := map[string]string{"workspaceId": workspaceID}
	return h.doJSON(ctx, http.MethodPost, "/sync/migrate", accessToken, body, nil)
}

// do performs a request with JSON encoding and auth headers, returning the
// raw response. Transport failures are wrapped in ErrUnavailable.
func (h *HTTPClient) do(ctx context.Context, method, path, accessToken string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.devIdentity != "" {
		req.Header.Set(common.DevIdentityHeader, h.devIdentity)
	} else if accessToken != "" {
		req.Header.Set(common.AuthorizationHeader, "Bearer "+accessToken)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// doJSON performs a request and decodes a 2xx JSON response into out
// (out may be nil when the body does not matter). 401 maps to
// ErrUnauthorized, anything else non-2xx to a status error.
func (h *HTTPClient) doJSON(ctx context.Context, method, path, accessToken string, body, out any) error {
	resp, err := h.do(ctx, method, path, accessToken, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
