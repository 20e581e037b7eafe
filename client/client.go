// Package client provides a Go client for the ScholarHub API. It covers
// authentication (registered users and time-boxed guest sessions), the
// realtime notification channel with automatic reconnect, a notification
// store with optimistic read state, and the admin conversation console.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultReconnectDelay = 3 * time.Second
	defaultPollInterval   = 5 * time.Minute
)

// Config holds connection parameters.
type Config struct {
	BaseURL        string        // REST base URL (e.g. "http://localhost:8080")
	Token          string        // pre-issued user JWT (optional; Login overrides it)
	GuestTokenFile string        // where the guest credential is persisted (optional)
	ReconnectDelay time.Duration // delay between websocket reconnect attempts (default 3s)
	PollInterval   time.Duration // notification fallback poll interval (default 5m)
	Logger         *slog.Logger  // defaults to slog.Default()
}

// Client talks to the ScholarHub backend. All realtime and store components
// are constructed from it and share its credentials.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger

	mu        sync.RWMutex
	identity  *Identity
	userToken string
	guest     *guestCredential
}

// New builds a Client. If a persisted guest credential exists and has not
// expired, it is loaded and used as the active identity.
func New(cfg Config) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        cfg.Logger,
		userToken:  cfg.Token,
	}

	if cred, err := loadGuestCredential(cfg.GuestTokenFile); err == nil && cred != nil {
		c.guest = cred
		c.identity = &Identity{ID: cred.GuestID, IsGuest: true}
	}

	return c
}

// bearerToken picks the credential for outgoing requests. An unexpired
// guest credential takes precedence over a user token.
func (c *Client) bearerToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.guest != nil && time.Now().Before(c.guest.ExpiresAt) {
		return c.guest.Token
	}
	return c.userToken
}

func (c *Client) apiRequest(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if token := c.bearerToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// wsURL builds the realtime channel URL for a user's notification topic.
// The websocket scheme mirrors the REST scheme (wss iff https).
func (c *Client) wsURL(userID string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/realtime/ws/updates/user." + userID + ".notifications"
	u.RawQuery = "token=" + url.QueryEscape(c.bearerToken())
	return u.String(), nil
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Body)
}
