package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"
)

// Identity is the principal the client acts as. Guest identities are
// excluded from realtime notification delivery and protected actions.
type Identity struct {
	ID      string
	IsGuest bool
}

type guestCredential struct {
	GuestID   string    `json:"guest_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type authResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	} `json:"user"`
}

// Identity returns the current identity, if any.
func (c *Client) Identity() (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return Identity{}, false
	}
	return *c.identity, true
}

// Login authenticates with email and password. Any guest session is
// discarded, including its persisted credential.
func (c *Client) Login(ctx context.Context, email, password string) (Identity, error) {
	body, err := c.apiRequest(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return Identity{}, err
	}

	var res authResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return Identity{}, err
	}

	c.mu.Lock()
	c.userToken = res.Token
	c.guest = nil
	c.identity = &Identity{ID: res.User.ID}
	c.mu.Unlock()

	c.removeGuestCredential()
	return Identity{ID: res.User.ID}, nil
}

// Register creates an account and logs in as it.
func (c *Client) Register(ctx context.Context, username, email, password string) (Identity, error) {
	body, err := c.apiRequest(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return Identity{}, err
	}

	var res authResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return Identity{}, err
	}

	c.mu.Lock()
	c.userToken = res.Token
	c.guest = nil
	c.identity = &Identity{ID: res.User.ID}
	c.mu.Unlock()

	c.removeGuestCredential()
	return Identity{ID: res.User.ID}, nil
}

// ContinueAsGuest reuses the persisted guest credential if it has not
// expired, otherwise requests a fresh one and persists it.
func (c *Client) ContinueAsGuest(ctx context.Context) (Identity, error) {
	if cred, err := loadGuestCredential(c.cfg.GuestTokenFile); err == nil && cred != nil {
		c.mu.Lock()
		c.guest = cred
		c.identity = &Identity{ID: cred.GuestID, IsGuest: true}
		c.mu.Unlock()
		return Identity{ID: cred.GuestID, IsGuest: true}, nil
	}

	body, err := c.apiRequest(ctx, http.MethodPost, "/api/auth/guest", nil)
	if err != nil {
		return Identity{}, err
	}

	var cred guestCredential
	if err := json.Unmarshal(body, &cred); err != nil {
		return Identity{}, err
	}

	c.mu.Lock()
	c.guest = &cred
	c.identity = &Identity{ID: cred.GuestID, IsGuest: true}
	c.mu.Unlock()

	if c.cfg.GuestTokenFile != "" {
		if err := saveGuestCredential(c.cfg.GuestTokenFile, &cred); err != nil {
			c.log.Warn("failed to persist guest credential", "error", err)
		}
	}

	return Identity{ID: cred.GuestID, IsGuest: true}, nil
}

// Logout clears the current identity and all credentials.
func (c *Client) Logout() {
	c.mu.Lock()
	c.identity = nil
	c.userToken = ""
	c.guest = nil
	c.mu.Unlock()

	c.removeGuestCredential()
}

func (c *Client) removeGuestCredential() {
	if c.cfg.GuestTokenFile == "" {
		return
	}
	if err := os.Remove(c.cfg.GuestTokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.log.Warn("failed to remove guest credential", "error", err)
	}
}

// loadGuestCredential reads a persisted guest credential. Expired or
// unreadable credentials are treated as absent.
func loadGuestCredential(path string) (*guestCredential, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cred guestCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}
	if cred.Token == "" || !time.Now().Before(cred.ExpiresAt) {
		return nil, nil
	}
	return &cred, nil
}

func saveGuestCredential(path string, cred *guestCredential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
