package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newAuthRecordingServer(t *testing.T) (*httptest.Server, *string) {
	t.Helper()
	var lastAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/scholarships", func(w http.ResponseWriter, r *http.Request) {
		lastAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"data": []Scholarship{}})
	})
	mux.HandleFunc("POST /api/auth/guest", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(guestCredential{
			GuestID:   "g1",
			Token:     "fresh-guest-token",
			ExpiresAt: time.Now().Add(24 * time.Hour),
		})
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"token":      "user-token",
			"expires_at": time.Now().Add(time.Hour),
			"user":       map[string]string{"id": "u1"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &lastAuth
}

func writeGuestFile(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guest.json")
	data, _ := json.Marshal(guestCredential{GuestID: "g1", Token: "stored-guest-token", ExpiresAt: expiresAt})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write guest file: %v", err)
	}
	return path
}

func TestGuestTokenTakesPrecedenceWhileUnexpired(t *testing.T) {
	srv, lastAuth := newAuthRecordingServer(t)
	path := writeGuestFile(t, time.Now().Add(time.Hour))

	c := New(Config{BaseURL: srv.URL, Token: "user-token", GuestTokenFile: path})
	if _, err := c.ListScholarships(context.Background(), 0, 0); err != nil {
		t.Fatalf("request: %v", err)
	}
	if *lastAuth != "Bearer stored-guest-token" {
		t.Fatalf("Authorization = %q, want the unexpired guest token", *lastAuth)
	}

	id, ok := c.Identity()
	if !ok || !id.IsGuest || id.ID != "g1" {
		t.Fatalf("identity = %+v (%v), want guest g1", id, ok)
	}
}

func TestExpiredGuestTokenFallsBackToUserToken(t *testing.T) {
	srv, lastAuth := newAuthRecordingServer(t)
	path := writeGuestFile(t, time.Now().Add(-time.Minute))

	c := New(Config{BaseURL: srv.URL, Token: "user-token", GuestTokenFile: path})
	if _, err := c.ListScholarships(context.Background(), 0, 0); err != nil {
		t.Fatalf("request: %v", err)
	}
	if *lastAuth != "Bearer user-token" {
		t.Fatalf("Authorization = %q, want the user token", *lastAuth)
	}
	if _, ok := c.Identity(); ok {
		t.Fatal("expired guest credential still produced an identity")
	}
}

func TestContinueAsGuestPersistsCredential(t *testing.T) {
	srv, _ := newAuthRecordingServer(t)
	path := filepath.Join(t.TempDir(), "guest.json")

	c := New(Config{BaseURL: srv.URL, GuestTokenFile: path})
	id, err := c.ContinueAsGuest(context.Background())
	if err != nil {
		t.Fatalf("ContinueAsGuest: %v", err)
	}
	if !id.IsGuest || id.ID != "g1" {
		t.Fatalf("identity = %+v, want guest g1", id)
	}

	cred, err := loadGuestCredential(path)
	if err != nil || cred == nil {
		t.Fatalf("credential not persisted: %v", err)
	}
	if cred.Token != "fresh-guest-token" {
		t.Fatalf("persisted token = %q", cred.Token)
	}

	// A second client picks the session up without a network call
	c2 := New(Config{BaseURL: srv.URL, GuestTokenFile: path})
	id2, ok := c2.Identity()
	if !ok || id2.ID != "g1" {
		t.Fatalf("second client identity = %+v (%v), want guest g1", id2, ok)
	}
}

func TestLoginDiscardsGuestSession(t *testing.T) {
	srv, lastAuth := newAuthRecordingServer(t)
	path := writeGuestFile(t, time.Now().Add(time.Hour))

	c := New(Config{BaseURL: srv.URL, GuestTokenFile: path})
	id, err := c.Login(context.Background(), "u1@test", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if id.IsGuest || id.ID != "u1" {
		t.Fatalf("identity = %+v, want user u1", id)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("guest credential file survived login")
	}

	if _, err := c.ListScholarships(context.Background(), 0, 0); err != nil {
		t.Fatalf("request: %v", err)
	}
	if *lastAuth != "Bearer user-token" {
		t.Fatalf("Authorization = %q, want the user token", *lastAuth)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	srv, lastAuth := newAuthRecordingServer(t)
	path := writeGuestFile(t, time.Now().Add(time.Hour))

	c := New(Config{BaseURL: srv.URL, GuestTokenFile: path})
	c.Logout()

	if _, ok := c.Identity(); ok {
		t.Fatal("identity survived logout")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("guest credential file survived logout")
	}

	if _, err := c.ListScholarships(context.Background(), 0, 0); err != nil {
		t.Fatalf("request: %v", err)
	}
	if *lastAuth != "" {
		t.Fatalf("Authorization after logout = %q, want none", *lastAuth)
	}
}
