package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type notifBackend struct {
	list          []Notification
	markReadCalls atomic.Int64
	markAllCalls  atomic.Int64
	failMarkRead  bool
}

func (b *notifBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/notifications", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": b.list})
	})
	mux.HandleFunc("PUT /api/notifications/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		b.markReadCalls.Add(1)
		if b.failMarkRead {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "marked as read"})
	})
	mux.HandleFunc("PUT /api/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		b.markAllCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})
	return mux
}

func newTestStore(t *testing.T, backend *notifBackend) *NotificationStore {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)
	c := New(Config{BaseURL: srv.URL, Token: "test-token"})
	return c.NewNotificationStore()
}

// checkUnreadInvariant asserts unreadCount == count(isRead == false).
func checkUnreadInvariant(t *testing.T, s *NotificationStore) {
	t.Helper()
	want := 0
	for _, n := range s.Notifications() {
		if !n.IsRead {
			want++
		}
	}
	if got := s.UnreadCount(); got != want {
		t.Fatalf("unread count = %d, want %d (list of %d)", got, want, len(s.Notifications()))
	}
}

func notif(id string, read bool) Notification {
	now := time.Now().UTC()
	return Notification{ID: id, Type: TypeSystemAlert, Title: "t " + id, IsRead: read, CreatedAt: &now}
}

func TestLoadInitialThenPushesNeverDuplicate(t *testing.T) {
	backend := &notifBackend{list: []Notification{notif("a", false), notif("b", true)}}
	s := newTestStore(t, backend)

	if err := s.LoadInitial(context.Background()); err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}
	checkUnreadInvariant(t, s)

	s.OnPush(notif("c", false))
	s.OnPush(notif("a", false)) // already present from the snapshot
	s.OnPush(notif("c", false)) // duplicate push
	s.OnPush(notif("d", false))

	items := s.Notifications()
	seen := map[string]bool{}
	for _, n := range items {
		if seen[n.ID] {
			t.Fatalf("duplicate notification id %q in list", n.ID)
		}
		seen[n.ID] = true
	}
	if len(items) != 4 {
		t.Fatalf("list length = %d, want 4", len(items))
	}
	checkUnreadInvariant(t, s)
}

func TestPushPrependsNewestFirst(t *testing.T) {
	s := newTestStore(t, &notifBackend{})

	s.OnPush(notif("first", false))
	s.OnPush(notif("second", false))

	items := s.Notifications()
	if items[0].ID != "second" || items[1].ID != "first" {
		t.Fatalf("order = [%s %s], want [second first]", items[0].ID, items[1].ID)
	}
}

func TestDuplicatePushKeepsCount(t *testing.T) {
	s := newTestStore(t, &notifBackend{})

	s.OnPush(notif("n1", false))
	if got := s.UnreadCount(); got != 1 {
		t.Fatalf("unread after first push = %d, want 1", got)
	}

	s.OnPush(notif("n1", false))
	if got := len(s.Notifications()); got != 1 {
		t.Fatalf("list length after duplicate = %d, want 1", got)
	}
	if got := s.UnreadCount(); got != 1 {
		t.Fatalf("unread after duplicate = %d, want 1", got)
	}
}

func TestMarkAsReadIsIdempotentAndNonNegative(t *testing.T) {
	backend := &notifBackend{list: []Notification{notif("a", false), notif("b", true)}}
	s := newTestStore(t, backend)

	if err := s.LoadInitial(context.Background()); err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}
	if got := s.UnreadCount(); got != 1 {
		t.Fatalf("unread = %d, want 1", got)
	}

	s.MarkAsRead(context.Background(), "a")
	if got := s.UnreadCount(); got != 0 {
		t.Fatalf("unread after markAsRead = %d, want 0", got)
	}
	if n := s.Notifications()[0]; n.ID == "a" && !n.IsRead {
		t.Fatal("entry a still unread after markAsRead")
	}

	// Second call on the same id, plus one on an already-read entry
	s.MarkAsRead(context.Background(), "a")
	s.MarkAsRead(context.Background(), "b")
	if got := s.UnreadCount(); got != 0 {
		t.Fatalf("unread after repeated markAsRead = %d, want 0 (never negative)", got)
	}
	if got := backend.markReadCalls.Load(); got != 1 {
		t.Fatalf("markRead REST calls = %d, want 1 (no-ops must not hit the network)", got)
	}
	checkUnreadInvariant(t, s)
}

func TestMarkAsReadKeepsOptimisticStateOnFailure(t *testing.T) {
	backend := &notifBackend{list: []Notification{notif("a", false)}, failMarkRead: true}
	s := newTestStore(t, backend)

	if err := s.LoadInitial(context.Background()); err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}
	s.MarkAsRead(context.Background(), "a")

	// Read receipts are best-effort; the optimistic flip stays
	if got := s.UnreadCount(); got != 0 {
		t.Fatalf("unread = %d, want 0 despite sync failure", got)
	}
	if !s.Notifications()[0].IsRead {
		t.Fatal("entry rolled back after sync failure")
	}
}

func TestMarkAllAsRead(t *testing.T) {
	backend := &notifBackend{list: []Notification{notif("a", false), notif("b", false), notif("c", true)}}
	s := newTestStore(t, backend)

	// No-op before anything is loaded
	s.MarkAllAsRead(context.Background())
	if got := backend.markAllCalls.Load(); got != 0 {
		t.Fatalf("bulk calls with zero unread = %d, want 0", got)
	}

	if err := s.LoadInitial(context.Background()); err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}
	s.MarkAllAsRead(context.Background())

	if got := s.UnreadCount(); got != 0 {
		t.Fatalf("unread = %d, want 0", got)
	}
	for _, n := range s.Notifications() {
		if !n.IsRead {
			t.Fatalf("entry %s still unread", n.ID)
		}
	}
	if got := backend.markAllCalls.Load(); got != 1 {
		t.Fatalf("bulk calls = %d, want exactly 1", got)
	}

	// Now a no-op again
	s.MarkAllAsRead(context.Background())
	if got := backend.markAllCalls.Load(); got != 1 {
		t.Fatalf("bulk calls after no-op = %d, want 1", got)
	}
}

func TestTimestampNormalization(t *testing.T) {
	s := newTestStore(t, &notifBackend{})

	before := time.Now()
	s.OnPush(Notification{ID: "x", Type: TypeSystemAlert}) // no created_at
	after := time.Now()

	got := s.Notifications()[0].Timestamp()
	if got.Before(before) || got.After(after) {
		t.Fatalf("timestamp %v outside receipt window [%v, %v]", got, before, after)
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.OnPush(Notification{ID: "y", Type: TypeSystemAlert, CreatedAt: &at})
	if got := s.Notifications()[0].Timestamp(); !got.Equal(at) {
		t.Fatalf("timestamp = %v, want created_at %v", got, at)
	}
}

func TestRefetchReplacesState(t *testing.T) {
	backend := &notifBackend{list: []Notification{notif("a", false)}}
	s := newTestStore(t, backend)

	if err := s.LoadInitial(context.Background()); err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}
	s.OnPush(notif("pushed", false))

	backend.list = []Notification{notif("a", true), notif("b", false)}
	if err := s.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch: %v", err)
	}

	items := s.Notifications()
	if len(items) != 2 {
		t.Fatalf("list length = %d, want 2 (refetch replaces)", len(items))
	}
	if got := s.UnreadCount(); got != 1 {
		t.Fatalf("unread = %d, want 1", got)
	}
	checkUnreadInvariant(t, s)
}
