package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Notification is one entry in a user's notification feed.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	IsRead    bool           `json:"is_read"`
	Link      string         `json:"link,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`

	receivedAt time.Time
}

// Notification type values as delivered by the backend.
const (
	TypeDeadlineWarning   = "DEADLINE_WARNING"
	TypeDeadlineMissed    = "DEADLINE_MISSED"
	TypeApplicationAdded  = "APPLICATION_ADDED"
	TypeApplicationStatus = "APPLICATION_STATUS"
	TypeScholarshipMatch  = "SCHOLARSHIP_MATCH"
	TypeSystemAlert       = "SYSTEM_ALERT"
)

// Timestamp normalizes the notification time regardless of source. Pushes
// without a created_at fall back to the time they were received.
func (n Notification) Timestamp() time.Time {
	if n.CreatedAt != nil {
		return *n.CreatedAt
	}
	if !n.receivedAt.IsZero() {
		return n.receivedAt
	}
	return time.Now()
}

// NotificationStore merges the initial REST snapshot with the live push
// stream into one newest-first, de-duplicated list, and tracks the unread
// counter through optimistic read-state mutations.
type NotificationStore struct {
	client *Client

	mu       sync.Mutex
	items    []Notification
	unread   int
	pollStop chan struct{}
}

// NewNotificationStore builds an empty store. Feed it with LoadInitial and
// wire its OnPush into a Channel.
func (c *Client) NewNotificationStore() *NotificationStore {
	return &NotificationStore{client: c}
}

// LoadInitial replaces the store contents with the backend's current list.
// Safe to call repeatedly; it backs both the fallback poll and Refetch.
func (s *NotificationStore) LoadInitial(ctx context.Context) error {
	body, err := s.client.apiRequest(ctx, http.MethodGet, "/api/notifications", nil)
	if err != nil {
		return err
	}

	var resp struct {
		Data []Notification `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}

	now := time.Now()
	unread := 0
	for i := range resp.Data {
		if resp.Data[i].CreatedAt == nil {
			resp.Data[i].receivedAt = now
		}
		if !resp.Data[i].IsRead {
			unread++
		}
	}

	s.mu.Lock()
	s.items = resp.Data
	s.unread = unread
	s.mu.Unlock()
	return nil
}

// Refetch is a manual LoadInitial.
func (s *NotificationStore) Refetch(ctx context.Context) error {
	return s.LoadInitial(ctx)
}

// OnPush merges one pushed notification, synchronously. A known id is
// discarded; a new one is prepended regardless of its created_at.
func (s *NotificationStore) OnPush(n Notification) {
	if n.ID == "" {
		return
	}
	if n.CreatedAt == nil {
		n.receivedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == n.ID {
			return
		}
	}

	s.items = append([]Notification{n}, s.items...)
	if !n.IsRead {
		s.unread++
	}
}

// MarkAsRead flips one entry to read optimistically, then tells the
// backend. A failed call is logged and not rolled back; read receipts are
// best-effort.
func (s *NotificationStore) MarkAsRead(ctx context.Context, id string) {
	s.mu.Lock()
	changed := false
	for i := range s.items {
		if s.items[i].ID == id {
			if !s.items[i].IsRead {
				s.items[i].IsRead = true
				changed = true
			}
			break
		}
	}
	if changed && s.unread > 0 {
		s.unread--
	}
	s.mu.Unlock()

	if !changed {
		return
	}

	if _, err := s.client.apiRequest(ctx, http.MethodPut, "/api/notifications/"+id+"/read", nil); err != nil {
		s.client.log.Warn("mark-read sync failed", "id", id, "error", err)
	}
}

// MarkAllAsRead flips everything to read optimistically, then issues one
// bulk call. A no-op when nothing is unread.
func (s *NotificationStore) MarkAllAsRead(ctx context.Context) {
	s.mu.Lock()
	if s.unread == 0 {
		s.mu.Unlock()
		return
	}
	for i := range s.items {
		s.items[i].IsRead = true
	}
	s.unread = 0
	s.mu.Unlock()

	if _, err := s.client.apiRequest(ctx, http.MethodPut, "/api/notifications/read-all", nil); err != nil {
		s.client.log.Warn("mark-all-read sync failed", "error", err)
	}
}

// Notifications returns a snapshot of the list, newest first.
func (s *NotificationStore) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

// UnreadCount returns the current unread counter.
func (s *NotificationStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// StartPolling refreshes the store on the configured interval until the
// context is cancelled or StopPolling is called. Poll failures are logged
// and swallowed; the subsystem self-heals.
func (s *NotificationStore) StartPolling(ctx context.Context) {
	s.mu.Lock()
	if s.pollStop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.pollStop = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.client.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.LoadInitial(ctx); err != nil {
					s.client.log.Warn("notification poll failed", "error", err)
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// StopPolling halts the fallback poll. Idempotent.
func (s *NotificationStore) StopPolling() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pollStop != nil {
		close(s.pollStop)
		s.pollStop = nil
	}
}
