package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Conversation status values.
const (
	ConversationActive    = "active"
	ConversationTakenOver = "taken_over"
	ConversationClosed    = "closed"
)

// Message roles.
const (
	RoleUser  = "user"
	RoleBot   = "bot"
	RoleAdmin = "admin"
)

// Conversation is an admin-side view of one chat, including its transcript.
type Conversation struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	TakenOverBy *string   `json:"taken_over_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Messages    []Message `json:"messages,omitempty"`
}

// Message is one transcript entry.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ErrNotLoaded is returned by controller actions before Load succeeds.
var ErrNotLoaded = errors.New("conversation not loaded")

// ConversationController models one conversation's control state as seen
// by the operator: bot-controlled while "active", human-controlled while
// "taken_over". It gates whether the operator may post messages. The
// backend is the source of truth; on conflicting takeovers the controller
// applies whatever response it receives.
type ConversationController struct {
	client *Client
	id     string

	mu   sync.Mutex
	conv *Conversation
}

// NewConversationController builds a controller for one conversation.
// Call Load before acting on it.
func (c *Client) NewConversationController(conversationID string) *ConversationController {
	return &ConversationController{client: c, id: conversationID}
}

// Load hydrates the conversation detail and transcript.
func (cc *ConversationController) Load(ctx context.Context) error {
	body, err := cc.client.apiRequest(ctx, http.MethodGet, "/api/admin/conversations/"+cc.id, nil)
	if err != nil {
		return err
	}
	var conv Conversation
	if err := json.Unmarshal(body, &conv); err != nil {
		return err
	}
	cc.mu.Lock()
	cc.conv = &conv
	cc.mu.Unlock()
	return nil
}

// Status reports the conversation status, or "" before Load.
func (cc *ConversationController) Status() string {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.conv == nil {
		return ""
	}
	return cc.conv.Status
}

// CanSend reports whether the operator currently holds the seat.
func (cc *ConversationController) CanSend() bool {
	return cc.Status() == ConversationTakenOver
}

// Messages returns a snapshot of the transcript.
func (cc *ConversationController) Messages() []Message {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.conv == nil {
		return nil
	}
	out := make([]Message, len(cc.conv.Messages))
	copy(out, cc.conv.Messages)
	return out
}

// TakeOver assumes human control. Legal only while bot-controlled. On
// success the detail is refreshed so status and transcript reflect the new
// state; on failure the local state stays put and the operator may retry.
func (cc *ConversationController) TakeOver(ctx context.Context) error {
	cc.mu.Lock()
	if cc.conv == nil {
		cc.mu.Unlock()
		return ErrNotLoaded
	}
	if cc.conv.Status != ConversationActive {
		cc.mu.Unlock()
		return errors.New("conversation is not bot-controlled")
	}
	cc.mu.Unlock()

	if _, err := cc.client.apiRequest(ctx, http.MethodPost, "/api/admin/conversations/"+cc.id+"/takeover", nil); err != nil {
		return err
	}
	return cc.Load(ctx)
}

// Release hands control back to the bot. Legal only while taken over.
func (cc *ConversationController) Release(ctx context.Context) error {
	cc.mu.Lock()
	if cc.conv == nil {
		cc.mu.Unlock()
		return ErrNotLoaded
	}
	if cc.conv.Status != ConversationTakenOver {
		cc.mu.Unlock()
		return errors.New("conversation is not taken over")
	}
	cc.mu.Unlock()

	if _, err := cc.client.apiRequest(ctx, http.MethodPost, "/api/admin/conversations/"+cc.id+"/release", nil); err != nil {
		return err
	}
	return cc.Load(ctx)
}

// Send relays an operator message into the conversation. Empty content or
// a conversation not taken over is a client-side no-op: no request is
// made and (nil, nil) is returned. On success the server's canonical
// message is appended to the transcript and returned; the controller never
// synthesizes its own id or timestamp. Failures are surfaced, a lost
// operator message is not a best-effort event.
func (cc *ConversationController) Send(ctx context.Context, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" || !cc.CanSend() {
		return nil, nil
	}

	body, err := cc.client.apiRequest(ctx, http.MethodPost, "/api/admin/conversations/"+cc.id+"/messages", map[string]string{
		"content": content,
	})
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, err
	}

	cc.mu.Lock()
	if cc.conv != nil {
		cc.conv.Messages = append(cc.conv.Messages, msg)
	}
	cc.mu.Unlock()
	return &msg, nil
}

// ConversationSummary is one row in the admin conversation list.
type ConversationSummary struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	TakenOverBy *string   `json:"taken_over_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListConversations pages through all conversations, most recent first.
func (c *Client) ListConversations(ctx context.Context, page, limit int) ([]ConversationSummary, error) {
	path := "/api/admin/conversations"
	if page > 0 {
		path += "?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
	}
	body, err := c.apiRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []ConversationSummary `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// DashboardStats are the admin console counters.
type DashboardStats struct {
	TotalUsers             int64 `json:"total_users"`
	TotalScholarships      int64 `json:"total_scholarships"`
	TotalApplications      int64 `json:"total_applications"`
	ActiveConversations    int64 `json:"active_conversations"`
	TakenOverConversations int64 `json:"taken_over_conversations"`
	ActiveGuestSessions    int64 `json:"active_guest_sessions"`
}

// FetchDashboardStats returns the admin dashboard counters.
func (c *Client) FetchDashboardStats(ctx context.Context) (*DashboardStats, error) {
	body, err := c.apiRequest(ctx, http.MethodGet, "/api/admin/stats", nil)
	if err != nil {
		return nil, err
	}
	var stats DashboardStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
