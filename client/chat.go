package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RoleSystem marks transcript entries synthesized locally, such as the
// notice appended when a query is stopped.
const RoleSystem = "system"

// ErrQueryInFlight is returned by Ask while a previous query is pending.
var ErrQueryInFlight = errors.New("a query is already in flight")

// Chat is the ScholarBot widget: it sends natural-language queries and
// keeps the visible transcript. An in-flight query can be stopped; the
// query text is then handed back as the draft for editing and a "stopped"
// notice is appended.
type Chat struct {
	client *Client

	mu             sync.Mutex
	conversationID string
	transcript     []Message
	draft          string
	cancel         context.CancelFunc
}

// NewChat builds an empty chat. Available to users and guests alike.
func (c *Client) NewChat() *Chat {
	return &Chat{client: c}
}

// Ask sends one query and waits for the reply. The pending query shows in
// the transcript immediately and is replaced by the server's canonical
// messages on success. A Stop during the request is not an error: Ask
// returns nil with the query text moved back into Draft.
func (ch *Chat) Ask(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	ch.mu.Lock()
	if ch.cancel != nil {
		ch.mu.Unlock()
		return ErrQueryInFlight
	}
	ctx, cancel := context.WithCancel(ctx)
	ch.cancel = cancel
	ch.draft = ""
	ch.transcript = append(ch.transcript, Message{Role: RoleUser, Content: query, CreatedAt: time.Now()})
	ch.mu.Unlock()

	body, err := ch.client.apiRequest(ctx, http.MethodPost, "/api/chat/messages", map[string]string{
		"content": query,
	})

	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.cancel = nil
	cancel()

	// Drop the locally synthesized pending entry either way
	ch.transcript = ch.transcript[:len(ch.transcript)-1]

	if err != nil {
		if errors.Is(err, context.Canceled) {
			ch.draft = query
			ch.transcript = append(ch.transcript, Message{
				Role:      RoleSystem,
				Content:   "Response stopped.",
				CreatedAt: time.Now(),
			})
			return nil
		}
		return err
	}

	var resp struct {
		ConversationID string    `json:"conversation_id"`
		Status         string    `json:"status"`
		Messages       []Message `json:"messages"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}

	ch.conversationID = resp.ConversationID
	ch.transcript = append(ch.transcript, resp.Messages...)
	return nil
}

// Stop aborts the in-flight query, if any.
func (ch *Chat) Stop() {
	ch.mu.Lock()
	cancel := ch.cancel
	ch.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Draft returns the query text restored by the last Stop, if any.
func (ch *Chat) Draft() string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.draft
}

// Transcript returns a snapshot of the visible messages.
func (ch *Chat) Transcript() []Message {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	out := make([]Message, len(ch.transcript))
	copy(out, ch.transcript)
	return out
}

// ConversationID returns the server-assigned conversation id, once known.
func (ch *Chat) ConversationID() string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.conversationID
}
