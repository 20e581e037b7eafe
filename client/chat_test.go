package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newChatTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat/messages", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Token: "tok"})
}

func TestAskAppendsCanonicalMessages(t *testing.T) {
	c := newChatTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string `json:"content"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"conversation_id": "c1",
			"status":          ConversationActive,
			"messages": []Message{
				{ID: "m1", ConversationID: "c1", Role: RoleUser, Content: req.Content, CreatedAt: time.Now().UTC()},
				{ID: "m2", ConversationID: "c1", Role: RoleBot, Content: "Here are three scholarships.", CreatedAt: time.Now().UTC()},
			},
		})
	})

	chat := c.NewChat()
	if err := chat.Ask(context.Background(), "  find me scholarships  "); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	transcript := chat.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(transcript))
	}
	if transcript[0].ID != "m1" || transcript[1].ID != "m2" {
		t.Fatalf("transcript ids = [%s %s], want server-canonical [m1 m2]", transcript[0].ID, transcript[1].ID)
	}
	if transcript[0].Content != "find me scholarships" {
		t.Fatalf("query was not trimmed: %q", transcript[0].Content)
	}
	if got := chat.ConversationID(); got != "c1" {
		t.Fatalf("conversation id = %q, want c1", got)
	}
	if got := chat.Draft(); got != "" {
		t.Fatalf("draft = %q, want empty after success", got)
	}
}

func TestAskEmptyQueryIsNoop(t *testing.T) {
	var calls atomic.Int64
	c := newChatTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	chat := c.NewChat()
	if err := chat.Ask(context.Background(), "   "); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got := calls.Load(); got != 0 {
		t.Fatalf("network calls = %d, want 0", got)
	}
	if got := len(chat.Transcript()); got != 0 {
		t.Fatalf("transcript length = %d, want 0", got)
	}
}

func TestStopRestoresDraftAndAppendsNotice(t *testing.T) {
	started := make(chan struct{})
	c := newChatTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		// Drain the body: the server only watches for the client closing
		// the connection once the request body has been consumed.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done() // hang until the client aborts
	})

	chat := c.NewChat()
	done := make(chan error, 1)
	go func() {
		done <- chat.Ask(context.Background(), "long running question")
	}()

	<-started
	chat.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Ask after Stop = %v, want nil (cancel is not an error)", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Ask did not return after Stop")
	}

	if got := chat.Draft(); got != "long running question" {
		t.Fatalf("draft = %q, want the original query handed back", got)
	}

	transcript := chat.Transcript()
	if len(transcript) != 1 {
		t.Fatalf("transcript length = %d, want just the stopped notice", len(transcript))
	}
	if transcript[0].Role != RoleSystem || transcript[0].Content != "Response stopped." {
		t.Fatalf("transcript[0] = %+v, want the system stopped notice", transcript[0])
	}

	// The chat is usable again
	if err := chat.Ask(context.Background(), ""); err != nil {
		t.Fatalf("Ask after Stop: %v", err)
	}
}

func TestAskRejectsConcurrentQueries(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	c := newChatTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-release:
		case <-r.Context().Done():
		}
		json.NewEncoder(w).Encode(map[string]any{"conversation_id": "c1", "messages": []Message{}})
	})

	chat := c.NewChat()
	done := make(chan error, 1)
	go func() {
		done <- chat.Ask(context.Background(), "first")
	}()
	<-started

	if err := chat.Ask(context.Background(), "second"); err != ErrQueryInFlight {
		t.Fatalf("concurrent Ask = %v, want ErrQueryInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Ask: %v", err)
	}
}
