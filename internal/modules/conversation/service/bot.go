package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BotResponder produces ScholarBot replies. The actual language model lives
// behind an external HTTP API.
type BotResponder interface {
	Reply(ctx context.Context, conversationID string, userMessage string) (string, error)
}

type httpBotResponder struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPBotResponder talks to the external chatbot backend. A nil responder
// is valid at the service layer; conversations then collect user messages
// without bot replies.
func NewHTTPBotResponder(baseURL string, timeout time.Duration) BotResponder {
	return &httpBotResponder{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (b *httpBotResponder) Reply(ctx context.Context, conversationID string, userMessage string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"conversation_id": conversationID,
		"message":         userMessage,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/query", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("bot api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("bot api returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode bot reply: %w", err)
	}
	if result.Reply == "" {
		return "", fmt.Errorf("bot api returned an empty reply")
	}

	return result.Reply, nil
}
