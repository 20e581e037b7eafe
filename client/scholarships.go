package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Scholarship is a catalog entry.
type Scholarship struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Provider    string     `json:"provider"`
	Description string     `json:"description"`
	Amount      *int64     `json:"amount,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Link        string     `json:"link"`
	Tags        []string   `json:"tags"`
	LogoURL     *string    `json:"logo_url,omitempty"`
}

// SearchHit is one full-text search result.
type SearchHit struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Provider string `json:"provider"`
	Snippet  string `json:"description"`
}

// ListScholarships pages through the catalog.
func (c *Client) ListScholarships(ctx context.Context, page, limit int) ([]Scholarship, error) {
	path := "/api/scholarships"
	if page > 0 {
		path += "?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
	}
	body, err := c.apiRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []Scholarship `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// SearchScholarships runs a full-text search against the catalog index.
func (c *Client) SearchScholarships(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	path := "/api/scholarships/search?q=" + url.QueryEscape(query)
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	body, err := c.apiRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []SearchHit `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
