package service

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"scholarhub.app/scholarhub/internal/model"
)

const scholarshipIndex = "scholarships"

// SearchService maintains the Meilisearch scholarship index. Ranking and
// relevance are delegated entirely to Meilisearch.
type SearchService interface {
	IndexScholarship(sch *model.Scholarship) error
	DeleteScholarship(id string) error
	Search(query string, limit int64) ([]SearchHit, error)
}

type SearchHit struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Provider string `json:"provider"`
	Snippet  string `json:"description"`
}

type meiliScholarshipDoc struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Provider    string   `json:"provider"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Deadline    int64    `json:"deadline,omitempty"`
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	if client != nil {
		s.initIndex()
	}
	return s
}

func (s *searchService) initIndex() {
	searchable := []string{"title", "provider", "description", "tags"}
	if _, err := s.client.Index(scholarshipIndex).UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("Failed to update scholarships searchable attributes: %v", err)
	}

	filterableAttrs := []string{"provider", "tags"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index(scholarshipIndex).UpdateFilterableAttributes(&filterableInterface); err != nil {
		log.Printf("Failed to update scholarships filterable attributes: %v", err)
	}

	sortableAttrs := []string{"deadline"}
	if _, err := s.client.Index(scholarshipIndex).UpdateSortableAttributes(&sortableAttrs); err != nil {
		log.Printf("Failed to update scholarships sortable attributes: %v", err)
	}
}

func (s *searchService) IndexScholarship(sch *model.Scholarship) error {
	if s.client == nil {
		return nil
	}

	doc := meiliScholarshipDoc{
		ID:          sch.ID.String(),
		Title:       sch.Title,
		Provider:    sch.Provider,
		Description: s.sanitizer.Sanitize(sch.Description),
	}
	if sch.Tags != "" {
		doc.Tags = strings.Split(sch.Tags, ",")
	}
	if sch.Deadline != nil {
		doc.Deadline = sch.Deadline.Unix()
	}

	if _, err := s.client.Index(scholarshipIndex).AddDocuments([]meiliScholarshipDoc{doc}, strPtr("id")); err != nil {
		return fmt.Errorf("failed to index scholarship %s: %w", doc.ID, err)
	}
	return nil
}

func (s *searchService) DeleteScholarship(id string) error {
	if s.client == nil {
		return nil
	}
	if _, err := s.client.Index(scholarshipIndex).DeleteDocument(id); err != nil {
		return fmt.Errorf("failed to delete scholarship %s from index: %w", id, err)
	}
	return nil
}

func (s *searchService) Search(query string, limit int64) ([]SearchHit, error) {
	if s.client == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	raw, err := s.client.Index(scholarshipIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("meilisearch query failed: %w", err)
	}

	var res struct {
		Hits []SearchHit `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &res); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return res.Hits, nil
}

func strPtr(s string) *string {
	return &s
}
