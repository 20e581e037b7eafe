package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateScholarshipInput struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Provider    string     `json:"provider" binding:"required,max=255"`
	Description string     `json:"description"`
	Amount      *int64     `json:"amount"`
	Deadline    *time.Time `json:"deadline"`
	Link        string     `json:"link" binding:"omitempty,url"`
	Tags        []string   `json:"tags"`
}

type UpdateScholarshipInput struct {
	Title       *string    `json:"title" binding:"omitempty,max=255"`
	Provider    *string    `json:"provider" binding:"omitempty,max=255"`
	Description *string    `json:"description"`
	Amount      *int64     `json:"amount"`
	Deadline    *time.Time `json:"deadline"`
	Link        *string    `json:"link" binding:"omitempty,url"`
	Tags        []string   `json:"tags"`
}

type ScholarshipFilter struct {
	Search   string `form:"search"`
	Provider string `form:"provider"`
	Tag      string `form:"tag"`
	Upcoming bool   `form:"upcoming"` // only scholarships whose deadline has not passed
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type ScholarshipResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Provider    string     `json:"provider"`
	Description string     `json:"description"`
	Amount      *int64     `json:"amount,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Link        string     `json:"link"`
	Tags        []string   `json:"tags"`
	LogoURL     *string    `json:"logo_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

type PaginatedScholarshipResponse struct {
	Data []ScholarshipResponse `json:"data"`
	Meta PaginationMeta        `json:"meta"`
}

type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
