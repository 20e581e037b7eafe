package model

import (
	"time"

	"github.com/google/uuid"
)

type Scholarship struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Provider    string     `gorm:"type:varchar(255);not null" json:"provider"`
	Description string     `gorm:"type:text" json:"description"`
	Amount      *int64     `json:"amount,omitempty"` // in whole currency units; nil when unspecified
	Deadline    *time.Time `json:"deadline,omitempty"`
	Link        string     `gorm:"type:varchar(512)" json:"link"`
	Tags        string     `gorm:"type:varchar(512)" json:"tags"` // comma-separated
	LogoURL     *string    `gorm:"type:varchar(512)" json:"logo_url,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	ApplicationPlanned   = "planned"
	ApplicationSubmitted = "submitted"
	ApplicationAccepted  = "accepted"
	ApplicationRejected  = "rejected"
)

type Application struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ScholarshipID uuid.UUID `gorm:"type:uuid;not null;index" json:"scholarship_id"`
	Status        string    `gorm:"type:varchar(20);not null;default:'planned'" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User        *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Scholarship *Scholarship `gorm:"foreignKey:ScholarshipID" json:"scholarship,omitempty"`
}
