package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification types delivered to users. Push payloads carry these verbatim.
const (
	NotifDeadlineWarning   = "DEADLINE_WARNING"
	NotifDeadlineMissed    = "DEADLINE_MISSED"
	NotifApplicationAdded  = "APPLICATION_ADDED"
	NotifApplicationStatus = "APPLICATION_STATUS"
	NotifScholarshipMatch  = "SCHOLARSHIP_MATCH"
	NotifSystemAlert       = "SYSTEM_ALERT"
)

type Notification struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string         `gorm:"type:varchar(50);not null" json:"type"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`
	Message   string         `gorm:"type:text" json:"message"`
	IsRead    bool           `gorm:"default:false" json:"is_read"`
	Link      *string        `gorm:"type:varchar(512)" json:"link,omitempty"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
