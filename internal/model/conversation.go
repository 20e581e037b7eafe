package model

import (
	"time"

	"github.com/google/uuid"
)

// Conversation status values. A conversation is bot-controlled while
// "active"; "taken_over" means a human operator holds the seat; "closed"
// is terminal.
const (
	ConversationActive    = "active"
	ConversationTakenOver = "taken_over"
	ConversationClosed    = "closed"
)

const (
	MessageRoleUser  = "user"
	MessageRoleBot   = "bot"
	MessageRoleAdmin = "admin"
)

type Conversation struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Status      string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	TakenOverBy *uuid.UUID `gorm:"type:uuid" json:"taken_over_by,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Messages []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Role           string    `gorm:"type:varchar(10);not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
