package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"scholarhub.app/scholarhub/internal/model"
)

type ConversationRepository interface {
	FindOrCreateByUser(ctx context.Context, userID uuid.UUID) (*model.Conversation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	// FindByIDWithMessages loads the conversation with its transcript in
	// chronological order.
	FindByIDWithMessages(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	List(ctx context.Context, limit, offset int) ([]model.Conversation, int64, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string, takenOverBy *uuid.UUID) error
	AppendMessage(ctx context.Context, msg *model.Message) error
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// FindOrCreateByUser returns the user's open conversation, creating one
// implicitly on first contact. Closed conversations are left behind; a new
// one is started.
func (r *conversationRepository) FindOrCreateByUser(ctx context.Context, userID uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, model.ConversationClosed).
		Order("created_at desc").
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = model.Conversation{
		UserID: userID,
		Status: model.ConversationActive,
	}
	if err := r.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByIDWithMessages(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc")
		}).
		Where("id = ?", id).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) List(ctx context.Context, limit, offset int) ([]model.Conversation, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Conversation{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var convs []model.Conversation
	err := r.db.WithContext(ctx).
		Order("updated_at desc").
		Limit(limit).
		Offset(offset).
		Find(&convs).Error
	return convs, total, err
}

func (r *conversationRepository) SetStatus(ctx context.Context, id uuid.UUID, status string, takenOverBy *uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        status,
			"taken_over_by": takenOverBy,
		}).Error
}

func (r *conversationRepository) AppendMessage(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *conversationRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
