package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"scholarhub.app/scholarhub/internal/model"
	"scholarhub.app/scholarhub/internal/modules/conversation/repository"
	"scholarhub.app/scholarhub/pkg/apperror"
	"scholarhub.app/scholarhub/pkg/ratelimit"
)

type ConversationService interface {
	// UserMessage stores a visitor message in their conversation and, while
	// the bot holds the conversation, obtains and stores the bot reply.
	UserMessage(ctx context.Context, principalID uuid.UUID, content string) (*model.Conversation, []model.Message, error)

	// Admin operations
	List(ctx context.Context, page, limit int) ([]model.Conversation, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	TakeOver(ctx context.Context, id, adminID uuid.UUID) (*model.Conversation, error)
	Release(ctx context.Context, id, adminID uuid.UUID) (*model.Conversation, error)
	AdminMessage(ctx context.Context, id, adminID uuid.UUID, content string) (*model.Message, error)
}

type conversationService struct {
	repo        repository.ConversationRepository
	bot         BotResponder
	redisClient *redis.Client
	rateLimit   time.Duration
	sanitizer   *bluemonday.Policy
}

func NewConversationService(repo repository.ConversationRepository, bot BotResponder, redisClient *redis.Client, rateLimit time.Duration) ConversationService {
	return &conversationService{
		repo:        repo,
		bot:         bot,
		redisClient: redisClient,
		rateLimit:   rateLimit,
		sanitizer:   bluemonday.StrictPolicy(),
	}
}

func (s *conversationService) UserMessage(ctx context.Context, principalID uuid.UUID, content string) (*model.Conversation, []model.Message, error) {
	content = strings.TrimSpace(s.sanitizer.Sanitize(content))
	if content == "" {
		return nil, nil, apperror.New(400, "message content must not be empty", apperror.ErrInvalidInput)
	}

	allowed, err := ratelimit.CheckAndSet(ctx, s.redisClient, principalID, "chat_message", s.rateLimit)
	if err != nil {
		return nil, nil, err
	}
	if !allowed {
		return nil, nil, apperror.ErrRateLimitExceeded
	}

	conv, err := s.repo.FindOrCreateByUser(ctx, principalID)
	if err != nil {
		return nil, nil, err
	}

	userMsg := &model.Message{
		ConversationID: conv.ID,
		Role:           model.MessageRoleUser,
		Content:        content,
	}
	if err := s.repo.AppendMessage(ctx, userMsg); err != nil {
		return nil, nil, err
	}
	messages := []model.Message{*userMsg}

	// While a human operator holds the seat the bot stays silent; the
	// operator replies through the admin relay instead.
	if conv.Status == model.ConversationActive && s.bot != nil {
		reply, err := s.bot.Reply(ctx, conv.ID.String(), content)
		if err != nil {
			log.Printf("bot reply failed for conversation %s: %v", conv.ID, err)
		} else {
			botMsg := &model.Message{
				ConversationID: conv.ID,
				Role:           model.MessageRoleBot,
				Content:        reply,
			}
			if err := s.repo.AppendMessage(ctx, botMsg); err != nil {
				return nil, nil, err
			}
			messages = append(messages, *botMsg)
		}
	}

	return conv, messages, nil
}

func (s *conversationService) List(ctx context.Context, page, limit int) ([]model.Conversation, int64, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 20
	}
	return s.repo.List(ctx, limit, (page-1)*limit)
}

func (s *conversationService) Get(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	conv, err := s.repo.FindByIDWithMessages(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return conv, nil
}

// TakeOver puts the conversation under human control. When two admins race,
// the last write wins and the server record is the source of truth; the
// losing admin finds out on their next refresh.
func (s *conversationService) TakeOver(ctx context.Context, id, adminID uuid.UUID) (*model.Conversation, error) {
	conv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if conv.Status == model.ConversationClosed {
		return nil, apperror.New(409, "conversation is closed", apperror.ErrConflict)
	}

	if err := s.repo.SetStatus(ctx, id, model.ConversationTakenOver, &adminID); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

func (s *conversationService) Release(ctx context.Context, id, adminID uuid.UUID) (*model.Conversation, error) {
	conv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if conv.Status != model.ConversationTakenOver {
		return nil, apperror.New(409, "conversation is not taken over", apperror.ErrConflict)
	}
	if conv.TakenOverBy == nil || *conv.TakenOverBy != adminID {
		return nil, apperror.New(409, "conversation is held by another operator", apperror.ErrConflict)
	}

	if err := s.repo.SetStatus(ctx, id, model.ConversationActive, nil); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// AdminMessage appends an operator message. Only legal while the caller
// holds the takeover; the persisted message is returned as the canonical
// record (ids and timestamps are assigned here, never client-side).
func (s *conversationService) AdminMessage(ctx context.Context, id, adminID uuid.UUID, content string) (*model.Message, error) {
	content = strings.TrimSpace(s.sanitizer.Sanitize(content))
	if content == "" {
		return nil, apperror.New(400, "message content must not be empty", apperror.ErrInvalidInput)
	}

	conv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if conv.Status != model.ConversationTakenOver {
		return nil, apperror.New(409, "take over the chat to send messages", apperror.ErrConflict)
	}
	if conv.TakenOverBy == nil || *conv.TakenOverBy != adminID {
		return nil, apperror.New(409, "conversation is held by another operator", apperror.ErrConflict)
	}

	msg := &model.Message{
		ConversationID: id,
		Role:           model.MessageRoleAdmin,
		Content:        content,
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	return msg, nil
}
