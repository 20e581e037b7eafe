package service

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
	"scholarhub.app/scholarhub/internal/model"
	applicationRepo "scholarhub.app/scholarhub/internal/modules/application/repository"
	conversationRepo "scholarhub.app/scholarhub/internal/modules/conversation/repository"
	scholarshipRepo "scholarhub.app/scholarhub/internal/modules/scholarship/repository"
	userRepo "scholarhub.app/scholarhub/internal/modules/user/repository"
)

// DashboardStats feeds the admin console landing page.
type DashboardStats struct {
	TotalUsers             int64 `json:"total_users"`
	TotalScholarships      int64 `json:"total_scholarships"`
	TotalApplications      int64 `json:"total_applications"`
	ActiveConversations    int64 `json:"active_conversations"`
	TakenOverConversations int64 `json:"taken_over_conversations"`
	ActiveGuestSessions    int64 `json:"active_guest_sessions"`
}

type StatService interface {
	Dashboard(ctx context.Context) (*DashboardStats, error)
}

type statService struct {
	users         userRepo.UserRepository
	scholarships  scholarshipRepo.ScholarshipRepository
	applications  applicationRepo.ApplicationRepository
	conversations conversationRepo.ConversationRepository
	redisClient   *redis.Client
}

func NewStatService(users userRepo.UserRepository, scholarships scholarshipRepo.ScholarshipRepository, applications applicationRepo.ApplicationRepository, conversations conversationRepo.ConversationRepository, redisClient *redis.Client) StatService {
	return &statService{
		users:         users,
		scholarships:  scholarships,
		applications:  applications,
		conversations: conversations,
		redisClient:   redisClient,
	}
}

func (s *statService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	var err error

	if stats.TotalUsers, err = s.users.CountUsers(ctx); err != nil {
		return nil, err
	}
	if stats.TotalScholarships, err = s.scholarships.CountAll(ctx); err != nil {
		return nil, err
	}
	if stats.TotalApplications, err = s.applications.CountAll(ctx); err != nil {
		return nil, err
	}
	if stats.ActiveConversations, err = s.conversations.CountByStatus(ctx, model.ConversationActive); err != nil {
		return nil, err
	}
	if stats.TakenOverConversations, err = s.conversations.CountByStatus(ctx, model.ConversationTakenOver); err != nil {
		return nil, err
	}

	// Guest sessions live only in Redis; a missing Redis just means zero.
	if s.redisClient != nil {
		count, err := s.countGuestSessions(ctx)
		if err != nil {
			log.Printf("failed to count guest sessions: %v", err)
		} else {
			stats.ActiveGuestSessions = count
		}
	}

	return stats, nil
}

func (s *statService) countGuestSessions(ctx context.Context) (int64, error) {
	var count int64
	iter := s.redisClient.Scan(ctx, 0, "guest_session:*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count, iter.Err()
}
