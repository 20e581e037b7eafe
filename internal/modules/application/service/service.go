package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"scholarhub.app/scholarhub/internal/model"
	"scholarhub.app/scholarhub/internal/modules/application/repository"
	notification "scholarhub.app/scholarhub/internal/modules/notification/service"
	scholarshipRepo "scholarhub.app/scholarhub/internal/modules/scholarship/repository"
	"scholarhub.app/scholarhub/pkg/apperror"
)

var validStatuses = map[string]bool{
	model.ApplicationPlanned:   true,
	model.ApplicationSubmitted: true,
	model.ApplicationAccepted:  true,
	model.ApplicationRejected:  true,
}

type ApplicationService interface {
	Create(ctx context.Context, userID, scholarshipID uuid.UUID) (*model.Application, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Application, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*model.Application, error)
}

type applicationService struct {
	repo            repository.ApplicationRepository
	scholarshipRepo scholarshipRepo.ScholarshipRepository
	notifications   notification.NotificationService
}

func NewApplicationService(repo repository.ApplicationRepository, scholarshipRepo scholarshipRepo.ScholarshipRepository, notifications notification.NotificationService) ApplicationService {
	return &applicationService{
		repo:            repo,
		scholarshipRepo: scholarshipRepo,
		notifications:   notifications,
	}
}

func (s *applicationService) Create(ctx context.Context, userID, scholarshipID uuid.UUID) (*model.Application, error) {
	sch, err := s.scholarshipRepo.FindByID(ctx, scholarshipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if _, err := s.repo.FindByUserAndScholarship(ctx, userID, scholarshipID); err == nil {
		return nil, apperror.New(409, "application already exists for this scholarship", apperror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	app := &model.Application{
		UserID:        userID,
		ScholarshipID: scholarshipID,
		Status:        model.ApplicationPlanned,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, err
	}

	s.notify(ctx, userID, model.NotifApplicationAdded,
		"Application added",
		fmt.Sprintf("You are now tracking %s by %s.", sch.Title, sch.Provider),
		app.ID, sch.ID)

	app.Scholarship = sch
	return app, nil
}

func (s *applicationService) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Application, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *applicationService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*model.Application, error) {
	if !validStatuses[status] {
		return nil, apperror.New(400, "invalid application status: "+status, apperror.ErrInvalidInput)
	}

	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	app.Status = status

	title := "Application status updated"
	message := fmt.Sprintf("Your application for %s is now %q.", app.Scholarship.Title, status)
	s.notify(ctx, app.UserID, model.NotifApplicationStatus, title, message, app.ID, app.ScholarshipID)

	return app, nil
}

func (s *applicationService) notify(ctx context.Context, userID uuid.UUID, notifType, title, message string, appID, scholarshipID uuid.UUID) {
	link := "/applications/" + appID.String()
	metadata, _ := json.Marshal(map[string]string{
		"application_id": appID.String(),
		"scholarship_id": scholarshipID.String(),
	})

	notif := &model.Notification{
		UserID:   userID,
		Type:     notifType,
		Title:    title,
		Message:  message,
		Link:     &link,
		Metadata: datatypes.JSON(metadata),
	}
	if err := s.notifications.CreateNotification(ctx, notif); err != nil {
		log.Printf("failed to create %s notification for user %s: %v", notifType, userID, err)
	}
}
