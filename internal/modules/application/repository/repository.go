package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"scholarhub.app/scholarhub/internal/model"
)

type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Application, error)
	FindByUserAndScholarship(ctx context.Context, userID, scholarshipID uuid.UUID) (*model.Application, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Application, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	CountAll(ctx context.Context) (int64, error)
	// ListPendingWithDeadlineBefore returns open applications whose
	// scholarship deadline falls before the cutoff, scholarship preloaded.
	ListPendingWithDeadlineBefore(ctx context.Context, cutoff time.Time) ([]model.Application, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *model.Application) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *applicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	var app model.Application
	if err := r.db.WithContext(ctx).
		Preload("Scholarship").
		Where("id = ?", id).
		First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) FindByUserAndScholarship(ctx context.Context, userID, scholarshipID uuid.UUID) (*model.Application, error) {
	var app model.Application
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND scholarship_id = ?", userID, scholarshipID).
		First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Application, error) {
	var apps []model.Application
	err := r.db.WithContext(ctx).
		Preload("Scholarship").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&apps).Error
	return apps, err
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *applicationRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Application{}).Count(&count).Error
	return count, err
}

func (r *applicationRepository) ListPendingWithDeadlineBefore(ctx context.Context, cutoff time.Time) ([]model.Application, error) {
	var apps []model.Application
	err := r.db.WithContext(ctx).
		Preload("Scholarship").
		Joins("JOIN scholarships ON scholarships.id = applications.scholarship_id").
		Where("applications.status IN ?", []string{model.ApplicationPlanned}).
		Where("scholarships.deadline IS NOT NULL AND scholarships.deadline < ?", cutoff).
		Find(&apps).Error
	return apps, err
}
