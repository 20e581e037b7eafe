package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"scholarhub.app/scholarhub/internal/model"
	"scholarhub.app/scholarhub/internal/modules/scholarship/dto"
)

type ScholarshipRepository interface {
	Create(ctx context.Context, sch *model.Scholarship) error
	Update(ctx context.Context, sch *model.Scholarship) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Scholarship, error)
	List(ctx context.Context, filter dto.ScholarshipFilter) ([]model.Scholarship, int64, error)
	CountAll(ctx context.Context) (int64, error)
	// DeadlinesBetween lists scholarships whose deadline falls in [from, to).
	DeadlinesBetween(ctx context.Context, from, to time.Time) ([]model.Scholarship, error)
}

type scholarshipRepository struct {
	db *gorm.DB
}

func NewScholarshipRepository(db *gorm.DB) ScholarshipRepository {
	return &scholarshipRepository{db: db}
}

func (r *scholarshipRepository) Create(ctx context.Context, sch *model.Scholarship) error {
	return r.db.WithContext(ctx).Create(sch).Error
}

func (r *scholarshipRepository) Update(ctx context.Context, sch *model.Scholarship) error {
	return r.db.WithContext(ctx).Save(sch).Error
}

func (r *scholarshipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Scholarship{}, "id = ?", id).Error
}

func (r *scholarshipRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Scholarship, error) {
	var sch model.Scholarship
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sch).Error; err != nil {
		return nil, err
	}
	return &sch, nil
}

func (r *scholarshipRepository) List(ctx context.Context, filter dto.ScholarshipFilter) ([]model.Scholarship, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Scholarship{})

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR provider ILIKE ?", pattern, pattern)
	}
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	if filter.Tag != "" {
		query = query.Where("tags ILIKE ?", "%"+filter.Tag+"%")
	}
	if filter.Upcoming {
		query = query.Where("deadline IS NULL OR deadline >= ?", time.Now())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var scholarships []model.Scholarship
	err := query.
		Order("created_at desc").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		Find(&scholarships).Error
	return scholarships, total, err
}

func (r *scholarshipRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Scholarship{}).Count(&count).Error
	return count, err
}

func (r *scholarshipRepository) DeadlinesBetween(ctx context.Context, from, to time.Time) ([]model.Scholarship, error) {
	var scholarships []model.Scholarship
	err := r.db.WithContext(ctx).
		Where("deadline >= ? AND deadline < ?", from, to).
		Find(&scholarships).Error
	return scholarships, err
}
