package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
	"scholarhub.app/scholarhub/internal/model"
	"scholarhub.app/scholarhub/internal/modules/scholarship/dto"
	"scholarhub.app/scholarhub/internal/modules/scholarship/repository"
	search "scholarhub.app/scholarhub/internal/modules/search/service"
	"scholarhub.app/scholarhub/pkg/apperror"
	"scholarhub.app/scholarhub/pkg/storage"
)

type Service interface {
	Create(ctx context.Context, input dto.CreateScholarshipInput) (*dto.ScholarshipResponse, error)
	Update(ctx context.Context, id uuid.UUID, input dto.UpdateScholarshipInput) (*dto.ScholarshipResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ScholarshipResponse, error)
	List(ctx context.Context, filter dto.ScholarshipFilter) (*dto.PaginatedScholarshipResponse, error)
	Search(ctx context.Context, query string, limit int64) ([]search.SearchHit, error)
	ImportFeed(ctx context.Context, records []map[string]any) (*dto.ImportResult, error)
	UploadLogo(ctx context.Context, id uuid.UUID, r io.Reader, fileName string) (string, error)
}

type service struct {
	repo         repository.ScholarshipRepository
	searchSvc    search.SearchService
	imageStorage storage.ImageStorage
	sanitizer    *bluemonday.Policy
}

func NewService(repo repository.ScholarshipRepository, searchSvc search.SearchService, imageStorage storage.ImageStorage) Service {
	return &service{
		repo:         repo,
		searchSvc:    searchSvc,
		imageStorage: imageStorage,
		sanitizer:    bluemonday.UGCPolicy(),
	}
}

func (s *service) Create(ctx context.Context, input dto.CreateScholarshipInput) (*dto.ScholarshipResponse, error) {
	sch := &model.Scholarship{
		Title:       strings.TrimSpace(input.Title),
		Provider:    strings.TrimSpace(input.Provider),
		Description: s.sanitizer.Sanitize(input.Description),
		Amount:      input.Amount,
		Deadline:    input.Deadline,
		Link:        input.Link,
		Tags:        strings.Join(input.Tags, ","),
	}

	if err := s.repo.Create(ctx, sch); err != nil {
		return nil, err
	}

	if s.searchSvc != nil {
		if err := s.searchSvc.IndexScholarship(sch); err != nil {
			log.Printf("failed to index scholarship %s: %v", sch.ID, err)
		}
	}

	return toResponse(sch), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input dto.UpdateScholarshipInput) (*dto.ScholarshipResponse, error) {
	sch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if input.Title != nil {
		sch.Title = strings.TrimSpace(*input.Title)
	}
	if input.Provider != nil {
		sch.Provider = strings.TrimSpace(*input.Provider)
	}
	if input.Description != nil {
		sch.Description = s.sanitizer.Sanitize(*input.Description)
	}
	if input.Amount != nil {
		sch.Amount = input.Amount
	}
	if input.Deadline != nil {
		sch.Deadline = input.Deadline
	}
	if input.Link != nil {
		sch.Link = *input.Link
	}
	if input.Tags != nil {
		sch.Tags = strings.Join(input.Tags, ",")
	}

	if err := s.repo.Update(ctx, sch); err != nil {
		return nil, err
	}

	if s.searchSvc != nil {
		if err := s.searchSvc.IndexScholarship(sch); err != nil {
			log.Printf("failed to re-index scholarship %s: %v", sch.ID, err)
		}
	}

	return toResponse(sch), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	sch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.searchSvc != nil {
		_ = s.searchSvc.DeleteScholarship(id.String())
	}
	if s.imageStorage != nil && sch.LogoURL != nil {
		if err := s.imageStorage.DeleteImage(ctx, *sch.LogoURL); err != nil {
			log.Printf("failed to delete logo for scholarship %s: %v", id, err)
		}
	}

	return nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*dto.ScholarshipResponse, error) {
	sch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return toResponse(sch), nil
}

func (s *service) List(ctx context.Context, filter dto.ScholarshipFilter) (*dto.PaginatedScholarshipResponse, error) {
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.Limit == 0 {
		filter.Limit = 10
	}

	scholarships, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ScholarshipResponse, 0, len(scholarships))
	for i := range scholarships {
		responses = append(responses, *toResponse(&scholarships[i]))
	}

	return &dto.PaginatedScholarshipResponse{
		Data: responses,
		Meta: dto.PaginationMeta{
			CurrentPage: filter.Page,
			TotalPages:  int(math.Ceil(float64(total) / float64(filter.Limit))),
			TotalItems:  total,
			Limit:       filter.Limit,
		},
	}, nil
}

func (s *service) Search(ctx context.Context, query string, limit int64) ([]search.SearchHit, error) {
	if s.searchSvc == nil {
		return nil, apperror.New(503, "search is not configured", nil)
	}
	return s.searchSvc.Search(query, limit)
}

// ImportFeed runs raw provider feed records through the normalizing adapter
// and persists the usable ones. Unusable records are counted, not fatal.
func (s *service) ImportFeed(ctx context.Context, records []map[string]any) (*dto.ImportResult, error) {
	result := &dto.ImportResult{}

	for i, raw := range records {
		sch, err := NormalizeScholarshipRecord(raw)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		sch.Description = s.sanitizer.Sanitize(sch.Description)

		if err := s.repo.Create(ctx, sch); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}

		if s.searchSvc != nil {
			if err := s.searchSvc.IndexScholarship(sch); err != nil {
				log.Printf("failed to index imported scholarship %s: %v", sch.ID, err)
			}
		}
		result.Imported++
	}

	return result, nil
}

func (s *service) UploadLogo(ctx context.Context, id uuid.UUID, r io.Reader, fileName string) (string, error) {
	if s.imageStorage == nil {
		return "", apperror.New(503, "image storage is not configured", nil)
	}

	sch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperror.ErrNotFound
		}
		return "", err
	}

	url, err := s.imageStorage.UploadImage(ctx, r, "logos", fileName)
	if err != nil {
		return "", err
	}

	if sch.LogoURL != nil {
		if err := s.imageStorage.DeleteImage(ctx, *sch.LogoURL); err != nil {
			log.Printf("failed to delete previous logo for scholarship %s: %v", id, err)
		}
	}

	sch.LogoURL = &url
	if err := s.repo.Update(ctx, sch); err != nil {
		return "", err
	}

	return url, nil
}

func toResponse(sch *model.Scholarship) *dto.ScholarshipResponse {
	var tags []string
	if sch.Tags != "" {
		tags = strings.Split(sch.Tags, ",")
	}
	return &dto.ScholarshipResponse{
		ID:          sch.ID,
		Title:       sch.Title,
		Provider:    sch.Provider,
		Description: sch.Description,
		Amount:      sch.Amount,
		Deadline:    sch.Deadline,
		Link:        sch.Link,
		Tags:        tags,
		LogoURL:     sch.LogoURL,
		CreatedAt:   sch.CreatedAt,
	}
}
