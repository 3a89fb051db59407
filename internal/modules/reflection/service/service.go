package reflection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"tandera.com/daypillar/internal/entity"
	"tandera.com/daypillar/internal/modules/reflection/dto"
	"tandera.com/daypillar/internal/modules/reflection/repository"
	"tandera.com/daypillar/pkg/apperror"
)

type ReflectionService interface {
	CreateReflection(ctx context.Context, userID uuid.UUID, req dto.CreateReflectionRequest) (*dto.ReflectionResponse, error)
	GetReflectionsForDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]dto.ReflectionResponse, error)
	DeleteReflection(ctx context.Context, userID, id uuid.UUID) error
}

type reflectionService struct {
	repo      repository.ReflectionRepository
	sanitizer *bluemonday.Policy
}

func NewReflectionService(repo repository.ReflectionRepository) ReflectionService {
	return &reflectionService{
		repo:      repo,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *reflectionService) CreateReflection(ctx context.Context, userID uuid.UUID, req dto.CreateReflectionRequest) (*dto.ReflectionResponse, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date", apperror.ErrBadRequest)
	}

	reflection := &entity.Reflection{
		UserID:       userID,
		OccurredDate: entity.DateOnly(date),
		Content:      s.sanitizer.Sanitize(req.Content),
		Mood:         req.Mood,
	}

	if err := s.repo.Create(ctx, reflection); err != nil {
		return nil, fmt.Errorf("create reflection: %w", err)
	}

	return toResponse(reflection), nil
}

func (s *reflectionService) GetReflectionsForDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]dto.ReflectionResponse, error) {
	reflections, err := s.repo.FindByUserAndDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("list reflections: %w", err)
	}

	responses := make([]dto.ReflectionResponse, 0, len(reflections))
	for _, r := range reflections {
		responses = append(responses, *toResponse(r))
	}
	return responses, nil
}

func (s *reflectionService) DeleteReflection(ctx context.Context, userID, id uuid.UUID) error {
	reflection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load reflection: %w", err)
	}
	if reflection == nil || reflection.UserID != userID {
		return fmt.Errorf("%w: reflection", apperror.ErrNotFound)
	}

	return s.repo.Delete(ctx, id)
}

func toResponse(r *entity.Reflection) *dto.ReflectionResponse {
	return &dto.ReflectionResponse{
		ID:           r.ID,
		OccurredDate: r.OccurredDate.Format("2006-01-02"),
		Content:      r.Content,
		Mood:         r.Mood,
		CreatedAt:    r.CreatedAt,
	}
}
