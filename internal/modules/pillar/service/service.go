package pillar

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tandera.com/daypillar/internal/classifier"
	"tandera.com/daypillar/internal/entity"
	"tandera.com/daypillar/internal/modules/pillar/dto"
	"tandera.com/daypillar/internal/modules/pillar/repository"
	"tandera.com/daypillar/pkg/apperror"
)

type PillarService interface {
	CreatePillar(ctx context.Context, userID uuid.UUID, req dto.CreatePillarRequest) (*dto.PillarResponse, error)
	GetPillars(ctx context.Context, userID uuid.UUID) ([]dto.PillarResponse, error)
	UpdatePillar(ctx context.Context, userID, id uuid.UUID, req dto.UpdatePillarRequest) (*dto.PillarResponse, error)
	DeletePillar(ctx context.Context, userID, id uuid.UUID) error
	ListRefs(ctx context.Context, userID uuid.UUID) ([]classifier.PillarRef, error)
}

type pillarService struct {
	repo repository.PillarRepository
}

func NewPillarService(repo repository.PillarRepository) PillarService {
	return &pillarService{repo: repo}
}

func (s *pillarService) CreatePillar(ctx context.Context, userID uuid.UUID, req dto.CreatePillarRequest) (*dto.PillarResponse, error) {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(req.Name)), " ", "-")

	existing, err := s.repo.FindBySlug(ctx, userID, slug)
	if err != nil {
		return nil, fmt.Errorf("check pillar slug: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: pillar %q already exists", apperror.ErrConflict, req.Name)
	}

	pillar := &entity.Pillar{
		UserID:   userID,
		Name:     strings.TrimSpace(req.Name),
		Slug:     slug,
		Color:    req.Color,
		Position: req.Position,
	}

	if err := s.repo.Create(ctx, pillar); err != nil {
		return nil, fmt.Errorf("create pillar: %w", err)
	}

	return toResponse(pillar), nil
}

func (s *pillarService) GetPillars(ctx context.Context, userID uuid.UUID) ([]dto.PillarResponse, error) {
	pillars, err := s.repo.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list pillars: %w", err)
	}

	responses := make([]dto.PillarResponse, 0, len(pillars))
	for _, p := range pillars {
		responses = append(responses, *toResponse(p))
	}
	return responses, nil
}

func (s *pillarService) UpdatePillar(ctx context.Context, userID, id uuid.UUID, req dto.UpdatePillarRequest) (*dto.PillarResponse, error) {
	pillar, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		pillar.Name = strings.TrimSpace(*req.Name)
		pillar.Slug = strings.ReplaceAll(strings.ToLower(pillar.Name), " ", "-")
	}
	if req.Color != nil {
		pillar.Color = *req.Color
	}
	if req.Position != nil {
		pillar.Position = *req.Position
	}

	if err := s.repo.Update(ctx, pillar); err != nil {
		return nil, fmt.Errorf("update pillar: %w", err)
	}
	return toResponse(pillar), nil
}

func (s *pillarService) DeletePillar(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.findOwned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// ListRefs feeds the classifier its pillar universe.
func (s *pillarService) ListRefs(ctx context.Context, userID uuid.UUID) ([]classifier.PillarRef, error) {
	pillars, err := s.repo.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	refs := make([]classifier.PillarRef, 0, len(pillars))
	for _, p := range pillars {
		refs = append(refs, classifier.PillarRef{ID: p.ID.String(), Name: p.Name})
	}
	return refs, nil
}

func (s *pillarService) findOwned(ctx context.Context, userID, id uuid.UUID) (*entity.Pillar, error) {
	pillar, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: pillar", apperror.ErrNotFound)
	}
	if pillar.UserID != userID {
		return nil, fmt.Errorf("%w: pillar", apperror.ErrNotFound)
	}
	return pillar, nil
}

func toResponse(p *entity.Pillar) *dto.PillarResponse {
	return &dto.PillarResponse{
		ID:        p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		Color:     p.Color,
		Position:  p.Position,
		CreatedAt: p.CreatedAt,
	}
}
