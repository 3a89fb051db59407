package action

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"tandera.com/daypillar/internal/changefeed"
	"tandera.com/daypillar/internal/entity"
	"tandera.com/daypillar/internal/modules/action/dto"
	"tandera.com/daypillar/internal/modules/action/repository"
	searchSvc "tandera.com/daypillar/internal/modules/search/service"
	"tandera.com/daypillar/pkg/apperror"
	commonDto "tandera.com/daypillar/pkg/dto"
)

type ActionService interface {
	CreateAction(ctx context.Context, userID uuid.UUID, req dto.CreateActionRequest) (*dto.ActionResponse, error)
	GetAction(ctx context.Context, userID, id uuid.UUID) (*dto.ActionResponse, error)
	ListActions(ctx context.Context, userID uuid.UUID, filter dto.ListActionsFilter) (*dto.PaginatedActionsResponse, error)
	SearchActions(ctx context.Context, userID uuid.UUID, filter dto.SearchActionsFilter) (*dto.SearchActionsResponse, error)
	UpdateAction(ctx context.Context, userID, id uuid.UUID, req dto.UpdateActionRequest) (*dto.ActionResponse, error)
	DeleteAction(ctx context.Context, userID, id uuid.UUID) error
	CompleteAction(ctx context.Context, userID, id uuid.UUID) (*dto.ActionResponse, error)
	UncompleteAction(ctx context.Context, userID, id uuid.UUID) (*dto.ActionResponse, error)
	UpdateClassification(ctx context.Context, actionID uuid.UUID, pillars entity.PillarSet, status entity.ClassificationStatus) error
}

type actionService struct {
	repo      repository.ActionRepository
	feed      changefeed.Feed
	search    searchSvc.SearchService
	sanitizer *bluemonday.Policy
}

func NewActionService(repo repository.ActionRepository, feed changefeed.Feed, search searchSvc.SearchService) ActionService {
	return &actionService{
		repo:      repo,
		feed:      feed,
		search:    search,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *actionService) CreateAction(ctx context.Context, userID uuid.UUID, req dto.CreateActionRequest) (*dto.ActionResponse, error) {
	targetDate, err := time.Parse("2006-01-02", req.TargetDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid target date", apperror.ErrBadRequest)
	}

	action := &entity.Action{
		UserID:               userID,
		Title:                s.sanitizer.Sanitize(req.Title),
		Description:          s.sanitizer.Sanitize(req.Description),
		Status:               entity.ActionStatusPending,
		TargetDate:           targetDate,
		Tier:                 req.Tier,
		BountyPoints:         req.BountyPoints,
		BonusPoints:          req.BonusPoints,
		ClassificationStatus: entity.ClassificationUnclassified,
	}

	if err := s.repo.Create(ctx, action); err != nil {
		return nil, fmt.Errorf("create action: %w", err)
	}

	s.publish(ctx, action.ID, nil, action)
	s.index(action)

	return toResponse(action), nil
}

func (s *actionService) GetAction(ctx context.Context, userID, id uuid.UUID) (*dto.ActionResponse, error) {
	action, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return toResponse(action), nil
}

func (s *actionService) ListActions(ctx context.Context, userID uuid.UUID, filter dto.ListActionsFilter) (*dto.PaginatedActionsResponse, error) {
	var from, to *time.Time
	if filter.From != "" {
		t, err := time.Parse("2006-01-02", filter.From)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid from date", apperror.ErrBadRequest)
		}
		from = &t
	}
	if filter.To != "" {
		t, err := time.Parse("2006-01-02", filter.To)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid to date", apperror.ErrBadRequest)
		}
		end := t.AddDate(0, 0, 1)
		to = &end
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}

	actions, total, err := s.repo.FindAllByUser(ctx, userID, entity.ActionStatus(filter.Status), from, to, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}

	responses := make([]dto.ActionResponse, 0, len(actions))
	for _, a := range actions {
		responses = append(responses, *toResponse(a))
	}

	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}

	return &dto.PaginatedActionsResponse{
		Data: responses,
		Meta: commonDto.PaginationMeta{
			CurrentPage: page,
			Limit:       limit,
			TotalItems:  total,
			TotalPages:  totalPages,
		},
	}, nil
}

func (s *actionService) SearchActions(ctx context.Context, userID uuid.UUID, filter dto.SearchActionsFilter) (*dto.SearchActionsResponse, error) {
	if s.search == nil {
		return nil, fmt.Errorf("%w: search unavailable", apperror.ErrInternal)
	}

	hits, err := s.search.SearchActions(userID.String(), filter.Query, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("search actions: %w", err)
	}
	return &dto.SearchActionsResponse{Data: hits}, nil
}

func (s *actionService) UpdateAction(ctx context.Context, userID, id uuid.UUID, req dto.UpdateActionRequest) (*dto.ActionResponse, error) {
	action, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	before := *action

	if req.Title != nil {
		action.Title = s.sanitizer.Sanitize(*req.Title)
	}
	if req.Description != nil {
		action.Description = s.sanitizer.Sanitize(*req.Description)
	}
	if req.TargetDate != nil {
		targetDate, err := time.Parse("2006-01-02", *req.TargetDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid target date", apperror.ErrBadRequest)
		}
		action.TargetDate = targetDate
	}
	if req.Tier != nil {
		action.Tier = *req.Tier
	}
	if req.BountyPoints != nil {
		action.BountyPoints = *req.BountyPoints
	}
	if req.BonusPoints != nil {
		action.BonusPoints = *req.BonusPoints
	}

	if err := s.repo.Update(ctx, action); err != nil {
		return nil, fmt.Errorf("update action: %w", err)
	}

	s.publish(ctx, action.ID, &before, action)
	s.index(action)

	return toResponse(action), nil
}

func (s *actionService) DeleteAction(ctx context.Context, userID, id uuid.UUID) error {
	action, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete action: %w", err)
	}

	s.publish(ctx, id, action, nil)
	if s.search != nil {
		if err := s.search.DeleteAction(id.String()); err != nil {
			log.Printf("action: failed to remove %s from search index: %v", id, err)
		}
	}
	return nil
}

func (s *actionService) CompleteAction(ctx context.Context, userID, id uuid.UUID) (*dto.ActionResponse, error) {
	return s.setStatus(ctx, userID, id, entity.ActionStatusCompleted)
}

func (s *actionService) UncompleteAction(ctx context.Context, userID, id uuid.UUID) (*dto.ActionResponse, error) {
	return s.setStatus(ctx, userID, id, entity.ActionStatusPending)
}

func (s *actionService) setStatus(ctx context.Context, userID, id uuid.UUID, status entity.ActionStatus) (*dto.ActionResponse, error) {
	action, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if action.Status == status {
		return toResponse(action), nil
	}
	before := *action

	action.Status = status
	if status == entity.ActionStatusCompleted {
		now := time.Now().UTC()
		action.CompletedAt = &now
	} else {
		action.CompletedAt = nil
	}

	if err := s.repo.Update(ctx, action); err != nil {
		return nil, fmt.Errorf("update action status: %w", err)
	}

	s.publish(ctx, action.ID, &before, action)
	s.index(action)

	return toResponse(action), nil
}

// UpdateClassification is the classifier write-back. The published change
// event re-enters the reconciliation pipeline so an award issued before
// classification gets its pillar snapshot corrected.
func (s *actionService) UpdateClassification(ctx context.Context, actionID uuid.UUID, pillars entity.PillarSet, status entity.ClassificationStatus) error {
	before, err := s.repo.FindByID(ctx, actionID)
	if err != nil {
		return fmt.Errorf("load action %s: %w", actionID, err)
	}
	if before == nil {
		// Deleted mid-classification; nothing to write back.
		return nil
	}

	if err := s.repo.UpdateClassification(ctx, actionID, pillars, status); err != nil {
		return fmt.Errorf("persist classification for %s: %w", actionID, err)
	}

	after, err := s.repo.FindByID(ctx, actionID)
	if err != nil {
		return fmt.Errorf("reload action %s: %w", actionID, err)
	}
	if after == nil {
		return nil
	}

	s.publish(ctx, actionID, before, after)
	s.index(after)
	return nil
}

func (s *actionService) findOwned(ctx context.Context, userID, id uuid.UUID) (*entity.Action, error) {
	action, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load action: %w", err)
	}
	if action == nil || action.UserID != userID {
		return nil, fmt.Errorf("%w: action", apperror.ErrNotFound)
	}
	return action, nil
}

func (s *actionService) publish(ctx context.Context, id uuid.UUID, before, after *entity.Action) {
	var b, a any
	if before != nil {
		b = before
	}
	if after != nil {
		a = after
	}

	ev, err := changefeed.NewEvent(changefeed.EntityAction, id.String(), b, a)
	if err != nil {
		log.Printf("action: failed to build change event for %s: %v", id, err)
		return
	}
	if err := s.feed.Publish(ctx, ev); err != nil {
		log.Printf("action: failed to publish change event for %s: %v", id, err)
	}
}

func (s *actionService) index(action *entity.Action) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexAction(action); err != nil {
		log.Printf("action: failed to index %s: %v", action.ID, err)
	}
}

func toResponse(a *entity.Action) *dto.ActionResponse {
	return &dto.ActionResponse{
		ID:                   a.ID,
		Title:                a.Title,
		Description:          a.Description,
		Status:               a.Status,
		TargetDate:           a.TargetDate.Format("2006-01-02"),
		PillarIDs:            a.PillarIDs,
		Tier:                 a.Tier,
		BountyPoints:         a.BountyPoints,
		BonusPoints:          a.BonusPoints,
		ClassificationStatus: a.ClassificationStatus,
		CompletedAt:          a.CompletedAt,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}
