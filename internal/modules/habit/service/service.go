package habit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"tandera.com/daypillar/internal/changefeed"
	"tandera.com/daypillar/internal/entity"
	"tandera.com/daypillar/internal/modules/habit/dto"
	"tandera.com/daypillar/internal/modules/habit/repository"
	"tandera.com/daypillar/pkg/apperror"
)

type HabitService interface {
	CreateHabit(ctx context.Context, userID uuid.UUID, req dto.CreateHabitRequest) (*dto.HabitResponse, error)
	GetHabits(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]dto.HabitResponse, error)
	UpdateHabit(ctx context.Context, userID, id uuid.UUID, req dto.UpdateHabitRequest) (*dto.HabitResponse, error)
	DeleteHabit(ctx context.Context, userID, id uuid.UUID) error

	SetLogStatus(ctx context.Context, userID, habitID uuid.UUID, req dto.SetLogStatusRequest) (*dto.HabitLogResponse, error)
	GetLogsForDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]dto.HabitLogResponse, error)
	ProjectDay(ctx context.Context, date time.Time) (int, error)
}

type habitService struct {
	repo      repository.HabitRepository
	feed      changefeed.Feed
	sanitizer *bluemonday.Policy
}

func NewHabitService(repo repository.HabitRepository, feed changefeed.Feed) HabitService {
	return &habitService{
		repo:      repo,
		feed:      feed,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *habitService) CreateHabit(ctx context.Context, userID uuid.UUID, req dto.CreateHabitRequest) (*dto.HabitResponse, error) {
	startDate, endDate, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	frequencyUnit := req.FrequencyUnit
	if frequencyUnit == "" {
		frequencyUnit = "daily"
	}
	frequencyCount := req.FrequencyCount
	if frequencyCount < 1 {
		frequencyCount = 1
	}

	habit := &entity.Habit{
		UserID:         userID,
		Name:           s.sanitizer.Sanitize(req.Name),
		Description:    s.sanitizer.Sanitize(req.Description),
		PillarIDs:      req.PillarIDs,
		Points:         req.Points,
		FrequencyUnit:  frequencyUnit,
		FrequencyCount: frequencyCount,
		Active:         true,
		StartDate:      startDate,
		EndDate:        endDate,
	}

	if err := s.repo.Create(ctx, habit); err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}

	return toHabitResponse(habit), nil
}

func (s *habitService) GetHabits(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]dto.HabitResponse, error) {
	habits, err := s.repo.FindAllByUser(ctx, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	responses := make([]dto.HabitResponse, 0, len(habits))
	for _, h := range habits {
		responses = append(responses, *toHabitResponse(h))
	}
	return responses, nil
}

func (s *habitService) UpdateHabit(ctx context.Context, userID, id uuid.UUID, req dto.UpdateHabitRequest) (*dto.HabitResponse, error) {
	habit, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		habit.Name = s.sanitizer.Sanitize(*req.Name)
	}
	if req.Description != nil {
		habit.Description = s.sanitizer.Sanitize(*req.Description)
	}
	if req.PillarIDs != nil {
		habit.PillarIDs = *req.PillarIDs
	}
	if req.Points != nil {
		habit.Points = *req.Points
	}
	if req.FrequencyUnit != nil {
		habit.FrequencyUnit = *req.FrequencyUnit
	}
	if req.FrequencyCount != nil {
		habit.FrequencyCount = *req.FrequencyCount
	}
	if req.Active != nil {
		habit.Active = *req.Active
	}
	if req.StartDate != nil || req.EndDate != nil {
		startStr, endStr := "", ""
		if req.StartDate != nil {
			startStr = *req.StartDate
		}
		if req.EndDate != nil {
			endStr = *req.EndDate
		}
		startDate, endDate, err := parseWindow(startStr, endStr)
		if err != nil {
			return nil, err
		}
		if req.StartDate != nil {
			habit.StartDate = startDate
		}
		if req.EndDate != nil {
			habit.EndDate = endDate
		}
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return toHabitResponse(habit), nil
}

// DeleteHabit removes the habit and its logs. Each log deletion is published
// so any surviving awards are reversed.
func (s *habitService) DeleteHabit(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.findOwned(ctx, userID, id); err != nil {
		return err
	}

	logs, err := s.repo.FindLogsByHabit(ctx, id)
	if err != nil {
		return fmt.Errorf("list habit logs: %w", err)
	}

	for _, habitLog := range logs {
		if err := s.repo.DeleteLog(ctx, habitLog.ID); err != nil {
			return fmt.Errorf("delete habit log %s: %w", habitLog.ID, err)
		}
		s.publishLog(ctx, habitLog.ID, habitLog, nil)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return nil
}

// SetLogStatus is the single transition endpoint: complete, skip, and the
// reverse of either all land here. The log row is created on demand so a
// check-in works even before the daily projection has run.
func (s *habitService) SetLogStatus(ctx context.Context, userID, habitID uuid.UUID, req dto.SetLogStatusRequest) (*dto.HabitLogResponse, error) {
	habit, err := s.findOwned(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date", apperror.ErrBadRequest)
	}
	date = entity.DateOnly(date)

	habitLog := &entity.HabitLog{
		HabitID:      habit.ID,
		UserID:       userID,
		OccurredDate: date,
		Status:       entity.HabitLogStatusPending,
	}
	created, err := s.repo.CreateLogIfAbsent(ctx, habitLog)
	if err != nil {
		return nil, fmt.Errorf("ensure habit log: %w", err)
	}
	if !created {
		habitLog, err = s.repo.FindLogByHabitAndDate(ctx, habit.ID, date)
		if err != nil {
			return nil, fmt.Errorf("load habit log: %w", err)
		}
		if habitLog == nil {
			return nil, fmt.Errorf("habit log for %s on %s missing after insert conflict", habit.ID, req.Date)
		}
	}

	status := entity.HabitLogStatus(req.Status)
	if habitLog.Status == status {
		return toLogResponse(habitLog), nil
	}
	before := *habitLog

	if err := s.repo.UpdateLogStatus(ctx, habitLog.ID, status); err != nil {
		return nil, fmt.Errorf("update habit log status: %w", err)
	}
	habitLog.Status = status

	s.publishLog(ctx, habitLog.ID, &before, habitLog)

	return toLogResponse(habitLog), nil
}

func (s *habitService) GetLogsForDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]dto.HabitLogResponse, error) {
	logs, err := s.repo.FindLogsByUserAndDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}

	responses := make([]dto.HabitLogResponse, 0, len(logs))
	for _, l := range logs {
		responses = append(responses, *toLogResponse(l))
	}
	return responses, nil
}

// ProjectDay creates the day's pending logs for every habit active on the
// date. Idempotent: reruns hit the unique index and create nothing.
func (s *habitService) ProjectDay(ctx context.Context, date time.Time) (int, error) {
	habits, err := s.repo.FindActiveOn(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("list active habits: %w", err)
	}

	created := 0
	for _, habit := range habits {
		habitLog := &entity.HabitLog{
			HabitID:      habit.ID,
			UserID:       habit.UserID,
			OccurredDate: entity.DateOnly(date),
			Status:       entity.HabitLogStatusPending,
		}
		ok, err := s.repo.CreateLogIfAbsent(ctx, habitLog)
		if err != nil {
			return created, fmt.Errorf("project habit %s: %w", habit.ID, err)
		}
		if ok {
			created++
		}
	}

	log.Printf("habit: projected %d pending logs for %s", created, entity.DateOnly(date).Format("2006-01-02"))
	return created, nil
}

func (s *habitService) findOwned(ctx context.Context, userID, id uuid.UUID) (*entity.Habit, error) {
	habit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load habit: %w", err)
	}
	if habit == nil || habit.UserID != userID {
		return nil, fmt.Errorf("%w: habit", apperror.ErrNotFound)
	}
	return habit, nil
}

func (s *habitService) publishLog(ctx context.Context, id uuid.UUID, before, after *entity.HabitLog) {
	var b, a any
	if before != nil {
		b = before
	}
	if after != nil {
		a = after
	}

	ev, err := changefeed.NewEvent(changefeed.EntityHabitLog, id.String(), b, a)
	if err != nil {
		log.Printf("habit: failed to build change event for log %s: %v", id, err)
		return
	}
	if err := s.feed.Publish(ctx, ev); err != nil {
		log.Printf("habit: failed to publish change event for log %s: %v", id, err)
	}
}

func parseWindow(startStr, endStr string) (*time.Time, *time.Time, error) {
	var startDate, endDate *time.Time
	if startStr != "" {
		t, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid start date", apperror.ErrBadRequest)
		}
		startDate = &t
	}
	if endStr != "" {
		t, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid end date", apperror.ErrBadRequest)
		}
		endDate = &t
	}
	if startDate != nil && endDate != nil && endDate.Before(*startDate) {
		return nil, nil, fmt.Errorf("%w: end date before start date", apperror.ErrBadRequest)
	}
	return startDate, endDate, nil
}

func toHabitResponse(h *entity.Habit) *dto.HabitResponse {
	return &dto.HabitResponse{
		ID:             h.ID,
		Name:           h.Name,
		Description:    h.Description,
		PillarIDs:      h.PillarIDs,
		Points:         h.Points,
		FrequencyUnit:  h.FrequencyUnit,
		FrequencyCount: h.FrequencyCount,
		Active:         h.Active,
		StartDate:      h.StartDate,
		EndDate:        h.EndDate,
		CreatedAt:      h.CreatedAt,
		UpdatedAt:      h.UpdatedAt,
	}
}

func toLogResponse(l *entity.HabitLog) *dto.HabitLogResponse {
	return &dto.HabitLogResponse{
		ID:           l.ID,
		HabitID:      l.HabitID,
		OccurredDate: l.OccurredDate.Format("2006-01-02"),
		Status:       l.Status,
		UpdatedAt:    l.UpdatedAt,
	}
}
