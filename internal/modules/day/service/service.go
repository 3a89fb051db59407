package day

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tandera.com/daypillar/internal/entity"
	actionDto "tandera.com/daypillar/internal/modules/action/dto"
	actionRepo "tandera.com/daypillar/internal/modules/action/repository"
	"tandera.com/daypillar/internal/modules/day/dto"
	habitDto "tandera.com/daypillar/internal/modules/habit/dto"
	habitRepo "tandera.com/daypillar/internal/modules/habit/repository"
	ledgerDto "tandera.com/daypillar/internal/modules/ledger/dto"
	ledger "tandera.com/daypillar/internal/modules/ledger/service"
	reflection "tandera.com/daypillar/internal/modules/reflection/service"
)

// DayService assembles the read-only daily timeline. It owns no tables; it
// composes the other modules' data for one (user, date).
type DayService interface {
	GetDaySummary(ctx context.Context, userID uuid.UUID, date time.Time) (*dto.DaySummaryResponse, error)
}

type dayService struct {
	actions     actionRepo.ActionRepository
	habits      habitRepo.HabitRepository
	reflections reflection.ReflectionService
	ledger      ledger.LedgerService
}

func NewDayService(actions actionRepo.ActionRepository, habits habitRepo.HabitRepository, reflections reflection.ReflectionService, ledgerSvc ledger.LedgerService) DayService {
	return &dayService{
		actions:     actions,
		habits:      habits,
		reflections: reflections,
		ledger:      ledgerSvc,
	}
}

func (s *dayService) GetDaySummary(ctx context.Context, userID uuid.UUID, date time.Time) (*dto.DaySummaryResponse, error) {
	day := entity.DateOnly(date)
	dayStr := day.Format("2006-01-02")

	actions, err := s.actions.FindByTargetDate(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("load actions for %s: %w", dayStr, err)
	}

	logs, err := s.habits.FindLogsByUserAndDate(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("load habit logs for %s: %w", dayStr, err)
	}

	reflections, err := s.reflections.GetReflectionsForDate(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	rollup, err := s.ledger.Rollup(ctx, userID, ledgerDto.RollupFilter{From: dayStr, To: dayStr})
	if err != nil {
		return nil, err
	}

	summary := &dto.DaySummaryResponse{
		Date:        dayStr,
		Actions:     make([]actionDto.ActionResponse, 0, len(actions)),
		Reflections: reflections,
		Points:      *rollup,
	}

	for _, a := range actions {
		summary.Actions = append(summary.Actions, actionDto.ActionResponse{
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
		})
	}

	summary.HabitLogs = make([]dto.HabitLogEntry, 0, len(logs))
	for _, l := range logs {
		entry := dto.HabitLogEntry{
			HabitLogResponse: habitDto.HabitLogResponse{
				ID:           l.ID,
				HabitID:      l.HabitID,
				OccurredDate: l.OccurredDate.Format("2006-01-02"),
				Status:       l.Status,
				UpdatedAt:    l.UpdatedAt,
			},
		}
		if habit, err := s.habits.FindByID(ctx, l.HabitID); err == nil && habit != nil {
			entry.HabitName = habit.Name
			entry.Points = habit.Points
		}
		summary.HabitLogs = append(summary.HabitLogs, entry)
	}

	return summary, nil
}
