package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tandera.com/daypillar/internal/entity"
	"tandera.com/daypillar/internal/modules/ledger/dto"
	"tandera.com/daypillar/internal/modules/ledger/repository"
	"tandera.com/daypillar/pkg/apperror"
	commonDto "tandera.com/daypillar/pkg/dto"
)

type LedgerService interface {
	ListEvents(ctx context.Context, userID uuid.UUID, filter dto.ListEventsFilter) (*dto.PaginatedPointEventsResponse, error)
	Rollup(ctx context.Context, userID uuid.UUID, filter dto.RollupFilter) (*dto.RollupResponse, error)
	PublishPointUpdate(ctx context.Context, ev *entity.PointEvent, action string)
}

type ledgerService struct {
	repo        repository.PointEventRepository
	redisClient *redis.Client
}

func NewLedgerService(repo repository.PointEventRepository, redisClient *redis.Client) LedgerService {
	return &ledgerService{repo: repo, redisClient: redisClient}
}

func (s *ledgerService) ListEvents(ctx context.Context, userID uuid.UUID, filter dto.ListEventsFilter) (*dto.PaginatedPointEventsResponse, error) {
	from, to, err := parseRange(filter.From, filter.To)
	if err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	events, total, err := s.repo.ListByUser(ctx, userID, from, to, filter.ActiveOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list point events: %w", err)
	}

	responses := make([]dto.PointEventResponse, 0, len(events))
	for _, ev := range events {
		responses = append(responses, dto.PointEventResponse{
			ID:           ev.ID,
			SourceType:   ev.SourceType,
			SourceID:     ev.SourceID,
			PillarIDs:    ev.PillarIDs,
			Points:       ev.Points,
			BonusGranted: ev.BonusGranted,
			Active:       ev.Active,
			CreatedAt:    ev.CreatedAt,
			UpdatedAt:    ev.UpdatedAt,
		})
	}

	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}

	return &dto.PaginatedPointEventsResponse{
		Data: responses,
		Meta: commonDto.PaginationMeta{
			CurrentPage: page,
			Limit:       limit,
			TotalItems:  total,
			TotalPages:  totalPages,
		},
	}, nil
}

// Rollup aggregates active events in Go rather than SQL: the pillar snapshot
// is a JSON column, and a single multi-pillar event counts its full points
// toward each pillar it touches.
func (s *ledgerService) Rollup(ctx context.Context, userID uuid.UUID, filter dto.RollupFilter) (*dto.RollupResponse, error) {
	from, err := time.Parse("2006-01-02", filter.From)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid from date", apperror.ErrBadRequest)
	}
	toDay, err := time.Parse("2006-01-02", filter.To)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid to date", apperror.ErrBadRequest)
	}
	to := toDay.AddDate(0, 0, 1)

	events, err := s.repo.ListActiveInRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load events for rollup: %w", err)
	}

	total := 0
	byPillar := map[string]int{}
	byDay := map[string]int{}

	for _, ev := range events {
		total += ev.Points
		byDay[entity.DateOnly(ev.CreatedAt).Format("2006-01-02")] += ev.Points
		for _, pid := range ev.PillarIDs {
			byPillar[pid] += ev.Points
		}
	}

	pillarTotals := make([]dto.PillarTotal, 0, len(byPillar))
	for pid, pts := range byPillar {
		pillarTotals = append(pillarTotals, dto.PillarTotal{PillarID: pid, Points: pts})
	}
	sort.Slice(pillarTotals, func(i, j int) bool {
		if pillarTotals[i].Points != pillarTotals[j].Points {
			return pillarTotals[i].Points > pillarTotals[j].Points
		}
		return pillarTotals[i].PillarID < pillarTotals[j].PillarID
	})

	dayTotals := make([]dto.DayTotal, 0, len(byDay))
	for day, pts := range byDay {
		dayTotals = append(dayTotals, dto.DayTotal{Date: day, Points: pts})
	}
	sort.Slice(dayTotals, func(i, j int) bool { return dayTotals[i].Date < dayTotals[j].Date })

	return &dto.RollupResponse{
		From:        filter.From,
		To:          filter.To,
		TotalPoints: total,
		ByPillar:    pillarTotals,
		ByDay:       dayTotals,
	}, nil
}

// PublishPointUpdate fans the ledger change out to live websocket listeners.
// Fire and forget: a dropped update never fails reconciliation.
func (s *ledgerService) PublishPointUpdate(ctx context.Context, ev *entity.PointEvent, action string) {
	if s.redisClient == nil {
		return
	}

	payload, err := json.Marshal(dto.PointUpdate{
		Action:       action,
		PointEventID: ev.ID,
		SourceType:   ev.SourceType,
		SourceID:     ev.SourceID,
		PillarIDs:    ev.PillarIDs,
		Points:       ev.Points,
		Active:       ev.Active,
		OccurredAt:   time.Now().UTC(),
	})
	if err != nil {
		return
	}

	channel := fmt.Sprintf("user_points:%s", ev.UserID)
	if err := s.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("ledger: failed to publish point update for user %s: %v", ev.UserID, err)
	}
}

func parseRange(fromStr, toStr string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid from date", apperror.ErrBadRequest)
		}
		from = &t
	}
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid to date", apperror.ErrBadRequest)
		}
		end := t.AddDate(0, 0, 1)
		to = &end
	}
	return from, to, nil
}
