package dto

import (
	"time"

	"github.com/google/uuid"

	"tandera.com/daypillar/internal/entity"
	commonDto "tandera.com/daypillar/pkg/dto"
)

type ListEventsFilter struct {
	From       string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To         string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	ActiveOnly bool   `form:"active_only"`
	Page       int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit      int    `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
}

type PointEventResponse struct {
	ID           uuid.UUID         `json:"id"`
	SourceType   entity.SourceType `json:"source_type"`
	SourceID     string            `json:"source_id"`
	PillarIDs    entity.PillarSet  `json:"pillar_ids"`
	Points       int               `json:"points"`
	BonusGranted bool              `json:"bonus_granted"`
	Active       bool              `json:"active"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type PaginatedPointEventsResponse struct {
	Data []PointEventResponse     `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

type RollupFilter struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to" binding:"required,datetime=2006-01-02"`
}

type PillarTotal struct {
	PillarID string `json:"pillar_id"`
	Points   int    `json:"points"`
}

type DayTotal struct {
	Date   string `json:"date"`
	Points int    `json:"points"`
}

type RollupResponse struct {
	From        string        `json:"from"`
	To          string        `json:"to"`
	TotalPoints int           `json:"total_points"`
	ByPillar    []PillarTotal `json:"by_pillar"`
	ByDay       []DayTotal    `json:"by_day"`
}

// PointUpdate is the live payload pushed over the websocket whenever the
// ledger changes.
type PointUpdate struct {
	Action       string            `json:"action"`
	PointEventID uuid.UUID         `json:"point_event_id"`
	SourceType   entity.SourceType `json:"source_type"`
	SourceID     string            `json:"source_id"`
	PillarIDs    entity.PillarSet  `json:"pillar_ids"`
	Points       int               `json:"points"`
	Active       bool              `json:"active"`
	OccurredAt   time.Time         `json:"occurred_at"`
}
