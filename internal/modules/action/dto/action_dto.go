package dto

import (
	"time"

	"github.com/google/uuid"

	"tandera.com/daypillar/internal/entity"
	searchSvc "tandera.com/daypillar/internal/modules/search/service"
	commonDto "tandera.com/daypillar/pkg/dto"
)

type CreateActionRequest struct {
	Title        string `json:"title" binding:"required,max=255"`
	Description  string `json:"description"`
	TargetDate   string `json:"target_date" binding:"required,datetime=2006-01-02"`
	Tier         string `json:"tier" binding:"omitempty,oneof=quick standard deep"`
	BountyPoints int    `json:"bounty_points" binding:"omitempty,min=0"`
	BonusPoints  int    `json:"bonus_points" binding:"omitempty,min=0"`
}

type UpdateActionRequest struct {
	Title        *string `json:"title" binding:"omitempty,max=255"`
	Description  *string `json:"description"`
	TargetDate   *string `json:"target_date" binding:"omitempty,datetime=2006-01-02"`
	Tier         *string `json:"tier" binding:"omitempty,oneof=quick standard deep"`
	BountyPoints *int    `json:"bounty_points" binding:"omitempty,min=0"`
	BonusPoints  *int    `json:"bonus_points" binding:"omitempty,min=0"`
}

type ListActionsFilter struct {
	Status string `form:"status" binding:"omitempty,oneof=pending completed"`
	From   string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Page   int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit  int    `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
}

type SearchActionsFilter struct {
	Query string `form:"q" binding:"required"`
	Limit int64  `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
}

type ActionResponse struct {
	ID                   uuid.UUID                   `json:"id"`
	Title                string                      `json:"title"`
	Description          string                      `json:"description"`
	Status               entity.ActionStatus         `json:"status"`
	TargetDate           string                      `json:"target_date"`
	PillarIDs            entity.PillarSet            `json:"pillar_ids"`
	Tier                 string                      `json:"tier"`
	BountyPoints         int                         `json:"bounty_points"`
	BonusPoints          int                         `json:"bonus_points"`
	ClassificationStatus entity.ClassificationStatus `json:"classification_status"`
	CompletedAt          *time.Time                  `json:"completed_at,omitempty"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

type PaginatedActionsResponse struct {
	Data []ActionResponse         `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

type SearchActionsResponse struct {
	Data []searchSvc.ActionHit `json:"data"`
}
