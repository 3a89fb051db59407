package dto

import (
	"time"

	"github.com/google/uuid"

	"tandera.com/daypillar/internal/entity"
)

type CreateHabitRequest struct {
	Name           string   `json:"name" binding:"required,max=100"`
	Description    string   `json:"description"`
	PillarIDs      []string `json:"pillar_ids" binding:"omitempty,dive,uuid"`
	Points         int      `json:"points" binding:"omitempty,min=0"`
	FrequencyUnit  string   `json:"frequency_unit" binding:"omitempty,oneof=daily weekly"`
	FrequencyCount int      `json:"frequency_count" binding:"omitempty,min=1"`
	StartDate      string   `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate        string   `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

type UpdateHabitRequest struct {
	Name           *string   `json:"name" binding:"omitempty,max=100"`
	Description    *string   `json:"description"`
	PillarIDs      *[]string `json:"pillar_ids" binding:"omitempty,dive,uuid"`
	Points         *int      `json:"points" binding:"omitempty,min=0"`
	FrequencyUnit  *string   `json:"frequency_unit" binding:"omitempty,oneof=daily weekly"`
	FrequencyCount *int      `json:"frequency_count" binding:"omitempty,min=1"`
	Active         *bool     `json:"active"`
	StartDate      *string   `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate        *string   `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

type SetLogStatusRequest struct {
	Date   string `json:"date" binding:"required,datetime=2006-01-02"`
	Status string `json:"status" binding:"required,oneof=pending completed skipped"`
}

type HabitResponse struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	PillarIDs      entity.PillarSet `json:"pillar_ids"`
	Points         int              `json:"points"`
	FrequencyUnit  string           `json:"frequency_unit"`
	FrequencyCount int              `json:"frequency_count"`
	Active         bool             `json:"active"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type HabitLogResponse struct {
	ID           uuid.UUID             `json:"id"`
	HabitID      uuid.UUID             `json:"habit_id"`
	OccurredDate string                `json:"occurred_date"`
	Status       entity.HabitLogStatus `json:"status"`
	UpdatedAt    time.Time             `json:"updated_at"`
}
