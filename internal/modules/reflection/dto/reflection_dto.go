package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateReflectionRequest struct {
	Date    string `json:"date" binding:"required,datetime=2006-01-02"`
	Content string `json:"content" binding:"required"`
	Mood    string `json:"mood" binding:"omitempty,oneof=great good neutral low rough"`
}

type ReflectionResponse struct {
	ID           uuid.UUID `json:"id"`
	OccurredDate string    `json:"occurred_date"`
	Content      string    `json:"content"`
	Mood         string    `json:"mood,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
