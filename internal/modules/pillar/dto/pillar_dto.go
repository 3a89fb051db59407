package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreatePillarRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Color    string `json:"color" binding:"omitempty,max=20"`
	Position int    `json:"position" binding:"omitempty,min=0"`
}

type UpdatePillarRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=100"`
	Color    *string `json:"color" binding:"omitempty,max=20"`
	Position *int    `json:"position" binding:"omitempty,min=0"`
}

type PillarResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Color     string    `json:"color"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
