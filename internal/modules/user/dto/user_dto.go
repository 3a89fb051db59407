package dto

import (
	"time"

	"github.com/google/uuid"
)

type UpdateUserRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=100"`
	Timezone    *string `json:"timezone" binding:"omitempty,max=50"`
}

type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Timezone    string    `json:"timezone"`
	CreatedAt   time.Time `json:"created_at"`
}
