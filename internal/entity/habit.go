package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HabitLogStatus string

const (
	HabitLogStatusPending   HabitLogStatus = "pending"
	HabitLogStatusCompleted HabitLogStatus = "completed"
	HabitLogStatusSkipped   HabitLogStatus = "skipped"
)

// Habit is a recurring routine definition. Pillar ownership lives here, not
// on the per-date logs; the reconciler reads it at award time.
type Habit struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	Name           string     `gorm:"size:100;not null" json:"name"`
	Description    string     `gorm:"type:text" json:"description"`
	PillarIDs      PillarSet  `gorm:"type:text;serializer:json" json:"pillar_ids"`
	Points         int        `gorm:"default:0" json:"points"`
	FrequencyUnit  string     `gorm:"size:20;default:daily" json:"frequency_unit"`
	FrequencyCount int        `gorm:"default:1" json:"frequency_count"`
	Active         bool       `gorm:"default:true;index" json:"active"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (h *Habit) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID, err = uuid.NewV7()
	}
	return
}

// HabitLog is one completion record for a habit on a specific date. The
// (habit_id, occurred_date) unique index keeps the day projection idempotent.
type HabitLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	HabitID      uuid.UUID      `gorm:"type:uuid;index:idx_habit_log_unique,unique;not null" json:"habit_id"`
	UserID       uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	OccurredDate time.Time      `gorm:"index:idx_habit_log_unique,unique;not null" json:"occurred_date"`
	Status       HabitLogStatus `gorm:"size:20;default:pending" json:"status"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l *HabitLog) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID, err = uuid.NewV7()
	}
	return
}

// DateOnly normalizes a timestamp to midnight UTC, the canonical form for
// occurred_date values and habit point-event keys.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
