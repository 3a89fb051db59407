package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reflection is a free-form journal entry shown on the daily timeline.
// Reflections never earn points and are never classified.
type Reflection struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	OccurredDate time.Time `gorm:"index;not null" json:"occurred_date"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	Mood         string    `gorm:"size:20" json:"mood,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *Reflection) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}
