package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusCompleted ActionStatus = "completed"
)

type ClassificationStatus string

const (
	ClassificationUnclassified ClassificationStatus = "unclassified"
	ClassificationClassified   ClassificationStatus = "classified"
	ClassificationFailed       ClassificationStatus = "failed"
)

// Action is a user task. Pillar assignment is written by the classifier;
// everything else belongs to the CRUD layer.
type Action struct {
	ID                   uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID            `gorm:"type:uuid;index;not null" json:"user_id"`
	Title                string               `gorm:"size:255;not null" json:"title"`
	Description          string               `gorm:"type:text" json:"description"`
	Status               ActionStatus         `gorm:"size:20;default:pending;index" json:"status"`
	TargetDate           time.Time            `gorm:"index" json:"target_date"`
	PillarIDs            PillarSet            `gorm:"type:text;serializer:json" json:"pillar_ids"`
	Tier                 string               `gorm:"size:20" json:"tier"`
	BountyPoints         int                  `gorm:"default:0" json:"bounty_points"`
	BonusPoints          int                  `gorm:"default:0" json:"bonus_points"`
	ClassificationStatus ClassificationStatus `gorm:"size:20;default:unclassified" json:"classification_status"`
	CompletedAt          *time.Time           `json:"completed_at,omitempty"`
	CreatedAt            time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Action) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID, err = uuid.NewV7()
	}
	return
}
